package ast

import "fmt"

// Stream is the common interface for stream-source primitives, per §3.3.
type Stream interface {
	Kind() string
	Clone() Stream
	String() string
	// GetSchema returns the mutable schema slot filled in by semantic
	// analysis.
	GetSchema() *FunctionDef
	SetSchema(*FunctionDef)
}

type streamBase struct{ schema *FunctionDef }

func (b *streamBase) GetSchema() *FunctionDef  { return b.schema }
func (b *streamBase) SetSchema(f *FunctionDef) { b.schema = f }

// TimerStream fires periodically starting at base, every interval.
type TimerStream struct {
	streamBase
	Base     Value // Date
	Interval Value // Measure(ms)
}

func (s *TimerStream) Kind() string { return "timer" }
func (s *TimerStream) Clone() Stream {
	return &TimerStream{streamBase{s.schema}, s.Base.Clone(), s.Interval.Clone()}
}
func (s *TimerStream) String() string {
	return fmt.Sprintf("timer(base=%s, interval=%s)", s.Base, s.Interval)
}

// AtTimerStream fires at each of the given times of day, until an
// optional expiration date.
type AtTimerStream struct {
	streamBase
	TimeList   []Value // Time values
	Expiration Value   // Date, optional (nil = never)
}

func (s *AtTimerStream) Kind() string { return "attimer" }
func (s *AtTimerStream) Clone() Stream {
	times := make([]Value, len(s.TimeList))
	for i, t := range s.TimeList {
		times[i] = t.Clone()
	}
	var exp Value
	if s.Expiration != nil {
		exp = s.Expiration.Clone()
	}
	return &AtTimerStream{streamBase{s.schema}, times, exp}
}
func (s *AtTimerStream) String() string { return "attimer(...)" }

// MonitorStream subscribes to a monitorable Table's result stream,
// optionally restricted to a subset of output arguments for
// de-duplication purposes.
type MonitorStream struct {
	streamBase
	Table  Table
	ArgSet []string // nil = whole-record dedup
}

func (s *MonitorStream) Kind() string { return "monitor" }
func (s *MonitorStream) Clone() Stream {
	return &MonitorStream{streamBase{s.schema}, s.Table.Clone(), append([]string(nil), s.ArgSet...)}
}
func (s *MonitorStream) String() string { return "monitor(" + s.Table.String() + ")" }

// EdgeNewStream emits only when the underlying stream's tuple differs
// from the previous one (edge-detection without a predicate).
type EdgeNewStream struct {
	streamBase
	Stream Stream
}

func (s *EdgeNewStream) Kind() string           { return "edge_new" }
func (s *EdgeNewStream) Clone() Stream           { return &EdgeNewStream{streamBase{s.schema}, s.Stream.Clone()} }
func (s *EdgeNewStream) String() string          { return "edge(new " + s.Stream.String() + ")" }

// EdgeFilterStream emits only at the false->true transition of Filter
// over the underlying stream.
type EdgeFilterStream struct {
	streamBase
	Stream Stream
	Filter FilterExpression
}

func (s *EdgeFilterStream) Kind() string { return "edge_filter" }
func (s *EdgeFilterStream) Clone() Stream {
	return &EdgeFilterStream{streamBase{s.schema}, s.Stream.Clone(), s.Filter.Clone()}
}
func (s *EdgeFilterStream) String() string {
	return fmt.Sprintf("edge(%s on %s)", s.Stream.String(), s.Filter.String())
}

// FilterStream restricts the underlying stream to tuples matching
// Filter, re-evaluated on every tick (not edge-triggered).
type FilterStream struct {
	streamBase
	Stream Stream
	Filter FilterExpression
}

func (s *FilterStream) Kind() string { return "filter" }
func (s *FilterStream) Clone() Stream {
	return &FilterStream{streamBase{s.schema}, s.Stream.Clone(), s.Filter.Clone()}
}
func (s *FilterStream) String() string {
	return fmt.Sprintf("%s, %s", s.Stream.String(), s.Filter.String())
}

// ProjectionStream restricts the underlying stream's tuples to Args.
type ProjectionStream struct {
	streamBase
	Stream Stream
	Args   []string
}

func (s *ProjectionStream) Kind() string { return "projection" }
func (s *ProjectionStream) Clone() Stream {
	return &ProjectionStream{streamBase{s.schema}, s.Stream.Clone(), append([]string(nil), s.Args...)}
}
func (s *ProjectionStream) String() string { return "[" + s.Stream.String() + "]" }

// AliasStream binds the underlying stream's whole tuple under Name,
// enabling later qualified references (e.g. in a join).
type AliasStream struct {
	streamBase
	Stream Stream
	Name   string
}

func (s *AliasStream) Kind() string  { return "alias" }
func (s *AliasStream) Clone() Stream { return &AliasStream{streamBase{s.schema}, s.Stream.Clone(), s.Name} }
func (s *AliasStream) String() string {
	return fmt.Sprintf("%s as %s", s.Stream.String(), s.Name)
}

// JoinStream suspends on Stream and eagerly invokes Table on every tick,
// merging bindings.
type JoinStream struct {
	streamBase
	Stream   Stream
	Table    Table
	InParams []InputParam
}

func (s *JoinStream) Kind() string { return "join" }
func (s *JoinStream) Clone() Stream {
	ps := make([]InputParam, len(s.InParams))
	for i, p := range s.InParams {
		ps[i] = p.Clone()
	}
	return &JoinStream{streamBase{s.schema}, s.Stream.Clone(), s.Table.Clone(), ps}
}
func (s *JoinStream) String() string {
	return fmt.Sprintf("%s join %s", s.Stream.String(), s.Table.String())
}

// VarRefStream refers to a named Declaration/Assignment bound earlier in
// the Program.
type VarRefStream struct {
	streamBase
	Name     string
	InParams []InputParam
}

func (s *VarRefStream) Kind() string { return "var_ref_stream" }
func (s *VarRefStream) Clone() Stream {
	ps := make([]InputParam, len(s.InParams))
	for i, p := range s.InParams {
		ps[i] = p.Clone()
	}
	return &VarRefStream{streamBase{s.schema}, s.Name, ps}
}
func (s *VarRefStream) String() string { return "@" + s.Name }
