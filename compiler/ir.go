// Package compiler lowers a typed, optimized ast.Program into a
// deterministic, language-neutral intermediate representation per §4.5:
// one CompiledRule per ast.Rule, each an ordered list of endpoint
// invocations and a main procedure expressed as a small instruction
// set. The IR itself performs no I/O; it is opaque to this module and
// executed by a Host the compiled rule is written against.
package compiler

import "github.com/stanford-oval/thingtalk/ast"

// FnID indexes into a CompiledRule's Functions table.
type FnID int

// IterHandle names an open stream/monitor/timer iterator within one
// rule's execution.
type IterHandle int

// ResultSetHandle names an open query result set within one rule's
// execution.
type ResultSetHandle int

// StateID names one of a CompiledRule's durable state cells.
type StateID int

// EndpointType classifies a Functions table entry.
type EndpointType string

const (
	EndpointStream EndpointType = "stream"
	EndpointQuery  EndpointType = "query"
	EndpointAction EndpointType = "action"
	EndpointTimer  EndpointType = "timer"
	EndpointAtTimer EndpointType = "attimer"
)

// Endpoint is one external invocation point a CompiledRule references by
// FnID, per §4.5's "ordered list of external invocation endpoints".
type Endpoint struct {
	Kind    string // device kind, e.g. "com.xkcd"; empty for timer/attimer
	Channel string
	Type    EndpointType
}

// TimerSpec describes a Timer/AtTimer endpoint's schedule in a shape a
// host can build a golang.org/x/time/rate.Limiter-style ticker from,
// reusing the rate-limiting vocabulary schema.Retriever already uses
// for upstream batch throttling instead of inventing a second one.
type TimerSpec struct {
	// Base is the Date the first tick fires at (TimerStream only).
	Base ast.Value
	// Interval is the Measure(ms) period between ticks (TimerStream
	// only); as a rate.Limiter it is 1/Interval events per second with
	// a burst of 1.
	Interval ast.Value
	// TimeList holds the times-of-day an AtTimerStream fires at
	// (AtTimerStream only).
	TimeList []ast.Value
	// Expiration is the optional Date after which an AtTimerStream
	// stops firing (AtTimerStream only; nil means never).
	Expiration ast.Value
}

// StateKind distinguishes the two purposes a state cell serves, per
// §4.5's de-duplication and edge-filter bullets; LoadState/StoreState
// are the same two primitives for both, the Kind only tells the host
// which comparison convention to apply to the opaque cell value.
type StateKind string

const (
	StateDedup      StateKind = "dedup"
	StateEdgeFilter StateKind = "edge_filter"
)

// Instruction is the common interface for every §4.5 IR step.
type Instruction interface {
	instr()
}

type baseInstr struct{}

func (baseInstr) instr() {}

// OpenStreamInstr opens fnId's stream source, yielding an iterator.
type OpenStreamInstr struct {
	baseInstr
	Fn     FnID
	Result IterHandle
}

// OpenMonitorInstr opens a monitor subscription on a query's result
// stream, restricted to de-duplicating on ArgSet (nil = whole record).
type OpenMonitorInstr struct {
	baseInstr
	Fn         FnID
	StaticArgs []ast.InputParam
	ArgSet     []string
	Result     IterHandle
}

// OpenTimerInstr opens a periodic timer iterator.
type OpenTimerInstr struct {
	baseInstr
	Spec   TimerSpec
	Result IterHandle
}

// OpenAtTimerInstr opens a time-of-day timer iterator.
type OpenAtTimerInstr struct {
	baseInstr
	Spec   TimerSpec
	Result IterHandle
}

// NextInstr suspends on Iter; on a delivered tuple it binds varBindings
// and runs Body, then suspends again. End-of-stream terminates the
// enclosing rule's main loop (not separately modeled: the Host simply
// stops calling back into Body).
type NextInstr struct {
	baseInstr
	Iter IterHandle
	Body []Instruction
}

// InvokeQueryInstr invokes fnId once with StaticArgs, yielding a result
// set to Iterate over.
type InvokeQueryInstr struct {
	baseInstr
	Fn         FnID
	StaticArgs []ast.InputParam
	// Spec carries the Sort/Index/Slice/Aggregate/History/Filter/
	// Compute/Projection operators collected above this invocation in
	// the original Table expression; never nil, with every field zero
	// when the query is bare.
	Spec       *QuerySpec
	Result     ResultSetHandle
}

// IterateInstr walks Set tuple by tuple, running Body for each with
// that tuple's bindings.
type IterateInstr struct {
	baseInstr
	Set  ResultSetHandle
	Body []Instruction
}

// AssertFilterInstr short-circuits the enclosing Body (skips to the next
// tuple/tick) unless Expr evaluates true against the current bindings.
type AssertFilterInstr struct {
	baseInstr
	Expr ast.FilterExpression
}

// ComputeScalarInstr evaluates Expr against the current bindings and
// binds the result under BindName.
type ComputeScalarInstr struct {
	baseInstr
	Expr      ast.ScalarExpression
	BindName  string
}

// LoadStateInstr loads state cell State's last stored value. Bind names
// the loaded value for reference by a later StoreStateInstr of the same
// Kind (the host-side comparison it performs is defined by Kind, not by
// this module).
type LoadStateInstr struct {
	baseInstr
	State StateID
	Kind  StateKind
	Bind  string
}

// StoreStateInstr stores the current tuple's projection onto ArgSet (for
// StateDedup; nil means the whole record) or the current evaluation of
// Filter (for StateEdgeFilter) into State, comparing it against the
// value a matching LoadStateInstr loaded. Body runs only when the host
// determines the cell changed (StateDedup: the projected tuple differs
// from the previous one; StateEdgeFilter: Filter just became true) — the
// composition that realizes §4.5's "single state cell" de-dup and
// edge-filter bullets out of the bare Load/Store primitives.
type StoreStateInstr struct {
	baseInstr
	State  StateID
	Kind   StateKind
	ArgSet []string
	Filter ast.FilterExpression
	Body   []Instruction
}

// InvokeActionInstr invokes fnId's action with Args bound from the
// current tuple (InputParam.Value may reference a bound variable via
// ast.VarRefValue).
type InvokeActionInstr struct {
	baseInstr
	Fn   FnID
	Args []ast.InputParam
}

// OutputInstr surfaces a record to the host, the compiled form of
// `notify`. OutputType is the concatenation of the involved functions'
// ids, per §4.5.
type OutputInstr struct {
	baseInstr
	OutputType string
	Record     []string
}

// CompiledRule is one ast.Rule lowered to §4.5's IR.
type CompiledRule struct {
	States    uint32
	Functions []Endpoint
	Main      []Instruction
}
