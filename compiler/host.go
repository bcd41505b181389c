package compiler

import "context"

// Host is the §4.5/§6 runtime contract: for each CompiledRule, the host
// supplies these operations and drives Main's instructions against
// them. Nothing in this module calls Host; it documents the contract
// the compiled IR is written against. A reference in-memory
// implementation lives in compiler/hosttest for this module's own
// tests.
type Host interface {
	// OpenStream opens fn's stream source, returning an iterator handle
	// the host keeps internal bookkeeping for (correlated back to this
	// rule's IterHandle by the caller).
	OpenStream(ctx context.Context, fn Endpoint) (any, error)
	// OpenMonitor opens a monitor subscription on fn's query result
	// stream with the given static input arguments.
	OpenMonitor(ctx context.Context, fn Endpoint, staticArgs []Binding) (any, error)
	// OpenTimer opens a periodic timer per spec.
	OpenTimer(ctx context.Context, spec TimerSpec) (any, error)
	// OpenAtTimer opens a time-of-day timer per spec.
	OpenAtTimer(ctx context.Context, spec TimerSpec) (any, error)
	// Next suspends on iter until a tuple is available, returning its
	// bindings, or ok=false at end-of-stream.
	Next(ctx context.Context, iter any) (bindings map[string]any, ok bool, err error)
	// InvokeQuery invokes fn once with staticArgs, pushing spec's
	// Filter/Sort/Index/Slice/Aggregate/History/Compute/Projection
	// operators into the query the way a query engine pushes predicates
	// into a scan; spec is never nil, and every field of it is zero for
	// a bare query. It returns a result set
	// handle Iterate walks.
	InvokeQuery(ctx context.Context, fn Endpoint, staticArgs []Binding, spec *QuerySpec) (any, error)
	// Iterate advances resultSet, returning the next tuple's bindings,
	// or ok=false when exhausted.
	Iterate(ctx context.Context, resultSet any) (bindings map[string]any, ok bool, err error)
	// InvokeAction invokes fn with args bound from the current tuple.
	InvokeAction(ctx context.Context, fn Endpoint, args []Binding) error
	// Output surfaces a record to the caller (notify).
	Output(ctx context.Context, outputType string, record map[string]any) error
	// LoadState returns state cell id's last stored value, or nil if
	// never stored.
	LoadState(ctx context.Context, id StateID) (any, error)
	// StoreState persists value under state cell id.
	StoreState(ctx context.Context, id StateID, value any) error
}

// Binding is a resolved (name, value) pair passed to a Host
// invocation; Value is the ast.Value evaluated against the current
// tuple bindings (an ast.VarRefValue resolved to its bound value, a
// literal left as-is).
type Binding struct {
	Name  string
	Value any
}
