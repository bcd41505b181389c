// Package hosttest provides an in-memory reference implementation of
// compiler.Host for this module's own tests. It is a fake, not a
// runtime: queries and stream ticks are pre-scripted by the caller
// rather than dispatched to real devices.
package hosttest

import (
	"context"
	"fmt"
	"sync"

	"github.com/stanford-oval/thingtalk/compiler"
)

// endpointKey identifies a registered fake by the same (kind, channel)
// pair a compiler.Endpoint carries.
func endpointKey(fn compiler.Endpoint) string {
	return string(fn.Type) + "\x00" + fn.Kind + "\x00" + fn.Channel
}

// ActionCall records one InvokeAction the Host received.
type ActionCall struct {
	Fn   compiler.Endpoint
	Args []compiler.Binding
}

// Host is a scriptable fake satisfying compiler.Host.
type Host struct {
	mu sync.Mutex

	// queryResults is consulted by InvokeQuery, keyed by endpointKey.
	queryResults map[string][]map[string]any
	// streamTicks is consulted by OpenStream/OpenMonitor, keyed by
	// endpointKey; each call pops the next queue and iterates it.
	streamTicks map[string][]map[string]any

	state map[compiler.StateID]any

	Actions []ActionCall
	Outputs []Output
}

// Output records one Output (notify) call.
type Output struct {
	OutputType string
	Record     map[string]any
}

// New constructs an empty Host; use SetQueryResult/SetStreamTicks to
// script its responses before driving a CompiledRule against it.
func New() *Host {
	return &Host{
		queryResults: make(map[string][]map[string]any),
		streamTicks:  make(map[string][]map[string]any),
		state:        make(map[compiler.StateID]any),
	}
}

// SetQueryResult scripts InvokeQuery's response for fn.
func (h *Host) SetQueryResult(fn compiler.Endpoint, rows []map[string]any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.queryResults[endpointKey(fn)] = rows
}

// SetStreamTicks scripts the sequence of tuples OpenStream/OpenMonitor's
// iterator delivers for fn, one per Next call, in order.
func (h *Host) SetStreamTicks(fn compiler.Endpoint, ticks []map[string]any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.streamTicks[endpointKey(fn)] = ticks
}

type iterator struct {
	ticks []map[string]any
	pos   int
}

type resultSet struct {
	rows []map[string]any
	pos  int
}

func (h *Host) OpenStream(ctx context.Context, fn compiler.Endpoint) (any, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return &iterator{ticks: h.streamTicks[endpointKey(fn)]}, nil
}

func (h *Host) OpenMonitor(ctx context.Context, fn compiler.Endpoint, staticArgs []compiler.Binding) (any, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return &iterator{ticks: h.streamTicks[endpointKey(fn)]}, nil
}

func (h *Host) OpenTimer(ctx context.Context, spec compiler.TimerSpec) (any, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return &iterator{ticks: h.streamTicks[endpointKey(compiler.Endpoint{Type: compiler.EndpointTimer})]}, nil
}

func (h *Host) OpenAtTimer(ctx context.Context, spec compiler.TimerSpec) (any, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return &iterator{ticks: h.streamTicks[endpointKey(compiler.Endpoint{Type: compiler.EndpointAtTimer})]}, nil
}

func (h *Host) Next(ctx context.Context, iter any) (map[string]any, bool, error) {
	it, ok := iter.(*iterator)
	if !ok {
		return nil, false, fmt.Errorf("hosttest: not an iterator handle")
	}
	if it.pos >= len(it.ticks) {
		return nil, false, nil
	}
	tuple := it.ticks[it.pos]
	it.pos++
	return tuple, true, nil
}

func (h *Host) InvokeQuery(ctx context.Context, fn compiler.Endpoint, staticArgs []compiler.Binding, spec *compiler.QuerySpec) (any, error) {
	h.mu.Lock()
	rows := h.queryResults[endpointKey(fn)]
	h.mu.Unlock()
	return &resultSet{rows: rows}, nil
}

func (h *Host) Iterate(ctx context.Context, rs any) (map[string]any, bool, error) {
	r, ok := rs.(*resultSet)
	if !ok {
		return nil, false, fmt.Errorf("hosttest: not a result set handle")
	}
	if r.pos >= len(r.rows) {
		return nil, false, nil
	}
	row := r.rows[r.pos]
	r.pos++
	return row, true, nil
}

func (h *Host) InvokeAction(ctx context.Context, fn compiler.Endpoint, args []compiler.Binding) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Actions = append(h.Actions, ActionCall{Fn: fn, Args: args})
	return nil
}

func (h *Host) Output(ctx context.Context, outputType string, record map[string]any) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Outputs = append(h.Outputs, Output{OutputType: outputType, Record: record})
	return nil
}

func (h *Host) LoadState(ctx context.Context, id compiler.StateID) (any, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state[id], nil
}

func (h *Host) StoreState(ctx context.Context, id compiler.StateID, value any) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.state[id] = value
	return nil
}

var _ compiler.Host = (*Host)(nil)
