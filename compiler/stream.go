package compiler

import "github.com/stanford-oval/thingtalk/ast"

// compileStream lowers s, calling cont to compile whatever consumes
// each tuple s produces. cont runs inside the innermost Next/Iterate
// body the wrapping primitives build, so a derived stream (Filter,
// Projection, Join, ...) composes by wrapping cont rather than
// emitting its own loop.
func (rc *ruleCompiler) compileStream(s ast.Stream, b *builder, cont func(b *builder) error) error {
	switch v := s.(type) {
	case *ast.TimerStream:
		result := b.newIter()
		b.fnID("", "", EndpointTimer)
		b.emit(OpenTimerInstr{Spec: TimerSpec{Base: v.Base, Interval: v.Interval}, Result: result})
		return rc.wrapNext(b, result, cont)

	case *ast.AtTimerStream:
		result := b.newIter()
		b.fnID("", "", EndpointAtTimer)
		b.emit(OpenAtTimerInstr{Spec: TimerSpec{TimeList: v.TimeList, Expiration: v.Expiration}, Result: result})
		return rc.wrapNext(b, result, cont)

	case *ast.MonitorStream:
		return rc.compileMonitor(v, b, cont)

	case *ast.EdgeNewStream:
		return rc.compileStream(v.Stream, b, func(b *builder) error {
			state := b.newState()
			b.emit(LoadStateInstr{State: state, Kind: StateDedup, Bind: "__prevTuple"})
			b.pushBlock()
			if err := cont(b); err != nil {
				b.popBlock()
				return err
			}
			body := b.popBlock()
			b.emit(StoreStateInstr{State: state, Kind: StateDedup, Body: body})
			return nil
		})

	case *ast.EdgeFilterStream:
		return rc.compileStream(v.Stream, b, func(b *builder) error {
			state := b.newState()
			b.emit(LoadStateInstr{State: state, Kind: StateEdgeFilter, Bind: "__prevEdge"})
			b.pushBlock()
			if err := cont(b); err != nil {
				b.popBlock()
				return err
			}
			body := b.popBlock()
			b.emit(StoreStateInstr{State: state, Kind: StateEdgeFilter, Filter: v.Filter, Body: body})
			return nil
		})

	case *ast.FilterStream:
		return rc.compileStream(v.Stream, b, func(b *builder) error {
			b.emit(AssertFilterInstr{Expr: v.Filter})
			return cont(b)
		})

	case *ast.ProjectionStream:
		return rc.compileStream(v.Stream, b, cont)

	case *ast.AliasStream:
		return rc.compileStream(v.Stream, b, cont)

	case *ast.JoinStream:
		return rc.compileStream(v.Stream, b, func(b *builder) error {
			rs, err := rc.emitQuery(v.Table, b, v.InParams)
			if err != nil {
				return err
			}
			b.pushBlock()
			if err := cont(b); err != nil {
				b.popBlock()
				return err
			}
			body := b.popBlock()
			b.emit(IterateInstr{Set: rs, Body: body})
			return nil
		})

	case *ast.VarRefStream:
		return errUnboundVarRef("unresolved stream reference %q", v.Name)

	default:
		return errUnsupported("no lowering for stream kind %q", s.Kind())
	}
}

// wrapNext pushes a block, runs cont inside it, and wraps the result in
// a NextInstr suspending on iter — the shape every leaf stream source
// (Timer, AtTimer) shares.
func (rc *ruleCompiler) wrapNext(b *builder, iter IterHandle, cont func(b *builder) error) error {
	b.pushBlock()
	if err := cont(b); err != nil {
		b.popBlock()
		return err
	}
	body := b.popBlock()
	b.emit(NextInstr{Iter: iter, Body: body})
	return nil
}

// compileMonitor lowers a MonitorStream. When its Table is a FilterTable
// wrapping a bare InvocationTable, the filter is lifted to an edge
// filter per §4.5 ("monitor(table filter F) lifts F to an edge
// filter") rather than compiled as a post-hoc AssertFilter, which would
// re-fire on every unchanged tick the underlying poll happens to repeat
// rather than only at the false->true transition.
func (rc *ruleCompiler) compileMonitor(v *ast.MonitorStream, b *builder, cont func(b *builder) error) error {
	table := v.Table
	var filter ast.FilterExpression
	if ft, ok := table.(*ast.FilterTable); ok {
		filter = ft.Filter
		table = ft.Table
	}
	inv, ok := table.(*ast.InvocationTable)
	if !ok {
		return errUnsupported("monitor over non-invocation table kind %q", table.Kind())
	}

	fn := b.fnID(inv.Kind_, inv.Channel, EndpointQuery)
	result := b.newIter()
	b.emit(OpenMonitorInstr{Fn: fn, StaticArgs: inv.InParams, ArgSet: v.ArgSet, Result: result})

	b.pushBlock() // Next body
	dedupState := b.newState()
	b.emit(LoadStateInstr{State: dedupState, Kind: StateDedup, Bind: "__prevDedup"})

	b.pushBlock() // dedup-gated body
	var innerErr error
	if filter != nil {
		edgeState := b.newState()
		b.emit(LoadStateInstr{State: edgeState, Kind: StateEdgeFilter, Bind: "__prevEdge"})
		b.pushBlock()
		innerErr = cont(b)
		edgeBody := b.popBlock()
		if innerErr == nil {
			b.emit(StoreStateInstr{State: edgeState, Kind: StateEdgeFilter, Filter: filter, Body: edgeBody})
		}
	} else {
		innerErr = cont(b)
	}
	dedupBody := b.popBlock()
	if innerErr != nil {
		b.popBlock() // discard the Next body being assembled
		return innerErr
	}
	b.emit(StoreStateInstr{State: dedupState, Kind: StateDedup, ArgSet: v.ArgSet, Body: dedupBody})
	nextBody := b.popBlock()
	b.emit(NextInstr{Iter: result, Body: nextBody})
	return nil
}
