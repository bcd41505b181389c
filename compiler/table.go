package compiler

import "github.com/stanford-oval/thingtalk/ast"

// compileTable lowers a one-shot (non-stream) rule's Table: invoke its
// query once, iterate the result set, and run cont per tuple. A JoinTable
// at the root compiles its left side the same way and eagerly invokes
// its right side per left tuple (table⋈table is nested-loop, left-outer
// scoping — the right side is re-queried for every left row rather than
// cached, since the right side's InParams may reference the left row's
// bindings).
func (rc *ruleCompiler) compileTable(t ast.Table, b *builder, cont func(b *builder) error) error {
	if join, ok := t.(*ast.JoinTable); ok {
		return rc.compileTable(join.Left, b, func(b *builder) error {
			rs, err := rc.emitQuery(join.Right, b, join.InParams)
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
	}

	rs, err := rc.emitQuery(t, b, nil)
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
}

// emitQuery resolves t to an InvokeQueryInstr and returns the resulting
// handle. A join's right-hand side must resolve to a single invocation
// chain: a further nested JoinTable there would require materializing
// and re-iterating an intermediate result set the IR has no
// representation for, so it is rejected rather than silently dropped.
func (rc *ruleCompiler) emitQuery(t ast.Table, b *builder, joinParams []ast.InputParam) (ResultSetHandle, error) {
	if _, ok := t.(*ast.JoinTable); ok {
		return 0, errAmbiguousJoin("join's right-hand side may not itself be a join")
	}
	kind, channel, staticArgs, spec, err := rc.resolveQuery(t, joinParams)
	if err != nil {
		return 0, err
	}
	fn := b.fnID(kind, channel, EndpointQuery)
	result := b.newResultSet()
	b.emit(InvokeQueryInstr{Fn: fn, StaticArgs: staticArgs, Spec: spec, Result: result})
	return result, nil
}
