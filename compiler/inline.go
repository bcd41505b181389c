package compiler

import (
	"github.com/stanford-oval/thingtalk/ast"
	"github.com/stanford-oval/thingtalk/compileerrors"
)

// InlineProgram returns a clone of prog with every VarRefStream,
// VarRefTable, and VarRefAction primitive replaced by the body of the
// Declaration it names, substituting the reference's own InputParams for
// the declaration's lambda parameters throughout the inlined body. The
// IR has no primitive for "invoke a named program-level binding" — a
// Declaration is a macro, expanded here rather than carried into
// compileRule.
func InlineProgram(prog *ast.Program) (*ast.Program, error) {
	decls := make(map[string]*ast.Declaration, len(prog.Declarations))
	for _, d := range prog.Declarations {
		decls[d.Name] = d
	}

	inl := &inliner{decls: decls}
	out := &ast.Program{Principal: prog.Principal, Classes: prog.Classes, Assignments: prog.Assignments}

	for _, r := range prog.Rules {
		nr := &ast.Rule{}
		if r.Stream != nil {
			s, err := inl.stream(r.Stream, nil)
			if err != nil {
				return nil, err
			}
			nr.Stream = s
		}
		if r.Table != nil {
			t, err := inl.table(r.Table, nil)
			if err != nil {
				return nil, err
			}
			nr.Table = t
		}
		for _, a := range r.Actions {
			na, err := inl.action(a, nil)
			if err != nil {
				return nil, err
			}
			nr.Actions = append(nr.Actions, na)
		}
		out.Rules = append(out.Rules, nr)
	}
	return out, nil
}

// inliner expands VarRef primitives against a fixed Declaration table;
// subst carries the lambda-parameter bindings currently in scope (empty
// at the top of a Rule, populated while descending into an inlined
// Declaration body). Every rebuilt Stream/Table/Action node copies its
// source node's already-computed Schema across: semantic analysis has
// already run (CompileProgram operates on a typed, optimized Program),
// and a Declaration's own body was type-checked independently against
// its lambda parameters' declared types, so the schema is valid
// regardless of which concrete values get substituted for them.
type inliner struct {
	decls map[string]*ast.Declaration
}

func (inl *inliner) stream(s ast.Stream, subst map[string]ast.Value) (ast.Stream, error) {
	var n ast.Stream
	switch v := s.(type) {
	case *ast.TimerStream:
		n = &ast.TimerStream{Base: inl.value(v.Base, subst), Interval: inl.value(v.Interval, subst)}

	case *ast.AtTimerStream:
		at := &ast.AtTimerStream{}
		for _, t := range v.TimeList {
			at.TimeList = append(at.TimeList, inl.value(t, subst))
		}
		if v.Expiration != nil {
			at.Expiration = inl.value(v.Expiration, subst)
		}
		n = at

	case *ast.MonitorStream:
		t, err := inl.table(v.Table, subst)
		if err != nil {
			return nil, err
		}
		n = &ast.MonitorStream{Table: t, ArgSet: v.ArgSet}

	case *ast.EdgeNewStream:
		inner, err := inl.stream(v.Stream, subst)
		if err != nil {
			return nil, err
		}
		n = &ast.EdgeNewStream{Stream: inner}

	case *ast.EdgeFilterStream:
		inner, err := inl.stream(v.Stream, subst)
		if err != nil {
			return nil, err
		}
		f, err := inl.filter(v.Filter, subst)
		if err != nil {
			return nil, err
		}
		n = &ast.EdgeFilterStream{Stream: inner, Filter: f}

	case *ast.FilterStream:
		inner, err := inl.stream(v.Stream, subst)
		if err != nil {
			return nil, err
		}
		f, err := inl.filter(v.Filter, subst)
		if err != nil {
			return nil, err
		}
		n = &ast.FilterStream{Stream: inner, Filter: f}

	case *ast.ProjectionStream:
		inner, err := inl.stream(v.Stream, subst)
		if err != nil {
			return nil, err
		}
		n = &ast.ProjectionStream{Stream: inner, Args: append([]string(nil), v.Args...)}

	case *ast.AliasStream:
		inner, err := inl.stream(v.Stream, subst)
		if err != nil {
			return nil, err
		}
		n = &ast.AliasStream{Stream: inner, Name: v.Name}

	case *ast.JoinStream:
		inner, err := inl.stream(v.Stream, subst)
		if err != nil {
			return nil, err
		}
		t, err := inl.table(v.Table, subst)
		if err != nil {
			return nil, err
		}
		params, err := inl.inParams(v.InParams, subst)
		if err != nil {
			return nil, err
		}
		n = &ast.JoinStream{Stream: inner, Table: t, InParams: params}

	case *ast.VarRefStream:
		body, err := inl.expandStream(v, subst)
		if err != nil {
			return nil, err
		}
		return body, nil

	default:
		return nil, compileerrors.New(compileerrors.UnsupportedConstruct, -1, "no inlining for stream kind "+s.Kind())
	}
	n.SetSchema(s.GetSchema())
	return n, nil
}

func (inl *inliner) table(t ast.Table, subst map[string]ast.Value) (ast.Table, error) {
	var n ast.Table
	switch v := t.(type) {
	case *ast.InvocationTable:
		params, err := inl.inParams(v.InParams, subst)
		if err != nil {
			return nil, err
		}
		var principal ast.Value
		if v.Principal != nil {
			principal = inl.value(v.Principal, subst)
		}
		n = &ast.InvocationTable{Kind_: v.Kind_, Channel: v.Channel, InParams: params, Principal: principal}

	case *ast.ResultRefTable:
		n = &ast.ResultRefTable{Kind_: v.Kind_, Channel: v.Channel, Index: inl.value(v.Index, subst)}

	case *ast.FilterTable:
		inner, err := inl.table(v.Table, subst)
		if err != nil {
			return nil, err
		}
		f, err := inl.filter(v.Filter, subst)
		if err != nil {
			return nil, err
		}
		n = &ast.FilterTable{Table: inner, Filter: f}

	case *ast.ProjectionTable:
		inner, err := inl.table(v.Table, subst)
		if err != nil {
			return nil, err
		}
		n = &ast.ProjectionTable{Table: inner, Args: append([]string(nil), v.Args...)}

	case *ast.ComputeTable:
		inner, err := inl.table(v.Table, subst)
		if err != nil {
			return nil, err
		}
		expr, err := inl.scalar(v.Expr, subst)
		if err != nil {
			return nil, err
		}
		n = &ast.ComputeTable{Table: inner, Expr: expr, Alias: v.Alias}

	case *ast.AggregationTable:
		inner, err := inl.table(v.Table, subst)
		if err != nil {
			return nil, err
		}
		n = &ast.AggregationTable{Table: inner, Op: v.Op, Field: v.Field, Alias: v.Alias}

	case *ast.SortTable:
		inner, err := inl.table(v.Table, subst)
		if err != nil {
			return nil, err
		}
		n = &ast.SortTable{Table: inner, Field: v.Field, Direction: v.Direction}

	case *ast.IndexTable:
		inner, err := inl.table(v.Table, subst)
		if err != nil {
			return nil, err
		}
		idx := &ast.IndexTable{Table: inner}
		for _, i := range v.Indices {
			idx.Indices = append(idx.Indices, inl.value(i, subst))
		}
		n = idx

	case *ast.SliceTable:
		inner, err := inl.table(v.Table, subst)
		if err != nil {
			return nil, err
		}
		n = &ast.SliceTable{Table: inner, Base: inl.value(v.Base, subst), Limit: inl.value(v.Limit, subst)}

	case *ast.HistoryTable:
		inner, err := inl.table(v.Table, subst)
		if err != nil {
			return nil, err
		}
		n = &ast.HistoryTable{Table: inner, HistKind: v.HistKind, Base: inl.value(v.Base, subst), Delta: inl.value(v.Delta, subst)}

	case *ast.JoinTable:
		left, err := inl.table(v.Left, subst)
		if err != nil {
			return nil, err
		}
		right, err := inl.table(v.Right, subst)
		if err != nil {
			return nil, err
		}
		params, err := inl.inParams(v.InParams, subst)
		if err != nil {
			return nil, err
		}
		n = &ast.JoinTable{Left: left, Right: right, InParams: params}

	case *ast.VarRefTable:
		body, err := inl.expandTable(v, subst)
		if err != nil {
			return nil, err
		}
		return body, nil

	default:
		return nil, compileerrors.New(compileerrors.UnsupportedConstruct, -1, "no inlining for table kind "+t.Kind())
	}
	n.SetSchema(t.GetSchema())
	return n, nil
}

func (inl *inliner) action(a ast.Action, subst map[string]ast.Value) (ast.Action, error) {
	var n ast.Action
	switch v := a.(type) {
	case *ast.InvocationAction:
		params, err := inl.inParams(v.InParams, subst)
		if err != nil {
			return nil, err
		}
		var principal ast.Value
		if v.Principal != nil {
			principal = inl.value(v.Principal, subst)
		}
		n = &ast.InvocationAction{Kind_: v.Kind_, Channel: v.Channel, InParams: params, Principal: principal}

	case *ast.NotifyAction:
		n = &ast.NotifyAction{}

	case *ast.VarRefAction:
		body, err := inl.expandAction(v, subst)
		if err != nil {
			return nil, err
		}
		return body, nil

	default:
		return nil, compileerrors.New(compileerrors.UnsupportedConstruct, -1, "no inlining for action kind "+a.Kind())
	}
	n.SetSchema(a.GetSchema())
	return n, nil
}

// bindParams resolves a VarRef's own InputParams against the caller's
// current subst scope, then keys them by the referenced Declaration's
// argument names to build the subst map the inlined body is expanded
// under.
func (inl *inliner) bindParams(name string, refParams []ast.InputParam, subst map[string]ast.Value) (*ast.Declaration, map[string]ast.Value, error) {
	d, ok := inl.decls[name]
	if !ok {
		return nil, nil, compileerrors.New(compileerrors.UnboundVarRef, -1, "reference to undeclared name \""+name+"\"")
	}
	inner := make(map[string]ast.Value, len(refParams))
	for _, p := range refParams {
		inner[p.Name] = inl.value(p.Value, subst)
	}
	return d, inner, nil
}

func (inl *inliner) expandStream(v *ast.VarRefStream, subst map[string]ast.Value) (ast.Stream, error) {
	d, inner, err := inl.bindParams(v.Name, v.InParams, subst)
	if err != nil {
		return nil, err
	}
	if d.Stream == nil {
		return nil, compileerrors.New(compileerrors.UnboundVarRef, -1, "\""+v.Name+"\" does not declare a stream")
	}
	return inl.stream(d.Stream, inner)
}

func (inl *inliner) expandTable(v *ast.VarRefTable, subst map[string]ast.Value) (ast.Table, error) {
	d, inner, err := inl.bindParams(v.Name, v.InParams, subst)
	if err != nil {
		return nil, err
	}
	if d.Table == nil {
		return nil, compileerrors.New(compileerrors.UnboundVarRef, -1, "\""+v.Name+"\" does not declare a table")
	}
	return inl.table(d.Table, inner)
}

func (inl *inliner) expandAction(v *ast.VarRefAction, subst map[string]ast.Value) (ast.Action, error) {
	d, inner, err := inl.bindParams(v.Name, v.InParams, subst)
	if err != nil {
		return nil, err
	}
	if d.Action == nil {
		return nil, compileerrors.New(compileerrors.UnboundVarRef, -1, "\""+v.Name+"\" does not declare an action")
	}
	return inl.action(d.Action, inner)
}

func (inl *inliner) inParams(params []ast.InputParam, subst map[string]ast.Value) ([]ast.InputParam, error) {
	out := make([]ast.InputParam, len(params))
	for i, p := range params {
		out[i] = ast.InputParam{Name: p.Name, Value: inl.value(p.Value, subst)}
	}
	return out, nil
}

// value substitutes any VarRefValue bound in subst and clones everything
// else, recursing into the handful of value kinds that nest other
// values.
func (inl *inliner) value(v ast.Value, subst map[string]ast.Value) ast.Value {
	if v == nil {
		return nil
	}
	switch n := v.(type) {
	case *ast.VarRefValue:
		if bound, ok := subst[n.Name]; ok {
			return bound.Clone()
		}
		return n.Clone()
	case *ast.ArrayValue:
		elems := make([]ast.Value, len(n.Elements))
		for i, e := range n.Elements {
			elems[i] = inl.value(e, subst)
		}
		return &ast.ArrayValue{Elements: elems, ElemType: n.ElemType}
	case *ast.ComputationValue:
		ops := make([]ast.Value, len(n.Operands))
		for i, o := range n.Operands {
			ops[i] = inl.value(o, subst)
		}
		return &ast.ComputationValue{Op: n.Op, Operands: ops, Resolved: n.Resolved}
	case *ast.CompoundValue:
		fields := make(map[string]ast.Value, len(n.Fields))
		for k, fv := range n.Fields {
			fields[k] = inl.value(fv, subst)
		}
		return &ast.CompoundValue{Name: n.Name, Fields: fields, Order: append([]string(nil), n.Order...)}
	default:
		return v.Clone()
	}
}

func (inl *inliner) filter(f ast.FilterExpression, subst map[string]ast.Value) (ast.FilterExpression, error) {
	switch n := f.(type) {
	case *ast.TrueFilter, *ast.FalseFilter:
		return f.Clone(), nil

	case *ast.AndFilter:
		ops, err := inl.filterList(n.Operands, subst)
		if err != nil {
			return nil, err
		}
		return &ast.AndFilter{Operands: ops}, nil

	case *ast.OrFilter:
		ops, err := inl.filterList(n.Operands, subst)
		if err != nil {
			return nil, err
		}
		return &ast.OrFilter{Operands: ops}, nil

	case *ast.NotFilter:
		inner, err := inl.filter(n.Operand, subst)
		if err != nil {
			return nil, err
		}
		return &ast.NotFilter{Operand: inner}, nil

	case *ast.AtomFilter:
		return &ast.AtomFilter{ArgName: n.ArgName, Op: n.Op, Value: inl.value(n.Value, subst), OverloadIdx: n.OverloadIdx}, nil

	case *ast.ExternalFilter:
		params, err := inl.inParams(n.InParams, subst)
		if err != nil {
			return nil, err
		}
		inner, err := inl.filter(n.Filter, subst)
		if err != nil {
			return nil, err
		}
		return &ast.ExternalFilter{Kind_: n.Kind_, Channel: n.Channel, InParams: params, Filter: inner, Schema: n.Schema}, nil

	case *ast.ComputeFilter:
		expr, err := inl.scalar(n.Expr, subst)
		if err != nil {
			return nil, err
		}
		return &ast.ComputeFilter{Expr: expr, Op: n.Op, Value: inl.value(n.Value, subst), OverloadIdx: n.OverloadIdx}, nil

	default:
		return nil, compileerrors.New(compileerrors.UnsupportedConstruct, -1, "no inlining for filter kind "+f.Kind())
	}
}

func (inl *inliner) filterList(fs []ast.FilterExpression, subst map[string]ast.Value) ([]ast.FilterExpression, error) {
	out := make([]ast.FilterExpression, len(fs))
	for i, f := range fs {
		n, err := inl.filter(f, subst)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

func (inl *inliner) scalar(e ast.ScalarExpression, subst map[string]ast.Value) (ast.ScalarExpression, error) {
	switch n := e.(type) {
	case *ast.PrimaryExpr:
		return &ast.PrimaryExpr{Value: inl.value(n.Value, subst)}, nil

	case *ast.DerivedExpr:
		ops := make([]ast.ScalarExpression, len(n.Operands))
		for i, o := range n.Operands {
			s, err := inl.scalar(o, subst)
			if err != nil {
				return nil, err
			}
			ops[i] = s
		}
		d := &ast.DerivedExpr{Op: n.Op, Operands: ops}
		d.SetResolved(n.Resolved())
		return d, nil

	case *ast.BooleanExpr:
		f, err := inl.filter(n.Filter, subst)
		if err != nil {
			return nil, err
		}
		return &ast.BooleanExpr{Filter: f}, nil

	default:
		return nil, compileerrors.New(compileerrors.UnsupportedConstruct, -1, "no inlining for scalar kind "+e.Kind())
	}
}
