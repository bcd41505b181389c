package semantic

import (
	"fmt"

	"github.com/stanford-oval/thingtalk/ast"
	"github.com/stanford-oval/thingtalk/typeerrors"
	"github.com/stanford-oval/thingtalk/types"
)

// typeCheckStream resolves s's Schema slot (and every descendant's), per
// §4.4's stream-primitive invariants.
func (c *checker) typeCheckStream(s ast.Stream, scope *ast.Scope) {
	path := s.Kind()
	switch v := s.(type) {
	case *ast.TimerStream:
		if t := c.resolveValueType(v.Base, scope, path); t != nil {
			c.checkAssignable(t, types.Date, path, "timer base")
		}
		if t := c.resolveValueType(v.Interval, scope, path); t != nil {
			c.checkAssignable(t, types.Measure("ms"), path, "timer interval")
		}
		v.SetSchema(&ast.FunctionDef{Kind: ast.FunctionStream, Name: "timer"})

	case *ast.AtTimerStream:
		for i, tm := range v.TimeList {
			if t := c.resolveValueType(tm, scope, path); t != nil {
				c.checkAssignable(t, types.Time, path, fmt.Sprintf("attimer entry %d", i))
			}
		}
		if v.Expiration != nil {
			if t := c.resolveValueType(v.Expiration, scope, path); t != nil {
				c.checkAssignable(t, types.Date, path, "attimer expiration")
			}
		}
		v.SetSchema(&ast.FunctionDef{Kind: ast.FunctionStream, Name: "attimer"})

	case *ast.MonitorStream:
		c.typeCheckTable(v.Table, scope)
		schema := v.Table.GetSchema()
		if schema == nil {
			return
		}
		if !schema.IsMonitorable {
			c.fail(typeerrors.NotMonitorable, path, "%q is not monitorable", schema.Name)
			return
		}
		for _, name := range v.ArgSet {
			if schema.ArgByName(name) == nil {
				c.fail(typeerrors.UnknownArgument, path, "monitor arg set references unknown column %q", name)
			}
		}
		v.SetSchema(schema.Clone())

	case *ast.EdgeNewStream:
		c.typeCheckStream(v.Stream, scope)
		v.SetSchema(v.Stream.GetSchema())

	case *ast.EdgeFilterStream:
		c.typeCheckStream(v.Stream, scope)
		schema := v.Stream.GetSchema()
		if schema == nil {
			return
		}
		filterScope := scope.Push()
		filterScope.AddAll(schema.Args)
		c.typeCheckFilter(v.Filter, schema, filterScope, path)
		filtered := schema.Clone()
		filtered.RequireFilter = false
		filtered.DefaultProjection = nil
		v.SetSchema(filtered)

	case *ast.FilterStream:
		c.typeCheckStream(v.Stream, scope)
		schema := v.Stream.GetSchema()
		if schema == nil {
			return
		}
		filterScope := scope.Push()
		filterScope.AddAll(schema.Args)
		c.typeCheckFilter(v.Filter, schema, filterScope, path)
		filtered := schema.Clone()
		filtered.RequireFilter = false
		filtered.DefaultProjection = nil
		v.SetSchema(filtered)

	case *ast.ProjectionStream:
		c.typeCheckStream(v.Stream, scope)
		schema := v.Stream.GetSchema()
		if schema == nil {
			return
		}
		if len(v.Args) == 0 {
			c.fail(typeerrors.MissingProjection, path, "projection must select at least one column")
			v.SetSchema(schema)
			return
		}
		keep := make(map[string]bool, len(v.Args))
		for _, name := range v.Args {
			if schema.ArgByName(name) == nil {
				c.fail(typeerrors.UnknownArgument, path, "projection references unknown column %q", name)
				continue
			}
			keep[name] = true
		}
		projected := schema.Clone()
		var newArgs []ast.ArgumentDef
		for _, a := range projected.Args {
			if a.Direction == ast.ArgIn || keep[a.Name] {
				newArgs = append(newArgs, a)
			}
		}
		projected.Args = newArgs
		projected.DefaultProjection = nil
		v.SetSchema(projected)

	case *ast.AliasStream:
		c.typeCheckStream(v.Stream, scope)
		schema := v.Stream.GetSchema()
		if schema == nil {
			return
		}
		fields := make(map[string]types.Type, len(schema.Args))
		var order []string
		for _, a := range schema.OutArgs() {
			fields[a.Name] = a.Type
			order = append(order, a.Name)
		}
		scope.Add(v.Name, types.Compound(v.Name, fields, order))
		v.SetSchema(schema)

	case *ast.JoinStream:
		c.typeCheckStream(v.Stream, scope)
		leftSchema := v.Stream.GetSchema()
		if leftSchema == nil {
			return
		}
		joinScope := scope.Clone()
		joinScope.AddAll(leftSchema.Args)
		c.typeCheckTable(v.Table, joinScope)
		rightSchema := v.Table.GetSchema()
		if rightSchema == nil {
			return
		}
		bound := make(map[string]bool, len(v.InParams))
		for _, p := range v.InParams {
			arg := rightSchema.ArgByName(p.Name)
			if arg == nil || arg.Direction != ast.ArgIn {
				c.fail(typeerrors.UnknownArgument, path, "join condition references unknown input %q of %q", p.Name, rightSchema.Name)
				continue
			}
			if t := c.resolveValueType(p.Value, joinScope, path); t != nil {
				c.checkAssignable(t, arg.Type, path, fmt.Sprintf("join condition %q", p.Name))
			}
			bound[p.Name] = true
		}
		seen := make(map[string]bool, len(leftSchema.Args))
		var joined []ast.ArgumentDef
		for _, a := range leftSchema.Args {
			seen[a.Name] = true
			joined = append(joined, a)
		}
		for _, a := range rightSchema.Args {
			if a.Direction == ast.ArgIn && bound[a.Name] {
				continue
			}
			if seen[a.Name] {
				c.fail(typeerrors.DuplicateName, path, "join output column %q is ambiguous between its two sides", a.Name)
				continue
			}
			joined = append(joined, a)
		}
		v.SetSchema(&ast.FunctionDef{
			Kind: ast.FunctionStream, Name: leftSchema.Name + "+" + rightSchema.Name,
			Args: joined, IsMonitorable: leftSchema.IsMonitorable,
		})

	case *ast.VarRefStream:
		schema, ok := c.declSchemas[v.Name]
		if !ok {
			c.fail(typeerrors.UnknownKind, path, "reference to undeclared stream %q", v.Name)
			return
		}
		clone := schema.Clone()
		c.checkInputParams(clone, &v.InParams, scope, path)
		v.SetSchema(clone)

	default:
		c.fail(typeerrors.UnknownKind, path, "unrecognized stream primitive %q", s.Kind())
	}
}
