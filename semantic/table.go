package semantic

import (
	"fmt"

	"github.com/stanford-oval/thingtalk/ast"
	"github.com/stanford-oval/thingtalk/typeerrors"
	"github.com/stanford-oval/thingtalk/types"
)

// typeCheckTable resolves t's Schema slot (and every descendant's), per
// §4.4's table-primitive invariants. scope carries the lexical bindings
// visible to t's InParams/filters (the enclosing rule's parameters plus, for
// the right-hand side of a join, the left-hand side's output columns).
func (c *checker) typeCheckTable(t ast.Table, scope *ast.Scope) {
	path := t.Kind()
	switch v := t.(type) {
	case *ast.InvocationTable:
		fn, err := c.a.retriever.GetSchemaAndNames(c.ctx, v.Kind_, ast.FunctionQuery, v.Channel)
		if err != nil {
			c.fail(typeerrors.UnknownFunction, path, "%v", err)
			return
		}
		fnClone := fn.Clone()
		v.SetSchema(fnClone)
		if v.Principal != nil {
			c.checkPrincipal(v.Principal)
		}
		c.checkInputParams(fnClone, &v.InParams, scope, path+"."+v.Channel)

	case *ast.FilterTable:
		c.typeCheckTable(v.Table, scope)
		schema := v.Table.GetSchema()
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

	case *ast.ProjectionTable:
		c.typeCheckTable(v.Table, scope)
		schema := v.Table.GetSchema()
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

	case *ast.ComputeTable:
		c.typeCheckTable(v.Table, scope)
		schema := v.Table.GetSchema()
		if schema == nil {
			return
		}
		localScope := scope.Push()
		localScope.AddAll(schema.Args)
		resultType := c.typeCheckScalarExpression(v.Expr, localScope, path)
		if resultType == nil {
			return
		}
		if schema.ArgByName(v.Alias) != nil {
			c.fail(typeerrors.DuplicateName, path, "compute alias %q collides with an existing column", v.Alias)
		}
		computed := schema.Clone()
		computed.Args = append(computed.Args, ast.ArgumentDef{Direction: ast.ArgOut, Name: v.Alias, Type: resultType})
		v.SetSchema(computed)

	case *ast.AggregationTable:
		c.typeCheckTable(v.Table, scope)
		schema := v.Table.GetSchema()
		if schema == nil {
			return
		}
		var fieldType types.Type
		if v.Field == "*" {
			if v.Op != ast.OpCount {
				c.fail(typeerrors.InvalidOperator, path, "only count supports the * field")
				return
			}
			fieldType = types.Number
		} else {
			arg := schema.ArgByName(v.Field)
			if arg == nil || arg.Direction != ast.ArgOut {
				c.fail(typeerrors.UnknownArgument, path, "aggregation references unknown column %q", v.Field)
				return
			}
			fieldType = arg.Type
		}
		resultType, ok := aggregationResultType(v.Op, fieldType)
		if !ok {
			c.fail(typeerrors.InvalidOperator, path, "%s is not defined over %s", v.Op, fieldType.String())
			return
		}
		result := &ast.FunctionDef{
			Kind: ast.FunctionQuery, Name: schema.Name, IsList: false,
			Args: []ast.ArgumentDef{{Direction: ast.ArgOut, Name: v.ResultName(), Type: resultType}},
		}
		v.SetSchema(result)

	case *ast.SortTable:
		c.typeCheckTable(v.Table, scope)
		schema := v.Table.GetSchema()
		if schema == nil {
			return
		}
		arg := schema.ArgByName(v.Field)
		if arg == nil || arg.Direction != ast.ArgOut {
			c.fail(typeerrors.UnknownArgument, path, "sort references unknown column %q", v.Field)
			return
		}
		if !isSortable(arg.Type) {
			c.fail(typeerrors.TypeMismatch, path, "column %q of type %s is not sortable", v.Field, arg.Type.String())
			return
		}
		v.SetSchema(schema)

	case *ast.IndexTable:
		c.typeCheckTable(v.Table, scope)
		schema := v.Table.GetSchema()
		if schema == nil {
			return
		}
		for i, idx := range v.Indices {
			t := c.resolveValueType(idx, scope, path)
			if t == nil {
				continue
			}
			if len(v.Indices) == 1 {
				if !isIndexType(t) {
					c.fail(typeerrors.TypeMismatch, path, "index value must be Number or Array(Number), got %s", t.String())
				}
				continue
			}
			if !t.Equals(types.Number) {
				c.fail(typeerrors.TypeMismatch, path, "index %d must be Number, got %s", i, t.String())
			}
		}
		result := schema
		if len(v.Indices) == 1 {
			if single := c.resolveValueType(v.Indices[0], scope, path); single != nil && single.Equals(types.Number) {
				result = schema.Clone()
				result.IsList = false
			}
		}
		v.SetSchema(result)

	case *ast.SliceTable:
		c.typeCheckTable(v.Table, scope)
		schema := v.Table.GetSchema()
		if schema == nil {
			return
		}
		if t := c.resolveValueType(v.Base, scope, path); t != nil && !t.Equals(types.Number) {
			c.fail(typeerrors.TypeMismatch, path, "slice base must be Number, got %s", t.String())
		}
		if t := c.resolveValueType(v.Limit, scope, path); t != nil && !t.Equals(types.Number) {
			c.fail(typeerrors.TypeMismatch, path, "slice limit must be Number, got %s", t.String())
		}
		v.SetSchema(schema)

	case *ast.JoinTable:
		c.typeCheckTable(v.Left, scope)
		leftSchema := v.Left.GetSchema()
		if leftSchema == nil {
			return
		}
		joinScope := scope.Clone()
		joinScope.AddAll(leftSchema.Args)
		c.typeCheckTable(v.Right, joinScope)
		rightSchema := v.Right.GetSchema()
		if rightSchema == nil {
			return
		}
		// the join's own InParams bind left-hand columns onto the
		// right-hand side's declared "in" arguments (e.g. `on (text=title)`);
		// validate them against rightSchema the same way an ordinary
		// invocation's InParams are validated, without auto-filling
		// unmentioned required args (those remain the right-hand table's
		// own responsibility).
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
			// an "in" argument already supplied by the join's own
			// InParams is consumed by the join, not a remaining open
			// column of the joined signature.
			if a.Direction == ast.ArgIn && bound[a.Name] {
				continue
			}
			if seen[a.Name] {
				c.fail(typeerrors.DuplicateName, path, "join output column %q is ambiguous between its two sides", a.Name)
				continue
			}
			joined = append(joined, a)
		}
		// A join is monitorable only when both sides are: a change on
		// either side changes the joined tuple, so missing either
		// side's change notification would silently drop updates.
		var defaultProjection []string
		if leftSchema.DefaultProjection != nil && rightSchema.DefaultProjection != nil {
			defaultProjection = append(append([]string(nil), leftSchema.DefaultProjection...), rightSchema.DefaultProjection...)
		}
		v.SetSchema(&ast.FunctionDef{
			Kind: ast.FunctionQuery, Name: leftSchema.Name + "+" + rightSchema.Name,
			Args:              joined,
			IsList:            leftSchema.IsList || rightSchema.IsList,
			IsMonitorable:     leftSchema.IsMonitorable && rightSchema.IsMonitorable,
			RequireFilter:     leftSchema.RequireFilter || rightSchema.RequireFilter,
			DefaultProjection: defaultProjection,
		})

	case *ast.HistoryTable:
		c.typeCheckTable(v.Table, scope)
		schema := v.Table.GetSchema()
		if schema == nil {
			return
		}
		var wantBase, wantDelta types.Type
		switch v.HistKind {
		case ast.HistoryWindow, ast.HistorySequence:
			wantBase, wantDelta = types.Number, types.Number
		case ast.HistoryTimeSeries, ast.HistoryHistory:
			wantBase, wantDelta = types.Date, types.Measure("ms")
		}
		if t := c.resolveValueType(v.Base, scope, path); t != nil {
			c.checkAssignable(t, wantBase, path, "history base")
		}
		if t := c.resolveValueType(v.Delta, scope, path); t != nil {
			c.checkAssignable(t, wantDelta, path, "history delta")
		}
		v.SetSchema(schema)

	case *ast.ResultRefTable:
		fn, err := c.a.retriever.GetSchemaAndNames(c.ctx, v.Kind_, ast.FunctionQuery, v.Channel)
		if err != nil {
			c.fail(typeerrors.UnknownFunction, path, "%v", err)
			return
		}
		if t := c.resolveValueType(v.Index, scope, path); t != nil && !t.Equals(types.Number) {
			c.fail(typeerrors.TypeMismatch, path, "result index must be Number, got %s", t.String())
		}
		result := fn.Clone()
		result.IsList = false
		v.SetSchema(result)

	case *ast.VarRefTable:
		schema, ok := c.declSchemas[v.Name]
		if !ok {
			c.fail(typeerrors.UnknownKind, path, "reference to undeclared table %q", v.Name)
			return
		}
		clone := schema.Clone()
		c.checkInputParams(clone, &v.InParams, scope, path)
		v.SetSchema(clone)

	default:
		c.fail(typeerrors.UnknownKind, path, "unrecognized table primitive %q", fmt.Sprintf("%T", t))
	}
}
