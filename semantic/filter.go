package semantic

import (
	"github.com/stanford-oval/thingtalk/ast"
	"github.com/stanford-oval/thingtalk/typeerrors"
)

// typeCheckFilter resolves every AtomFilter/ComputeFilter overload within f
// and recursively type-checks ExternalFilter sub-queries. fn is the
// enclosing primitive's schema (the source of AtomFilter.ArgName's
// declared type); scope carries fn's out-arguments plus any outer lexical
// bindings (already pushed by the caller).
func (c *checker) typeCheckFilter(f ast.FilterExpression, fn *ast.FunctionDef, scope *ast.Scope, path string) {
	switch v := f.(type) {
	case *ast.TrueFilter, *ast.FalseFilter:
		// no-op

	case *ast.AndFilter:
		for _, o := range v.Operands {
			c.typeCheckFilter(o, fn, scope, path)
		}
	case *ast.OrFilter:
		for _, o := range v.Operands {
			c.typeCheckFilter(o, fn, scope, path)
		}
	case *ast.NotFilter:
		c.typeCheckFilter(v.Operand, fn, scope, path)

	case *ast.AtomFilter:
		arg := fn.ArgByName(v.ArgName)
		if arg == nil {
			c.fail(typeerrors.UnknownArgument, path, "filter references unknown column %q", v.ArgName)
			return
		}
		valType := c.resolveValueType(v.Value, scope, path)
		if valType == nil {
			return
		}
		idx, ok := resolveBinary(v.Op, arg.Type, valType)
		if !ok {
			c.fail(typeerrors.InvalidOperator, path, "operator %s is not defined over (%s, %s)", v.Op, arg.Type.String(), valType.String())
			return
		}
		v.OverloadIdx = idx

	case *ast.ComputeFilter:
		exprType := c.typeCheckScalarExpression(v.Expr, scope, path)
		if exprType == nil {
			return
		}
		valType := c.resolveValueType(v.Value, scope, path)
		if valType == nil {
			return
		}
		idx, ok := resolveBinary(v.Op, exprType, valType)
		if !ok {
			c.fail(typeerrors.InvalidOperator, path, "operator %s is not defined over (%s, %s)", v.Op, exprType.String(), valType.String())
			return
		}
		v.OverloadIdx = idx

	case *ast.ExternalFilter:
		schema, err := c.a.retriever.GetSchemaAndNames(c.ctx, v.Kind_, ast.FunctionQuery, v.Channel)
		if err != nil {
			c.fail(typeerrors.UnknownFunction, path, "%v", err)
			return
		}
		schemaClone := schema.Clone()
		v.Schema = schemaClone
		c.checkInputParams(schemaClone, &v.InParams, scope, path+"."+v.Channel)

		innerScope := ast.NewScope()
		innerScope.AddAll(schemaClone.Args)
		c.typeCheckFilter(v.Filter, schemaClone, innerScope, path+"."+v.Channel)

	default:
		c.fail(typeerrors.UnknownKind, path, "unrecognized filter primitive %q", f.Kind())
	}
}
