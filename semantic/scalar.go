package semantic

import (
	"github.com/stanford-oval/thingtalk/ast"
	"github.com/stanford-oval/thingtalk/typeerrors"
	"github.com/stanford-oval/thingtalk/types"
)

// typeCheckScalarExpression resolves and records the type of a compute
// expression node (PrimaryExpr/DerivedExpr/BooleanExpr), recursing into
// operands and nested filters. scope must already carry the enclosing
// primitive's out-arguments as locals.
func (c *checker) typeCheckScalarExpression(e ast.ScalarExpression, scope *ast.Scope, path string) types.Type {
	switch v := e.(type) {
	case *ast.PrimaryExpr:
		t := c.resolveValueType(v.Value, scope, path)
		return t

	case *ast.BooleanExpr:
		// The enclosing filter's own schema is not separately threaded
		// here; a BooleanExpr's Filter refers to names already bound in
		// scope, so its enclosing primitive's schema is recovered by the
		// caller via scope, not re-fetched.
		c.typeCheckFilterAgainstScope(v.Filter, scope, path)
		v.SetResolved(types.Boolean)
		return types.Boolean

	case *ast.DerivedExpr:
		if v.Op == ast.OpCount || v.Op == ast.OpSum || v.Op == ast.OpMax || v.Op == ast.OpMin || v.Op == ast.OpAvg {
			if len(v.Operands) != 1 {
				c.fail(typeerrors.InvalidOperator, path, "%s takes exactly one array operand", v.Op)
				return nil
			}
			arrT := c.typeCheckScalarExpression(v.Operands[0], scope, path)
			if arrT == nil {
				return nil
			}
			arr, ok := arrT.(*types.ArrayType)
			if !ok {
				c.fail(typeerrors.InvalidOperator, path, "%s requires an array operand, got %s", v.Op, arrT.String())
				return nil
			}
			result, ok2 := aggregationResultType(v.Op, arr.Elem)
			if !ok2 {
				c.fail(typeerrors.InvalidOperator, path, "%s is not defined over %s", v.Op, arr.Elem.String())
				return nil
			}
			v.SetResolved(result)
			return result
		}
		if len(v.Operands) != 2 {
			c.fail(typeerrors.InvalidOperator, path, "%s takes exactly two operands", v.Op)
			return nil
		}
		left := c.typeCheckScalarExpression(v.Operands[0], scope, path)
		right := c.typeCheckScalarExpression(v.Operands[1], scope, path)
		if left == nil || right == nil {
			return nil
		}
		result, ok := resolveScalarBinary(v.Op, left, right)
		if !ok {
			c.fail(typeerrors.InvalidOperator, path, "%s is not defined over (%s, %s)", v.Op, left.String(), right.String())
			return nil
		}
		v.SetResolved(result)
		return result

	default:
		c.fail(typeerrors.UnknownKind, path, "unrecognized scalar expression %q", e.Kind())
		return nil
	}
}

// typeCheckFilterAgainstScope type-checks a BooleanExpr's embedded filter
// using only the names already bound in scope, for the case where the
// filter's columns are identical to the enclosing compute expression's
// scope rather than a separate schema fetch. It builds a synthetic
// FunctionDef exposing scope's current-frame names as out-arguments so
// typeCheckFilter's ArgByName lookups resolve the same way.
func (c *checker) typeCheckFilterAgainstScope(f ast.FilterExpression, scope *ast.Scope, path string) {
	synthetic := &ast.FunctionDef{Kind: ast.FunctionQuery, Name: "$scope"}
	for _, name := range scope.Names() {
		t, _ := scope.Get(name)
		synthetic.Args = append(synthetic.Args, ast.ArgumentDef{Direction: ast.ArgOut, Name: name, Type: t})
	}
	c.typeCheckFilter(f, synthetic, scope, path)
}
