package semantic

import (
	"fmt"

	"github.com/stanford-oval/thingtalk/ast"
	"github.com/stanford-oval/thingtalk/types"
	"github.com/stanford-oval/thingtalk/typeerrors"
)

// checkInputParams validates InParams against fn's declared "in" arguments:
// rejects unknown/duplicate parameter names, resolves each value's type
// (threading VarRef lookups through scope), checks assignability per the
// Analyzer's Mode, and appends an Undefined(local=true) placeholder for
// every declared required "in" argument the caller left unmentioned, per
// §4.4's auto-fill rule. params is a pointer so the auto-fill can grow the
// slice in place.
func (c *checker) checkInputParams(fn *ast.FunctionDef, params *[]ast.InputParam, scope *ast.Scope, path string) {
	seen := make(map[string]bool, len(*params))
	for _, p := range *params {
		if seen[p.Name] {
			c.fail(typeerrors.DuplicateName, path, "duplicate input parameter %q", p.Name)
			continue
		}
		seen[p.Name] = true

		arg := fn.ArgByName(p.Name)
		if arg == nil || arg.Direction != ast.ArgIn {
			c.fail(typeerrors.UnknownArgument, path, "%q has no input parameter %q", fn.Name, p.Name)
			continue
		}
		valType := c.resolveValueType(p.Value, scope, path)
		if valType == nil {
			continue
		}
		c.checkAssignable(valType, arg.Type, path, fmt.Sprintf("input parameter %q", p.Name))
	}

	for _, arg := range fn.InArgs() {
		if !arg.Required || seen[arg.Name] {
			continue
		}
		*params = append(*params, ast.InputParam{Name: arg.Name, Value: &ast.UndefinedValue{IsLocal: true}})
	}
}

// checkAssignable enforces the Analyzer's Mode on a single value/declared
// argument pair, resolving any _unit/_entity polymorphic holes and
// reporting a TypeMismatch otherwise.
func (c *checker) checkAssignable(from, to types.Type, path, what string) {
	if c.a.mode == Lenient {
		if from.Equals(types.Any) {
			return
		}
	}
	scope := types.NewScope()
	if !types.IsAssignable(from, to, scope, c.a.entitySubs) {
		c.fail(typeerrors.TypeMismatch, path, "%s has type %s, expected %s", what, from.String(), to.String())
	}
}

// resolveValueType computes the type of an ast.Value in context, resolving
// VarRefValue against scope and $event.* against scope.HasEvent. It reports
// a type error and returns nil for a VarRefValue naming nothing in scope
// under Strict mode (Lenient returns Any for it instead), for $event where
// the scope has no event, and for a computation that fails to type-check;
// every concrete literal and UndefinedValue always resolves (to Any for the
// latter).
func (c *checker) resolveValueType(v ast.Value, scope *ast.Scope, path string) types.Type {
	switch val := v.(type) {
	case *ast.VarRefValue:
		if t, ok := scope.Get(val.Name); ok {
			val.Resolved = t
			return t
		}
		if c.a.mode == Lenient {
			return types.Any
		}
		c.fail(typeerrors.UnknownArgument, path, "reference to undeclared name %q", val.Name)
		return nil
	case *ast.EventValue:
		if !scope.HasEvent() {
			c.fail(typeerrors.InvalidArgument, path, "$event is not available in this position")
			return nil
		}
		return val.Type()
	case *ast.ComputationValue:
		t := c.resolveComputation(val, scope, path)
		val.Resolved = t
		return t
	default:
		return v.Type()
	}
}

func (c *checker) resolveComputation(v *ast.ComputationValue, scope *ast.Scope, path string) types.Type {
	if v.Op == ast.OpCount || v.Op == ast.OpSum || v.Op == ast.OpMax || v.Op == ast.OpMin || v.Op == ast.OpAvg {
		if len(v.Operands) != 1 {
			c.fail(typeerrors.InvalidOperator, path, "%s takes exactly one array operand", v.Op)
			return nil
		}
		arrT := c.resolveValueType(v.Operands[0], scope, path)
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
		return result
	}
	if len(v.Operands) != 2 {
		c.fail(typeerrors.InvalidOperator, path, "%s takes exactly two operands", v.Op)
		return nil
	}
	left := c.resolveValueType(v.Operands[0], scope, path)
	right := c.resolveValueType(v.Operands[1], scope, path)
	if left == nil || right == nil {
		return nil
	}
	result, ok := resolveScalarBinary(v.Op, left, right)
	if !ok {
		c.fail(typeerrors.InvalidOperator, path, "%s is not defined over (%s, %s)", v.Op, left.String(), right.String())
		return nil
	}
	return result
}
