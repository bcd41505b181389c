package semantic

import (
	"github.com/stanford-oval/thingtalk/ast"
	"github.com/stanford-oval/thingtalk/types"
)

// overload is one row of a BinaryOps/ScalarExpressionOps table entry: the
// operand type templates (possibly containing type variables bound during
// resolution) and the result type template.
type overload struct {
	Left, Right, Result types.Type
}

// binaryOverloads enumerates every accepted (argType, valueType) pairing for
// each ast.BinaryOp filter-atom operator. Equality is generic over a single
// type variable so that e.g. Measure(km) == Measure(km) and Date == Date
// both resolve through the same row; the ordering comparisons share the
// concrete rows of numericComparisons().
var binaryOverloads = map[ast.BinaryOp][]overload{
	ast.OpEQ: {
		{types.Var("a"), types.Var("a"), types.Boolean},
	},
	ast.OpGT: numericComparisons(),
	ast.OpLT: numericComparisons(),
	ast.OpGE: numericComparisons(),
	ast.OpLE: numericComparisons(),

	ast.OpLikeFwd: {{types.String, types.String, types.Boolean}},
	ast.OpLikeRev: {{types.String, types.String, types.Boolean}},

	ast.OpStartsWith: {{types.String, types.String, types.Boolean}},
	ast.OpEndsWith:   {{types.String, types.String, types.Boolean}},
	ast.OpPrefixOf:   {{types.String, types.String, types.Boolean}},
	ast.OpSuffixOf:   {{types.String, types.String, types.Boolean}},

	ast.OpContains: {{types.Array(types.Var("a")), types.Var("a"), types.Boolean}},
	ast.OpInArray:  {{types.Var("a"), types.Array(types.Var("a")), types.Boolean}},

	// The "fuzzy" quantifier variants always compare textual content; per
	// the explicit quantifier-semantics reading of the operator table
	// (recorded in the decision log), "X~Y" keeps the same argument order
	// as its non-fuzzy counterpart and only relaxes the match to a
	// substring/edit-distance test performed by the host at runtime.
	ast.OpContainsFuz: {{types.Array(types.String), types.String, types.Boolean}},
	ast.OpInArrayFuz:  {{types.String, types.Array(types.String), types.Boolean}},
	ast.OpFuzContains: {{types.Array(types.String), types.String, types.Boolean}},
	ast.OpFuzInArray:  {{types.String, types.Array(types.String), types.Boolean}},

	ast.OpHasMember:   {{types.Entity("tt:contact_group"), types.Entity("tt:contact"), types.Boolean}},
	ast.OpGroupMember: {{types.Entity("tt:contact"), types.Entity("tt:contact_group"), types.Boolean}},
}

func numericComparisons() []overload {
	return []overload{
		{types.Number, types.Number, types.Boolean},
		{types.Measure(""), types.Measure(""), types.Boolean},
		{types.Currency, types.Currency, types.Boolean},
		{types.Date, types.Date, types.Boolean},
		{types.Time, types.Time, types.Boolean},
	}
}

// scalarOverloads enumerates the accepted operand-type combinations for each
// ast.ComputationOp used in a DerivedExpr/ComputationValue. Arithmetic
// operators are binary (Operands has length 2); aggregation operators
// (max/min/sum/avg/count) take a single Array(a) operand.
var scalarOverloads = map[ast.ComputationOp][]overload{
	ast.OpAdd: {
		{types.Number, types.Number, types.Number},
		{types.Measure(""), types.Measure(""), types.Measure("")},
		{types.Currency, types.Currency, types.Currency},
		// Date +/- Measure(ms) -> Date, and Time +/- Measure(ms) -> Time,
		// per the explicit arithmetic-on-temporal-values rows.
		{types.Date, types.Measure("ms"), types.Date},
		{types.Time, types.Measure("ms"), types.Time},
	},
	ast.OpSub: {
		{types.Number, types.Number, types.Number},
		{types.Measure(""), types.Measure(""), types.Measure("")},
		{types.Currency, types.Currency, types.Currency},
		{types.Date, types.Measure("ms"), types.Date},
		{types.Time, types.Measure("ms"), types.Time},
	},
	ast.OpMul: {
		{types.Number, types.Number, types.Number},
		{types.Measure(""), types.Number, types.Measure("")},
	},
	ast.OpDiv: {
		{types.Number, types.Number, types.Number},
		{types.Measure(""), types.Number, types.Measure("")},
	},
	ast.OpMod: {
		{types.Number, types.Number, types.Number},
	},
	ast.OpPow: {
		{types.Number, types.Number, types.Number},
	},
	ast.OpDistance: {
		{types.Location, types.Location, types.Measure("m")},
	},
}

// resolveBinary finds the first overload row whose Left/Right templates unify
// with argType/valueType, binding type variables into a fresh scope. It
// returns the matched row index (stable across re-analysis of the same
// AtomFilter/ComputeFilter since the table order never changes) or -1.
func resolveBinary(op ast.BinaryOp, argType, valueType types.Type) (idx int, ok bool) {
	rows := binaryOverloads[op]
	for i, row := range rows {
		scope := types.NewScope()
		if types.IsAssignable(argType, row.Left, scope, nil) && types.IsAssignable(valueType, row.Right, scope, nil) {
			return i, true
		}
	}
	return -1, false
}

// resolveScalarBinary finds the first arithmetic overload matching a
// two-operand DerivedExpr/ComputationValue, returning the resolved result
// type with any bound polymorphic unit/entity substituted in.
func resolveScalarBinary(op ast.ComputationOp, left, right types.Type) (types.Type, bool) {
	for _, row := range scalarOverloads[op] {
		scope := types.NewScope()
		if types.IsAssignable(left, row.Left, scope, nil) && types.IsAssignable(right, row.Right, scope, nil) {
			return types.Resolve(row.Result, scope), true
		}
	}
	return nil, false
}

// aggregationResultType computes the result type of an aggregation operator
// (max/min/sum/avg/count) applied to a field of type fieldType, per the
// count(*) special case (which ignores fieldType and always yields Number).
func aggregationResultType(op ast.ComputationOp, fieldType types.Type) (types.Type, bool) {
	if op == ast.OpCount {
		return types.Number, true
	}
	switch op {
	case ast.OpSum, ast.OpMax, ast.OpMin:
		switch fieldType.(type) {
		case *types.MeasureType:
			return fieldType, true
		}
		if fieldType.Equals(types.Number) || fieldType.Equals(types.Currency) {
			return fieldType, true
		}
		return nil, false
	case ast.OpAvg:
		switch fieldType.(type) {
		case *types.MeasureType:
			return fieldType, true
		}
		if fieldType.Equals(types.Number) {
			return types.Number, true
		}
		return nil, false
	}
	return nil, false
}

// isSortable reports whether t can be used as a SortTable field; per §4.4,
// sort requires a strictly ordered primitive or measure type.
func isSortable(t types.Type) bool {
	switch t.(type) {
	case *types.MeasureType:
		return true
	}
	switch {
	case t.Equals(types.Number), t.Equals(types.Currency), t.Equals(types.Date), t.Equals(types.Time), t.Equals(types.String):
		return true
	}
	return false
}

// isIndexType reports whether t is an acceptable IndexTable index value
// type: Number (single 1-based index) or Array(Number) (several indices).
func isIndexType(t types.Type) bool {
	if t.Equals(types.Number) {
		return true
	}
	if arr, ok := t.(*types.ArrayType); ok {
		return arr.Elem.Equals(types.Number)
	}
	return false
}
