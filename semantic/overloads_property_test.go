package semantic

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/stanford-oval/thingtalk/ast"
	"github.com/stanford-oval/thingtalk/types"
)

// numericComparisonTypes mirrors numericComparisons()'s five rows: every
// type OpGT/OpLT/OpGE/OpLE/OpEQ accept on both sides.
var numericComparisonTypes = []types.Type{
	types.Number, types.Measure("km"), types.Currency, types.Date, types.Time,
}

// comparisonOps are the operators sharing numericComparisons()'s overload
// rows; each is expected to resolve for any (t, t) pair from
// numericComparisonTypes, the reflexivity property the review
// asked this package to cover.
var comparisonOps = []ast.BinaryOp{ast.OpGT, ast.OpLT, ast.OpGE, ast.OpLE, ast.OpEQ}

// TestResolveBinaryNumericComparisonsAreReflexive checks that every
// numeric overload row accepts a type compared against itself, for every
// comparison operator that shares the row table — a regression narrowing
// numericComparisons() to fewer types, or an operator losing its row
// entirely, fails this the same way it would fail a full BinaryOps
// enumeration without hand-writing one row per (op, type) pair.
func TestResolveBinaryNumericComparisonsAreReflexive(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("op(t, t) resolves for every numeric type and comparison op", prop.ForAll(
		func(opIdx, typeIdx int) bool {
			op := comparisonOps[opIdx]
			ty := numericComparisonTypes[typeIdx]
			_, ok := resolveBinary(op, ty, ty)
			return ok
		},
		gen.IntRange(0, len(comparisonOps)-1),
		gen.IntRange(0, len(numericComparisonTypes)-1),
	))

	properties.TestingRun(t)
}

// TestResolveScalarBinaryAddSubAgree checks OpAdd and OpSub's shared
// operand-type rows resolve to the same result type for any of the pairs
// both operators accept — the two tables are kept in lockstep by hand in
// scalarOverloads, so a property over every shared row catches one
// falling out of sync with the other the way a single example wouldn't.
func TestResolveScalarBinaryAddSubAgree(t *testing.T) {
	pairs := []struct{ left, right types.Type }{
		{types.Number, types.Number},
		{types.Measure("ms"), types.Measure("ms")},
		{types.Currency, types.Currency},
		{types.Date, types.Measure("ms")},
		{types.Time, types.Measure("ms")},
	}

	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("Add and Sub agree on result type for every shared row", prop.ForAll(
		func(idx int) bool {
			p := pairs[idx]
			addResult, addOk := resolveScalarBinary(ast.OpAdd, p.left, p.right)
			subResult, subOk := resolveScalarBinary(ast.OpSub, p.left, p.right)
			if !addOk || !subOk {
				return false
			}
			return addResult.Equals(subResult)
		},
		gen.IntRange(0, len(pairs)-1),
	))

	properties.TestingRun(t)
}
