package optimizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stanford-oval/thingtalk/ast"
	"github.com/stanford-oval/thingtalk/types"
)

func eqAtom(arg, val string) *ast.AtomFilter {
	return &ast.AtomFilter{ArgName: arg, Op: ast.OpEQ, Value: &ast.StringValue{V: val}}
}

func TestOptimizeFilterDeMorgan(t *testing.T) {
	f := &ast.NotFilter{Operand: &ast.AndFilter{Operands: []ast.FilterExpression{
		eqAtom("a", "x"), eqAtom("b", "y"),
	}}}
	got := OptimizeFilter(f)
	or, ok := got.(*ast.OrFilter)
	require.True(t, ok)
	require.Len(t, or.Operands, 2)
	for _, op := range or.Operands {
		_, ok := op.(*ast.NotFilter)
		assert.True(t, ok)
	}
}

func TestOptimizeFilterConstantFoldsAnd(t *testing.T) {
	f := &ast.AndFilter{Operands: []ast.FilterExpression{
		&ast.TrueFilter{}, eqAtom("a", "x"),
	}}
	got := OptimizeFilter(f)
	atom, ok := got.(*ast.AtomFilter)
	require.True(t, ok)
	assert.Equal(t, "a", atom.ArgName)
}

func TestOptimizeFilterAndWithFalseIsFalse(t *testing.T) {
	f := &ast.AndFilter{Operands: []ast.FilterExpression{
		&ast.FalseFilter{}, eqAtom("a", "x"),
	}}
	got := OptimizeFilter(f)
	_, ok := got.(*ast.FalseFilter)
	assert.True(t, ok)
}

func TestOptimizeFilterMergesEqualityIntoInArray(t *testing.T) {
	// scenario (f): author == "bob" || author == "charlie"
	f := &ast.OrFilter{Operands: []ast.FilterExpression{
		eqAtom("author", "bob"), eqAtom("author", "charlie"),
	}}
	got := OptimizeFilter(f)
	atom, ok := got.(*ast.AtomFilter)
	require.True(t, ok)
	assert.Equal(t, ast.OpInArray, atom.Op)
	assert.Equal(t, "author", atom.ArgName)
	arr, ok := atom.Value.(*ast.ArrayValue)
	require.True(t, ok)
	require.Len(t, arr.Elements, 2)
}

func TestOptimizeFilterIdempotent(t *testing.T) {
	cases := []ast.FilterExpression{
		&ast.NotFilter{Operand: &ast.AndFilter{Operands: []ast.FilterExpression{eqAtom("a", "x"), &ast.TrueFilter{}}}},
		&ast.OrFilter{Operands: []ast.FilterExpression{eqAtom("x", "1"), eqAtom("x", "2"), eqAtom("x", "3")}},
		&ast.AndFilter{Operands: []ast.FilterExpression{
			&ast.OrFilter{Operands: []ast.FilterExpression{&ast.FalseFilter{}, eqAtom("a", "x")}},
			&ast.NotFilter{Operand: &ast.NotFilter{Operand: eqAtom("b", "y")}},
		}},
	}
	for _, f := range cases {
		once := OptimizeFilter(f)
		twice := OptimizeFilter(once)
		assert.Equal(t, once.String(), twice.String())
	}
}

func invocationWithSchema(out ...string) *ast.InvocationTable {
	inv := &ast.InvocationTable{Kind_: "com.xkcd", Channel: "get_comic"}
	var args []ast.ArgumentDef
	for _, name := range out {
		args = append(args, ast.ArgumentDef{Direction: ast.ArgOut, Name: name, Type: types.String})
	}
	inv.SetSchema(&ast.FunctionDef{Kind: ast.FunctionQuery, Name: "get_comic", Args: args})
	return inv
}

func TestOptimizeTableDropsRedundantProjection(t *testing.T) {
	inv := invocationWithSchema("title", "picture_url")
	proj := &ast.ProjectionTable{Table: inv, Args: []string{"title", "picture_url"}}
	proj.SetSchema(inv.GetSchema())

	got := OptimizeTable(proj)
	_, ok := got.(*ast.InvocationTable)
	assert.True(t, ok)
}

func TestOptimizeTableMergesNestedProjections(t *testing.T) {
	inv := invocationWithSchema("title", "picture_url", "number")
	innerProj := &ast.ProjectionTable{Table: inv, Args: []string{"title", "picture_url"}}
	innerProj.SetSchema(inv.GetSchema())
	outerProj := &ast.ProjectionTable{Table: innerProj, Args: []string{"title"}}
	outerProj.SetSchema(inv.GetSchema())

	got := OptimizeTable(outerProj)
	merged, ok := got.(*ast.ProjectionTable)
	require.True(t, ok)
	assert.Equal(t, []string{"title"}, merged.Args)
	assert.Same(t, inv, merged.Table)
}

func TestOptimizeStreamLiftsMonitorOverProjection(t *testing.T) {
	inv := invocationWithSchema("title", "picture_url")
	proj := &ast.ProjectionTable{Table: inv, Args: []string{"title"}}
	proj.SetSchema(inv.GetSchema())
	monitor := &ast.MonitorStream{Table: proj}
	monitor.SetSchema(inv.GetSchema())

	got := OptimizeStream(monitor)
	projStream, ok := got.(*ast.ProjectionStream)
	require.True(t, ok)
	assert.Equal(t, []string{"title"}, projStream.Args)
	inner, ok := projStream.Stream.(*ast.MonitorStream)
	require.True(t, ok)
	assert.Same(t, inv, inner.Table)
	assert.Equal(t, []string{"title"}, inner.ArgSet)
}
