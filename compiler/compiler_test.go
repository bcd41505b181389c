package compiler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stanford-oval/thingtalk/ast"
	"github.com/stanford-oval/thingtalk/compileerrors"
	"github.com/stanford-oval/thingtalk/types"
)

func invocationWithSchema(kind, channel string, out ...string) *ast.InvocationTable {
	inv := &ast.InvocationTable{Kind_: kind, Channel: channel}
	var args []ast.ArgumentDef
	for _, name := range out {
		args = append(args, ast.ArgumentDef{Direction: ast.ArgOut, Name: name, Type: types.String})
	}
	inv.SetSchema(&ast.FunctionDef{Kind: ast.FunctionQuery, Name: channel, Args: args})
	return inv
}

func programWith(rule *ast.Rule) *ast.Program {
	return &ast.Program{Rules: []*ast.Rule{rule}}
}

func TestCompileOneShotTableRule(t *testing.T) {
	inv := invocationWithSchema("com.xkcd", "get_comic", "title")
	rule := &ast.Rule{
		Table:   inv,
		Actions: []ast.Action{&ast.NotifyAction{}},
	}

	c := New()
	rules, err := c.CompileProgram(context.Background(), programWith(rule))
	require.NoError(t, err)
	require.Len(t, rules, 1)

	cr := rules[0]
	require.Len(t, cr.Functions, 1)
	assert.Equal(t, "com.xkcd", cr.Functions[0].Kind)
	assert.Equal(t, "get_comic", cr.Functions[0].Channel)
	assert.Equal(t, EndpointQuery, cr.Functions[0].Type)

	require.Len(t, cr.Main, 2)
	_, ok := cr.Main[0].(InvokeQueryInstr)
	require.True(t, ok)
}

func TestCompileTableRuleEmitsIterateThenOutput(t *testing.T) {
	inv := invocationWithSchema("com.xkcd", "get_comic", "title")
	rule := &ast.Rule{
		Table:   inv,
		Actions: []ast.Action{&ast.NotifyAction{}},
	}

	c := New()
	rules, err := c.CompileProgram(context.Background(), programWith(rule))
	require.NoError(t, err)
	cr := rules[0]

	require.Len(t, cr.Main, 2)
	_, ok := cr.Main[0].(InvokeQueryInstr)
	require.True(t, ok)
	iter, ok := cr.Main[1].(IterateInstr)
	require.True(t, ok)
	require.Len(t, iter.Body, 1)
	out, ok := iter.Body[0].(OutputInstr)
	require.True(t, ok)
	assert.Equal(t, "com.xkcd.get_comic", out.OutputType)
	assert.Equal(t, []string{"title"}, out.Record)
}

func TestCompileMonitorRuleLoopsOnNextAndDedups(t *testing.T) {
	inv := invocationWithSchema("com.thermostat", "get_temperature", "value")
	rule := &ast.Rule{
		Stream: &ast.MonitorStream{Table: inv},
		Actions: []ast.Action{
			&ast.InvocationAction{Kind_: "com.light", Channel: "set_power"},
		},
	}

	c := New()
	rules, err := c.CompileProgram(context.Background(), programWith(rule))
	require.NoError(t, err)
	cr := rules[0]

	require.Len(t, cr.Main, 2)
	_, ok := cr.Main[0].(OpenMonitorInstr)
	require.True(t, ok)
	next, ok := cr.Main[1].(NextInstr)
	require.True(t, ok)
	require.Len(t, next.Body, 2)
	load, ok := next.Body[0].(LoadStateInstr)
	require.True(t, ok)
	assert.Equal(t, StateDedup, load.Kind)

	require.Len(t, cr.Functions, 2)
	assert.Equal(t, EndpointQuery, cr.Functions[0].Type)
	assert.Equal(t, EndpointAction, cr.Functions[1].Type)
	assert.EqualValues(t, 1, cr.States)
}

func TestCompileMonitorWithFilterLiftsEdgeFilter(t *testing.T) {
	inv := invocationWithSchema("com.thermostat", "get_temperature", "value")
	filtered := &ast.FilterTable{
		Table:  inv,
		Filter: &ast.AtomFilter{ArgName: "value", Op: ast.OpGT, Value: &ast.NumberValue{V: 70}},
	}
	rule := &ast.Rule{
		Stream:  &ast.MonitorStream{Table: filtered},
		Actions: []ast.Action{&ast.NotifyAction{}},
	}

	c := New()
	rules, err := c.CompileProgram(context.Background(), programWith(rule))
	require.NoError(t, err)
	cr := rules[0]
	assert.EqualValues(t, 2, cr.States) // one dedup cell, one edge-filter cell

	require.Len(t, cr.Main, 2)
	next, ok := cr.Main[1].(NextInstr)
	require.True(t, ok)
	_, ok = next.Body[0].(LoadStateInstr)
	require.True(t, ok)
}

func TestCompileTimerRuleOpensTimerAndRegistersEndpoint(t *testing.T) {
	rule := &ast.Rule{
		Stream:  &ast.TimerStream{Interval: &ast.NumberValue{V: 60000}},
		Actions: []ast.Action{&ast.NotifyAction{}},
	}

	c := New()
	rules, err := c.CompileProgram(context.Background(), programWith(rule))
	require.NoError(t, err)
	cr := rules[0]

	require.Len(t, cr.Main, 2)
	_, ok := cr.Main[0].(OpenTimerInstr)
	require.True(t, ok)
	_, ok = cr.Main[1].(NextInstr)
	require.True(t, ok)
	require.Len(t, cr.Functions, 1)
	assert.Equal(t, EndpointTimer, cr.Functions[0].Type)
}

func TestCompileStreamJoinTableSchedulesIterateInsideNext(t *testing.T) {
	lhs := invocationWithSchema("com.thermostat", "get_temperature", "value")
	rhs := invocationWithSchema("com.weather", "current", "condition")
	rule := &ast.Rule{
		Stream: &ast.JoinStream{
			Stream: &ast.MonitorStream{Table: lhs},
			Table:  rhs,
		},
		Actions: []ast.Action{&ast.NotifyAction{}},
	}

	c := New()
	rules, err := c.CompileProgram(context.Background(), programWith(rule))
	require.NoError(t, err)
	cr := rules[0]

	require.Len(t, cr.Functions, 2)
	foundIterate := false
	var walk func(is []Instruction)
	walk = func(is []Instruction) {
		for _, i := range is {
			switch v := i.(type) {
			case NextInstr:
				walk(v.Body)
			case StoreStateInstr:
				walk(v.Body)
			case IterateInstr:
				foundIterate = true
				walk(v.Body)
			}
		}
	}
	walk(cr.Main)
	assert.True(t, foundIterate)
}

func TestCompileTableJoinNestedLoop(t *testing.T) {
	left := invocationWithSchema("com.xkcd", "get_comic", "title")
	right := invocationWithSchema("com.translate", "translate", "translated")
	rule := &ast.Rule{
		Table:   &ast.JoinTable{Left: left, Right: right},
		Actions: []ast.Action{&ast.NotifyAction{}},
	}

	c := New()
	rules, err := c.CompileProgram(context.Background(), programWith(rule))
	require.NoError(t, err)
	cr := rules[0]

	require.Len(t, cr.Functions, 2)
	require.Len(t, cr.Main, 2) // left InvokeQuery, outer Iterate
	outerIter, ok := cr.Main[1].(IterateInstr)
	require.True(t, ok)
	require.Len(t, outerIter.Body, 2) // right InvokeQuery, inner Iterate
	_, ok = outerIter.Body[0].(InvokeQueryInstr)
	require.True(t, ok)
	innerIter, ok := outerIter.Body[1].(IterateInstr)
	require.True(t, ok)
	require.Len(t, innerIter.Body, 1)
	_, ok = innerIter.Body[0].(OutputInstr)
	assert.True(t, ok)
}

func TestCompileRejectsJoinNestedOnRight(t *testing.T) {
	a := invocationWithSchema("com.a", "x")
	b := invocationWithSchema("com.b", "y")
	c2 := invocationWithSchema("com.c", "z")
	rule := &ast.Rule{
		Table: &ast.JoinTable{
			Left:  a,
			Right: &ast.JoinTable{Left: b, Right: c2},
		},
		Actions: []ast.Action{&ast.NotifyAction{}},
	}

	c := New()
	_, err := c.CompileProgram(context.Background(), programWith(rule))
	require.Error(t, err)
	var ce *compileerrors.CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, compileerrors.AmbiguousJoin, ce.Kind)
}

func TestCompileRejectsUnresolvedVarRefAction(t *testing.T) {
	inv := invocationWithSchema("com.xkcd", "get_comic", "title")
	rule := &ast.Rule{
		Table:   inv,
		Actions: []ast.Action{&ast.VarRefAction{Name: "undeclared"}},
	}

	c := New()
	_, err := c.CompileProgram(context.Background(), programWith(rule))
	require.Error(t, err)
	var ce *compileerrors.CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, compileerrors.UnboundVarRef, ce.Kind)
}

func TestCompileRejectsUnsupportedTableKind(t *testing.T) {
	rule := &ast.Rule{
		Table:   unsupportedTable{},
		Actions: []ast.Action{&ast.NotifyAction{}},
	}

	c := New()
	_, err := c.CompileProgram(context.Background(), programWith(rule))
	require.Error(t, err)
	var ce *compileerrors.CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, compileerrors.UnsupportedConstruct, ce.Kind)
}

// unsupportedTable is a Table variant the compiler has no lowering for,
// used only to exercise the default branch's error path.
type unsupportedTable struct{}

func (unsupportedTable) Kind() string               { return "exotic" }
func (unsupportedTable) Clone() ast.Table            { return unsupportedTable{} }
func (unsupportedTable) String() string              { return "exotic" }
func (unsupportedTable) GetSchema() *ast.FunctionDef { return nil }
func (unsupportedTable) SetSchema(*ast.FunctionDef)  {}

func TestInlineProgramExpandsVarRefTable(t *testing.T) {
	inv := invocationWithSchema("com.xkcd", "get_comic", "title")
	decl := &ast.Declaration{
		Name:  "mycomic",
		Kind:  ast.FunctionQuery,
		Table: inv,
	}
	ref := &ast.VarRefTable{Name: "mycomic"}
	ref.SetSchema(inv.GetSchema())
	rule := &ast.Rule{Table: ref, Actions: []ast.Action{&ast.NotifyAction{}}}
	prog := &ast.Program{Declarations: []*ast.Declaration{decl}, Rules: []*ast.Rule{rule}}

	inlined, err := InlineProgram(prog)
	require.NoError(t, err)
	require.Len(t, inlined.Rules, 1)
	got, ok := inlined.Rules[0].Table.(*ast.InvocationTable)
	require.True(t, ok)
	assert.Equal(t, "com.xkcd", got.Kind_)
	assert.Equal(t, "get_comic", got.Channel)
}

func TestInlineProgramSubstitutesLambdaParameter(t *testing.T) {
	inv := &ast.InvocationTable{
		Kind_:   "com.translate",
		Channel: "translate",
		InParams: []ast.InputParam{
			{Name: "text", Value: &ast.VarRefValue{Name: "phrase"}},
		},
	}
	inv.SetSchema(&ast.FunctionDef{Kind: ast.FunctionQuery, Name: "translate"})
	decl := &ast.Declaration{
		Name:  "myTranslate",
		Kind:  ast.FunctionQuery,
		Args:  []ast.ArgumentDef{{Direction: ast.ArgIn, Name: "phrase", Type: types.String}},
		Table: inv,
	}
	ref := &ast.VarRefTable{
		Name:     "myTranslate",
		InParams: []ast.InputParam{{Name: "phrase", Value: &ast.StringValue{V: "hello"}}},
	}
	rule := &ast.Rule{Table: ref, Actions: []ast.Action{&ast.NotifyAction{}}}
	prog := &ast.Program{Declarations: []*ast.Declaration{decl}, Rules: []*ast.Rule{rule}}

	inlined, err := InlineProgram(prog)
	require.NoError(t, err)
	got := inlined.Rules[0].Table.(*ast.InvocationTable)
	require.Len(t, got.InParams, 1)
	str, ok := got.InParams[0].Value.(*ast.StringValue)
	require.True(t, ok)
	assert.Equal(t, "hello", str.V)
}

func TestInlineProgramUnknownDeclarationErrors(t *testing.T) {
	rule := &ast.Rule{
		Table:   &ast.VarRefTable{Name: "nope"},
		Actions: []ast.Action{&ast.NotifyAction{}},
	}
	prog := &ast.Program{Rules: []*ast.Rule{rule}}

	_, err := InlineProgram(prog)
	require.Error(t, err)
	var ce *compileerrors.CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, compileerrors.UnboundVarRef, ce.Kind)
}
