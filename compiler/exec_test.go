package compiler_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stanford-oval/thingtalk/ast"
	"github.com/stanford-oval/thingtalk/compiler"
	"github.com/stanford-oval/thingtalk/compiler/hosttest"
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

// TestRunMonitorRuleSuppressesConsecutiveDuplicates drives the same
// monitor-then-action rule shape TestCompileMonitorRuleLoopsOnNextAndDedups
// only asserts the IR shape of, against hosttest.Host: two identical
// ticks collapse into one action invocation, a changed third tick
// fires again.
func TestRunMonitorRuleSuppressesConsecutiveDuplicates(t *testing.T) {
	inv := invocationWithSchema("com.thermostat", "get_temperature", "value")
	rule := &ast.Rule{
		Stream: &ast.MonitorStream{Table: inv},
		Actions: []ast.Action{
			&ast.InvocationAction{Kind_: "com.light", Channel: "set_power"},
		},
	}

	c := compiler.New()
	rules, err := c.CompileProgram(context.Background(), programWith(rule))
	require.NoError(t, err)
	cr := rules[0]

	queryFn := cr.Functions[0]
	host := hosttest.New()
	host.SetStreamTicks(queryFn, []map[string]any{
		{"value": "68"},
		{"value": "68"},
		{"value": "70"},
	})

	require.NoError(t, hosttest.Run(context.Background(), host, cr))
	assert.Len(t, host.Actions, 2)
}

// TestRunTableJoinOutputsCrossProduct drives the nested-loop join
// TestCompileTableJoinNestedLoop only asserts the IR shape of, against
// hosttest.Host: two left rows times two right rows produces four
// notify outputs, each carrying both sides' fields.
func TestRunTableJoinOutputsCrossProduct(t *testing.T) {
	left := invocationWithSchema("com.xkcd", "get_comic", "title")
	right := invocationWithSchema("com.translate", "translate", "translated")
	join := &ast.JoinTable{Left: left, Right: right}
	join.SetSchema(&ast.FunctionDef{
		Kind: ast.FunctionQuery,
		Args: append(append([]ast.ArgumentDef{}, left.GetSchema().Args...), right.GetSchema().Args...),
	})
	rule := &ast.Rule{
		Table:   join,
		Actions: []ast.Action{&ast.NotifyAction{}},
	}

	c := compiler.New()
	rules, err := c.CompileProgram(context.Background(), programWith(rule))
	require.NoError(t, err)
	cr := rules[0]

	require.Len(t, cr.Functions, 2)
	host := hosttest.New()
	host.SetQueryResult(cr.Functions[0], []map[string]any{
		{"title": "comic one"},
		{"title": "comic two"},
	})
	host.SetQueryResult(cr.Functions[1], []map[string]any{
		{"translated": "uno"},
		{"translated": "dos"},
	})

	require.NoError(t, hosttest.Run(context.Background(), host, cr))
	require.Len(t, host.Outputs, 4)
	assert.Equal(t, "comic one", host.Outputs[0].Record["title"])
	assert.Equal(t, "uno", host.Outputs[0].Record["translated"])
	assert.Equal(t, "comic two", host.Outputs[2].Record["title"])
	assert.Equal(t, "dos", host.Outputs[3].Record["translated"])
}

// TestRunMonitorWithEdgeFilterFiresOnlyOnTransition exercises the
// dedup-plus-edge-filter composition TestCompileMonitorWithFilterLiftsEdgeFilter
// only asserts the IR shape of: the action fires on each tick where the
// filter crosses from false to true (80 and 75, so twice), and stays
// silent on the still-true tick (81) and on the false ticks.
func TestRunMonitorWithEdgeFilterFiresOnlyOnTransition(t *testing.T) {
	inv := invocationWithSchema("com.thermostat", "get_temperature", "value")
	filtered := &ast.FilterTable{
		Table:  inv,
		Filter: &ast.AtomFilter{ArgName: "value", Op: ast.OpGT, Value: &ast.NumberValue{V: 70}},
	}
	rule := &ast.Rule{
		Stream:  &ast.MonitorStream{Table: filtered},
		Actions: []ast.Action{&ast.InvocationAction{Kind_: "com.light", Channel: "set_power"}},
	}

	c := compiler.New()
	rules, err := c.CompileProgram(context.Background(), programWith(rule))
	require.NoError(t, err)
	cr := rules[0]

	host := hosttest.New()
	host.SetStreamTicks(cr.Functions[0], []map[string]any{
		{"value": 65.0},
		{"value": 80.0},
		{"value": 81.0},
		{"value": 60.0},
		{"value": 75.0},
	})

	require.NoError(t, hosttest.Run(context.Background(), host, cr))
	assert.Len(t, host.Actions, 2)
}
