package remote

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stanford-oval/thingtalk/ast"
	"github.com/stanford-oval/thingtalk/compileerrors"
)

var bob = &ast.EntityValue{ID: "bob", Kind: "tt:username"}

func invocation(kind, channel string, principal ast.Value, out ...string) *ast.InvocationTable {
	inv := &ast.InvocationTable{Kind_: kind, Channel: channel, Principal: principal}
	var args []ast.ArgumentDef
	for _, name := range out {
		args = append(args, ast.ArgumentDef{Direction: ast.ArgOut, Name: name})
	}
	inv.SetSchema(&ast.FunctionDef{Kind: ast.FunctionQuery, Name: channel, Args: args})
	return inv
}

func programWith(rule *ast.Rule) *ast.Program {
	return &ast.Program{Rules: []*ast.Rule{rule}}
}

func paramValue(t *testing.T, params []ast.InputParam, name string) ast.Value {
	t.Helper()
	for _, p := range params {
		if p.Name == name {
			return p.Value
		}
	}
	t.Fatalf("no input param named %q", name)
	return nil
}

func TestFactorProgramPassesThroughLocalRule(t *testing.T) {
	rule := &ast.Rule{
		Table:   invocation("com.xkcd", "get_comic", nil, "title"),
		Actions: []ast.Action{&ast.NotifyAction{}},
	}

	f := New()
	fp, err := f.FactorProgram(context.Background(), programWith(rule))
	require.NoError(t, err)
	require.Len(t, fp.Local.Rules, 1)
	assert.Same(t, rule, fp.Local.Rules[0])
	assert.Empty(t, fp.Remote)
}

func TestFactorProgramExternalizesPureRemoteAction(t *testing.T) {
	rule := &ast.Rule{
		Actions: []ast.Action{&ast.InvocationAction{Kind_: "com.light", Channel: "set_power", Principal: bob}},
	}

	f := New()
	fp, err := f.FactorProgram(context.Background(), programWith(rule))
	require.NoError(t, err)
	assert.Empty(t, fp.Local.Rules)

	require.Len(t, fp.Remote, 1)
	rp := fp.Remote[0]
	assert.Same(t, bob, rp.Principal)
	require.Len(t, rp.Program.Rules, 1)
	act, ok := rp.Program.Rules[0].Actions[0].(*ast.InvocationAction)
	require.True(t, ok)
	assert.Equal(t, "com.light", act.Kind_)
	assert.Equal(t, "set_power", act.Channel)
	assert.Nil(t, act.Principal)
}

func TestFactorProgramLiftsRemoteActionWithLocalTrigger(t *testing.T) {
	rule := &ast.Rule{
		Table: invocation("com.thermostat", "get_temperature", nil, "value"),
		Actions: []ast.Action{
			&ast.InvocationAction{Kind_: "com.light", Channel: "set_power", Principal: bob},
		},
	}

	f := New()
	fp, err := f.FactorProgram(context.Background(), programWith(rule))
	require.NoError(t, err)
	require.Len(t, fp.Local.Rules, 1)

	localRule := fp.Local.Rules[0]
	assert.Same(t, rule.Table, localRule.Table)
	require.Len(t, localRule.Actions, 1)
	send, ok := localRule.Actions[0].(*ast.InvocationAction)
	require.True(t, ok)
	assert.Equal(t, "__dyn_0", send.Kind_)
	assert.Equal(t, "send", send.Channel)
	assert.Same(t, bob, paramValue(t, send.InParams, "__principal"))
	assert.Equal(t, "com.light.set_power", paramValue(t, send.InParams, "__kindChannel").(*ast.StringValue).V)

	require.Len(t, fp.Local.Classes, 1)
	assert.Equal(t, "__dyn_0", fp.Local.Classes[0].Kind)

	require.Len(t, fp.Remote, 1)
	rp := fp.Remote[0]
	require.Len(t, rp.Program.Rules, 1)
	remoteRule := rp.Program.Rules[0]
	ms, ok := remoteRule.Stream.(*ast.MonitorStream)
	require.True(t, ok)
	recv, ok := ms.Table.(*ast.InvocationTable)
	require.True(t, ok)
	assert.Equal(t, "__dyn_0", recv.Kind_)
	assert.Equal(t, "receive", recv.Channel)
	act, ok := remoteRule.Actions[0].(*ast.InvocationAction)
	require.True(t, ok)
	assert.Equal(t, "com.light", act.Kind_)
	assert.Equal(t, "set_power", act.Channel)
}

func TestFactorProgramSplitsRemoteOneShotQuery(t *testing.T) {
	leaf := invocation("com.weather", "current", bob, "condition")
	rule := &ast.Rule{Table: leaf, Actions: []ast.Action{&ast.NotifyAction{}}}

	f := New()
	fp, err := f.FactorProgram(context.Background(), programWith(rule))
	require.NoError(t, err)
	require.Len(t, fp.Local.Rules, 2)

	requestRule := fp.Local.Rules[0]
	assert.Nil(t, requestRule.Table)
	assert.Nil(t, requestRule.Stream)
	require.Len(t, requestRule.Actions, 1)
	sendReq, ok := requestRule.Actions[0].(*ast.InvocationAction)
	require.True(t, ok)
	assert.Equal(t, "send", sendReq.Channel)
	assert.Equal(t, "com.weather.current", paramValue(t, sendReq.InParams, "__kindChannel").(*ast.StringValue).V)

	responseRule := fp.Local.Rules[1]
	recv, ok := responseRule.Table.(*ast.InvocationTable)
	require.True(t, ok)
	assert.Equal(t, "receive", recv.Channel)
	assert.Same(t, rule.Actions[0], responseRule.Actions[0])

	require.Len(t, fp.Remote, 1)
	rp := fp.Remote[0]
	require.Len(t, rp.Program.Rules, 1)
	remoteRule := rp.Program.Rules[0]
	js, ok := remoteRule.Stream.(*ast.JoinStream)
	require.True(t, ok)
	innerMonitor, ok := js.Stream.(*ast.MonitorStream)
	require.True(t, ok)
	innerRecv, ok := innerMonitor.Table.(*ast.InvocationTable)
	require.True(t, ok)
	assert.Equal(t, "receive", innerRecv.Channel)
	actualInv, ok := js.Table.(*ast.InvocationTable)
	require.True(t, ok)
	assert.Equal(t, "com.weather", actualInv.Kind_)
	assert.Equal(t, "current", actualInv.Channel)
	assert.Nil(t, actualInv.Principal)
	sendResp, ok := remoteRule.Actions[0].(*ast.InvocationAction)
	require.True(t, ok)
	assert.Equal(t, "send", sendResp.Channel)
}

func TestFactorProgramRejectsMixedRemotePrimitives(t *testing.T) {
	rule := &ast.Rule{
		Table: invocation("com.weather", "current", bob, "condition"),
		Actions: []ast.Action{
			&ast.InvocationAction{Kind_: "com.light", Channel: "set_power", Principal: bob},
		},
	}

	f := New()
	_, err := f.FactorProgram(context.Background(), programWith(rule))
	require.Error(t, err)
	var ce *compileerrors.CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, compileerrors.AmbiguousRemote, ce.Kind)
}

func TestFactorProgramRejectsTwoRemoteActions(t *testing.T) {
	rule := &ast.Rule{
		Actions: []ast.Action{
			&ast.InvocationAction{Kind_: "com.light", Channel: "set_power", Principal: bob},
			&ast.InvocationAction{Kind_: "com.light", Channel: "set_color", Principal: bob},
		},
	}

	f := New()
	_, err := f.FactorProgram(context.Background(), programWith(rule))
	require.Error(t, err)
	var ce *compileerrors.CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, compileerrors.AmbiguousRemote, ce.Kind)
}

func TestWithSeedIsDeterministic(t *testing.T) {
	triggered := func() *ast.Program {
		return programWith(&ast.Rule{
			Table:   invocation("com.thermostat", "get_temperature", nil, "value"),
			Actions: []ast.Action{&ast.InvocationAction{Kind_: "com.light", Channel: "set_power", Principal: bob}},
		})
	}
	r1, err := New(WithSeed(7)).FactorProgram(context.Background(), triggered())
	require.NoError(t, err)
	r2, err := New(WithSeed(7)).FactorProgram(context.Background(), triggered())
	require.NoError(t, err)

	send1 := r1.Local.Rules[0].Actions[0].(*ast.InvocationAction)
	send2 := r2.Local.Rules[0].Actions[0].(*ast.InvocationAction)
	tokStr1 := paramValue(t, send1.InParams, "__token").(*ast.StringValue).V
	tokStr2 := paramValue(t, send2.InParams, "__token").(*ast.StringValue).V
	assert.Equal(t, tokStr1, tokStr2)
}
