package semantic

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stanford-oval/thingtalk/ast"
	"github.com/stanford-oval/thingtalk/schema"
	"github.com/stanford-oval/thingtalk/types"
)

type testSource struct{ classes map[string]*ast.ClassDef }

func (s *testSource) FetchClasses(ctx context.Context, kinds []string, wantMeta bool) (map[string]*ast.ClassDef, map[string]error) {
	classes := map[string]*ast.ClassDef{}
	failures := map[string]error{}
	for _, k := range kinds {
		if c, ok := s.classes[k]; ok {
			classes[k] = c
		} else {
			failures[k] = assert.AnError
		}
	}
	return classes, failures
}
func (s *testSource) FetchMixins(ctx context.Context, names []string) (map[string]*schema.MixinDef, map[string]error) {
	return nil, nil
}
func (s *testSource) FetchMemorySchema(ctx context.Context, table string) (*ast.FunctionDef, error) {
	return nil, nil
}

func newTestAnalyzer() *Analyzer {
	cls := ast.NewClassDef("com.xkcd", nil)
	cls.AddQuery("get_comic", &ast.FunctionDef{
		Kind: ast.FunctionQuery, Name: "get_comic", IsList: false, IsMonitorable: true,
		Args: []ast.ArgumentDef{
			{Direction: ast.ArgIn, Name: "number", Type: types.Number, Required: false},
			{Direction: ast.ArgOut, Name: "title", Type: types.String},
			{Direction: ast.ArgOut, Name: "picture_url", Type: types.Entity("tt:picture")},
		},
	})
	cls.AddAction("send_email", &ast.FunctionDef{
		Kind: ast.FunctionAction, Name: "send_email",
		Args: []ast.ArgumentDef{
			{Direction: ast.ArgIn, Name: "to", Type: types.Entity("tt:email_address"), Required: true},
			{Direction: ast.ArgIn, Name: "subject", Type: types.String, Required: true},
		},
	})
	src := &testSource{classes: map[string]*ast.ClassDef{"com.xkcd": cls}}
	return NewAnalyzer(schema.NewRetriever(src))
}

func invocation(kind, channel string, params ...ast.InputParam) *ast.InvocationTable {
	return &ast.InvocationTable{Kind_: kind, Channel: channel, InParams: params}
}

func TestTypeCheckProgramResolvesInvocation(t *testing.T) {
	a := newTestAnalyzer()
	prog := &ast.Program{
		Rules: []*ast.Rule{{
			Table:   invocation("com.xkcd", "get_comic"),
			Actions: []ast.Action{&ast.NotifyAction{}},
		}},
	}
	err := a.TypeCheckProgram(context.Background(), prog)
	require.NoError(t, err)

	schema := prog.Rules[0].Table.GetSchema()
	require.NotNil(t, schema)
	assert.Equal(t, "get_comic", schema.Name)
	// the unfilled optional "number" in-arg is not auto-filled (only
	// required in-args are); no extra InputParam should have been added.
	invTable := prog.Rules[0].Table.(*ast.InvocationTable)
	assert.Len(t, invTable.InParams, 0)
}

func TestTypeCheckProgramAutoFillsRequiredInParam(t *testing.T) {
	a := newTestAnalyzer()
	prog := &ast.Program{
		Rules: []*ast.Rule{{
			Actions: []ast.Action{&ast.InvocationAction{
				Kind_: "com.xkcd", Channel: "send_email",
				InParams: []ast.InputParam{{Name: "subject", Value: &ast.StringValue{V: "hi"}}},
			}},
		}},
	}
	err := a.TypeCheckProgram(context.Background(), prog)
	require.NoError(t, err)

	act := prog.Rules[0].Actions[0].(*ast.InvocationAction)
	require.Len(t, act.InParams, 2)
	found := false
	for _, p := range act.InParams {
		if p.Name == "to" {
			found = true
			_, isUndef := p.Value.(*ast.UndefinedValue)
			assert.True(t, isUndef)
		}
	}
	assert.True(t, found)
}

func TestTypeCheckProgramRejectsUnknownKind(t *testing.T) {
	a := newTestAnalyzer()
	prog := &ast.Program{
		Rules: []*ast.Rule{{
			Table:   invocation("com.nonexistent", "foo"),
			Actions: []ast.Action{&ast.NotifyAction{}},
		}},
	}
	err := a.TypeCheckProgram(context.Background(), prog)
	assert.Error(t, err)
}

func TestTypeCheckFilterResolvesOverload(t *testing.T) {
	a := newTestAnalyzer()
	prog := &ast.Program{
		Rules: []*ast.Rule{{
			Table: &ast.FilterTable{
				Table: invocation("com.xkcd", "get_comic"),
				Filter: &ast.AtomFilter{
					ArgName: "title", Op: ast.OpLikeFwd, Value: &ast.StringValue{V: "hello"},
				},
			},
			Actions: []ast.Action{&ast.NotifyAction{}},
		}},
	}
	err := a.TypeCheckProgram(context.Background(), prog)
	require.NoError(t, err)

	filterTable := prog.Rules[0].Table.(*ast.FilterTable)
	atom := filterTable.Filter.(*ast.AtomFilter)
	assert.Equal(t, 0, atom.OverloadIdx)
	// applying a filter clears require_filter/default_projection.
	assert.False(t, filterTable.GetSchema().RequireFilter)
}

func TestMonitorRejectsNonMonitorableQuery(t *testing.T) {
	a := newTestAnalyzer()
	prog := &ast.Program{
		Rules: []*ast.Rule{{
			Stream: &ast.MonitorStream{
				Table: &ast.AggregationTable{
					Table: invocation("com.xkcd", "get_comic"),
					Op:    ast.OpCount, Field: "*",
				},
			},
			Actions: []ast.Action{&ast.NotifyAction{}},
		}},
	}
	err := a.TypeCheckProgram(context.Background(), prog)
	assert.Error(t, err)
}

func TestJoinTableMergesColumnsAndRejectsDuplicates(t *testing.T) {
	a := newTestAnalyzer()
	prog := &ast.Program{
		Rules: []*ast.Rule{{
			Table: &ast.JoinTable{
				Left:  invocation("com.xkcd", "get_comic"),
				Right: invocation("com.xkcd", "get_comic"),
			},
			Actions: []ast.Action{&ast.NotifyAction{}},
		}},
	}
	err := a.TypeCheckProgram(context.Background(), prog)
	assert.Error(t, err) // title/picture_url collide between both sides
}

func TestDeclarationVarRefResolves(t *testing.T) {
	a := newTestAnalyzer()
	prog := &ast.Program{
		Declarations: []*ast.Declaration{{
			Name: "mycomic", Kind: ast.FunctionQuery,
			Table: invocation("com.xkcd", "get_comic"),
		}},
		Rules: []*ast.Rule{{
			Table:   &ast.VarRefTable{Name: "mycomic"},
			Actions: []ast.Action{&ast.NotifyAction{}},
		}},
	}
	err := a.TypeCheckProgram(context.Background(), prog)
	require.NoError(t, err)
	assert.Equal(t, "get_comic", prog.Rules[0].Table.GetSchema().Name)
}

func TestPermissionRuleRejectsBadPrincipal(t *testing.T) {
	a := newTestAnalyzer()
	pr := &ast.PermissionRule{Principal: &ast.StringValue{V: "not-an-entity"}}
	err := a.TypeCheckPermissionRule(context.Background(), pr)
	assert.Error(t, err)
}

func TestBookkeepingChoiceRequiresNumber(t *testing.T) {
	a := newTestAnalyzer()
	err := a.TypeCheckBookkeeping(context.Background(), &ast.Bookkeeping{
		Intent: ast.BookkeepingChoice, Value: &ast.StringValue{V: "first"},
	})
	assert.Error(t, err)

	err = a.TypeCheckBookkeeping(context.Background(), &ast.Bookkeeping{
		Intent: ast.BookkeepingChoice, Value: &ast.NumberValue{V: 1},
	})
	assert.NoError(t, err)
}
