package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stanford-oval/thingtalk/types"
)

func sampleInvocationTable() *InvocationTable {
	return &InvocationTable{
		Kind_:   "com.xkcd",
		Channel: "get_comic",
		InParams: []InputParam{
			{Name: "number", Value: &NumberValue{V: 1234}},
		},
	}
}

func TestValueCloneIsIndependent(t *testing.T) {
	orig := &ArrayValue{Elements: []Value{&StringValue{V: "a"}, &StringValue{V: "b"}}}
	clone := orig.Clone().(*ArrayValue)

	clone.Elements[0].(*StringValue).V = "mutated"

	assert.Equal(t, "a", orig.Elements[0].(*StringValue).V)
	assert.Equal(t, "mutated", clone.Elements[0].(*StringValue).V)
}

func TestCompoundValueCloneIsIndependent(t *testing.T) {
	orig := &CompoundValue{
		Name:   "t",
		Fields: map[string]Value{"x": &NumberValue{V: 1}},
		Order:  []string{"x"},
	}
	clone := orig.Clone().(*CompoundValue)
	clone.Fields["x"].(*NumberValue).V = 2
	clone.Order[0] = "y"

	assert.Equal(t, float64(1), orig.Fields["x"].(*NumberValue).V)
	assert.Equal(t, "x", orig.Order[0])
}

func TestNewMeasureValueNormalizesUnit(t *testing.T) {
	v, err := NewMeasureValue(5, "km")
	require.NoError(t, err)
	assert.Equal(t, "m", v.BaseUnit)
	assert.Equal(t, types.Measure("m"), v.Type())

	_, err = NewMeasureValue(5, "bogus-unit")
	assert.Error(t, err)
}

func TestUndefinedAndVarRefAreNeverConcrete(t *testing.T) {
	assert.False(t, (&UndefinedValue{}).IsConcrete())
	assert.False(t, (&VarRefValue{Name: "x"}).IsConcrete())
	assert.False(t, (&EventValue{}).IsConcrete())
}

func TestLocationValueConcreteness(t *testing.T) {
	abs := &LocationValue{Lat: 1, Lon: 2}
	rel := &LocationValue{Relative: LocationCurrent}
	assert.True(t, abs.IsConcrete())
	assert.False(t, rel.IsConcrete())
}

func TestFunctionDefCloneDetachesParent(t *testing.T) {
	fn := &FunctionDef{Kind: FunctionQuery, Name: "get_comic", IsList: true}
	cls := NewClassDef("com.xkcd", nil)
	cls.AddQuery("get_comic", fn)
	require.Same(t, cls, fn.Parent)

	clone := fn.Clone()
	assert.Nil(t, clone.Parent)
	assert.Equal(t, fn.Name, clone.Name)
}

func TestFunctionDefValidateRejectsDuplicateArgs(t *testing.T) {
	fn := &FunctionDef{
		Kind: FunctionAction,
		Name: "send",
		Args: []ArgumentDef{
			{Direction: ArgIn, Name: "message", Type: types.String},
			{Direction: ArgIn, Name: "message", Type: types.String},
		},
	}
	err := fn.Validate()
	assert.Error(t, err)
}

func TestFunctionDefValidateRejectsPollIntervalOnAction(t *testing.T) {
	fn := &FunctionDef{Kind: FunctionAction, Name: "send", PollInterval: 1}
	assert.Error(t, fn.Validate())
}

func TestFunctionDefPrepareDefaultsConfirm(t *testing.T) {
	fn := &FunctionDef{Kind: FunctionAction, Name: "send"}
	fn.Prepare()
	assert.Equal(t, ConfirmConfirmed, fn.Confirm)
}

func TestClassDefCloneRemapsParent(t *testing.T) {
	cls := NewClassDef("com.xkcd", nil)
	cls.AddQuery("get_comic", &FunctionDef{Kind: FunctionQuery, Name: "get_comic"})

	clone := cls.Clone()
	require.NotSame(t, cls, clone)
	require.Same(t, clone, clone.Queries["get_comic"].Parent)
	// mutating the clone's function must not affect the original
	clone.Queries["get_comic"].Name = "mutated"
	assert.Equal(t, "get_comic", cls.Queries["get_comic"].Name)
}

func TestClassDefValidateRejectsNameClash(t *testing.T) {
	cls := NewClassDef("com.example", nil)
	cls.AddQuery("foo", &FunctionDef{Kind: FunctionQuery, Name: "foo"})
	cls.AddAction("foo", &FunctionDef{Kind: FunctionAction, Name: "foo"})
	assert.Error(t, cls.Validate())
}

func TestFilterTableCloneIsIndependent(t *testing.T) {
	inner := sampleInvocationTable()
	f := &FilterTable{
		Table:  inner,
		Filter: &AtomFilter{ArgName: "number", Op: OpGT, Value: &NumberValue{V: 1000}},
	}
	clone := f.Clone().(*FilterTable)
	clone.Table.(*InvocationTable).Channel = "mutated"
	assert.Equal(t, "get_comic", f.Table.(*InvocationTable).Channel)
}

func TestJoinTableClone(t *testing.T) {
	j := &JoinTable{Left: sampleInvocationTable(), Right: sampleInvocationTable()}
	clone := j.Clone().(*JoinTable)
	clone.Left.(*InvocationTable).Kind_ = "mutated"
	assert.Equal(t, "com.xkcd", j.Left.(*InvocationTable).Kind_)
}

func TestProgramCloneIsDeep(t *testing.T) {
	prog := &Program{
		Rules: []*Rule{
			{
				Table:   sampleInvocationTable(),
				Actions: []Action{&NotifyAction{}},
			},
		},
	}
	clone := prog.Clone()
	clone.Rules[0].Table.(*InvocationTable).Channel = "mutated"
	assert.Equal(t, "get_comic", prog.Rules[0].Table.(*InvocationTable).Channel)
	assert.Len(t, prog.Rules, 1)
	assert.False(t, prog.Rules[0].IsStreamDriven())
}

func TestRuleIsStreamDriven(t *testing.T) {
	r := &Rule{Stream: &TimerStream{Base: &DateValue{}, Interval: &MeasureValue{BaseUnit: "ms"}}}
	assert.True(t, r.IsStreamDriven())
}

func TestIteratePrimitivesVisitsExternalFilterAndActions(t *testing.T) {
	ext := &ExternalFilter{
		Kind_:   "com.twitter",
		Channel: "my_tweets",
		Filter:  &TrueFilter{},
	}
	table := &FilterTable{
		Table:  sampleInvocationTable(),
		Filter: ext,
	}
	prog := &Program{
		Rules: []*Rule{
			{
				Table:   table,
				Actions: []Action{&NotifyAction{}, &VarRefAction{Name: "myAction"}},
			},
		},
	}

	var categories []string
	var kinds []string
	IteratePrimitives(prog, false, func(category string, p Primitive) {
		categories = append(categories, category)
		kinds = append(kinds, p.Kind())
	})

	assert.Contains(t, kinds, "invocation")
	assert.Contains(t, kinds, "com.twitter")
	assert.Contains(t, kinds, "notify")
	assert.NotContains(t, kinds, "var_ref_action")
	assert.Contains(t, categories, "table")
	assert.Contains(t, categories, "action")
}

func TestIteratePrimitivesIncludesVarRefWhenRequested(t *testing.T) {
	prog := &Program{
		Rules: []*Rule{
			{Table: &VarRefTable{Name: "saved"}, Actions: []Action{&NotifyAction{}}},
		},
	}

	var withVarRef, withoutVarRef int
	IteratePrimitives(prog, true, func(category string, p Primitive) {
		if p.Kind() == "var_ref_table" {
			withVarRef++
		}
	})
	IteratePrimitives(prog, false, func(category string, p Primitive) {
		if p.Kind() == "var_ref_table" {
			withoutVarRef++
		}
	})

	assert.Equal(t, 1, withVarRef)
	assert.Equal(t, 0, withoutVarRef)
}

func TestScopePrefixAndMerge(t *testing.T) {
	left := NewScope()
	left.Add("title", types.String)
	left.Prefix("xkcd")

	right := NewScope()
	right.Add("text", types.String)

	left.Merge(right)

	_, ok := left.Get("xkcd.title")
	assert.True(t, ok)
	_, ok = left.Get("text")
	assert.True(t, ok)
}

func TestScopeCloneIsIndependent(t *testing.T) {
	s := NewScope()
	s.Add("x", types.Number)
	clone := s.Clone()
	clone.Add("y", types.String)

	assert.True(t, clone.Has("y"))
	assert.False(t, s.Has("y"))
}

func TestScopeCleanDropsLocalsNotGlobals(t *testing.T) {
	s := NewScope()
	s.Add("local", types.Number)
	s.AddGlobal("global", types.String)
	s.Clean()

	assert.False(t, s.Has("local"))
	assert.True(t, s.Has("global"))
}

func TestScopePushInheritsHasEvent(t *testing.T) {
	s := NewScope()
	s.SetHasEvent(true)
	child := s.Push()
	assert.True(t, child.HasEvent())
}
