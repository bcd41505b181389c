package types_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stanford-oval/thingtalk/types"
)

func TestEqualsImpliesHash(t *testing.T) {
	pairs := []struct{ a, b types.Type }{
		{types.String, types.String},
		{types.Entity("tt:contact"), types.Entity("tt:contact")},
		{types.Measure("ms"), types.Measure("ms")},
		{types.Array(types.Number), types.Array(types.Number)},
		{types.Enum([]string{"a", "b"}), types.Enum([]string{"a", "b"})},
	}
	for _, p := range pairs {
		require.True(t, p.a.Equals(p.b))
		assert.Equal(t, p.a.Hash(), p.b.Hash())
	}
}

func TestIsAssignableReflexive(t *testing.T) {
	for _, ty := range []types.Type{types.String, types.Number, types.Boolean, types.Entity("tt:contact"), types.Measure("ms")} {
		assert.True(t, types.IsAssignable(ty, ty, types.NewScope(), nil))
	}
}

func TestIsAssignableAny(t *testing.T) {
	assert.True(t, types.IsAssignable(types.String, types.Any, types.NewScope(), nil))
	assert.True(t, types.IsAssignable(types.Any, types.String, types.NewScope(), nil))
}

func TestIsAssignableNumericConversions(t *testing.T) {
	assert.True(t, types.IsAssignable(types.Date, types.Time, types.NewScope(), nil))
	assert.True(t, types.IsAssignable(types.Number, types.Currency, types.NewScope(), nil))
	assert.False(t, types.IsAssignable(types.Time, types.Date, types.NewScope(), nil))
}

func TestIsAssignableEntitySubtype(t *testing.T) {
	subs := types.DefaultEntitySubtypes()
	assert.True(t, types.IsAssignable(types.Entity("tt:picture"), types.Entity("tt:url"), types.NewScope(), subs))
	assert.True(t, types.IsAssignable(types.Entity("tt:username"), types.Entity("tt:contact"), types.NewScope(), subs))
	assert.False(t, types.IsAssignable(types.Entity("tt:url"), types.Entity("tt:picture"), types.NewScope(), subs))
}

func TestIsAssignableArrayContactGroup(t *testing.T) {
	subs := types.DefaultEntitySubtypes()
	from := types.Array(types.Entity("tt:contact"))
	to := types.Array(types.Entity("tt:contact_group"))
	// tt:contact is a default subtype of tt:contact_group, alongside
	// tt:username/tt:email_address/tt:phone_number <= tt:contact, so this
	// holds under the array element rule without any caller-supplied
	// extension.
	assert.True(t, types.IsAssignable(from, to, types.NewScope(), subs))

	delete(subs, "tt:contact")
	assert.False(t, types.IsAssignable(from, to, types.NewScope(), subs))
}

func TestMeasurePolymorphicUnitBindsOnce(t *testing.T) {
	scope := types.NewScope()
	hole := types.Measure("")
	assert.True(t, types.IsAssignable(types.Measure("ms"), hole, scope, nil))
	// Subsequent uses of the same hole within scope must match.
	assert.True(t, types.IsAssignable(types.Measure("ms"), hole, scope, nil))
	assert.False(t, types.IsAssignable(types.Measure("m"), hole, scope, nil))
}

func TestEntityPolymorphicHoleBindsOnce(t *testing.T) {
	scope := types.NewScope()
	hole := types.Entity("")
	assert.True(t, types.IsAssignable(types.Entity("tt:contact"), hole, scope, nil))
	assert.True(t, types.IsAssignable(types.Entity("tt:contact"), hole, scope, nil))
	assert.False(t, types.IsAssignable(types.Entity("tt:device"), hole, scope, nil))
}

func TestEnumOpenAssignsToAnyEnum(t *testing.T) {
	open := types.Enum(nil)
	closed := types.Enum([]string{"a", "b"})
	assert.True(t, types.IsAssignable(open, closed, types.NewScope(), nil))
}

func TestEnumOpenExtendingPrefix(t *testing.T) {
	target := types.Enum([]string{"a", "b", "*"})
	from := types.Enum([]string{"a"})
	assert.True(t, types.IsAssignable(from, target, types.NewScope(), nil))
	from2 := types.Enum([]string{"c"})
	assert.False(t, types.IsAssignable(from2, target, types.NewScope(), nil))
}

func TestArrayTypeVarElement(t *testing.T) {
	scope := types.NewScope()
	arrVar := types.Array(types.Var("a"))
	assert.True(t, types.IsAssignable(types.Array(types.Number), arrVar, scope, nil))
	bound, ok := scope.Lookup("a")
	require.True(t, ok)
	assert.True(t, bound.Equals(types.Number))
}

func TestUnknownNeverUnifies(t *testing.T) {
	assert.False(t, types.IsAssignable(types.Unknown("foo"), types.String, types.NewScope(), nil))
	assert.False(t, types.IsAssignable(types.String, types.Unknown("foo"), types.NewScope(), nil))
	assert.False(t, types.IsAssignable(types.Unknown("foo"), types.Unknown("foo"), types.NewScope(), nil))
}

func TestResolveSubstitutesBoundVar(t *testing.T) {
	scope := types.NewScope()
	scope.Bind("a", types.String)
	resolved := types.Resolve(types.Var("a"), scope)
	assert.True(t, resolved.Equals(types.String))
}

func TestNormalizeUnit(t *testing.T) {
	base, err := types.NormalizeUnit("seconds")
	require.NoError(t, err)
	assert.Equal(t, "ms", base)

	base, err = types.NormalizeUnit("defaultTemperature")
	require.NoError(t, err)
	assert.Equal(t, "C", base)

	_, err = types.NormalizeUnit("furlongs")
	assert.Error(t, err)
}
