package types_test

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/stanford-oval/thingtalk/types"
)

// numericLadder is every primitive the widening rows in
// assignPrimitive/isSubtype connect: Date -> Time and Number -> Currency
// are one-directional, never commutative, so a property sweeping this
// fixed ladder catches a regression that makes either direction
// symmetric the way the join IsMonitorable bug made "&&" into "||".
var numericLadder = []struct {
	from, to types.Type
	widens   bool
}{
	{types.Date, types.Time, true},
	{types.Time, types.Date, false},
	{types.Number, types.Currency, true},
	{types.Currency, types.Number, false},
}

// TestIsAssignableNumericWideningIsDirectional checks every row of the
// ladder above against a freshly generated scope, confirming the
// direction recorded in the table is what IsAssignable actually returns
// regardless of unrelated scope state (numericLadder itself is fixed;
// gopter supplies the otherwise-irrelevant scope noise).
func TestIsAssignableNumericWideningIsDirectional(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("numeric widening direction matches the table", prop.ForAll(
		func(idx int) bool {
			row := numericLadder[idx]
			return types.IsAssignable(row.from, row.to, types.NewScope(), nil) == row.widens
		},
		gen.IntRange(0, len(numericLadder)-1),
	))

	properties.TestingRun(t)
}

// entityLadder enumerates DefaultEntitySubtypes' chains from their leaf
// kind up to "tt:contact_group" at the root.
var entityLadder = []string{
	"tt:username",
	"tt:email_address",
	"tt:phone_number",
	"tt:contact",
}

// TestEntitySubtypeTransitivity checks that every leaf kind in
// entityLadder is assignable to tt:contact_group, the two-hop case
// (tt:username -> tt:contact -> tt:contact_group) being exactly what
// isSubtype's recursive walk (rather than a flat membership test) is
// for.
func TestEntitySubtypeTransitivity(t *testing.T) {
	subs := types.DefaultEntitySubtypes()
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("every entity ladder kind widens to tt:contact_group", prop.ForAll(
		func(idx int) bool {
			kind := entityLadder[idx]
			return types.IsAssignable(types.Entity(kind), types.Entity("tt:contact_group"), types.NewScope(), subs)
		},
		gen.IntRange(0, len(entityLadder)-1),
	))

	properties.Property("widening is not reversible", prop.ForAll(
		func(idx int) bool {
			kind := entityLadder[idx]
			return !types.IsAssignable(types.Entity("tt:contact_group"), types.Entity(kind), types.NewScope(), subs)
		},
		gen.IntRange(0, len(entityLadder)-1),
	))

	properties.TestingRun(t)
}

// TestIsAssignableReflexiveProperty generalizes TestIsAssignableReflexive
// (a fixed table test elsewhere in this package) over a gopter-generated
// array-nesting depth, confirming reflexivity survives wrapping a String
// in any number of Array layers.
func TestIsAssignableReflexiveProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("Array(...Array(String)) is reflexive at any depth", prop.ForAll(
		func(depth int) bool {
			ty := types.String
			for i := 0; i < depth; i++ {
				ty = types.Array(ty)
			}
			return types.IsAssignable(ty, ty, types.NewScope(), nil)
		},
		gen.IntRange(0, 8),
	))

	properties.TestingRun(t)
}
