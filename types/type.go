// Package types implements the ThingTalk type system: a closed set of
// primitive types plus parameterized constructors (Array, Entity, Measure,
// Enum, Compound, Unknown), structural equality and hashing, an
// isAssignable relation with polymorphic type-variable unification, and
// unit normalization.
package types

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strings"
)

// Type is the common interface implemented by every ThingTalk type.
// Values are immutable; primitives are singletons.
type Type interface {
	// String renders the type the way it would appear in surface syntax,
	// e.g. "Array(Entity(tt:contact))".
	String() string
	// Equals reports whether two types are structurally identical. It
	// does not perform unification; use IsAssignable for that.
	Equals(Type) bool
	// Hash returns a hash consistent with Equals: t1.Equals(t2) implies
	// t1.Hash() == t2.Hash().
	Hash() uint64
}

// primitiveKind enumerates the non-parameterized base types.
type primitiveKind int

const (
	kindAny primitiveKind = iota
	kindBoolean
	kindString
	kindNumber
	kindCurrency
	kindTime
	kindDate
	kindRecurrentTimeSpecification
	kindLocation
	kindArgMap
	kindObject
)

type primitiveType struct {
	kind primitiveKind
	name string
}

func (p *primitiveType) String() string { return p.name }

func (p *primitiveType) Equals(other Type) bool {
	o, ok := other.(*primitiveType)
	return ok && o.kind == p.kind
}

func (p *primitiveType) Hash() uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte{byte(p.kind)})
	return h.Sum64()
}

// Singleton primitive types.
var (
	Any                        Type = &primitiveType{kindAny, "Any"}
	Boolean                    Type = &primitiveType{kindBoolean, "Boolean"}
	String                     Type = &primitiveType{kindString, "String"}
	Number                     Type = &primitiveType{kindNumber, "Number"}
	Currency                   Type = &primitiveType{kindCurrency, "Currency"}
	Time                       Type = &primitiveType{kindTime, "Time"}
	Date                       Type = &primitiveType{kindDate, "Date"}
	RecurrentTimeSpecification Type = &primitiveType{kindRecurrentTimeSpecification, "RecurrentTimeSpecification"}
	Location                   Type = &primitiveType{kindLocation, "Location"}
	ArgMap                     Type = &primitiveType{kindArgMap, "ArgMap"}
	Object                     Type = &primitiveType{kindObject, "Object"}
)

// EntityType represents an entity subtype, e.g. tt:contact.
type EntityType struct {
	// Kind is the entity kind name; the empty string is the polymorphic
	// entity hole that binds the reserved "_entity" type variable.
	Kind string
}

// Entity constructs an EntityType. Entity("") is the polymorphic hole.
func Entity(kind string) Type { return &EntityType{Kind: kind} }

func (e *EntityType) String() string { return fmt.Sprintf("Entity(%s)", e.Kind) }

func (e *EntityType) Equals(other Type) bool {
	o, ok := other.(*EntityType)
	return ok && o.Kind == e.Kind
}

func (e *EntityType) Hash() uint64 { return stringHash("entity:" + e.Kind) }

// MeasureType represents a quantity with a base unit, e.g. Measure(ms).
// The empty base unit is the polymorphic unit hole that binds the
// reserved "_unit" type variable.
type MeasureType struct {
	BaseUnit string
}

// Measure constructs a MeasureType. Measure("") is the polymorphic hole.
func Measure(baseUnit string) Type { return &MeasureType{BaseUnit: baseUnit} }

func (m *MeasureType) String() string { return fmt.Sprintf("Measure(%s)", m.BaseUnit) }

func (m *MeasureType) Equals(other Type) bool {
	o, ok := other.(*MeasureType)
	return ok && o.BaseUnit == m.BaseUnit
}

func (m *MeasureType) Hash() uint64 { return stringHash("measure:" + m.BaseUnit) }

// EnumType represents an enumeration. Entries == nil means the enum is
// open (any symbol is accepted). A non-nil Entries list whose last entry
// is the literal "*" is "open-extending": its non-"*" prefix must be a
// subset of the entries of any enum it is assignable to.
type EnumType struct {
	Entries []string
}

// Enum constructs an EnumType. Pass nil for an open enum.
func Enum(entries []string) Type { return &EnumType{Entries: entries} }

func (e *EnumType) String() string {
	if e.Entries == nil {
		return "Enum()"
	}
	return fmt.Sprintf("Enum(%s)", strings.Join(e.Entries, ","))
}

// openExtending reports whether this enum's entry list ends with "*".
func (e *EnumType) openExtending() bool {
	return len(e.Entries) > 0 && e.Entries[len(e.Entries)-1] == "*"
}

// concreteEntries returns the entry list without a trailing "*" marker.
func (e *EnumType) concreteEntries() []string {
	if e.openExtending() {
		return e.Entries[:len(e.Entries)-1]
	}
	return e.Entries
}

func (e *EnumType) Equals(other Type) bool {
	o, ok := other.(*EnumType)
	if !ok {
		return false
	}
	if (e.Entries == nil) != (o.Entries == nil) {
		return false
	}
	if len(e.Entries) != len(o.Entries) {
		return false
	}
	for i := range e.Entries {
		if e.Entries[i] != o.Entries[i] {
			return false
		}
	}
	return true
}

func (e *EnumType) Hash() uint64 {
	return stringHash("enum:" + strings.Join(e.Entries, ","))
}

// ArrayType represents a homogeneous array. Elem may be a *TypeVar to
// represent a still-unbound element type.
type ArrayType struct {
	Elem Type
}

// Array constructs an ArrayType.
func Array(elem Type) Type { return &ArrayType{Elem: elem} }

func (a *ArrayType) String() string { return fmt.Sprintf("Array(%s)", a.Elem.String()) }

func (a *ArrayType) Equals(other Type) bool {
	o, ok := other.(*ArrayType)
	return ok && a.Elem.Equals(o.Elem)
}

func (a *ArrayType) Hash() uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte("array:"))
	var b [8]byte
	putUint64(b[:], a.Elem.Hash())
	_, _ = h.Write(b[:])
	return h.Sum64()
}

// CompoundType represents a record with named, typed fields. Order
// preserves declaration order for deterministic iteration; Name is
// optional (anonymous compounds have an empty Name).
type CompoundType struct {
	Name   string
	Fields map[string]Type
	Order  []string
}

// Compound constructs a CompoundType. order must list exactly the keys
// present in fields, in declaration order.
func Compound(name string, fields map[string]Type, order []string) Type {
	return &CompoundType{Name: name, Fields: fields, Order: append([]string(nil), order...)}
}

func (c *CompoundType) String() string {
	parts := make([]string, 0, len(c.Order))
	for _, k := range c.Order {
		parts = append(parts, fmt.Sprintf("%s: %s", k, c.Fields[k].String()))
	}
	prefix := "Compound"
	if c.Name != "" {
		prefix = "Compound(" + c.Name + ")"
	}
	return fmt.Sprintf("%s{%s}", prefix, strings.Join(parts, ", "))
}

func (c *CompoundType) Equals(other Type) bool {
	o, ok := other.(*CompoundType)
	if !ok || len(c.Fields) != len(o.Fields) {
		return false
	}
	for k, t := range c.Fields {
		ot, ok := o.Fields[k]
		if !ok || !t.Equals(ot) {
			return false
		}
	}
	return true
}

func (c *CompoundType) Hash() uint64 {
	keys := make([]string, 0, len(c.Fields))
	for k := range c.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	h := fnv.New64a()
	_, _ = h.Write([]byte("compound:"))
	for _, k := range keys {
		_, _ = h.Write([]byte(k))
		var b [8]byte
		putUint64(b[:], c.Fields[k].Hash())
		_, _ = h.Write(b[:])
	}
	return h.Sum64()
}

// UnknownType is a forward-compatibility placeholder for a type name the
// core does not recognize. Unknown types never unify with anything else,
// including other Unknown types of a different name.
type UnknownType struct {
	Name string
}

// Unknown constructs an UnknownType.
func Unknown(name string) Type { return &UnknownType{Name: name} }

func (u *UnknownType) String() string { return fmt.Sprintf("Unknown(%s)", u.Name) }

func (u *UnknownType) Equals(other Type) bool {
	o, ok := other.(*UnknownType)
	return ok && o.Name == u.Name
}

func (u *UnknownType) Hash() uint64 { return stringHash("unknown:" + u.Name) }

// TypeVar is a polymorphic type variable, either one of the two reserved
// names ("_unit", "_entity") used internally during unification of
// Measure/Entity holes, or a single-lowercase-identifier variable as used
// in operator overload tables (e.g. the "a" in `a -> a -> Boolean`).
type TypeVar struct {
	Name string
}

// Var constructs a TypeVar.
func Var(name string) Type { return &TypeVar{Name: name} }

func (v *TypeVar) String() string { return v.Name }

func (v *TypeVar) Equals(other Type) bool {
	o, ok := other.(*TypeVar)
	return ok && o.Name == v.Name
}

func (v *TypeVar) Hash() uint64 { return stringHash("var:" + v.Name) }

func stringHash(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}

func putUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

// IsTypeVar reports whether t is a bare polymorphic type variable (not
// a Measure/Entity hole, which are handled separately via the reserved
// "_unit"/"_entity" scope names).
func IsTypeVar(t Type) bool {
	_, ok := t.(*TypeVar)
	return ok
}
