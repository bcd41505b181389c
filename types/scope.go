package types

// Scope is a mutable type-scope used while unifying polymorphic types. It
// binds the two reserved names "_unit" and "_entity" (used by Measure("")
// and Entity("") holes) as well as arbitrary single-lowercase-identifier
// type variables used in overload tables.
//
// A Scope is not safe for concurrent use; callers that need to explore two
// alternative unifications (e.g. the left and right branches of a join)
// should Clone the scope first, mirroring the copy-on-write discipline the
// source documents for its lexical scope stack.
type Scope struct {
	bindings map[string]Type
}

// NewScope returns an empty type-scope.
func NewScope() *Scope {
	return &Scope{bindings: make(map[string]Type)}
}

// Clone returns an independent copy of the scope; mutating the copy does
// not affect the original.
func (s *Scope) Clone() *Scope {
	n := NewScope()
	for k, v := range s.bindings {
		n.bindings[k] = v
	}
	return n
}

// Lookup returns the type bound to name, if any.
func (s *Scope) Lookup(name string) (Type, bool) {
	t, ok := s.bindings[name]
	return t, ok
}

// Bind records name -> t. It overwrites any previous binding; callers
// should check Lookup first when a binding must not be rebound to a
// different type.
func (s *Scope) Bind(name string, t Type) {
	s.bindings[name] = t
}

// reservedUnit and reservedEntity name the two scope slots that the
// Measure("") and Entity("") polymorphic holes bind into, per §4.1.
const (
	reservedUnit   = "_unit"
	reservedEntity = "_entity"
)

// EntitySubtypes is the configurable entity-subtype map; it maps an
// entity kind to the kinds it is a subtype of (directly, not
// transitively closed — IsAssignable walks the chain).
type EntitySubtypes map[string][]string

// DefaultEntitySubtypes returns the built-in entity-subtype defaults
// documented in §3.1, e.g. tt:picture <= tt:url.
func DefaultEntitySubtypes() EntitySubtypes {
	return EntitySubtypes{
		"tt:picture":       {"tt:url"},
		"tt:username":      {"tt:contact"},
		"tt:email_address": {"tt:contact"},
		"tt:phone_number":  {"tt:contact"},
		"tt:contact":       {"tt:contact_group"},
	}
}

// isSubtype reports whether kind is (possibly transitively) a subtype of
// target according to subs.
func (subs EntitySubtypes) isSubtype(kind, target string) bool {
	if kind == target {
		return true
	}
	seen := make(map[string]bool)
	var walk func(string) bool
	walk = func(k string) bool {
		if seen[k] {
			return false
		}
		seen[k] = true
		for _, parent := range subs[k] {
			if parent == target || walk(parent) {
				return true
			}
		}
		return false
	}
	return walk(kind)
}

// IsAssignable implements the §4.1 isAssignable(from, to, scope) relation.
// It may bind type variables (including the reserved _unit/_entity slots)
// into scope as a side effect. entitySubs may be nil, in which case only
// exact entity-kind matches succeed.
func IsAssignable(from, to Type, scope *Scope, entitySubs EntitySubtypes) bool {
	if scope == nil {
		scope = NewScope()
	}

	// Reflexivity / Any on either side.
	if to == Any || from == Any {
		return true
	}
	if from.Equals(to) {
		return true
	}

	// Type variables bind on first sight within scope.
	if tv, ok := to.(*TypeVar); ok {
		return bindVar(scope, tv.Name, from)
	}
	if tv, ok := from.(*TypeVar); ok {
		return bindVar(scope, tv.Name, to)
	}

	// Unknown never unifies with anything else, including Equals-false
	// Unknowns (already excluded above by the Equals check).
	if _, ok := to.(*UnknownType); ok {
		return false
	}
	if _, ok := from.(*UnknownType); ok {
		return false
	}

	switch toT := to.(type) {
	case *MeasureType:
		fromM, ok := from.(*MeasureType)
		if !ok {
			return false
		}
		return assignUnit(scope, fromM.BaseUnit, toT.BaseUnit)
	case *EntityType:
		fromE, ok := from.(*EntityType)
		if !ok {
			return false
		}
		return assignEntity(scope, fromE.Kind, toT.Kind, entitySubs)
	case *EnumType:
		fromEnum, ok := from.(*EnumType)
		if !ok {
			return false
		}
		return assignEnum(fromEnum, toT)
	case *ArrayType:
		fromArr, ok := from.(*ArrayType)
		if !ok {
			return false
		}
		return IsAssignable(fromArr.Elem, toT.Elem, scope, entitySubs)
	case *CompoundType:
		fromC, ok := from.(*CompoundType)
		if !ok {
			return false
		}
		for k, ft := range toT.Fields {
			at, ok := fromC.Fields[k]
			if !ok || !IsAssignable(at, ft, scope, entitySubs) {
				return false
			}
		}
		return true
	case *primitiveType:
		return assignPrimitive(from, toT)
	}
	return false
}

func bindVar(scope *Scope, name string, t Type) bool {
	if bound, ok := scope.Lookup(name); ok {
		return bound.Equals(t)
	}
	scope.Bind(name, t)
	return true
}

func assignUnit(scope *Scope, from, to string) bool {
	if to == "" {
		return bindVar(scope, reservedUnit, Measure(from))
	}
	if from == "" {
		// A polymorphic-unit source assigned to a concrete target binds
		// the hole to the target unit.
		return bindVar(scope, reservedUnit, Measure(to))
	}
	return from == to
}

func assignEntity(scope *Scope, from, to string, subs EntitySubtypes) bool {
	if to == "" {
		return bindVar(scope, reservedEntity, Entity(from))
	}
	if from == "" {
		return bindVar(scope, reservedEntity, Entity(to))
	}
	if from == to {
		return true
	}
	if subs != nil && subs.isSubtype(from, to) {
		return true
	}
	return false
}

func assignEnum(from, to *EnumType) bool {
	// An open (unconstrained) source enum is assignable to any enum.
	if from.Entries == nil {
		return true
	}
	if to.Entries == nil {
		return true
	}
	if to.openExtending() {
		// from's concrete entries must be a subset of to's prefix.
		allowed := make(map[string]bool)
		for _, e := range to.concreteEntries() {
			allowed[e] = true
		}
		for _, e := range from.concreteEntries() {
			if !allowed[e] {
				return false
			}
		}
		return true
	}
	return from.Equals(to)
}

func assignPrimitive(from Type, to *primitiveType) bool {
	fromP, ok := from.(*primitiveType)
	if !ok {
		return false
	}
	if fromP.kind == to.kind {
		return true
	}
	switch to.kind {
	case kindTime:
		return fromP.kind == kindDate
	case kindCurrency:
		return fromP.kind == kindNumber
	}
	return false
}

// Resolve substitutes bound type variables (including the reserved
// _unit/_entity slots) within t according to scope, returning a new,
// fully or partially resolved type. Unbound variables are left as-is.
func Resolve(t Type, scope *Scope) Type {
	switch v := t.(type) {
	case *TypeVar:
		if bound, ok := scope.Lookup(v.Name); ok {
			return bound
		}
		return t
	case *MeasureType:
		if v.BaseUnit == "" {
			if bound, ok := scope.Lookup(reservedUnit); ok {
				return bound
			}
		}
		return t
	case *EntityType:
		if v.Kind == "" {
			if bound, ok := scope.Lookup(reservedEntity); ok {
				return bound
			}
		}
		return t
	case *ArrayType:
		return Array(Resolve(v.Elem, scope))
	case *CompoundType:
		fields := make(map[string]Type, len(v.Fields))
		for k, ft := range v.Fields {
			fields[k] = Resolve(ft, scope)
		}
		return Compound(v.Name, fields, v.Order)
	default:
		return t
	}
}
