package ast

import "github.com/stanford-oval/thingtalk/types"

// Scope is the lexical scope stack used during semantic analysis, per
// §3.4: lexical parameters, the local outputs of the enclosing
// primitive, global declarations, and a $has_event flag. Frames support
// has/get/add/addAll/addGlobal/remove/merge/prefix/clean; parent frames
// are consulted only by Has/Get, mirroring the source's layered lookup.
//
// Copying is explicit (Clone), following the copy-on-write discipline
// documented for branching scopes (e.g. the two sides of a join) in the
// Design Notes and grounded on the mutable-map-with-Copy idiom the
// corpus uses for its own lexical Scope type.
type Scope struct {
	locals   map[string]types.Type
	globals  map[string]types.Type
	hasEvent bool
	parent   *Scope
}

// NewScope returns an empty root scope.
func NewScope() *Scope {
	return &Scope{locals: map[string]types.Type{}, globals: map[string]types.Type{}}
}

// Push returns a new child scope whose parent is s; lookups that miss in
// the child fall through to the parent.
func (s *Scope) Push() *Scope {
	return &Scope{locals: map[string]types.Type{}, globals: map[string]types.Type{}, parent: s, hasEvent: s.hasEvent}
}

// Clone returns an independent deep copy of s and its full parent chain,
// for copy-on-write branching (e.g. exploring the left/right side of a
// join independently).
func (s *Scope) Clone() *Scope {
	if s == nil {
		return nil
	}
	n := &Scope{
		locals:   make(map[string]types.Type, len(s.locals)),
		globals:  make(map[string]types.Type, len(s.globals)),
		hasEvent: s.hasEvent,
		parent:   s.parent.Clone(),
	}
	for k, v := range s.locals {
		n.locals[k] = v
	}
	for k, v := range s.globals {
		n.globals[k] = v
	}
	return n
}

// Has reports whether name is resolvable in this scope or any ancestor.
func (s *Scope) Has(name string) bool {
	_, ok := s.Get(name)
	return ok
}

// Get resolves name in this scope, falling back to ancestors.
func (s *Scope) Get(name string) (types.Type, bool) {
	if t, ok := s.locals[name]; ok {
		return t, true
	}
	if t, ok := s.globals[name]; ok {
		return t, true
	}
	if s.parent != nil {
		return s.parent.Get(name)
	}
	return nil, false
}

// Add binds name to t as a local (lexical parameter or out-argument) in
// this frame only.
func (s *Scope) Add(name string, t types.Type) {
	s.locals[name] = t
}

// AddAll binds every out-direction entry of args as a local in this
// frame, as when entering the scope of a primitive's declared output
// arguments; in-direction entries are skipped.
func (s *Scope) AddAll(args []ArgumentDef) {
	for _, a := range args {
		if a.Direction == ArgOut {
			s.locals[a.Name] = a.Type
		}
	}
}

// AddGlobal binds name to t as a global declaration, visible from any
// descendant scope even after Clean.
func (s *Scope) AddGlobal(name string, t types.Type) {
	s.globals[name] = t
}

// Remove deletes a local binding from this frame only.
func (s *Scope) Remove(name string) {
	delete(s.locals, name)
}

// Merge copies every local/global binding from other into s, as when a
// join's right-hand scope is folded into its left-hand scope.
func (s *Scope) Merge(other *Scope) {
	if other == nil {
		return
	}
	for k, v := range other.locals {
		s.locals[k] = v
	}
	for k, v := range other.globals {
		s.globals[k] = v
	}
	s.hasEvent = s.hasEvent || other.hasEvent
}

// Prefix rebinds every local under name -> prefix+"."+name, as when a
// join's left-hand bindings must be disambiguated from its right-hand
// bindings of the same name.
func (s *Scope) Prefix(prefix string) {
	renamed := make(map[string]types.Type, len(s.locals))
	for k, v := range s.locals {
		renamed[prefix+"."+k] = v
	}
	s.locals = renamed
}

// Clean drops every local binding from this frame (globals and ancestors
// are untouched), as when entering the scope of a fresh primitive that
// inherits no lexical parameters from its predecessor.
func (s *Scope) Clean() {
	s.locals = map[string]types.Type{}
}

// SetHasEvent sets whether $event.* is resolvable at this point.
func (s *Scope) SetHasEvent(v bool) { s.hasEvent = v }

// HasEvent reports whether $event.* is resolvable at this point.
func (s *Scope) HasEvent() bool { return s.hasEvent }

// Names returns every locally-bound name in this frame (not ancestors),
// for completion/projection checks.
func (s *Scope) Names() []string {
	names := make([]string, 0, len(s.locals))
	for k := range s.locals {
		names = append(names, k)
	}
	return names
}
