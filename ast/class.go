package ast

import (
	"fmt"

	"github.com/stanford-oval/thingtalk/internal/analysis"
)

// ImportKind distinguishes the two import-statement flavors a ClassDef
// may contain, per §3.3.
type ImportKind string

const (
	ImportMixin ImportKind = "mixin"
	ImportClass ImportKind = "class"
)

// ImportStmt is a single `import` line inside a ClassDef.
type ImportStmt struct {
	Kind ImportKind
	Name string
	// InParams configures a mixin import (e.g. a loader facet's
	// parameters).
	InParams []InputParam
}

func (i ImportStmt) Clone() ImportStmt {
	ps := make([]InputParam, len(i.InParams))
	for idx, p := range i.InParams {
		ps[idx] = p.Clone()
	}
	return ImportStmt{Kind: i.Kind, Name: i.Name, InParams: ps}
}

// ClassDef declares an external device/class: its kind, the classes it
// extends, its query and action function definitions, its imports and
// metadata/annotations, per §3.3.
type ClassDef struct {
	Kind    string
	Extends []string

	Queries map[string]*FunctionDef
	Actions map[string]*FunctionDef

	Imports []ImportStmt

	Metadata    map[string]string
	Annotations map[string]Value

	IsAbstract bool
}

// NewClassDef constructs an empty ClassDef for kind with the given
// extends list; functions are added afterwards with AddQuery/AddAction.
func NewClassDef(kind string, extends []string) *ClassDef {
	c := &ClassDef{
		Kind:        kind,
		Extends:     append([]string(nil), extends...),
		Queries:     make(map[string]*FunctionDef),
		Actions:     make(map[string]*FunctionDef),
		Metadata:    make(map[string]string),
		Annotations: make(map[string]Value),
	}
	return c
}

// AddQuery registers fn under name and sets fn.Parent to c.
func (c *ClassDef) AddQuery(name string, fn *FunctionDef) {
	fn.Parent = c
	c.Queries[name] = fn
}

// AddAction registers fn under name and sets fn.Parent to c.
func (c *ClassDef) AddAction(name string, fn *FunctionDef) {
	fn.Parent = c
	c.Actions[name] = fn
}

// GetFunction looks up a function by kind+name across both query and
// action maps (kind disambiguates which map to search; "" searches
// both, preferring queries).
func (c *ClassDef) GetFunction(kind FunctionKind, name string) *FunctionDef {
	switch kind {
	case FunctionAction:
		return c.Actions[name]
	default:
		if fn, ok := c.Queries[name]; ok {
			return fn
		}
		return c.Actions[name]
	}
}

// Clone returns a deep copy of c; every cloned FunctionDef's Parent is
// re-pointed at the clone, preserving the Design Notes' "remap parent
// indices" rule for the arena-style back reference.
func (c *ClassDef) Clone() *ClassDef {
	n := &ClassDef{
		Kind:       c.Kind,
		Extends:    append([]string(nil), c.Extends...),
		Queries:    make(map[string]*FunctionDef, len(c.Queries)),
		Actions:    make(map[string]*FunctionDef, len(c.Actions)),
		Metadata:   make(map[string]string, len(c.Metadata)),
		Annotations: make(map[string]Value, len(c.Annotations)),
		IsAbstract: c.IsAbstract,
	}
	for k, v := range c.Metadata {
		n.Metadata[k] = v
	}
	for k, v := range c.Annotations {
		n.Annotations[k] = v.Clone()
	}
	for name, fn := range c.Queries {
		cl := fn.Clone()
		cl.Parent = n
		n.Queries[name] = cl
	}
	for name, fn := range c.Actions {
		cl := fn.Clone()
		cl.Parent = n
		n.Actions[name] = cl
	}
	for _, imp := range c.Imports {
		n.Imports = append(n.Imports, imp.Clone())
	}
	return n
}

// EvalName implements analysis.Expression, allowing descriptive
// validation error messages.
func (c *ClassDef) EvalName() string { return fmt.Sprintf("class %q", c.Kind) }

// WalkSets exposes the class's function definitions to the
// internal/analysis Prepare/Validate/Finalize engine.
func (c *ClassDef) WalkSets(walk func([]analysis.Expression)) {
	var nodes []analysis.Expression
	for _, fn := range c.Queries {
		nodes = append(nodes, fn)
	}
	for _, fn := range c.Actions {
		nodes = append(nodes, fn)
	}
	if len(nodes) > 0 {
		walk(nodes)
	}
}

// Validate checks class-level structural invariants: kind is non-empty
// and query/action names don't collide with each other.
func (c *ClassDef) Validate() error {
	if c.Kind == "" {
		return fmt.Errorf("class: kind is required")
	}
	for name := range c.Queries {
		if _, clash := c.Actions[name]; clash {
			return fmt.Errorf("class %q: %q is declared as both a query and an action", c.Kind, name)
		}
	}
	return nil
}
