package schema

import (
	"sync"

	"github.com/stanford-oval/thingtalk/ast"
)

// Cache is the pluggable storage backend behind a Retriever. It never
// talks to a Source itself; Retriever owns the batching/fetch logic and
// only uses Cache to avoid refetching a kind/mixin already seen.
type Cache interface {
	GetClass(kind string, wantMeta bool) (*ast.ClassDef, bool)
	SetClass(kind string, wantMeta bool, c *ast.ClassDef)
	GetMixin(name string) (*MixinDef, bool)
	SetMixin(name string, m *MixinDef)
	InvalidateKind(kind string)
	InvalidateAll()
}

// memCache is the default in-process Cache, an advisory-locked map per
// §5's "process-wide state mutated under an advisory lock" rule. wantMeta
// is tracked per kind because a cached types-only ClassDef must not be
// handed back to a GetFullMeta caller.
type memCache struct {
	mu       sync.Mutex
	classes  map[string]*ast.ClassDef
	hasMeta  map[string]bool
	mixins   map[string]*MixinDef
}

// NewMemCache returns an in-memory Cache, the default for a Retriever
// constructed without an explicit cache Option.
func NewMemCache() Cache {
	return &memCache{
		classes: make(map[string]*ast.ClassDef),
		hasMeta: make(map[string]bool),
		mixins:  make(map[string]*MixinDef),
	}
}

func (c *memCache) GetClass(kind string, wantMeta bool) (*ast.ClassDef, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cls, ok := c.classes[kind]
	if !ok {
		return nil, false
	}
	if wantMeta && !c.hasMeta[kind] {
		return nil, false
	}
	return cls, true
}

func (c *memCache) SetClass(kind string, wantMeta bool, cls *ast.ClassDef) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.classes[kind] = cls
	if wantMeta {
		c.hasMeta[kind] = true
	}
}

func (c *memCache) GetMixin(name string) (*MixinDef, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.mixins[name]
	return m, ok
}

func (c *memCache) SetMixin(name string, m *MixinDef) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mixins[name] = m
}

func (c *memCache) InvalidateKind(kind string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.classes, kind)
	delete(c.hasMeta, kind)
}

func (c *memCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.classes = make(map[string]*ast.ClassDef)
	c.hasMeta = make(map[string]bool)
	c.mixins = make(map[string]*MixinDef)
}
