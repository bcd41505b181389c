package schema

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/stanford-oval/thingtalk/ast"
	"github.com/stanford-oval/thingtalk/types"
)

// RedisCache is a shared, process-independent Cache backend, for
// deployments that run several analyzer processes against the same
// Thingpedia-like backing store. It trades full fidelity for a compact
// wire shape: only the type-level information semantic analysis
// consults (query/action signatures, metadata, is_list/is_monitorable,
// poll_interval/require_filter/default_projection/url/doc/confirm) is
// round-tripped; import statements and Annotations/ExtraAnnotations
// (which carry arbitrary ast.Value payloads, e.g. NL metadata) are not
// cached and always come from a fresh Source fetch on a miss.
// Consequently RedisCache should back the fast-path GetFullSchema /
// GetSchemaAndNames calls a compiler's typecheck loop makes; a host
// needing full fidelity (e.g. for slot-filling UI) should route
// GetFullMeta through the in-memory Cache or bypass caching.
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisCache constructs a RedisCache. ttl of zero means entries never
// expire (the caller is responsible for invalidation).
func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

func (r *RedisCache) GetClass(kind string, wantMeta bool) (*ast.ClassDef, bool) {
	// RedisCache never stores metadata-bearing entries (Doc strings are
	// kept, but Annotations/ExtraAnnotations are not), so a caller asking
	// for full metadata always misses and refetches from Source.
	if wantMeta {
		return nil, false
	}
	raw, err := r.rdb.Get(context.Background(), classKey(kind)).Result()
	if errors.Is(err, redis.Nil) || err != nil {
		return nil, false
	}
	var w classWire
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		return nil, false
	}
	return w.toClassDef(), true
}

func (r *RedisCache) SetClass(kind string, wantMeta bool, c *ast.ClassDef) {
	if wantMeta {
		return
	}
	w := classDefToWire(c)
	buf, err := json.Marshal(w)
	if err != nil {
		return
	}
	r.rdb.Set(context.Background(), classKey(kind), buf, r.ttl)
}

func (r *RedisCache) GetMixin(name string) (*MixinDef, bool) {
	raw, err := r.rdb.Get(context.Background(), mixinKey(name)).Result()
	if errors.Is(err, redis.Nil) || err != nil {
		return nil, false
	}
	var m MixinDef
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, false
	}
	return &m, true
}

func (r *RedisCache) SetMixin(name string, m *MixinDef) {
	buf, err := json.Marshal(m)
	if err != nil {
		return
	}
	r.rdb.Set(context.Background(), mixinKey(name), buf, r.ttl)
}

func (r *RedisCache) InvalidateKind(kind string) {
	r.rdb.Del(context.Background(), classKey(kind))
}

func (r *RedisCache) InvalidateAll() {
	// A full flush is deliberately not implemented against a shared
	// Redis keyspace (it could evict unrelated keys); callers that need
	// this should key their Redis database exclusively for this cache
	// and call FlushDB themselves.
}

func classKey(kind string) string { return "thingtalk:class:" + kind }
func mixinKey(name string) string { return "thingtalk:mixin:" + name }

// classWire / functionWire / argWire / typeWire are the cache's compact
// wire shapes for types.Type, since types.Type is an interface without
// JSON tags and is not part of any on-wire program format this module
// defines.
type classWire struct {
	Kind       string                  `json:"kind"`
	Extends    []string                `json:"extends,omitempty"`
	Queries    map[string]functionWire `json:"queries,omitempty"`
	Actions    map[string]functionWire `json:"actions,omitempty"`
	Metadata   map[string]string       `json:"metadata,omitempty"`
	IsAbstract bool                    `json:"is_abstract,omitempty"`
}

type functionWire struct {
	Kind              string    `json:"kind"`
	Name              string    `json:"name"`
	Args              []argWire `json:"args,omitempty"`
	IsList            bool      `json:"is_list,omitempty"`
	IsMonitorable     bool      `json:"is_monitorable,omitempty"`
	PollIntervalMS    int64     `json:"poll_interval_ms,omitempty"`
	RequireFilter     bool      `json:"require_filter,omitempty"`
	DefaultProjection []string  `json:"default_projection,omitempty"`
	URL               string    `json:"url,omitempty"`
	Doc               string    `json:"doc,omitempty"`
	Confirm           string    `json:"confirm,omitempty"`
}

type argWire struct {
	Direction string   `json:"direction"`
	Name      string   `json:"name"`
	Type      typeWire `json:"type"`
	Required  bool     `json:"required,omitempty"`
}

// typeWire mirrors the types.Type variant tree; Tag identifies which
// field is populated.
type typeWire struct {
	Tag      string     `json:"tag"`
	Name     string     `json:"name,omitempty"`     // Entity.Kind, Unknown.Name, Var.Name
	Unit     string     `json:"unit,omitempty"`     // Measure.BaseUnit
	Entries  []string   `json:"entries,omitempty"`  // Enum.Entries
	Elem     *typeWire  `json:"elem,omitempty"`     // Array.Elem
	Fields   []argWire  `json:"fields,omitempty"`   // Compound, reusing argWire for name+type pairs (Direction/Required unused)
}

func classDefToWire(c *ast.ClassDef) classWire {
	w := classWire{Kind: c.Kind, Extends: c.Extends, IsAbstract: c.IsAbstract, Metadata: c.Metadata}
	if len(c.Queries) > 0 {
		w.Queries = make(map[string]functionWire, len(c.Queries))
		for name, fn := range c.Queries {
			w.Queries[name] = functionDefToWire(fn)
		}
	}
	if len(c.Actions) > 0 {
		w.Actions = make(map[string]functionWire, len(c.Actions))
		for name, fn := range c.Actions {
			w.Actions[name] = functionDefToWire(fn)
		}
	}
	return w
}

func (w classWire) toClassDef() *ast.ClassDef {
	c := ast.NewClassDef(w.Kind, w.Extends)
	c.IsAbstract = w.IsAbstract
	if w.Metadata != nil {
		c.Metadata = w.Metadata
	}
	for name, fw := range w.Queries {
		c.AddQuery(name, fw.toFunctionDef())
	}
	for name, fw := range w.Actions {
		c.AddAction(name, fw.toFunctionDef())
	}
	return c
}

func functionDefToWire(f *ast.FunctionDef) functionWire {
	args := make([]argWire, len(f.Args))
	for i, a := range f.Args {
		args[i] = argWire{Direction: string(a.Direction), Name: a.Name, Type: typeToWire(a.Type), Required: a.Required}
	}
	return functionWire{
		Kind: string(f.Kind), Name: f.Name, Args: args,
		IsList: f.IsList, IsMonitorable: f.IsMonitorable,
		PollIntervalMS: f.PollInterval.Milliseconds(), RequireFilter: f.RequireFilter,
		DefaultProjection: f.DefaultProjection, URL: f.URL, Doc: f.Doc, Confirm: string(f.Confirm),
	}
}

func (fw functionWire) toFunctionDef() *ast.FunctionDef {
	args := make([]ast.ArgumentDef, len(fw.Args))
	for i, aw := range fw.Args {
		args[i] = ast.ArgumentDef{Direction: ast.ArgDirection(aw.Direction), Name: aw.Name, Type: aw.Type.toType(), Required: aw.Required}
	}
	return &ast.FunctionDef{
		Kind: ast.FunctionKind(fw.Kind), Name: fw.Name, Args: args,
		IsList: fw.IsList, IsMonitorable: fw.IsMonitorable,
		PollInterval: time.Duration(fw.PollIntervalMS) * time.Millisecond, RequireFilter: fw.RequireFilter,
		DefaultProjection: fw.DefaultProjection, URL: fw.URL, Doc: fw.Doc, Confirm: ast.ConfirmationLevel(fw.Confirm),
	}
}

func typeToWire(t types.Type) typeWire {
	switch v := t.(type) {
	case *types.EntityType:
		return typeWire{Tag: "entity", Name: v.Kind}
	case *types.MeasureType:
		return typeWire{Tag: "measure", Unit: v.BaseUnit}
	case *types.EnumType:
		return typeWire{Tag: "enum", Entries: v.Entries}
	case *types.ArrayType:
		elem := typeToWire(v.Elem)
		return typeWire{Tag: "array", Elem: &elem}
	case *types.CompoundType:
		fields := make([]argWire, len(v.Order))
		for i, name := range v.Order {
			fields[i] = argWire{Name: name, Type: typeToWire(v.Fields[name])}
		}
		return typeWire{Tag: "compound", Name: v.Name, Fields: fields}
	case *types.UnknownType:
		return typeWire{Tag: "unknown", Name: v.Name}
	case *types.TypeVar:
		return typeWire{Tag: "var", Name: v.Name}
	default:
		return typeWire{Tag: "primitive", Name: t.String()}
	}
}

func (w typeWire) toType() types.Type {
	switch w.Tag {
	case "entity":
		return types.Entity(w.Name)
	case "measure":
		return types.Measure(w.Unit)
	case "enum":
		return types.Enum(w.Entries)
	case "array":
		if w.Elem == nil {
			return types.Array(types.Any)
		}
		return types.Array(w.Elem.toType())
	case "compound":
		fields := make(map[string]types.Type, len(w.Fields))
		order := make([]string, len(w.Fields))
		for i, f := range w.Fields {
			fields[f.Name] = f.Type.toType()
			order[i] = f.Name
		}
		return types.Compound(w.Name, fields, order)
	case "unknown":
		return types.Unknown(w.Name)
	case "var":
		return types.Var(w.Name)
	default:
		return primitiveFromName(w.Name)
	}
}

func primitiveFromName(name string) types.Type {
	switch name {
	case "Boolean":
		return types.Boolean
	case "String":
		return types.String
	case "Number":
		return types.Number
	case "Currency":
		return types.Currency
	case "Time":
		return types.Time
	case "Date":
		return types.Date
	case "RecurrentTimeSpecification":
		return types.RecurrentTimeSpecification
	case "Location":
		return types.Location
	case "ArgMap":
		return types.ArgMap
	case "Object":
		return types.Object
	default:
		return types.Any
	}
}
