// Package schema implements the batched, cached schema-retriever facade
// that sits between the semantic analyzer and a host-provided Source of
// truth (typically a Thingpedia-like registry). It is the sole
// asynchronous boundary in the core, per the concurrency model: every
// operation is a context-aware, eventually-resolved call, and requests
// issued within the same logical analysis tick are coalesced into one
// upstream batch.
package schema

import (
	"context"
	"sync"

	"golang.org/x/time/rate"

	"github.com/stanford-oval/thingtalk/ast"
	"github.com/stanford-oval/thingtalk/telemetry"
)

// Source is the host-provided backing store a Retriever batches requests
// against. A single FetchClasses/FetchMixins call may cover many
// kinds/names at once; a failure for one kind must not prevent its
// siblings in the same batch from resolving, per §4.3's "failed lookups
// for one kind are reified as errors attached to that kind only".
type Source interface {
	// FetchClasses resolves kinds to ClassDefs. wantMeta requests
	// natural-language metadata in addition to types. The returned map
	// covers every requested kind that resolved; kinds missing from both
	// maps are treated as UnknownKind by the caller.
	FetchClasses(ctx context.Context, kinds []string, wantMeta bool) (classes map[string]*ast.ClassDef, failures map[string]error)
	// FetchMixins resolves mixin names to MixinDefs.
	FetchMixins(ctx context.Context, names []string) (mixins map[string]*MixinDef, failures map[string]error)
	// FetchMemorySchema resolves a local "memory" table name to its
	// output signature, or nil if the table does not exist (not an
	// error).
	FetchMemorySchema(ctx context.Context, table string) (*ast.FunctionDef, error)
}

// Option configures a Retriever, following the functional-options idiom
// used throughout this module's analyzer/compiler/factoring constructors.
type Option func(*Retriever)

// WithCache overrides the default in-memory Cache.
func WithCache(c Cache) Option { return func(r *Retriever) { r.cache = c } }

// WithRateLimit caps the number of upstream batch dispatches per second,
// smoothing bursts of schema lookups issued across many primitives in a
// single analysis tick.
func WithRateLimit(qps float64, burst int) Option {
	return func(r *Retriever) { r.limiter = rate.NewLimiter(rate.Limit(qps), burst) }
}

// WithLogger attaches a structured logger.
func WithLogger(l telemetry.Logger) Option { return func(r *Retriever) { r.logger = l } }

// WithMetrics attaches a metrics recorder.
func WithMetrics(m telemetry.Metrics) Option { return func(r *Retriever) { r.metrics = m } }

// WithTracer attaches a tracer.
func WithTracer(t telemetry.Tracer) Option { return func(r *Retriever) { r.tracer = t } }

// Retriever is the facade the semantic analyzer consults for every
// external schema lookup. It is safe for concurrent use; its cache is
// guarded by an advisory lock released before invoking the (potentially
// slow) Source batch call, per §5.
type Retriever struct {
	source Source
	cache  Cache

	limiter *rate.Limiter
	logger  telemetry.Logger
	metrics telemetry.Metrics
	tracer  telemetry.Tracer

	mu            sync.Mutex
	pendingKinds  map[string]bool // kind -> wantMeta
	pendingMixins map[string]bool
}

// NewRetriever constructs a Retriever backed by source, applying opts in
// order. The default Cache is an in-memory map; the default
// logger/metrics/tracer are no-ops.
func NewRetriever(source Source, opts ...Option) *Retriever {
	r := &Retriever{
		source:        source,
		cache:         NewMemCache(),
		logger:        telemetry.NewNoopLogger(),
		metrics:       telemetry.NewNoopMetrics(),
		tracer:        telemetry.NewNoopTracer(),
		pendingKinds:  make(map[string]bool),
		pendingMixins: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// EnqueueSchema marks kind as needed in the next Flush, without blocking.
// The semantic analyzer calls this while walking a Program's primitives
// so that every kind referenced in one tick lands in a single upstream
// FetchClasses call.
func (r *Retriever) EnqueueSchema(kind string, wantMeta bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pendingKinds[kind] {
		return
	}
	if _, ok := r.cache.GetClass(kind, wantMeta); ok {
		return
	}
	r.pendingKinds[kind] = wantMeta
}

// EnqueueMixin marks name as needed in the next Flush.
func (r *Retriever) EnqueueMixin(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.cache.GetMixin(name); ok {
		return
	}
	r.pendingMixins[name] = true
}

// Flush dequeues every pending kind/mixin and issues one batched Source
// call per category, populating the cache. It is the "suspension at the
// first dequeue of pending requests" point from §5: the cache lock is
// released before the (slow) Source call so other goroutines can keep
// enqueueing for the next tick.
func (r *Retriever) Flush(ctx context.Context) error {
	r.mu.Lock()
	kinds := r.pendingKinds
	mixins := r.pendingMixins
	r.pendingKinds = make(map[string]bool)
	r.pendingMixins = make(map[string]bool)
	r.mu.Unlock()

	if len(kinds) == 0 && len(mixins) == 0 {
		return nil
	}
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	ctx, span := r.tracer.Start(ctx, "schema.Flush")
	defer span.End()

	if len(kinds) > 0 {
		if err := r.flushKinds(ctx, kinds); err != nil {
			return err
		}
	}
	if len(mixins) > 0 {
		r.flushMixins(ctx, mixins)
	}
	return nil
}

func (r *Retriever) flushKinds(ctx context.Context, kinds map[string]bool) error {
	// A single upstream call must satisfy every caller's metadata need;
	// request metadata for the whole batch if any one kind wants it, and
	// let per-kind cache entries record which kinds actually got it.
	wantMeta := false
	names := make([]string, 0, len(kinds))
	for k, m := range kinds {
		names = append(names, k)
		wantMeta = wantMeta || m
	}

	classes, failures := r.source.FetchClasses(ctx, names, wantMeta)
	r.metrics.IncCounter("schema.batch.size", float64(len(names)), "category", "class")
	for kind, cls := range classes {
		r.cache.SetClass(kind, kinds[kind], cls)
	}
	for kind, err := range failures {
		r.logger.Error(ctx, "schema: class lookup failed", "kind", kind, "error", err.Error())
		r.metrics.IncCounter("schema.errors", 1, "kind", kind)
	}
	return nil
}

func (r *Retriever) flushMixins(ctx context.Context, mixins map[string]bool) {
	names := make([]string, 0, len(mixins))
	for n := range mixins {
		names = append(names, n)
	}
	resolved, failures := r.source.FetchMixins(ctx, names)
	r.metrics.IncCounter("schema.batch.size", float64(len(names)), "category", "mixin")
	for name, m := range resolved {
		r.cache.SetMixin(name, m)
	}
	for name, err := range failures {
		r.logger.Error(ctx, "schema: mixin lookup failed", "name", name, "error", err.Error())
	}
}

// GetFullSchema resolves kind's types-only ClassDef, flushing any
// pending batch (including kind itself) if it is not already cached.
func (r *Retriever) GetFullSchema(ctx context.Context, kind string) (*ast.ClassDef, error) {
	return r.getClass(ctx, kind, false)
}

// GetFullMeta resolves kind's ClassDef including natural-language
// metadata.
func (r *Retriever) GetFullMeta(ctx context.Context, kind string) (*ast.ClassDef, error) {
	return r.getClass(ctx, kind, true)
}

func (r *Retriever) getClass(ctx context.Context, kind string, wantMeta bool) (*ast.ClassDef, error) {
	if cls, ok := r.cache.GetClass(kind, wantMeta); ok {
		r.metrics.IncCounter("schema.cache.hit", 1)
		return cls, nil
	}
	r.metrics.IncCounter("schema.cache.miss", 1)
	r.EnqueueSchema(kind, wantMeta)
	if err := r.Flush(ctx); err != nil {
		return nil, err
	}
	if cls, ok := r.cache.GetClass(kind, wantMeta); ok {
		return cls, nil
	}
	return nil, &UnknownKindError{Kind: kind}
}

// GetSchemaAndNames resolves a single function's signature from kind.
func (r *Retriever) GetSchemaAndNames(ctx context.Context, kind string, functionType ast.FunctionKind, name string) (*ast.FunctionDef, error) {
	cls, err := r.GetFullSchema(ctx, kind)
	if err != nil {
		return nil, err
	}
	fn := cls.GetFunction(functionType, name)
	if fn == nil {
		return nil, &UnknownFunctionError{Kind: kind, Name: name}
	}
	return fn, nil
}

// GetMemorySchema resolves a local "memory" table's output signature, or
// nil if it does not exist.
func (r *Retriever) GetMemorySchema(ctx context.Context, table string) (*ast.FunctionDef, error) {
	return r.source.FetchMemorySchema(ctx, table)
}

// GetMixins resolves a mixin by name.
func (r *Retriever) GetMixins(ctx context.Context, name string) (*MixinDef, error) {
	if m, ok := r.cache.GetMixin(name); ok {
		return m, nil
	}
	r.EnqueueMixin(name)
	if err := r.Flush(ctx); err != nil {
		return nil, err
	}
	if m, ok := r.cache.GetMixin(name); ok {
		return m, nil
	}
	return nil, &UnknownMixinError{Name: name}
}

// InvalidateKind drops kind from the cache, forcing the next lookup to
// refetch from Source.
func (r *Retriever) InvalidateKind(kind string) { r.cache.InvalidateKind(kind) }

// InvalidateAll drops the entire cache.
func (r *Retriever) InvalidateAll() { r.cache.InvalidateAll() }

// UnknownKindError reports that kind did not resolve through Source.
type UnknownKindError struct{ Kind string }

func (e *UnknownKindError) Error() string { return "schema: unknown kind " + e.Kind }

// UnknownFunctionError reports that kind resolved but name did not.
type UnknownFunctionError struct{ Kind, Name string }

func (e *UnknownFunctionError) Error() string {
	return "schema: unknown function " + e.Name + " on " + e.Kind
}

// UnknownMixinError reports that a mixin name did not resolve.
type UnknownMixinError struct{ Name string }

func (e *UnknownMixinError) Error() string { return "schema: unknown mixin " + e.Name }
