// Package semantic implements the type checker: the pass that walks a
// parsed ast.Program (or a standalone ClassDef, PermissionRule, Example, or
// Bookkeeping input) and fills in every primitive's Schema slot, resolves
// filter/scalar overloads, and rejects anything that violates the type
// system's invariants. It is the only package besides schema.Retriever that
// talks to the outside world (through the Retriever's Source), and the
// only package that mutates ast nodes in place.
package semantic

import (
	"context"
	"fmt"

	"github.com/stanford-oval/thingtalk/ast"
	"github.com/stanford-oval/thingtalk/internal/analysis"
	"github.com/stanford-oval/thingtalk/schema"
	"github.com/stanford-oval/thingtalk/telemetry"
	"github.com/stanford-oval/thingtalk/types"
	"github.com/stanford-oval/thingtalk/typeerrors"
)

// Mode selects how strictly input-parameter assignability is enforced.
type Mode int

const (
	// Strict rejects any InputParam whose value type is not assignable to
	// the declared argument type.
	Strict Mode = iota
	// Lenient additionally widens a VarRefValue that names nothing in
	// scope to Any instead of reporting it, deferring the mismatch to
	// runtime. An UndefinedValue (a slot-filling hole, typed Any) is
	// accepted in either mode. Lenient is the default, matching a dialogue agent's
	// incremental construction of a Program one primitive at a time.
	Lenient
)

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithMode overrides the default Lenient input-parameter mode.
func WithMode(m Mode) Option { return func(a *Analyzer) { a.mode = m } }

// WithEntitySubtypes overrides the default entity-subtype map.
func WithEntitySubtypes(subs types.EntitySubtypes) Option {
	return func(a *Analyzer) { a.entitySubs = subs }
}

// WithLogger attaches a structured logger.
func WithLogger(l telemetry.Logger) Option { return func(a *Analyzer) { a.logger = l } }

// WithTracer attaches a tracer; typeCheckProgram opens one span per call.
func WithTracer(t telemetry.Tracer) Option { return func(a *Analyzer) { a.tracer = t } }

// Analyzer is the type checker's entry point, bound to a schema.Retriever
// for resolving external device kinds and mixins.
type Analyzer struct {
	retriever  *schema.Retriever
	mode       Mode
	entitySubs types.EntitySubtypes
	logger     telemetry.Logger
	tracer     telemetry.Tracer
}

// NewAnalyzer constructs an Analyzer backed by retriever.
func NewAnalyzer(retriever *schema.Retriever, opts ...Option) *Analyzer {
	a := &Analyzer{
		retriever:  retriever,
		mode:       Lenient,
		entitySubs: types.DefaultEntitySubtypes(),
		logger:     telemetry.NewNoopLogger(),
		tracer:     telemetry.NewNoopTracer(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// checker carries the mutable per-call state (error accumulator, scope
// threading) through one recursive-descent walk. It is never shared across
// concurrent TypeCheck* calls.
type checker struct {
	a    *Analyzer
	ctx  context.Context
	errs typeerrors.List

	// declSchemas maps a Declaration/Assignment name to the output
	// signature a later VarRefStream/VarRefTable/VarRefAction may bind
	// against. Names are a single namespace, mirroring a Program's own
	// var_ref grammar which does not distinguish stream/table/action
	// references by a separate lookup table.
	declSchemas map[string]*ast.FunctionDef
}

func (a *Analyzer) newChecker(ctx context.Context) *checker {
	return &checker{a: a, ctx: ctx, declSchemas: make(map[string]*ast.FunctionDef)}
}

func (c *checker) fail(kind typeerrors.Kind, path, format string, args ...any) {
	c.errs.Append(typeerrors.Newf(kind, path, format, args...))
}

// TypeCheckProgram is the main entry point: it validates every locally
// declared ClassDef, then every Declaration/Assignment/Rule in order,
// threading a fresh ast.Scope per top-level primitive and returning the
// aggregated set of type errors (nil if the program is well-typed).
//
// Before the recursive walk, it collects every distinct device kind
// referenced anywhere in prog (via ast.IteratePrimitives) and enqueues
// them all for one Flush, so a rule referencing several kinds — a join,
// or a monitor feeding a remote action — issues one upstream batch
// instead of one per kind, per the retriever's batching contract.
func (a *Analyzer) TypeCheckProgram(ctx context.Context, prog *ast.Program) error {
	ctx, span := a.tracer.Start(ctx, "semantic.typeCheckProgram")
	defer span.End()

	ast.IteratePrimitives(prog, false, func(_ string, p ast.Primitive) {
		if kind, ok := ast.PrimitiveDeviceKind(p); ok {
			a.retriever.EnqueueSchema(kind, false)
		}
	})
	if err := a.retriever.Flush(ctx); err != nil {
		span.RecordError(err)
		return fmt.Errorf("prefetch schemas: %w", err)
	}

	c := a.newChecker(ctx)

	for _, cls := range prog.Classes {
		if err := analysis.Run(cls); err != nil {
			c.fail(typeerrors.InvalidType, cls.Kind, "class %q failed structural validation: %v", cls.Kind, err)
		}
	}

	if prog.Principal != nil {
		c.checkPrincipal(prog.Principal)
	}

	for _, d := range prog.Declarations {
		c.typeCheckDeclaration(d)
	}
	for _, as := range prog.Assignments {
		c.typeCheckAssignment(as)
	}
	for i, r := range prog.Rules {
		c.typeCheckRule(r, i)
	}

	if err := c.errs.ErrorOrNil(); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// TypeCheckClass validates a standalone ClassDef (e.g. one being
// registered into a Thingpedia-like backing store) without a surrounding
// Program, running the structural Prepare/Validate/Finalize passes.
func (a *Analyzer) TypeCheckClass(ctx context.Context, cls *ast.ClassDef) error {
	if err := analysis.Run(cls); err != nil {
		return typeerrors.NewWithCause(typeerrors.InvalidType, cls.Kind, "class failed structural validation", err)
	}
	return nil
}

// TypeCheckMeta is TypeCheckClass plus a check that every query/action
// carries non-empty natural-language metadata (Doc), which is only
// meaningful when the caller fetched the class with GetFullMeta.
func (a *Analyzer) TypeCheckMeta(ctx context.Context, cls *ast.ClassDef) error {
	if err := a.TypeCheckClass(ctx, cls); err != nil {
		return err
	}
	c := a.newChecker(ctx)
	for name, fn := range cls.Queries {
		if fn.Doc == "" {
			c.fail(typeerrors.InvalidAnnotation, cls.Kind+"."+name, "query %q is missing natural-language documentation", name)
		}
	}
	for name, fn := range cls.Actions {
		if fn.Doc == "" {
			c.fail(typeerrors.InvalidAnnotation, cls.Kind+"."+name, "action %q is missing natural-language documentation", name)
		}
	}
	return c.errs.ErrorOrNil()
}

// TypeCheckBookkeeping validates a Bookkeeping top-level input: a
// BookkeepingChoice must carry a Number value, every other intent carries
// no value or an opaque one the collaborator layer interprets itself.
func (a *Analyzer) TypeCheckBookkeeping(ctx context.Context, b *ast.Bookkeeping) error {
	if b.Intent == ast.BookkeepingChoice {
		if b.Value == nil || !b.Value.Type().Equals(types.Number) {
			return typeerrors.New(typeerrors.InvalidArgument, "bookkeeping.choice", "a choice answer must carry a Number index")
		}
	}
	return nil
}

// TypeCheckExample validates one Example of a Dataset: its Stream/Table/
// Action primitive must type-check like it would inside a Rule, using a
// fresh root scope (an Example has no Principal and no preceding
// declarations to inherit from).
func (a *Analyzer) TypeCheckExample(ctx context.Context, ex *ast.Example) error {
	c := a.newChecker(ctx)
	scope := ast.NewScope()
	switch {
	case ex.Stream != nil:
		c.typeCheckStream(ex.Stream, scope)
	case ex.Table != nil:
		c.typeCheckTable(ex.Table, scope)
	case ex.Action != nil:
		c.typeCheckAction(ex.Action, scope)
	default:
		c.fail(typeerrors.UnknownKind, "example", "example has no Stream, Table or Action primitive")
	}
	return c.errs.ErrorOrNil()
}

// TypeCheckPermissionRule validates a PermissionRule's Source/Actions
// filter expressions against the $source/$action pseudo-scopes documented
// in §4.4 (each filter's atoms reference argument names of whatever
// primitive the host matches it against at enforcement time, so only
// principal well-formedness and filter structural validity are checked
// here, not argument existence against a concrete schema).
func (a *Analyzer) TypeCheckPermissionRule(ctx context.Context, pr *ast.PermissionRule) error {
	c := a.newChecker(ctx)
	if pr.Principal != nil {
		c.checkPrincipal(pr.Principal)
	}
	if pr.Source != nil {
		c.checkFilterStructure(pr.Source)
	}
	for i, f := range pr.Actions {
		if f == nil {
			c.fail(typeerrors.UnknownKind, fmt.Sprintf("permission.actions[%d]", i), "nil action filter")
			continue
		}
		c.checkFilterStructure(f)
	}
	return c.errs.ErrorOrNil()
}

// checkPrincipal validates that a principal reference value is one of the
// two contact entity kinds §4.4 allows as a program/permission-rule
// principal.
func (c *checker) checkPrincipal(v ast.Value) {
	ev, ok := v.(*ast.EntityValue)
	if !ok {
		c.fail(typeerrors.InvalidPrincipal, "principal", "principal must be a tt:contact or tt:username entity reference")
		return
	}
	if ev.Kind != "tt:contact" && ev.Kind != "tt:username" {
		c.fail(typeerrors.InvalidPrincipal, "principal", "principal entity kind %q is not tt:contact or tt:username", ev.Kind)
	}
}

// checkFilterStructure recursively validates that a PermissionRule's
// filter tree contains only atom/and/or/not/true/false nodes (no
// external/compute sub-query, which would require a concrete schema this
// standalone check does not have).
func (c *checker) checkFilterStructure(f ast.FilterExpression) {
	switch v := f.(type) {
	case *ast.TrueFilter, *ast.FalseFilter, *ast.AtomFilter:
	case *ast.AndFilter:
		for _, o := range v.Operands {
			c.checkFilterStructure(o)
		}
	case *ast.OrFilter:
		for _, o := range v.Operands {
			c.checkFilterStructure(o)
		}
	case *ast.NotFilter:
		c.checkFilterStructure(v.Operand)
	default:
		c.fail(typeerrors.InvalidOperator, "permission.filter", "permission rule filters may not contain %q sub-expressions", f.Kind())
	}
}
