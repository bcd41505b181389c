package compiler

import (
	"context"

	"github.com/stanford-oval/thingtalk/ast"
	"github.com/stanford-oval/thingtalk/telemetry"
)

// Option configures a Compiler, following the functional-options idiom
// used throughout schema.Retriever and semantic.Analyzer.
type Option func(*Compiler)

// WithLogger attaches a structured logger.
func WithLogger(l telemetry.Logger) Option { return func(c *Compiler) { c.logger = l } }

// WithTracer attaches a tracer; CompileProgram opens one span per call.
func WithTracer(t telemetry.Tracer) Option { return func(c *Compiler) { c.tracer = t } }

// WithMetrics attaches a metrics recorder (rule count, functions-per-rule).
func WithMetrics(m telemetry.Metrics) Option { return func(c *Compiler) { c.metrics = m } }

// Compiler lowers a typed, optimized ast.Program's rules into
// CompiledRules. It carries no mutable state beyond its telemetry
// sinks and is safe for concurrent use.
type Compiler struct {
	logger  telemetry.Logger
	tracer  telemetry.Tracer
	metrics telemetry.Metrics
}

// New constructs a Compiler.
func New(opts ...Option) *Compiler {
	c := &Compiler{
		logger:  telemetry.NewNoopLogger(),
		tracer:  telemetry.NewNoopTracer(),
		metrics: telemetry.NewNoopMetrics(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CompileProgram lowers every rule of prog into a CompiledRule, in
// Program.Rules order. VarRef stream/table/action primitives are
// inlined against prog's own Declarations before lowering (a
// declaration is a macro: the compiler has no instruction for
// "invoke a named program-level binding"). A failure on one rule does
// not prevent its siblings from compiling; the first error is
// returned alongside whatever rules did compile.
func (c *Compiler) CompileProgram(ctx context.Context, prog *ast.Program) ([]*CompiledRule, error) {
	ctx, span := c.tracer.Start(ctx, "compiler.compileProgram")
	defer span.End()

	inlined, err := InlineProgram(prog)
	if err != nil {
		c.logger.Error(ctx, "compiler: inlining failed", "error", err.Error())
		return nil, err
	}

	var out []*CompiledRule
	var firstErr error
	for idx, rule := range inlined.Rules {
		cr, err := c.compileRule(rule, idx)
		if err != nil {
			c.logger.Error(ctx, "compiler: rule failed", "rule", idx, "error", err.Error())
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		c.metrics.IncCounter("compiler.rule.functions", float64(len(cr.Functions)))
		c.metrics.IncCounter("compiler.rule.states", float64(cr.States))
		out = append(out, cr)
	}
	return out, firstErr
}

func (c *Compiler) compileRule(rule *ast.Rule, idx int) (*CompiledRule, error) {
	rc := &ruleCompiler{}
	b := newBuilder()
	b.pushBlock()

	emitActions := func(b *builder) error {
		return rc.compileActions(rule.Actions, rule, b)
	}

	var err error
	switch {
	case rule.Stream != nil:
		err = rc.compileStream(rule.Stream, b, emitActions)
	case rule.Table != nil:
		err = rc.compileTable(rule.Table, b, emitActions)
	default:
		err = emitActions(b)
	}

	main := b.popBlock()
	if err != nil {
		return nil, wrapRuleError(idx, err)
	}
	return &CompiledRule{
		States:    uint32(b.nextState),
		Functions: b.functions,
		Main:      main,
	}, nil
}

// ruleCompiler holds the per-rule state threaded through compileStream/
// compileTable/compileActions; a fresh one is built per rule so rules
// never share function tables or state-cell numbering.
type ruleCompiler struct{}
