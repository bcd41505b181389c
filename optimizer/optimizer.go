// Package optimizer implements the §4.7 normalization passes applied to a
// typed Program between semantic analysis and compilation: filter
// simplification (De Morgan, constant folding, equality-to-in_array
// merging), redundant-projection elimination, and the handful of
// structural rewrites that let the compiler assume a canonical shape
// (Monitor lifted above Projection, Sort pushed below a pure column-rename
// Compute).
//
// Every OptimizeX function is pure: it returns a new tree and never
// mutates its argument in place, so a caller holding a reference to the
// pre-optimization tree keeps a valid, untouched copy.
package optimizer

import (
	"context"

	"github.com/stanford-oval/thingtalk/ast"
	"github.com/stanford-oval/thingtalk/telemetry"
)

// Option configures an Optimizer.
type Option func(*Optimizer)

// WithTracer attaches a tracer; OptimizeProgram opens one span per call.
func WithTracer(t telemetry.Tracer) Option { return func(o *Optimizer) { o.tracer = t } }

// Optimizer runs the normalization laws over a typed Program. It carries
// no mutable state beyond its tracer and is safe for concurrent use.
type Optimizer struct {
	tracer telemetry.Tracer
}

// New constructs an Optimizer.
func New(opts ...Option) *Optimizer {
	o := &Optimizer{tracer: telemetry.NewNoopTracer()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// OptimizeProgram rewrites every Declaration/Assignment/Rule primitive of
// prog to its normal form, in place on the Program's own slots (the
// primitives themselves are replaced, not mutated).
func (o *Optimizer) OptimizeProgram(ctx context.Context, prog *ast.Program) {
	_, span := o.tracer.Start(ctx, "optimizer.optimizeProgram")
	defer span.End()

	for _, d := range prog.Declarations {
		if d.Stream != nil {
			d.Stream = OptimizeStream(d.Stream)
		}
		if d.Table != nil {
			d.Table = OptimizeTable(d.Table)
		}
	}
	for _, as := range prog.Assignments {
		if as.Table != nil {
			as.Table = OptimizeTable(as.Table)
		}
	}
	for _, r := range prog.Rules {
		if r.Stream != nil {
			r.Stream = OptimizeStream(r.Stream)
		}
		if r.Table != nil {
			r.Table = OptimizeTable(r.Table)
		}
	}
}
