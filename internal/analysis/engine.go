// Package analysis implements a small three-pass Prepare/Validate/Finalize
// tree-walking engine for expression trees that expose a WalkSets method.
//
// The shape follows codegen/shared/expr_builder_base.go's
// ProtocolExprBuilderBase.PrepareAndValidate, which walks a goa
// eval.RootExpr the same way: a Prepare pass, then a Validate pass that
// aggregates every validation failure before returning, then a Finalize
// pass. This package does not depend on goa.design/goa/v3/eval — there
// is no DSL-execution phase here (the parser is out of scope; ASTs are
// built directly), so only the structural three-pass walk is
// reproduced, not the DSL engine around it.
package analysis

import "github.com/hashicorp/go-multierror"

// Expression is the minimal node shape the engine walks: anything that
// can describe itself for diagnostics.
type Expression interface {
	EvalName() string
}

// Preparer is implemented by nodes that need to set defaults before
// validation runs.
type Preparer interface {
	Expression
	Prepare()
}

// Validator is implemented by nodes that check their own invariants.
// Validate returns a non-nil error (typically collecting several
// complaints) when the node is invalid.
type Validator interface {
	Expression
	Validate() error
}

// Finalizer is implemented by nodes that need a post-validation pass,
// e.g. to resolve cross-references now guaranteed to exist.
type Finalizer interface {
	Expression
	Finalize()
}

// WalkSetter is implemented by root/container nodes: walk is invoked once
// per logically-independent batch of child nodes (mirroring goa's
// eval.SetWalker), so Prepare/Validate/Finalize can run breadth-first.
type WalkSetter interface {
	Expression
	WalkSets(walk func([]Expression))
}

// Run executes the Prepare, Validate, Finalize passes over root and
// everything reachable through its WalkSets. It returns the aggregated
// validation errors (via hashicorp/go-multierror, following the pattern
// the go-multierror dependency is retrieved for elsewhere in the
// corpus), or nil if every node validated cleanly.
func Run(root WalkSetter) error {
	var all [][]Expression
	collect := func(set []Expression) { all = append(all, set) }
	all = append(all, []Expression{root})
	root.WalkSets(collect)

	for _, set := range all {
		for _, n := range set {
			if p, ok := n.(Preparer); ok {
				p.Prepare()
			}
		}
	}

	var merr *multierror.Error
	for _, set := range all {
		for _, n := range set {
			if v, ok := n.(Validator); ok {
				if err := v.Validate(); err != nil {
					merr = multierror.Append(merr, err)
				}
			}
		}
	}
	if merr != nil {
		return merr.ErrorOrNil()
	}

	for _, set := range all {
		for _, n := range set {
			if f, ok := n.(Finalizer); ok {
				f.Finalize()
			}
		}
	}
	return nil
}
