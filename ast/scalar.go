package ast

import (
	"strings"

	"github.com/stanford-oval/thingtalk/types"
)

// ScalarExpression is the common interface for computation ("scalar")
// expression nodes, per §3.3.
type ScalarExpression interface {
	Kind() string
	Clone() ScalarExpression
	String() string
	// Resolved returns the type semantic analysis computed for this
	// node, or nil before analysis has run.
	Resolved() types.Type
	// SetResolved records the type semantic analysis computed for this
	// node.
	SetResolved(t types.Type)
}

// PrimaryExpr wraps a literal value or variable reference.
type PrimaryExpr struct {
	Value Value
}

func (e *PrimaryExpr) Kind() string            { return "primary" }
func (e *PrimaryExpr) Clone() ScalarExpression  { return &PrimaryExpr{Value: e.Value.Clone()} }
func (e *PrimaryExpr) String() string           { return e.Value.String() }
func (e *PrimaryExpr) Resolved() types.Type     { return e.Value.Type() }
func (e *PrimaryExpr) SetResolved(t types.Type) {}

// DerivedExpr applies a ComputationOp to one or more scalar sub-expressions.
type DerivedExpr struct {
	Op       ComputationOp
	Operands []ScalarExpression
	resolved types.Type
}

func (e *DerivedExpr) Kind() string { return "derived" }
func (e *DerivedExpr) Clone() ScalarExpression {
	ops := make([]ScalarExpression, len(e.Operands))
	for i, o := range e.Operands {
		ops[i] = o.Clone()
	}
	return &DerivedExpr{Op: e.Op, Operands: ops, resolved: e.resolved}
}
func (e *DerivedExpr) String() string {
	parts := make([]string, len(e.Operands))
	for i, o := range e.Operands {
		parts[i] = o.String()
	}
	return string(e.Op) + "(" + strings.Join(parts, ", ") + ")"
}
func (e *DerivedExpr) Resolved() types.Type     { return e.resolved }
func (e *DerivedExpr) SetResolved(t types.Type) { e.resolved = t }

// BooleanExpr wraps a FilterExpression used in scalar (value) position,
// e.g. as the operand of a computed Boolean column.
type BooleanExpr struct {
	Filter FilterExpression
}

func (e *BooleanExpr) Kind() string            { return "boolean" }
func (e *BooleanExpr) Clone() ScalarExpression  { return &BooleanExpr{Filter: e.Filter.Clone()} }
func (e *BooleanExpr) String() string           { return e.Filter.String() }
func (e *BooleanExpr) Resolved() types.Type     { return types.Boolean }
func (e *BooleanExpr) SetResolved(t types.Type) {}
