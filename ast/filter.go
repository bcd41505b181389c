package ast

import "fmt"

// BinaryOp enumerates the filter-atom comparison/containment operators of
// §4.4's BinaryOps table.
type BinaryOp string

const (
	OpGT          BinaryOp = ">"
	OpLT          BinaryOp = "<"
	OpGE          BinaryOp = ">="
	OpLE          BinaryOp = "<="
	OpEQ          BinaryOp = "=="
	OpLikeFwd     BinaryOp = "=~"  // substring, directional: value in arg
	OpLikeRev     BinaryOp = "~="  // substring, directional: arg in value
	OpStartsWith  BinaryOp = "starts_with"
	OpEndsWith    BinaryOp = "ends_with"
	OpPrefixOf    BinaryOp = "prefix_of"
	OpSuffixOf    BinaryOp = "suffix_of"
	OpContains    BinaryOp = "contains"
	OpInArray     BinaryOp = "in_array"
	OpContainsFuz BinaryOp = "contains~"
	OpInArrayFuz  BinaryOp = "in_array~"
	OpFuzContains BinaryOp = "~contains"
	OpFuzInArray  BinaryOp = "~in_array"
	OpHasMember   BinaryOp = "has_member"
	OpGroupMember BinaryOp = "group_member"
)

// FilterExpression is the common interface for boolean filter nodes, per
// §3.3's "Filter (boolean) expression" grammar.
type FilterExpression interface {
	// Kind names the concrete variant ("true","false","and","or","not",
	// "atom","external","compute") for the visitor protocol and IR
	// emission.
	Kind() string
	Clone() FilterExpression
	String() string
}

// TrueFilter is the literal "true" predicate.
type TrueFilter struct{}

func (f *TrueFilter) Kind() string            { return "true" }
func (f *TrueFilter) Clone() FilterExpression { return &TrueFilter{} }
func (f *TrueFilter) String() string          { return "true" }

// FalseFilter is the literal "false" predicate.
type FalseFilter struct{}

func (f *FalseFilter) Kind() string            { return "false" }
func (f *FalseFilter) Clone() FilterExpression { return &FalseFilter{} }
func (f *FalseFilter) String() string          { return "false" }

// AndFilter is the conjunction of its operands.
type AndFilter struct{ Operands []FilterExpression }

func (f *AndFilter) Kind() string { return "and" }
func (f *AndFilter) Clone() FilterExpression {
	ops := make([]FilterExpression, len(f.Operands))
	for i, o := range f.Operands {
		ops[i] = o.Clone()
	}
	return &AndFilter{Operands: ops}
}
func (f *AndFilter) String() string { return joinFilters(f.Operands, " && ") }

// OrFilter is the disjunction of its operands.
type OrFilter struct{ Operands []FilterExpression }

func (f *OrFilter) Kind() string { return "or" }
func (f *OrFilter) Clone() FilterExpression {
	ops := make([]FilterExpression, len(f.Operands))
	for i, o := range f.Operands {
		ops[i] = o.Clone()
	}
	return &OrFilter{Operands: ops}
}
func (f *OrFilter) String() string { return joinFilters(f.Operands, " || ") }

// NotFilter negates its operand.
type NotFilter struct{ Operand FilterExpression }

func (f *NotFilter) Kind() string            { return "not" }
func (f *NotFilter) Clone() FilterExpression { return &NotFilter{Operand: f.Operand.Clone()} }
func (f *NotFilter) String() string          { return "!(" + f.Operand.String() + ")" }

// AtomFilter compares an argument against a value via a BinaryOp overload.
type AtomFilter struct {
	ArgName string
	Op      BinaryOp
	Value   Value
	// OverloadIdx is filled in by semantic analysis once the specific
	// BinaryOps overload (operand types) is resolved.
	OverloadIdx int
}

func (f *AtomFilter) Kind() string { return "atom" }
func (f *AtomFilter) Clone() FilterExpression {
	return &AtomFilter{ArgName: f.ArgName, Op: f.Op, Value: f.Value.Clone(), OverloadIdx: f.OverloadIdx}
}
func (f *AtomFilter) String() string {
	return fmt.Sprintf("%s %s %s", f.ArgName, f.Op, f.Value.String())
}

// ExternalFilter embeds a sub-query used as a predicate, per §3.3.
type ExternalFilter struct {
	Kind_   string // function kind, e.g. "com.twitter"
	Channel string
	InParams []InputParam
	Filter   FilterExpression
	// Schema is filled in by semantic analysis.
	Schema *FunctionDef
}

func (f *ExternalFilter) Kind() string { return "external" }
func (f *ExternalFilter) Clone() FilterExpression {
	ps := make([]InputParam, len(f.InParams))
	for i, p := range f.InParams {
		ps[i] = p.Clone()
	}
	return &ExternalFilter{Kind_: f.Kind_, Channel: f.Channel, InParams: ps, Filter: f.Filter.Clone(), Schema: f.Schema}
}
func (f *ExternalFilter) String() string {
	return fmt.Sprintf("@%s.%s(...), %s", f.Kind_, f.Channel, f.Filter.String())
}

// ComputeFilter compares a scalar expression result against a value,
// mirroring AtomFilter but over a computed scalar instead of a bare
// argument reference.
type ComputeFilter struct {
	Expr        ScalarExpression
	Op          BinaryOp
	Value       Value
	OverloadIdx int
}

func (f *ComputeFilter) Kind() string { return "compute_filter" }
func (f *ComputeFilter) Clone() FilterExpression {
	return &ComputeFilter{Expr: f.Expr.Clone(), Op: f.Op, Value: f.Value.Clone(), OverloadIdx: f.OverloadIdx}
}
func (f *ComputeFilter) String() string {
	return fmt.Sprintf("%s %s %s", f.Expr.String(), f.Op, f.Value.String())
}

// InputParam is a single named-input-parameter binding, e.g.
// `status=title` in an invocation.
type InputParam struct {
	Name  string
	Value Value
}

func (p InputParam) Clone() InputParam { return InputParam{Name: p.Name, Value: p.Value.Clone()} }

func joinFilters(fs []FilterExpression, sep string) string {
	out := ""
	for i, f := range fs {
		if i > 0 {
			out += sep
		}
		out += f.String()
	}
	return out
}
