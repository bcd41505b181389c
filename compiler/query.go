package compiler

import "github.com/stanford-oval/thingtalk/ast"

// QuerySpec collects the whole-result-set table operators found while
// walking down from a Table expression's root to its base invocation.
// Exported so a Host implementation (e.g. compiler/hosttest) outside
// this package can inspect it.
// §4.5's instruction set has no opcode for Sort/Index/Slice/Aggregate/
// History: at the ThingTalk level these are refinements of *which query
// is being asked*, not imperative post-processing steps, so this module
// folds them into the single InvokeQuery the host executes, the same
// way a real query engine pushes predicates/limits into a scan rather
// than materializing and filtering row by row. FilterTable is folded the
// same way: its predicate goes into Filter (nested filters are AND-ed
// together) and no per-row AssertFilter is emitted for it.
type QuerySpec struct {
	Filter         ast.FilterExpression
	Computes       []ComputeSpec
	Projection     []string
	Sort           *SortSpec
	Index          []ast.Value
	Slice          *SliceSpec
	Aggregate      *AggregateSpec
	History        *HistorySpec
	ResultRefIndex ast.Value
}

type ComputeSpec struct {
	Expr  ast.ScalarExpression
	Alias string
}

type SortSpec struct {
	Field     string
	Direction ast.SortDirection
}

type SliceSpec struct {
	Base  ast.Value
	Limit ast.Value
}

type AggregateSpec struct {
	Op    ast.ComputationOp
	Field string
	Alias string
}

type HistorySpec struct {
	Kind  ast.HistoryKind
	Base  ast.Value
	Delta ast.Value
}

// resolveQuery walks t down to its base InvocationTable or
// ResultRefTable, collecting the operators above it into a QuerySpec and
// the Endpoint identity to invoke. extra is appended to the base
// invocation's own InParams — the bindings a JoinTable/JoinStream's `on
// (...)` clause supplies from the other side of the join.
func (rc *ruleCompiler) resolveQuery(t ast.Table, extra []ast.InputParam) (kind, channel string, staticArgs []ast.InputParam, spec *QuerySpec, err error) {
	spec = &QuerySpec{}
	for {
		switch v := t.(type) {
		case *ast.InvocationTable:
			staticArgs = append(append([]ast.InputParam{}, v.InParams...), extra...)
			return v.Kind_, v.Channel, staticArgs, spec, nil

		case *ast.ResultRefTable:
			spec.ResultRefIndex = v.Index
			return v.Kind_, v.Channel, extra, spec, nil

		case *ast.FilterTable:
			if spec.Filter == nil {
				spec.Filter = v.Filter
			} else {
				spec.Filter = &ast.AndFilter{Operands: []ast.FilterExpression{spec.Filter, v.Filter}}
			}
			t = v.Table

		case *ast.ProjectionTable:
			spec.Projection = v.Args
			t = v.Table

		case *ast.ComputeTable:
			spec.Computes = append(spec.Computes, ComputeSpec{Expr: v.Expr, Alias: v.Alias})
			t = v.Table

		case *ast.SortTable:
			spec.Sort = &SortSpec{Field: v.Field, Direction: v.Direction}
			t = v.Table

		case *ast.IndexTable:
			spec.Index = v.Indices
			t = v.Table

		case *ast.SliceTable:
			spec.Slice = &SliceSpec{Base: v.Base, Limit: v.Limit}
			t = v.Table

		case *ast.AggregationTable:
			spec.Aggregate = &AggregateSpec{Op: v.Op, Field: v.Field, Alias: v.ResultName()}
			t = v.Table

		case *ast.HistoryTable:
			spec.History = &HistorySpec{Kind: v.HistKind, Base: v.Base, Delta: v.Delta}
			t = v.Table

		case *ast.VarRefTable:
			return "", "", nil, nil, errUnboundVarRef("unresolved table reference %q", v.Name)

		default:
			return "", "", nil, nil, errUnsupported("no lowering for table kind %q", v.Kind())
		}
	}
}
