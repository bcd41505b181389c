package optimizer

import "github.com/stanford-oval/thingtalk/ast"

// OptimizeTable rewrites t's filter sub-expressions to normal form and
// applies the structural table-level simplifications, recursing
// bottom-up. It assumes schemas have already been filled in by semantic
// analysis (the redundant-projection and shadowed-alias laws need to see
// a primitive's declared output columns).
func OptimizeTable(t ast.Table) ast.Table {
	switch v := t.(type) {
	case *ast.InvocationTable, *ast.ResultRefTable, *ast.VarRefTable:
		return t

	case *ast.FilterTable:
		inner := OptimizeTable(v.Table)
		filter := OptimizeFilter(v.Filter)
		if _, ok := filter.(*ast.TrueFilter); ok {
			return inner
		}
		nf := &ast.FilterTable{Table: inner, Filter: filter}
		nf.SetSchema(v.GetSchema())
		return nf

	case *ast.ProjectionTable:
		inner := OptimizeTable(v.Table)

		// drop Projection(T, allFields(T))
		if schema := inner.GetSchema(); schema != nil && sameColumns(v.Args, outColumnNames(schema)) {
			return inner
		}
		// Projection(Projection(T, S1), S2) = Projection(T, S2) when S2 ⊆ S1
		if innerProj, ok := inner.(*ast.ProjectionTable); ok && subsetOf(v.Args, innerProj.Args) {
			merged := &ast.ProjectionTable{Table: innerProj.Table, Args: v.Args}
			merged.SetSchema(v.GetSchema())
			return OptimizeTable(merged)
		}
		// a Compute whose alias this projection never selects is dead;
		// drop it instead of projecting it away.
		if compute, ok := inner.(*ast.ComputeTable); ok && !contains(v.Args, compute.Alias) {
			dropped := &ast.ProjectionTable{Table: compute.Table, Args: v.Args}
			dropped.SetSchema(v.GetSchema())
			return OptimizeTable(dropped)
		}
		proj := &ast.ProjectionTable{Table: inner, Args: v.Args}
		proj.SetSchema(v.GetSchema())
		return proj

	case *ast.ComputeTable:
		nc := &ast.ComputeTable{Table: OptimizeTable(v.Table), Expr: v.Expr, Alias: v.Alias}
		nc.SetSchema(v.GetSchema())
		return nc

	case *ast.AggregationTable:
		na := &ast.AggregationTable{Table: OptimizeTable(v.Table), Op: v.Op, Field: v.Field, Alias: v.Alias}
		na.SetSchema(v.GetSchema())
		return na

	case *ast.SortTable:
		inner := OptimizeTable(v.Table)
		// Sort(Compute(T, x as a), a) = Compute(Sort(T, x), a) when the
		// compute's defining expression is itself a bare column reference
		// (the representable subset of the general law given a SortTable
		// field is a column name, not an arbitrary expression).
		if compute, ok := inner.(*ast.ComputeTable); ok && v.Field == compute.Alias {
			if col, ok := asColumnRef(compute.Expr); ok {
				sorted := &ast.SortTable{Table: compute.Table, Field: col, Direction: v.Direction}
				sorted.SetSchema(compute.Table.GetSchema())
				wrapped := &ast.ComputeTable{Table: sorted, Expr: compute.Expr, Alias: compute.Alias}
				wrapped.SetSchema(v.GetSchema())
				return wrapped
			}
		}
		ns := &ast.SortTable{Table: inner, Field: v.Field, Direction: v.Direction}
		ns.SetSchema(v.GetSchema())
		return ns

	case *ast.IndexTable:
		ni := &ast.IndexTable{Table: OptimizeTable(v.Table), Indices: v.Indices}
		ni.SetSchema(v.GetSchema())
		return ni

	case *ast.SliceTable:
		nsl := &ast.SliceTable{Table: OptimizeTable(v.Table), Base: v.Base, Limit: v.Limit}
		nsl.SetSchema(v.GetSchema())
		return nsl

	case *ast.JoinTable:
		nj := &ast.JoinTable{Left: OptimizeTable(v.Left), Right: OptimizeTable(v.Right), InParams: v.InParams}
		nj.SetSchema(v.GetSchema())
		return nj

	case *ast.HistoryTable:
		nh := &ast.HistoryTable{Table: OptimizeTable(v.Table), HistKind: v.HistKind, Base: v.Base, Delta: v.Delta}
		nh.SetSchema(v.GetSchema())
		return nh

	default:
		return t
	}
}
