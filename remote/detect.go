package remote

import "github.com/stanford-oval/thingtalk/ast"

// isRemote reports whether candidate (a primitive's Principal, possibly
// nil) names a principal other than progPrincipal or "self", per §4.6's
// opening sentence. A nil candidate is always local.
func isRemote(candidate, progPrincipal ast.Value) bool {
	if candidate == nil {
		return false
	}
	ce, ok := candidate.(*ast.EntityValue)
	if !ok {
		return false
	}
	if pe, ok := progPrincipal.(*ast.EntityValue); ok && pe.ID == ce.ID && pe.Kind == ce.Kind {
		return false
	}
	return true
}

// findRemoteLeaf descends through the wrapper Table kinds the optimizer
// and parser produce (filter/projection/compute/aggregation/sort/index/
// slice/history), looking for a single remote InvocationTable leaf. It
// does not look inside JoinTable: a remote leaf on either side of a join
// is out of scope, the same deliberate boundary the compiler draws
// around nested joins (see compiler.errAmbiguousJoin).
func findRemoteLeaf(t ast.Table, progPrincipal ast.Value) *ast.InvocationTable {
	switch v := t.(type) {
	case *ast.InvocationTable:
		if isRemote(v.Principal, progPrincipal) {
			return v
		}
		return nil
	case *ast.FilterTable:
		return findRemoteLeaf(v.Table, progPrincipal)
	case *ast.ProjectionTable:
		return findRemoteLeaf(v.Table, progPrincipal)
	case *ast.ComputeTable:
		return findRemoteLeaf(v.Table, progPrincipal)
	case *ast.AggregationTable:
		return findRemoteLeaf(v.Table, progPrincipal)
	case *ast.SortTable:
		return findRemoteLeaf(v.Table, progPrincipal)
	case *ast.IndexTable:
		return findRemoteLeaf(v.Table, progPrincipal)
	case *ast.SliceTable:
		return findRemoteLeaf(v.Table, progPrincipal)
	case *ast.HistoryTable:
		return findRemoteLeaf(v.Table, progPrincipal)
	default:
		return nil
	}
}

// replaceLeaf rewrites t, substituting repl for the occurrence of old
// (compared by pointer identity), and preserves every wrapper's schema
// along the way. It panics if old is not found, since callers only ever
// call it with a leaf just returned by findRemoteLeaf on the same tree.
func replaceLeaf(t ast.Table, old, repl *ast.InvocationTable) ast.Table {
	if iv, ok := t.(*ast.InvocationTable); ok && iv == old {
		return repl
	}
	switch v := t.(type) {
	case *ast.FilterTable:
		n := &ast.FilterTable{Table: replaceLeaf(v.Table, old, repl), Filter: v.Filter}
		n.SetSchema(v.GetSchema())
		return n
	case *ast.ProjectionTable:
		n := &ast.ProjectionTable{Table: replaceLeaf(v.Table, old, repl), Args: v.Args}
		n.SetSchema(v.GetSchema())
		return n
	case *ast.ComputeTable:
		n := &ast.ComputeTable{Table: replaceLeaf(v.Table, old, repl), Expr: v.Expr, Alias: v.Alias}
		n.SetSchema(v.GetSchema())
		return n
	case *ast.AggregationTable:
		n := &ast.AggregationTable{Table: replaceLeaf(v.Table, old, repl), Op: v.Op, Field: v.Field, Alias: v.Alias}
		n.SetSchema(v.GetSchema())
		return n
	case *ast.SortTable:
		n := &ast.SortTable{Table: replaceLeaf(v.Table, old, repl), Field: v.Field, Direction: v.Direction}
		n.SetSchema(v.GetSchema())
		return n
	case *ast.IndexTable:
		n := &ast.IndexTable{Table: replaceLeaf(v.Table, old, repl), Indices: v.Indices}
		n.SetSchema(v.GetSchema())
		return n
	case *ast.SliceTable:
		n := &ast.SliceTable{Table: replaceLeaf(v.Table, old, repl), Base: v.Base, Limit: v.Limit}
		n.SetSchema(v.GetSchema())
		return n
	case *ast.HistoryTable:
		n := &ast.HistoryTable{Table: replaceLeaf(v.Table, old, repl), HistKind: v.HistKind, Base: v.Base, Delta: v.Delta}
		n.SetSchema(v.GetSchema())
		return n
	default:
		panic("remote: replaceLeaf: remote invocation not found in table tree")
	}
}
