package optimizer

import "github.com/stanford-oval/thingtalk/ast"

// OptimizeStream rewrites s's filter sub-expressions to normal form and
// applies the structural stream-level simplifications, recursing
// bottom-up, mirroring OptimizeTable.
func OptimizeStream(s ast.Stream) ast.Stream {
	switch v := s.(type) {
	case *ast.TimerStream, *ast.AtTimerStream, *ast.VarRefStream:
		return s

	case *ast.MonitorStream:
		inner := OptimizeTable(v.Table)
		// Monitor(Projection(T, S)) = Projection(Monitor(T, S), S), with S
		// lifted to the monitor's argSet.
		if proj, ok := inner.(*ast.ProjectionTable); ok {
			lifted := &ast.MonitorStream{Table: proj.Table, ArgSet: proj.Args}
			lifted.SetSchema(proj.Table.GetSchema())
			wrapped := &ast.ProjectionStream{Stream: lifted, Args: proj.Args}
			wrapped.SetSchema(v.GetSchema())
			return OptimizeStream(wrapped)
		}
		nm := &ast.MonitorStream{Table: inner, ArgSet: v.ArgSet}
		nm.SetSchema(v.GetSchema())
		return nm

	case *ast.EdgeNewStream:
		ne := &ast.EdgeNewStream{Stream: OptimizeStream(v.Stream)}
		ne.SetSchema(v.GetSchema())
		return ne

	case *ast.EdgeFilterStream:
		nf := &ast.EdgeFilterStream{Stream: OptimizeStream(v.Stream), Filter: OptimizeFilter(v.Filter)}
		nf.SetSchema(v.GetSchema())
		return nf

	case *ast.FilterStream:
		inner := OptimizeStream(v.Stream)
		filter := OptimizeFilter(v.Filter)
		if _, ok := filter.(*ast.TrueFilter); ok {
			return inner
		}
		nf := &ast.FilterStream{Stream: inner, Filter: filter}
		nf.SetSchema(v.GetSchema())
		return nf

	case *ast.ProjectionStream:
		inner := OptimizeStream(v.Stream)
		if schema := inner.GetSchema(); schema != nil && sameColumns(v.Args, outColumnNames(schema)) {
			return inner
		}
		if innerProj, ok := inner.(*ast.ProjectionStream); ok && subsetOf(v.Args, innerProj.Args) {
			merged := &ast.ProjectionStream{Stream: innerProj.Stream, Args: v.Args}
			merged.SetSchema(v.GetSchema())
			return OptimizeStream(merged)
		}
		np := &ast.ProjectionStream{Stream: inner, Args: v.Args}
		np.SetSchema(v.GetSchema())
		return np

	case *ast.AliasStream:
		na := &ast.AliasStream{Stream: OptimizeStream(v.Stream), Name: v.Name}
		na.SetSchema(v.GetSchema())
		return na

	case *ast.JoinStream:
		nj := &ast.JoinStream{Stream: OptimizeStream(v.Stream), Table: OptimizeTable(v.Table), InParams: v.InParams}
		nj.SetSchema(v.GetSchema())
		return nj

	default:
		return s
	}
}
