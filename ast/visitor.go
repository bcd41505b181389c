package ast

// Primitive is the common surface shared by Stream, Table, and Action
// nodes, letting IteratePrimitives report them uniformly without forcing
// a common Clone() return type across the three node families.
type Primitive interface {
	Kind() string
	String() string
	GetSchema() *FunctionDef
	SetSchema(*FunctionDef)
}

// IteratePrimitives walks every Stream, Table, and Action primitive
// reachable from prog, including those nested inside ExternalFilter
// sub-filters, and invokes fn with a coarse category ("stream", "table",
// "action") and the primitive itself. VarRef primitives are visited only
// when includeVarRef is true, mirroring the source's distinction between
// "primitives that need a schema fetched" and "names that resolve
// locally".
func IteratePrimitives(prog *Program, includeVarRef bool, fn func(category string, p Primitive)) {
	v := &primitiveVisitor{fn: fn, includeVarRef: includeVarRef}
	for _, d := range prog.Declarations {
		if d.Stream != nil {
			v.walkStream(d.Stream)
		}
		if d.Table != nil {
			v.walkTable(d.Table)
		}
		if d.Action != nil {
			v.walkAction(d.Action)
		}
	}
	for _, a := range prog.Assignments {
		v.walkTable(a.Table)
	}
	for _, r := range prog.Rules {
		if r.Stream != nil {
			v.walkStream(r.Stream)
		}
		if r.Table != nil {
			v.walkTable(r.Table)
		}
		for _, a := range r.Actions {
			v.walkAction(a)
		}
	}
}

type primitiveVisitor struct {
	fn            func(category string, p Primitive)
	includeVarRef bool
}

func (v *primitiveVisitor) emit(category string, p Primitive, isVarRef bool) {
	if isVarRef && !v.includeVarRef {
		return
	}
	v.fn(category, p)
}

func (v *primitiveVisitor) walkStream(s Stream) {
	switch n := s.(type) {
	case *TimerStream:
		v.emit("stream", n, false)
	case *AtTimerStream:
		v.emit("stream", n, false)
	case *MonitorStream:
		v.walkTable(n.Table)
	case *EdgeNewStream:
		v.walkStream(n.Stream)
	case *EdgeFilterStream:
		v.walkStream(n.Stream)
		v.walkFilter(n.Filter)
	case *FilterStream:
		v.walkStream(n.Stream)
		v.walkFilter(n.Filter)
	case *ProjectionStream:
		v.walkStream(n.Stream)
	case *AliasStream:
		v.walkStream(n.Stream)
	case *JoinStream:
		v.walkStream(n.Stream)
		v.walkTable(n.Table)
	case *VarRefStream:
		v.emit("stream", n, true)
	}
}

func (v *primitiveVisitor) walkTable(t Table) {
	switch n := t.(type) {
	case *InvocationTable:
		v.emit("table", n, false)
	case *FilterTable:
		v.walkTable(n.Table)
		v.walkFilter(n.Filter)
	case *ProjectionTable:
		v.walkTable(n.Table)
	case *ComputeTable:
		v.walkTable(n.Table)
	case *AggregationTable:
		v.walkTable(n.Table)
	case *SortTable:
		v.walkTable(n.Table)
	case *IndexTable:
		v.walkTable(n.Table)
	case *SliceTable:
		v.walkTable(n.Table)
	case *JoinTable:
		v.walkTable(n.Left)
		v.walkTable(n.Right)
	case *HistoryTable:
		v.walkTable(n.Table)
	case *ResultRefTable:
		v.emit("table", n, false)
	case *VarRefTable:
		v.emit("table", n, true)
	}
}

func (v *primitiveVisitor) walkAction(a Action) {
	switch n := a.(type) {
	case *InvocationAction:
		v.emit("action", n, false)
	case *NotifyAction:
		v.emit("action", n, false)
	case *VarRefAction:
		v.emit("action", n, true)
	}
}

func (v *primitiveVisitor) walkFilter(f FilterExpression) {
	switch n := f.(type) {
	case *AndFilter:
		for _, c := range n.Operands {
			v.walkFilter(c)
		}
	case *OrFilter:
		for _, c := range n.Operands {
			v.walkFilter(c)
		}
	case *NotFilter:
		v.walkFilter(n.Operand)
	case *ExternalFilter:
		v.emit("table", externalFilterAsTable{n}, false)
		v.walkFilter(n.Filter)
	}
}

// externalFilterAsTable adapts an ExternalFilter's invocation fields to
// the Primitive surface so callers can fetch its schema the same way
// they do for an InvocationTable.
type externalFilterAsTable struct{ f *ExternalFilter }

func (e externalFilterAsTable) Kind() string                 { return e.f.Kind_ }
func (e externalFilterAsTable) String() string                { return e.f.String() }
func (e externalFilterAsTable) GetSchema() *FunctionDef        { return e.f.Schema }
func (e externalFilterAsTable) SetSchema(fd *FunctionDef)      { e.f.Schema = fd }

// PrimitiveDeviceKind returns the device kind a Primitive resolves its
// schema against (e.g. "com.twitter"), and whether p names an external
// kind at all — VarRef and Notify primitives resolve locally and do not.
// Intended for a caller pre-walking a Program with IteratePrimitives to
// collect every kind referenced before issuing one batched schema fetch,
// rather than one fetch per primitive as the recursive typecheck walk
// resolves each in turn.
func PrimitiveDeviceKind(p Primitive) (kind string, ok bool) {
	switch n := p.(type) {
	case *InvocationTable:
		return n.Kind_, true
	case *InvocationAction:
		return n.Kind_, true
	case *ResultRefTable:
		return n.Kind_, true
	case externalFilterAsTable:
		return n.f.Kind_, true
	default:
		return "", false
	}
}
