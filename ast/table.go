package ast

import "fmt"

// Table is the common interface for table (query) expression primitives,
// per §3.3.
type Table interface {
	Kind() string
	Clone() Table
	String() string
	GetSchema() *FunctionDef
	SetSchema(*FunctionDef)
}

type tableBase struct{ schema *FunctionDef }

func (b *tableBase) GetSchema() *FunctionDef  { return b.schema }
func (b *tableBase) SetSchema(f *FunctionDef) { b.schema = f }

// InvocationTable is a single function call against a device class, the
// leaf of most table expressions.
type InvocationTable struct {
	tableBase
	Kind_    string // device kind, e.g. "com.xkcd"
	Channel  string
	InParams []InputParam
	Principal Value // optional; tt:contact/tt:username entity
}

func (t *InvocationTable) Kind() string { return "invocation" }
func (t *InvocationTable) Clone() Table {
	ps := make([]InputParam, len(t.InParams))
	for i, p := range t.InParams {
		ps[i] = p.Clone()
	}
	var pr Value
	if t.Principal != nil {
		pr = t.Principal.Clone()
	}
	return &InvocationTable{tableBase{t.schema}, t.Kind_, t.Channel, ps, pr}
}
func (t *InvocationTable) String() string {
	return fmt.Sprintf("@%s.%s(...)", t.Kind_, t.Channel)
}

// FilterTable restricts Table's rows to those matching Filter.
type FilterTable struct {
	tableBase
	Table  Table
	Filter FilterExpression
}

func (t *FilterTable) Kind() string { return "filter" }
func (t *FilterTable) Clone() Table {
	return &FilterTable{tableBase{t.schema}, t.Table.Clone(), t.Filter.Clone()}
}
func (t *FilterTable) String() string {
	return fmt.Sprintf("%s, %s", t.Table.String(), t.Filter.String())
}

// ProjectionTable restricts Table's rows to a subset of output columns.
type ProjectionTable struct {
	tableBase
	Table Table
	Args  []string
}

func (t *ProjectionTable) Kind() string { return "projection" }
func (t *ProjectionTable) Clone() Table {
	return &ProjectionTable{tableBase{t.schema}, t.Table.Clone(), append([]string(nil), t.Args...)}
}
func (t *ProjectionTable) String() string { return "[" + t.Table.String() + "]" }

// ComputeTable adds a computed column (Alias) to Table's output.
type ComputeTable struct {
	tableBase
	Table Table
	Expr  ScalarExpression
	Alias string
}

func (t *ComputeTable) Kind() string { return "compute" }
func (t *ComputeTable) Clone() Table {
	return &ComputeTable{tableBase{t.schema}, t.Table.Clone(), t.Expr.Clone(), t.Alias}
}
func (t *ComputeTable) String() string {
	return fmt.Sprintf("compute %s as %s of %s", t.Expr.String(), t.Alias, t.Table.String())
}

// AggregationTable reduces Table's rows via Op over Field, optionally
// aliasing the result column (defaulting to Op's name, or "count" for
// count(*)).
type AggregationTable struct {
	tableBase
	Table Table
	Op    ComputationOp
	Field string // "*" for count(*)
	Alias string
}

func (t *AggregationTable) Kind() string { return "aggregation" }
func (t *AggregationTable) Clone() Table {
	return &AggregationTable{tableBase{t.schema}, t.Table.Clone(), t.Op, t.Field, t.Alias}
}
func (t *AggregationTable) String() string {
	return fmt.Sprintf("aggregate %s(%s) of %s", t.Op, t.Field, t.Table.String())
}
func (t *AggregationTable) ResultName() string {
	if t.Alias != "" {
		return t.Alias
	}
	if t.Op == OpCount {
		return "count"
	}
	return string(t.Op)
}

// SortDirection is ascending or descending.
type SortDirection string

const (
	Asc  SortDirection = "asc"
	Desc SortDirection = "desc"
)

// SortTable orders Table's rows by Field.
type SortTable struct {
	tableBase
	Table     Table
	Field     string
	Direction SortDirection
}

func (t *SortTable) Kind() string { return "sort" }
func (t *SortTable) Clone() Table {
	return &SortTable{tableBase{t.schema}, t.Table.Clone(), t.Field, t.Direction}
}
func (t *SortTable) String() string {
	return fmt.Sprintf("sort %s %s of %s", t.Field, t.Direction, t.Table.String())
}

// IndexTable selects specific rows of Table by 1-based index (or, when
// len(Indices)==1, an Array(Number) value naming several indices).
type IndexTable struct {
	tableBase
	Table   Table
	Indices []Value
}

func (t *IndexTable) Kind() string { return "index" }
func (t *IndexTable) Clone() Table {
	idx := make([]Value, len(t.Indices))
	for i, v := range t.Indices {
		idx[i] = v.Clone()
	}
	return &IndexTable{tableBase{t.schema}, t.Table.Clone(), idx}
}
func (t *IndexTable) String() string { return fmt.Sprintf("%s[...]", t.Table.String()) }

// SliceTable selects a contiguous range of Table's rows.
type SliceTable struct {
	tableBase
	Table Table
	Base  Value
	Limit Value
}

func (t *SliceTable) Kind() string { return "slice" }
func (t *SliceTable) Clone() Table {
	return &SliceTable{tableBase{t.schema}, t.Table.Clone(), t.Base.Clone(), t.Limit.Clone()}
}
func (t *SliceTable) String() string { return fmt.Sprintf("%s[...:...]", t.Table.String()) }

// JoinTable is the nested-loop join of Left and Right, with Left-outer
// scoping: Right's scope sees Left's output bindings.
type JoinTable struct {
	tableBase
	Left     Table
	Right    Table
	InParams []InputParam
}

func (t *JoinTable) Kind() string { return "join" }
func (t *JoinTable) Clone() Table {
	ps := make([]InputParam, len(t.InParams))
	for i, p := range t.InParams {
		ps[i] = p.Clone()
	}
	return &JoinTable{tableBase{t.schema}, t.Left.Clone(), t.Right.Clone(), ps}
}
func (t *JoinTable) String() string {
	return fmt.Sprintf("(%s join %s)", t.Left.String(), t.Right.String())
}

// HistoryKind enumerates the window/timeseries/sequence/history table
// variants of §3.3, which all restrict Table to a temporal slice but
// differ in whether the slice is by count or by time range.
type HistoryKind string

const (
	HistoryWindow     HistoryKind = "window"
	HistoryTimeSeries HistoryKind = "timeseries"
	HistorySequence   HistoryKind = "sequence"
	HistoryHistory    HistoryKind = "history"
)

// HistoryTable restricts Table to a temporal slice, per HistoryKind.
type HistoryTable struct {
	tableBase
	Table     Table
	HistKind  HistoryKind
	Base      Value // count (window/sequence) or Date (timeseries/history)
	Delta     Value // count or Measure(ms) width
}

func (t *HistoryTable) Kind() string { return string(t.HistKind) }
func (t *HistoryTable) Clone() Table {
	return &HistoryTable{tableBase{t.schema}, t.Table.Clone(), t.HistKind, t.Base.Clone(), t.Delta.Clone()}
}
func (t *HistoryTable) String() string {
	return fmt.Sprintf("%s(%s, ...)", t.HistKind, t.Table.String())
}

// ResultRefTable refers back to a previous result of the same kind of
// invocation within the Program (e.g. "the second-to-last result").
type ResultRefTable struct {
	tableBase
	Kind_   string
	Channel string
	Index   Value
}

func (t *ResultRefTable) Kind() string { return "result_ref" }
func (t *ResultRefTable) Clone() Table {
	return &ResultRefTable{tableBase{t.schema}, t.Kind_, t.Channel, t.Index.Clone()}
}
func (t *ResultRefTable) String() string {
	return fmt.Sprintf("result(@%s.%s, %s)", t.Kind_, t.Channel, t.Index.String())
}

// VarRefTable refers to a named Declaration/Assignment bound earlier in
// the Program.
type VarRefTable struct {
	tableBase
	Name     string
	InParams []InputParam
}

func (t *VarRefTable) Kind() string { return "var_ref_table" }
func (t *VarRefTable) Clone() Table {
	ps := make([]InputParam, len(t.InParams))
	for i, p := range t.InParams {
		ps[i] = p.Clone()
	}
	return &VarRefTable{tableBase{t.schema}, t.Name, ps}
}
func (t *VarRefTable) String() string { return "@" + t.Name }
