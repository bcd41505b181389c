package compiler

import (
	"strings"

	"github.com/stanford-oval/thingtalk/ast"
)

// compileActions lowers a Rule's action list, run once per tuple
// delivered by its Stream/Table (or once, for a rule with neither).
func (rc *ruleCompiler) compileActions(actions []ast.Action, rule *ast.Rule, b *builder) error {
	for _, a := range actions {
		switch v := a.(type) {
		case *ast.NotifyAction:
			outputType, record := rc.notifyShape(rule)
			b.emit(OutputInstr{OutputType: outputType, Record: record})

		case *ast.InvocationAction:
			fn := b.fnID(v.Kind_, v.Channel, EndpointAction)
			b.emit(InvokeActionInstr{Fn: fn, Args: v.InParams})

		case *ast.VarRefAction:
			return errUnboundVarRef("unresolved action reference %q", v.Name)

		default:
			return errUnsupported("no lowering for action kind %q", a.Kind())
		}
	}
	return nil
}

// notifyShape derives notify's OutputType and Record from the rule's
// already-computed schema rather than threading a binding list through
// every compile-time continuation — semantic analysis has already
// merged every join/projection/compute into Stream.GetSchema() or
// Table.GetSchema(), so there is nothing left to recompute here.
func (rc *ruleCompiler) notifyShape(rule *ast.Rule) (string, []string) {
	var schema *ast.FunctionDef
	switch {
	case rule.Stream != nil:
		schema = rule.Stream.GetSchema()
	case rule.Table != nil:
		schema = rule.Table.GetSchema()
	}

	var record []string
	if schema != nil {
		for _, a := range schema.OutArgs() {
			record = append(record, a.Name)
		}
	}

	var fns []string
	if rule.Stream != nil {
		fns = collectStreamFns(rule.Stream)
	} else if rule.Table != nil {
		fns = collectTableFns(rule.Table)
	}
	return strings.Join(fns, "+"), record
}

// collectStreamFns lists the device function ids a Stream invokes, in
// the order they appear, for notify's OutputType per §4.5.
func collectStreamFns(s ast.Stream) []string {
	switch v := s.(type) {
	case *ast.TimerStream:
		return []string{"timer"}
	case *ast.AtTimerStream:
		return []string{"attimer"}
	case *ast.MonitorStream:
		return collectTableFns(v.Table)
	case *ast.EdgeNewStream:
		return collectStreamFns(v.Stream)
	case *ast.EdgeFilterStream:
		return collectStreamFns(v.Stream)
	case *ast.FilterStream:
		return collectStreamFns(v.Stream)
	case *ast.ProjectionStream:
		return collectStreamFns(v.Stream)
	case *ast.AliasStream:
		return collectStreamFns(v.Stream)
	case *ast.JoinStream:
		return append(collectStreamFns(v.Stream), collectTableFns(v.Table)...)
	case *ast.VarRefStream:
		return []string{v.Name}
	default:
		return nil
	}
}

// collectTableFns lists the device function ids a Table invokes, in the
// order they appear.
func collectTableFns(t ast.Table) []string {
	switch v := t.(type) {
	case *ast.InvocationTable:
		return []string{v.Kind_ + "." + v.Channel}
	case *ast.ResultRefTable:
		return []string{v.Kind_ + "." + v.Channel}
	case *ast.FilterTable:
		return collectTableFns(v.Table)
	case *ast.ProjectionTable:
		return collectTableFns(v.Table)
	case *ast.ComputeTable:
		return collectTableFns(v.Table)
	case *ast.SortTable:
		return collectTableFns(v.Table)
	case *ast.IndexTable:
		return collectTableFns(v.Table)
	case *ast.SliceTable:
		return collectTableFns(v.Table)
	case *ast.AggregationTable:
		return collectTableFns(v.Table)
	case *ast.HistoryTable:
		return collectTableFns(v.Table)
	case *ast.JoinTable:
		return append(collectTableFns(v.Left), collectTableFns(v.Right)...)
	case *ast.VarRefTable:
		return []string{v.Name}
	default:
		return nil
	}
}
