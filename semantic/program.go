package semantic

import (
	"fmt"

	"github.com/stanford-oval/thingtalk/ast"
	"github.com/stanford-oval/thingtalk/typeerrors"
)

// typeCheckDeclaration type-checks d's body (exactly one of Stream, Table,
// Action must be set) under a fresh root scope seeded with d's own lambda
// parameters (Args), then records its output signature in declSchemas so
// later VarRef primitives elsewhere in the Program can resolve it.
func (c *checker) typeCheckDeclaration(d *ast.Declaration) {
	path := "declaration." + d.Name
	scope := ast.NewScope()
	for _, a := range d.Args {
		scope.Add(a.Name, a.Type)
	}

	set := 0
	var schema *ast.FunctionDef
	if d.Stream != nil {
		set++
		c.typeCheckStream(d.Stream, scope)
		schema = d.Stream.GetSchema()
	}
	if d.Table != nil {
		set++
		c.typeCheckTable(d.Table, scope)
		schema = d.Table.GetSchema()
	}
	if d.Action != nil {
		set++
		c.typeCheckAction(d.Action, scope)
		schema = d.Action.GetSchema()
	}
	if set != 1 {
		c.fail(typeerrors.UnknownKind, path, "declaration %q must have exactly one of a stream, table or action body", d.Name)
		return
	}
	if schema == nil {
		return
	}
	c.declSchemas[d.Name] = schema
}

// typeCheckAssignment type-checks as.Table and records its output
// signature both on as.Schema and in declSchemas.
func (c *checker) typeCheckAssignment(as *ast.Assignment) {
	path := "assignment." + as.Name
	scope := ast.NewScope()
	c.typeCheckTable(as.Table, scope)
	schema := as.Table.GetSchema()
	if schema == nil {
		c.fail(typeerrors.UnknownKind, path, "assignment %q has no resolvable schema", as.Name)
		return
	}
	as.Schema = schema
	c.declSchemas[as.Name] = schema
}

// typeCheckRule type-checks r's source (Stream or Table, or neither for a
// source-less rule) and then each of its actions in sequence, threading the
// source's output bindings (plus $event, which is in scope for every
// action) as the actions' lexical scope.
func (c *checker) typeCheckRule(r *ast.Rule, index int) {
	path := fmt.Sprintf("rule[%d]", index)
	if r.Stream != nil && r.Table != nil {
		c.fail(typeerrors.InvalidArgument, path, "a rule cannot have both a stream and a table source")
		return
	}
	if len(r.Actions) == 0 {
		c.fail(typeerrors.InvalidArgument, path, "a rule must have at least one action")
		return
	}

	scope := ast.NewScope()
	var sourceSchema *ast.FunctionDef
	switch {
	case r.Stream != nil:
		c.typeCheckStream(r.Stream, scope)
		sourceSchema = r.Stream.GetSchema()
	case r.Table != nil:
		c.typeCheckTable(r.Table, scope)
		sourceSchema = r.Table.GetSchema()
	}
	if sourceSchema != nil {
		scope.AddAll(sourceSchema.Args)
	}
	scope.SetHasEvent(true)

	for i, action := range r.Actions {
		if _, isNotify := action.(*ast.NotifyAction); isNotify && sourceSchema == nil {
			c.fail(typeerrors.InvalidArgument, fmt.Sprintf("%s.actions[%d]", path, i), "notify with no source primitive has nothing to report")
			continue
		}
		c.typeCheckAction(action, scope)
	}
}
