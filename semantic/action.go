package semantic

import (
	"github.com/stanford-oval/thingtalk/ast"
	"github.com/stanford-oval/thingtalk/typeerrors"
)

// typeCheckAction resolves a's Schema slot, per §4.4's action-primitive
// invariants.
func (c *checker) typeCheckAction(a ast.Action, scope *ast.Scope) {
	path := a.Kind()
	switch v := a.(type) {
	case *ast.InvocationAction:
		fn, err := c.a.retriever.GetSchemaAndNames(c.ctx, v.Kind_, ast.FunctionAction, v.Channel)
		if err != nil {
			c.fail(typeerrors.UnknownFunction, path, "%v", err)
			return
		}
		fnClone := fn.Clone()
		v.SetSchema(fnClone)
		if v.Principal != nil {
			c.checkPrincipal(v.Principal)
		}
		c.checkInputParams(fnClone, &v.InParams, scope, path+"."+v.Channel)

	case *ast.NotifyAction:
		v.SetSchema(&ast.FunctionDef{Kind: ast.FunctionAction, Name: "notify"})

	case *ast.VarRefAction:
		schema, ok := c.declSchemas[v.Name]
		if !ok {
			c.fail(typeerrors.UnknownKind, path, "reference to undeclared action %q", v.Name)
			return
		}
		clone := schema.Clone()
		c.checkInputParams(clone, &v.InParams, scope, path)
		v.SetSchema(clone)

	default:
		c.fail(typeerrors.UnknownKind, path, "unrecognized action primitive %q", a.Kind())
	}
}
