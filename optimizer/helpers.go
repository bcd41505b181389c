package optimizer

import "github.com/stanford-oval/thingtalk/ast"

func outColumnNames(schema *ast.FunctionDef) []string {
	out := schema.OutArgs()
	names := make([]string, len(out))
	for i, a := range out {
		names[i] = a.Name
	}
	return names
}

// sameColumns reports whether a and b name the same set of columns,
// ignoring order, for the "drop Projection(T, allFields(T))" law.
func sameColumns(a, b []string) bool {
	return len(a) == len(b) && subsetOf(a, b)
}

// subsetOf reports whether every name in sub also appears in super.
func subsetOf(sub, super []string) bool {
	set := make(map[string]bool, len(super))
	for _, s := range super {
		set[s] = true
	}
	for _, s := range sub {
		if !set[s] {
			return false
		}
	}
	return true
}

func contains(list []string, name string) bool {
	for _, s := range list {
		if s == name {
			return true
		}
	}
	return false
}

// asColumnRef reports whether e is a bare reference to an existing
// column (a PrimaryExpr wrapping a VarRefValue), the narrow shape the
// Sort/Compute reordering law is implemented for.
func asColumnRef(e ast.ScalarExpression) (string, bool) {
	primary, ok := e.(*ast.PrimaryExpr)
	if !ok {
		return "", false
	}
	ref, ok := primary.Value.(*ast.VarRefValue)
	if !ok {
		return "", false
	}
	return ref.Name, true
}
