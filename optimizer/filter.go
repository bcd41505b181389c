package optimizer

import "github.com/stanford-oval/thingtalk/ast"

// OptimizeFilter rewrites f to normal form per the conjunction/disjunction
// simplification, De Morgan, and equality-to-in_array merging laws,
// iterating until a pass leaves the filter's rendered form unchanged
// (flattening or folding in one pass commonly exposes a further
// simplification in the next). 16 passes is far more than any realistic
// filter tree needs to settle; it is a backstop against a rewrite rule
// accidentally cycling, not an expected iteration count.
func OptimizeFilter(f ast.FilterExpression) ast.FilterExpression {
	for i := 0; i < 16; i++ {
		next := rewriteFilterOnce(f)
		if next.String() == f.String() {
			return next
		}
		f = next
	}
	return f
}

func rewriteFilterOnce(f ast.FilterExpression) ast.FilterExpression {
	switch v := f.(type) {
	case *ast.TrueFilter, *ast.FalseFilter, *ast.AtomFilter, *ast.ComputeFilter:
		return f

	case *ast.NotFilter:
		return rewriteNot(rewriteFilterOnce(v.Operand))

	case *ast.AndFilter:
		return rewriteAnd(v)

	case *ast.OrFilter:
		return rewriteOr(v)

	case *ast.ExternalFilter:
		return &ast.ExternalFilter{
			Kind_: v.Kind_, Channel: v.Channel, InParams: v.InParams,
			Filter: rewriteFilterOnce(v.Filter), Schema: v.Schema,
		}

	default:
		return f
	}
}

// rewriteNot applies De Morgan around an already-rewritten operand.
func rewriteNot(operand ast.FilterExpression) ast.FilterExpression {
	switch o := operand.(type) {
	case *ast.TrueFilter:
		return &ast.FalseFilter{}
	case *ast.FalseFilter:
		return &ast.TrueFilter{}
	case *ast.NotFilter:
		return o.Operand
	case *ast.AndFilter:
		negated := make([]ast.FilterExpression, len(o.Operands))
		for i, op := range o.Operands {
			negated[i] = &ast.NotFilter{Operand: op}
		}
		return rewriteFilterOnce(&ast.OrFilter{Operands: negated})
	case *ast.OrFilter:
		negated := make([]ast.FilterExpression, len(o.Operands))
		for i, op := range o.Operands {
			negated[i] = &ast.NotFilter{Operand: op}
		}
		return rewriteFilterOnce(&ast.AndFilter{Operands: negated})
	default:
		return &ast.NotFilter{Operand: operand}
	}
}

// rewriteAnd flattens nested conjunctions and absorbs True/False operands:
// And([True]) = True per the absorption law (a bare And of only True
// operands collapses to True, the identity it was already equivalent to),
// any False operand collapses the whole conjunction to False, and a
// single remaining operand needs no And wrapper at all.
func rewriteAnd(v *ast.AndFilter) ast.FilterExpression {
	var flat []ast.FilterExpression
	for _, op := range v.Operands {
		r := rewriteFilterOnce(op)
		if inner, ok := r.(*ast.AndFilter); ok {
			flat = append(flat, inner.Operands...)
			continue
		}
		if _, ok := r.(*ast.TrueFilter); ok {
			continue
		}
		if _, ok := r.(*ast.FalseFilter); ok {
			return &ast.FalseFilter{}
		}
		flat = append(flat, r)
	}
	switch len(flat) {
	case 0:
		return &ast.TrueFilter{}
	case 1:
		return flat[0]
	default:
		return &ast.AndFilter{Operands: flat}
	}
}

// rewriteOr flattens nested disjunctions, absorbs True/False operands, and
// merges runs of equality atoms over the same argument into a single
// in_array atom (scenario (f): `author == "bob" || author == "charlie"`
// becomes `in_array(author, ["bob","charlie"])`).
func rewriteOr(v *ast.OrFilter) ast.FilterExpression {
	var flat []ast.FilterExpression
	for _, op := range v.Operands {
		r := rewriteFilterOnce(op)
		if inner, ok := r.(*ast.OrFilter); ok {
			flat = append(flat, inner.Operands...)
			continue
		}
		if _, ok := r.(*ast.FalseFilter); ok {
			continue
		}
		if _, ok := r.(*ast.TrueFilter); ok {
			return &ast.TrueFilter{}
		}
		flat = append(flat, r)
	}
	flat = mergeEqualityGroups(flat)
	switch len(flat) {
	case 0:
		return &ast.FalseFilter{}
	case 1:
		return flat[0]
	default:
		return &ast.OrFilter{Operands: flat}
	}
}

// mergeEqualityGroups collapses every run of two-or-more AtomFilter(==)
// operands sharing an ArgName into one AtomFilter(in_array). OpInArray has
// exactly one BinaryOps overload row (a, Array(a) -> Boolean; see
// semantic/overloads.go), so the merged atom's OverloadIdx is always 0
// without needing to re-run overload resolution here.
func mergeEqualityGroups(ops []ast.FilterExpression) []ast.FilterExpression {
	groups := map[string][]*ast.AtomFilter{}
	var order []string
	var passthrough []ast.FilterExpression
	for _, op := range ops {
		atom, ok := op.(*ast.AtomFilter)
		if !ok || atom.Op != ast.OpEQ {
			passthrough = append(passthrough, op)
			continue
		}
		if _, seen := groups[atom.ArgName]; !seen {
			order = append(order, atom.ArgName)
		}
		groups[atom.ArgName] = append(groups[atom.ArgName], atom)
	}

	var merged []ast.FilterExpression
	for _, name := range order {
		atoms := groups[name]
		if len(atoms) == 1 {
			merged = append(merged, atoms[0])
			continue
		}
		elems := make([]ast.Value, len(atoms))
		for i, a := range atoms {
			elems[i] = a.Value
		}
		merged = append(merged, &ast.AtomFilter{
			ArgName: name, Op: ast.OpInArray, Value: &ast.ArrayValue{Elements: elems},
		})
	}
	return append(merged, passthrough...)
}
