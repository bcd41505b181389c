package hosttest

import (
	"context"
	"fmt"
	"reflect"

	"github.com/stanford-oval/thingtalk/ast"
	"github.com/stanford-oval/thingtalk/compiler"
)

// Run drives cr.Main against host, acting as a reference interpreter
// for the IR: compiler.CompiledRule's
// instruction set is opaque to the compiler package itself, so
// exercising it end to end (rather than only asserting on its shape)
// needs something on this side of the Host boundary to walk it. Run
// stops at the first instruction error or when every opened
// stream/timer iterator is exhausted.
func Run(ctx context.Context, host *Host, cr *compiler.CompiledRule) error {
	r := &runner{host: host, fns: cr.Functions}
	return r.block(ctx, cr.Main, bindings{})
}

// bindings is the accumulated set of (name -> value) pairs visible at
// the current point in the instruction walk: a tuple's own output
// arguments plus whatever an enclosing Next/Iterate/Join level already
// bound. Child scopes copy rather than mutate their parent's map so a
// sibling Body never observes another sibling's bindings.
type bindings map[string]any

func (b bindings) extend(tuple map[string]any) bindings {
	n := make(bindings, len(b)+len(tuple))
	for k, v := range b {
		n[k] = v
	}
	for k, v := range tuple {
		n[k] = v
	}
	return n
}

// runner carries the open iterator/result-set handles for one Run call;
// it is not reused across calls.
type runner struct {
	host *Host
	fns  []compiler.Endpoint

	iters   map[compiler.IterHandle]any
	results map[compiler.ResultSetHandle]any

	// stateBinds names the bindings LoadStateInstr introduced, so a
	// whole-record dedup projection leaves them out.
	stateBinds map[string]bool
}

// skipTuple unwinds a Body up to its enclosing Next/Iterate when an
// AssertFilterInstr fails, the same short-circuit ir.go documents for
// AssertFilterInstr: skip to the next tuple/tick rather than abort the
// rule.
var skipTuple = fmt.Errorf("hosttest: tuple skipped by AssertFilter")

func (r *runner) block(ctx context.Context, is []compiler.Instruction, env bindings) error {
	if r.iters == nil {
		r.iters = make(map[compiler.IterHandle]any)
	}
	if r.results == nil {
		r.results = make(map[compiler.ResultSetHandle]any)
	}
	for _, instr := range is {
		if err := r.step(ctx, instr, env); err != nil {
			return err
		}
	}
	return nil
}

func (r *runner) step(ctx context.Context, instr compiler.Instruction, env bindings) error {
	switch v := instr.(type) {
	case compiler.OpenStreamInstr:
		it, err := r.host.OpenStream(ctx, r.fns[v.Fn])
		if err != nil {
			return err
		}
		r.iters[v.Result] = it
		return nil

	case compiler.OpenMonitorInstr:
		it, err := r.host.OpenMonitor(ctx, r.fns[v.Fn], r.bind(v.StaticArgs, env))
		if err != nil {
			return err
		}
		r.iters[v.Result] = it
		return nil

	case compiler.OpenTimerInstr:
		it, err := r.host.OpenTimer(ctx, v.Spec)
		if err != nil {
			return err
		}
		r.iters[v.Result] = it
		return nil

	case compiler.OpenAtTimerInstr:
		it, err := r.host.OpenAtTimer(ctx, v.Spec)
		if err != nil {
			return err
		}
		r.iters[v.Result] = it
		return nil

	case compiler.NextInstr:
		it := r.iters[v.Iter]
		for {
			tuple, ok, err := r.host.Next(ctx, it)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			if err := r.block(ctx, v.Body, env.extend(tuple)); err != nil && err != skipTuple {
				return err
			}
		}

	case compiler.InvokeQueryInstr:
		rs, err := r.host.InvokeQuery(ctx, r.fns[v.Fn], r.bind(v.StaticArgs, env), v.Spec)
		if err != nil {
			return err
		}
		r.results[v.Result] = rs
		return nil

	case compiler.IterateInstr:
		rs := r.results[v.Set]
		for {
			tuple, ok, err := r.host.Iterate(ctx, rs)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			if err := r.block(ctx, v.Body, env.extend(tuple)); err != nil && err != skipTuple {
				return err
			}
		}

	case compiler.AssertFilterInstr:
		ok, err := evalFilter(v.Expr, env)
		if err != nil {
			return err
		}
		if !ok {
			return skipTuple
		}
		return nil

	case compiler.ComputeScalarInstr:
		val, err := evalScalar(v.Expr, env)
		if err != nil {
			return err
		}
		env[v.BindName] = val
		return nil

	case compiler.LoadStateInstr:
		val, err := r.host.LoadState(ctx, v.State)
		if err != nil {
			return err
		}
		if r.stateBinds == nil {
			r.stateBinds = make(map[string]bool)
		}
		r.stateBinds[v.Bind] = true
		env[v.Bind] = val
		return nil

	case compiler.StoreStateInstr:
		return r.storeState(ctx, v, env)

	case compiler.InvokeActionInstr:
		return r.host.InvokeAction(ctx, r.fns[v.Fn], r.bind(v.Args, env))

	case compiler.OutputInstr:
		record := make(map[string]any, len(v.Record))
		for _, name := range v.Record {
			record[name] = env[name]
		}
		return r.host.Output(ctx, v.OutputType, record)

	default:
		return fmt.Errorf("hosttest: no interpreter case for instruction %T", instr)
	}
}

// storeState realizes the de-dup/edge-filter composition ir.go's
// StoreStateInstr doc comment describes: it loads the cell's previous
// value directly (rather than trusting whatever a preceding
// LoadStateInstr happened to bind, which exists for the compiled
// program's own reference, not the interpreter's), computes the
// current value, and runs Body only on the transition the Kind calls
// for.
func (r *runner) storeState(ctx context.Context, v compiler.StoreStateInstr, env bindings) error {
	prev, err := r.host.LoadState(ctx, v.State)
	if err != nil {
		return err
	}

	switch v.Kind {
	case compiler.StateDedup:
		current := projectTuple(env, v.ArgSet, r.stateBinds)
		if prev != nil && reflect.DeepEqual(prev, current) {
			return r.host.StoreState(ctx, v.State, current)
		}
		if err := r.block(ctx, v.Body, env); err != nil && err != skipTuple {
			return err
		}
		return r.host.StoreState(ctx, v.State, current)

	case compiler.StateEdgeFilter:
		now, err := evalFilter(v.Filter, env)
		if err != nil {
			return err
		}
		wasTrue, _ := prev.(bool)
		if now && !wasTrue {
			if err := r.block(ctx, v.Body, env); err != nil && err != skipTuple {
				return err
			}
		}
		return r.host.StoreState(ctx, v.State, now)

	default:
		return fmt.Errorf("hosttest: unknown state kind %q", v.Kind)
	}
}

// projectTuple narrows env to argSet's fields for a dedup comparison, or
// returns a copy of the whole binding set when argSet is nil ("whole
// record" per StoreStateInstr's doc comment), leaving out the names in
// skip (the values LoadStateInstr bound).
func projectTuple(env bindings, argSet []string, skip map[string]bool) map[string]any {
	if argSet == nil {
		out := make(map[string]any, len(env))
		for k, v := range env {
			if skip[k] {
				continue
			}
			out[k] = v
		}
		return out
	}
	out := make(map[string]any, len(argSet))
	for _, name := range argSet {
		out[name] = env[name]
	}
	return out
}

// bind resolves a CompiledRule's InputParam list against env, the way
// InvokeActionInstr/InvokeQueryInstr/OpenMonitorInstr's StaticArgs
// reference whatever the enclosing tuple bound via ast.VarRefValue.
func (r *runner) bind(params []ast.InputParam, env bindings) []compiler.Binding {
	out := make([]compiler.Binding, 0, len(params))
	for _, p := range params {
		out = append(out, compiler.Binding{Name: p.Name, Value: resolveValue(p.Value, env)})
	}
	return out
}

func resolveValue(val ast.Value, env bindings) any {
	if ref, ok := val.(*ast.VarRefValue); ok {
		return env[ref.Name]
	}
	return literalValue(val)
}

func literalValue(val ast.Value) any {
	switch v := val.(type) {
	case *ast.BooleanValue:
		return v.V
	case *ast.StringValue:
		return v.V
	case *ast.NumberValue:
		return v.V
	case *ast.EntityValue:
		return v.ID
	default:
		return val.String()
	}
}

// evalFilter evaluates the small subset of FilterExpression this
// interpreter understands against env: boolean combinators and
// AtomFilter's comparison operators. ExternalFilter and ComputeFilter
// require dispatching a sub-query/scalar the interpreter has no
// host-independent way to schedule, so they report an error rather
// than silently evaluate to false.
func evalFilter(f ast.FilterExpression, env bindings) (bool, error) {
	switch v := f.(type) {
	case *ast.TrueFilter:
		return true, nil
	case *ast.FalseFilter:
		return false, nil
	case *ast.AndFilter:
		for _, op := range v.Operands {
			ok, err := evalFilter(op, env)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	case *ast.OrFilter:
		for _, op := range v.Operands {
			ok, err := evalFilter(op, env)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case *ast.NotFilter:
		ok, err := evalFilter(v.Operand, env)
		return !ok, err
	case *ast.AtomFilter:
		return evalAtom(env[v.ArgName], v.Op, literalValue(v.Value))
	default:
		return false, fmt.Errorf("hosttest: no filter evaluator for %q", f.Kind())
	}
}

func evalAtom(left any, op ast.BinaryOp, right any) (bool, error) {
	lf, lok := toFloat(left)
	rf, rok := toFloat(right)
	if lok && rok {
		switch op {
		case ast.OpGT:
			return lf > rf, nil
		case ast.OpLT:
			return lf < rf, nil
		case ast.OpGE:
			return lf >= rf, nil
		case ast.OpLE:
			return lf <= rf, nil
		case ast.OpEQ:
			return lf == rf, nil
		}
	}
	switch op {
	case ast.OpEQ:
		return reflect.DeepEqual(left, right), nil
	case ast.OpContains, ast.OpStartsWith, ast.OpEndsWith, ast.OpLikeFwd, ast.OpLikeRev:
		ls, lok := left.(string)
		rs, rok := right.(string)
		if !lok || !rok {
			return false, fmt.Errorf("hosttest: %q needs string operands", op)
		}
		return evalStringOp(op, ls, rs)
	default:
		return false, fmt.Errorf("hosttest: no atom evaluator for op %q", op)
	}
}

func evalStringOp(op ast.BinaryOp, left, right string) (bool, error) {
	switch op {
	case ast.OpContains, ast.OpLikeFwd:
		return contains(left, right), nil
	case ast.OpLikeRev:
		return contains(right, left), nil
	case ast.OpStartsWith:
		return len(left) >= len(right) && left[:len(right)] == right, nil
	case ast.OpEndsWith:
		return len(left) >= len(right) && left[len(left)-len(right):] == right, nil
	}
	return false, fmt.Errorf("hosttest: no string evaluator for op %q", op)
}

func contains(haystack, needle string) bool {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return needle == ""
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

// evalScalar evaluates the scalar expressions a ComputeScalarInstr may
// carry. Only PrimaryExpr (a literal or a field reference) resolves
// host-independently; DerivedExpr's arithmetic/aggregate operators are
// pushed into InvokeQueryInstr's Spec for a real Host to evaluate
// instead, so this interpreter only covers the pass-through case a
// ComputeTable column that merely renames or forwards a field reduces
// to.
func evalScalar(expr ast.ScalarExpression, env bindings) (any, error) {
	switch e := expr.(type) {
	case *ast.PrimaryExpr:
		return resolveValue(e.Value, env), nil
	case *ast.BooleanExpr:
		return evalFilter(e.Filter, env)
	default:
		return nil, fmt.Errorf("hosttest: no scalar evaluator for %q", expr.Kind())
	}
}
