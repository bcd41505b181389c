package remote

import (
	"context"

	"github.com/stanford-oval/thingtalk/ast"
	"github.com/stanford-oval/thingtalk/compileerrors"
	"github.com/stanford-oval/thingtalk/telemetry"
)

// Option configures a Factorer, following the functional-options idiom
// used throughout schema.Retriever, semantic.Analyzer and
// compiler.Compiler.
type Option func(*Factorer)

// WithLogger attaches a structured logger.
func WithLogger(l telemetry.Logger) Option { return func(f *Factorer) { f.logger = l } }

// WithTracer attaches a tracer; FactorProgram opens one span per call.
func WithTracer(t telemetry.Tracer) Option { return func(f *Factorer) { f.tracer = t } }

// WithMetrics attaches a metrics recorder (remote-program count).
func WithMetrics(m telemetry.Metrics) Option { return func(f *Factorer) { f.metrics = m } }

// WithSeed makes flow-token allocation deterministic by drawing token
// bytes from a math/rand.Rand seeded with seed, per §4.6's "factoring is
// deterministic given a seed."
func WithSeed(seed int64) Option { return func(f *Factorer) { f.tokens = seededTokenSource(seed) } }

// Factorer rewrites a typed, optimized ast.Program into a local program
// plus one sibling RemoteProgram per remote principal it touches. It
// carries no mutable state beyond its telemetry sinks and token source
// and is safe for concurrent use.
type Factorer struct {
	logger  telemetry.Logger
	tracer  telemetry.Tracer
	metrics telemetry.Metrics
	tokens  tokenSource
}

// New constructs a Factorer.
func New(opts ...Option) *Factorer {
	f := &Factorer{
		logger:  telemetry.NewNoopLogger(),
		tracer:  telemetry.NewNoopTracer(),
		metrics: telemetry.NewNoopMetrics(),
		tokens:  randomTokenSource,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// RemoteProgram is one sibling program synthesized for a single remote
// principal, per §4.6 step 4.
type RemoteProgram struct {
	Principal ast.Value
	Program   *ast.Program
}

// FactoredProgram is the result of one factoring pass.
type FactoredProgram struct {
	Local  *ast.Program
	Remote []*RemoteProgram
}

func (fp *FactoredProgram) remoteFor(principal ast.Value) *RemoteProgram {
	for _, r := range fp.Remote {
		if principalEqual(r.Principal, principal) {
			return r
		}
	}
	rp := &RemoteProgram{Principal: principal, Program: &ast.Program{Principal: principal}}
	fp.Remote = append(fp.Remote, rp)
	return rp
}

func principalEqual(a, b ast.Value) bool {
	ae, ok1 := a.(*ast.EntityValue)
	be, ok2 := b.(*ast.EntityValue)
	return ok1 && ok2 && ae.ID == be.ID && ae.Kind == be.Kind
}

// selfPrincipal stands in for "whoever sent this factoring pass's local
// program" on a remote sibling's receive calls, when the local program
// carries no explicit Principal (the common case: a program running as
// its own user's "self"). Resolving it to the caller's real address is
// the host's concern, not this pass's (§6 Non-goals: no network I/O).
var selfPrincipal = &ast.EntityValue{Kind: "tt:username", ID: "$self"}

func originatingPrincipal(progPrincipal ast.Value) ast.Value {
	if progPrincipal != nil {
		return progPrincipal
	}
	return selfPrincipal
}

// FactorProgram rewrites prog per §4.6: every rule containing a remote
// primitive is split into its local rewrite (0, 1 or 2 rules) plus a
// sibling rule appended to the owning remote principal's RemoteProgram.
// Rules with no remote primitive pass through unchanged.
func (f *Factorer) FactorProgram(ctx context.Context, prog *ast.Program) (*FactoredProgram, error) {
	ctx, span := f.tracer.Start(ctx, "remote.factorProgram")
	defer span.End()

	fp := &FactoredProgram{Local: &ast.Program{
		Principal:    prog.Principal,
		Classes:      append([]*ast.ClassDef(nil), prog.Classes...),
		Declarations: prog.Declarations,
		Assignments:  prog.Assignments,
	}}
	cb := &classBuilder{}

	for idx, rule := range prog.Rules {
		rules, err := f.factorRule(rule, idx, prog.Principal, cb, fp)
		if err != nil {
			f.logger.Error(ctx, "remote: factoring failed", "rule", idx, "error", err.Error())
			span.RecordError(err)
			return nil, err
		}
		fp.Local.Rules = append(fp.Local.Rules, rules...)
	}
	f.metrics.IncCounter("remote.programs", float64(len(fp.Remote)))
	return fp, nil
}

// ruleOwner names which primitive slot a rule's remote query leaf was
// found in, since the local rewrite differs: a one-shot Table rule
// splits into a bare "now =>" request and a table-driven response; a
// stream-joined Table splits into a stream-driven request and a
// monitor-driven response.
type ruleOwner int

const (
	ownerNone ruleOwner = iota
	ownerTable
	ownerJoinStream
)

func findRuleRemoteLeaf(rule *ast.Rule, progPrincipal ast.Value) (*ast.InvocationTable, ruleOwner) {
	if rule.Table != nil {
		if leaf := findRemoteLeaf(rule.Table, progPrincipal); leaf != nil {
			return leaf, ownerTable
		}
	}
	if js, ok := rule.Stream.(*ast.JoinStream); ok {
		if leaf := findRemoteLeaf(js.Table, progPrincipal); leaf != nil {
			return leaf, ownerJoinStream
		}
	}
	return nil, ownerNone
}

func remoteActionIndices(actions []ast.Action, progPrincipal ast.Value) []int {
	var idxs []int
	for i, a := range actions {
		if ia, ok := a.(*ast.InvocationAction); ok && isRemote(ia.Principal, progPrincipal) {
			idxs = append(idxs, i)
		}
	}
	return idxs
}

func (f *Factorer) factorRule(rule *ast.Rule, idx int, progPrincipal ast.Value, cb *classBuilder, fp *FactoredProgram) ([]*ast.Rule, error) {
	remoteActions := remoteActionIndices(rule.Actions, progPrincipal)
	remoteLeaf, owner := findRuleRemoteLeaf(rule, progPrincipal)

	switch {
	case len(remoteActions) > 0 && remoteLeaf != nil:
		return nil, compileerrors.Newf(compileerrors.AmbiguousRemote, idx,
			"rule mixes a remote action with a remote query/stream primitive")
	case len(remoteActions) > 1:
		return nil, compileerrors.Newf(compileerrors.AmbiguousRemote, idx,
			"rule has more than one remote action")
	case len(remoteActions) == 1:
		return f.factorRemoteAction(rule, remoteActions[0], progPrincipal, cb, fp)
	case remoteLeaf != nil:
		return f.factorRemoteQuery(rule, remoteLeaf, owner, progPrincipal, cb, fp)
	default:
		return []*ast.Rule{rule}, nil
	}
}

func cloneParams(ps []ast.InputParam) []ast.InputParam {
	out := make([]ast.InputParam, len(ps))
	for i, p := range ps {
		out[i] = p.Clone()
	}
	return out
}

// forwardParams builds InputParams referencing a just-received record's
// fields by name, used to carry a lifted primitive's fields across the
// receive side of a send/receive pair into a consuming invocation.
func forwardParams(args []ast.ArgumentDef) []ast.InputParam {
	ps := make([]ast.InputParam, len(args))
	for i, a := range args {
		ps[i] = ast.InputParam{Name: a.Name, Value: &ast.VarRefValue{Name: a.Name}}
	}
	return ps
}

// factorRemoteAction lifts rule.Actions[actionIdx], a remote
// InvocationAction, per §4.6. A pure remote action (no local trigger, no
// local query, and the rule's only action) is fully externalized: the
// local rule disappears and the action moves verbatim into a sibling
// "now =>" rule. Otherwise the local action is replaced by a synthesized
// send, and a sibling rule resumes on the matching receive to perform
// the real invocation.
func (f *Factorer) factorRemoteAction(rule *ast.Rule, actionIdx int, progPrincipal ast.Value, cb *classBuilder, fp *FactoredProgram) ([]*ast.Rule, error) {
	action := rule.Actions[actionIdx].(*ast.InvocationAction)

	if rule.Stream == nil && rule.Table == nil && len(rule.Actions) == 1 {
		remoteProg := fp.remoteFor(action.Principal)
		mirrored := &ast.InvocationAction{Kind_: action.Kind_, Channel: action.Channel, InParams: cloneParams(action.InParams)}
		mirrored.SetSchema(action.GetSchema())
		remoteProg.Program.Rules = append(remoteProg.Program.Rules, &ast.Rule{Actions: []ast.Action{mirrored}})
		return nil, nil
	}

	token := f.tokens()
	schema := action.GetSchema()
	var inArgs []ast.ArgumentDef
	if schema != nil {
		inArgs = schema.InArgs()
	}
	dyn := cb.newDynClass(inArgs)
	fp.Local.Classes = append(fp.Local.Classes, dyn)

	kindChannel := action.Kind_ + "." + action.Channel
	send := &ast.InvocationAction{Kind_: dyn.Kind, Channel: "send", InParams: append([]ast.InputParam{
		{Name: "__principal", Value: action.Principal},
		{Name: "__token", Value: &ast.StringValue{V: token.String()}},
		{Name: "__kindChannel", Value: &ast.StringValue{V: kindChannel}},
	}, cloneParams(action.InParams)...)}
	send.SetSchema(dyn.Actions["send"])

	newActions := append([]ast.Action(nil), rule.Actions[:actionIdx]...)
	newActions = append(newActions, send)
	newActions = append(newActions, rule.Actions[actionIdx+1:]...)

	remoteProg := fp.remoteFor(action.Principal)
	remoteProg.Program.Classes = append(remoteProg.Program.Classes, dyn)
	receiveInv := &ast.InvocationTable{Kind_: dyn.Kind, Channel: "receive", InParams: []ast.InputParam{
		{Name: "__principal", Value: originatingPrincipal(progPrincipal)},
		{Name: "__token", Value: &ast.StringValue{V: token.String()}},
	}}
	receiveInv.SetSchema(dyn.Queries["receive"])
	mirrored := &ast.InvocationAction{Kind_: action.Kind_, Channel: action.Channel, InParams: forwardParams(inArgs)}
	mirrored.SetSchema(action.GetSchema())
	remoteProg.Program.Rules = append(remoteProg.Program.Rules, &ast.Rule{
		Stream:  &ast.MonitorStream{Table: receiveInv},
		Actions: []ast.Action{mirrored},
	})

	return []*ast.Rule{{Stream: rule.Stream, Table: rule.Table, Actions: newActions}}, nil
}

// factorRemoteQuery lifts leaf, a remote InvocationTable found either as
// rule's whole Table expression (owner == ownerTable, a one-shot query)
// or as the table side of rule.Stream's JoinStream (owner ==
// ownerJoinStream, a stream-driven query), per §4.6's two-rule split: a
// pre-query local rule that forwards accumulated bindings (the join's
// InParams, or the leaf's own static InParams for a one-shot query), and
// a post-query local rule that resumes on the receive. The remote
// sibling performs the real invocation between a matching receive/send
// pair of its own.
func (f *Factorer) factorRemoteQuery(rule *ast.Rule, leaf *ast.InvocationTable, owner ruleOwner, progPrincipal ast.Value, cb *classBuilder, fp *FactoredProgram) ([]*ast.Rule, error) {
	schema := leaf.GetSchema()
	var inArgs, outArgs []ast.ArgumentDef
	if schema != nil {
		inArgs = schema.InArgs()
		outArgs = schema.OutArgs()
	}

	reqToken := f.tokens()
	respToken := f.tokens()
	reqClass := cb.newDynClass(inArgs)
	respClass := cb.newDynClass(outArgs)
	fp.Local.Classes = append(fp.Local.Classes, reqClass, respClass)

	kindChannel := leaf.Kind_ + "." + leaf.Channel

	forwardFields := cloneParams(leaf.InParams)
	var drivingStream ast.Stream
	if owner == ownerJoinStream {
		js := rule.Stream.(*ast.JoinStream)
		forwardFields = cloneParams(js.InParams)
		drivingStream = js.Stream
	}

	sendReq := &ast.InvocationAction{Kind_: reqClass.Kind, Channel: "send", InParams: append([]ast.InputParam{
		{Name: "__principal", Value: leaf.Principal},
		{Name: "__token", Value: &ast.StringValue{V: reqToken.String()}},
		{Name: "__kindChannel", Value: &ast.StringValue{V: kindChannel}},
	}, forwardFields...)}
	sendReq.SetSchema(reqClass.Actions["send"])

	receiveResp := &ast.InvocationTable{Kind_: respClass.Kind, Channel: "receive", InParams: []ast.InputParam{
		{Name: "__principal", Value: leaf.Principal},
		{Name: "__token", Value: &ast.StringValue{V: respToken.String()}},
	}}
	receiveResp.SetSchema(respClass.Queries["receive"])

	var requestRule, responseRule *ast.Rule
	switch owner {
	case ownerTable:
		requestRule = &ast.Rule{Actions: []ast.Action{sendReq}}
		responseRule = &ast.Rule{Table: replaceLeaf(rule.Table, leaf, receiveResp), Actions: rule.Actions}
	case ownerJoinStream:
		requestRule = &ast.Rule{Stream: drivingStream, Actions: []ast.Action{sendReq}}
		responseRule = &ast.Rule{Stream: &ast.MonitorStream{Table: receiveResp}, Actions: rule.Actions}
	}

	remoteProg := fp.remoteFor(leaf.Principal)
	remoteProg.Program.Classes = append(remoteProg.Program.Classes, reqClass, respClass)

	receiveReq := &ast.InvocationTable{Kind_: reqClass.Kind, Channel: "receive", InParams: []ast.InputParam{
		{Name: "__principal", Value: originatingPrincipal(progPrincipal)},
		{Name: "__token", Value: &ast.StringValue{V: reqToken.String()}},
	}}
	receiveReq.SetSchema(reqClass.Queries["receive"])

	actualInv := &ast.InvocationTable{Kind_: leaf.Kind_, Channel: leaf.Channel, InParams: forwardParams(inArgs)}
	actualInv.SetSchema(leaf.GetSchema())

	sendResp := &ast.InvocationAction{Kind_: respClass.Kind, Channel: "send", InParams: append([]ast.InputParam{
		{Name: "__principal", Value: originatingPrincipal(progPrincipal)},
		{Name: "__token", Value: &ast.StringValue{V: respToken.String()}},
		{Name: "__kindChannel", Value: &ast.StringValue{V: kindChannel}},
	}, forwardParams(outArgs)...)}
	sendResp.SetSchema(respClass.Actions["send"])

	remoteProg.Program.Rules = append(remoteProg.Program.Rules, &ast.Rule{
		Stream: &ast.JoinStream{
			Stream: &ast.MonitorStream{Table: receiveReq},
			Table:  actualInv,
		},
		Actions: []ast.Action{sendResp},
	})

	return []*ast.Rule{requestRule, responseRule}, nil
}
