package remote

import (
	"fmt"

	"github.com/stanford-oval/thingtalk/ast"
	"github.com/stanford-oval/thingtalk/types"
)

// brokerClass is the reserved remote-broker class every synthesized
// dynamic class extends, per §4.6/§9.
const brokerClass = "org.thingpedia.builtin.thingengine.remote"

// reservedArgs are the fixed leading arguments every send action and
// receive query/stream carries, ahead of the lifted primitive's own
// fields.
var (
	argPrincipal = ast.ArgumentDef{Direction: ast.ArgIn, Name: "__principal", Type: types.Entity("tt:contact")}
	argToken     = ast.ArgumentDef{Direction: ast.ArgIn, Name: "__token", Type: types.String}
	argKindCh    = ast.ArgumentDef{Direction: ast.ArgIn, Name: "__kindChannel", Type: types.String}
)

// classBuilder synthesizes __dyn_k classes for one factoring pass; k is
// a per-pass counter, not registered in the schema retriever and local
// to the output programs, per §9's "Dynamic class synthesis" note.
type classBuilder struct {
	counter int
}

func (b *classBuilder) next() string {
	name := fmt.Sprintf("__dyn_%d", b.counter)
	b.counter++
	return name
}

// sendFunc builds the FunctionDef for a dyn class's "send" action
// forwarding fields (the lifted primitive's own argument list, in
// either direction) alongside the three reserved routing arguments.
func sendFunc(fields []ast.ArgumentDef) *ast.FunctionDef {
	args := append([]ast.ArgumentDef{argPrincipal, argToken, argKindCh}, fields...)
	return &ast.FunctionDef{Kind: ast.FunctionAction, Name: "send", Args: args}
}

// receiveFunc builds the FunctionDef for a dyn class's "receive" query,
// monitorable so it can be wrapped in a MonitorStream to resume a rule
// on arrival; outArgs become the query's own output arguments.
func receiveFunc(outArgs []ast.ArgumentDef) *ast.FunctionDef {
	args := append([]ast.ArgumentDef{argPrincipal, argToken}, asOut(outArgs)...)
	return &ast.FunctionDef{Kind: ast.FunctionQuery, Name: "receive", Args: args, IsMonitorable: true}
}

// asOut forces every argument's direction to "out", needed when mirroring
// a lifted invocation's input arguments as a receive query's output
// columns (what was sent in becomes what comes out the other end).
func asOut(args []ast.ArgumentDef) []ast.ArgumentDef {
	out := make([]ast.ArgumentDef, len(args))
	for i, a := range args {
		out[i] = a
		out[i].Direction = ast.ArgOut
	}
	return out
}

// newDynClass synthesizes a __dyn_k class extending brokerClass, wired
// with a send action and a receive query whose signatures both mirror
// fields: whichever side of the pair is sending carries fields as
// ordinary arguments, whichever side is receiving sees the same fields
// back as its query's output columns.
func (b *classBuilder) newDynClass(fields []ast.ArgumentDef) *ast.ClassDef {
	cls := ast.NewClassDef(b.next(), []string{brokerClass})
	cls.AddAction("send", sendFunc(fields))
	cls.AddQuery("receive", receiveFunc(fields))
	return cls
}
