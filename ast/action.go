package ast

import "fmt"

// Action is a side-effecting invocation; the built-in "notify" is one
// variant (a NotifyAction with no device selector), per §3.3.
type Action interface {
	Kind() string
	Clone() Action
	String() string
	GetSchema() *FunctionDef
	SetSchema(*FunctionDef)
}

type actionBase struct{ schema *FunctionDef }

func (b *actionBase) GetSchema() *FunctionDef  { return b.schema }
func (b *actionBase) SetSchema(f *FunctionDef) { b.schema = f }

// InvocationAction invokes a device action with the given input
// parameters.
type InvocationAction struct {
	actionBase
	Kind_     string
	Channel   string
	InParams  []InputParam
	Principal Value
}

func (a *InvocationAction) Kind() string { return "invocation" }
func (a *InvocationAction) Clone() Action {
	ps := make([]InputParam, len(a.InParams))
	for i, p := range a.InParams {
		ps[i] = p.Clone()
	}
	var pr Value
	if a.Principal != nil {
		pr = a.Principal.Clone()
	}
	return &InvocationAction{actionBase{a.schema}, a.Kind_, a.Channel, ps, pr}
}
func (a *InvocationAction) String() string {
	return fmt.Sprintf("@%s.%s(...)", a.Kind_, a.Channel)
}

// NotifyAction is the builtin sink that surfaces a tuple to the host's
// Output operation.
type NotifyAction struct {
	actionBase
}

func (a *NotifyAction) Kind() string           { return "notify" }
func (a *NotifyAction) Clone() Action           { return &NotifyAction{actionBase{a.schema}} }
func (a *NotifyAction) String() string          { return "notify" }

// VarRefAction refers to a named Declaration/Assignment bound earlier in
// the Program.
type VarRefAction struct {
	actionBase
	Name     string
	InParams []InputParam
}

func (a *VarRefAction) Kind() string { return "var_ref_action" }
func (a *VarRefAction) Clone() Action {
	ps := make([]InputParam, len(a.InParams))
	for i, p := range a.InParams {
		ps[i] = p.Clone()
	}
	return &VarRefAction{actionBase{a.schema}, a.Name, ps}
}
func (a *VarRefAction) String() string { return "@" + a.Name }
