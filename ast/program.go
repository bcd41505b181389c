package ast

// Rule combines an optional stream-or-table source with a non-empty list
// of actions, per §3.3.
type Rule struct {
	Stream Stream // mutually exclusive with Table; nil if the rule is table-driven (one-shot)
	Table  Table  // mutually exclusive with Stream
	Actions []Action
}

// Clone returns a deep copy of r.
func (r *Rule) Clone() *Rule {
	n := &Rule{}
	if r.Stream != nil {
		n.Stream = r.Stream.Clone()
	}
	if r.Table != nil {
		n.Table = r.Table.Clone()
	}
	n.Actions = make([]Action, len(r.Actions))
	for i, a := range r.Actions {
		n.Actions[i] = a.Clone()
	}
	return n
}

// IsStreamDriven reports whether the rule is triggered by a stream
// source (vs. a one-shot table source or no source at all).
func (r *Rule) IsStreamDriven() bool { return r.Stream != nil }

// Declaration names a reusable sub-program (a stream, table, or action
// template) that can be referenced elsewhere in the Program via a
// VarRef primitive.
type Declaration struct {
	Name string
	Kind FunctionKind // stream | query | action
	Args []ArgumentDef

	Stream Stream
	Table  Table
	Action Action

	Metadata    map[string]string
	Annotations map[string]Value
}

// Clone returns a deep copy of d.
func (d *Declaration) Clone() *Declaration {
	n := &Declaration{Name: d.Name, Kind: d.Kind}
	n.Args = append([]ArgumentDef(nil), d.Args...)
	if d.Stream != nil {
		n.Stream = d.Stream.Clone()
	}
	if d.Table != nil {
		n.Table = d.Table.Clone()
	}
	if d.Action != nil {
		n.Action = d.Action.Clone()
	}
	n.Metadata = copyStringMap(d.Metadata)
	n.Annotations = copyValueMap(d.Annotations)
	return n
}

// Assignment names a table expression for later reference, e.g.
// `let result = @com.xkcd.get_comic();`.
type Assignment struct {
	Name  string
	Table Table
	// Schema is the assignment's own output signature, filled in by
	// semantic analysis from Table's schema.
	Schema *FunctionDef
}

// Clone returns a deep copy of a.
func (a *Assignment) Clone() *Assignment {
	n := &Assignment{Name: a.Name, Table: a.Table.Clone()}
	if a.Schema != nil {
		n.Schema = a.Schema.Clone()
	}
	return n
}

// Program is the top-level AST root, per §3.3.
type Program struct {
	Principal    Value // optional; tt:contact/tt:username entity
	Classes      []*ClassDef
	Declarations []*Declaration
	Assignments  []*Assignment
	Rules        []*Rule
}

// Clone returns a deep copy of p.
func (p *Program) Clone() *Program {
	n := &Program{}
	if p.Principal != nil {
		n.Principal = p.Principal.Clone()
	}
	for _, c := range p.Classes {
		n.Classes = append(n.Classes, c.Clone())
	}
	for _, d := range p.Declarations {
		n.Declarations = append(n.Declarations, d.Clone())
	}
	for _, a := range p.Assignments {
		n.Assignments = append(n.Assignments, a.Clone())
	}
	for _, r := range p.Rules {
		n.Rules = append(n.Rules, r.Clone())
	}
	return n
}

// Dataset is a named collection of Examples, typically used to seed
// dialogue-agent training data; out of the core's execution path but
// part of the AST surface semantic analysis must still validate.
type Dataset struct {
	Name     string
	Language string
	Examples []*Example
}

// Example associates an utterance-independent program fragment
// (Stream/Table/Action) with example slot values; NL utterances
// themselves are out of scope (handled by the collaborator layer).
type Example struct {
	Kind    FunctionKind
	Stream  Stream
	Table   Table
	Action  Action
	Args    map[string]types_Placeholder // kept abstract; filled by the NL layer
}

// types_Placeholder avoids importing the types package purely for a
// documentation-only field; Example.Args is never consulted by the core
// and exists so datasets round-trip through Clone/analysis untouched.
type types_Placeholder = struct{}

// PermissionRule restricts which programs a principal may run, following
// the same Stream/Table/Action/Filter grammar as a Rule but evaluated
// against a candidate program rather than executed.
type PermissionRule struct {
	Principal Value // tt:contact/tt:username entity, or nil = any principal
	Source    FilterExpression // constraints on the candidate rule's source primitive
	Actions   []FilterExpression // constraints on each candidate action, matched positionally
}

// Clone returns a deep copy of pr.
func (pr *PermissionRule) Clone() *PermissionRule {
	n := &PermissionRule{}
	if pr.Principal != nil {
		n.Principal = pr.Principal.Clone()
	}
	if pr.Source != nil {
		n.Source = pr.Source.Clone()
	}
	for _, a := range pr.Actions {
		n.Actions = append(n.Actions, a.Clone())
	}
	return n
}

// BookkeepingIntent enumerates the small set of control signals a
// Bookkeeping top-level carries instead of a full Program, e.g. a yes/no
// answer or a menu choice during slot-filling.
type BookkeepingIntent string

const (
	BookkeepingYes        BookkeepingIntent = "yes"
	BookkeepingNo         BookkeepingIntent = "no"
	BookkeepingChoice     BookkeepingIntent = "choice"
	BookkeepingAnswer     BookkeepingIntent = "answer"
	BookkeepingCommand    BookkeepingIntent = "command"
)

// Bookkeeping is a top-level input that is not itself an executable
// Program: a direct answer to a pending slot-filling/disambiguation
// question raised by a previous analysis.
type Bookkeeping struct {
	Intent BookkeepingIntent
	Value  Value // the answer payload, e.g. an index for BookkeepingChoice
}

// Clone returns a deep copy of b.
func (b *Bookkeeping) Clone() *Bookkeeping {
	n := &Bookkeeping{Intent: b.Intent}
	if b.Value != nil {
		n.Value = b.Value.Clone()
	}
	return n
}

func copyStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	n := make(map[string]string, len(m))
	for k, v := range m {
		n[k] = v
	}
	return n
}

func copyValueMap(m map[string]Value) map[string]Value {
	if m == nil {
		return nil
	}
	n := make(map[string]Value, len(m))
	for k, v := range m {
		n[k] = v.Clone()
	}
	return n
}
