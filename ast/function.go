package ast

import (
	"fmt"
	"time"

	"github.com/stanford-oval/thingtalk/types"
)

// FunctionKind enumerates the three primitive kinds a FunctionDef may
// describe, per §3.3.
type FunctionKind string

const (
	FunctionStream FunctionKind = "stream"
	FunctionQuery  FunctionKind = "query"
	FunctionAction FunctionKind = "action"
)

// ArgDirection is the direction of a FunctionDef argument.
type ArgDirection string

const (
	ArgIn  ArgDirection = "in"
	ArgOut ArgDirection = "out"
)

// ArgumentDef describes a single declared argument of a FunctionDef.
type ArgumentDef struct {
	Direction ArgDirection
	Name      string
	Type      types.Type
	// Required marks an "in" argument the caller must eventually
	// provide (possibly as an Undefined hole for slot-filling); it is
	// ignored for "out" arguments.
	Required bool
	Metadata map[string]string
	Annotations map[string]Value
}

// Annotations with prescribed semantics, per §6.
const (
	AnnotationPollInterval      = "poll_interval"
	AnnotationRequireFilter     = "require_filter"
	AnnotationDefaultProjection = "default_projection"
	AnnotationURL               = "url"
	AnnotationDoc                = "doc"
	AnnotationConfirm            = "confirm"
)

// ConfirmationLevel enumerates the #[confirm=...] annotation's allowed
// values.
type ConfirmationLevel string

const (
	ConfirmAccepted   ConfirmationLevel = "accepted"
	ConfirmConfirmed  ConfirmationLevel = "confirmed"
	ConfirmUnconfirmed ConfirmationLevel = "unconfirmed"
)

// FunctionDef is the "ExpressionSignature" used throughout the core: the
// typed signature of a stream, query or action, annotated with the
// metadata semantic analysis and the compiler consult.
type FunctionDef struct {
	Kind FunctionKind
	Name string
	Args []ArgumentDef

	IsList       bool
	IsMonitorable bool

	PollInterval      time.Duration
	RequireFilter     bool
	DefaultProjection []string
	URL               string
	Doc               string
	Confirm           ConfirmationLevel

	// Parent is a back reference to the owning ClassDef, set when the
	// FunctionDef is attached to one. It is never an owning edge: Clone
	// on the parent ClassDef remaps this pointer on the clone, and
	// cloning a bare FunctionDef leaves it nil.
	Parent *ClassDef

	ExtraAnnotations map[string]Value
}

// EvalName implements analysis.Expression, allowing descriptive
// validation error messages.
func (f *FunctionDef) EvalName() string {
	return fmt.Sprintf("%s %q", f.Kind, f.Name)
}

// Prepare fills in defaults: a confirm level of "confirmed" when unset.
func (f *FunctionDef) Prepare() {
	if f.Confirm == "" {
		f.Confirm = ConfirmConfirmed
	}
}

// Validate checks the structural invariants of a FunctionDef in
// isolation (argument names are unique; poll_interval only appears on
// monitorable queries, per §6).
func (f *FunctionDef) Validate() error {
	if f.Name == "" {
		return fmt.Errorf("function: name is required")
	}
	seen := make(map[string]bool, len(f.Args))
	for _, a := range f.Args {
		if seen[a.Name] {
			return fmt.Errorf("function %q: duplicate argument %q", f.Name, a.Name)
		}
		seen[a.Name] = true
	}
	if f.PollInterval != 0 && (f.Kind != FunctionQuery || !f.IsMonitorable) {
		return fmt.Errorf("function %q: poll_interval is only valid on monitorable queries", f.Name)
	}
	return nil
}

// ArgByName returns the argument declared under name, or nil.
func (f *FunctionDef) ArgByName(name string) *ArgumentDef {
	for i := range f.Args {
		if f.Args[i].Name == name {
			return &f.Args[i]
		}
	}
	return nil
}

// OutArgs returns the function's output ("out") arguments in declaration
// order.
func (f *FunctionDef) OutArgs() []ArgumentDef {
	var out []ArgumentDef
	for _, a := range f.Args {
		if a.Direction == ArgOut {
			out = append(out, a)
		}
	}
	return out
}

// InArgs returns the function's input ("in") arguments in declaration
// order.
func (f *FunctionDef) InArgs() []ArgumentDef {
	var in []ArgumentDef
	for _, a := range f.Args {
		if a.Direction == ArgIn {
			in = append(in, a)
		}
	}
	return in
}

// Clone returns a deep copy of f with Parent left nil; callers cloning a
// whole ClassDef are responsible for re-attaching Parent on the copies.
func (f *FunctionDef) Clone() *FunctionDef {
	args := make([]ArgumentDef, len(f.Args))
	for i, a := range f.Args {
		md := make(map[string]string, len(a.Metadata))
		for k, v := range a.Metadata {
			md[k] = v
		}
		ann := make(map[string]Value, len(a.Annotations))
		for k, v := range a.Annotations {
			ann[k] = v.Clone()
		}
		args[i] = ArgumentDef{Direction: a.Direction, Name: a.Name, Type: a.Type, Required: a.Required, Metadata: md, Annotations: ann}
	}
	extra := make(map[string]Value, len(f.ExtraAnnotations))
	for k, v := range f.ExtraAnnotations {
		extra[k] = v.Clone()
	}
	return &FunctionDef{
		Kind: f.Kind, Name: f.Name, Args: args,
		IsList: f.IsList, IsMonitorable: f.IsMonitorable,
		PollInterval: f.PollInterval, RequireFilter: f.RequireFilter,
		DefaultProjection: append([]string(nil), f.DefaultProjection...),
		URL: f.URL, Doc: f.Doc, Confirm: f.Confirm,
		ExtraAnnotations: extra,
	}
}
