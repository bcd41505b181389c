// Package compileerrors provides the structured error type raised by the
// compiler and, for the runtime-detected kinds, by a Host implementation
// reporting back through the compiled rule's error channel. It mirrors
// typeerrors.TypeError's shape.
package compileerrors

import (
	"errors"
	"fmt"
)

// Kind tags a CompileError with its failure category.
type Kind string

const (
	// UnsupportedConstruct means the optimizer/compiler encountered an
	// AST shape it has no lowering for (e.g. a Table or Stream kind with
	// no lowering case in the compiler).
	UnsupportedConstruct Kind = "unsupported_construct"
	// AmbiguousJoin means a JoinTable/JoinStream's InParams do not
	// uniquely resolve which side binds which argument.
	AmbiguousJoin Kind = "ambiguous_join"
	// UnboundVarRef means a VarRef primitive names a Declaration or
	// Assignment that is not in scope at the point of reference.
	UnboundVarRef Kind = "unbound_var_ref"
	// AmbiguousRemote means remote factoring found more than one remote
	// action in a single rule, or a remote action together with a remote
	// query/stream source — both out of scope for a single factoring step.
	AmbiguousRemote Kind = "ambiguous_remote"

	// ActionFailed and QueryFailed are runtime-detected, reported by a
	// Host back through the compiled rule's error-report channel rather
	// than raised by the compiler itself. They are recoverable at the
	// rule level: the rule continues past the failing invocation with
	// the variable bindings for that step left unset.
	ActionFailed Kind = "action_failed"
	QueryFailed  Kind = "query_failed"
)

// Recoverable reports whether the failure is one the rule can continue
// past (the two runtime-detected kinds), as opposed to a fatal
// compile-time defect.
func (k Kind) Recoverable() bool {
	return k == ActionFailed || k == QueryFailed
}

// CompileError is the structured failure raised while compiling a Rule
// into a CompiledRule, or reported by a Host at runtime for the two
// recoverable kinds.
type CompileError struct {
	Kind Kind
	// RuleIndex is the Program.Rules index the failure belongs to, or -1
	// if not associated with a specific rule.
	RuleIndex int
	Message   string
	Cause     error
}

// New constructs a CompileError.
func New(kind Kind, ruleIndex int, message string) *CompileError {
	return &CompileError{Kind: kind, RuleIndex: ruleIndex, Message: message}
}

// Newf formats message according to a format specifier.
func Newf(kind Kind, ruleIndex int, format string, args ...any) *CompileError {
	return New(kind, ruleIndex, fmt.Sprintf(format, args...))
}

// NewWithCause constructs a CompileError wrapping an underlying error.
func NewWithCause(kind Kind, ruleIndex int, message string, cause error) *CompileError {
	if message == "" && cause != nil {
		message = cause.Error()
	}
	return &CompileError{Kind: kind, RuleIndex: ruleIndex, Message: message, Cause: cause}
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	if e == nil {
		return ""
	}
	if e.RuleIndex >= 0 {
		return fmt.Sprintf("rule[%d]: %s: %s", e.RuleIndex, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause to support errors.Is/As.
func (e *CompileError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// IsRecoverable reports whether err is a CompileError of a recoverable
// kind (ActionFailed/QueryFailed).
func IsRecoverable(err error) bool {
	var ce *CompileError
	if errors.As(err, &ce) {
		return ce.Kind.Recoverable()
	}
	return false
}
