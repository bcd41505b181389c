// Package typeerrors provides the structured error type raised by the
// semantic analyzer. TypeError preserves a causal chain and a dotted
// path to the offending node while still implementing the standard
// error interface, mirroring the corpus's ToolError shape.
package typeerrors

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// Kind tags a TypeError with the specific failure category. The two
// kind vocabularies named for the analyzer ("InvalidArgument",
// "DuplicateName", "ScopeShadowing", "MissingFilter",
// "MissingProjection", ...) and for its error-kind table
// ("DuplicateDeclaration", "ScopeShadow", "RequiresFilter",
// "RequiresProjection", ...) name the same failures under two spellings;
// Kind keeps one canonical constant per failure and documents the
// alternate spelling alongside it.
type Kind string

const (
	// UnknownKind means a ClassDef/kind reference does not resolve via
	// the schema retriever.
	UnknownKind Kind = "unknown_kind"
	// UnknownFunction means a kind resolves but the named query/action
	// channel does not exist on it.
	UnknownFunction Kind = "unknown_function"
	// UnknownArgument means an input parameter or projection name does
	// not match any argument of the resolved FunctionDef.
	UnknownArgument Kind = "unknown_argument"
	// InvalidArgument means an input parameter's value does not satisfy
	// the declared argument's Required/type constraints.
	InvalidArgument Kind = "invalid_argument"
	// InvalidType / TypeMismatch: a value's type is not assignable to
	// its expected position.
	InvalidType  Kind = "invalid_type"
	TypeMismatch Kind = "invalid_type"
	// InvalidOperator means a BinaryOp/ComputationOp has no overload for
	// its operand types.
	InvalidOperator Kind = "invalid_operator"
	// InvalidOverload means an operator resolved to more than one
	// overload ambiguously, or to none.
	InvalidOverload Kind = "invalid_overload"
	// DuplicateName / DuplicateDeclaration: two declarations, arguments,
	// or scope bindings of the same name collide.
	DuplicateName        Kind = "duplicate_name"
	DuplicateDeclaration Kind = "duplicate_name"
	// ScopeShadowing / ScopeShadow: a lexical binding shadows an
	// existing one in a way the analyzer forbids (e.g. a join rebinding
	// an outer name without a prefix).
	ScopeShadowing Kind = "scope_shadowing"
	ScopeShadow    Kind = "scope_shadowing"
	// MissingFilter / RequiresFilter: a monitorable query annotated
	// #[require_filter=true] is invoked without a filter.
	MissingFilter  Kind = "missing_filter"
	RequiresFilter Kind = "missing_filter"
	// MissingProjection / RequiresProjection: a query is used without
	// a required default/explicit projection.
	MissingProjection  Kind = "missing_projection"
	RequiresProjection Kind = "missing_projection"
	// NotMonitorable means monitor(...) is applied to a non-monitorable
	// query.
	NotMonitorable Kind = "not_monitorable"
	// InvalidPrincipal means a principal value does not resolve to a
	// tt:contact/tt:username entity.
	InvalidPrincipal Kind = "invalid_principal"
	// InvalidAnnotation means an annotation's value does not match its
	// prescribed shape (e.g. #[confirm=...] outside the enum).
	InvalidAnnotation Kind = "invalid_annotation"
)

// TypeError is the structured failure raised by the semantic analyzer.
// It is fatal to the enclosing Program: typeCheckProgram aggregates every
// TypeError it collects (via Append) and returns them together rather
// than stopping at the first one.
type TypeError struct {
	Kind    Kind
	Message string
	// Path is a dotted locator to the offending node, e.g.
	// "rules[0].table.filter" or "classes[0].queries.get_comic".
	Path  string
	Cause *TypeError
}

// New constructs a TypeError with the given kind, path and message.
func New(kind Kind, path, message string) *TypeError {
	return &TypeError{Kind: kind, Message: message, Path: path}
}

// Newf formats message according to a format specifier.
func Newf(kind Kind, path, format string, args ...any) *TypeError {
	return New(kind, path, fmt.Sprintf(format, args...))
}

// NewWithCause constructs a TypeError wrapping an underlying error,
// converting it into a TypeError chain so Kind/Path survive
// errors.Is/As the same way the cause chain does.
func NewWithCause(kind Kind, path, message string, cause error) *TypeError {
	if message == "" && cause != nil {
		message = cause.Error()
	}
	return &TypeError{Kind: kind, Message: message, Path: path, Cause: FromError(cause)}
}

// FromError converts an arbitrary error into a TypeError chain, tagging
// any error not already a TypeError with InvalidType.
func FromError(err error) *TypeError {
	if err == nil {
		return nil
	}
	var te *TypeError
	if errors.As(err, &te) {
		return te
	}
	return &TypeError{Kind: InvalidType, Message: err.Error(), Cause: FromError(errors.Unwrap(err))}
}

// Error implements the error interface.
func (e *TypeError) Error() string {
	if e == nil {
		return ""
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %s", e.Path, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying TypeError to support errors.Is/As.
func (e *TypeError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// List aggregates TypeErrors across an entire Program typecheck pass, so
// that sibling kinds/rules can complete independently before the whole
// batch is reported together (per the analyzer's "schema retrieval
// errors attach to the offending kind only; sibling kinds complete
// normally" rule).
type List struct {
	errs *multierror.Error
}

// Append records err into the list. A nil err is a no-op.
func (l *List) Append(err *TypeError) {
	if err == nil {
		return
	}
	l.errs = multierror.Append(l.errs, err)
}

// ErrorOrNil returns the aggregated error, or nil if nothing was
// appended.
func (l *List) ErrorOrNil() error {
	if l.errs == nil {
		return nil
	}
	return l.errs.ErrorOrNil()
}

// Len reports how many errors have been appended.
func (l *List) Len() int {
	if l.errs == nil {
		return 0
	}
	return len(l.errs.Errors)
}
