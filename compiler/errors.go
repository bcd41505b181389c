package compiler

import (
	"errors"
	"fmt"

	"github.com/stanford-oval/thingtalk/compileerrors"
)

// compileFailure is the internal error shape produced while walking a
// Rule; compileRule attaches the owning rule index and converts it to a
// compileerrors.CompileError at the CompileProgram boundary.
type compileFailure struct {
	kind compileerrors.Kind
	msg  string
}

func (f *compileFailure) Error() string { return f.msg }

func errUnsupported(format string, args ...any) error {
	return &compileFailure{kind: compileerrors.UnsupportedConstruct, msg: fmt.Sprintf(format, args...)}
}

func errAmbiguousJoin(format string, args ...any) error {
	return &compileFailure{kind: compileerrors.AmbiguousJoin, msg: fmt.Sprintf(format, args...)}
}

func errUnboundVarRef(format string, args ...any) error {
	return &compileFailure{kind: compileerrors.UnboundVarRef, msg: fmt.Sprintf(format, args...)}
}

// wrapRuleError converts an internal compileFailure (or any other error)
// into a compileerrors.CompileError tagged with ruleIndex.
func wrapRuleError(ruleIndex int, err error) error {
	if err == nil {
		return nil
	}
	var cf *compileFailure
	if errors.As(err, &cf) {
		return compileerrors.New(cf.kind, ruleIndex, cf.msg)
	}
	return compileerrors.NewWithCause(compileerrors.UnsupportedConstruct, ruleIndex, "", err)
}
