// Package errs implements the tagged error model the interpreter surfaces
// to embedders: a closed set of kinds, each carrying an optional source
// location and a free-form context map, rendered as
// "[Kind] message at line L, column C {...}".
package errs

import (
	"fmt"
	"sort"
	"strings"

	pkgerrors "github.com/pkg/errors"
)

// Kind tags an Error with one of a closed taxonomy of error categories.
type Kind string

const (
	KindRuntimeError         Kind = "RuntimeError"
	KindTypeError            Kind = "TypeError"
	KindDivisionByZero       Kind = "DivisionByZero"
	KindInvalidOperator      Kind = "InvalidOperator"
	KindInvalidAssignment    Kind = "InvalidAssignment"
	KindInvalidFunctionCall  Kind = "InvalidFunctionCall"
	KindInvalidMemberAccess  Kind = "InvalidMemberAccess"
	KindUndefinedVariable    Kind = "UndefinedVariable"
	KindUnimplementedFeature Kind = "UnimplementedFeature"
	KindSyntaxError          Kind = "SyntaxError"
	KindUnexpectedToken      Kind = "UnexpectedToken"
	KindMissingToken         Kind = "MissingToken"
	KindBuiltinError         Kind = "BuiltinError"
	KindUndefinedLabel       Kind = "UndefinedLabel"
)

// Location is a source position: a line and column.
type Location struct {
	Line   int
	Column int
}

// Error is the tagged error every component in the interpreter returns.
type Error struct {
	Kind     Kind
	Message  string
	Location *Location
	Context  map[string]interface{}
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%s] %s", e.Kind, e.Message))
	if e.Location != nil {
		sb.WriteString(fmt.Sprintf(" at line %d, column %d", e.Location.Line, e.Location.Column))
	}
	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pairs := make([]string, 0, len(keys))
		for _, k := range keys {
			pairs = append(pairs, fmt.Sprintf("%s: %v", k, e.Context[k]))
		}
		sb.WriteString(" {" + strings.Join(pairs, ", ") + "}")
	}
	return sb.String()
}

// New builds a bare Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WithLocation attaches a source location and returns the receiver.
func (e *Error) WithLocation(line, column int) *Error {
	e.Location = &Location{Line: line, Column: column}
	return e
}

// WithContext merges key/value pairs into the error's context map.
func (e *Error) WithContext(kv map[string]interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{}, len(kv))
	}
	for k, v := range kv {
		e.Context[k] = v
	}
	return e
}

// As reports whether err is (or wraps) an *Error of the given kind.
func As(err error, kind Kind) (*Error, bool) {
	var e *Error
	if !stdAs(err, &e) {
		return nil, false
	}
	return e, e.Kind == kind
}

// stdAs mirrors errors.As without importing the stdlib package under an
// ambiguous name alongside pkg/errors.
func stdAs(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		type causer interface{ Cause() error }
		type unwrapper interface{ Unwrap() error }
		if u, ok := err.(unwrapper); ok {
			err = u.Unwrap()
			continue
		}
		if c, ok := err.(causer); ok {
			err = c.Cause()
			continue
		}
		return false
	}
	return false
}

// Wrap tags an arbitrary error as a RuntimeError, preserving a pkg/errors
// stack trace of the original failure in its context under "cause". If
// err is already a tagged *Error it is returned unchanged — an error of
// the defined kinds propagates unchanged.
func Wrap(err error, message string) *Error {
	if err == nil {
		return nil
	}
	if tagged, ok := err.(*Error); ok {
		return tagged
	}
	wrapped := pkgerrors.Wrap(err, message)
	return New(KindRuntimeError, wrapped.Error()).WithContext(map[string]interface{}{
		"cause": fmt.Sprintf("%+v", wrapped),
	})
}
