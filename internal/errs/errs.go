// Package errs defines the error kinds shared by every domain package.
//
// Domain packages declare sentinel errors bound to a kind:
//
//	var ErrPlanNotFound = errs.New(errs.NotFound, "plan_not_found")
//
// Callers match either the sentinel or the whole kind:
//
//	errors.Is(err, plandomain.ErrPlanNotFound)
//	errors.Is(err, errs.NotFound)
package errs

import (
	"errors"
	"strings"
)

// Kind classifies an error for transport mapping and retry decisions.
type Kind string

const (
	Validation     Kind = "validation_error"
	NotFound       Kind = "not_found"
	Conflict       Kind = "conflict"
	Authentication Kind = "authentication_error"
	Transient      Kind = "transient_error"
)

func (k Kind) Error() string { return string(k) }

// Error is a coded domain error.
type Error struct {
	Kind Kind
	Code string
	err  error
}

// New returns a sentinel error with a snake_case code.
func New(kind Kind, code string) *Error {
	return &Error{Kind: kind, Code: strings.TrimSpace(code)}
}

// Wrap attaches a kind to a foreign error. A nil err yields nil.
func Wrap(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	var coded *Error
	if errors.As(err, &coded) {
		return err
	}
	return &Error{Kind: kind, Code: string(kind), err: err}
}

func (e *Error) Error() string {
	if e.err != nil {
		return e.Code + ": " + e.err.Error()
	}
	return e.Code
}

func (e *Error) Unwrap() error { return e.err }

// Is matches the error's kind in addition to identity.
func (e *Error) Is(target error) bool {
	if kind, ok := target.(Kind); ok {
		return e.Kind == kind
	}
	return false
}

// KindOf returns the kind of err, or the empty kind when it carries none.
func KindOf(err error) Kind {
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Kind
	}
	var kind Kind
	if errors.As(err, &kind) {
		return kind
	}
	return ""
}

// CodeOf returns the snake_case code of err, or the empty string.
func CodeOf(err error) string {
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code
	}
	return ""
}
