// Package apperr defines the error taxonomy shared by the ledger and the
// registry. Every failure a command or query returns to a handler is one of
// these kinds, so the HTTP layer can map it without string matching.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an Error.
type Kind int

const (
	// KindUnexpected is anything the other kinds do not describe.
	KindUnexpected Kind = iota
	// KindValidation is malformed or missing input, rejected before any side effect.
	KindValidation
	// KindNotFound means a referenced entity, local or remote, does not exist.
	KindNotFound
	// KindBusinessRule is an invariant breach.
	KindBusinessRule
	// KindDependencyUnavailable means a remote check timed out or the peer was
	// unreachable. It is never a confirmed absence.
	KindDependencyUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindBusinessRule:
		return "business_rule"
	case KindDependencyUnavailable:
		return "dependency_unavailable"
	default:
		return "unexpected"
	}
}

// Error is a classified application error.
type Error struct {
	Kind    Kind   `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches two *Error values by kind and code, so package-level sentinels
// work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

func Validation(code, message string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: message}
}

func NotFound(code, message string) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: message}
}

func BusinessRule(code, message string) *Error {
	return &Error{Kind: KindBusinessRule, Code: code, Message: message}
}

// Unavailable wraps the transport or timeout cause of a failed remote check.
func Unavailable(code, message string, cause error) *Error {
	return &Error{Kind: KindDependencyUnavailable, Code: code, Message: message, Err: cause}
}

// Unexpected wraps a cause that fits no other kind.
func Unexpected(code, message string, cause error) *Error {
	return &Error{Kind: KindUnexpected, Code: code, Message: message, Err: cause}
}

// KindOf reports the kind of err. Errors outside the taxonomy are unexpected.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnexpected
}

// As returns the first *Error in err's chain, wrapping unclassified errors
// as unexpected.
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Unexpected("INTERNAL", "internal error", err)
}
