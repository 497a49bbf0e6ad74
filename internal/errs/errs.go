// Package errs defines the error taxonomy shared by the store, the ingestion
// pipeline and the benchmark harness.
//
// Every failure that crosses a package boundary is an *Error carrying a Kind.
// Callers classify failures with Is or KindOf rather than matching messages;
// wrapping with fmt.Errorf("...: %w", err) keeps the Kind reachable.
package errs

import (
	"errors"
	"fmt"
)

// Kind categorizes a failure.
type Kind string

const (
	// Precondition indicates a missing source file or a target store that
	// is missing or already exists. Raised before any mutation.
	Precondition Kind = "PRECONDITION"

	// Parse indicates a malformed numeric or year field, or a source row
	// with the wrong shape.
	Parse Kind = "PARSE"

	// Integrity indicates an unexpected constraint violation.
	Integrity Kind = "INTEGRITY"

	// NotFound indicates a dimension lookup that returned no row right
	// after its insert.
	NotFound Kind = "NOT_FOUND"

	// StorageUnavailable indicates a connection or driver failure.
	StorageUnavailable Kind = "STORAGE_UNAVAILABLE"

	// Schema indicates that tables or constraints were not set up before use.
	Schema Kind = "SCHEMA"
)

// Error is the structured error type used throughout sunshine.
type Error struct {
	// Kind classifies the failure.
	Kind Kind

	// Op names the operation that failed (e.g. "resolve employer").
	Op string

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Op != "" {
		if msg != "" {
			msg = e.Op + ": " + msg
		} else {
			msg = e.Op
		}
	}
	if e.Err != nil {
		if msg == "" {
			return fmt.Sprintf("%s: %v", e.Kind, e.Err)
		}
		return fmt.Sprintf("%s: %s: %v", e.Kind, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error without an underlying cause.
func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Newf creates an Error with a formatted message.
func Newf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error wrapping cause.
func Wrap(kind Kind, op string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Err: cause}
}

// Wrapf creates an Error wrapping cause with a formatted message.
func Wrapf(kind Kind, cause error, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...), Err: cause}
}

// KindOf returns the Kind of the first *Error in err's chain.
// Returns the empty Kind if there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err's chain contains an *Error of the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
