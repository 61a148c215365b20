// Package apperr defines the error taxonomy shared by the tracker, the HTTP
// layer and the CLI.
//
// Errors below the service boundary are plain wrapped errors. At the boundary
// they are converted into an *Error carrying a Code, and each surface maps the
// Code onto its own vocabulary (HTTP status, process exit code).
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Code categorizes a boundary error.
type Code string

const (
	// CodeValidation indicates malformed or out-of-range input, rejected before any I/O.
	CodeValidation Code = "VALIDATION"

	// CodeIntegrity indicates the store rejected a write on a constraint.
	CodeIntegrity Code = "INTEGRITY"

	// CodeUnauthorized indicates a missing or mismatched credential.
	CodeUnauthorized Code = "UNAUTHORIZED"

	// CodeNotFound indicates an identifier with no matching row.
	CodeNotFound Code = "NOT_FOUND"

	// CodeStorage indicates an unexpected storage failure.
	CodeStorage Code = "STORAGE"
)

// Error is a categorized error safe to show to a client.
//
// Message is the human-readable summary that may leave the process.
// Err keeps the underlying cause for logs and errors.Is/As; it is never
// rendered to clients.
type Error struct {
	Code    Code
	Message string

	// Problems lists individual validation failures, if any.
	Problems []string

	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if len(e.Problems) > 0 {
		msg = fmt.Sprintf("%s: %s", msg, strings.Join(e.Problems, "; "))
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Detail returns the client-facing text: the message plus any validation problems.
func (e *Error) Detail() string {
	if len(e.Problems) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, strings.Join(e.Problems, "; "))
}

// Validation creates a CodeValidation error listing each problem.
func Validation(message string, problems ...string) *Error {
	return &Error{Code: CodeValidation, Message: message, Problems: problems}
}

// Integrity creates a CodeIntegrity error wrapping the store's constraint error.
func Integrity(message string, err error) *Error {
	return &Error{Code: CodeIntegrity, Message: message, Err: err}
}

// Unauthorized creates the single CodeUnauthorized error. The message never
// says which part of the credential was wrong.
func Unauthorized() *Error {
	return &Error{Code: CodeUnauthorized, Message: "unauthorized"}
}

// NotFound creates a CodeNotFound error.
func NotFound(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// Storage creates a CodeStorage error. The message must already be sanitized;
// the raw driver error only travels in Err.
func Storage(message string, err error) *Error {
	return &Error{Code: CodeStorage, Message: message, Err: err}
}

// CodeOf returns the Code of the first *Error in err's chain.
// Errors that were never categorized report CodeStorage.
func CodeOf(err error) Code {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeStorage
}

// Is reports whether err carries the given code.
// Uses errors.As to handle wrapped errors.
func Is(err error, code Code) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code == code
	}
	return false
}

// DetailOf returns the client-facing text for err. Uncategorized errors get a
// generic message so raw driver text never leaks.
func DetailOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Detail()
	}
	return "internal server error"
}
