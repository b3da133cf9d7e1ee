// Package domainerrors provides coded errors for expected failure conditions.
//
// Services return these instead of panicking or bubbling raw infrastructure
// errors: the code tells transport layers how to answer (status mapping lives
// in pkg/platform/httputil) and tells callers whether the condition is
// recoverable. Stores return pkg/platform/sentinel errors; services translate.
package domainerrors

import "errors"

// Code classifies an expected failure.
type Code string

const (
	CodeBadRequest         Code = "bad_request"
	CodeValidation         Code = "validation_error"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeInvariantViolation Code = "invariant_violation"
	CodeTimeout            Code = "timeout"
	CodeInternal           Code = "internal_error"
)

// Error carries a code, a caller-facing description and an optional cause.
type Error struct {
	Code        Code
	Description string
	cause       error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Description + ": " + e.cause.Error()
	}
	return e.Description
}

func (e *Error) Unwrap() error { return e.cause }

// New builds a domain error with no underlying cause.
func New(code Code, description string) error {
	return &Error{Code: code, Description: description}
}

// Wrap attaches a code and description to an underlying error. The cause
// stays reachable through errors.Is / errors.As.
func Wrap(err error, code Code, description string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Description: description, cause: err}
}

// HasCode reports whether err (or anything it wraps) is a domain error with
// the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal for
// unclassified errors so unexpected failures never leak details outward.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// Message extracts the caller-facing description from err. Unclassified
// errors yield an empty message; transports should not echo them.
func Message(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Description
	}
	return ""
}
