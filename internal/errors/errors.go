// Package errors provides standardized domain errors with codes for the Lectern server.
//
// Usage:
//
//	// In services - return typed errors
//	if manifestMissing {
//	    return errors.ManifestNotFound("meta folder has no inventory.json")
//	}
//
//	// In handlers - check with errors.Is
//	if errors.Is(err, errors.ErrSessionExpired) {
//	    response.Unauthorized(w, err.Error(), logger)
//	    return
//	}
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
)

// Code represents a machine-readable error code.
type Code string

// Error codes used throughout the application.
const (
	CodeNotFound         Code = "NOT_FOUND"
	CodeValidation       Code = "VALIDATION"
	CodeConflict         Code = "CONFLICT"
	CodeInternal         Code = "INTERNAL"
	CodeUnauthorized     Code = "UNAUTHORIZED"
	CodeSessionExpired   Code = "SESSION_EXPIRED"
	CodeManifestNotFound Code = "MANIFEST_NOT_FOUND"
	CodeManifestParse    Code = "MANIFEST_PARSE"
	CodeRunBusy          Code = "RUN_BUSY"
)

// HTTPStatus returns the appropriate HTTP status code for an error code.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeNotFound, CodeManifestNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeRunBusy:
		return http.StatusConflict
	case CodeUnauthorized, CodeSessionExpired:
		return http.StatusUnauthorized
	case CodeValidation:
		return http.StatusBadRequest
	case CodeManifestParse:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Error is a domain error with a code, message, and optional details.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error  // unexported, for wrapping
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target matches this error.
// Matches if target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// HTTPStatus returns the HTTP status code for this error.
func (e *Error) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		cause:   err,
	}
}

// WithDetails returns a new error with additional details.
func (e *Error) WithDetails(details any) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		cause:   e.cause,
	}
}

// Sentinel errors for use with errors.Is().
var (
	ErrNotFound         = &Error{Code: CodeNotFound, Message: "not found"}
	ErrValidation       = &Error{Code: CodeValidation, Message: "validation error"}
	ErrConflict         = &Error{Code: CodeConflict, Message: "conflict"}
	ErrInternal         = &Error{Code: CodeInternal, Message: "internal error"}
	ErrUnauthorized     = &Error{Code: CodeUnauthorized, Message: "unauthorized"}
	ErrSessionExpired   = &Error{Code: CodeSessionExpired, Message: "session expired"}
	ErrManifestNotFound = &Error{Code: CodeManifestNotFound, Message: "inventory manifest not found"}
	ErrManifestParse    = &Error{Code: CodeManifestParse, Message: "inventory manifest is not valid"}
	ErrRunBusy          = &Error{Code: CodeRunBusy, Message: "a reconciliation run is already in progress"}
)

// Constructor functions for creating errors with custom messages.

// NotFound creates a not found error.
func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// NotFoundf creates a not found error with formatted message.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// ValidationWithDetails creates a validation error with details.
func ValidationWithDetails(msg string, details any) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}

// Validationf creates a validation error with formatted message.
func Validationf(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// Conflict creates a conflict error.
func Conflict(msg string) *Error {
	return &Error{Code: CodeConflict, Message: msg}
}

// Internal creates an internal error.
func Internal(msg string) *Error {
	return &Error{Code: CodeInternal, Message: msg}
}

// Internalf creates an internal error with formatted message.
func Internalf(format string, args ...any) *Error {
	return &Error{Code: CodeInternal, Message: fmt.Sprintf(format, args...)}
}

// SessionExpired creates a session expired error.
// Surfaced to clients as an explicit reauthentication prompt, distinct from
// a generic unauthorized failure.
func SessionExpired(msg string) *Error {
	return &Error{Code: CodeSessionExpired, Message: msg}
}

// ManifestNotFound creates a manifest not found error.
func ManifestNotFound(msg string) *Error {
	return &Error{Code: CodeManifestNotFound, Message: msg}
}

// ManifestParse creates a manifest parse error.
func ManifestParse(msg string) *Error {
	return &Error{Code: CodeManifestParse, Message: msg}
}

// ManifestParsef creates a manifest parse error with formatted message.
func ManifestParsef(format string, args ...any) *Error {
	return &Error{Code: CodeManifestParse, Message: fmt.Sprintf(format, args...)}
}

// RunBusy creates a run busy error.
func RunBusy(msg string) *Error {
	return &Error{Code: CodeRunBusy, Message: msg}
}

// Wrap wraps an error with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// Wrapf wraps an error with a code and formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: err}
}
