// Package apperr provides standardized domain error types for the application.
// Pipeline stages return these typed errors so callers can distinguish
// per-record failures (drop and continue) from invocation-fatal ones.
package apperr

import (
	"errors"
	"fmt"
)

// Kind represents the category of error.
type Kind int

const (
	// KindUnknown is the default error kind when none is specified.
	KindUnknown Kind = iota
	// KindNotFound indicates a resource was not found.
	KindNotFound
	// KindValidation indicates data that violates the declared schema.
	KindValidation
	// KindDuplicate indicates a conflict with existing state (e.g., an
	// already ingested item).
	KindDuplicate
	// KindSourceFetch indicates an item source that could not be reached.
	KindSourceFetch
	// KindServiceAuth indicates the text-generation service rejected our
	// credentials.
	KindServiceAuth
	// KindServiceQuota indicates the text-generation service rate limit or
	// quota was exhausted.
	KindServiceQuota
	// KindServiceCall indicates any other text-generation call failure.
	KindServiceCall
	// KindTimeout indicates a per-call deadline was exceeded.
	KindTimeout
	// KindInternal indicates an unexpected internal error.
	KindInternal
)

// Error is a domain error with a typed Kind.
type Error struct {
	Kind    Kind
	Message string
	Op      string // Operation that failed (optional)
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a new domain error with the given kind and message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates a new domain error wrapping an existing error.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// WithOp returns the error with the operation set.
func (e *Error) WithOp(op string) *Error {
	e.Op = op
	return e
}

// Convenience constructors for common error types.

// NotFound creates a not found error.
func NotFound(message string) *Error {
	return New(KindNotFound, message)
}

// Validation creates a validation error.
func Validation(message string) *Error {
	return New(KindValidation, message)
}

// Duplicate creates a duplicate error.
func Duplicate(message string) *Error {
	return New(KindDuplicate, message)
}

// SourceFetch creates a source fetch error.
func SourceFetch(message string, err error) *Error {
	return Wrap(KindSourceFetch, message, err)
}

// ServiceAuth creates a service authentication error.
func ServiceAuth(message string, err error) *Error {
	return Wrap(KindServiceAuth, message, err)
}

// ServiceQuota creates a service quota error.
func ServiceQuota(message string, err error) *Error {
	return Wrap(KindServiceQuota, message, err)
}

// ServiceCall creates a generic service call error.
func ServiceCall(message string, err error) *Error {
	return Wrap(KindServiceCall, message, err)
}

// Timeout creates a timeout error.
func Timeout(message string, err error) *Error {
	return Wrap(KindTimeout, message, err)
}

// Internal creates an internal error.
func Internal(message string) *Error {
	return New(KindInternal, message)
}

// GetKind extracts the error kind from an error chain.
// Returns KindUnknown if no *Error is found.
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is checks if err carries the given kind.
func Is(err error, kind Kind) bool {
	return GetKind(err) == kind
}

// IsFatalServiceErr reports whether a service error predicts universal
// failure for the rest of the stage invocation. Auth and quota errors fail
// every subsequent call too, so the stage aborts before fanning out.
func IsFatalServiceErr(err error) bool {
	switch GetKind(err) {
	case KindServiceAuth, KindServiceQuota:
		return true
	default:
		return false
	}
}
