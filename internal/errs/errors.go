// Package errs provides the unified error type used across xmldbms.
//
// Map construction, inversion, SQL generation and the database / filestore
// drivers all return *errs.Error. Callers use the Is* predicates to tell a
// naming conflict from a caller bug or a malformed source view without
// importing the package that produced the error.
//
// Usage:
//
//	// In a factory — report a collision:
//	return nil, errs.Newf(errs.ErrKindConflict, "child %s is already a property map", name)
//
//	// In a caller — check error kind:
//	if errs.IsMapping(err) {
//	    log.Fatalf("source view is malformed: %v", err)
//	}
package errs

import (
	"errors"
	"fmt"
)

// ErrKind categorises an error without exposing package-specific details.
type ErrKind int

const (
	ErrKindUnknown          ErrKind = iota
	ErrKindConflict                 // a node with that name or shape already exists
	ErrKindInvalidInput             // caller bug: missing field, broken invariant
	ErrKindMapping                  // inversion found a malformed source view
	ErrKindNotFound                 // no rows, no object, no bucket
	ErrKindConnectionFailed         // cannot reach the backend
	ErrKindTimeout                  // context deadline / cancellation
	ErrKindQueryFailed              // SQL or storage operation error
	ErrKindPermissionDenied         // access denied / auth failure
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindConflict:
		return "conflict"
	case ErrKindInvalidInput:
		return "invalid_input"
	case ErrKindMapping:
		return "mapping"
	case ErrKindNotFound:
		return "not_found"
	case ErrKindConnectionFailed:
		return "connection_failed"
	case ErrKindTimeout:
		return "timeout"
	case ErrKindQueryFailed:
		return "query_failed"
	case ErrKindPermissionDenied:
		return "permission_denied"
	default:
		return "unknown"
	}
}

// Error is the single error type returned by all xmldbms packages.
type Error struct {
	Kind    ErrKind
	Message string
	Cause   error // original driver-level error, preserved for logging
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap allows errors.Is / errors.As to traverse the cause chain.
func (e *Error) Unwrap() error {
	return e.Cause
}

// --- Constructors ---

// New creates an *Error with the given kind and message and no cause.
func New(kind ErrKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Newf is New with a format string.
func Newf(kind ErrKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an *Error with the given kind, message, and an underlying cause.
func Wrap(kind ErrKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// --- Predicates ---

// IsConflict reports whether err is a construction conflict: a node with
// the same name, or the same name under a different shape, already exists.
func IsConflict(err error) bool {
	return KindOf(err) == ErrKindConflict
}

// IsInvalidInput reports whether err was caused by bad input from the caller.
func IsInvalidInput(err error) bool {
	return KindOf(err) == ErrKindInvalidInput
}

// IsMapping reports whether err signals an inconsistent source view found
// during inversion.
func IsMapping(err error) bool {
	return KindOf(err) == ErrKindMapping
}

// IsNotFound reports whether err represents a "not found" result.
func IsNotFound(err error) bool {
	return KindOf(err) == ErrKindNotFound
}

// IsTimeout reports whether err was caused by a deadline or context cancellation.
func IsTimeout(err error) bool {
	return KindOf(err) == ErrKindTimeout
}

// IsConnectionFailed reports whether err is a connectivity or auth failure.
func IsConnectionFailed(err error) bool {
	return KindOf(err) == ErrKindConnectionFailed
}

// IsQueryFailed reports whether err is a backend operation failure.
func IsQueryFailed(err error) bool {
	return KindOf(err) == ErrKindQueryFailed
}

// IsPermissionDenied reports whether err is an access control failure.
func IsPermissionDenied(err error) bool {
	return KindOf(err) == ErrKindPermissionDenied
}

// KindOf extracts the ErrKind from any error in the chain.
func KindOf(err error) ErrKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrKindUnknown
}
