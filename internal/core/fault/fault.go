// Package fault translates backend-specific failure signals into a fixed,
// finite set of user-facing categories. Both the offline fetch path and the
// session store route every surfaced error through this package, so callers
// never have to special-case raw backend codes.
package fault

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Code is a stable failure category. The set is closed: new backend error
// codes map onto an existing category or fall through to Unknown.
type Code string

const (
	NetworkUnavailable Code = "network-unavailable"
	PermissionDenied   Code = "permission-denied"
	NotFound           Code = "not-found"
	AlreadyExists      Code = "already-exists"
	PreconditionFailed Code = "precondition-failed"
	Unauthenticated    Code = "unauthenticated"
	RateLimited        Code = "rate-limited"
	Unknown            Code = "unknown"
)

// Error carries a category alongside the underlying backend error.
type Error struct {
	Code Code
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err with a failure category. Backend adapters use this at the
// boundary where driver-specific errors are still recognisable.
func New(code Code, err error) *Error {
	return &Error{Code: code, Err: err}
}

// CodeOf extracts the failure category from err. Errors that never passed
// through a backend adapter are classified by shape: timeouts and transport
// failures count as NetworkUnavailable, everything else is Unknown.
func CodeOf(err error) Code {
	if err == nil {
		return Unknown
	}

	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return NetworkUnavailable
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return NetworkUnavailable
	}

	return Unknown
}

// Is reports whether err carries the given failure category.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}

// Message returns the user-facing text for a category. The wording is part
// of the product surface; the UI renders it verbatim.
func Message(code Code) string {
	switch code {
	case NetworkUnavailable:
		return "Network error. The app will continue working offline."
	case PermissionDenied:
		return "You don't have permission to perform this action."
	case NotFound:
		return "The requested resource was not found."
	case AlreadyExists:
		return "This resource already exists."
	case PreconditionFailed:
		return "Operation failed. Please try again."
	case Unauthenticated:
		return "Please sign in to continue."
	case RateLimited:
		return "Too many requests. Please try again later."
	default:
		return "An unexpected error occurred"
	}
}
