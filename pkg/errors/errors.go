package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a typed domain error carrying a machine-checkable code and an HTTP status.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Sentinel errors for the gateway. NotFound is a valid empty state on single-row
// lookups, never a failure. RemoteError covers any backend call that failed for a
// reason other than absence.
var (
	ErrNotFound         = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrUnauthenticated  = New("UNAUTHENTICATED", http.StatusUnauthorized, "authentication required")
	ErrPermissionDenied = New("PERMISSION_DENIED", http.StatusForbidden, "permission denied")
	ErrDuplicateRequest = New("DUPLICATE_REQUEST", http.StatusConflict, "a pending request already exists")
	ErrRemote           = New("REMOTE_ERROR", http.StatusBadGateway, "backend call failed")
	ErrValidation       = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
)

// Remote wraps a backend failure preserving the backend's message.
func Remote(err error, message string) *Error {
	return Wrap(err, ErrRemote.Code, ErrRemote.Status, message)
}

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrRemote.Code, ErrRemote.Status, ErrRemote.Message)
}

// Is reports whether err carries the given sentinel's code.
func Is(err error, sentinel *Error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Code == sentinel.Code
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
