package types

import (
	"fmt"
)

// ErrorKind is a stable code for each failure mode of a search.
type ErrorKind string

const (
	// KindInvalidPath: the search root does not exist or is not a directory. Fatal.
	KindInvalidPath ErrorKind = "INVALID_PATH"
	// KindPermissionDenied: one entry could not be read. Swallowed by the walker.
	KindPermissionDenied ErrorKind = "PERMISSION_DENIED"
	// KindUnreadableRoot: the search root exists but cannot be listed. Fatal.
	KindUnreadableRoot ErrorKind = "UNREADABLE_ROOT"
	// KindMalformedFilter: a filter fragment did not parse. Treated as no constraint.
	KindMalformedFilter ErrorKind = "MALFORMED_FILTER_FRAGMENT"
	// KindClassifierUnavailable: the external classifier failed. Triggers local fallback.
	KindClassifierUnavailable ErrorKind = "CLASSIFIER_UNAVAILABLE"
)

// Sentinels for errors.Is matching by kind.
var (
	ErrInvalidPath           = &Error{Kind: KindInvalidPath}
	ErrPermissionDenied      = &Error{Kind: KindPermissionDenied}
	ErrUnreadableRoot        = &Error{Kind: KindUnreadableRoot}
	ErrMalformedFilter       = &Error{Kind: KindMalformedFilter}
	ErrClassifierUnavailable = &Error{Kind: KindClassifierUnavailable}
)

// Error is a search failure with a kind, the path involved and an optional cause.
type Error struct {
	Kind    ErrorKind `json:"kind"`
	Path    string    `json:"path,omitempty"`
	Message string    `json:"message"`
	cause   error
}

// NewError creates an Error of the given kind.
func NewError(kind ErrorKind, path, message string, cause error) *Error {
	return &Error{Kind: kind, Path: path, Message: message, cause: cause}
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Path != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Path)
	}
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, msg, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, msg)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches any *Error of the same kind, so the sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Fatal reports whether the kind ends a search.
func (k ErrorKind) Fatal() bool {
	return k == KindInvalidPath || k == KindUnreadableRoot
}
