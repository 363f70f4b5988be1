// Package apperr defines the typed error kinds the summarization pipeline
// reports and their HTTP status mapping.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is a stable machine-readable error category.
type Kind string

const (
	KindUnknown          Kind = "UNKNOWN"
	KindUnauthenticated  Kind = "UNAUTHENTICATED"
	KindTenantNotFound   Kind = "TENANT_NOT_FOUND"
	KindTemplateNotFound Kind = "TEMPLATE_NOT_FOUND"
	KindInvalidPrompt    Kind = "INVALID_PROMPT"
	KindInvalidRequest   Kind = "INVALID_REQUEST"
	KindRateLimited      Kind = "RATE_LIMITED"
	KindModelUnavailable Kind = "MODEL_UNAVAILABLE"
	KindStoreUnavailable Kind = "STORE_UNAVAILABLE"
	KindCacheUnavailable Kind = "CACHE_UNAVAILABLE"
)

// Error carries a Kind alongside the underlying cause.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is match two apperr values by Kind.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Kind == other.Kind
}

// New creates an error of the given kind with a message.
func New(kind Kind, format string, args ...interface{}) error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// Wrap attaches a kind to an existing error. Returns nil for a nil cause.
func Wrap(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}

// KindOf extracts the kind from an error chain, KindUnknown if untyped.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Retryable reports whether the error represents a transient condition that
// bounded retry may resolve.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindRateLimited, KindModelUnavailable, KindStoreUnavailable, KindCacheUnavailable:
		return true
	}
	return false
}

// HTTPStatus maps a kind to its status-equivalent.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindTenantNotFound, KindTemplateNotFound:
		return http.StatusNotFound
	case KindInvalidPrompt, KindInvalidRequest:
		return http.StatusBadRequest
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindModelUnavailable, KindStoreUnavailable, KindCacheUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
