// Package apierror defines the error kinds returned to API callers and the
// HTTP status each one maps to.
package apierror

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindValidation        Kind = "VALIDATION"
	KindNotFound          Kind = "NOT_FOUND"
	KindUnauthorized      Kind = "UNAUTHORIZED"
	KindForbidden         Kind = "FORBIDDEN"
	KindStaleToken        Kind = "STALE_TOKEN"
	KindConflict          Kind = "CONFLICT"
	KindMediaUploadFailed Kind = "MEDIA_UPLOAD_FAILED"
	KindTimeout           Kind = "TIMEOUT"
	KindRateLimited       Kind = "RATE_LIMITED"
	KindInternal          Kind = "INTERNAL"
)

var statusByKind = map[Kind]int{
	KindValidation:        http.StatusBadRequest,
	KindNotFound:          http.StatusNotFound,
	KindUnauthorized:      http.StatusUnauthorized,
	KindForbidden:         http.StatusForbidden,
	KindStaleToken:        http.StatusUnauthorized,
	KindConflict:          http.StatusConflict,
	KindMediaUploadFailed: http.StatusBadGateway,
	KindTimeout:           http.StatusGatewayTimeout,
	KindRateLimited:       http.StatusTooManyRequests,
	KindInternal:          http.StatusInternalServerError,
}

// ApiError is the error shape every operation returns to its caller. Err is
// kept for logging and is never rendered.
type ApiError struct {
	Kind       Kind
	StatusCode int
	Message    string
	Errors     []string
	Err        error
}

func (e *ApiError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ApiError) Unwrap() error { return e.Err }

// Is matches on kind so callers can write errors.Is(err, apierror.Stale).
func (e *ApiError) Is(target error) bool {
	t, ok := target.(*ApiError)
	if !ok {
		return false
	}
	return t.Message == "" && t.Kind == e.Kind
}

func New(kind Kind, message string, cause error, details ...string) *ApiError {
	status, ok := statusByKind[kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	return &ApiError{Kind: kind, StatusCode: status, Message: message, Errors: details, Err: cause}
}

// Sentinels for errors.Is comparisons.
var (
	Validation   = &ApiError{Kind: KindValidation}
	NotFound     = &ApiError{Kind: KindNotFound}
	Unauthorized = &ApiError{Kind: KindUnauthorized}
	Forbidden    = &ApiError{Kind: KindForbidden}
	Stale        = &ApiError{Kind: KindStaleToken}
	Conflict     = &ApiError{Kind: KindConflict}
	MediaFailed  = &ApiError{Kind: KindMediaUploadFailed}
	Timeout      = &ApiError{Kind: KindTimeout}
	RateLimited  = &ApiError{Kind: KindRateLimited}
	Internal     = &ApiError{Kind: KindInternal}
)

func ValidationError(message string, details ...string) *ApiError {
	return New(KindValidation, message, nil, details...)
}

func NotFoundError(message string) *ApiError {
	return New(KindNotFound, message, nil)
}

func UnauthorizedError(message string, cause error) *ApiError {
	return New(KindUnauthorized, message, cause)
}

func ForbiddenError(message string) *ApiError {
	return New(KindForbidden, message, nil)
}

func StaleTokenError(message string) *ApiError {
	return New(KindStaleToken, message, nil)
}

func ConflictError(message string) *ApiError {
	return New(KindConflict, message, nil)
}

func MediaUploadFailed(message string, cause error) *ApiError {
	return New(KindMediaUploadFailed, message, cause)
}

// InvalidMedia is a MediaUploadFailed caused by the client's file rather than
// the storage provider, so it renders as 400.
func InvalidMedia(message string, cause error) *ApiError {
	e := New(KindMediaUploadFailed, message, cause)
	e.StatusCode = http.StatusBadRequest
	return e
}

func RateLimitedError(message string) *ApiError {
	return New(KindRateLimited, message, nil)
}

func InternalError(message string, cause error) *ApiError {
	return New(KindInternal, message, cause)
}

// From converts any error into an ApiError. Errors that already carry a kind
// pass through; deadline errors become Timeout; everything else is Internal.
func From(err error) *ApiError {
	if err == nil {
		return nil
	}
	var apiErr *ApiError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return New(KindTimeout, "request timed out", err)
	}
	if errors.Is(err, context.Canceled) {
		return New(KindTimeout, "request canceled", err)
	}
	return InternalError("something went wrong", err)
}

// KindOf returns the kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	return From(err).Kind
}
