package apperror

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound          = errors.New("resource not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrBadRequest        = errors.New("bad request")
	ErrInternal          = errors.New("internal server error")
	ErrInvalidInput      = errors.New("invalid input")
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	ErrConflict          = errors.New("conflict")
	ErrUnavailable       = errors.New("service unavailable")
)

// Domain errors. NotFound variants wrap ErrNotFound so MapErrorToStatus and
// errors.Is(err, ErrNotFound) keep working for callers that only care about absence.
var (
	ErrDuplicateRequest     = fmt.Errorf("a connection request already exists between these users: %w", ErrConflict)
	ErrInvalidTransition    = fmt.Errorf("connection request has already been resolved: %w", ErrConflict)
	ErrAlreadyMember        = fmt.Errorf("user is already a member of this project: %w", ErrConflict)
	ErrIndexUnavailable     = fmt.Errorf("ordered query rejected by the store: %w", ErrUnavailable)
	ErrSenderNotFound       = fmt.Errorf("sender profile not found: %w", ErrNotFound)
	ErrUserNotFound         = fmt.Errorf("user not found: %w", ErrNotFound)
	ErrProjectNotFound      = fmt.Errorf("project not found: %w", ErrNotFound)
	ErrRequestNotFound      = fmt.Errorf("connection request not found: %w", ErrNotFound)
	ErrNotificationNotFound = fmt.Errorf("notification not found: %w", ErrNotFound)
)

// AppError is a custom error type that can hold an HTTP status code
type AppError struct {
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError
func New(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// MapErrorToStatus maps common errors to HTTP status codes
func MapErrorToStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Code != 0 {
		return appErr.Code
	}
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrUnauthorized) {
		return http.StatusUnauthorized
	}
	if errors.Is(err, ErrForbidden) {
		return http.StatusForbidden
	}
	if errors.Is(err, ErrBadRequest) || errors.Is(err, ErrInvalidInput) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrConflict) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrRateLimitExceeded) {
		return http.StatusTooManyRequests
	}
	if errors.Is(err, ErrUnavailable) {
		return http.StatusServiceUnavailable
	}
	// Default to internal server error
	return http.StatusInternalServerError
}

// Message returns the client-facing text of err, preferring the message of
// the outermost AppError.
func Message(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return err.Error()
}

// Code returns a stable machine-readable code for err.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrDuplicateRequest):
		return "DUPLICATE_REQUEST"
	case errors.Is(err, ErrInvalidTransition):
		return "INVALID_TRANSITION"
	case errors.Is(err, ErrAlreadyMember):
		return "ALREADY_MEMBER"
	case errors.Is(err, ErrIndexUnavailable):
		return "INDEX_UNAVAILABLE"
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrUnauthorized):
		return "UNAUTHORIZED"
	case errors.Is(err, ErrForbidden):
		return "FORBIDDEN"
	case errors.Is(err, ErrBadRequest), errors.Is(err, ErrInvalidInput):
		return "INVALID_INPUT"
	case errors.Is(err, ErrRateLimitExceeded):
		return "RATE_LIMITED"
	default:
		return "INTERNAL"
	}
}

// IsRetryable reports whether the caller may retry the same operation.
// Domain outcomes (duplicates, resolved requests, missing records, bad input)
// are terminal; store and network failures are transient.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	switch MapErrorToStatus(err) {
	case http.StatusInternalServerError, http.StatusServiceUnavailable, http.StatusTooManyRequests:
		return true
	default:
		return false
	}
}
