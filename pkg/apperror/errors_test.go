package apperror

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapErrorToStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"duplicate request", ErrDuplicateRequest, http.StatusConflict},
		{"invalid transition", fmt.Errorf("accept: %w", ErrInvalidTransition), http.StatusConflict},
		{"sender missing", ErrSenderNotFound, http.StatusNotFound},
		{"request missing", ErrRequestNotFound, http.StatusNotFound},
		{"forbidden", ErrForbidden, http.StatusForbidden},
		{"invalid input", ErrInvalidInput, http.StatusBadRequest},
		{"rate limited", ErrRateLimitExceeded, http.StatusTooManyRequests},
		{"index unavailable", ErrIndexUnavailable, http.StatusServiceUnavailable},
		{"app error code wins", New(http.StatusTeapot, "teapot", ErrNotFound), http.StatusTeapot},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MapErrorToStatus(tt.err))
		})
	}
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.False(t, IsRetryable(ErrDuplicateRequest))
	assert.False(t, IsRetryable(ErrInvalidTransition))
	assert.False(t, IsRetryable(ErrUserNotFound))
	assert.False(t, IsRetryable(context.Canceled))
	assert.True(t, IsRetryable(errors.New("connection reset by peer")))
	assert.True(t, IsRetryable(ErrRateLimitExceeded))
}

func TestCode(t *testing.T) {
	assert.Equal(t, "DUPLICATE_REQUEST", Code(ErrDuplicateRequest))
	assert.Equal(t, "INVALID_TRANSITION", Code(ErrInvalidTransition))
	assert.Equal(t, "NOT_FOUND", Code(ErrProjectNotFound))
	assert.Equal(t, "INTERNAL", Code(errors.New("x")))
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "cannot do that", Message(New(http.StatusBadRequest, "cannot do that", ErrInvalidInput)))
	assert.Equal(t, "cannot do that", Message(fmt.Errorf("wrapped: %w", New(http.StatusBadRequest, "cannot do that", nil))))
	assert.Equal(t, ErrDuplicateRequest.Error(), Message(ErrDuplicateRequest))
}
