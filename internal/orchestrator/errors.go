package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidRequest = errors.New("invalid_request")
	// ErrTransient marks a store failure the caller should retry with backoff.
	ErrTransient = errors.New("backend_unavailable")
)

func transient(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrTransient, op, err)
}

func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// MapEnforceError turns an Enforce or Audit error into an HTTP status and a
// stable error code.
func MapEnforceError(err error) (int, string) {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, ErrSessionNotFound):
		return http.StatusNotFound, "session_not_found"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, ErrTransient):
		return http.StatusServiceUnavailable, "backend_unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
