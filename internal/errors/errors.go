package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Base error types
var (
	ErrNotFound            = errors.New("not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrInvalidInput        = errors.New("invalid input")
	ErrExecutorUnreachable = errors.New("executor unreachable")
	ErrExecutorJobMissing  = errors.New("executor has no record of job")
	ErrResultError         = errors.New("result reported tool failure")
)

// ExecutorError is a structured error for calls against the execution service.
type ExecutorError struct {
	Op            string // "status", "results", "cancel", "enqueue"
	ExternalJobID string
	StatusCode    int // HTTP status code if a response was received
	Err           error
}

func (e *ExecutorError) Error() string {
	msg := fmt.Sprintf("executor %s", e.Op)
	if e.ExternalJobID != "" {
		msg += " " + e.ExternalJobID
	}
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ExecutorError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is. A 404 means the executor lost the job; anything
// else (transport errors, timeouts, 5xx, unexpected codes) is transient.
func (e *ExecutorError) Is(target error) bool {
	switch target {
	case ErrExecutorJobMissing:
		return e.StatusCode == http.StatusNotFound
	case ErrExecutorUnreachable:
		return e.StatusCode != http.StatusNotFound
	}
	return false
}

// NewExecutorError builds an ExecutorError for a failed request.
func NewExecutorError(op, externalJobID string, statusCode int, err error) *ExecutorError {
	return &ExecutorError{
		Op:            op,
		ExternalJobID: externalJobID,
		StatusCode:    statusCode,
		Err:           err,
	}
}

// IsTransient reports whether the caller should simply try again later.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrExecutorJobMissing) {
		return false
	}
	if errors.Is(err, ErrExecutorUnreachable) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// HTTPStatus maps the taxonomy onto a response code.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrExecutorUnreachable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
