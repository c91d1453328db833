package errors

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"
)

// TransientError represents an upstream failure that could succeed on retry.
type TransientError struct {
	Err        error
	StatusCode int    // HTTP status code if applicable
	Message    string // caller-facing message
}

func (e *TransientError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("transient error: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// NewTransientError wraps err as a transient failure with a caller-facing message.
func NewTransientError(err error, message string) *TransientError {
	return &TransientError{Err: err, Message: message}
}

// PermanentError represents a failure that retrying will not fix.
type PermanentError struct {
	Err        error
	StatusCode int    // HTTP status code if applicable
	Message    string // caller-facing message
}

func (e *PermanentError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("permanent error: %v", e.Err)
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// NewPermanentError wraps err as a permanent failure with a caller-facing message.
func NewPermanentError(err error, message string) *PermanentError {
	return &PermanentError{Err: err, Message: message}
}

// FromHTTPStatus classifies an upstream HTTP status into a transient or
// permanent error carrying the status code.
func FromHTTPStatus(status int, message string) error {
	base := fmt.Errorf("upstream returned HTTP %d", status)
	if isTransientHTTPStatus(status) {
		return &TransientError{Err: base, StatusCode: status, Message: message}
	}
	return &PermanentError{Err: base, StatusCode: status, Message: message}
}

// HTTPStatus extracts an HTTP status code carried by a classified error,
// returning 0 when none is present.
func HTTPStatus(err error) int {
	var transientErr *TransientError
	if errors.As(err, &transientErr) {
		return transientErr.StatusCode
	}
	var permanentErr *PermanentError
	if errors.As(err, &permanentErr) {
		return permanentErr.StatusCode
	}
	return 0
}

// IsTransient checks if an error is retry-able.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var transientErr *TransientError
	if errors.As(err, &transientErr) {
		return true
	}

	var permanentErr *PermanentError
	if errors.As(err, &permanentErr) {
		return false
	}

	if isNetworkError(err) {
		return true
	}

	return false
}

// IsPermanent checks if an error is non-retry-able.
func IsPermanent(err error) bool {
	if err == nil {
		return false
	}

	var permanentErr *PermanentError
	if errors.As(err, &permanentErr) {
		return true
	}

	var transientErr *TransientError
	if errors.As(err, &transientErr) {
		return false
	}

	return false
}

func isTransientHTTPStatus(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func isNetworkError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ETIMEDOUT)
}
