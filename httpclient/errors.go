package httpclient

import (
	"errors"
	"fmt"

	apperrors "github.com/kbukum/tapioca/errors"
)

// ErrorCode names a transport failure. Status codes are never errors here;
// the adapter classifies them.
type ErrorCode int

const (
	// ErrCodeTimeout covers deadlines, cancellation and rate limiter waits.
	ErrCodeTimeout ErrorCode = iota
	// ErrCodeConnection covers refused connections, DNS and body read failures.
	ErrCodeConnection
	// ErrCodeValidation means the request could not be built.
	ErrCodeValidation
	// ErrCodeUnavailable means the circuit is open or the bulkhead is full.
	ErrCodeUnavailable
)

func (c ErrorCode) String() string {
	switch c {
	case ErrCodeTimeout:
		return "timeout"
	case ErrCodeConnection:
		return "connection"
	case ErrCodeValidation:
		return "validation"
	case ErrCodeUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Error is a transport-level failure. No response was received.
type Error struct {
	Code      ErrorCode
	Message   string
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("httpclient: %s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// AppError converts the failure into the shared application error type.
func (e *Error) AppError() *apperrors.AppError {
	var ae *apperrors.AppError
	switch e.Code {
	case ErrCodeTimeout:
		ae = apperrors.Timeout("http request")
	case ErrCodeConnection:
		ae = apperrors.ConnectionFailed("http")
	case ErrCodeUnavailable:
		ae = apperrors.ServiceUnavailable("http")
	default:
		ae = apperrors.InvalidInput("request", e.Message)
	}
	return ae.WithCause(e)
}

// NewTimeoutError creates a timeout error.
func NewTimeoutError(err error) *Error {
	return &Error{Code: ErrCodeTimeout, Message: err.Error(), Retryable: true, Err: err}
}

// NewConnectionError creates a connection error.
func NewConnectionError(err error) *Error {
	return &Error{Code: ErrCodeConnection, Message: err.Error(), Retryable: true, Err: err}
}

// NewValidationError creates a request construction error.
func NewValidationError(msg string) *Error {
	return &Error{Code: ErrCodeValidation, Message: msg}
}

// NewUnavailableError creates an error for a rejected call.
func NewUnavailableError(err error) *Error {
	return &Error{Code: ErrCodeUnavailable, Message: err.Error(), Retryable: true, Err: err}
}

// IsTimeout checks if an error is a timeout error.
func IsTimeout(err error) bool {
	return hasCode(err, ErrCodeTimeout)
}

// IsConnection checks if an error is a connection error.
func IsConnection(err error) bool {
	return hasCode(err, ErrCodeConnection)
}

// IsUnavailable checks if the call was rejected by the breaker or bulkhead.
func IsUnavailable(err error) bool {
	return hasCode(err, ErrCodeUnavailable)
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Retryable
}

func hasCode(err error, code ErrorCode) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}
