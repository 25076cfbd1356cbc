package errors

import (
	"fmt"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails merges the provided details into the error and returns the receiver.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Retryable: IsRetryableCode(code),
	}
}

// --- Pipeline Error Constructors ---

// NotImplemented reports a hook that has no implementation in the current adapter.
func NotImplemented(operation string) *AppError {
	return &AppError{
		Code: ErrCodeNotImplemented, Message: fmt.Sprintf("%s is not implemented", operation),
		Details: map[string]any{"operation": operation},
	}
}

// InvalidConfig reports an inconsistent adapter or client configuration.
func InvalidConfig(reason string) *AppError {
	return &AppError{Code: ErrCodeInvalidConfig, Message: reason}
}

// InvalidOption reports a codec option that is unknown or has the wrong type.
func InvalidOption(option, reason string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidOption, Message: fmt.Sprintf("invalid option %q: %s", option, reason),
		Details: map[string]any{"option": option},
	}
}

// MissingPlaceholder reports a URL template placeholder with no supplied value.
func MissingPlaceholder(name, template string) *AppError {
	return &AppError{
		Code: ErrCodeMissingPlaceholder, Message: fmt.Sprintf("no value for placeholder {%s}", name),
		Details: map[string]any{"placeholder": name, "template": template},
	}
}

// MalformedPayload reports request data the codec cannot encode.
func MalformedPayload(reason string) *AppError {
	return &AppError{Code: ErrCodeMalformedPayload, Message: reason}
}

// DecodeFailed reports a response body the codec cannot decode.
func DecodeFailed(format string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeDecodeFailed, Message: fmt.Sprintf("cannot decode %s response body", format),
		Details: map[string]any{"format": format}, Cause: cause,
	}
}

// InvalidInput creates a new AppError for a value that cannot be coerced.
func InvalidInput(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code: ErrCodeInvalidInput, Message: fmt.Sprintf("Invalid input: %s", reason),
		Details: details,
	}
}

// Validation creates a new AppError for validation errors.
func Validation(message string) *AppError {
	return &AppError{Code: ErrCodeInvalidConfig, Message: message}
}

// --- Transport Error Constructors ---

// ConnectionFailed creates a new AppError for a failed connection to a service.
func ConnectionFailed(service string) *AppError {
	return &AppError{
		Code: ErrCodeConnectionFailed, Message: fmt.Sprintf("Unable to connect to %s.", service),
		Retryable: true, Details: map[string]any{"service": service},
	}
}

// Timeout creates a new AppError for a request that timed out.
func Timeout(operation string) *AppError {
	return &AppError{
		Code: ErrCodeTimeout, Message: "The request took too long.",
		Retryable: true, Details: map[string]any{"operation": operation},
	}
}

// RateLimited creates a new AppError for a request rejected by the local limiter.
func RateLimited() *AppError {
	return &AppError{
		Code: ErrCodeRateLimited, Message: "Too many requests.",
		Retryable: true,
	}
}

// ServiceUnavailable creates a new AppError for a service guarded by an open circuit.
func ServiceUnavailable(service string) *AppError {
	return &AppError{
		Code: ErrCodeServiceUnavailable, Message: fmt.Sprintf("The %s is temporarily unavailable.", service),
		Retryable: true, Details: map[string]any{"service": service},
	}
}

// TokenExpired reports credentials that stayed expired after a refresh.
func TokenExpired() *AppError {
	return &AppError{Code: ErrCodeTokenExpired, Message: "authentication expired"}
}

// Internal creates a new AppError for an unexpected failure.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "An unexpected error occurred.",
		Cause: cause,
	}
}
