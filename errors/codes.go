package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Contract errors raised while building or inspecting a pipeline.
const (
	// ErrCodeNotImplemented indicates a hook or codec function that was never supplied.
	ErrCodeNotImplemented ErrorCode = "NOT_IMPLEMENTED"
	// ErrCodeInvalidConfig indicates an adapter or client configured inconsistently.
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG"
	// ErrCodeInvalidOption indicates an unknown or mistyped codec option.
	ErrCodeInvalidOption ErrorCode = "INVALID_OPTION"
	// ErrCodeMissingPlaceholder indicates a URL template placeholder without a value.
	ErrCodeMissingPlaceholder ErrorCode = "MISSING_PLACEHOLDER"
)

// Payload errors
const (
	// ErrCodeMalformedPayload indicates request data the codec cannot encode.
	ErrCodeMalformedPayload ErrorCode = "MALFORMED_PAYLOAD"
	// ErrCodeDecodeFailed indicates a response body the codec cannot decode.
	ErrCodeDecodeFailed ErrorCode = "DECODE_FAILED"
	// ErrCodeInvalidInput indicates a value a serializer strategy cannot coerce.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
)

// Connection/Availability errors (retryable)
const (
	// ErrCodeServiceUnavailable indicates the service is temporarily unavailable.
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	// ErrCodeConnectionFailed indicates a failed connection to a service.
	ErrCodeConnectionFailed ErrorCode = "CONNECTION_FAILED"
	// ErrCodeTimeout indicates the request timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeRateLimited indicates the client is rate limited.
	ErrCodeRateLimited ErrorCode = "RATE_LIMITED"
)

// Authentication errors
const (
	// ErrCodeTokenExpired indicates the credentials could not be refreshed.
	ErrCodeTokenExpired ErrorCode = "TOKEN_EXPIRED"
)

// Internal errors
const (
	// ErrCodeInternal indicates an unexpected failure.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeServiceUnavailable: true,
	ErrCodeConnectionFailed:   true,
	ErrCodeTimeout:            true,
	ErrCodeRateLimited:        true,
	ErrCodeInternal:           false,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
