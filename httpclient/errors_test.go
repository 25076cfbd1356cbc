package httpclient

import (
	"errors"
	"fmt"
	"testing"

	apperrors "github.com/kbukum/tapioca/errors"
)

func TestErrorCode_String(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want string
	}{
		{ErrCodeTimeout, "timeout"},
		{ErrCodeConnection, "connection"},
		{ErrCodeValidation, "validation"},
		{ErrCodeUnavailable, "unavailable"},
		{ErrorCode(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.code.String(); got != tt.want {
			t.Errorf("ErrorCode(%d).String() = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestError_ErrorAndUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	e := NewConnectionError(cause)
	if got, want := e.Error(), "httpclient: connection: connection refused"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if !errors.Is(e, cause) {
		t.Error("cause should be reachable")
	}
	wrapped := fmt.Errorf("send: %w", e)
	if !IsConnection(wrapped) || !IsRetryable(wrapped) {
		t.Error("helpers should see through wrapping")
	}
	if IsTimeout(wrapped) || IsUnavailable(wrapped) {
		t.Error("wrong code matched")
	}
	if IsRetryable(NewValidationError("bad")) {
		t.Error("validation errors are not retryable")
	}
}

func TestError_AppError(t *testing.T) {
	tests := []struct {
		err  *Error
		want apperrors.ErrorCode
	}{
		{NewTimeoutError(errors.New("deadline")), apperrors.ErrCodeTimeout},
		{NewConnectionError(errors.New("refused")), apperrors.ErrCodeConnectionFailed},
		{NewUnavailableError(errors.New("open")), apperrors.ErrCodeServiceUnavailable},
		{NewValidationError("bad url"), apperrors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		ae := tt.err.AppError()
		if ae.Code != tt.want {
			t.Errorf("%s: code = %s, want %s", tt.err.Code, ae.Code, tt.want)
		}
		if !errors.Is(ae, tt.err) {
			t.Errorf("%s: transport error should be the cause", tt.err.Code)
		}
	}
}
