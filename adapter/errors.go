package adapter

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind categorises a classified response.
type ErrorKind int

const (
	// KindNotFound404 is a 404 response; the body is not decoded.
	KindNotFound404 ErrorKind = iota + 1
	// KindClientError is a 4xx response other than 404; the body is decoded.
	KindClientError
	// KindServerError is a 5xx response; the body is not decoded.
	KindServerError
)

// String returns the string representation of the error kind.
func (k ErrorKind) String() string {
	switch k {
	case KindNotFound404:
		return "not_found_404"
	case KindClientError:
		return "client_error"
	case KindServerError:
		return "server_error"
	default:
		return "unknown"
	}
}

// Error is a classified HTTP failure. It keeps the request and response so
// hooks can inspect or replay the call.
type Error struct {
	Kind    ErrorKind
	Message string
	// Data is the decoded body. Only ClientError carries it.
	Data     any
	Response *Response
	Request  *RequestKwargs
	Params   *APIParams
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Kind == KindNotFound404 {
		return "404 page not found"
	}
	return fmt.Sprintf("response status code: %d", e.StatusCode())
}

// StatusCode returns the status of the triggering response.
func (e *Error) StatusCode() int {
	if e.Response == nil {
		return 0
	}
	return e.Response.StatusCode
}

// classify maps a status code to an error kind. ok is false for statuses
// that are not failures.
func classify(status int) (kind ErrorKind, decode bool, ok bool) {
	switch {
	case status == http.StatusNotFound:
		return KindNotFound404, false, true
	case status >= 500 && status < 600:
		return KindServerError, false, true
	case status >= 400 && status < 500:
		return KindClientError, true, true
	default:
		return 0, true, false
	}
}

// AsError extracts a classified error from err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsNotFound404 reports whether err is a classified 404.
func IsNotFound404(err error) bool {
	return isKind(err, KindNotFound404)
}

// IsClientError reports whether err is a classified 4xx other than 404.
func IsClientError(err error) bool {
	return isKind(err, KindClientError)
}

// IsServerError reports whether err is a classified 5xx.
func IsServerError(err error) bool {
	return isKind(err, KindServerError)
}

func isKind(err error, kind ErrorKind) bool {
	e, ok := AsError(err)
	return ok && e.Kind == kind
}
