package client

import (
	"context"
	"errors"
	"maps"
	"net/url"
	"strings"

	"github.com/spf13/cast"

	"github.com/kbukum/tapioca/adapter"
	"github.com/kbukum/tapioca/httpclient"
	"github.com/kbukum/tapioca/version"
)

// Transport sends one physical request and returns the full response. It
// must not interpret the status code.
type Transport interface {
	Send(ctx context.Context, kw adapter.RequestKwargs) (*adapter.Response, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, kw adapter.RequestKwargs) (*adapter.Response, error)

// Send implements Transport.
func (f TransportFunc) Send(ctx context.Context, kw adapter.RequestKwargs) (*adapter.Response, error) {
	return f(ctx, kw)
}

// HTTPTransport sends requests with an httpclient.Client.
type HTTPTransport struct {
	client    *httpclient.Client
	userAgent string
}

// NewHTTPTransport creates a transport with its own httpclient.Client.
func NewHTTPTransport(cfg httpclient.Config) (*HTTPTransport, error) {
	c, err := httpclient.New(cfg)
	if err != nil {
		return nil, err
	}
	return NewHTTPTransportFromClient(c), nil
}

// NewHTTPTransportFromClient wraps an existing client.
func NewHTTPTransportFromClient(c *httpclient.Client) *HTTPTransport {
	return &HTTPTransport{client: c, userAgent: version.UserAgent()}
}

// Client returns the wrapped httpclient.Client.
func (t *HTTPTransport) Client() *httpclient.Client {
	return t.client
}

// Send implements Transport. Transport failures are returned as AppErrors
// (TIMEOUT, CONNECTION_FAILED, SERVICE_UNAVAILABLE) wrapping the
// *httpclient.Error.
func (t *HTTPTransport) Send(ctx context.Context, kw adapter.RequestKwargs) (*adapter.Response, error) {
	headers := maps.Clone(kw.Headers)
	if !hasHeader(headers, "User-Agent") {
		if headers == nil {
			headers = make(map[string]string, 1)
		}
		headers["User-Agent"] = t.userAgent
	}

	resp, err := t.client.Do(ctx, httpclient.Request{
		Method:  kw.Method,
		Path:    kw.URL,
		Headers: headers,
		Query:   kw.Params,
		Body:    requestBody(kw.Data),
	})
	if err != nil {
		var he *httpclient.Error
		if errors.As(err, &he) {
			return nil, he.AppError()
		}
		return nil, err
	}
	return &adapter.Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Headers,
		Body:       resp.Body,
	}, nil
}

// requestBody turns a generic mapping left unencoded by the form codec into
// form values. Everything else is sent as the codec produced it.
func requestBody(data any) any {
	m, ok := data.(map[string]any)
	if !ok {
		return data
	}
	form := make(url.Values, len(m))
	for k, v := range m {
		switch vs := v.(type) {
		case []any:
			for _, item := range vs {
				form.Add(k, cast.ToString(item))
			}
		case []string:
			form[k] = vs
		default:
			form.Set(k, cast.ToString(v))
		}
	}
	return form
}

func hasHeader(headers map[string]string, name string) bool {
	for k := range headers {
		if strings.EqualFold(k, name) {
			return true
		}
	}
	return false
}
