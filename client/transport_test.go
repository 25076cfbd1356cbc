package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/tapioca/adapter"
	apperrors "github.com/kbukum/tapioca/errors"
	"github.com/kbukum/tapioca/httpclient"
)

type captured struct {
	method  string
	path    string
	query   url.Values
	headers http.Header
	body    string
}

func captureServer(t *testing.T, status int, body string) (*httptest.Server, *captured) {
	t.Helper()
	got := &captured{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		got.method, got.path, got.query, got.headers, got.body = r.Method, r.URL.Path, r.URL.Query(), r.Header.Clone(), string(b)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, got
}

func TestHTTPTransport_Send(t *testing.T) {
	srv, got := captureServer(t, http.StatusCreated, `{"id":7}`)
	tr, err := NewHTTPTransport(httpclient.Config{Timeout: 5 * time.Second})
	require.NoError(t, err)

	resp, err := tr.Send(context.Background(), adapter.RequestKwargs{
		URL:     srv.URL + "/users",
		Method:  http.MethodPost,
		Headers: map[string]string{"Content-Type": adapter.ContentTypeJSON},
		Params:  map[string]string{"dry_run": "true"},
		Data:    []byte(`{"name":"ada"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.JSONEq(t, `{"id":7}`, resp.Text())
	assert.Equal(t, "application/json", resp.ContentType())

	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "/users", got.path)
	assert.Equal(t, "true", got.query.Get("dry_run"))
	assert.Equal(t, adapter.ContentTypeJSON, got.headers.Get("Content-Type"))
	assert.True(t, strings.HasPrefix(got.headers.Get("User-Agent"), "tapioca/"))
	assert.Equal(t, `{"name":"ada"}`, got.body)
}

func TestHTTPTransport_KeepsCallerUserAgent(t *testing.T) {
	srv, got := captureServer(t, http.StatusOK, `{}`)
	tr, err := NewHTTPTransport(httpclient.Config{})
	require.NoError(t, err)

	headers := map[string]string{"user-agent": "billing-sync/2.0"}
	_, err = tr.Send(context.Background(), adapter.RequestKwargs{URL: srv.URL, Headers: headers})
	require.NoError(t, err)
	assert.Equal(t, "billing-sync/2.0", got.headers.Get("User-Agent"))
	assert.Len(t, headers, 1, "caller headers are not modified")
}

func TestHTTPTransport_StatusIsNotAnError(t *testing.T) {
	srv, _ := captureServer(t, http.StatusServiceUnavailable, `{"error":"down"}`)
	tr, err := NewHTTPTransport(httpclient.Config{})
	require.NoError(t, err)

	resp, err := tr.Send(context.Background(), adapter.RequestKwargs{URL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestHTTPTransport_FormBody(t *testing.T) {
	srv, got := captureServer(t, http.StatusOK, `ok`)
	tr, err := NewHTTPTransport(httpclient.Config{})
	require.NoError(t, err)

	_, err = tr.Send(context.Background(), adapter.RequestKwargs{
		URL:    srv.URL,
		Method: http.MethodPost,
		Data:   map[string]any{"name": "ada", "age": 36, "tags": []any{"a", "b"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "application/x-www-form-urlencoded", got.headers.Get("Content-Type"))
	form, err := url.ParseQuery(got.body)
	require.NoError(t, err)
	assert.Equal(t, "ada", form.Get("name"))
	assert.Equal(t, "36", form.Get("age"))
	assert.Equal(t, []string{"a", "b"}, form["tags"])
}

func TestHTTPTransport_ConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	target := srv.URL
	srv.Close()

	tr, err := NewHTTPTransport(httpclient.Config{Timeout: time.Second})
	require.NoError(t, err)

	_, err = tr.Send(context.Background(), adapter.RequestKwargs{URL: target})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeConnectionFailed))

	var he *httpclient.Error
	require.True(t, errors.As(err, &he))
	assert.True(t, httpclient.IsConnection(he))
}

func TestHTTPTransport_EndToEnd(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/xml")
		if r.Header.Get("Authorization") != "Bearer s3cret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = io.WriteString(w, `<user><id>42</id><name>ada</name></user>`)
	}))
	defer srv.Close()

	codec, err := adapter.CodecFor(adapter.CodecXML)
	require.NoError(t, err)
	a, err := adapter.New(codec, adapter.WithLayers(adapter.CredentialHeaderLayer("Authorization", "access_token", "Bearer ")))
	require.NoError(t, err)
	tr, err := NewHTTPTransport(httpclient.Config{})
	require.NoError(t, err)

	params := &adapter.APIParams{
		APIRoot:     srv.URL,
		Resources:   map[string]string{"user": "/users/{id}"},
		Credentials: adapter.NewCredentials(map[string]string{"access_token": "s3cret"}),
	}
	c, err := New(a, tr, params)
	require.NoError(t, err)

	kw, err := c.Resource("user", map[string]any{"id": 42})
	require.NoError(t, err)
	res, err := c.Call(context.Background(), kw)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"user": map[string]any{"id": "42", "name": "ada"}}, res.First())

	params.Credentials.Set("access_token", "wrong")
	_, err = c.Call(context.Background(), kw)
	assert.True(t, adapter.IsClientError(err))
	assert.Equal(t, 2, calls)
}

func TestTransportFunc(t *testing.T) {
	var got adapter.RequestKwargs
	f := TransportFunc(func(_ context.Context, kw adapter.RequestKwargs) (*adapter.Response, error) {
		got = kw
		return &adapter.Response{StatusCode: 204}, nil
	})
	resp, err := f.Send(context.Background(), adapter.RequestKwargs{URL: "/x"})
	require.NoError(t, err)
	assert.Equal(t, 204, resp.StatusCode)
	assert.Equal(t, "/x", got.URL)
}

func TestRequestBody(t *testing.T) {
	assert.Nil(t, requestBody(nil))
	assert.Equal(t, "raw", requestBody("raw"))
	assert.Equal(t, url.Values{"a": {"1"}, "b": {"x", "y"}},
		requestBody(map[string]any{"a": 1, "b": []string{"x", "y"}}))
}
