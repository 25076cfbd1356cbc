package adapter

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/kbukum/tapioca/errors"
	"github.com/kbukum/tapioca/serializer"
)

func newJSONAdapter(t *testing.T, opts ...Option) *Adapter {
	t.Helper()
	a, err := New(JSONCodec(), opts...)
	require.NoError(t, err)
	return a
}

func jsonResponse(status int, body string) *Response {
	return &Response{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       []byte(body),
	}
}

func TestNew_RequiresCodec(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidConfig))
}

func TestProcessResponse_Classification(t *testing.T) {
	a := newJSONAdapter(t)
	params := &APIParams{}
	body := `{"error": "bad field"}`

	tests := []struct {
		status   int
		wantKind ErrorKind
		wantData bool
	}{
		{200, 0, true},
		{204, 0, true},
		{301, 0, true},
		{399, 0, true},
		{400, KindClientError, true},
		{401, KindClientError, true},
		{404, KindNotFound404, false},
		{418, KindClientError, true},
		{499, KindClientError, true},
		{500, KindServerError, false},
		{503, KindServerError, false},
		{599, KindServerError, false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			resp := jsonResponse(tt.status, body)
			native, decodeErr := a.ResponseToNative(resp, nil)
			require.NoError(t, decodeErr)

			data, err := a.ProcessResponse(params, resp, &RequestKwargs{})
			if tt.wantKind == 0 {
				require.NoError(t, err)
				assert.Equal(t, native, data)
				return
			}
			require.Error(t, err)
			e, ok := AsError(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantKind, e.Kind)
			assert.Same(t, resp, e.Response)
			assert.Same(t, params, e.Params)
			if tt.wantData {
				assert.Equal(t, native, e.Data)
			} else {
				assert.Nil(t, e.Data)
			}
		})
	}
}

func TestProcessResponse_SkipsDecodeForNotFoundAndServerError(t *testing.T) {
	a := newJSONAdapter(t)
	for _, status := range []int{404, 500, 502} {
		_, err := a.ProcessResponse(&APIParams{}, jsonResponse(status, "<html>not json</html>"), nil)
		require.Error(t, err)
		assert.False(t, apperrors.HasCode(err, apperrors.ErrCodeDecodeFailed), "status %d must not decode", status)
	}
}

func TestProcessResponse_DecodeFailurePropagates(t *testing.T) {
	a := newJSONAdapter(t)
	for _, status := range []int{200, 400} {
		_, err := a.ProcessResponse(&APIParams{}, jsonResponse(status, "{broken"), nil)
		require.Error(t, err)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeDecodeFailed))
		_, classified := AsError(err)
		assert.False(t, classified)
	}
}

func TestScenarioA_NotFoundEmptyBody(t *testing.T) {
	a := newJSONAdapter(t)
	_, err := a.ProcessResponse(&APIParams{}, jsonResponse(404, ""), nil)
	require.Error(t, err)
	assert.True(t, IsNotFound404(err))
	e, _ := AsError(err)
	assert.Nil(t, e.Data)
	assert.Equal(t, "404 page not found", e.Error())
}

func TestScenarioB_ClientErrorMessage(t *testing.T) {
	a := newJSONAdapter(t)
	resp := jsonResponse(400, `{"error": "bad field"}`)
	_, err := a.ProcessResponse(&APIParams{}, resp, nil)
	require.Error(t, err)
	assert.True(t, IsClientError(err))

	e, _ := AsError(err)
	assert.Equal(t, map[string]any{"error": "bad field"}, e.Data)
	assert.Equal(t, "bad field", a.ErrorMessage(e.Data, resp))
	assert.Equal(t, "bad field", e.Error())
}

func TestScenarioC_EmptySuccessBody(t *testing.T) {
	a := newJSONAdapter(t)
	data, err := a.ProcessResponse(&APIParams{}, jsonResponse(200, ""), nil)
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestScenarioD_XMLSuccessBody(t *testing.T) {
	a, err := New(XMLCodec())
	require.NoError(t, err)

	resp := &Response{
		StatusCode: 200,
		Headers:    map[string]string{"content-type": "application/xml"},
		Body:       []byte("<a><b>1</b></a>"),
	}
	data, err := a.ProcessResponse(&APIParams{}, resp, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": map[string]any{"b": "1"}}, data)
}

func TestServerError_DefaultMessage(t *testing.T) {
	a := newJSONAdapter(t)
	_, err := a.ProcessResponse(&APIParams{}, jsonResponse(503, ""), nil)
	require.Error(t, err)
	assert.True(t, IsServerError(err))
	assert.Equal(t, "response status code: 503", err.Error())
}

func TestNotFound_MessageFromRawBody(t *testing.T) {
	a := newJSONAdapter(t)
	_, err := a.ProcessResponse(&APIParams{}, jsonResponse(404, `{"error": "no such user"}`), nil)
	require.Error(t, err)
	e, _ := AsError(err)
	assert.Nil(t, e.Data)
	assert.Equal(t, "no such user", e.Error())
}

func TestRequestKwargs_JSON(t *testing.T) {
	a := newJSONAdapter(t)
	in := RequestKwargs{
		URL:    "https://api.example.com/users",
		Method: "POST",
		Data:   map[string]any{"name": "ada"},
	}

	kw, err := a.RequestKwargs(&APIParams{}, in)
	require.NoError(t, err)
	assert.Equal(t, "application/json", kw.Headers["Content-Type"])
	assert.JSONEq(t, `{"name":"ada"}`, string(kw.Data.([]byte)))
	assert.Nil(t, in.Headers, "input must not be modified")
}

func TestRequestKwargs_DefaultsMethod(t *testing.T) {
	kw, err := newJSONAdapter(t).RequestKwargs(&APIParams{}, RequestKwargs{URL: "/x"})
	require.NoError(t, err)
	assert.Equal(t, "GET", kw.Method)
	assert.Nil(t, kw.Data)
}

func TestRequestKwargs_SerializesBeforeEncoding(t *testing.T) {
	ser := serializer.NewSimple()
	a := newJSONAdapter(t, WithSerializer(ser))
	price, err := ser.Deserialize(serializer.ToDecimal, "9.90", nil)
	require.NoError(t, err)

	kw, err := a.RequestKwargs(&APIParams{}, RequestKwargs{Data: map[string]any{"price": price}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"price":"9.9"}`, string(kw.Data.([]byte)))
}

func TestRequestKwargs_LayersRunInOrder(t *testing.T) {
	var order []string
	record := func(name string) Layer {
		return Layer{
			Name: name,
			Request: func(_ *APIParams, kw *RequestKwargs) error {
				order = append(order, name)
				kw.SetHeader("X-Last", name)
				return nil
			},
		}
	}
	a := newJSONAdapter(t, WithLayers(record("first"), record("second")))

	kw, err := a.RequestKwargs(&APIParams{}, RequestKwargs{})
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, order)
	assert.Equal(t, "second", kw.Headers["X-Last"])
}

func TestRequestKwargs_LayerError(t *testing.T) {
	boom := fmt.Errorf("boom")
	a := newJSONAdapter(t, WithLayers(Layer{
		Name:    "failing",
		Request: func(*APIParams, *RequestKwargs) error { return boom },
	}))
	_, err := a.RequestKwargs(&APIParams{}, RequestKwargs{})
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "layer failing")
}

func TestHeaderQueryAndCredentialLayers(t *testing.T) {
	params := &APIParams{Credentials: NewCredentials(map[string]string{"access_token": "t1"})}
	a := newJSONAdapter(t, WithLayers(
		HeaderLayer(map[string]string{"Accept": "application/json"}),
		QueryLayer(map[string]string{"format": "full", "page": "1"}),
		CredentialHeaderLayer("Authorization", "access_token", "Bearer "),
	))

	kw, err := a.RequestKwargs(params, RequestKwargs{Params: map[string]string{"page": "3"}})
	require.NoError(t, err)
	assert.Equal(t, "application/json", kw.Headers["Accept"])
	assert.Equal(t, "Bearer t1", kw.Headers["Authorization"])
	assert.Equal(t, "full", kw.Params["format"])
	assert.Equal(t, "3", kw.Params["page"])

	params.Credentials.Set("access_token", "t2")
	kw, err = a.RequestKwargs(params, RequestKwargs{})
	require.NoError(t, err)
	assert.Equal(t, "Bearer t2", kw.Headers["Authorization"])
}

func TestResultLayers(t *testing.T) {
	a := newJSONAdapter(t, WithLayers(Layer{
		Name: "unwrap",
		Result: func(native any, _ *Response, _ *RequestKwargs) (any, error) {
			return native.(map[string]any)["data"], nil
		},
	}))
	data, err := a.ProcessResponse(&APIParams{}, jsonResponse(200, `{"data": [1, 2]}`), nil)
	require.NoError(t, err)
	assert.Equal(t, []any{1.0, 2.0}, data)
}

func TestGenerateRequestKwargs_Single(t *testing.T) {
	kws, err := newJSONAdapter(t).GenerateRequestKwargs(&APIParams{}, RequestKwargs{URL: "/a"})
	require.NoError(t, err)
	require.Len(t, kws, 1)
	assert.Equal(t, "/a", kws[0].URL)
}

func TestGenerateRequestKwargs_Idempotent(t *testing.T) {
	for _, codec := range []*Codec{JSONCodec(), XMLCodec(), FormCodec()} {
		a, err := New(codec)
		require.NoError(t, err)
		in := RequestKwargs{
			URL:     "/items",
			Method:  "POST",
			Headers: map[string]string{"X-Trace": "1"},
			Params:  map[string]string{"q": "x"},
			Data:    map[string]any{"item": map[string]any{"name": "a"}},
			Extra:   map[string]any{XMLUnparsePrefix + "pretty": true},
		}
		if codec.Kind() != CodecXML {
			in.Extra = nil
		}

		first, err := a.GenerateRequestKwargs(&APIParams{}, in)
		require.NoError(t, err)
		second, err := a.GenerateRequestKwargs(&APIParams{}, in)
		require.NoError(t, err)
		assert.Equal(t, first, second, codec.Kind().String())
	}
}

func TestGenerateRequestKwargs_FanOut(t *testing.T) {
	a := newJSONAdapter(t, WithFanOut(func(_ *APIParams, kw RequestKwargs) ([]RequestKwargs, error) {
		items := kw.Data.([]any)
		out := make([]RequestKwargs, 0, len(items))
		for _, item := range items {
			part := kw.Clone()
			part.Data = map[string]any{"item": item}
			out = append(out, part)
		}
		return out, nil
	}))

	kws, err := a.GenerateRequestKwargs(&APIParams{}, RequestKwargs{Method: "POST", Data: []any{"a", "b", "c"}})
	require.NoError(t, err)
	require.Len(t, kws, 3)
	assert.JSONEq(t, `{"item":"b"}`, string(kws[1].Data.([]byte)))
	assert.Equal(t, "application/json", kws[2].Headers["Content-Type"])
}

func TestGenerateRequestKwargs_FanOutEmpty(t *testing.T) {
	a := newJSONAdapter(t, WithFanOut(func(*APIParams, RequestKwargs) ([]RequestKwargs, error) {
		return nil, nil
	}))
	_, err := a.GenerateRequestKwargs(&APIParams{}, RequestKwargs{})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidConfig))
}

func TestAPIRoot(t *testing.T) {
	a := newJSONAdapter(t, WithAPIRoot("https://static.example.com"))
	assert.Equal(t, "https://static.example.com", a.APIRoot(&APIParams{}))
	assert.Equal(t, "https://params.example.com", a.APIRoot(&APIParams{APIRoot: "https://params.example.com"}))

	tenant := newJSONAdapter(t, WithAPIRootFunc(func(p *APIParams) string {
		return fmt.Sprintf("https://%s.example.com", p.Extra["tenant"])
	}))
	assert.Equal(t, "https://acme.example.com", tenant.APIRoot(&APIParams{Extra: map[string]any{"tenant": "acme"}}))
}

func TestFillResourceTemplateURL(t *testing.T) {
	a := newJSONAdapter(t)

	tests := []struct {
		name     string
		template string
		values   map[string]any
		want     string
		wantCode apperrors.ErrorCode
	}{
		{"no placeholders", "/users", nil, "/users", ""},
		{"single", "/users/{id}", map[string]any{"id": 42}, "/users/42", ""},
		{"multiple", "/{org}/repos/{repo}", map[string]any{"org": "go", "repo": "x"}, "/go/repos/x", ""},
		{"escaped braces", "/a{{b}}/{id}", map[string]any{"id": 1}, "/a{b}/1", ""},
		{"missing", "/users/{id}", map[string]any{}, "", apperrors.ErrCodeMissingPlaceholder},
		{"unclosed", "/users/{id", map[string]any{"id": 1}, "", apperrors.ErrCodeInvalidConfig},
		{"stray close", "/users/}", nil, "", apperrors.ErrCodeInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := a.FillResourceTemplateURL(tt.template, tt.values)
			if tt.wantCode != "" {
				require.Error(t, err)
				assert.True(t, apperrors.HasCode(err, tt.wantCode))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDefaultHooks(t *testing.T) {
	a := newJSONAdapter(t)
	ctx := context.Background()
	params := &APIParams{}
	classified := &Error{Kind: KindClientError, Response: jsonResponse(401, "")}

	_, err := a.IteratorList(nil)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotImplemented))

	_, err = a.IteratorNextRequestKwargs(RequestKwargs{}, nil, nil)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotImplemented))

	assert.False(t, a.IsAuthenticationExpired(classified))

	_, err = a.RefreshAuthentication(ctx, params)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotImplemented))

	assert.False(t, a.RetryRequest(ctx, classified.Response, classified, params, 0))

	v, err := a.WrapperCallException(classified.Response, classified, params)
	assert.Nil(t, v)
	assert.Same(t, classified, err)

	pending := []RequestKwargs{{URL: "/next"}}
	got, err := a.ExtraRequest(params, RequestKwargs{}, pending, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, pending, got)

	_, err = a.Describe(nil, nil, nil, params)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotImplemented))

	results := []any{1, 2}
	out, err := a.TransformResults(results, nil, nil, params)
	require.NoError(t, err)
	assert.Equal(t, results, out)
}

func TestExceptionPolicy_Suppress(t *testing.T) {
	a := newJSONAdapter(t, WithExceptionPolicy(ExceptionFunc(func(resp *Response, err error, _ *APIParams) (any, error) {
		if IsNotFound404(err) {
			return map[string]any{}, nil
		}
		return nil, err
	})))
	resp := jsonResponse(404, "")
	_, err := a.ProcessResponse(&APIParams{}, resp, nil)
	v, err := a.WrapperCallException(resp, err, &APIParams{})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{}, v)
}

func TestNativeAccessor(t *testing.T) {
	a := newJSONAdapter(t)
	fn, err := a.NativeAccessor(serializer.ToInt, "12")
	require.NoError(t, err)
	v, err := fn(nil)
	require.NoError(t, err)
	assert.Equal(t, int64(12), v)

	bare := newJSONAdapter(t, WithoutSerializer())
	_, err = bare.NativeAccessor(serializer.ToInt, "12")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotImplemented))
}

func TestWithoutSerializer_Passthrough(t *testing.T) {
	a, err := New(FormCodec(), WithoutSerializer())
	require.NoError(t, err)
	data := map[string]string{"a": "1"}
	kw, err := a.RequestKwargs(&APIParams{}, RequestKwargs{Data: data})
	require.NoError(t, err)
	assert.Equal(t, data, kw.Data)
	assert.Empty(t, kw.Headers)
}

func TestCredentials_NilAndZero(t *testing.T) {
	var missing *Credentials
	assert.NotPanics(t, func() {
		missing.Set("access_token", "x")
		missing.Update(map[string]string{"a": "b"})
	})
	assert.Empty(t, missing.Get("access_token"))
	assert.Empty(t, missing.Snapshot())

	var zero Credentials
	zero.Set("access_token", "x")
	zero.Update(map[string]string{"refresh_token": "y"})
	assert.Equal(t, map[string]string{"access_token": "x", "refresh_token": "y"}, zero.Snapshot())
}
