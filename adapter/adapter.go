package adapter

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/kbukum/tapioca/errors"
	"github.com/kbukum/tapioca/logger"
	"github.com/kbukum/tapioca/serializer"
)

// FanOutFunc splits one logical call into several physical requests. Each
// returned value is built with Adapter.RequestKwargs.
type FanOutFunc func(params *APIParams, kw RequestKwargs) ([]RequestKwargs, error)

// Adapter holds the per-API behaviour of a client: how requests are built,
// how responses are classified and decoded, and which policies drive retries,
// re-authentication, extra requests and pagination.
//
// An Adapter is immutable after New and safe for concurrent use. Per-call
// codec options travel in RequestKwargs.Codec.
type Adapter struct {
	codec       *Codec
	apiRoot     string
	apiRootFunc func(params *APIParams) string
	serializer  serializer.Serializer
	layers      []Layer

	retry     RetryPolicy
	auth      AuthPolicy
	exception ExceptionPolicy
	extra     ExtraRequestPolicy
	pager     Pager
	fanOut    FanOutFunc

	transform TransformFunc
	table     TableFunc
	results   ResultsFunc
	describer DescribeFunc

	log *logger.Logger
}

// Option configures an Adapter during creation.
type Option func(*Adapter)

// WithAPIRoot sets the static API root used when params carry none.
func WithAPIRoot(root string) Option {
	return func(a *Adapter) { a.apiRoot = root }
}

// WithAPIRootFunc resolves the API root from params, e.g. per-tenant hosts.
func WithAPIRootFunc(fn func(params *APIParams) string) Option {
	return func(a *Adapter) { a.apiRootFunc = fn }
}

// WithSerializer replaces the default serializer.
func WithSerializer(s serializer.Serializer) Option {
	return func(a *Adapter) { a.serializer = s }
}

// WithoutSerializer disables serialization; data passes through unchanged.
func WithoutSerializer() Option {
	return func(a *Adapter) { a.serializer = nil }
}

// WithLayers appends layers to the request/result pipeline.
func WithLayers(layers ...Layer) Option {
	return func(a *Adapter) { a.layers = append(a.layers, layers...) }
}

// WithRetryPolicy sets the retry policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(a *Adapter) { a.retry = p }
}

// WithAuthPolicy sets the authentication policy.
func WithAuthPolicy(p AuthPolicy) Option {
	return func(a *Adapter) { a.auth = p }
}

// WithExceptionPolicy sets the exception policy.
func WithExceptionPolicy(p ExceptionPolicy) Option {
	return func(a *Adapter) { a.exception = p }
}

// WithExtraRequests sets the extra request policy.
func WithExtraRequests(p ExtraRequestPolicy) Option {
	return func(a *Adapter) { a.extra = p }
}

// WithPager enables pagination.
func WithPager(p Pager) Option {
	return func(a *Adapter) { a.pager = p }
}

// WithFanOut splits calls into several physical requests.
func WithFanOut(fn FanOutFunc) Option {
	return func(a *Adapter) { a.fanOut = fn }
}

// WithTransform sets the function behind Transform.
func WithTransform(fn TransformFunc) Option {
	return func(a *Adapter) { a.transform = fn }
}

// WithTableFunc sets the function behind ToTable.
func WithTableFunc(fn TableFunc) Option {
	return func(a *Adapter) { a.table = fn }
}

// WithResultsTransform sets the function behind TransformResults.
func WithResultsTransform(fn ResultsFunc) Option {
	return func(a *Adapter) { a.results = fn }
}

// WithDescriber sets the function behind Describe.
func WithDescriber(fn DescribeFunc) Option {
	return func(a *Adapter) { a.describer = fn }
}

// WithLogger sets the adapter logger.
func WithLogger(l *logger.Logger) Option {
	return func(a *Adapter) { a.log = l }
}

// New creates an adapter for codec. The defaults are the Simple serializer
// and no-op policies.
func New(codec *Codec, opts ...Option) (*Adapter, error) {
	if codec == nil {
		return nil, apperrors.InvalidConfig("adapter requires a codec")
	}
	a := &Adapter{
		codec:      codec,
		serializer: serializer.NewSimple(),
		retry:      NoRetry{},
		auth:       NoAuth{},
		exception:  ReRaise{},
		extra:      NoExtraRequests{},
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.log == nil {
		a.log = logger.Get("tapioca.adapter")
	}
	return a, nil
}

// Codec returns the adapter's content codec.
func (a *Adapter) Codec() *Codec { return a.codec }

// Serializer returns the configured serializer, or nil for passthrough.
func (a *Adapter) Serializer() serializer.Serializer { return a.serializer }

// Paginated reports whether a pager is configured.
func (a *Adapter) Paginated() bool { return a.pager != nil }

// APIRoot resolves the base URL for params.
func (a *Adapter) APIRoot(params *APIParams) string {
	if a.apiRootFunc != nil {
		return a.apiRootFunc(params)
	}
	if params != nil && params.APIRoot != "" {
		return params.APIRoot
	}
	return a.apiRoot
}

// FillResourceTemplateURL substitutes {name} placeholders in template.
// "{{" and "}}" produce literal braces.
func (a *Adapter) FillResourceTemplateURL(template string, values map[string]any) (string, error) {
	var b strings.Builder
	for i := 0; i < len(template); i++ {
		c := template[i]
		switch {
		case c == '{' && i+1 < len(template) && template[i+1] == '{':
			b.WriteByte('{')
			i++
		case c == '}' && i+1 < len(template) && template[i+1] == '}':
			b.WriteByte('}')
			i++
		case c == '{':
			end := strings.IndexByte(template[i+1:], '}')
			if end < 0 {
				return "", apperrors.InvalidConfig(fmt.Sprintf("unclosed placeholder in %q", template))
			}
			name := template[i+1 : i+1+end]
			v, ok := values[name]
			if !ok {
				return "", apperrors.MissingPlaceholder(name, template)
			}
			b.WriteString(fmt.Sprint(v))
			i += end + 1
		case c == '}':
			return "", apperrors.InvalidConfig(fmt.Sprintf("single '}' in %q", template))
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), nil
}

// RequestKwargs builds one physical request from the call input: codec
// options are extracted, Data is serialized and encoded, codec headers are
// set, then each layer runs. kw is not modified.
func (a *Adapter) RequestKwargs(params *APIParams, kw RequestKwargs) (RequestKwargs, error) {
	out := kw.Clone()
	if out.Method == "" {
		out.Method = http.MethodGet
	}
	if err := a.codec.prepare(&out); err != nil {
		return RequestKwargs{}, err
	}

	serialized, err := a.SerializeData(out.Data)
	if err != nil {
		return RequestKwargs{}, err
	}
	encoded, err := a.FormatDataToRequest(serialized, out.Codec)
	if err != nil {
		return RequestKwargs{}, err
	}
	out.Data = encoded

	for k, v := range a.codec.headers() {
		out.SetHeader(k, v)
	}
	for _, l := range a.layers {
		if l.Request == nil {
			continue
		}
		if err := l.Request(params, &out); err != nil {
			return RequestKwargs{}, fmt.Errorf("layer %s: %w", l.Name, err)
		}
	}
	return out, nil
}

// GenerateRequestKwargs returns the physical requests for one logical call.
// Without a fan-out function it is a single request.
func (a *Adapter) GenerateRequestKwargs(params *APIParams, kw RequestKwargs) ([]RequestKwargs, error) {
	if a.fanOut == nil {
		one, err := a.RequestKwargs(params, kw)
		if err != nil {
			return nil, err
		}
		return []RequestKwargs{one}, nil
	}

	parts, err := a.fanOut(params, kw.Clone())
	if err != nil {
		return nil, err
	}
	if len(parts) == 0 {
		return nil, apperrors.InvalidConfig("fan-out produced no requests")
	}
	out := make([]RequestKwargs, 0, len(parts))
	for _, part := range parts {
		built, err := a.RequestKwargs(params, part)
		if err != nil {
			return nil, err
		}
		out = append(out, built)
	}
	return out, nil
}

// ProcessResponse classifies resp. 404 and 5xx fail without decoding; any
// other status is decoded first, a decode failure is returned as is, and 4xx
// then fails as a ClientError carrying the decoded data.
func (a *Adapter) ProcessResponse(params *APIParams, resp *Response, kw *RequestKwargs) (any, error) {
	kind, decode, failed := classify(resp.StatusCode)
	if failed && !decode {
		return nil, a.newError(kind, nil, params, resp, kw)
	}

	data, err := a.ResponseToNative(resp, kw)
	if err != nil {
		return nil, err
	}
	if failed {
		return nil, a.newError(kind, data, params, resp, kw)
	}
	return data, nil
}

func (a *Adapter) newError(kind ErrorKind, data any, params *APIParams, resp *Response, kw *RequestKwargs) *Error {
	a.log.Debug("response classified as failure", logger.Fields(
		logger.FieldKind, kind.String(),
		logger.FieldStatusCode, resp.StatusCode,
	))
	return &Error{
		Kind:     kind,
		Message:  a.ErrorMessage(data, resp),
		Data:     data,
		Response: resp,
		Request:  kw,
		Params:   params,
	}
}

// SerializeData runs the serializer on data, or returns it unchanged when
// none is configured.
func (a *Adapter) SerializeData(data any) (any, error) {
	if a.serializer == nil {
		return data, nil
	}
	return a.serializer.Serialize(data)
}

// FormatDataToRequest encodes serialized data with the codec.
func (a *Adapter) FormatDataToRequest(data any, opts CodecOptions) (any, error) {
	return a.codec.encode(data, opts)
}

// ResponseToNative decodes resp with the codec and runs the result layers.
// kw supplies per-call decode options and may be nil.
func (a *Adapter) ResponseToNative(resp *Response, kw *RequestKwargs) (any, error) {
	var opts CodecOptions
	if kw != nil {
		opts = kw.Codec
	}
	data, err := a.codec.decode(resp, opts)
	if err != nil {
		if apperrors.IsAppError(err) {
			return nil, err
		}
		return nil, apperrors.DecodeFailed(a.codec.Kind().String(), err)
	}
	for _, l := range a.layers {
		if l.Result == nil {
			continue
		}
		if data, err = l.Result(data, resp, kw); err != nil {
			return nil, fmt.Errorf("layer %s: %w", l.Name, err)
		}
	}
	return data, nil
}

// ErrorMessage extracts a readable message from error data.
func (a *Adapter) ErrorMessage(data any, resp *Response) string {
	return a.codec.errorMessage(data, resp)
}

// IteratorList returns the items of a decoded page.
func (a *Adapter) IteratorList(data any) ([]any, error) {
	if a.pager == nil {
		return nil, apperrors.NotImplemented("get_iterator_list")
	}
	return a.pager.Items(data)
}

// IteratorNextRequestKwargs returns the request for the next page, or nil
// when iteration is over.
func (a *Adapter) IteratorNextRequestKwargs(current RequestKwargs, data any, resp *Response) (*RequestKwargs, error) {
	if a.pager == nil {
		return nil, apperrors.NotImplemented("get_iterator_next_request_kwargs")
	}
	return a.pager.NextRequest(current, data, resp)
}

// IsAuthenticationExpired reports whether err means the credentials expired.
func (a *Adapter) IsAuthenticationExpired(err error) bool {
	return a.auth.IsExpired(err)
}

// RefreshAuthentication renews params.Credentials.
func (a *Adapter) RefreshAuthentication(ctx context.Context, params *APIParams) (bool, error) {
	return a.auth.Refresh(ctx, params)
}

// RetryRequest reports whether the failed request should be sent again.
// count is the number of retries already made.
func (a *Adapter) RetryRequest(ctx context.Context, resp *Response, err error, params *APIParams, count int) bool {
	return a.retry.ShouldRetry(ctx, resp, err, params, count)
}

// RetryWait returns how long to wait before retry number count+1.
func (a *Adapter) RetryWait(resp *Response, count int) time.Duration {
	return a.retry.Wait(resp, count)
}

// WrapperCallException hands a failure to the exception policy, which may
// return it, replace it, or turn it into a value.
func (a *Adapter) WrapperCallException(resp *Response, err error, params *APIParams) (any, error) {
	return a.exception.Handle(resp, err, params)
}

// ExtraRequest returns the requests still to be made after current.
func (a *Adapter) ExtraRequest(params *APIParams, current RequestKwargs, pending []RequestKwargs, resp *Response, results []any) ([]RequestKwargs, error) {
	return a.extra.Next(params, current, pending, resp, results)
}

// NativeFunc converts a value with options for the serializer strategy.
type NativeFunc func(opts map[string]any) (any, error)

// NativeAccessor binds a serializer strategy to value.
func (a *Adapter) NativeAccessor(method string, value any) (NativeFunc, error) {
	if a.serializer == nil {
		return nil, apperrors.NotImplemented("native accessor").WithDetail("reason", "no serializer configured")
	}
	s := a.serializer
	return func(opts map[string]any) (any, error) {
		return s.Deserialize(method, value, opts)
	}, nil
}
