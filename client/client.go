package client

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/tapioca/adapter"
	apperrors "github.com/kbukum/tapioca/errors"
	"github.com/kbukum/tapioca/logger"
	"github.com/kbukum/tapioca/observability"
	"github.com/kbukum/tapioca/resilience"
)

// Client drives an Adapter: it builds requests, sends them through a
// Transport, classifies responses and runs the adapter's recovery hooks.
//
// A Client keeps no per-call state and is safe for concurrent use. Retry and
// pagination end only when the adapter's policies say so; a policy that never
// gives up makes Call or an Iterator loop forever.
type Client struct {
	adapter   *adapter.Adapter
	transport Transport
	params    *adapter.APIParams
	log       *logger.Logger
	metrics   *observability.Metrics
	sleep     func(ctx context.Context, d time.Duration) error
}

// Option configures a Client during creation.
type Option func(*Client)

// WithLogger sets the client logger.
func WithLogger(l *logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithMetrics replaces the instruments created on the global meter.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithSleep replaces the function used to wait between retries.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) { c.sleep = fn }
}

// New creates a client for a, sending through t. A nil params is treated as
// empty.
func New(a *adapter.Adapter, t Transport, params *adapter.APIParams, opts ...Option) (*Client, error) {
	if a == nil {
		return nil, apperrors.InvalidConfig("client requires an adapter")
	}
	if t == nil {
		return nil, apperrors.InvalidConfig("client requires a transport")
	}
	if params == nil {
		params = &adapter.APIParams{}
	}
	if params.Credentials == nil {
		params.Credentials = adapter.NewCredentials(nil)
	}

	c := &Client{
		adapter:   a,
		transport: t,
		params:    params,
		sleep:     resilience.Sleep,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.Get("tapioca.client")
	}
	if c.metrics == nil {
		m, err := observability.NewMetrics(observability.Meter("github.com/kbukum/tapioca"))
		if err != nil {
			return nil, err
		}
		c.metrics = m
	}
	return c, nil
}

// Adapter returns the client's adapter.
func (c *Client) Adapter() *adapter.Adapter { return c.adapter }

// Params returns the API parameters handed to every hook.
func (c *Client) Params() *adapter.APIParams { return c.params }

// Resource returns call input for the named resource: the API root joined
// with the filled URL template.
func (c *Client) Resource(name string, values map[string]any) (adapter.RequestKwargs, error) {
	tmpl, ok := c.params.Resource(name)
	if !ok {
		return adapter.RequestKwargs{}, apperrors.InvalidConfig(fmt.Sprintf("unknown resource %q", name))
	}
	path, err := c.adapter.FillResourceTemplateURL(tmpl, values)
	if err != nil {
		return adapter.RequestKwargs{}, err
	}
	return adapter.RequestKwargs{URL: joinURL(c.adapter.APIRoot(c.params), path)}, nil
}

func joinURL(root, path string) string {
	if root == "" || strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimRight(root, "/") + "/" + strings.TrimLeft(path, "/")
}

// Result holds the outcome of every physical request made by one call.
type Result struct {
	Data      []any
	Responses []*adapter.Response
	Requests  []adapter.RequestKwargs
}

// First returns the data of the first request, or nil when there is none.
func (r *Result) First() any {
	if r == nil || len(r.Data) == 0 {
		return nil
	}
	return r.Data[0]
}

// Last returns the data and response of the final request.
func (r *Result) Last() (any, *adapter.Response) {
	if r == nil || len(r.Data) == 0 {
		return nil, nil
	}
	var resp *adapter.Response
	if n := len(r.Responses); n > 0 {
		resp = r.Responses[n-1]
	}
	return r.Data[len(r.Data)-1], resp
}

// Call runs one logical call. kw is the call input; the adapter turns it
// into one or more physical requests, sent one at a time.
//
// When a failure means the credentials expired, the adapter refreshes them
// once and the whole call restarts from kw. Other classified failures are
// retried while the retry policy agrees, then handed to the exception
// policy. Transport and decode errors are returned as they are.
func (c *Client) Call(ctx context.Context, kw adapter.RequestKwargs) (*Result, error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanCall,
		trace.WithAttributes(attribute.String(observability.AttrURL, kw.URL)))
	defer span.End()

	refreshable := true
	res, restart, err := c.call(ctx, kw, &refreshable)
	if err == nil && restart {
		res, _, err = c.call(ctx, kw, &refreshable)
	}
	if err != nil {
		observability.SetSpanError(ctx, err)
		return nil, err
	}
	observability.SetSpanAttribute(ctx, observability.AttrRequests, len(res.Requests))
	return res, nil
}

// call sends the requests generated for kw. canRefresh is shared by every
// request of the call and cleared by the first refresh attempt.
func (c *Client) call(ctx context.Context, kw adapter.RequestKwargs, canRefresh *bool) (*Result, bool, error) {
	pending, err := c.adapter.GenerateRequestKwargs(c.params, kw)
	if err != nil {
		return nil, false, err
	}

	res := &Result{}
	for len(pending) > 0 {
		current := pending[0]
		pending = pending[1:]

		data, resp, restart, err := c.execute(ctx, current, canRefresh)
		if err != nil || restart {
			return nil, restart, err
		}
		res.Data = append(res.Data, data)
		res.Responses = append(res.Responses, resp)
		res.Requests = append(res.Requests, current)

		if pending, err = c.adapter.ExtraRequest(c.params, current, pending, resp, res.Data); err != nil {
			return nil, false, err
		}
	}

	data, err := c.adapter.TransformResults(res.Data, res.Requests, res.Responses, c.params)
	if err != nil {
		return nil, false, err
	}
	res.Data = data
	return res, false, nil
}

// execute sends one physical request until it succeeds, is refreshed, runs
// out of retries or is handled by the exception policy.
func (c *Client) execute(ctx context.Context, kw adapter.RequestKwargs, canRefresh *bool) (any, *adapter.Response, bool, error) {
	for count := 0; ; count++ {
		data, resp, err := c.roundTrip(ctx, kw, count)
		if err == nil {
			return data, resp, false, nil
		}
		failure, ok := adapter.AsError(err)
		if !ok {
			return nil, resp, false, err
		}

		if *canRefresh && c.adapter.IsAuthenticationExpired(failure) {
			*canRefresh = false
			refreshed, rerr := c.refresh(ctx)
			if rerr != nil {
				return nil, resp, false, rerr
			}
			if refreshed {
				return nil, resp, true, nil
			}
		}

		if c.adapter.RetryRequest(ctx, resp, failure, c.params, count) {
			wait := c.adapter.RetryWait(resp, count)
			c.log.WithContext(ctx).Warn("retrying request", logger.Fields(
				logger.FieldURL, kw.URL,
				logger.FieldStatusCode, resp.StatusCode,
				logger.FieldAttempt, count+1,
				"wait", wait.String(),
			))
			c.metrics.RecordRetry(ctx, failure.Kind.String())
			if err := c.sleep(ctx, wait); err != nil {
				return nil, resp, false, err
			}
			continue
		}

		data, err = c.adapter.WrapperCallException(resp, failure, c.params)
		if err != nil {
			return nil, resp, false, err
		}
		c.log.WithContext(ctx).Warn("failure handled by exception policy", logger.Fields(
			logger.FieldURL, kw.URL,
			logger.FieldKind, failure.Kind.String(),
			logger.FieldStatusCode, resp.StatusCode,
		))
		return data, resp, false, nil
	}
}

func (c *Client) refresh(ctx context.Context) (bool, error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanRefresh)
	defer span.End()

	ok, err := c.adapter.RefreshAuthentication(ctx, c.params)
	c.metrics.RecordRefresh(ctx, ok && err == nil)
	if err != nil {
		observability.SetSpanError(ctx, err)
		return false, fmt.Errorf("refresh authentication: %w", err)
	}
	c.log.WithContext(ctx).Info("authentication refreshed", logger.Fields("refreshed", ok))
	return ok, nil
}

// roundTrip sends kw once and classifies the response.
func (c *Client) roundTrip(ctx context.Context, kw adapter.RequestKwargs, attempt int) (any, *adapter.Response, error) {
	id := uuid.NewString()
	ctx = logger.ContextWithRequestID(ctx, id)
	ctx, span := observability.StartSpan(ctx, observability.SpanRequest,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String(observability.AttrMethod, kw.Method),
			attribute.String(observability.AttrURL, kw.URL),
			attribute.String(observability.AttrRequestID, id),
			attribute.Int(observability.AttrAttempt, attempt),
			attribute.String(observability.AttrCodec, c.adapter.Codec().Kind().String()),
		))
	defer span.End()

	log := c.log.WithContext(ctx)
	log.Debug("sending request", logger.Fields(
		logger.FieldMethod, kw.Method,
		logger.FieldURL, kw.URL,
		logger.FieldAttempt, attempt,
	))

	start := time.Now()
	resp, err := c.transport.Send(ctx, kw)
	if err != nil {
		c.metrics.RecordResponse(ctx, kw.Method, "transport_error", 0, time.Since(start))
		observability.SetSpanError(ctx, err)
		log.Debug("transport failed", logger.ErrorFields("send", err))
		return nil, nil, err
	}
	if resp == nil {
		err := apperrors.InvalidConfig("transport returned neither a response nor an error").
			WithDetail("url", kw.URL)
		c.metrics.RecordResponse(ctx, kw.Method, "transport_error", 0, time.Since(start))
		observability.SetSpanError(ctx, err)
		return nil, nil, err
	}
	observability.SetSpanAttribute(ctx, observability.AttrStatusCode, resp.StatusCode)

	data, err := c.adapter.ProcessResponse(c.params, resp, &kw)
	kind := outcome(err)
	c.metrics.RecordResponse(ctx, kw.Method, kind, resp.StatusCode, time.Since(start))
	observability.SetSpanAttribute(ctx, observability.AttrKind, kind)
	if err != nil {
		observability.SetSpanError(ctx, err)
	}

	log.Debug("response received", logger.MergeWithDuration(logger.Fields(
		logger.FieldStatusCode, resp.StatusCode,
		logger.FieldKind, kind,
	), time.Since(start)))
	return data, resp, err
}

func outcome(err error) string {
	if err == nil {
		return "success"
	}
	if e, ok := adapter.AsError(err); ok {
		return e.Kind.String()
	}
	if ae, ok := apperrors.AsAppError(err); ok {
		return strings.ToLower(string(ae.Code))
	}
	return "error"
}
