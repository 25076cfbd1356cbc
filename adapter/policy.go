package adapter

import (
	"context"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hashicorp/go-retryablehttp"

	apperrors "github.com/kbukum/tapioca/errors"
	"github.com/kbukum/tapioca/resilience"
)

// --- Retry ---

// RetryPolicy decides whether a classified failure is sent again and how
// long to wait first. count is the number of retries already made for the
// current physical request.
type RetryPolicy interface {
	ShouldRetry(ctx context.Context, resp *Response, err error, params *APIParams, count int) bool
	Wait(resp *Response, count int) time.Duration
}

// NoRetry never retries.
type NoRetry struct{}

// ShouldRetry implements RetryPolicy.
func (NoRetry) ShouldRetry(context.Context, *Response, error, *APIParams, int) bool { return false }

// Wait implements RetryPolicy.
func (NoRetry) Wait(*Response, int) time.Duration { return 0 }

// DefaultRetryStatuses are the statuses RetryOnStatus retries when none are given.
var DefaultRetryStatuses = []int{
	http.StatusTooManyRequests,
	http.StatusBadGateway,
	http.StatusServiceUnavailable,
	http.StatusGatewayTimeout,
}

// RetryOnStatus retries responses whose status is in Statuses, up to
// MaxRetries times. A Retry-After header is honoured; otherwise the wait
// grows exponentially from WaitMin to WaitMax.
type RetryOnStatus struct {
	Statuses   []int
	MaxRetries int
	WaitMin    time.Duration
	WaitMax    time.Duration
}

func (p RetryOnStatus) statuses() []int {
	if len(p.Statuses) == 0 {
		return DefaultRetryStatuses
	}
	return p.Statuses
}

// ShouldRetry implements RetryPolicy.
func (p RetryOnStatus) ShouldRetry(ctx context.Context, resp *Response, _ error, _ *APIParams, count int) bool {
	if ctx.Err() != nil || resp == nil || count >= p.MaxRetries {
		return false
	}
	return slices.Contains(p.statuses(), resp.StatusCode)
}

// Wait implements RetryPolicy.
func (p RetryOnStatus) Wait(resp *Response, count int) time.Duration {
	minWait, maxWait := p.WaitMin, p.WaitMax
	if minWait <= 0 {
		minWait = 100 * time.Millisecond
	}
	if maxWait < minWait {
		maxWait = minWait * 32
	}
	if resp != nil && resp.Header("Retry-After") != "" {
		hr := &http.Response{
			StatusCode: resp.StatusCode,
			Header:     http.Header{"Retry-After": []string{resp.Header("Retry-After")}},
		}
		return retryablehttp.DefaultBackoff(minWait, maxWait, count, hr)
	}
	return resilience.Backoff(count+1, resilience.BackoffConfig{
		InitialBackoff: minWait,
		MaxBackoff:     maxWait,
		BackoffFactor:  2.0,
	})
}

// RetryFunc adapts a predicate to RetryPolicy with a fixed wait.
type RetryFunc func(ctx context.Context, resp *Response, err error, params *APIParams, count int) bool

// ShouldRetry implements RetryPolicy.
func (f RetryFunc) ShouldRetry(ctx context.Context, resp *Response, err error, params *APIParams, count int) bool {
	return f(ctx, resp, err, params, count)
}

// Wait implements RetryPolicy. It never waits.
func (f RetryFunc) Wait(*Response, int) time.Duration { return 0 }

// --- Authentication ---

// AuthPolicy detects expired credentials and refreshes them.
type AuthPolicy interface {
	IsExpired(err error) bool
	// Refresh renews params.Credentials and reports whether it succeeded.
	Refresh(ctx context.Context, params *APIParams) (bool, error)
}

// NoAuth never reports expiry and cannot refresh.
type NoAuth struct{}

// IsExpired implements AuthPolicy.
func (NoAuth) IsExpired(error) bool { return false }

// Refresh implements AuthPolicy. It always fails with NOT_IMPLEMENTED.
func (NoAuth) Refresh(context.Context, *APIParams) (bool, error) {
	return false, apperrors.NotImplemented("refresh_authentication")
}

// Refresher obtains fresh credential values.
type Refresher func(ctx context.Context, params *APIParams) (map[string]string, error)

// TokenRefresh treats a 401 ClientError, or an access token whose JWT exp
// claim has passed, as expired. The token signature is not verified.
type TokenRefresh struct {
	// TokenKey is the credential holding the access token. Defaults to "access_token".
	TokenKey  string
	Refresher Refresher
	// Leeway treats tokens expiring this soon as already expired.
	Leeway time.Duration
}

func (p TokenRefresh) tokenKey() string {
	if p.TokenKey == "" {
		return "access_token"
	}
	return p.TokenKey
}

// IsExpired implements AuthPolicy.
func (p TokenRefresh) IsExpired(err error) bool {
	e, ok := AsError(err)
	if !ok {
		return false
	}
	if e.Kind == KindClientError && e.StatusCode() == http.StatusUnauthorized {
		return true
	}
	if e.Params == nil {
		return false
	}
	return TokenExpired(e.Params.Credentials.Get(p.tokenKey()), p.Leeway)
}

// Refresh implements AuthPolicy.
func (p TokenRefresh) Refresh(ctx context.Context, params *APIParams) (bool, error) {
	if p.Refresher == nil {
		return false, apperrors.NotImplemented("refresh_authentication")
	}
	values, err := p.Refresher(ctx, params)
	if err != nil {
		return false, err
	}
	if len(values) == 0 {
		return false, nil
	}
	if params.Credentials == nil {
		params.Credentials = NewCredentials(nil)
	}
	params.Credentials.Update(values)
	return true, nil
}

// TokenExpired reports whether token is a JWT whose exp claim is earlier
// than now plus leeway. Opaque tokens and tokens without exp never expire.
func TokenExpired(token string, leeway time.Duration) bool {
	if token == "" {
		return false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(time.Now().Add(leeway))
}

// --- Exceptions ---

// ExceptionPolicy is the last stop for a classified failure that was neither
// refreshed nor retried. It may return a replacement value with a nil error.
type ExceptionPolicy interface {
	Handle(resp *Response, err error, params *APIParams) (any, error)
}

// ReRaise returns the failure unchanged.
type ReRaise struct{}

// Handle implements ExceptionPolicy.
func (ReRaise) Handle(_ *Response, err error, _ *APIParams) (any, error) { return nil, err }

// ExceptionFunc adapts a function to ExceptionPolicy.
type ExceptionFunc func(resp *Response, err error, params *APIParams) (any, error)

// Handle implements ExceptionPolicy.
func (f ExceptionFunc) Handle(resp *Response, err error, params *APIParams) (any, error) {
	return f(resp, err, params)
}

// --- Extra requests ---

// ExtraRequestPolicy returns the requests still to be made after current
// completed. results holds the data of every request made so far.
type ExtraRequestPolicy interface {
	Next(params *APIParams, current RequestKwargs, pending []RequestKwargs, resp *Response, results []any) ([]RequestKwargs, error)
}

// NoExtraRequests keeps the pending queue as it is.
type NoExtraRequests struct{}

// Next implements ExtraRequestPolicy.
func (NoExtraRequests) Next(_ *APIParams, _ RequestKwargs, pending []RequestKwargs, _ *Response, _ []any) ([]RequestKwargs, error) {
	return pending, nil
}

// ExtraRequestFunc adapts a function to ExtraRequestPolicy.
type ExtraRequestFunc func(params *APIParams, current RequestKwargs, pending []RequestKwargs, resp *Response, results []any) ([]RequestKwargs, error)

// Next implements ExtraRequestPolicy.
func (f ExtraRequestFunc) Next(params *APIParams, current RequestKwargs, pending []RequestKwargs, resp *Response, results []any) ([]RequestKwargs, error) {
	return f(params, current, pending, resp, results)
}

// --- Pagination ---

// Pager extracts the items of a decoded page and builds the request for the
// page after it. A nil request ends iteration.
type Pager interface {
	Items(data any) ([]any, error)
	NextRequest(current RequestKwargs, data any, resp *Response) (*RequestKwargs, error)
}

// PagerFuncs adapts a pair of functions to Pager.
type PagerFuncs struct {
	ItemsFunc func(data any) ([]any, error)
	NextFunc  func(current RequestKwargs, data any, resp *Response) (*RequestKwargs, error)
}

// Items implements Pager.
func (p PagerFuncs) Items(data any) ([]any, error) { return p.ItemsFunc(data) }

// NextRequest implements Pager.
func (p PagerFuncs) NextRequest(current RequestKwargs, data any, resp *Response) (*RequestKwargs, error) {
	return p.NextFunc(current, data, resp)
}

// LinkPager follows a next-page URL found in the decoded body.
// Key paths are dot separated; an empty ItemsKey means the page is the list.
type LinkPager struct {
	ItemsKey string
	NextKey  string
}

// Items implements Pager.
func (p LinkPager) Items(data any) ([]any, error) {
	return itemsAt(data, p.ItemsKey)
}

// NextRequest implements Pager. The next URL replaces the current one and
// carries its own query string.
func (p LinkPager) NextRequest(current RequestKwargs, data any, _ *Response) (*RequestKwargs, error) {
	v, ok := lookupPath(data, p.NextKey)
	if !ok || v == nil {
		return nil, nil
	}
	next, ok := v.(string)
	if !ok || next == "" {
		return nil, nil
	}
	if base, err := url.Parse(current.URL); err == nil {
		if ref, err := url.Parse(next); err == nil {
			next = base.ResolveReference(ref).String()
		}
	}
	kw := current.Clone()
	kw.URL = next
	kw.Params = nil
	return &kw, nil
}

// OffsetPager pages with offset and limit query parameters and stops at the
// first page shorter than Limit.
type OffsetPager struct {
	ItemsKey    string
	OffsetParam string
	LimitParam  string
	Limit       int
}

// Items implements Pager.
func (p OffsetPager) Items(data any) ([]any, error) {
	return itemsAt(data, p.ItemsKey)
}

// NextRequest implements Pager.
func (p OffsetPager) NextRequest(current RequestKwargs, data any, _ *Response) (*RequestKwargs, error) {
	items, err := p.Items(data)
	if err != nil {
		return nil, err
	}
	if p.Limit <= 0 || len(items) < p.Limit {
		return nil, nil
	}
	offsetParam, limitParam := p.OffsetParam, p.LimitParam
	if offsetParam == "" {
		offsetParam = "offset"
	}
	if limitParam == "" {
		limitParam = "limit"
	}
	offset := 0
	if s, ok := current.Params[offsetParam]; ok {
		if n, err := strconv.Atoi(s); err == nil {
			offset = n
		}
	}
	kw := current.Clone()
	kw.SetParam(offsetParam, strconv.Itoa(offset+len(items)))
	kw.SetParam(limitParam, strconv.Itoa(p.Limit))
	return &kw, nil
}

func itemsAt(data any, path string) ([]any, error) {
	v, ok := lookupPath(data, path)
	if !ok || v == nil {
		return nil, nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil, apperrors.InvalidInput(path, "page items are not a list")
	}
	return items, nil
}

func lookupPath(data any, path string) (any, bool) {
	if path == "" {
		return data, true
	}
	cur := data
	for _, key := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[key]; !ok {
			return nil, false
		}
	}
	return cur, true
}
