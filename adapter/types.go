package adapter

import (
	"maps"
	"strings"
	"sync"
)

// Credentials holds authentication values that an AuthPolicy may replace
// while calls are in flight.
type Credentials struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewCredentials returns a credential holder seeded with a copy of values.
func NewCredentials(values map[string]string) *Credentials {
	c := &Credentials{values: make(map[string]string, len(values))}
	maps.Copy(c.values, values)
	return c
}

// Get returns the credential stored under key.
func (c *Credentials) Get(key string) string {
	if c == nil {
		return ""
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.values[key]
}

// Set stores a single credential value. It does nothing on a nil holder.
func (c *Credentials) Set(key, value string) {
	c.Update(map[string]string{key: value})
}

// Update merges values into the stored credentials. It does nothing on a nil
// holder; a zero Credentials is ready to use.
func (c *Credentials) Update(values map[string]string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.values == nil {
		c.values = make(map[string]string, len(values))
	}
	maps.Copy(c.values, values)
}

// Snapshot returns a copy of the stored credentials.
func (c *Credentials) Snapshot() map[string]string {
	if c == nil {
		return map[string]string{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return maps.Clone(c.values)
}

// APIParams is the per-client configuration handed to every adapter hook.
// The adapter treats it as read-only; only Credentials may change.
type APIParams struct {
	APIRoot     string
	Resources   map[string]string
	Credentials *Credentials
	Extra       map[string]any
}

// Resource returns the URL template registered under name.
func (p *APIParams) Resource(name string) (string, bool) {
	if p == nil {
		return "", false
	}
	tmpl, ok := p.Resources[name]
	return tmpl, ok
}

// CodecOptions carries per-call encode (Unparse) and decode (Parse) options
// extracted from the call's keyword arguments.
type CodecOptions struct {
	Unparse map[string]any
	Parse   map[string]any
}

// Empty reports whether no options were supplied.
func (o CodecOptions) Empty() bool {
	return len(o.Unparse) == 0 && len(o.Parse) == 0
}

// RequestKwargs is everything needed to issue one physical request.
type RequestKwargs struct {
	URL     string
	Method  string
	Headers map[string]string
	Params  map[string]string
	// Data is the payload: native before FormatDataToRequest, encoded after.
	Data any
	// Extra holds the remaining keyword arguments of the call.
	Extra map[string]any
	Codec CodecOptions
}

// Clone returns a copy whose maps can be modified without touching kw.
// Data is copied by reference.
func (kw RequestKwargs) Clone() RequestKwargs {
	out := kw
	out.Headers = maps.Clone(kw.Headers)
	out.Params = maps.Clone(kw.Params)
	out.Extra = maps.Clone(kw.Extra)
	out.Codec = CodecOptions{
		Unparse: maps.Clone(kw.Codec.Unparse),
		Parse:   maps.Clone(kw.Codec.Parse),
	}
	return out
}

// SetHeader sets a header, allocating the map when needed.
func (kw *RequestKwargs) SetHeader(key, value string) {
	if kw.Headers == nil {
		kw.Headers = make(map[string]string)
	}
	kw.Headers[key] = value
}

// SetParam sets a query parameter, allocating the map when needed.
func (kw *RequestKwargs) SetParam(key, value string) {
	if kw.Params == nil {
		kw.Params = make(map[string]string)
	}
	kw.Params[key] = value
}

// Response is a fully received HTTP response.
type Response struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
}

// Text returns the body as a string.
func (r *Response) Text() string {
	if r == nil {
		return ""
	}
	return string(r.Body)
}

// Blank reports whether the body is empty or whitespace only.
func (r *Response) Blank() bool {
	return r == nil || strings.TrimSpace(string(r.Body)) == ""
}

// Header looks up a header value case-insensitively.
func (r *Response) Header(name string) string {
	if r == nil {
		return ""
	}
	if v, ok := r.Headers[name]; ok {
		return v
	}
	for k, v := range r.Headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// ContentType returns the Content-Type header.
func (r *Response) ContentType() string {
	return r.Header("Content-Type")
}
