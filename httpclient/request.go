package httpclient

// Request is one fully built outbound call.
type Request struct {
	// Method is the HTTP method. Empty means GET.
	Method string
	// Path is joined to the client's BaseURL unless it is already absolute.
	Path string
	// Headers override the client defaults.
	Headers map[string]string
	// Query values are merged into the URL query string.
	Query map[string]string
	// Body accepts io.Reader, []byte, string, url.Values, map[string]string,
	// *MultipartBody, or any value that encodes as JSON.
	Body any
	// Auth overrides the client-level auth for this request.
	Auth *AuthConfig
}

// Response is a fully read HTTP response.
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

// IsSuccess reports a 2xx status.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// IsError reports a 4xx or 5xx status.
func (r *Response) IsError() bool {
	return r.StatusCode >= 400
}
