package adapter

// Layer extends the request builder and the response decoder. Layers run in
// the order they were added: Request after the codec has encoded the body and
// set its headers, Result after the codec has decoded the body.
type Layer struct {
	Name    string
	Request func(params *APIParams, kw *RequestKwargs) error
	Result  func(native any, resp *Response, kw *RequestKwargs) (any, error)
}

// HeaderLayer sets fixed headers on every request.
func HeaderLayer(headers map[string]string) Layer {
	return Layer{
		Name: "headers",
		Request: func(_ *APIParams, kw *RequestKwargs) error {
			for k, v := range headers {
				kw.SetHeader(k, v)
			}
			return nil
		},
	}
}

// QueryLayer adds fixed query parameters, keeping values the call already set.
func QueryLayer(params map[string]string) Layer {
	return Layer{
		Name: "query",
		Request: func(_ *APIParams, kw *RequestKwargs) error {
			for k, v := range params {
				if _, ok := kw.Params[k]; !ok {
					kw.SetParam(k, v)
				}
			}
			return nil
		},
	}
}

// CredentialHeaderLayer copies a credential into a request header on every
// request, so refreshed credentials apply to rebuilt requests.
func CredentialHeaderLayer(header, key, prefix string) Layer {
	return Layer{
		Name: "credential",
		Request: func(params *APIParams, kw *RequestKwargs) error {
			if params == nil {
				return nil
			}
			if v := params.Credentials.Get(key); v != "" {
				kw.SetHeader(header, prefix+v)
			}
			return nil
		},
	}
}
