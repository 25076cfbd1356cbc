// Package httpclient sends fully built HTTP requests and returns fully read
// responses.
//
// The client never turns a status code into an error. A response with any
// status comes back with a nil error so the caller can classify it; errors
// are reserved for transport failures (timeouts, refused connections) and
// for calls rejected by the resilience layer.
//
// Rate limiting, a bulkhead and a circuit breaker are opt-in through Config.
// The breaker counts 5xx responses as failures:
//
//	client, err := httpclient.New(httpclient.Config{
//	    BaseURL:        "https://api.example.com",
//	    Auth:           httpclient.BearerAuth(token),
//	    CircuitBreaker: httpclient.DefaultCircuitBreakerConfig("example"),
//	})
//
//	resp, err := client.Do(ctx, httpclient.Request{Method: http.MethodGet, Path: "/users/1"})
package httpclient
