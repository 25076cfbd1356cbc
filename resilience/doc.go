// Package resilience provides the fault-tolerance primitives used by the
// HTTP transport and the retry policies.
//
// This package includes:
//   - CircuitBreaker: Prevents cascading failures by failing fast
//   - Backoff: Exponential delay between adapter-driven retries
//   - Bulkhead: Limits concurrent access to isolate failures
//   - RateLimiter: Controls request rate with token bucket algorithm
//
// None of these retry on their own; retries are decided by adapter policies.
//
//	cb := resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("http"))
//	bh := resilience.NewBulkhead(resilience.BulkheadConfig{MaxConcurrent: 10})
//	rl := resilience.NewRateLimiter(resilience.RateLimiterConfig{Rate: 100, Burst: 20})
//
//	if err := rl.Wait(ctx); err != nil {
//	    return err
//	}
//	err := bh.Execute(ctx, func() error {
//	    return cb.Execute(func() error { return send(req) })
//	})
package resilience
