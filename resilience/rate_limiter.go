package resilience

import (
	"context"
	"sync"
	"time"
)

// RateLimiterConfig configures a token bucket.
type RateLimiterConfig struct {
	Name string `yaml:"name" mapstructure:"name"`
	// Rate is the refill rate in tokens per second.
	Rate float64 `yaml:"rate" mapstructure:"rate"`
	// Burst is the bucket capacity. Defaults to Rate rounded down, minimum 1.
	Burst int `yaml:"burst" mapstructure:"burst"`
	// OnLimit is called whenever a caller has to wait.
	OnLimit func(name string) `yaml:"-" mapstructure:"-"`
}

// DefaultRateLimiterConfig returns 10 requests per second with a burst of 20.
func DefaultRateLimiterConfig(name string) RateLimiterConfig {
	return RateLimiterConfig{Name: name, Rate: 10, Burst: 20}
}

// RateLimiter is a token bucket that paces outbound calls.
type RateLimiter struct {
	cfg RateLimiterConfig

	mu     sync.Mutex
	tokens float64
	last   time.Time
}

// NewRateLimiter creates a full bucket.
func NewRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	if cfg.Rate <= 0 {
		cfg.Rate = 10
	}
	if cfg.Burst <= 0 {
		cfg.Burst = max(int(cfg.Rate), 1)
	}
	return &RateLimiter{cfg: cfg, tokens: float64(cfg.Burst), last: time.Now()}
}

// Allow takes one token if available.
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refill()
	if rl.tokens >= 1 {
		rl.tokens--
		return true
	}
	return false
}

// Wait takes one token, blocking until it is available or ctx is done.
// The token is reserved up front, so waiters are served in order.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	delay := rl.reserve()
	if delay <= 0 {
		return nil
	}
	if rl.cfg.OnLimit != nil {
		rl.cfg.OnLimit(rl.cfg.Name)
	}
	if err := Sleep(ctx, delay); err != nil {
		rl.cancel()
		return err
	}
	return nil
}

// Tokens returns the available tokens. Negative while waiters hold reservations.
func (rl *RateLimiter) Tokens() float64 {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refill()
	return rl.tokens
}

func (rl *RateLimiter) reserve() time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refill()
	rl.tokens--
	if rl.tokens >= 0 {
		return 0
	}
	return time.Duration(-rl.tokens / rl.cfg.Rate * float64(time.Second))
}

// cancel returns a reservation abandoned by a cancelled waiter.
func (rl *RateLimiter) cancel() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.tokens = min(rl.tokens+1, float64(rl.cfg.Burst))
}

func (rl *RateLimiter) refill() {
	now := time.Now()
	rl.tokens = min(rl.tokens+now.Sub(rl.last).Seconds()*rl.cfg.Rate, float64(rl.cfg.Burst))
	rl.last = now
}
