package authn

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter hands out one token bucket per caller identity, created
// lazily on first use. ping is exempt — callers should check for it
// before consulting the limiter at all.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	window  time.Duration
	max     int
}

// NewRateLimiter builds a limiter allowing max requests per window for
// each distinct identity. A non-positive max disables limiting (Allow
// always returns true).
func NewRateLimiter(window time.Duration, max int) *RateLimiter {
	return &RateLimiter{
		buckets: make(map[string]*rate.Limiter),
		window:  window,
		max:     max,
	}
}

// Allow reports whether identity may make one more request now,
// consuming a token if so.
func (rl *RateLimiter) Allow(identity string) bool {
	if rl.max <= 0 {
		return true
	}
	return rl.limiterFor(identity).Allow()
}

func (rl *RateLimiter) limiterFor(identity string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if l, ok := rl.buckets[identity]; ok {
		return l
	}
	// refill rate: max tokens per window, burst of max so a caller can
	// spend its whole window's allowance immediately then must wait.
	every := rl.window / time.Duration(rl.max)
	l := rate.NewLimiter(rate.Every(every), rl.max)
	rl.buckets[identity] = l
	return l
}

// Reset drops all per-identity buckets, used by reset_performance_metrics
// style administrative resets in tests.
func (rl *RateLimiter) Reset() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.buckets = make(map[string]*rate.Limiter)
}
