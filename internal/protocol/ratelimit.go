package protocol

import (
	"sync"
	"time"
)

// RateLimiter is a per-client token bucket over protocol requests:
// default 100 ops/sec, and an offending client is blocked for 60s once
// the bucket is exhausted.
type RateLimiter struct {
	mu sync.Mutex

	rate         float64 // tokens per second
	burst        float64
	tokens       float64
	last         time.Time
	blockFor     time.Duration
	blockedUntil time.Time

	now func() time.Time
}

const (
	defaultRate         = 100.0
	defaultBlockSeconds = 60 * time.Second
)

func NewRateLimiter(now func() time.Time) *RateLimiter {
	if now == nil {
		now = time.Now
	}
	return &RateLimiter{
		rate: defaultRate, burst: defaultRate, tokens: defaultRate,
		last: now(), blockFor: defaultBlockSeconds, now: now,
	}
}

// Allow reports whether a request should proceed. Exactly the requests
// past the threshold within a one-second window are rejected, and
// rejection triggers a 60s block during which every subsequent request
// is rejected without consuming the refill clock.
func (r *RateLimiter) Allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if !r.blockedUntil.IsZero() {
		if now.Before(r.blockedUntil) {
			return false
		}
		r.blockedUntil = time.Time{}
		r.tokens = r.burst
		r.last = now
	}

	elapsed := now.Sub(r.last).Seconds()
	r.tokens += elapsed * r.rate
	if r.tokens > r.burst {
		r.tokens = r.burst
	}
	r.last = now

	if r.tokens < 1 {
		r.blockedUntil = now.Add(r.blockFor)
		return false
	}
	r.tokens--
	return true
}

func (r *RateLimiter) Blocked() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.blockedUntil.IsZero() && r.now().Before(r.blockedUntil)
}
