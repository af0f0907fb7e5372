package http

import (
	"sync"
	"time"
)

// rateLimiter is a fixed one-minute window counter. A nil or zero-limit
// limiter allows everything.
type rateLimiter struct {
	mu          sync.Mutex
	limit       int
	counter     int
	window      time.Duration
	windowStart time.Time
	now         func() time.Time
}

func newRateLimiter(limit int) *rateLimiter {
	if limit <= 0 {
		return &rateLimiter{limit: 0}
	}
	return &rateLimiter{
		limit:  limit,
		window: time.Minute,
		now:    time.Now,
	}
}

func (r *rateLimiter) allow() bool {
	if r == nil || r.limit <= 0 {
		return true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if now.Sub(r.windowStart) >= r.window {
		r.windowStart = now
		r.counter = 0
	}
	r.counter++
	return r.counter <= r.limit
}
