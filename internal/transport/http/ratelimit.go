package http

import "time"

// rateLimiter counts events in fixed one-minute windows. It is owned by a
// single read loop and is not safe for concurrent use.
type rateLimiter struct {
	limit   int
	window  time.Duration
	now     func() time.Time
	started time.Time
	counter int
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
	now := r.now()
	if now.Sub(r.started) >= r.window {
		r.started = now
		r.counter = 0
	}
	r.counter++
	return r.counter <= r.limit
}
