package server

import (
	"sync"
	"time"
)

// rateLimiter counts requests per key in fixed windows. Stale keys are swept
// opportunistically so the map does not grow with one-off client IPs.
type rateLimiter struct {
	limit  int
	window time.Duration

	mu        sync.Mutex
	counters  map[string]*windowCounter
	lastSweep time.Time
}

type windowCounter struct {
	openedAt time.Time
	hits     int
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		limit:    limit,
		window:   window,
		counters: make(map[string]*windowCounter),
	}
}

func (r *rateLimiter) Allow(key string) bool {
	if key == "" {
		return false
	}

	now := time.Now().UTC()
	r.mu.Lock()
	defer r.mu.Unlock()

	if now.Sub(r.lastSweep) > r.window {
		r.sweep(now)
		r.lastSweep = now
	}

	c, ok := r.counters[key]
	if !ok || now.Sub(c.openedAt) > r.window {
		c = &windowCounter{openedAt: now}
		r.counters[key] = c
	}
	if c.hits >= r.limit {
		return false
	}
	c.hits++
	return true
}

// sweep drops counters whose window has already closed. Caller holds the lock.
func (r *rateLimiter) sweep(now time.Time) {
	for key, c := range r.counters {
		if now.Sub(c.openedAt) > r.window {
			delete(r.counters, key)
		}
	}
}
