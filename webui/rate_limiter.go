package webui

import (
	"context"
	"sync"
	"time"

	"outlook_backend/core"
)

// RateLimiter caps how many generations one client IP may start per
// window. Each generation costs real model tokens, so the limit is
// counted on attempts, not on successes.
type RateLimiter struct {
	mu       sync.Mutex
	attempts map[string]core.AttemptRecord
	limit    int
	window   time.Duration
	now      func() time.Time
}

// NewRateLimiter allows limit requests per window. A non-positive limit
// disables limiting.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		attempts: make(map[string]core.AttemptRecord),
		limit:    limit,
		window:   window,
		now:      time.Now,
	}
}

// Allow counts one request from ip. When the window is already full it
// returns false and the time until the window closes.
func (r *RateLimiter) Allow(ip string) (bool, time.Duration) {
	if r.limit <= 0 {
		return true, 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	record, exists := r.attempts[ip]
	if exists && !record.Expired(now) && record.IsBlocked(r.limit) {
		return false, record.RetryAfter(now)
	}
	r.attempts[ip] = record.Increment(now, r.window)
	return true, 0
}

// Cleanup removes records whose window has closed.
func (r *RateLimiter) Cleanup() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	removed := 0
	for ip, record := range r.attempts {
		if record.Expired(now) {
			delete(r.attempts, ip)
			removed++
		}
	}
	return removed
}

// StartCleanupTicker runs Cleanup every interval until ctx is cancelled.
func (r *RateLimiter) StartCleanupTicker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.Cleanup()
			}
		}
	}()
}

// Count returns the number of tracked IPs.
func (r *RateLimiter) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.attempts)
}
