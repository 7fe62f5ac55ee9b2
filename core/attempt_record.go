package core

import "time"

// AttemptRecord counts events from one client inside a fixed window. The
// web UI uses it both for the per-minute generation limit and for failed
// password attempts.
type AttemptRecord struct {
	// Count is the number of events in the current window
	Count int

	// ResetAt is when the window closes
	ResetAt time.Time
}

// NewAttemptRecord starts a window at now with one event counted.
func NewAttemptRecord(now time.Time, window time.Duration) AttemptRecord {
	return AttemptRecord{Count: 1, ResetAt: now.Add(window)}
}

// Expired reports whether the window has closed.
func (a AttemptRecord) Expired(now time.Time) bool {
	return !now.Before(a.ResetAt)
}

// IsBlocked reports whether the window already holds limit events.
func (a AttemptRecord) IsBlocked(limit int) bool {
	return a.Count >= limit
}

// RetryAfter returns the time left in the window, never negative.
func (a AttemptRecord) RetryAfter(now time.Time) time.Duration {
	if d := a.ResetAt.Sub(now); d > 0 {
		return d
	}
	return 0
}

// Increment counts one more event. An expired record starts a new window.
func (a AttemptRecord) Increment(now time.Time, window time.Duration) AttemptRecord {
	if a.Expired(now) {
		return NewAttemptRecord(now, window)
	}
	return AttemptRecord{Count: a.Count + 1, ResetAt: a.ResetAt}
}
