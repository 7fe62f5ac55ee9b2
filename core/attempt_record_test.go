package core

import (
	"testing"
	"time"
)

func TestAttemptRecord(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	window := time.Minute

	r := NewAttemptRecord(now, window)
	if r.Count != 1 || !r.ResetAt.Equal(now.Add(window)) {
		t.Fatalf("NewAttemptRecord() = %+v", r)
	}

	r = r.Increment(now.Add(10*time.Second), window)
	r = r.Increment(now.Add(20*time.Second), window)
	if r.Count != 3 {
		t.Errorf("Count = %d, want 3", r.Count)
	}
	if !r.IsBlocked(3) || r.IsBlocked(4) {
		t.Errorf("IsBlocked() wrong for count %d", r.Count)
	}
	if got := r.RetryAfter(now.Add(20 * time.Second)); got != 40*time.Second {
		t.Errorf("RetryAfter() = %v, want 40s", got)
	}

	later := now.Add(window)
	if !r.Expired(later) {
		t.Error("Expired() = false at ResetAt")
	}
	if got := r.RetryAfter(later.Add(time.Second)); got != 0 {
		t.Errorf("RetryAfter() after expiry = %v", got)
	}
	r = r.Increment(later, window)
	if r.Count != 1 || !r.ResetAt.Equal(later.Add(window)) {
		t.Errorf("Increment() after expiry = %+v, want fresh window", r)
	}
}
