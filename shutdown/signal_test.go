package shutdown

import "testing"

func TestSignalCounter(t *testing.T) {
	forced := 0
	c := NewSignalCounter(2, func() { forced++ })

	if got := c.Increment(); got != 1 || forced != 0 {
		t.Fatalf("first Increment() = %d, forced = %d", got, forced)
	}
	if got := c.Increment(); got != 2 || forced != 1 {
		t.Fatalf("second Increment() = %d, forced = %d", got, forced)
	}
	if c.Count() != 2 {
		t.Errorf("Count() = %d", c.Count())
	}
}
