package shutdown

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestOperationTracker_StartDone(t *testing.T) {
	tr := NewOperationTracker()

	a, ok := tr.Start("generate a")
	if !ok {
		t.Fatal("Start() = false on open tracker")
	}
	b, _ := tr.Start("generate b")
	if got := tr.ActiveCount(); got != 2 {
		t.Errorf("ActiveCount() = %d, want 2", got)
	}

	ops := tr.InFlight()
	if len(ops) != 2 || ops[0].Name != "generate a" || ops[1].Name != "generate b" {
		t.Errorf("InFlight() = %+v", ops)
	}

	tr.Done(a)
	tr.Done(a) // unknown id now, ignored
	tr.Done(b)
	if got := tr.ActiveCount(); got != 0 {
		t.Errorf("ActiveCount() = %d, want 0", got)
	}
}

func TestOperationTracker_WaitIdle(t *testing.T) {
	tr := NewOperationTracker()
	if err := tr.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() on idle tracker = %v", err)
	}

	id, _ := tr.Start("slow")
	go func() {
		time.Sleep(20 * time.Millisecond)
		tr.Done(id)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := tr.Wait(ctx); err != nil {
		t.Errorf("Wait() = %v", err)
	}
}

func TestOperationTracker_WaitTimeout(t *testing.T) {
	tr := NewOperationTracker()
	tr.Start("stuck")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := tr.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() = %v, want DeadlineExceeded", err)
	}
}

func TestOperationTracker_Close(t *testing.T) {
	tr := NewOperationTracker()
	tr.Close()
	if _, ok := tr.Start("late"); ok {
		t.Error("Start() succeeded after Close()")
	}
	if !tr.IsClosed() {
		t.Error("IsClosed() = false")
	}
}
