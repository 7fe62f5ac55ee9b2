// Package shutdown coordinates graceful shutdown: signal handling, waiting
// for in-flight generations and ordered release of resources.
package shutdown

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// ErrTrackerClosed is returned when trying to start an operation on a closed tracker.
var ErrTrackerClosed = errors.New("operation tracker is closed")

// Operation is one tracked unit of work.
type Operation struct {
	ID      uint64
	Name    string
	Started time.Time
}

// OperationTracker records in-flight operations by name so that shutdown
// can wait for them and report which ones are still running.
type OperationTracker struct {
	mu     sync.Mutex
	nextID uint64
	ops    map[uint64]Operation
	closed bool
	idle   chan struct{} // closed while no operation is running
}

// NewOperationTracker creates a new OperationTracker ready to track operations.
func NewOperationTracker() *OperationTracker {
	idle := make(chan struct{})
	close(idle)
	return &OperationTracker{ops: make(map[uint64]Operation), idle: idle}
}

// Start registers an operation. It returns false once the tracker is
// closed; otherwise the caller must call Done with the returned id.
func (t *OperationTracker) Start(name string) (uint64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return 0, false
	}
	if len(t.ops) == 0 {
		t.idle = make(chan struct{})
	}
	t.nextID++
	t.ops[t.nextID] = Operation{ID: t.nextID, Name: name, Started: time.Now()}
	return t.nextID, true
}

// Done marks an operation as complete. Unknown ids are ignored.
func (t *OperationTracker) Done(id uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.ops[id]; !ok {
		return
	}
	delete(t.ops, id)
	if len(t.ops) == 0 {
		close(t.idle)
	}
}

// Wait blocks until no operation is running or ctx ends.
func (t *OperationTracker) Wait(ctx context.Context) error {
	t.mu.Lock()
	idle := t.idle
	t.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close rejects further Start calls. Running operations are unaffected.
func (t *OperationTracker) Close() {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
}

// IsClosed returns true if the tracker has been closed.
func (t *OperationTracker) IsClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// ActiveCount returns the current number of active operations.
func (t *OperationTracker) ActiveCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.ops)
}

// InFlight returns the running operations, oldest first.
func (t *OperationTracker) InFlight() []Operation {
	t.mu.Lock()
	out := make([]Operation, 0, len(t.ops))
	for _, op := range t.ops {
		out = append(out, op)
	}
	t.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
