package shutdown

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"outlook_backend/core"
)

// Typical priorities; lower runs first.
const (
	PriorityServer  = 10 // stop accepting requests
	PriorityWorkers = 20 // drain background writers
	PriorityStorage = 30 // close databases
	PriorityLogging = 90 // flush logs last
)

type shutdownEntry struct {
	name     string
	priority int
	fn       core.ShutdownFunc
}

// ShutdownRegistry runs cleanup functions once, in priority order. Entries
// with equal priority run in registration order.
type ShutdownRegistry struct {
	mu      sync.Mutex
	entries []shutdownEntry
	done    bool
}

// NewShutdownRegistry returns an empty registry.
func NewShutdownRegistry() *ShutdownRegistry {
	return &ShutdownRegistry{}
}

// Register adds fn. Registrations after Run are ignored.
func (r *ShutdownRegistry) Register(name string, priority int, fn core.ShutdownFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done || fn == nil {
		return
	}
	r.entries = append(r.entries, shutdownEntry{name: name, priority: priority, fn: fn})
}

// Run calls every function even if earlier ones fail and returns the
// failures, each prefixed with its name. Only the first call does work.
func (r *ShutdownRegistry) Run(ctx context.Context) []error {
	r.mu.Lock()
	if r.done {
		r.mu.Unlock()
		return nil
	}
	r.done = true
	entries := r.sorted()
	r.mu.Unlock()

	var errs []error
	for _, e := range entries {
		if err := e.fn(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", e.name, err))
		}
	}
	return errs
}

// Names lists registered entries in execution order.
func (r *ShutdownRegistry) Names() []string {
	r.mu.Lock()
	entries := r.sorted()
	r.mu.Unlock()

	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.name
	}
	return names
}

// Count returns the number of registered entries.
func (r *ShutdownRegistry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// sorted must be called with r.mu held.
func (r *ShutdownRegistry) sorted() []shutdownEntry {
	out := make([]shutdownEntry, len(r.entries))
	copy(out, r.entries)
	sort.SliceStable(out, func(i, j int) bool { return out[i].priority < out[j].priority })
	return out
}
