package db

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultQueueCapacity bounds the number of records waiting to be written.
const DefaultQueueCapacity = 100

// Recorder writes generation records in the background so that a slow or
// broken database never delays a user request. Failed writes are logged
// and dropped.
type Recorder struct {
	repo   *Repository
	logger *zap.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan GenerationRecord
	done   chan struct{}
}

// NewRecorder starts the background writer.
func NewRecorder(repo *Repository, logger *zap.Logger, capacity int) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	r := &Recorder{
		repo:   repo,
		logger: logger,
		queue:  make(chan GenerationRecord, capacity),
		done:   make(chan struct{}),
	}
	go r.run()
	return r
}

// Record queues rec without blocking. It returns false when the queue is
// full or the recorder is closed.
func (r *Recorder) Record(rec GenerationRecord) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return false
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	select {
	case r.queue <- rec:
		return true
	default:
		r.logger.Warn("history queue full, dropping record",
			zap.String("request_id", rec.RequestID))
		return false
	}
}

// Pending returns the number of queued records.
func (r *Recorder) Pending() int {
	return len(r.queue)
}

// Close stops accepting records and waits until the queue is drained or
// ctx expires.
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()

	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Recorder) run() {
	defer close(r.done)
	for rec := range r.queue {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		id, err := r.repo.InsertGeneration(ctx, rec)
		cancel()
		if err != nil {
			r.logger.Error("failed to record generation",
				zap.String("request_id", rec.RequestID),
				zap.Error(err))
			continue
		}
		r.logger.Debug("generation recorded",
			zap.String("request_id", rec.RequestID),
			zap.Int64("id", id))
	}
}
