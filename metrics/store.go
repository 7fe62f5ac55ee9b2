package metrics

import (
	"sync"
	"time"

	"outlook_backend/db"
)

// DefaultCapacity is the number of recent samples kept when none is
// configured.
const DefaultCapacity = 100

// Store is an in-memory Collector. Recent samples live in a ring buffer;
// totals cover every generation since the store was created.
type Store struct {
	mu sync.RWMutex

	recent []Sample
	head   int
	size   int

	total        int64
	succeeded    int64
	truncated    int64
	duration     time.Duration
	promptTokens int64
	byOutcome    map[string]*outcomeStats
	last         time.Time

	startTime time.Time
	now       func() time.Time
}

type outcomeStats struct {
	count    int64
	duration time.Duration
}

// NewStore creates a store keeping capacity recent samples. Uptime is
// measured from startTime.
func NewStore(capacity int, startTime time.Time) *Store {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Store{
		recent:    make([]Sample, capacity),
		byOutcome: make(map[string]*outcomeStats),
		startTime: startTime,
		now:       time.Now,
	}
}

// Record converts a history record and adds it. It always succeeds.
func (s *Store) Record(rec db.GenerationRecord) bool {
	s.Add(SampleFromRecord(rec))
	return true
}

// Add stores a sample.
func (s *Store) Add(sample Sample) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.recent[s.head] = sample
	s.head = (s.head + 1) % len(s.recent)
	if s.size < len(s.recent) {
		s.size++
	}

	s.total++
	s.duration += sample.Duration
	if sample.Succeeded() {
		s.succeeded++
		s.promptTokens += int64(sample.PromptTokens)
		if sample.Truncated {
			s.truncated++
		}
	}
	if sample.CreatedAt.After(s.last) {
		s.last = sample.CreatedAt
	}

	stats, ok := s.byOutcome[sample.Outcome]
	if !ok {
		stats = &outcomeStats{}
		s.byOutcome[sample.Outcome] = stats
	}
	stats.count++
	stats.duration += sample.Duration
}

// Summary returns the aggregates.
func (s *Store) Summary() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sum := Summary{
		Total:          s.total,
		Succeeded:      s.succeeded,
		Failed:         s.total - s.succeeded,
		Truncated:      s.truncated,
		ByOutcome:      make(map[string]*OutcomeStats, len(s.byOutcome)),
		LastGeneration: s.last,
		Uptime:         s.now().Sub(s.startTime),
	}
	if s.total > 0 {
		sum.SuccessRate = float64(s.succeeded) / float64(s.total) * 100
		sum.AvgDuration = s.duration / time.Duration(s.total)
	}
	if s.succeeded > 0 {
		sum.AvgPromptTokens = int(s.promptTokens / s.succeeded)
	}
	for outcome, stats := range s.byOutcome {
		sum.ByOutcome[outcome] = &OutcomeStats{
			Count:       stats.count,
			AvgDuration: stats.duration / time.Duration(stats.count),
		}
	}
	return sum
}

// Recent returns up to limit samples, oldest first.
func (s *Store) Recent(limit int) []Sample {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || s.size == 0 {
		return []Sample{}
	}
	if limit > s.size {
		limit = s.size
	}

	capacity := len(s.recent)
	out := make([]Sample, limit)
	for i := 0; i < limit; i++ {
		out[i] = s.recent[(s.head-limit+i+capacity)%capacity]
	}
	return out
}

var _ Collector = (*Store)(nil)
