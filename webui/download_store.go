package webui

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrDownloadNotFound = errors.New("download not found")
	ErrDownloadExpired  = errors.New("download expired")
)

// Download is a generated Word document waiting to be fetched.
type Download struct {
	ID        string
	FileName  string
	Data      []byte
	CreatedAt time.Time
	ExpiresAt time.Time
}

// DownloadStore keeps generated documents in memory for a limited time so
// the result page can link to them. Nothing is written to disk.
type DownloadStore struct {
	mu    sync.RWMutex
	items map[string]Download
	ttl   time.Duration
	now   func() time.Time
}

// NewDownloadStore creates a store whose entries live for ttl.
func NewDownloadStore(ttl time.Duration) *DownloadStore {
	return &DownloadStore{
		items: make(map[string]Download),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Put stores data under a new random id.
func (s *DownloadStore) Put(fileName string, data []byte) Download {
	now := s.now()
	d := Download{
		ID:        uuid.NewString(),
		FileName:  fileName,
		Data:      data,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	s.mu.Lock()
	s.items[d.ID] = d
	s.mu.Unlock()
	return d
}

// Get returns the download with id. Expired entries are removed.
func (s *DownloadStore) Get(id string) (Download, error) {
	s.mu.RLock()
	d, ok := s.items[id]
	s.mu.RUnlock()

	if !ok {
		return Download{}, ErrDownloadNotFound
	}
	if !s.now().Before(d.ExpiresAt) {
		s.Delete(id)
		return Download{}, ErrDownloadExpired
	}
	return d, nil
}

// Delete removes id. Unknown ids are ignored.
func (s *DownloadStore) Delete(id string) {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
}

// Cleanup removes every expired entry and returns how many.
func (s *DownloadStore) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, d := range s.items {
		if !now.Before(d.ExpiresAt) {
			delete(s.items, id)
			removed++
		}
	}
	return removed
}

// StartCleanupTicker runs Cleanup every interval until ctx is cancelled.
func (s *DownloadStore) StartCleanupTicker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Cleanup()
			}
		}
	}()
}

// Count returns the number of downloads that can still be fetched.
// Expired entries awaiting Cleanup are not counted.
func (s *DownloadStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	n := 0
	for _, d := range s.items {
		if now.Before(d.ExpiresAt) {
			n++
		}
	}
	return n
}

// Bytes returns the total size of stored documents.
func (s *DownloadStore) Bytes() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, d := range s.items {
		n += int64(len(d.Data))
	}
	return n
}
