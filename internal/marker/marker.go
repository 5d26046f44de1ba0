// Package marker stores the shared feed version marker: a single timestamp that
// every process bumps after a feed-relevant write and polls to detect writes made elsewhere.
package marker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

var ErrClosed = errors.New("marker store is closed")

// Store reads and bumps the marker. A marker that was never written reads as the zero time.
type Store interface {
	LastUpdatedAt(ctx context.Context) (time.Time, error)
	// Bump records at as the last update. Stores never move the marker backwards.
	Bump(ctx context.Context, at time.Time) error
	Close() error
}

// MemoryStore keeps the marker in process memory. It only coordinates caches
// living in the same process and counts calls for inspection.
type MemoryStore struct {
	mu     sync.Mutex
	at     time.Time
	err    error
	closed bool

	reads atomic.Int64
	bumps atomic.Int64
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (s *MemoryStore) LastUpdatedAt(ctx context.Context) (time.Time, error) {
	s.reads.Add(1)
	if err := ctx.Err(); err != nil {
		return time.Time{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return time.Time{}, ErrClosed
	}
	if s.err != nil {
		return time.Time{}, s.err
	}
	return s.at, nil
}

func (s *MemoryStore) Bump(ctx context.Context, at time.Time) error {
	s.bumps.Add(1)
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.err != nil {
		return s.err
	}
	if at.After(s.at) {
		s.at = at
	}
	return nil
}

// Fail makes every following call return err until it is called with nil.
func (s *MemoryStore) Fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *MemoryStore) Reads() int64 { return s.reads.Load() }
func (s *MemoryStore) Bumps() int64 { return s.bumps.Load() }

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
