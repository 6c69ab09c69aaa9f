// Package caching provides the in-memory read-through cache that fronts the
// spreadsheet backend. Entries are advisory: the backing store remains the
// sole source of truth and the cache is rebuilt from it after every restart.
package caching

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/atlasschools/finboard-go/internal/infrastructure/observability/logging"
)

// Entry is one cached value. Entries are replaced wholesale on refresh and
// never partially mutated.
type Entry struct {
	Value    any
	StoredAt time.Time
	TTL      time.Duration
}

// FreshAt reports whether the entry is still fresh at the given instant.
// An entry whose age has reached its TTL counts as expired.
func (e *Entry) FreshAt(now time.Time) bool {
	return now.Sub(e.StoredAt) < e.TTL
}

// ComputeFunc produces the value for a key, usually via a spreadsheet round
// trip. It must honor ctx cancellation.
type ComputeFunc func(ctx context.Context) (any, error)

// Stats is a point-in-time snapshot of cache activity.
type Stats struct {
	Entries     int   `json:"entries"`
	Hits        int64 `json:"hits"`
	Misses      int64 `json:"misses"`
	StaleServes int64 `json:"staleServes"`
}

// Store is the cache. The entry map is the only mutable shared state in the
// core; the mutex is never held across a compute call.
type Store struct {
	mu      sync.RWMutex
	entries map[Key]*Entry
	sf      singleflight.Group
	now     func() time.Time
	logger  *logging.ChanneledLogger

	statsMu     sync.Mutex
	hits        int64
	misses      int64
	staleServes int64
}

// NewStore creates an empty cache store.
func NewStore(logger *logging.ChanneledLogger) *Store {
	if logger != nil {
		logger.Cache().Info("Initializing cache store")
	}
	return &Store{
		entries: make(map[Key]*Entry),
		now:     time.Now,
		logger:  logger,
	}
}

// WithClock replaces the store's clock. Intended for tests.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// GetOrCompute returns the cached value for key if fresh, otherwise invokes
// compute and stores the result with the given TTL. Concurrent callers for
// the same expired or missing key collapse into one compute; waiters block
// for that result. A failed compute never mutates the cache: if a prior
// entry exists its stale value is served, otherwise the error propagates.
func (s *Store) GetOrCompute(ctx context.Context, key Key, ttl time.Duration, compute ComputeFunc) (any, error) {
	start := s.now()

	if value, ok := s.lookupFresh(key); ok {
		s.countHit()
		if s.logger != nil {
			s.logger.LogCacheOperation("get", key.String(), true, time.Since(start))
		}
		return value, nil
	}
	s.countMiss()
	if s.logger != nil {
		s.logger.LogCacheOperation("get", key.String(), false, time.Since(start))
	}

	value, err, _ := s.sf.Do(key.String(), func() (any, error) {
		// A waiter released just after the leader stored may land here; the
		// re-check keeps it from triggering a second round trip.
		if value, ok := s.lookupFresh(key); ok {
			return value, nil
		}
		value, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		s.set(key, value, ttl)
		return value, nil
	})
	if err != nil {
		if stale, ok := s.lookupAny(key); ok {
			s.countStaleServe()
			if s.logger != nil {
				s.logger.Cache().Warn("Serving stale value after failed recompute",
					"key", key.String(), "error", err.Error())
			}
			return stale, nil
		}
		return nil, err
	}
	return value, nil
}

// ForceRefresh recomputes key unconditionally and overwrites the entry on
// success. On failure the previous entry, if any, is left untouched. Used by
// the background refresh scheduler.
func (s *Store) ForceRefresh(ctx context.Context, key Key, ttl time.Duration, compute ComputeFunc) error {
	_, err, _ := s.sf.Do(key.String(), func() (any, error) {
		value, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		s.set(key, value, ttl)
		return value, nil
	})
	return err
}

// Invalidate unconditionally removes the entry for key.
func (s *Store) Invalidate(key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)

	if s.logger != nil {
		s.logger.Cache().Debug("Cache entry invalidated", "key", key.String())
	}
}

// InvalidateOp removes every entry for an operation, regardless of branch,
// mode or qualifiers. When branch is non-empty only that branch's entries
// for the operation are removed.
func (s *Store) InvalidateOp(op, branch string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int
	for key := range s.entries {
		if key.Op != op {
			continue
		}
		if branch != "" && key.Branch != branch {
			continue
		}
		delete(s.entries, key)
		removed++
	}

	if s.logger != nil {
		s.logger.Cache().Debug("Cache operation invalidated",
			"op", op, "branch", branch, "removed", removed)
	}
}

// Clear drops all entries. Used after destructive external changes whose
// blast radius is not cheaply enumerable.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	dropped := len(s.entries)
	s.entries = make(map[Key]*Entry)

	if s.logger != nil {
		s.logger.Cache().Info("Cache cleared", "dropped", dropped)
	}
}

// GetStats returns a snapshot of cache activity.
func (s *Store) GetStats() Stats {
	s.mu.RLock()
	entries := len(s.entries)
	s.mu.RUnlock()

	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	return Stats{
		Entries:     entries,
		Hits:        s.hits,
		Misses:      s.misses,
		StaleServes: s.staleServes,
	}
}

func (s *Store) lookupFresh(key Key) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, exists := s.entries[key]
	if !exists || !entry.FreshAt(s.now()) {
		return nil, false
	}
	return entry.Value, true
}

func (s *Store) lookupAny(key Key) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, exists := s.entries[key]
	if !exists {
		return nil, false
	}
	return entry.Value, true
}

func (s *Store) set(key Key, value any, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = &Entry{
		Value:    value,
		StoredAt: s.now(),
		TTL:      ttl,
	}
}

func (s *Store) countHit() {
	s.statsMu.Lock()
	s.hits++
	s.statsMu.Unlock()
}

func (s *Store) countMiss() {
	s.statsMu.Lock()
	s.misses++
	s.statsMu.Unlock()
}

func (s *Store) countStaleServe() {
	s.statsMu.Lock()
	s.staleServes++
	s.statsMu.Unlock()
}
