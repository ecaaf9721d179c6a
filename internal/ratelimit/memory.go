package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryCounterStore is a process-local CounterStore for tests and
// single-instance runs. Multi-instance deployments must share counts
// through the Redis store instead; a process-local counter admits up to
// N times capacity across N instances.
type MemoryCounterStore struct {
	mu      sync.Mutex
	entries map[string]*memoryCounter
	now     func() time.Time
}

type memoryCounter struct {
	value     int64
	expiresAt time.Time
}

func NewMemoryCounterStore() *MemoryCounterStore {
	return &MemoryCounterStore{
		entries: make(map[string]*memoryCounter),
		now:     time.Now,
	}
}

func (s *MemoryCounterStore) Add(_ context.Context, key string, delta int64, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.evictExpired(now)

	entry, ok := s.entries[key]
	if !ok {
		entry = &memoryCounter{expiresAt: now.Add(ttl)}
		s.entries[key] = entry
	}
	entry.value += delta

	return entry.value, nil
}

func (s *MemoryCounterStore) Get(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evictExpired(s.now())

	entry, ok := s.entries[key]
	if !ok {
		return 0, nil
	}
	return entry.value, nil
}

func (s *MemoryCounterStore) evictExpired(now time.Time) {
	for key, entry := range s.entries {
		if now.After(entry.expiresAt) {
			delete(s.entries, key)
		}
	}
}
