package store

import (
	"context"
	"sync"
	"time"
)

type memoryRecord struct {
	value    string
	deadline time.Time
	timer    *time.Timer
}

// InMemoryStore is a Store implementation backed by a map with per-key expiry
// timers. Useful for tests and single-process setups.
type InMemoryStore struct {
	mu    sync.Mutex
	items map[string]*memoryRecord
}

// NewInMemoryStore returns a new InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{items: make(map[string]*memoryRecord)}
}

// live reports whether a non-expired record exists for key. Caller holds mu.
// The deadline check covers the window between expiry and the timer firing.
func (s *InMemoryStore) live(key string, now time.Time) (*memoryRecord, bool) {
	rec, ok := s.items[key]
	if !ok {
		return nil, false
	}
	if now.After(rec.deadline) {
		rec.timer.Stop()
		delete(s.items, key)
		return nil, false
	}
	return rec, true
}

// SetIfAbsent implements Store.SetIfAbsent.
func (s *InMemoryStore) SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.live(key, now); ok {
		return false, nil
	}
	rec := &memoryRecord{value: value, deadline: now.Add(ttl)}
	rec.timer = time.AfterFunc(ttl, func() {
		s.mu.Lock()
		if cur, ok := s.items[key]; ok && cur == rec {
			delete(s.items, key)
		}
		s.mu.Unlock()
	})
	s.items[key] = rec
	return true, nil
}

// CompareAndDelete implements Store.CompareAndDelete.
func (s *InMemoryStore) CompareAndDelete(ctx context.Context, key, expected string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.live(key, time.Now())
	if !ok || rec.value != expected {
		return false, nil
	}
	rec.timer.Stop()
	delete(s.items, key)
	return true, nil
}

// Get implements Store.Get.
func (s *InMemoryStore) Get(ctx context.Context, key string) (Record, bool, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, false, err
	}
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.live(key, now)
	if !ok {
		return Record{}, false, nil
	}
	return Record{Value: rec.value, TTL: rec.deadline.Sub(now)}, true, nil
}
