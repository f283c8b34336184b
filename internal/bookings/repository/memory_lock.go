package repository

import (
	"context"
	"sync"
	"time"
)

// MemoryLockStore is a LockStore for tests and single-process runs.
type MemoryLockStore struct {
	mu    sync.Mutex
	locks map[string]time.Time
	now   func() time.Time

	// Fail makes every call return the error, to exercise fail-open callers.
	Fail error
}

func NewMemoryLockStore() *MemoryLockStore {
	return &MemoryLockStore{locks: make(map[string]time.Time), now: time.Now}
}

func (s *MemoryLockStore) Acquire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Fail != nil {
		return false, s.Fail
	}
	now := s.now()
	if expires, held := s.locks[key]; held && now.Before(expires) {
		return false, nil
	}
	s.locks[key] = now.Add(ttl)
	return true, nil
}

func (s *MemoryLockStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Fail != nil {
		return s.Fail
	}
	delete(s.locks, key)
	return nil
}

func (s *MemoryLockStore) Held(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	expires, held := s.locks[key]
	return held && s.now().Before(expires)
}
