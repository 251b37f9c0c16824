package memory

import (
	"context"
	"sync"

	"skyblock-price-lab/internal/storage"
)

// PageStateStore is an in-memory implementation of storage.PageStateStore.
// State lives for the lifetime of the process.
type PageStateStore struct {
	mu        sync.RWMutex
	freshness map[int]int64
}

// NewPageStateStore creates a new in-memory page state store.
func NewPageStateStore() *PageStateStore {
	return &PageStateStore{
		freshness: make(map[int]int64),
	}
}

// GetAll returns a copy of the freshness map.
func (s *PageStateStore) GetAll(_ context.Context) (map[int]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[int]int64, len(s.freshness))
	for page, ts := range s.freshness {
		out[page] = ts
	}
	return out, nil
}

// SetBulk records freshness for the given pages.
func (s *PageStateStore) SetBulk(_ context.Context, freshness map[int]int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for page, ts := range freshness {
		if page < 0 {
			return storage.ErrInvalidInput
		}
		s.freshness[page] = ts
	}
	return nil
}

var _ storage.PageStateStore = (*PageStateStore)(nil)

// RunLock is an in-process implementation of storage.RunLock.
type RunLock struct {
	mu   sync.Mutex
	held map[string]bool
}

// NewRunLock creates a new in-process run lock.
func NewRunLock() *RunLock {
	return &RunLock{held: make(map[string]bool)}
}

// TryAcquire takes the named lock or returns storage.ErrLockHeld.
func (l *RunLock) TryAcquire(_ context.Context, name string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held[name] {
		return nil, storage.ErrLockHeld
	}
	l.held[name] = true

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, name)
			l.mu.Unlock()
		})
	}, nil
}

var _ storage.RunLock = (*RunLock)(nil)
