package memory

import (
	"context"
	"sync"

	"skyblock-price-lab/internal/domain"
	"skyblock-price-lab/internal/storage"
)

// ItemStore is an in-memory implementation of storage.ItemStore.
type ItemStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Item
}

// NewItemStore creates a new in-memory item store.
func NewItemStore() *ItemStore {
	return &ItemStore{
		data: make(map[string]*domain.Item),
	}
}

// EnsureItem creates the item if missing.
func (s *ItemStore) EnsureItem(_ context.Context, item *domain.Item) (bool, error) {
	if item == nil || item.ItemID == "" {
		return false, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[item.ItemID]; exists {
		return false, nil
	}
	c := *item
	s.data[item.ItemID] = &c
	return true, nil
}

// GetByID retrieves an item.
func (s *ItemStore) GetByID(_ context.Context, itemID string) (*domain.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.data[itemID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	c := *item
	return &c, nil
}

var _ storage.ItemStore = (*ItemStore)(nil)
