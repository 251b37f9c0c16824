package memory

import (
	"context"
	"sort"
	"sync"

	"skyblock-price-lab/internal/domain"
	"skyblock-price-lab/internal/storage"
)

// SummaryStore is an in-memory implementation of storage.SummaryStore.
type SummaryStore struct {
	mu   sync.RWMutex
	data map[domain.VariantRef]*domain.VariantSummary
}

// NewSummaryStore creates a new in-memory summary store.
func NewSummaryStore() *SummaryStore {
	return &SummaryStore{
		data: make(map[domain.VariantRef]*domain.VariantSummary),
	}
}

// UpsertBulk inserts or replaces summaries atomically.
func (s *SummaryStore) UpsertBulk(_ context.Context, summaries []*domain.VariantSummary) error {
	for _, sum := range summaries {
		if sum == nil || sum.ItemID == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sum := range summaries {
		c := copySummary(sum)
		s.data[sum.Ref()] = c
	}
	return nil
}

// Get retrieves one summary.
func (s *SummaryStore) Get(_ context.Context, ref domain.VariantRef) (*domain.VariantSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sum, ok := s.data[ref]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copySummary(sum), nil
}

// GetAll retrieves all summaries ordered by item then variant.
func (s *SummaryStore) GetAll(_ context.Context) ([]*domain.VariantSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.VariantSummary, 0, len(s.data))
	for _, sum := range s.data {
		result = append(result, copySummary(sum))
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].ItemID != result[j].ItemID {
			return result[i].ItemID < result[j].ItemID
		}
		return result[i].VariantKey < result[j].VariantKey
	})
	return result, nil
}

// ListVariantKeys returns the sorted variant keys summarized for an item.
func (s *SummaryStore) ListVariantKeys(_ context.Context, itemID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []string
	for ref := range s.data {
		if ref.ItemID == itemID {
			keys = append(keys, ref.VariantKey)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func copySummary(s *domain.VariantSummary) *domain.VariantSummary {
	c := *s
	c.RecentLowestPrice = copyPtr(s.RecentLowestPrice)
	c.RecentObservedAt = copyPtr(s.RecentObservedAt)
	c.ThreeDayLowestPrice = copyPtr(s.ThreeDayLowestPrice)
	c.SevenDayLowestPrice = copyPtr(s.SevenDayLowestPrice)
	return &c
}

func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

var _ storage.SummaryStore = (*SummaryStore)(nil)
