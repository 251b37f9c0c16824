package memory

import (
	"context"
	"sort"
	"sync"

	"skyblock-price-lab/internal/domain"
	"skyblock-price-lab/internal/storage"
)

// RawObservationStore is an in-memory implementation of storage.RawObservationStore.
type RawObservationStore struct {
	mu     sync.RWMutex
	data   map[string]*domain.RawPriceObservation // keyed by auction_id
	nextID int64
}

// NewRawObservationStore creates a new in-memory raw observation store.
func NewRawObservationStore() *RawObservationStore {
	return &RawObservationStore{
		data: make(map[string]*domain.RawPriceObservation),
	}
}

// InsertBulk stages observations atomically, skipping stored auction ids.
func (s *RawObservationStore) InsertBulk(_ context.Context, obs []*domain.RawPriceObservation) (int, error) {
	if len(obs) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// First pass: validate and detect intra-batch duplicates
	batchKeys := make(map[string]struct{}, len(obs))
	for _, o := range obs {
		if o == nil || o.AuctionID == "" || o.ItemID == "" {
			return 0, storage.ErrInvalidInput
		}
		if _, exists := batchKeys[o.AuctionID]; exists {
			return 0, storage.ErrDuplicateKey
		}
		batchKeys[o.AuctionID] = struct{}{}
	}

	// Second pass: insert new rows
	inserted := 0
	for _, o := range obs {
		if _, exists := s.data[o.AuctionID]; exists {
			continue
		}
		s.nextID++
		c := *o
		c.ID = s.nextID
		s.data[o.AuctionID] = &c
		inserted++
	}

	return inserted, nil
}

// ListVariantsSince returns distinct pairs listed at or after since.
func (s *RawObservationStore) ListVariantsSince(_ context.Context, since int64) ([]domain.VariantRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[domain.VariantRef]struct{})
	for _, o := range s.data {
		if o.ListedAt >= since {
			seen[o.Ref()] = struct{}{}
		}
	}

	refs := make([]domain.VariantRef, 0, len(seen))
	for ref := range seen {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].ItemID != refs[j].ItemID {
			return refs[i].ItemID < refs[j].ItemID
		}
		return refs[i].VariantKey < refs[j].VariantKey
	})

	return refs, nil
}

// GetByVariantSince returns a pair's observations listed at or after since, newest first.
func (s *RawObservationStore) GetByVariantSince(_ context.Context, ref domain.VariantRef, since int64) ([]*domain.RawPriceObservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.RawPriceObservation
	for _, o := range s.data {
		if o.ItemID == ref.ItemID && o.VariantKey == ref.VariantKey && o.ListedAt >= since {
			c := *o
			result = append(result, &c)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].ListedAt != result[j].ListedAt {
			return result[i].ListedAt > result[j].ListedAt
		}
		return result[i].ID > result[j].ID
	})

	return result, nil
}

// DeleteIngestedBefore removes observations ingested before cutoff.
func (s *RawObservationStore) DeleteIngestedBefore(_ context.Context, cutoff int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for id, o := range s.data {
		if o.IngestedAt < cutoff {
			delete(s.data, id)
			removed++
		}
	}
	return removed, nil
}

// Count returns the number of stored observations.
func (s *RawObservationStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

var _ storage.RawObservationStore = (*RawObservationStore)(nil)
