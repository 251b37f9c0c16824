package storage

import (
	"context"

	"skyblock-price-lab/internal/domain"
)

// RawObservationStore provides access to raw_price_observations storage.
type RawObservationStore interface {
	// InsertBulk stages observations in one atomic write. Observations whose
	// auction_id is already stored are skipped; an auction_id repeated within
	// the batch fails the whole batch with ErrDuplicateKey.
	// Returns the number of rows written.
	InsertBulk(ctx context.Context, obs []*domain.RawPriceObservation) (int, error)

	// ListVariantsSince returns distinct (item, variant) pairs with at least
	// one observation listed at or after since, ordered by item then variant.
	ListVariantsSince(ctx context.Context, since int64) ([]domain.VariantRef, error)

	// GetByVariantSince returns observations of one pair listed at or after
	// since, ordered by listed_at DESC (newest first).
	GetByVariantSince(ctx context.Context, ref domain.VariantRef, since int64) ([]*domain.RawPriceObservation, error)

	// DeleteIngestedBefore removes every observation with ingested_at < cutoff
	// in one bulk delete. Returns the number of rows removed.
	DeleteIngestedBefore(ctx context.Context, cutoff int64) (int64, error)
}

// SummaryStore provides access to variant_summaries storage.
type SummaryStore interface {
	// UpsertBulk inserts or replaces summaries keyed by (item_id, variant_key)
	// in one atomic write.
	UpsertBulk(ctx context.Context, summaries []*domain.VariantSummary) error

	// Get retrieves one summary. Returns ErrNotFound if not exists.
	Get(ctx context.Context, ref domain.VariantRef) (*domain.VariantSummary, error)

	// GetAll retrieves all summaries ordered by item then variant.
	GetAll(ctx context.Context) ([]*domain.VariantSummary, error)

	// ListVariantKeys returns the variant keys summarized for an item, sorted.
	ListVariantKeys(ctx context.Context, itemID string) ([]string, error)
}

// ItemStore provides access to items storage.
type ItemStore interface {
	// EnsureItem creates the item if missing. Reports whether it was created.
	EnsureItem(ctx context.Context, item *domain.Item) (bool, error)

	// GetByID retrieves an item. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, itemID string) (*domain.Item, error)
}
