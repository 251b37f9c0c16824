package mysql

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"skyblock-price-lab/internal/domain"
	"skyblock-price-lab/internal/storage"
)

// SummaryStore implements storage.SummaryStore using MySQL.
type SummaryStore struct {
	db *DB
}

// NewSummaryStore creates a new SummaryStore.
func NewSummaryStore(db *DB) *SummaryStore {
	return &SummaryStore{db: db}
}

// Compile-time interface check.
var _ storage.SummaryStore = (*SummaryStore)(nil)

// UpsertBulk inserts or replaces summaries in one transaction.
func (s *SummaryStore) UpsertBulk(ctx context.Context, summaries []*domain.VariantSummary) (err error) {
	if len(summaries) == 0 {
		return nil
	}
	defer observe("summary_upsert_bulk", time.Now(), &err)

	rows := make([]summaryRow, 0, len(summaries))
	for _, sum := range summaries {
		if sum == nil || sum.ItemID == "" {
			return storage.ErrInvalidInput
		}
		rows = append(rows, summaryRowFromDomain(sum))
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "item_id"}, {Name: "variant_key"}},
			UpdateAll: true,
		}).CreateInBatches(&rows, insertBatchSize).Error
	})
	if err != nil {
		return fmt.Errorf("upsert summaries: %w", err)
	}
	return nil
}

// Get retrieves one summary.
func (s *SummaryStore) Get(ctx context.Context, ref domain.VariantRef) (sum *domain.VariantSummary, err error) {
	defer observe("summary_get", time.Now(), &err)

	var row summaryRow
	err = s.db.WithContext(ctx).
		Where("item_id = ? AND variant_key = ?", ref.ItemID, ref.VariantKey).
		Take(&row).Error
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get summary: %w", err)
	}
	return row.toDomain(), nil
}

// GetAll retrieves all summaries ordered by item then variant.
func (s *SummaryStore) GetAll(ctx context.Context) (out []*domain.VariantSummary, err error) {
	defer observe("summary_get_all", time.Now(), &err)

	var rows []summaryRow
	if err := s.db.WithContext(ctx).Order("item_id, variant_key").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("get all summaries: %w", err)
	}

	out = make([]*domain.VariantSummary, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

// ListVariantKeys returns the variant keys summarized for an item, sorted.
func (s *SummaryStore) ListVariantKeys(ctx context.Context, itemID string) (keys []string, err error) {
	defer observe("summary_list_keys", time.Now(), &err)

	err = s.db.WithContext(ctx).
		Model(&summaryRow{}).
		Where("item_id = ?", itemID).
		Order("variant_key").
		Pluck("variant_key", &keys).Error
	if err != nil {
		return nil, fmt.Errorf("list variant keys: %w", err)
	}
	return keys, nil
}
