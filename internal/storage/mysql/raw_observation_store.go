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

// RawObservationStore implements storage.RawObservationStore using MySQL.
type RawObservationStore struct {
	db *DB
}

// NewRawObservationStore creates a new RawObservationStore.
func NewRawObservationStore(db *DB) *RawObservationStore {
	return &RawObservationStore{db: db}
}

// Compile-time interface check.
var _ storage.RawObservationStore = (*RawObservationStore)(nil)

// InsertBulk stages observations in one transaction. Stored auction ids are
// left untouched; a repeated id within the batch fails the batch.
func (s *RawObservationStore) InsertBulk(ctx context.Context, obs []*domain.RawPriceObservation) (inserted int, err error) {
	if len(obs) == 0 {
		return 0, nil
	}
	defer observe("raw_insert_bulk", time.Now(), &err)

	rows := make([]rawObservationRow, 0, len(obs))
	seen := make(map[string]struct{}, len(obs))
	for _, o := range obs {
		if o == nil || o.AuctionID == "" || o.ItemID == "" {
			return 0, storage.ErrInvalidInput
		}
		if _, dup := seen[o.AuctionID]; dup {
			return 0, storage.ErrDuplicateKey
		}
		seen[o.AuctionID] = struct{}{}
		rows = append(rows, rawRowFromDomain(o))
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(&rows, insertBatchSize)
		if res.Error != nil {
			return res.Error
		}
		inserted = int(res.RowsAffected)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("insert raw observations: %w", err)
	}
	return inserted, nil
}

// ListVariantsSince returns distinct pairs listed at or after since.
func (s *RawObservationStore) ListVariantsSince(ctx context.Context, since int64) (refs []domain.VariantRef, err error) {
	defer observe("raw_list_variants", time.Now(), &err)

	var rows []rawObservationRow
	err = s.db.WithContext(ctx).
		Model(&rawObservationRow{}).
		Distinct("item_id", "variant_key").
		Where("listed_at >= ?", since).
		Order("item_id, variant_key").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list variants: %w", err)
	}

	refs = make([]domain.VariantRef, 0, len(rows))
	for _, r := range rows {
		refs = append(refs, domain.VariantRef{ItemID: r.ItemID, VariantKey: r.VariantKey})
	}
	return refs, nil
}

// GetByVariantSince returns a pair's observations listed at or after since, newest first.
func (s *RawObservationStore) GetByVariantSince(ctx context.Context, ref domain.VariantRef, since int64) (obs []*domain.RawPriceObservation, err error) {
	defer observe("raw_get_by_variant", time.Now(), &err)

	var rows []rawObservationRow
	err = s.db.WithContext(ctx).
		Where("item_id = ? AND variant_key = ? AND listed_at >= ?", ref.ItemID, ref.VariantKey, since).
		Order("listed_at DESC, id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("get observations by variant: %w", err)
	}

	obs = make([]*domain.RawPriceObservation, 0, len(rows))
	for _, r := range rows {
		obs = append(obs, r.toDomain())
	}
	return obs, nil
}

// DeleteIngestedBefore removes observations ingested before cutoff in one statement.
func (s *RawObservationStore) DeleteIngestedBefore(ctx context.Context, cutoff int64) (removed int64, err error) {
	defer observe("raw_delete_ingested_before", time.Now(), &err)

	res := s.db.WithContext(ctx).Where("ingested_at < ?", cutoff).Delete(&rawObservationRow{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete raw observations: %w", res.Error)
	}
	return res.RowsAffected, nil
}
