package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"skyblock-price-lab/internal/domain"
	"skyblock-price-lab/internal/storage"
)

// RawObservationStore implements storage.RawObservationStore using PostgreSQL.
type RawObservationStore struct {
	pool *Pool
}

// NewRawObservationStore creates a new RawObservationStore.
func NewRawObservationStore(pool *Pool) *RawObservationStore {
	return &RawObservationStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RawObservationStore = (*RawObservationStore)(nil)

// InsertBulk stages observations in one transaction. Stored auction ids are
// skipped by ON CONFLICT; a repeated id within the batch fails the batch.
func (s *RawObservationStore) InsertBulk(ctx context.Context, obs []*domain.RawPriceObservation) (inserted int, err error) {
	if len(obs) == 0 {
		return 0, nil
	}
	defer observe("raw_insert_bulk", time.Now(), &err)

	seen := make(map[string]struct{}, len(obs))
	for _, o := range obs {
		if o == nil || o.AuctionID == "" || o.ItemID == "" {
			return 0, storage.ErrInvalidInput
		}
		if _, dup := seen[o.AuctionID]; dup {
			return 0, storage.ErrDuplicateKey
		}
		seen[o.AuctionID] = struct{}{}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO raw_price_observations (
			auction_id, item_id, variant_key, price, listed_at, ingested_at
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (auction_id) DO NOTHING
	`

	batch := &pgx.Batch{}
	for _, o := range obs {
		batch.Queue(query, o.AuctionID, o.ItemID, o.VariantKey, o.Price, o.ListedAt, o.IngestedAt)
	}

	results := tx.SendBatch(ctx, batch)
	for range obs {
		tag, err := results.Exec()
		if err != nil {
			results.Close()
			return 0, fmt.Errorf("insert raw observation: %w", err)
		}
		inserted += int(tag.RowsAffected())
	}
	if err := results.Close(); err != nil {
		return 0, fmt.Errorf("close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}

	return inserted, nil
}

// ListVariantsSince returns distinct pairs listed at or after since.
func (s *RawObservationStore) ListVariantsSince(ctx context.Context, since int64) (refs []domain.VariantRef, err error) {
	defer observe("raw_list_variants", time.Now(), &err)

	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT item_id, variant_key
		FROM raw_price_observations
		WHERE listed_at >= $1
		ORDER BY item_id, variant_key
	`, since)
	if err != nil {
		return nil, fmt.Errorf("list variants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ref domain.VariantRef
		if err := rows.Scan(&ref.ItemID, &ref.VariantKey); err != nil {
			return nil, fmt.Errorf("scan variant row: %w", err)
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate variant rows: %w", err)
	}

	return refs, nil
}

// GetByVariantSince returns a pair's observations listed at or after since, newest first.
func (s *RawObservationStore) GetByVariantSince(ctx context.Context, ref domain.VariantRef, since int64) (obs []*domain.RawPriceObservation, err error) {
	defer observe("raw_get_by_variant", time.Now(), &err)

	rows, err := s.pool.Query(ctx, `
		SELECT id, auction_id, item_id, variant_key, price, listed_at, ingested_at
		FROM raw_price_observations
		WHERE item_id = $1 AND variant_key = $2 AND listed_at >= $3
		ORDER BY listed_at DESC, id DESC
	`, ref.ItemID, ref.VariantKey, since)
	if err != nil {
		return nil, fmt.Errorf("get observations by variant: %w", err)
	}
	defer rows.Close()

	return scanObservations(rows)
}

// DeleteIngestedBefore removes observations ingested before cutoff in one statement.
func (s *RawObservationStore) DeleteIngestedBefore(ctx context.Context, cutoff int64) (removed int64, err error) {
	defer observe("raw_delete_ingested_before", time.Now(), &err)

	tag, err := s.pool.Exec(ctx, `
		DELETE FROM raw_price_observations WHERE ingested_at < $1
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete raw observations: %w", err)
	}
	return tag.RowsAffected(), nil
}

// scanObservations scans multiple rows into a slice of RawPriceObservation.
func scanObservations(rows pgx.Rows) ([]*domain.RawPriceObservation, error) {
	var obs []*domain.RawPriceObservation

	for rows.Next() {
		var o domain.RawPriceObservation
		err := rows.Scan(
			&o.ID,
			&o.AuctionID,
			&o.ItemID,
			&o.VariantKey,
			&o.Price,
			&o.ListedAt,
			&o.IngestedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan observation row: %w", err)
		}
		obs = append(obs, &o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate observation rows: %w", err)
	}

	return obs, nil
}
