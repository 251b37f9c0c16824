package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"

	"skyblock-price-lab/internal/domain"
	"skyblock-price-lab/internal/storage"
)

// RawObservationStore implements storage.RawObservationStore using ClickHouse.
// Rows carry no surrogate id; ID is always 0 when read back.
type RawObservationStore struct {
	conn *Conn
}

// NewRawObservationStore creates a new RawObservationStore.
func NewRawObservationStore(conn *Conn) *RawObservationStore {
	return &RawObservationStore{conn: conn}
}

// Compile-time interface check.
var _ storage.RawObservationStore = (*RawObservationStore)(nil)

// InsertBulk appends observations whose auction id is not stored yet in one
// batch. ReplacingMergeTree collapses any row that races past the pre-check.
func (s *RawObservationStore) InsertBulk(ctx context.Context, obs []*domain.RawPriceObservation) (inserted int, err error) {
	if len(obs) == 0 {
		return 0, nil
	}
	defer observe("raw_insert_bulk", time.Now(), &err)

	ids := make([]string, 0, len(obs))
	seen := make(map[string]struct{}, len(obs))
	for _, o := range obs {
		if o == nil || o.AuctionID == "" || o.ItemID == "" {
			return 0, storage.ErrInvalidInput
		}
		if _, exists := seen[o.AuctionID]; exists {
			return 0, storage.ErrDuplicateKey
		}
		seen[o.AuctionID] = struct{}{}
		ids = append(ids, o.AuctionID)
	}

	stored, err := s.existing(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("check existing auctions: %w", err)
	}
	if len(stored) == len(obs) {
		return 0, nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO raw_price_observations (
			auction_id, item_id, variant_key, price, listed_at, ingested_at
		)
	`)
	if err != nil {
		return 0, fmt.Errorf("prepare batch: %w", err)
	}

	for _, o := range obs {
		if _, ok := stored[o.AuctionID]; ok {
			continue
		}
		if err := batch.Append(o.AuctionID, o.ItemID, o.VariantKey, o.Price, o.ListedAt, o.IngestedAt); err != nil {
			return 0, fmt.Errorf("append to batch: %w", err)
		}
		inserted++
	}

	if err := batch.Send(); err != nil {
		return 0, fmt.Errorf("send batch: %w", err)
	}

	return inserted, nil
}

// existingChunkSize bounds the ids bound into one lookup so the rendered
// query stays under the server's max_query_size (256 KiB by default).
const existingChunkSize = 4000

// existing returns the subset of ids already stored.
func (s *RawObservationStore) existing(ctx context.Context, ids []string) (map[string]struct{}, error) {
	found := make(map[string]struct{})
	for start := 0; start < len(ids); start += existingChunkSize {
		end := min(start+existingChunkSize, len(ids))
		if err := s.existingChunk(ctx, ids[start:end], found); err != nil {
			return nil, err
		}
	}
	return found, nil
}

func (s *RawObservationStore) existingChunk(ctx context.Context, ids []string, found map[string]struct{}) error {
	rows, err := s.conn.Query(ctx, `
		SELECT DISTINCT auction_id FROM raw_price_observations
		WHERE auction_id IN (?)
	`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return err
		}
		found[id] = struct{}{}
	}
	return rows.Err()
}

// ListVariantsSince returns distinct pairs listed at or after since.
func (s *RawObservationStore) ListVariantsSince(ctx context.Context, since int64) (refs []domain.VariantRef, err error) {
	defer observe("raw_list_variants", time.Now(), &err)

	rows, err := s.conn.Query(ctx, `
		SELECT DISTINCT item_id, variant_key
		FROM raw_price_observations
		WHERE listed_at >= ?
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

	rows, err := s.conn.Query(ctx, `
		SELECT auction_id, item_id, variant_key, price, listed_at, ingested_at
		FROM raw_price_observations FINAL
		WHERE item_id = ? AND variant_key = ? AND listed_at >= ?
		ORDER BY listed_at DESC, auction_id DESC
	`, ref.ItemID, ref.VariantKey, since)
	if err != nil {
		return nil, fmt.Errorf("get observations by variant: %w", err)
	}
	defer rows.Close()

	return scanObservations(rows)
}

// DeleteIngestedBefore removes observations ingested before cutoff with one
// synchronous lightweight delete.
func (s *RawObservationStore) DeleteIngestedBefore(ctx context.Context, cutoff int64) (removed int64, err error) {
	defer observe("raw_delete_ingested_before", time.Now(), &err)

	var count uint64
	err = s.conn.QueryRow(ctx, `
		SELECT count() FROM raw_price_observations FINAL WHERE ingested_at < ?
	`, cutoff).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count expired observations: %w", err)
	}
	if count == 0 {
		return 0, nil
	}

	syncCtx := clickhouse.Context(ctx, clickhouse.WithSettings(clickhouse.Settings{
		"mutations_sync": 1,
	}))
	if err := s.conn.Exec(syncCtx, `DELETE FROM raw_price_observations WHERE ingested_at < ?`, cutoff); err != nil {
		return 0, fmt.Errorf("delete raw observations: %w", err)
	}
	return int64(count), nil
}

// scanObservations scans multiple rows.
func scanObservations(rows chRows) ([]*domain.RawPriceObservation, error) {
	var obs []*domain.RawPriceObservation

	for rows.Next() {
		var o domain.RawPriceObservation
		err := rows.Scan(
			&o.AuctionID, &o.ItemID, &o.VariantKey,
			&o.Price, &o.ListedAt, &o.IngestedAt,
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
