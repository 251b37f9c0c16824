package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"skyblock-price-lab/internal/domain"
	"skyblock-price-lab/internal/storage"
)

// SummaryStore implements storage.SummaryStore using PostgreSQL.
type SummaryStore struct {
	pool *Pool
}

// NewSummaryStore creates a new SummaryStore.
func NewSummaryStore(pool *Pool) *SummaryStore {
	return &SummaryStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SummaryStore = (*SummaryStore)(nil)

const summaryColumns = `
	item_id, variant_key,
	recent_lowest_price, recent_volume, recent_observed_at,
	three_day_lowest_price, three_day_volume,
	seven_day_lowest_price, seven_day_volume,
	last_calculated_at
`

// UpsertBulk inserts or replaces summaries in one transaction.
func (s *SummaryStore) UpsertBulk(ctx context.Context, summaries []*domain.VariantSummary) (err error) {
	if len(summaries) == 0 {
		return nil
	}
	defer observe("summary_upsert_bulk", time.Now(), &err)

	for _, sum := range summaries {
		if sum == nil || sum.ItemID == "" {
			return storage.ErrInvalidInput
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO variant_summaries (` + summaryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (item_id, variant_key) DO UPDATE
		SET recent_lowest_price = EXCLUDED.recent_lowest_price,
		    recent_volume = EXCLUDED.recent_volume,
		    recent_observed_at = EXCLUDED.recent_observed_at,
		    three_day_lowest_price = EXCLUDED.three_day_lowest_price,
		    three_day_volume = EXCLUDED.three_day_volume,
		    seven_day_lowest_price = EXCLUDED.seven_day_lowest_price,
		    seven_day_volume = EXCLUDED.seven_day_volume,
		    last_calculated_at = EXCLUDED.last_calculated_at
	`

	batch := &pgx.Batch{}
	for _, sum := range summaries {
		batch.Queue(query,
			sum.ItemID,
			sum.VariantKey,
			sum.RecentLowestPrice,
			sum.RecentVolume,
			sum.RecentObservedAt,
			sum.ThreeDayLowestPrice,
			sum.ThreeDayVolume,
			sum.SevenDayLowestPrice,
			sum.SevenDayVolume,
			sum.LastCalculatedAt,
		)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upsert summaries: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Get retrieves one summary.
func (s *SummaryStore) Get(ctx context.Context, ref domain.VariantRef) (sum *domain.VariantSummary, err error) {
	defer observe("summary_get", time.Now(), &err)

	row := s.pool.QueryRow(ctx, `
		SELECT `+summaryColumns+`
		FROM variant_summaries
		WHERE item_id = $1 AND variant_key = $2
	`, ref.ItemID, ref.VariantKey)

	sum, err = scanSummary(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get summary: %w", err)
	}
	return sum, nil
}

// GetAll retrieves all summaries ordered by item then variant.
func (s *SummaryStore) GetAll(ctx context.Context) (out []*domain.VariantSummary, err error) {
	defer observe("summary_get_all", time.Now(), &err)

	rows, err := s.pool.Query(ctx, `
		SELECT `+summaryColumns+`
		FROM variant_summaries
		ORDER BY item_id, variant_key
	`)
	if err != nil {
		return nil, fmt.Errorf("get all summaries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		sum, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("scan summary row: %w", err)
		}
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate summary rows: %w", err)
	}
	return out, nil
}

// ListVariantKeys returns the variant keys summarized for an item, sorted.
func (s *SummaryStore) ListVariantKeys(ctx context.Context, itemID string) (keys []string, err error) {
	defer observe("summary_list_keys", time.Now(), &err)

	rows, err := s.pool.Query(ctx, `
		SELECT variant_key
		FROM variant_summaries
		WHERE item_id = $1
		ORDER BY variant_key
	`, itemID)
	if err != nil {
		return nil, fmt.Errorf("list variant keys: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan variant key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// scanSummary scans one row into a VariantSummary.
func scanSummary(row pgx.Row) (*domain.VariantSummary, error) {
	var sum domain.VariantSummary
	err := row.Scan(
		&sum.ItemID,
		&sum.VariantKey,
		&sum.RecentLowestPrice,
		&sum.RecentVolume,
		&sum.RecentObservedAt,
		&sum.ThreeDayLowestPrice,
		&sum.ThreeDayVolume,
		&sum.SevenDayLowestPrice,
		&sum.SevenDayVolume,
		&sum.LastCalculatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &sum, nil
}
