package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"skyblock-price-lab/internal/storage"
)

// PageStateStore implements storage.PageStateStore using the
// auction_page_state table.
type PageStateStore struct {
	pool *Pool
}

// NewPageStateStore creates a new PageStateStore.
func NewPageStateStore(pool *Pool) *PageStateStore {
	return &PageStateStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PageStateStore = (*PageStateStore)(nil)

// GetAll returns freshness keyed by page number.
func (s *PageStateStore) GetAll(ctx context.Context) (state map[int]int64, err error) {
	defer observe("page_state_get_all", time.Now(), &err)

	rows, err := s.pool.Query(ctx, `SELECT page, last_updated FROM auction_page_state`)
	if err != nil {
		return nil, fmt.Errorf("get page state: %w", err)
	}
	defer rows.Close()

	state = make(map[int]int64)
	for rows.Next() {
		var (
			page int
			ts   int64
		)
		if err := rows.Scan(&page, &ts); err != nil {
			return nil, fmt.Errorf("scan page state: %w", err)
		}
		state[page] = ts
	}
	return state, rows.Err()
}

// SetBulk upserts freshness for the given pages in one transaction.
func (s *PageStateStore) SetBulk(ctx context.Context, freshness map[int]int64) (err error) {
	if len(freshness) == 0 {
		return nil
	}
	defer observe("page_state_set_bulk", time.Now(), &err)

	batch := &pgx.Batch{}
	for page, ts := range freshness {
		if page < 0 {
			return storage.ErrInvalidInput
		}
		batch.Queue(`
			INSERT INTO auction_page_state (page, last_updated, updated_at)
			VALUES ($1, $2, NOW())
			ON CONFLICT (page) DO UPDATE
			SET last_updated = EXCLUDED.last_updated,
			    updated_at = NOW()
		`, page, ts)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("set page state: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
