package postgres

import (
	"context"
	"fmt"
	"time"

	"skyblock-price-lab/internal/domain"
	"skyblock-price-lab/internal/storage"
)

// ItemStore implements storage.ItemStore using PostgreSQL.
type ItemStore struct {
	pool *Pool
}

// NewItemStore creates a new ItemStore.
func NewItemStore(pool *Pool) *ItemStore {
	return &ItemStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ItemStore = (*ItemStore)(nil)

// EnsureItem inserts the item unless it already exists.
func (s *ItemStore) EnsureItem(ctx context.Context, item *domain.Item) (created bool, err error) {
	if item == nil || item.ItemID == "" {
		return false, storage.ErrInvalidInput
	}
	defer observe("item_ensure", time.Now(), &err)

	tag, err := s.pool.Exec(ctx, `
		INSERT INTO items (item_id, created_at)
		VALUES ($1, $2)
		ON CONFLICT (item_id) DO NOTHING
	`, item.ItemID, item.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("ensure item: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// GetByID retrieves an item.
func (s *ItemStore) GetByID(ctx context.Context, itemID string) (*domain.Item, error) {
	var item domain.Item
	err := s.pool.QueryRow(ctx, `
		SELECT item_id, created_at FROM items WHERE item_id = $1
	`, itemID).Scan(&item.ItemID, &item.CreatedAt)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get item: %w", err)
	}
	return &item, nil
}
