package mysql

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm/clause"

	"skyblock-price-lab/internal/domain"
	"skyblock-price-lab/internal/storage"
)

// ItemStore implements storage.ItemStore using MySQL.
type ItemStore struct {
	db *DB
}

// NewItemStore creates a new ItemStore.
func NewItemStore(db *DB) *ItemStore {
	return &ItemStore{db: db}
}

// Compile-time interface check.
var _ storage.ItemStore = (*ItemStore)(nil)

// EnsureItem inserts the item unless it already exists.
func (s *ItemStore) EnsureItem(ctx context.Context, item *domain.Item) (created bool, err error) {
	if item == nil || item.ItemID == "" {
		return false, storage.ErrInvalidInput
	}
	defer observe("item_ensure", time.Now(), &err)

	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&itemRow{ItemID: item.ItemID, CreatedAt: item.CreatedAt})
	if res.Error != nil {
		return false, fmt.Errorf("ensure item: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// GetByID retrieves an item.
func (s *ItemStore) GetByID(ctx context.Context, itemID string) (*domain.Item, error) {
	var row itemRow
	err := s.db.WithContext(ctx).Where("item_id = ?", itemID).Take(&row).Error
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get item: %w", err)
	}
	return &domain.Item{ItemID: row.ItemID, CreatedAt: row.CreatedAt}, nil
}
