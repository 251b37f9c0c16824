package mysql

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm/clause"

	"skyblock-price-lab/internal/storage"
)

// PageStateStore implements storage.PageStateStore using MySQL.
type PageStateStore struct {
	db *DB
}

// NewPageStateStore creates a new PageStateStore.
func NewPageStateStore(db *DB) *PageStateStore {
	return &PageStateStore{db: db}
}

// Compile-time interface check.
var _ storage.PageStateStore = (*PageStateStore)(nil)

// GetAll returns freshness keyed by page number.
func (s *PageStateStore) GetAll(ctx context.Context) (state map[int]int64, err error) {
	defer observe("page_state_get_all", time.Now(), &err)

	var rows []pageStateRow
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("get page state: %w", err)
	}

	state = make(map[int]int64, len(rows))
	for _, r := range rows {
		state[r.Page] = r.LastUpdated
	}
	return state, nil
}

// SetBulk upserts freshness for the given pages in one statement.
func (s *PageStateStore) SetBulk(ctx context.Context, freshness map[int]int64) (err error) {
	if len(freshness) == 0 {
		return nil
	}
	defer observe("page_state_set_bulk", time.Now(), &err)

	rows := make([]pageStateRow, 0, len(freshness))
	for page, ts := range freshness {
		if page < 0 {
			return storage.ErrInvalidInput
		}
		rows = append(rows, pageStateRow{Page: page, LastUpdated: ts})
	}

	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "page"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_updated", "updated_at"}),
	}).Create(&rows).Error
	if err != nil {
		return fmt.Errorf("set page state: %w", err)
	}
	return nil
}

// RunLock implements storage.RunLock with MySQL named locks. Each held lock
// pins one connection until released.
type RunLock struct {
	db *DB
}

// NewRunLock creates a new RunLock.
func NewRunLock(db *DB) *RunLock {
	return &RunLock{db: db}
}

// Compile-time interface check.
var _ storage.RunLock = (*RunLock)(nil)

// TryAcquire takes the named lock without waiting.
func (l *RunLock) TryAcquire(ctx context.Context, name string) (func(), error) {
	sqlDB, err := l.db.DB.DB()
	if err != nil {
		return nil, fmt.Errorf("get underlying sql.DB: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	var got *int64
	if err := conn.QueryRowContext(ctx, `SELECT GET_LOCK(?, 0)`, name).Scan(&got); err != nil {
		conn.Close()
		return nil, fmt.Errorf("get lock: %w", err)
	}
	if got == nil || *got != 1 {
		conn.Close()
		return nil, storage.ErrLockHeld
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_, _ = conn.ExecContext(unlockCtx, `SELECT RELEASE_LOCK(?)`, name)
			conn.Close()
		})
	}, nil
}
