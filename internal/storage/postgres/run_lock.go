package postgres

import (
	"context"
	"fmt"
	"sync"
	"time"

	"skyblock-price-lab/internal/storage"
)

// RunLock implements storage.RunLock with session-level advisory locks.
// The lock lives on a dedicated pooled connection until released, so it is
// also dropped if the process dies.
type RunLock struct {
	pool *Pool
}

// NewRunLock creates a new RunLock.
func NewRunLock(pool *Pool) *RunLock {
	return &RunLock{pool: pool}
}

// Compile-time interface check.
var _ storage.RunLock = (*RunLock)(nil)

// TryAcquire takes the named advisory lock without waiting.
func (l *RunLock) TryAcquire(ctx context.Context, name string) (func(), error) {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	var locked bool
	err = conn.QueryRow(ctx, `SELECT pg_try_advisory_lock(hashtext($1))`, name).Scan(&locked)
	if err != nil {
		conn.Release()
		return nil, fmt.Errorf("try advisory lock: %w", err)
	}
	if !locked {
		conn.Release()
		return nil, storage.ErrLockHeld
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if _, err := conn.Exec(unlockCtx, `SELECT pg_advisory_unlock(hashtext($1))`, name); err != nil {
				// A connection that may still hold the lock must not go back to the pool.
				conn.Conn().Close(unlockCtx)
			}
			conn.Release()
		})
	}, nil
}
