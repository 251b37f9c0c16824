package storage

import "context"

// PageStateStore persists the last seen freshness timestamp per source page.
// Ingestion skips a page whose reported freshness has not advanced.
type PageStateStore interface {
	// GetAll returns freshness (Unix ms) keyed by page number.
	GetAll(ctx context.Context) (map[int]int64, error)

	// SetBulk records freshness for the given pages in one write.
	SetBulk(ctx context.Context, freshness map[int]int64) error
}

// RunLock guarantees at most one concurrent pipeline run per name.
type RunLock interface {
	// TryAcquire takes the named lock without waiting. Returns ErrLockHeld if
	// another holder has it. The returned release func must be called once.
	TryAcquire(ctx context.Context, name string) (release func(), err error)
}
