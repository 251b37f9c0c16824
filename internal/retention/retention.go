// Package retention prunes raw observations older than the retention window.
package retention

import (
	"context"
	"fmt"
	"log"
	"time"

	"skyblock-price-lab/internal/observability"
	"skyblock-price-lab/internal/storage"
)

// DefaultRetention is the default raw observation retention.
const DefaultRetention = 14 * 24 * time.Hour

// Options configures a Stage.
type Options struct {
	Retention time.Duration
	Logger    *log.Logger
	Clock     func() int64 // Unix ms; defaults to time.Now
}

// Stage deletes raw observations by ingestion time.
type Stage struct {
	raw       storage.RawObservationStore
	retention time.Duration
	logger    *log.Logger
	clock     func() int64
}

// NewStage creates a retention stage.
func NewStage(raw storage.RawObservationStore, opts Options) *Stage {
	if opts.Retention <= 0 {
		opts.Retention = DefaultRetention
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Clock == nil {
		opts.Clock = func() int64 { return time.Now().UnixMilli() }
	}
	return &Stage{
		raw:       raw,
		retention: opts.Retention,
		logger:    opts.Logger,
		clock:     opts.Clock,
	}
}

// Run deletes every observation ingested before now-retention in one bulk
// delete and returns the number removed.
func (s *Stage) Run(ctx context.Context) (int64, error) {
	cutoff := s.clock() - s.retention.Milliseconds()

	removed, err := s.raw.DeleteIngestedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete observations before %d: %w", cutoff, err)
	}

	observability.RecordObservationsPruned(removed)
	s.logger.Printf("[retention] removed %d observations ingested before %s",
		removed, time.UnixMilli(cutoff).UTC().Format(time.RFC3339))
	return removed, nil
}
