package metrics

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"skyblock-price-lab/internal/domain"
	"skyblock-price-lab/internal/observability"
	"skyblock-price-lab/internal/storage"
)

// ErrInvalidConfig is returned when window settings are inconsistent.
var ErrInvalidConfig = errors.New("invalid aggregation config")

// Config holds the statistic windows.
type Config struct {
	RecentWindow     time.Duration
	ThreeDayWindow   time.Duration
	SevenDayWindow   time.Duration
	MinRecentVolume  int           // below this, recent falls back to the newest samples
	FallbackLookback time.Duration // how far back the recent fallback may reach
	FallbackSamples  int           // newest samples used by the recent fallback
	MaxLookback      time.Duration // candidate window; must cover every statistic window
}

// DefaultConfig returns the default windows.
func DefaultConfig() Config {
	return Config{
		RecentWindow:     6 * time.Hour,
		ThreeDayWindow:   72 * time.Hour,
		SevenDayWindow:   168 * time.Hour,
		MinRecentVolume:  3,
		FallbackLookback: 14 * 24 * time.Hour,
		FallbackSamples:  10,
		MaxLookback:      168 * time.Hour,
	}
}

// Validate checks window consistency.
func (c Config) Validate() error {
	if c.RecentWindow <= 0 || c.ThreeDayWindow <= 0 || c.SevenDayWindow <= 0 {
		return fmt.Errorf("%w: windows must be positive", ErrInvalidConfig)
	}
	longest := max(c.RecentWindow, c.ThreeDayWindow, c.SevenDayWindow)
	if c.MaxLookback < longest {
		return fmt.Errorf("%w: max lookback %s shorter than longest window %s", ErrInvalidConfig, c.MaxLookback, longest)
	}
	if c.MinRecentVolume < 0 || c.FallbackSamples < 0 || c.FallbackLookback < 0 {
		return fmt.Errorf("%w: fallback settings must not be negative", ErrInvalidConfig)
	}
	return nil
}

// queryLookback is how far back one candidate's observations are loaded.
func (c Config) queryLookback() time.Duration {
	return max(c.MaxLookback, c.FallbackLookback)
}

// AggregatorOptions configures an Aggregator.
type AggregatorOptions struct {
	Config Config
	Logger *log.Logger
	Clock  func() int64 // Unix ms; defaults to time.Now
}

// AggregationResult describes one aggregation pass.
type AggregationResult struct {
	Candidates   int
	Updated      int
	Failed       int
	ItemsCreated int
	Errors       []string
	Duration     time.Duration
}

// Aggregator recomputes variant summaries from raw observations.
type Aggregator struct {
	raw       storage.RawObservationStore
	summaries storage.SummaryStore
	items     storage.ItemStore
	cfg       Config
	logger    *log.Logger
	clock     func() int64
}

// NewAggregator creates an aggregator.
func NewAggregator(raw storage.RawObservationStore, summaries storage.SummaryStore, items storage.ItemStore, opts AggregatorOptions) *Aggregator {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Clock == nil {
		opts.Clock = func() int64 { return time.Now().UnixMilli() }
	}
	return &Aggregator{
		raw:       raw,
		summaries: summaries,
		items:     items,
		cfg:       opts.Config,
		logger:    opts.Logger,
		clock:     opts.Clock,
	}
}

// Run recomputes every (item, variant) with an observation inside the max
// lookback and writes all summaries in one batch. A failing candidate is
// logged and skipped. On cancellation the summaries computed so far are
// still written and ctx.Err() is returned.
func (a *Aggregator) Run(ctx context.Context) (*AggregationResult, error) {
	start := time.Now()
	result := &AggregationResult{}

	now := a.clock()
	candidates, err := a.raw.ListVariantsSince(ctx, now-a.cfg.MaxLookback.Milliseconds())
	if err != nil {
		return result, fmt.Errorf("list candidates: %w", err)
	}
	result.Candidates = len(candidates)

	knownItems := make(map[string]struct{})
	batch := make([]*domain.VariantSummary, 0, len(candidates))

	for _, ref := range candidates {
		if ctx.Err() != nil {
			break
		}

		if _, ok := knownItems[ref.ItemID]; !ok {
			created, err := a.items.EnsureItem(ctx, &domain.Item{ItemID: ref.ItemID, CreatedAt: now})
			if err != nil {
				a.fail(result, ref, fmt.Errorf("ensure item: %w", err))
				continue
			}
			if created {
				result.ItemsCreated++
			}
			knownItems[ref.ItemID] = struct{}{}
		}

		summary, err := a.ComputeSummary(ctx, ref, now)
		if err != nil {
			a.fail(result, ref, err)
			continue
		}
		batch = append(batch, summary)
		observability.RecordCandidateAggregated()
	}

	if len(batch) > 0 {
		// Computed summaries are written even if ctx was cancelled mid-pass.
		if err := a.summaries.UpsertBulk(context.WithoutCancel(ctx), batch); err != nil {
			result.Duration = time.Since(start)
			return result, fmt.Errorf("upsert summaries: %w", err)
		}
		result.Updated = len(batch)
		observability.RecordSummariesUpserted(len(batch))
	}

	result.Duration = time.Since(start)
	a.logger.Printf("[aggregation] candidates=%d updated=%d failed=%d items_created=%d duration=%s",
		result.Candidates, result.Updated, result.Failed, result.ItemsCreated, result.Duration)

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

func (a *Aggregator) fail(result *AggregationResult, ref domain.VariantRef, err error) {
	result.Failed++
	result.Errors = append(result.Errors, fmt.Sprintf("%s/%s: %v", ref.ItemID, ref.VariantKey, err))
	a.logger.Printf("[aggregation] candidate %s/%s failed: %v", ref.ItemID, ref.VariantKey, err)
	observability.RecordCandidateFailed()
}

// ComputeSummary loads one candidate's observations and computes its summary
// as of now.
func (a *Aggregator) ComputeSummary(ctx context.Context, ref domain.VariantRef, now int64) (*domain.VariantSummary, error) {
	obs, err := a.raw.GetByVariantSince(ctx, ref, now-a.cfg.queryLookback().Milliseconds())
	if err != nil {
		return nil, fmt.Errorf("load observations: %w", err)
	}
	return Summarize(ref, obs, now, a.cfg), nil
}

// Summarize computes the windowed statistics of one (item, variant).
// obs must be ordered newest first. Observations with price <= 0 or listed
// after now are ignored.
func Summarize(ref domain.VariantRef, obs []*domain.RawPriceObservation, now int64, cfg Config) *domain.VariantSummary {
	s := &domain.VariantSummary{
		ItemID:           ref.ItemID,
		VariantKey:       ref.VariantKey,
		LastCalculatedAt: now,
	}

	recent := window(obs, now, cfg.RecentWindow, 0)
	s.RecentLowestPrice, s.RecentVolume = RepresentativeLowest(recent.prices)
	s.RecentObservedAt = recent.newest

	if s.RecentVolume < cfg.MinRecentVolume {
		fallback := window(obs, now, cfg.FallbackLookback, cfg.FallbackSamples)
		if lowest, volume := RepresentativeLowest(fallback.prices); lowest != nil {
			s.RecentLowestPrice, s.RecentVolume = lowest, volume
			s.RecentObservedAt = fallback.newest
		}
	}

	s.ThreeDayLowestPrice, s.ThreeDayVolume = RepresentativeLowest(window(obs, now, cfg.ThreeDayWindow, 0).prices)
	s.SevenDayLowestPrice, s.SevenDayVolume = RepresentativeLowest(window(obs, now, cfg.SevenDayWindow, 0).prices)

	return s
}

type windowSample struct {
	prices []float64
	newest *int64
}

// window selects prices listed in [now-d, now]. A listing stamped after now
// (source clock ahead of ours) counts as listed at now, matching the candidate
// query which has no upper bound. A positive limit keeps only the first limit
// matches of the newest-first input.
func window(obs []*domain.RawPriceObservation, now int64, d time.Duration, limit int) windowSample {
	since := now - d.Milliseconds()
	var ws windowSample
	for _, o := range obs {
		listed := min(o.ListedAt, now)
		if o.Price <= 0 || listed < since {
			continue
		}
		ws.prices = append(ws.prices, o.Price)
		if ws.newest == nil || listed > *ws.newest {
			ws.newest = &listed
		}
		if limit > 0 && len(ws.prices) >= limit {
			break
		}
	}
	return ws
}
