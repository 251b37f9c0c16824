package ingestion

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/time/rate"

	"skyblock-price-lab/internal/domain"
	"skyblock-price-lab/internal/observability"
	"skyblock-price-lab/internal/storage"
)

// Listing skip reasons.
const (
	SkipNotBin      = "not_bin"
	SkipDuplicate   = "duplicate"
	SkipDecode      = "decode"
	SkipNoID        = "no_canonical_id"
	SkipNoKey       = "no_variant_key"
	SkipNonPositive = "non_positive_price"
)

// StageOptions contains configuration for creating a Stage.
type StageOptions struct {
	Source    AuctionSource
	Decoder   ItemDecoder
	Keys      KeyGenerator
	RawStore  storage.RawObservationStore
	PageState storage.PageStateStore
	PageDelay time.Duration // minimum spacing between page fetches
	Logger    *log.Logger
	Clock     func() int64 // Unix ms; defaults to time.Now
}

// Result describes one ingestion run.
type Result struct {
	TotalPages   int
	PagesFetched int
	PagesSkipped int // freshness did not advance
	PagesFailed  int
	Listings     int
	Staged       int // observations handed to the store
	Inserted     int // observations written (new auction ids)
	Skipped      map[string]int
	Cancelled    bool
	Duration     time.Duration
}

// Stage polls the auction source and stages raw observations.
type Stage struct {
	source    AuctionSource
	decoder   ItemDecoder
	keys      KeyGenerator
	raw       storage.RawObservationStore
	pageState storage.PageStateStore
	pageDelay time.Duration
	logger    *log.Logger
	clock     func() int64
}

// NewStage creates a new ingestion stage.
func NewStage(opts StageOptions) *Stage {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	clock := opts.Clock
	if clock == nil {
		clock = func() int64 { return time.Now().UnixMilli() }
	}

	return &Stage{
		source:    opts.Source,
		decoder:   opts.Decoder,
		keys:      opts.Keys,
		raw:       opts.RawStore,
		pageState: opts.PageState,
		pageDelay: opts.PageDelay,
		logger:    logger,
		clock:     clock,
	}
}

// run holds the state of one ingestion run.
type run struct {
	now       int64
	freshness map[int]int64
	updates   map[int]int64
	seen      auctionSet
	staged    []*domain.RawPriceObservation
	result    *Result
}

// auctionSet guards first-occurrence-wins dedup within a run.
type auctionSet map[string]struct{}

// add reports whether id was not seen before and records it.
func (s auctionSet) add(id string) bool {
	if _, ok := s[id]; ok {
		return false
	}
	s[id] = struct{}{}
	return true
}

// Run fetches pages serially, skips pages whose freshness has not advanced,
// and writes all surviving observations in one batch. A failure on page 0
// aborts the run; failures on later pages are logged and skipped. On
// cancellation no new page is fetched, the staged batch is still written and
// ctx.Err() is returned.
func (s *Stage) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	result := &Result{Skipped: make(map[string]int)}

	freshness, err := s.pageState.GetAll(ctx)
	if err != nil {
		return result, fmt.Errorf("load page state: %w", err)
	}

	r := &run{
		now:       s.clock(),
		freshness: freshness,
		updates:   make(map[int]int64),
		seen:      make(auctionSet),
		result:    result,
	}

	limit := rate.Inf
	if s.pageDelay > 0 {
		limit = rate.Every(s.pageDelay)
	}
	limiter := rate.NewLimiter(limit, 1)

	first, err := s.fetch(ctx, limiter, 0)
	if err != nil {
		result.Duration = time.Since(start)
		return result, fmt.Errorf("page 0: %w", err)
	}
	result.TotalPages = first.TotalPages
	s.processPage(r, 0, first)

	for page := 1; page < first.TotalPages; page++ {
		if ctx.Err() != nil {
			break
		}

		p, err := s.fetch(ctx, limiter, page)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			result.PagesFailed++
			observability.RecordPageFailed()
			s.logger.Printf("[ingestion] page %d failed, skipping: %v", page, err)
			continue
		}
		s.processPage(r, page, p)
	}
	result.Cancelled = ctx.Err() != nil

	if err := s.commit(context.WithoutCancel(ctx), r); err != nil {
		result.Duration = time.Since(start)
		return result, err
	}

	result.Duration = time.Since(start)
	s.logger.Printf("[ingestion] pages=%d fetched=%d stale=%d failed=%d listings=%d staged=%d inserted=%d cancelled=%v duration=%s",
		result.TotalPages, result.PagesFetched, result.PagesSkipped, result.PagesFailed,
		result.Listings, result.Staged, result.Inserted, result.Cancelled, result.Duration)

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

// fetch waits for the limiter and fetches one page.
func (s *Stage) fetch(ctx context.Context, limiter *rate.Limiter, page int) (*domain.AuctionPage, error) {
	if err := limiter.Wait(ctx); err != nil {
		return nil, err
	}

	started := time.Now()
	p, err := s.source.FetchPage(ctx, page)
	observability.RecordSourceLatency(time.Since(started).Seconds())
	if err != nil {
		return nil, err
	}
	if p == nil || !p.Success {
		return nil, fmt.Errorf("%w: page %d unsuccessful", ErrSourceUnavailable, page)
	}
	return p, nil
}

// processPage stages the listings of one fetched page unless its freshness
// has not advanced since the last run.
func (s *Stage) processPage(r *run, page int, p *domain.AuctionPage) {
	if last, ok := r.freshness[page]; ok && p.LastUpdated <= last {
		r.result.PagesSkipped++
		observability.RecordPageSkipped()
		return
	}

	r.result.PagesFetched++
	observability.RecordPageFetched()

	for i := range p.Listings {
		r.result.Listings++
		if reason, ok := s.stageListing(r, &p.Listings[i]); !ok {
			r.result.Skipped[reason]++
			observability.RecordListingSkipped(reason)
		}
	}
	r.updates[page] = p.LastUpdated
}

// stageListing converts one listing into an observation. It returns the skip
// reason when the listing is dropped.
func (s *Stage) stageListing(r *run, l *domain.Listing) (string, bool) {
	if !l.Bin {
		return SkipNotBin, false
	}
	if !r.seen.add(l.UUID) {
		return SkipDuplicate, false
	}

	item, err := s.decoder.Decode(l.ItemBytes)
	if err != nil {
		s.logger.Printf("[ingestion] auction %s: %v: %v", l.UUID, ErrDecode, err)
		return SkipDecode, false
	}
	if item == nil || item.CanonicalID == "" {
		return SkipNoID, false
	}

	key := s.keys.Generate(item, l.Tier)
	if key == nil {
		return SkipNoKey, false
	}
	if l.StartingBid <= 0 {
		return SkipNonPositive, false
	}

	r.staged = append(r.staged, &domain.RawPriceObservation{
		AuctionID:  l.UUID,
		ItemID:     item.CanonicalID,
		VariantKey: *key,
		Price:      float64(l.StartingBid),
		ListedAt:   l.Start,
		IngestedAt: r.now,
	})
	r.result.Staged++
	return "", true
}

// commit writes the staged batch, then records page freshness so pages of
// a failed write are polled again.
func (s *Stage) commit(ctx context.Context, r *run) error {
	if len(r.staged) > 0 {
		inserted, err := s.raw.InsertBulk(ctx, r.staged)
		if err != nil {
			return fmt.Errorf("stage observations: %w", err)
		}
		r.result.Inserted = inserted
		observability.RecordObservationsStaged(inserted)
	}

	if len(r.updates) > 0 {
		if err := s.pageState.SetBulk(ctx, r.updates); err != nil {
			return fmt.Errorf("save page state: %w", err)
		}
	}
	return nil
}
