// Package orchestrator provides pipeline orchestration tests.
package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skyblock-price-lab/internal/domain"
	"skyblock-price-lab/internal/ingestion"
	"skyblock-price-lab/internal/ingestion/stub"
	"skyblock-price-lab/internal/metrics"
	"skyblock-price-lab/internal/retention"
	"skyblock-price-lab/internal/storage"
	"skyblock-price-lab/internal/storage/memory"
	"skyblock-price-lab/internal/variant"
)

// recorder captures stage invocation order.
type recorder struct {
	calls []string
}

type fakeIngester struct {
	rec *recorder
	err error
}

func (f *fakeIngester) Run(context.Context) (*ingestion.Result, error) {
	f.rec.calls = append(f.rec.calls, "ingest")
	return &ingestion.Result{}, f.err
}

type fakeAggregator struct {
	rec    *recorder
	err    error
	cancel context.CancelFunc
}

func (f *fakeAggregator) Run(context.Context) (*metrics.AggregationResult, error) {
	f.rec.calls = append(f.rec.calls, "aggregate")
	if f.cancel != nil {
		f.cancel()
		return &metrics.AggregationResult{}, context.Canceled
	}
	return &metrics.AggregationResult{Errors: []string{"X/k: boom"}}, f.err
}

type fakeRetainer struct {
	rec *recorder
	err error
}

func (f *fakeRetainer) Run(context.Context) (int64, error) {
	f.rec.calls = append(f.rec.calls, "retain")
	return 7, f.err
}

func newFakeOrchestrator(rec *recorder, ing *fakeIngester, agg *fakeAggregator, ret *fakeRetainer, lock storage.RunLock) *Orchestrator {
	ing.rec, agg.rec, ret.rec = rec, rec, rec
	return New(Options{
		Ingestion:   ing,
		Aggregation: agg,
		Retention:   ret,
		Lock:        lock,
		Logger:      log.New(&bytes.Buffer{}, "", 0),
		Verbose:     true,
	})
}

func TestParseStage(t *testing.T) {
	for _, s := range []string{"all", "ingest", "aggregate", "retain"} {
		st, err := ParseStage(s)
		require.NoError(t, err)
		assert.Equal(t, Stage(s), st)
	}
	_, err := ParseStage("replay")
	assert.Error(t, err)
}

func TestOrchestrator_RunsStagesInOrder(t *testing.T) {
	rec := &recorder{}
	orch := newFakeOrchestrator(rec, &fakeIngester{}, &fakeAggregator{}, &fakeRetainer{}, nil)

	result, err := orch.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"ingest", "aggregate", "retain"}, rec.calls)
	assert.Equal(t, int64(7), result.Pruned)
	assert.Equal(t, []string{"X/k: boom"}, result.Errors)
	assert.Same(t, result, orch.LastRun())
}

func TestOrchestrator_SingleStages(t *testing.T) {
	cases := []struct {
		stage Stage
		want  []string
	}{
		{StageIngest, []string{"ingest"}},
		{StageAggregate, []string{"aggregate", "retain"}},
		{StageRetain, []string{"retain"}},
	}

	for _, tc := range cases {
		rec := &recorder{}
		orch := newFakeOrchestrator(rec, &fakeIngester{}, &fakeAggregator{}, &fakeRetainer{}, nil)

		_, err := orch.RunStage(context.Background(), tc.stage)
		require.NoError(t, err)
		assert.Equal(t, tc.want, rec.calls, string(tc.stage))
	}
}

func TestOrchestrator_IngestionFailureStopsRun(t *testing.T) {
	rec := &recorder{}
	orch := newFakeOrchestrator(rec, &fakeIngester{err: ingestion.ErrSourceUnavailable}, &fakeAggregator{}, &fakeRetainer{}, nil)

	_, err := orch.Run(context.Background())
	assert.ErrorIs(t, err, ingestion.ErrSourceUnavailable)
	assert.Equal(t, []string{"ingest"}, rec.calls)
}

func TestOrchestrator_RetentionRunsAfterFailedAggregation(t *testing.T) {
	rec := &recorder{}
	aggErr := errors.New("upsert summaries: deadlock")
	orch := newFakeOrchestrator(rec, &fakeIngester{}, &fakeAggregator{err: aggErr}, &fakeRetainer{}, nil)

	result, err := orch.Run(context.Background())
	assert.ErrorIs(t, err, aggErr)
	assert.Equal(t, []string{"ingest", "aggregate", "retain"}, rec.calls)
	assert.Equal(t, int64(7), result.Pruned)
}

func TestOrchestrator_CancelledAggregationSkipsRetention(t *testing.T) {
	rec := &recorder{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	orch := newFakeOrchestrator(rec, &fakeIngester{}, &fakeAggregator{cancel: cancel}, &fakeRetainer{}, nil)

	_, err := orch.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"ingest", "aggregate"}, rec.calls)
}

func TestOrchestrator_LockHeldSkipsRun(t *testing.T) {
	rec := &recorder{}
	lock := memory.NewRunLock()
	orch := newFakeOrchestrator(rec, &fakeIngester{}, &fakeAggregator{}, &fakeRetainer{}, lock)

	release, err := lock.TryAcquire(context.Background(), DefaultLockName)
	require.NoError(t, err)

	result, err := orch.Run(context.Background())
	assert.ErrorIs(t, err, storage.ErrLockHeld)
	assert.True(t, result.Skipped)
	assert.Empty(t, rec.calls)

	release()
	_, err = orch.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, rec.calls, 3)
}

func TestOrchestrator_EndToEnd(t *testing.T) {
	ctx := context.Background()
	now := int64(1_700_000_000_000)
	clock := func() int64 { return now }
	logger := log.New(&bytes.Buffer{}, "", 0)

	raw := memory.NewRawObservationStore()
	summaries := memory.NewSummaryStore()
	items := memory.NewItemStore()

	listings := make([]domain.Listing, 0, 8)
	for i, price := range []int64{10, 10, 10, 11, 12, 13, 14, 5000} {
		listings = append(listings, domain.Listing{
			UUID:        string(rune('a' + i)),
			ItemBytes:   "tiger",
			Bin:         true,
			StartingBid: price,
			Start:       now - int64(i+1)*60_000,
			Tier:        "LEGENDARY",
		})
	}
	source := stub.NewAuctionSource([]*domain.AuctionPage{{Success: true, LastUpdated: 1, Listings: listings}})
	decoder := stub.NewDecoder(map[string]*domain.DecodedItem{
		"tiger": {CanonicalID: "PET", PetInfo: &domain.PetInfo{Type: "TIGER", Level: 100}},
	})

	orch := New(Options{
		Ingestion: ingestion.NewStage(ingestion.StageOptions{
			Source:    source,
			Decoder:   decoder,
			Keys:      variant.NewGenerator(variant.DefaultConfig(), logger),
			RawStore:  raw,
			PageState: memory.NewPageStateStore(),
			Logger:    logger,
			Clock:     clock,
		}),
		Aggregation: metrics.NewAggregator(raw, summaries, items, metrics.AggregatorOptions{
			Config: metrics.DefaultConfig(),
			Logger: logger,
			Clock:  clock,
		}),
		Retention: retention.NewStage(raw, retention.Options{Logger: logger, Clock: clock}),
		Lock:      memory.NewRunLock(),
		Logger:    logger,
	})

	result, err := orch.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 8, result.Ingestion.Inserted)
	assert.Equal(t, 1, result.Aggregation.Updated)

	ref := domain.VariantRef{ItemID: "PET", VariantKey: "LEGENDARY,pet:TIGER,pet_group:LVL_100"}
	s, err := summaries.Get(ctx, ref)
	require.NoError(t, err)
	require.NotNil(t, s.RecentLowestPrice)
	assert.Equal(t, 10.0, *s.RecentLowestPrice)
	assert.Equal(t, 7, s.RecentVolume)

	_, err = items.GetByID(ctx, "PET")
	require.NoError(t, err)

	bundles := variant.NewBundleService(variant.DefaultBundleAllowList(), summaries)
	keys, err := bundles.Resolve(ctx, "PET", "bundle:pet:tiger")
	require.NoError(t, err)
	assert.Equal(t, []string{ref.VariantKey}, keys)
}
