// Package orchestrator runs the pipeline stages.
// It coordinates: ingestion → aggregation → retention
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"skyblock-price-lab/internal/ingestion"
	"skyblock-price-lab/internal/metrics"
	"skyblock-price-lab/internal/observability"
	"skyblock-price-lab/internal/storage"
)

// Stage selects which part of the pipeline a run executes.
type Stage string

const (
	// StageAll runs ingestion, aggregation and retention.
	StageAll Stage = "all"
	// StageIngest polls the source and stages observations only.
	StageIngest Stage = "ingest"
	// StageAggregate recomputes summaries from staged observations, then prunes.
	StageAggregate Stage = "aggregate"
	// StageRetain prunes raw observations only.
	StageRetain Stage = "retain"
)

// ParseStage validates a stage name.
func ParseStage(s string) (Stage, error) {
	switch st := Stage(s); st {
	case StageAll, StageIngest, StageAggregate, StageRetain:
		return st, nil
	default:
		return "", fmt.Errorf("unknown stage %q", s)
	}
}

// DefaultLockName is the run lock key of the auction pipeline.
const DefaultLockName = "auction-price-pipeline"

// Ingester runs one ingestion pass.
type Ingester interface {
	Run(ctx context.Context) (*ingestion.Result, error)
}

// Aggregator runs one aggregation pass.
type Aggregator interface {
	Run(ctx context.Context) (*metrics.AggregationResult, error)
}

// Retainer runs one retention pass.
type Retainer interface {
	Run(ctx context.Context) (int64, error)
}

// Options for creating Orchestrator.
type Options struct {
	Ingestion   Ingester
	Aggregation Aggregator
	Retention   Retainer

	// Lock, if set, is held for the duration of every run.
	Lock     storage.RunLock
	LockName string

	Logger  *log.Logger
	Verbose bool
}

// Orchestrator coordinates pipeline execution.
type Orchestrator struct {
	ingestion   Ingester
	aggregation Aggregator
	retention   Retainer
	lock        storage.RunLock
	lockName    string
	logger      *log.Logger
	verbose     bool

	mu      sync.RWMutex
	lastRun *RunResult
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	if opts.LockName == "" {
		opts.LockName = DefaultLockName
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Orchestrator{
		ingestion:   opts.Ingestion,
		aggregation: opts.Aggregation,
		retention:   opts.Retention,
		lock:        opts.Lock,
		lockName:    opts.LockName,
		logger:      opts.Logger,
		verbose:     opts.Verbose,
	}
}

// RunResult contains results from one orchestrator run.
type RunResult struct {
	Stage       Stage
	StartedAt   time.Time
	FinishedAt  time.Time
	Skipped     bool // lock held by another run
	Ingestion   *ingestion.Result
	Aggregation *metrics.AggregationResult
	Pruned      int64
	Errors      []string
}

// Run executes the full pipeline.
func (o *Orchestrator) Run(ctx context.Context) (*RunResult, error) {
	return o.RunStage(ctx, StageAll)
}

// RunStage executes one stage selection.
// Phases for StageAll:
//  1. Ingest (an error or cancellation stops the run)
//  2. Aggregate (cancellation stops the run)
//  3. Retain (after every aggregation pass that was not cancelled)
func (o *Orchestrator) RunStage(ctx context.Context, stage Stage) (*RunResult, error) {
	result := &RunResult{Stage: stage, StartedAt: time.Now()}

	if o.lock != nil {
		release, err := o.lock.TryAcquire(ctx, o.lockName)
		if err != nil {
			if errors.Is(err, storage.ErrLockHeld) {
				result.Skipped = true
				observability.RecordRunSkipped()
				o.logger.Printf("[orchestrator] %s run skipped: lock %q held", stage, o.lockName)
			}
			result.FinishedAt = time.Now()
			return result, fmt.Errorf("acquire run lock: %w", err)
		}
		defer release()
	}

	err := o.run(ctx, stage, result)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
	}
	result.FinishedAt = time.Now()

	o.mu.Lock()
	o.lastRun = result
	o.mu.Unlock()

	o.log("%s run finished in %s (%d errors)", stage, result.FinishedAt.Sub(result.StartedAt), len(result.Errors))
	return result, err
}

func (o *Orchestrator) run(ctx context.Context, stage Stage, result *RunResult) error {
	switch stage {
	case StageIngest:
		return o.runIngestion(ctx, result)
	case StageAggregate:
		return o.runAggregationAndRetention(ctx, result)
	case StageRetain:
		return o.runRetention(ctx, result)
	case StageAll:
		if err := o.runIngestion(ctx, result); err != nil {
			return err
		}
		return o.runAggregationAndRetention(ctx, result)
	default:
		return fmt.Errorf("unknown stage %q", stage)
	}
}

// runIngestion runs phase 1.
func (o *Orchestrator) runIngestion(ctx context.Context, result *RunResult) error {
	o.log("Phase 1: Ingesting auction pages...")
	start := time.Now()

	res, err := o.ingestion.Run(ctx)
	result.Ingestion = res
	observability.RecordStageRun(string(StageIngest), status(ctx, err), time.Since(start))
	if err != nil {
		return fmt.Errorf("ingestion: %w", err)
	}

	o.log("  Staged %d observations from %d pages", res.Inserted, res.PagesFetched)
	return nil
}

// runAggregationAndRetention runs phases 2 and 3.
func (o *Orchestrator) runAggregationAndRetention(ctx context.Context, result *RunResult) error {
	o.log("Phase 2: Aggregating variant summaries...")
	start := time.Now()

	res, aggErr := o.aggregation.Run(ctx)
	result.Aggregation = res
	observability.RecordStageRun(string(StageAggregate), status(ctx, aggErr), time.Since(start))
	if aggErr != nil {
		aggErr = fmt.Errorf("aggregation: %w", aggErr)
		if ctx.Err() != nil {
			return aggErr
		}
	}
	if res != nil {
		result.Errors = append(result.Errors, res.Errors...)
		o.log("  Updated %d summaries (%d failed)", res.Updated, res.Failed)
	}

	retErr := o.runRetention(ctx, result)
	return errors.Join(aggErr, retErr)
}

// runRetention runs phase 3.
func (o *Orchestrator) runRetention(ctx context.Context, result *RunResult) error {
	o.log("Phase 3: Pruning raw observations...")
	start := time.Now()

	pruned, err := o.retention.Run(ctx)
	result.Pruned = pruned
	observability.RecordStageRun(string(StageRetain), status(ctx, err), time.Since(start))
	if err != nil {
		return fmt.Errorf("retention: %w", err)
	}
	return nil
}

// LastRun returns the most recent completed run, or nil.
func (o *Orchestrator) LastRun() *RunResult {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.lastRun
}

func status(ctx context.Context, err error) string {
	switch {
	case err == nil:
		return "success"
	case ctx.Err() != nil:
		return "cancelled"
	default:
		return "failed"
	}
}

func (o *Orchestrator) log(format string, args ...interface{}) {
	if o.verbose {
		o.logger.Printf("[orchestrator] "+format, args...)
	}
}
