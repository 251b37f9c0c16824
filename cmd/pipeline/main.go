// Package main runs the auction price pipeline once and exits.
// Stages: ingestion → aggregation → retention
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"skyblock-price-lab/internal/app"
	"skyblock-price-lab/internal/config"
	"skyblock-price-lab/internal/orchestrator"
	"skyblock-price-lab/internal/storage"
)

func main() {
	stageFlag := flag.String("stage", string(orchestrator.StageAll), "Stage to run: all, ingest, aggregate, retain")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of the configured backend")
	verbose := flag.Bool("verbose", false, "Verbose output")
	flag.Parse()

	logger := log.New(os.Stdout, "[pipeline] ", log.LstdFlags|log.Lshortfile)

	stage, err := orchestrator.ParseStage(*stageFlag)
	if err != nil {
		logger.Fatalf("Invalid --stage: %v", err)
	}

	if *useMemory {
		os.Setenv("STORAGE_BACKEND", config.BackendMemory)
	}
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	logger.Printf("Backend: %s | auctions: %s | api key: %s", cfg.Backend, cfg.AuctionsURL, cfg.MaskedAPIKey())

	// Create context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, cancelling run...", sig)
		cancel()

		// Second signal exits without waiting for the commit.
		<-sigCh
		logger.Println("Received second signal, forcing exit")
		os.Exit(1)
	}()

	stores, err := app.OpenStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to open stores: %v", err)
	}
	defer stores.Close()

	orch := app.NewOrchestrator(cfg, stores, app.PipelineOptions{
		Source:  app.NewAuctionSource(cfg),
		Logger:  logger,
		Verbose: *verbose,
	})

	result, err := orch.RunStage(ctx, stage)
	if result != nil {
		printResult(logger, result)
	}
	switch {
	case err == nil:
	case errors.Is(err, storage.ErrLockHeld):
		logger.Println("Another run holds the pipeline lock, nothing to do")
	case errors.Is(err, context.Canceled):
		logger.Println("Run cancelled")
		stores.Close()
		os.Exit(130)
	default:
		stores.Close()
		logger.Fatalf("Run failed: %v", err)
	}
}

func printResult(logger *log.Logger, r *orchestrator.RunResult) {
	logger.Printf("Stage %s finished in %s", r.Stage, r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
	if in := r.Ingestion; in != nil {
		logger.Printf("  Pages: %d fetched, %d unchanged, %d failed of %d", in.PagesFetched, in.PagesSkipped, in.PagesFailed, in.TotalPages)
		logger.Printf("  Listings: %d seen, %d staged, %d new", in.Listings, in.Staged, in.Inserted)
		for reason, n := range in.Skipped {
			logger.Printf("    skipped %s: %d", reason, n)
		}
	}
	if agg := r.Aggregation; agg != nil {
		logger.Printf("  Summaries: %d candidates, %d updated, %d failed, %d new items",
			agg.Candidates, agg.Updated, agg.Failed, agg.ItemsCreated)
	}
	if r.Stage != orchestrator.StageIngest {
		logger.Printf("  Pruned: %d observations", r.Pruned)
	}
	for _, e := range r.Errors {
		logger.Printf("  Error: %s", e)
	}
}
