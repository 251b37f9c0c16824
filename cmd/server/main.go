// Package main provides the long-running price service:
// - Pipeline (scheduled): ingestion → aggregation → retention
// - Reporting (scheduled, optional): summary CSV/XLSX/Markdown exports
// - HTTP: /health, /status, /metrics, POST /run
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"skyblock-price-lab/internal/api"
	"skyblock-price-lab/internal/app"
	"skyblock-price-lab/internal/config"
	"skyblock-price-lab/internal/orchestrator"
	"skyblock-price-lab/internal/reporting"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Flags default to configured values
	addr := flag.String("addr", cfg.ServerAddr, "HTTP listen address")
	interval := flag.Duration("interval", cfg.PollInterval, "Pipeline run interval")
	outputDir := flag.String("output-dir", "", "Directory for scheduled report exports (empty to disable)")
	reportInterval := flag.Duration("report-interval", 6*time.Hour, "Report export interval")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of the configured backend")
	verbose := flag.Bool("verbose", false, "Verbose pipeline output")
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	if *useMemory {
		cfg.Backend = config.BackendMemory
		cfg.ClickHouseDSN = ""
	}
	if *interval <= 0 {
		logger.Fatal("--interval must be positive")
	}
	gin.SetMode(gin.ReleaseMode)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stores, err := app.OpenStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to open stores: %v", err)
	}
	defer stores.Close()

	orch := app.NewOrchestrator(cfg, stores, app.PipelineOptions{
		Source:  app.NewAuctionSource(cfg),
		Logger:  log.New(os.Stdout, "[pipeline] ", log.LstdFlags|log.Lshortfile),
		Verbose: *verbose,
	})
	handler := api.NewHandler(ctx, orch, logger)

	srv := &http.Server{
		Addr:              *addr,
		Handler:           api.NewRouter(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Printf("Starting HTTP server on %s", *addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf("HTTP server error: %v", err)
			cancel()
		}
	}()

	go runPipelineScheduler(ctx, logger, handler, *interval)
	if *outputDir != "" {
		go runReportScheduler(ctx, logger, reporting.NewGenerator(stores.Summaries), *outputDir, *reportInterval)
	}

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
	case <-ctx.Done():
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("HTTP shutdown error: %v", err)
	}

	// Wait for the in-flight run to commit, bounded by a second signal.
	done := make(chan struct{})
	go func() {
		handler.Wait()
		close(done)
	}()
	select {
	case <-done:
	case sig := <-sigCh:
		logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
		os.Exit(1)
	case <-shutdownCtx.Done():
		logger.Println("Graceful shutdown timed out after 30s, forcing exit")
		os.Exit(1)
	}

	logger.Println("Shutdown complete")
}

// runPipelineScheduler triggers a full run now and on every tick. A tick that
// finds a run in progress is skipped.
func runPipelineScheduler(ctx context.Context, logger *log.Logger, h *api.Handler, interval time.Duration) {
	logger.Printf("Starting pipeline scheduler (interval: %v)...", interval)

	h.Trigger(orchestrator.StageAll)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !h.Trigger(orchestrator.StageAll) {
				logger.Println("Pipeline already running, skipping...")
			}
		}
	}
}

// runReportScheduler exports reports on schedule.
func runReportScheduler(ctx context.Context, logger *log.Logger, g *reporting.Generator, dir string, interval time.Duration) {
	logger.Printf("Starting report scheduler (interval: %v, dir: %s)...", interval, dir)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			paths, err := reporting.Export(ctx, g, dir)
			if err != nil {
				logger.Printf("Report export failed: %v", err)
				continue
			}
			logger.Printf("Report exported: %v", paths)
		}
	}
}
