package app

import (
	"log"
	"time"

	"skyblock-price-lab/internal/auctions"
	"skyblock-price-lab/internal/config"
	"skyblock-price-lab/internal/ingestion"
	"skyblock-price-lab/internal/itemdecode"
	"skyblock-price-lab/internal/metrics"
	"skyblock-price-lab/internal/orchestrator"
	"skyblock-price-lab/internal/retention"
	"skyblock-price-lab/internal/variant"
)

// NewAuctionSource creates the HTTP auction client from configuration.
func NewAuctionSource(cfg *config.Config) *auctions.Client {
	opts := []auctions.ClientOption{
		auctions.WithTimeout(cfg.RequestTimeout),
		auctions.WithMaxRetries(cfg.MaxRetries),
		auctions.WithRetryDelay(time.Second, 10*time.Second),
	}
	if cfg.APIKey != "" {
		opts = append(opts, auctions.WithAPIKey(cfg.APIKey))
	}
	return auctions.NewClient(cfg.AuctionsURL, opts...)
}

// PipelineOptions configures NewOrchestrator.
type PipelineOptions struct {
	Source  ingestion.AuctionSource
	Decoder ingestion.ItemDecoder // defaults to itemdecode.Decoder
	Clock   func() int64          // Unix ms; defaults to time.Now
	Logger  *log.Logger
	Verbose bool
}

// NewOrchestrator builds the three stages over stores and returns the
// orchestrator that sequences them under the run lock.
func NewOrchestrator(cfg *config.Config, stores *Stores, opts PipelineOptions) *orchestrator.Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	decoder := opts.Decoder
	if decoder == nil {
		decoder = itemdecode.NewDecoder()
	}

	ingest := ingestion.NewStage(ingestion.StageOptions{
		Source:    opts.Source,
		Decoder:   decoder,
		Keys:      variant.NewGenerator(cfg.Variant, logger),
		RawStore:  stores.Raw,
		PageState: stores.PageState,
		PageDelay: cfg.PageDelay,
		Logger:    logger,
		Clock:     opts.Clock,
	})

	aggregate := metrics.NewAggregator(stores.Raw, stores.Summaries, stores.Items, metrics.AggregatorOptions{
		Config: cfg.Aggregation,
		Logger: logger,
		Clock:  opts.Clock,
	})

	retain := retention.NewStage(stores.Raw, retention.Options{
		Retention: cfg.Retention,
		Logger:    logger,
		Clock:     opts.Clock,
	})

	return orchestrator.New(orchestrator.Options{
		Ingestion:   ingest,
		Aggregation: aggregate,
		Retention:   retain,
		Lock:        stores.Lock,
		Logger:      logger,
		Verbose:     opts.Verbose,
	})
}

// NewBundleService creates the bundle resolver over the summary store.
func NewBundleService(cfg *config.Config, stores *Stores) *variant.BundleService {
	return variant.NewBundleService(cfg.BundleAllowList, stores.Summaries)
}
