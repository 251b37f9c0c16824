// Package app wires configuration, storage backends and pipeline stages
// together for the command binaries.
package app

import (
	"context"
	"fmt"
	"log"

	"skyblock-price-lab/internal/config"
	"skyblock-price-lab/internal/storage"
	chstore "skyblock-price-lab/internal/storage/clickhouse"
	"skyblock-price-lab/internal/storage/memory"
	"skyblock-price-lab/internal/storage/migrations"
	mysqlstore "skyblock-price-lab/internal/storage/mysql"
	pgstore "skyblock-price-lab/internal/storage/postgres"
)

// Stores holds the storage implementations selected by configuration.
type Stores struct {
	Raw       storage.RawObservationStore
	Summaries storage.SummaryStore
	Items     storage.ItemStore
	PageState storage.PageStateStore
	Lock      storage.RunLock

	closers []func()
}

// Close releases every backend connection in reverse open order.
func (s *Stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

// NewMemoryStores returns in-memory stores.
func NewMemoryStores() *Stores {
	return &Stores{
		Raw:       memory.NewRawObservationStore(),
		Summaries: memory.NewSummaryStore(),
		Items:     memory.NewItemStore(),
		PageState: memory.NewPageStateStore(),
		Lock:      memory.NewRunLock(),
	}
}

// OpenStores connects to the configured backend and applies its schema.
// When a ClickHouse DSN is set, raw observations live in ClickHouse and
// everything else stays on the primary backend.
func OpenStores(ctx context.Context, cfg *config.Config, logger *log.Logger) (*Stores, error) {
	var (
		stores *Stores
		err    error
	)

	switch cfg.Backend {
	case config.BackendMemory:
		logger.Println("Using in-memory storage")
		stores = NewMemoryStores()
	case config.BackendPostgres:
		stores, err = openPostgres(ctx, cfg.PostgresDSN, logger)
	case config.BackendMySQL:
		stores, err = openMySQL(ctx, cfg.MySQLDSN, logger)
	default:
		err = fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}

	if cfg.ClickHouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickHouseDSN)
		if err != nil {
			stores.Close()
			return nil, fmt.Errorf("clickhouse migrations: %w", err)
		}
		stores.closers = append(stores.closers, func() { conn.Close() })
		stores.Raw = chstore.NewRawObservationStore(conn)
		logger.Println("Raw observations stored in ClickHouse")
	}

	return stores, nil
}

func openPostgres(ctx context.Context, dsn string, logger *log.Logger) (*Stores, error) {
	pool, err := pgstore.NewPool(ctx, dsn)
	if err != nil {
		return nil, err
	}

	applied, err := migrations.RunPostgresMigrations(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres migrations: %w", err)
	}
	if len(applied) > 0 {
		logger.Printf("Applied postgres migrations: %v", applied)
	}

	logger.Println("Connected to PostgreSQL")
	return &Stores{
		Raw:       pgstore.NewRawObservationStore(pool),
		Summaries: pgstore.NewSummaryStore(pool),
		Items:     pgstore.NewItemStore(pool),
		PageState: pgstore.NewPageStateStore(pool),
		Lock:      pgstore.NewRunLock(pool),
		closers:   []func(){pool.Close},
	}, nil
}

func openMySQL(ctx context.Context, dsn string, logger *log.Logger) (*Stores, error) {
	db, err := mysqlstore.Open(ctx, dsn)
	if err != nil {
		return nil, err
	}

	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("mysql migrations: %w", err)
	}

	logger.Println("Connected to MySQL")
	return &Stores{
		Raw:       mysqlstore.NewRawObservationStore(db),
		Summaries: mysqlstore.NewSummaryStore(db),
		Items:     mysqlstore.NewItemStore(db),
		PageState: mysqlstore.NewPageStateStore(db),
		Lock:      mysqlstore.NewRunLock(db),
		closers:   []func(){func() { db.Close() }},
	}, nil
}
