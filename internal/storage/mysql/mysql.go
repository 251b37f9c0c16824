// Package mysql implements the storage interfaces on MySQL through gorm.
package mysql

import (
	"context"
	"errors"
	"fmt"
	"time"

	mysqldriver "gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"skyblock-price-lab/internal/observability"
)

// insertBatchSize bounds rows per INSERT statement. MySQL rejects statements
// with more than 65535 placeholders.
const insertBatchSize = 1000

// DB wraps gorm.DB for dependency injection.
type DB struct {
	*gorm.DB
}

// Open connects to MySQL and configures the connection pool.
func Open(ctx context.Context, dsn string) (*DB, error) {
	db, err := gorm.Open(mysqldriver.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to mysql: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}

	return &DB{DB: db}, nil
}

// Migrate creates or updates every table used by the stores.
func (d *DB) Migrate(ctx context.Context) error {
	err := d.WithContext(ctx).AutoMigrate(
		&itemRow{},
		&rawObservationRow{},
		&summaryRow{},
		&pageStateRow{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// Close closes the underlying connection pool.
func (d *DB) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func isNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// observe records query latency and the final error under the mysql label.
func observe(operation string, start time.Time, err *error) {
	observability.RecordDBQuery("mysql", operation, time.Since(start).Seconds(), *err)
}
