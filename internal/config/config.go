// Package config handles loading and validating configuration from environment
// variables and the optional variant settings file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"skyblock-price-lab/internal/metrics"
	"skyblock-price-lab/internal/retention"
	"skyblock-price-lab/internal/variant"
)

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendMySQL    = "mysql"
)

// Config holds all configuration values for the price pipeline.
type Config struct {
	// Storage
	Backend       string
	PostgresDSN   string
	MySQLDSN      string
	ClickHouseDSN string // when set, raw observations are stored in ClickHouse

	// Auction source
	AuctionsURL    string
	APIKey         string
	PageDelay      time.Duration
	RequestTimeout time.Duration
	MaxRetries     int

	// Aggregation windows
	Aggregation metrics.Config

	// Retention
	Retention time.Duration

	// Scheduling and server
	PollInterval time.Duration
	ServerAddr   string

	// Variant settings
	VariantFile     string
	Variant         variant.Config
	BundleAllowList []string
}

// Load reads configuration from environment variables with fallback to .env file.
// Priority order: Environment variables > .env file > hardcoded defaults
func Load() (*Config, error) {
	_ = godotenv.Load()

	defaults := metrics.DefaultConfig()
	cfg := &Config{
		Backend:       getEnv("STORAGE_BACKEND", BackendPostgres),
		PostgresDSN:   getEnv("POSTGRES_DSN", ""),
		MySQLDSN:      getEnv("MYSQL_DSN", ""),
		ClickHouseDSN: getEnv("CLICKHOUSE_DSN", ""),

		AuctionsURL:    getEnv("AUCTIONS_URL", "https://api.hypixel.net"),
		APIKey:         getEnv("HYPIXEL_API_KEY", ""),
		PageDelay:      time.Duration(getEnvInt("PAGE_DELAY_MS", 500)) * time.Millisecond,
		RequestTimeout: time.Duration(getEnvInt("REQUEST_TIMEOUT_SECONDS", 30)) * time.Second,
		MaxRetries:     getEnvInt("REQUEST_MAX_RETRIES", 3),

		Aggregation: metrics.Config{
			RecentWindow:     getEnvDuration("RECENT_WINDOW_HOURS", defaults.RecentWindow, time.Hour),
			ThreeDayWindow:   getEnvDuration("THREE_DAY_WINDOW_HOURS", defaults.ThreeDayWindow, time.Hour),
			SevenDayWindow:   getEnvDuration("SEVEN_DAY_WINDOW_HOURS", defaults.SevenDayWindow, time.Hour),
			MinRecentVolume:  getEnvInt("MIN_RECENT_VOLUME", defaults.MinRecentVolume),
			FallbackLookback: getEnvDuration("FALLBACK_LOOKBACK_DAYS", defaults.FallbackLookback, 24*time.Hour),
			FallbackSamples:  getEnvInt("FALLBACK_SAMPLES", defaults.FallbackSamples),
			MaxLookback:      getEnvDuration("MAX_LOOKBACK_HOURS", defaults.MaxLookback, time.Hour),
		},

		Retention: getEnvDuration("RETENTION_DAYS", retention.DefaultRetention, 24*time.Hour),

		PollInterval: getEnvDuration("POLL_INTERVAL_SECONDS", 5*time.Minute, time.Second),
		ServerAddr:   getEnv("SERVER_ADDR", ":8080"),

		VariantFile:     getEnv("VARIANT_CONFIG", ""),
		Variant:         variant.DefaultConfig(),
		BundleAllowList: variant.DefaultBundleAllowList(),
	}

	if cfg.VariantFile != "" {
		vf, err := LoadVariantFile(cfg.VariantFile)
		if err != nil {
			return nil, err
		}
		vf.Apply(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set and valid.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required for the postgres backend")
		}
	case BackendMySQL:
		if c.MySQLDSN == "" {
			return fmt.Errorf("MYSQL_DSN is required for the mysql backend")
		}
	default:
		return fmt.Errorf("STORAGE_BACKEND must be one of memory, postgres, mysql (got %q)", c.Backend)
	}

	if c.AuctionsURL == "" {
		return fmt.Errorf("AUCTIONS_URL is required")
	}
	if c.PageDelay < 0 {
		return fmt.Errorf("PAGE_DELAY_MS must not be negative")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("REQUEST_MAX_RETRIES must not be negative")
	}
	if err := c.Aggregation.Validate(); err != nil {
		return err
	}
	if c.Retention <= 0 {
		return fmt.Errorf("RETENTION_DAYS must be positive")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL_SECONDS must be positive")
	}
	return validateVariant(c.Variant)
}

// MaskedAPIKey returns the API key with most characters hidden for logging.
func (c *Config) MaskedAPIKey() string {
	return maskSecret(c.APIKey)
}

// maskSecret hides all but the first and last 4 characters of a secret.
func maskSecret(s string) string {
	if len(s) <= 8 {
		if len(s) == 0 {
			return "(not set)"
		}
		return "****"
	}
	return s[:4] + "****" + s[len(s)-4:]
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an environment variable as an integer or returns a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration reads an integer count of unit, or returns a default.
func getEnvDuration(key string, defaultValue, unit time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return time.Duration(n) * unit
		}
	}
	return defaultValue
}
