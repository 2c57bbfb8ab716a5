package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds process configuration, read once at startup from the
// environment (optionally seeded from a .env file).
type Config struct {
	// Port is the HTTP listen port for the API server.
	Port string

	// ProjectID and Dataset locate the BigQuery ledger tables.
	ProjectID string
	Dataset   string

	// Bucket is the GCS bucket for uploaded statement files. Empty
	// disables uploads.
	Bucket string

	// GeminiModel overrides the default extraction model when set.
	GeminiModel string

	// ExtractTimeout caps the wall-clock time of one remote extraction
	// session, chunked or not.
	ExtractTimeout time.Duration

	// DefaultCurrency is applied to transactions whose source carries no
	// currency column.
	DefaultCurrency string
}

const (
	defaultPort           = "8080"
	defaultDataset        = "ledger"
	defaultCurrency       = "USD"
	defaultExtractTimeout = 10 * time.Minute
)

// Load reads configuration from the environment. A .env file in the
// working directory is applied first if present; real environment
// variables win over .env values.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:            envOr("PORT", defaultPort),
		ProjectID:       os.Getenv("BIGQUERY_PROJECT"),
		Dataset:         envOr("BIGQUERY_DATASET", defaultDataset),
		Bucket:          os.Getenv("GCS_BUCKET"),
		GeminiModel:     os.Getenv("GEMINI_MODEL"),
		DefaultCurrency: envOr("DEFAULT_CURRENCY", defaultCurrency),
		ExtractTimeout:  defaultExtractTimeout,
	}

	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("config.Load: BIGQUERY_PROJECT is required")
	}

	if raw := os.Getenv("EXTRACT_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("config.Load: parse EXTRACT_TIMEOUT %q: %w", raw, err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("config.Load: EXTRACT_TIMEOUT must be positive, got %q", raw)
		}
		cfg.ExtractTimeout = d
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
