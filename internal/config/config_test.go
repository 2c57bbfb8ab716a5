package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("BIGQUERY_PROJECT", "my-project")
	t.Setenv("BIGQUERY_DATASET", "")
	t.Setenv("PORT", "")
	t.Setenv("EXTRACT_TIMEOUT", "")
	t.Setenv("DEFAULT_CURRENCY", "")
	t.Setenv("GCS_BUCKET", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.Dataset != "ledger" {
		t.Errorf("Dataset = %q, want ledger", cfg.Dataset)
	}
	if cfg.DefaultCurrency != "USD" {
		t.Errorf("DefaultCurrency = %q, want USD", cfg.DefaultCurrency)
	}
	if cfg.ExtractTimeout != 10*time.Minute {
		t.Errorf("ExtractTimeout = %v, want 10m", cfg.ExtractTimeout)
	}
}

func TestLoad_RequiresProject(t *testing.T) {
	t.Setenv("BIGQUERY_PROJECT", "")
	if _, err := Load(); err == nil {
		t.Fatal("Load() expected error without BIGQUERY_PROJECT")
	}
}

func TestLoad_ExtractTimeout(t *testing.T) {
	t.Setenv("BIGQUERY_PROJECT", "my-project")

	t.Setenv("EXTRACT_TIMEOUT", "2m30s")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ExtractTimeout != 2*time.Minute+30*time.Second {
		t.Errorf("ExtractTimeout = %v, want 2m30s", cfg.ExtractTimeout)
	}

	for _, bad := range []string{"not-a-duration", "-5m", "0s"} {
		t.Setenv("EXTRACT_TIMEOUT", bad)
		if _, err := Load(); err == nil {
			t.Errorf("Load() with EXTRACT_TIMEOUT=%q expected error", bad)
		}
	}
}
