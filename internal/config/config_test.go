package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gameshelf/internal/config"
)

func TestLoadDefaultsWithEnvKey(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("GAMESHELF_CATALOG_B_KEY", "env-key")

	cfg, path, exists, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatalf("expected missing config file, got path %s", path)
	}
	if cfg.CatalogB.APIKey != "env-key" {
		t.Fatalf("expected api key from env, got %q", cfg.CatalogB.APIKey)
	}
	if got := cfg.Cache.MappingTTL(); got != 24*time.Hour {
		t.Fatalf("mapping ttl = %v, want 24h", got)
	}
	if got := cfg.Cache.BulkTTL(); got != 15*time.Minute {
		t.Fatalf("bulk ttl = %v, want 15m", got)
	}
	if cfg.Cache.SearchMaxEntries != 100 {
		t.Fatalf("search max entries = %d, want 100", cfg.Cache.SearchMaxEntries)
	}
	if !strings.HasSuffix(cfg.Preferences.ProfileDBPath, "profiles.db") {
		t.Fatalf("expected profile db under data dir, got %q", cfg.Preferences.ProfileDBPath)
	}
}

func TestLoadParsesFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
[paths]
data_dir = "` + filepath.ToSlash(dir) + `/data"

[catalog_b]
api_key = "file-key"
base_url = "https://example.com/api/"

[resolution]
mapping_threshold = 0.75

[logging]
format = "JSON"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected existing config at %s, got %s (exists=%v)", path, resolved, exists)
	}
	if cfg.CatalogB.BaseURL != "https://example.com/api" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.CatalogB.BaseURL)
	}
	if cfg.Resolution.MappingThreshold != 0.75 {
		t.Fatalf("expected threshold override, got %v", cfg.Resolution.MappingThreshold)
	}
	if cfg.Resolution.DuplicateThreshold != 0.85 {
		t.Fatalf("expected default duplicate threshold, got %v", cfg.Resolution.DuplicateThreshold)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected lowercased format, got %q", cfg.Logging.Format)
	}
}

func TestValidateRejectsMissingKey(t *testing.T) {
	t.Setenv("GAMESHELF_CATALOG_B_KEY", "")
	cfg := config.Default()
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "catalog_b.api_key") {
		t.Fatalf("expected api key error, got %v", err)
	}
}

func TestValidateRejectsBadThresholds(t *testing.T) {
	cfg := config.Default()
	cfg.CatalogB.APIKey = "key"
	cfg.Resolution.MappingThreshold = 1.5
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected threshold validation error")
	}

	cfg = config.Default()
	cfg.CatalogB.APIKey = "key"
	cfg.Preferences.DefaultStrategy = "random"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected strategy validation error")
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("GAMESHELF_CATALOG_B_KEY", "sample-key")
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected sample file to exist")
	}
	if cfg.CatalogB.APIKey != "sample-key" {
		t.Fatalf("expected env key to fill empty sample key, got %q", cfg.CatalogB.APIKey)
	}
}
