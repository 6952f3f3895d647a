package testsupport

import (
	"path/filepath"
	"testing"

	"gameshelf/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Retry and stagger delays are zeroed so pipelines run without sleeping.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.CatalogB.APIKey = "test"
	cfgVal.CatalogA.RequestsPerSecond = 0
	cfgVal.CatalogB.RequestsPerSecond = 0
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Resolution.OverridesPath = ""
	cfgVal.Resolution.ValidationChunkDelayMS = 0
	cfgVal.Resolution.RetryBaseMS = 0
	cfgVal.Resolution.PreloadDelayMS = 0
	cfgVal.Preferences.ProfileDBPath = filepath.Join(base, "data", "profiles.db")
	cfgVal.Preferences.LocalPath = filepath.Join(base, "data", "preferences.json")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithCatalogAProxy points catalog A at url, typically an httptest server.
func WithCatalogAProxy(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.CatalogA.ProxyURL = url
	}
}

// WithCatalogBBaseURL points catalog B at url.
func WithCatalogBBaseURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.CatalogB.BaseURL = url
	}
}

// WithOverridesFile writes body to an overrides file and configures it.
func WithOverridesFile(body string) ConfigOption {
	return func(b *configBuilder) {
		path := filepath.Join(b.baseDir, "overrides.json")
		WriteFile(b.t, path, []byte(body))
		b.cfg.Resolution.OverridesPath = path
	}
}

// BaseDir returns the temp directory backing the config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
