package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"gameshelf/internal/fileutil"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
	APIBind string `toml:"api_bind"`
}

// CatalogA configures the query-language catalog reached through the
// same-origin proxy endpoint.
type CatalogA struct {
	ProxyURL          string  `toml:"proxy_url"`
	Endpoint          string  `toml:"endpoint"`
	ImageBaseURL      string  `toml:"image_base_url"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	Burst             int     `toml:"burst"`
	TimeoutSeconds    int     `toml:"timeout_seconds"`
	MaxBatch          int     `toml:"max_batch"`
}

// CatalogB configures the REST catalog.
type CatalogB struct {
	BaseURL           string  `toml:"base_url"`
	APIKey            string  `toml:"api_key"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	Burst             int     `toml:"burst"`
	TimeoutSeconds    int     `toml:"timeout_seconds"`
	MaxBatch          int     `toml:"max_batch"`
}

// Breaker configures the per-catalog circuit breaker.
type Breaker struct {
	FailureRatio     float64 `toml:"failure_ratio"`
	MinRequests      int     `toml:"min_requests"`
	IntervalSeconds  int     `toml:"interval_seconds"`
	OpenSeconds      int     `toml:"open_seconds"`
	HalfOpenRequests int     `toml:"half_open_requests"`
}

// Cache configures the four independent resolution caches.
type Cache struct {
	MappingTTLHours      int `toml:"mapping_ttl_hours"`
	BulkTTLMinutes       int `toml:"bulk_ttl_minutes"`
	ValidationTTLHours   int `toml:"validation_ttl_hours"`
	SearchTTLMinutes     int `toml:"search_ttl_minutes"`
	SearchMaxEntries     int `toml:"search_max_entries"`
	SweepIntervalMinutes int `toml:"sweep_interval_minutes"`
}

// Resolution contains the matching thresholds and throughput limits.
type Resolution struct {
	// MappingThreshold is the weighted score a candidate must exceed to be
	// accepted as a cross-catalog mapping. Default: 0.7
	MappingThreshold float64 `toml:"mapping_threshold"`
	// DuplicateThreshold is the name similarity above which a second-source
	// search result is dropped as a duplicate. Default: 0.85
	DuplicateThreshold     float64 `toml:"duplicate_threshold"`
	CandidateLimit         int     `toml:"candidate_limit"`
	Concurrency            int     `toml:"concurrency"`
	ValidationChunkSize    int     `toml:"validation_chunk_size"`
	ValidationChunkDelayMS int     `toml:"validation_chunk_delay_ms"`
	MaxRetries             int     `toml:"max_retries"`
	RetryBaseMS            int     `toml:"retry_base_ms"`
	PreloadBatchSize       int     `toml:"preload_batch_size"`
	PreloadDelayMS         int     `toml:"preload_delay_ms"`
	OverridesPath          string  `toml:"overrides_path"`
}

// Preferences configures the per-user search preference tiers.
type Preferences struct {
	ProfileDBPath   string `toml:"profile_db_path"`
	LocalPath       string `toml:"local_path"`
	CookieName      string `toml:"cookie_name"`
	ConsentCookie   string `toml:"consent_cookie"`
	DefaultSource   string `toml:"default_source"`
	DefaultStrategy string `toml:"default_strategy"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	ToFile bool   `toml:"to_file"`
}

// Config encapsulates all configuration values for gameshelf.
//
// Configuration sections by subsystem:
//   - Paths: data/log directories and API bind address
//   - CatalogA / CatalogB: upstream catalog endpoints, credentials, and rate limits
//   - Breaker: circuit breaker thresholds shared by both catalogs
//   - Cache: TTLs and bounds for the mapping, bulk, validation, and search caches
//   - Resolution: matching thresholds, batch sizes, retry policy, overrides file
//   - Preferences: profile database, local fallback file, cookie names, defaults
//   - Logging: log format and level
type Config struct {
	Paths       Paths       `toml:"paths"`
	CatalogA    CatalogA    `toml:"catalog_a"`
	CatalogB    CatalogB    `toml:"catalog_b"`
	Breaker     Breaker     `toml:"breaker"`
	Cache       Cache       `toml:"cache"`
	Resolution  Resolution  `toml:"resolution"`
	Preferences Preferences `toml:"preferences"`
	Logging     Logging     `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("gameshelf.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if err := fileutil.WriteFileAtomic(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Timeout returns the per-call upstream timeout for catalog A.
func (c CatalogA) Timeout() time.Duration { return seconds(c.TimeoutSeconds) }

// Timeout returns the per-call upstream timeout for catalog B.
func (c CatalogB) Timeout() time.Duration { return seconds(c.TimeoutSeconds) }

// MappingTTL is the lifetime of a resolved cross-catalog mapping.
func (c Cache) MappingTTL() time.Duration { return time.Duration(c.MappingTTLHours) * time.Hour }

// BulkTTL is the lifetime of a batched metadata fetch.
func (c Cache) BulkTTL() time.Duration { return time.Duration(c.BulkTTLMinutes) * time.Minute }

// ValidationTTL is the lifetime of a validation outcome.
func (c Cache) ValidationTTL() time.Duration {
	return time.Duration(c.ValidationTTLHours) * time.Hour
}

// SearchTTL is the lifetime of a cached search page.
func (c Cache) SearchTTL() time.Duration { return time.Duration(c.SearchTTLMinutes) * time.Minute }

// SweepInterval is how often the periodic cache sweeps run.
func (c Cache) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalMinutes) * time.Minute
}

// ChunkDelay is the pause between validation chunks.
func (r Resolution) ChunkDelay() time.Duration { return millis(r.ValidationChunkDelayMS) }

// RetryBase is the linear backoff unit for validation retries.
func (r Resolution) RetryBase() time.Duration { return millis(r.RetryBaseMS) }

// PreloadDelay is the stagger between background preload batches.
func (r Resolution) PreloadDelay() time.Duration { return millis(r.PreloadDelayMS) }

func seconds(v int) time.Duration { return time.Duration(v) * time.Second }

func millis(v int) time.Duration { return time.Duration(v) * time.Millisecond }
