package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateCatalogs(); err != nil {
		return err
	}
	if err := c.validateBreaker(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	if err := c.validateResolution(); err != nil {
		return err
	}
	if err := c.validatePreferences(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateCatalogs() error {
	if c.CatalogA.ProxyURL == "" {
		return errors.New("catalog_a.proxy_url must be set")
	}
	if c.CatalogB.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("catalog_b.api_key is required. Set GAMESHELF_CATALOG_B_KEY or edit %s (create with 'gameshelf config init')", defaultPath)
	}
	if c.CatalogA.RequestsPerSecond < 0 || c.CatalogB.RequestsPerSecond < 0 {
		return errors.New("catalog requests_per_second must not be negative")
	}
	return nil
}

func (c *Config) validateBreaker() error {
	if c.Breaker.FailureRatio <= 0 || c.Breaker.FailureRatio > 1 {
		return errors.New("breaker.failure_ratio must be in (0, 1]")
	}
	if c.Breaker.MinRequests < 1 {
		return errors.New("breaker.min_requests must be at least 1")
	}
	if c.Breaker.OpenSeconds < 1 {
		return errors.New("breaker.open_seconds must be at least 1")
	}
	return nil
}

func (c *Config) validateCache() error {
	switch {
	case c.Cache.MappingTTLHours <= 0:
		return errors.New("cache.mapping_ttl_hours must be positive")
	case c.Cache.BulkTTLMinutes <= 0:
		return errors.New("cache.bulk_ttl_minutes must be positive")
	case c.Cache.ValidationTTLHours <= 0:
		return errors.New("cache.validation_ttl_hours must be positive")
	case c.Cache.SearchTTLMinutes <= 0:
		return errors.New("cache.search_ttl_minutes must be positive")
	case c.Cache.SearchMaxEntries < 0:
		return errors.New("cache.search_max_entries must not be negative")
	case c.Cache.SweepIntervalMinutes <= 0:
		return errors.New("cache.sweep_interval_minutes must be positive")
	}
	return nil
}

func (c *Config) validateResolution() error {
	r := c.Resolution
	if r.MappingThreshold <= 0 || r.MappingThreshold >= 1 {
		return errors.New("resolution.mapping_threshold must be between 0 and 1")
	}
	if r.DuplicateThreshold <= 0 || r.DuplicateThreshold >= 1 {
		return errors.New("resolution.duplicate_threshold must be between 0 and 1")
	}
	if r.CandidateLimit < 1 {
		return errors.New("resolution.candidate_limit must be at least 1")
	}
	if r.Concurrency < 1 {
		return errors.New("resolution.concurrency must be at least 1")
	}
	if r.ValidationChunkSize < 1 {
		return errors.New("resolution.validation_chunk_size must be at least 1")
	}
	if r.MaxRetries < 0 {
		return errors.New("resolution.max_retries must not be negative")
	}
	if r.PreloadBatchSize < 1 {
		return errors.New("resolution.preload_batch_size must be at least 1")
	}
	return nil
}

func (c *Config) validatePreferences() error {
	switch c.Preferences.DefaultSource {
	case "", "catalogA", "catalogB":
	default:
		return fmt.Errorf("preferences.default_source: unsupported value %q", c.Preferences.DefaultSource)
	}
	switch c.Preferences.DefaultStrategy {
	case "", "sourceAFirst", "sourceBFirst", "combined", "parallel":
	default:
		return fmt.Errorf("preferences.default_strategy: unsupported value %q", c.Preferences.DefaultStrategy)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Format) {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}
