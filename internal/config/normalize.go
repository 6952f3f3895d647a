package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeCatalogs()
	if err := c.normalizeResolution(); err != nil {
		return err
	}
	if err := c.normalizePreferences(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeCatalogs() {
	if value, ok := os.LookupEnv("GAMESHELF_CATALOG_A_PROXY"); ok && strings.TrimSpace(value) != "" {
		c.CatalogA.ProxyURL = value
	}
	c.CatalogA.ProxyURL = strings.TrimRight(strings.TrimSpace(c.CatalogA.ProxyURL), "/")
	c.CatalogA.Endpoint = strings.Trim(strings.TrimSpace(c.CatalogA.Endpoint), "/")
	if c.CatalogA.Endpoint == "" {
		c.CatalogA.Endpoint = defaultCatalogAEndpoint
	}
	c.CatalogA.ImageBaseURL = strings.TrimRight(strings.TrimSpace(c.CatalogA.ImageBaseURL), "/")
	if c.CatalogA.ImageBaseURL == "" {
		c.CatalogA.ImageBaseURL = defaultCatalogAImageBaseURL
	}
	if c.CatalogA.TimeoutSeconds <= 0 {
		c.CatalogA.TimeoutSeconds = defaultCatalogATimeout
	}
	if c.CatalogA.MaxBatch <= 0 {
		c.CatalogA.MaxBatch = defaultCatalogAMaxBatch
	}

	if c.CatalogB.APIKey == "" {
		if value, ok := os.LookupEnv("GAMESHELF_CATALOG_B_KEY"); ok {
			c.CatalogB.APIKey = strings.TrimSpace(value)
		}
	}
	c.CatalogB.BaseURL = strings.TrimRight(strings.TrimSpace(c.CatalogB.BaseURL), "/")
	if c.CatalogB.BaseURL == "" {
		c.CatalogB.BaseURL = defaultCatalogBBaseURL
	}
	if c.CatalogB.TimeoutSeconds <= 0 {
		c.CatalogB.TimeoutSeconds = defaultCatalogBTimeout
	}
	if c.CatalogB.MaxBatch <= 0 {
		c.CatalogB.MaxBatch = defaultCatalogBMaxBatch
	}
}

func (c *Config) normalizeResolution() error {
	path := strings.TrimSpace(c.Resolution.OverridesPath)
	if path == "" {
		return nil
	}
	expanded, err := expandPath(path)
	if err != nil {
		return fmt.Errorf("resolution.overrides_path: %w", err)
	}
	c.Resolution.OverridesPath = expanded
	return nil
}

func (c *Config) normalizePreferences() error {
	var err error
	if strings.TrimSpace(c.Preferences.ProfileDBPath) == "" {
		c.Preferences.ProfileDBPath = filepath.Join(c.Paths.DataDir, defaultProfileDBName)
	}
	if c.Preferences.ProfileDBPath, err = expandPath(c.Preferences.ProfileDBPath); err != nil {
		return fmt.Errorf("preferences.profile_db_path: %w", err)
	}
	if strings.TrimSpace(c.Preferences.LocalPath) == "" {
		c.Preferences.LocalPath = filepath.Join(c.Paths.DataDir, defaultLocalPrefsName)
	}
	if c.Preferences.LocalPath, err = expandPath(c.Preferences.LocalPath); err != nil {
		return fmt.Errorf("preferences.local_path: %w", err)
	}
	c.Preferences.CookieName = strings.TrimSpace(c.Preferences.CookieName)
	if c.Preferences.CookieName == "" {
		c.Preferences.CookieName = defaultCookieName
	}
	c.Preferences.ConsentCookie = strings.TrimSpace(c.Preferences.ConsentCookie)
	if c.Preferences.ConsentCookie == "" {
		c.Preferences.ConsentCookie = defaultConsentCookie
	}
	c.Preferences.DefaultSource = strings.TrimSpace(c.Preferences.DefaultSource)
	c.Preferences.DefaultStrategy = strings.TrimSpace(c.Preferences.DefaultStrategy)
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
