package preflight

import (
	"context"
	"net/http"

	"gameshelf/internal/catalog/igdb"
	"gameshelf/internal/catalog/rawg"
	"gameshelf/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// RunAll executes every readiness check for cfg: writable directories for
// data, logs, and preference storage, then one probe search per catalog.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckFileParent("Profile database", cfg.Preferences.ProfileDBPath),
		CheckFileParent("Local preferences", cfg.Preferences.LocalPath),
	}

	if a, err := igdb.New(cfg.CatalogA.ProxyURL, cfg.CatalogA.Endpoint,
		igdb.WithHTTPClient(&http.Client{Timeout: cfg.CatalogA.Timeout()}),
	); err != nil {
		results = append(results, Result{Name: "Catalog A", Detail: err.Error()})
	} else {
		results = append(results, CheckCatalog(ctx, "Catalog A", a, cfg.CatalogA.Timeout()))
	}

	if b, err := rawg.New(cfg.CatalogB.APIKey, cfg.CatalogB.BaseURL,
		rawg.WithHTTPClient(&http.Client{Timeout: cfg.CatalogB.Timeout()}),
	); err != nil {
		results = append(results, Result{Name: "Catalog B", Detail: err.Error()})
	} else {
		results = append(results, CheckCatalog(ctx, "Catalog B", b, cfg.CatalogB.Timeout()))
	}
	return results
}

// Passed reports whether every result passed.
func Passed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}
