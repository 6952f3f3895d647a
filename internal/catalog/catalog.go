package catalog

import (
	"context"

	"gameshelf/internal/games"
)

// Page is one page of catalog search results.
type Page struct {
	Records []games.Record
	// Total is the catalog's reported total match count.
	Total int
}

// Catalog is the contract both upstream clients satisfy.
type Catalog interface {
	// Source identifies the catalog.
	Source() games.Source
	// Search runs a name search. page is 1-based.
	Search(ctx context.Context, query string, page, pageSize int) (Page, error)
	// Lookup fetches many IDs in one batched call. Absent IDs are omitted.
	Lookup(ctx context.Context, ids []int64) ([]games.Record, error)
	// Get fetches a single ID and returns services.ErrNotFound on absence.
	Get(ctx context.Context, id int64) (games.Record, error)
}

// BatchLimiter is implemented by catalogs that cap IDs per Lookup call.
type BatchLimiter interface {
	MaxBatch() int
}

// MaxBatch returns c's batch cap, or fallback when c does not declare one.
func MaxBatch(c Catalog, fallback int) int {
	if bl, ok := c.(BatchLimiter); ok && bl.MaxBatch() > 0 {
		return bl.MaxBatch()
	}
	return fallback
}

// Set holds one catalog per source.
type Set map[games.Source]Catalog

// NewSet indexes catalogs by source.
func NewSet(catalogs ...Catalog) Set {
	set := make(Set, len(catalogs))
	for _, c := range catalogs {
		if c != nil {
			set[c.Source()] = c
		}
	}
	return set
}
