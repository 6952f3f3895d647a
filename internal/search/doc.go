// Package search is the unified entry point for free-text game search.
//
// Strategies sourceAFirst and sourceBFirst query one catalog and fall back to
// the other wholesale when it fails. Strategies combined and parallel query
// both catalogs concurrently with half the page each, tolerate one failure,
// and merge with cross-source duplicate suppression (see MergeResults). Only
// a search where every consulted catalog failed returns an error.
//
// Healthy pages are cached for five minutes in a bounded result cache keyed
// by query, page, page size, and strategy.
package search
