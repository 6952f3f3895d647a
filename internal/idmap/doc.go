// Package idmap translates native IDs between the two catalogs.
//
// Resolution order: the manual override table (authoritative), then the
// mapping cache (24h TTL), then a fuzzy search of the target catalog using the
// source record's name. Candidates are scored 70% name similarity, 20%
// release-year proximity, 10% platform overlap, and the best is accepted only
// when its score exceeds 0.7. Unmatched IDs are not cached.
package idmap
