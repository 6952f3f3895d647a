// Package igdb implements catalog.Catalog for catalog A, a query-language API
// reached by POSTing {endpoint, query} bodies to a same-origin proxy.
//
// Query builds the query text (fields, search, where, sort, limit, offset).
// Lookup batches up to MaxBatch IDs into a single "where id = (...)" clause.
// Records are normalized into games.Record with absolute cover URLs and UTC
// release times; ratings already sit on a 0..100 scale.
package igdb
