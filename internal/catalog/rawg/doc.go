// Package rawg implements catalog.Catalog for catalog B, a paginated REST API
// authenticated with a "key" query parameter.
//
// Ratings arrive on a 0..5 scale and are multiplied by 20 so both catalogs
// share the 0..100 range used when ordering merged search results.
package rawg
