// Package catalog defines the upstream catalog contract and the resilience
// wrapper placed around every client.
//
// Subpackages igdb and rawg implement the contract for the query-language and
// REST catalogs. Both translate HTTP 404 into services.ErrNotFound and every
// other failure into services.ErrTransient; Guard adds the per-call timeout,
// rate limiting, and circuit breaking the resolution components rely on.
package catalog
