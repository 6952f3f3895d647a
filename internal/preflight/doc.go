// Package preflight provides readiness checks for the filesystem paths and
// upstream catalogs gameshelf depends on.
//
// The CLI "gameshelf check" command runs RunAll and prints one row per
// check. Catalog checks issue a single one-result search through the real
// clients, so a bad API key or unreachable proxy shows up before the first
// user search does.
package preflight
