// Package config loads, normalizes, and validates gameshelf configuration data.
//
// It supplies repository defaults (the 24h/15m/24h/5m cache TTLs, the 0.7 and
// 0.85 matching thresholds, chunk and retry policy), expands user paths, reads
// TOML files, and honours environment fallbacks such as GAMESHELF_CATALOG_B_KEY.
//
// Always obtain settings through this package so components receive sanitized
// paths and clear validation errors.
package config
