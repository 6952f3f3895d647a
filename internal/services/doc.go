// Package services defines shared utilities consumed by the resolution
// components and the HTTP/CLI surfaces.
//
// Key responsibilities:
//   - Context helpers that stamp correlation identifiers, user identifiers, and
//     operation names for logging.
//   - Structured error markers plus the Wrap helper that classify upstream
//     failures (not found, transient, invalid id, rejected) so callers can
//     decide between caching, retrying, and degrading to fallback records.
//
// Use these helpers when wiring new components so failure classification stays
// uniform across the catalogs.
package services
