// Package preferences stores per-user search preferences across optional
// tiers: the SQLite user profile, a consent-gated browser cookie, and a local
// JSON file.
//
// Store.Load returns the first tier that has a value and falls back to the
// defaults. Store.Save writes every tier independently and reports one
// WriteResult per tier, so a failed profile write never blocks the local
// fallback. Every tier stores the same JSON blob under Key.
package preferences
