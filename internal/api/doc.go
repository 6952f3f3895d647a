// Package api serves the resolution layer over HTTP with a chi router.
//
// Routes live under /api: search, bulk game lookup, enhanced lookup,
// cross-catalog resolve, validation, per-user preferences, stats, and cache
// clearing. /metrics exposes the Prometheus registry.
//
// Every request gets an X-Request-ID (echoed from the client or generated)
// that is stamped into the context for logging. The caller's user ID comes
// from the X-User-ID header and selects the preference profile row; cookie
// preferences are read and written through the same request.
//
// Error bodies are ErrorResponse. Validation errors map to 400, missing
// mappings to 404, and a search where every catalog failed to 503.
package api
