// Package logging assembles structured slog loggers and formatting helpers used
// across the resolution layer.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so component code can tag log
// lines with correlation IDs, user IDs, and operation names. The package also
// provides a no-op logger for tests and wiring code that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup so every component
// emits degraded-state warnings with the same event_type/error_hint/impact shape.
package logging
