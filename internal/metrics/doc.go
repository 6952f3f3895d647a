// Package metrics exposes the Prometheus collectors shared by the resolution
// layer: cache efficiency, upstream latency, breaker state, and per-component
// outcome counters. Collectors register with the default registry at init.
package metrics
