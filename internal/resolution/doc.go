// Package resolution assembles the game metadata resolution layer from
// configuration: guarded catalog clients, the ID mapping resolver, the bulk
// fetcher, the validation pipeline, the preference store, and the unified
// search orchestrator. The HTTP API and CLI both consume a Service.
package resolution
