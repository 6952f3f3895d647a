// Command gameshelf is the CLI for the game metadata resolution layer.
//
// Subcommands build a resolution.Service from the TOML configuration and run
// one operation against the live catalogs: search, resolve, fetch, validate,
// and enhance. check probes directories and catalogs before first use. prefs
// reads and writes per-user search preferences, serve exposes the HTTP API,
// and config creates or checks the configuration file. Every result command
// accepts --json.
package main
