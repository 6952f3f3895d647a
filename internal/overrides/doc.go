// Package overrides serves the manual ID-override table consulted before any
// fuzzy matching. An override is authoritative: when one links an ID to the
// target catalog, the resolver returns it without searching.
//
// The file format is either a JSON array or {"overrides": [...]}, each entry
// shaped {"from": "catalogA:2454", "to": "catalogB:4062", "name": "..."}.
package overrides
