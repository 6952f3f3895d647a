// Package games defines the canonical data model shared by every resolution
// component: source tags, canonical IDs, normalized records, ID mappings, and
// validation outcomes. Native catalog IDs never travel above this layer
// without their source tag.
package games
