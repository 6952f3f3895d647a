// Package textutil provides the string primitives used for record linkage
// across catalogs.
//
// Names are compared in a normalized form (NFKD with combining marks removed,
// case folded, punctuation collapsed) using a normalized Levenshtein distance.
// Platform names are reduced to shared keys so "PC (Microsoft Windows)" and
// "PC" count as the same platform.
package textutil
