// Package cache provides the TTL cache injected into each resolution
// component.
//
// Reads apply lazy expiry: an entry older than its TTL is evicted on read and
// reported as a miss, while Stored still sees it until then. Sweep and
// RunSweeper remove expired entries independently of reads. When MaxEntries is
// set the oldest insertion is evicted first. GetOrLoad collapses concurrent
// cold loads of one key into a single upstream call.
package cache
