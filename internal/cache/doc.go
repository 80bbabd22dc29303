// Package cache provides a generic LRU with pinned entries.
//
// Entries for which the pin predicate reports true are skipped by capacity
// eviction and by Invalidate. The node registry uses this to keep values
// with unflushed mutations resident.
package cache
