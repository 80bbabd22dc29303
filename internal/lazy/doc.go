// Package lazy provides deferred, shared references to persisted values.
//
// A Ref holds an immutable Snapshot: an optional resident value, the last
// known persisted location (model.FileIndex) and the logical version of the
// resident value. Snapshots are replaced with a compare-and-swap retry loop
// (read-copy-update), so readers never block and never observe a value
// paired with a torn or mismatched index.
//
// Map is an ordered, uint32-keyed collection of Refs. It backs node
// neighbor lists and inverted-index data and child collections.
package lazy
