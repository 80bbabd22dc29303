// Package graph defines the persisted HNSW graph node and its codec.
//
// Node layout (22 bytes, little-endian):
//
//	id u32 | level u8 | flags u8 | neighbors u32 | prop u32 | prev_offset u32 | prev_version u32
//
// neighbors points at a neighbor collection, prop at a property reference.
// Both are appended after the header, so rewriting a node in place only
// touches its header. The previous-version link carries its own version and
// is the only reference that may cross version files.
package graph
