// Package inverted implements the dimension-keyed inverted index that is
// persisted with the same recursive protocol as graph nodes.
//
// Item layout (13 bytes, little-endian):
//
//	dim u32 | implicit u8 | data u32 | children u32
//
// data and children point at collections appended after the header.
// Items form a base-4 trie over the dimension id: the child under digit d of
// the item for dimension p holds dimension p*4+d. Items created only to reach
// a deeper dimension are marked implicit.
package inverted
