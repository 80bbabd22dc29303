// Package serialize implements the recursive binary encode/decode protocol
// and the node registry that resolves file indices to resident values.
//
// Every record kind owns a Codec. Encoding writes a record at the encoder's
// cursor and returns the offset where it begins. Records with variable-length
// parts write a fixed-size header first and append the nested parts at the
// end of the version file, patching their offsets back into the header. A
// rewrite at a known offset therefore only overwrites the fixed header.
//
// Decoding goes through a Registry. Top-level loads of the same file index
// converge on one decode and one resident instance. Nested references are
// resolved eagerly up to a per-call depth budget; a reference that is already
// being decoded in the same call tree, or by another caller, is returned as an
// unresolved placeholder instead of waiting, which breaks cycles and keeps
// concurrent loads deadlock-free.
//
// All integers are little-endian and fixed-width. Offsets are absolute within
// the version file of the enclosing record.
package serialize
