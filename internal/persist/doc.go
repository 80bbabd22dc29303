// Package persist writes lazily referenced values to their version files
// and publishes the resulting locations.
//
// A value without a persisted location is appended at the end of its
// version file. A value with a location is rewritten at that offset. The
// writer holds the file's append lock for the whole record, so concurrent
// writers never interleave at the end of a file. New locations are published
// only after the record is complete and its cursor is closed.
package persist
