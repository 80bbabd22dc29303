package model

import (
	"fmt"
)

// Hash identifies a version. Versions are totally ordered by their numeric value.
type Hash uint32

// FileOffset is an absolute byte offset within a version file.
type FileOffset uint32

// BytesToRead is the byte length of a serialized payload.
type BytesToRead uint32

// VectorID is the identifier of a graph node.
type VectorID uint32

// Level is the HNSW level of a graph node.
type Level uint8

// NullOffset marks an explicit null reference inside a serialized record.
const NullOffset = ^uint32(0)

// FileIndex is a logical pointer to a persisted record.
//
// The zero value is Invalid.
type FileIndex struct {
	Offset  FileOffset
	Version Hash
	valid   bool
}

// InvalidIndex returns the Invalid file index.
func InvalidIndex() FileIndex {
	return FileIndex{}
}

// ValidIndex returns a Valid file index for the given offset and version.
func ValidIndex(offset FileOffset, version Hash) FileIndex {
	return FileIndex{Offset: offset, Version: version, valid: true}
}

// IsValid reports whether the index points at a persisted record.
func (i FileIndex) IsValid() bool {
	return i.valid
}

// String returns a string representation of the FileIndex.
func (i FileIndex) String() string {
	if !i.valid {
		return "FileIndex(invalid)"
	}
	return fmt.Sprintf("FileIndex(%d@%d)", i.Offset, i.Version)
}

// PropRef locates an opaque property payload.
type PropRef struct {
	Offset FileOffset
	Length BytesToRead
}

// IsZero reports whether the reference points at nothing.
func (p PropRef) IsZero() bool {
	return p.Offset == 0 && p.Length == 0
}
