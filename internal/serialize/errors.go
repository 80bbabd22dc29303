package serialize

import "errors"

var (
	// ErrInvalidFileIndex is returned when decoding from an Invalid file index.
	ErrInvalidFileIndex = errors.New("serialize: invalid file index")

	// ErrUnresolved is returned when a reference without a resident value
	// must be written to a version it was not persisted in.
	ErrUnresolved = errors.New("serialize: unresolved reference")

	// ErrTypeMismatch is returned when a cached value has a different type
	// than the codec used to load it.
	ErrTypeMismatch = errors.New("serialize: cached value has unexpected type")

	// ErrMalformed is returned when a record declares more data than the file holds.
	ErrMalformed = errors.New("serialize: malformed record")
)
