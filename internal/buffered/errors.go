package buffered

import "errors"

var (
	// ErrFileNotFound is returned when a version file does not exist.
	ErrFileNotFound = errors.New("buffered: version file not found")

	// ErrInvalidCursor is returned for unknown or already closed cursors.
	ErrInvalidCursor = errors.New("buffered: invalid cursor")

	// ErrShortRead is returned when fewer bytes are available than the field width.
	ErrShortRead = errors.New("buffered: short read")

	// ErrClosed is returned when operating on a closed file or set.
	ErrClosed = errors.New("buffered: closed")

	// ErrInvalidOffset is returned when seeking before the start of the file.
	ErrInvalidOffset = errors.New("buffered: invalid offset")

	// ErrFileTooLarge is returned when a write would exceed the 32-bit offset space.
	ErrFileTooLarge = errors.New("buffered: file exceeds 4 GiB offset space")

	// ErrFileExists is returned when reserving a version that already has a file or handle.
	ErrFileExists = errors.New("buffered: version file exists")

	// ErrReserved is returned when opening a version that is reserved by another writer.
	ErrReserved = errors.New("buffered: version reserved")
)
