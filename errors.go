package lazyvec

import (
	"errors"
	"fmt"

	"github.com/hupe1980/lazyvec/blobstore"
	"github.com/hupe1980/lazyvec/codec"
	"github.com/hupe1980/lazyvec/internal/buffered"
	"github.com/hupe1980/lazyvec/internal/lazy"
	"github.com/hupe1980/lazyvec/internal/persist"
	"github.com/hupe1980/lazyvec/internal/props"
	"github.com/hupe1980/lazyvec/internal/serialize"
	"github.com/hupe1980/lazyvec/model"
	"github.com/hupe1980/lazyvec/roots"
)

var (
	// ErrClosed is returned when the DB is used after Close.
	ErrClosed = errors.New("lazyvec: closed")
	// ErrNotFound is returned for missing version files, roots and archived blobs.
	ErrNotFound = errors.New("lazyvec: not found")
	// ErrConflict is returned when a root commit observes a concurrent update.
	ErrConflict = errors.New("lazyvec: conflict")
	// ErrCorrupt is returned when persisted bytes cannot be decoded.
	ErrCorrupt = errors.New("lazyvec: corrupt data")
	// ErrUnresolved is returned when a reference has no value to read or write.
	ErrUnresolved = errors.New("lazyvec: unresolved reference")
	// ErrInvalidFileIndex is returned when a load is given an Invalid file index.
	ErrInvalidFileIndex = errors.New("lazyvec: invalid file index")
	// ErrStaleIndex is returned when a write targets a location that moved on.
	ErrStaleIndex = errors.New("lazyvec: stale file index")
)

// ErrVersionExists indicates a restore of a version that is already present locally.
type ErrVersionExists struct {
	Version model.Hash
}

func (e *ErrVersionExists) Error() string {
	return fmt.Sprintf("lazyvec: version %d already exists", e.Version)
}

func translateError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, buffered.ErrClosed):
		return fmt.Errorf("%w: %w", ErrClosed, err)
	case errors.Is(err, buffered.ErrFileNotFound),
		errors.Is(err, roots.ErrNotFound),
		errors.Is(err, blobstore.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, roots.ErrConflict),
		errors.Is(err, buffered.ErrReserved):
		return fmt.Errorf("%w: %w", ErrConflict, err)
	case errors.Is(err, serialize.ErrMalformed),
		errors.Is(err, codec.ErrMismatch),
		errors.Is(err, serialize.ErrTypeMismatch),
		errors.Is(err, props.ErrChecksum),
		errors.Is(err, props.ErrCorrupt),
		errors.Is(err, buffered.ErrShortRead):
		return fmt.Errorf("%w: %w", ErrCorrupt, err)
	case errors.Is(err, serialize.ErrUnresolved),
		errors.Is(err, lazy.ErrNullRef):
		return fmt.Errorf("%w: %w", ErrUnresolved, err)
	case errors.Is(err, serialize.ErrInvalidFileIndex):
		return fmt.Errorf("%w: %w", ErrInvalidFileIndex, err)
	case errors.Is(err, persist.ErrStaleIndex),
		errors.Is(err, lazy.ErrVersionRegression):
		return fmt.Errorf("%w: %w", ErrStaleIndex, err)
	}
	return err
}
