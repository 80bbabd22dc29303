// Package codec encodes node property payloads and catalog files.
//
// Property records store raw bytes only, so the codec is part of the on-disk
// contract: bytes written with one codec must be read back with the same one.
package codec

import (
	"errors"
	"fmt"
)

// ErrMismatch is returned by Verify when stored data names another codec.
var ErrMismatch = errors.New("codec: mismatch")

// Codec encodes/decodes values.
// Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	// Name is recorded next to persisted data and must stay stable.
	Name() string
}

// Default is the codec used when none is configured.
var Default Codec = GoJSON{}

// ByName returns a built-in codec by its stable name.
func ByName(name string) (Codec, bool) {
	switch name {
	case JSON{}.Name():
		return JSON{}, true
	case GoJSON{}.Name():
		return GoJSON{}, true
	default:
		return nil, false
	}
}

// Verify checks that data recorded as written by stored can be read with c.
// An empty stored name predates codec tracking and is accepted.
func Verify(c Codec, stored string) error {
	if stored == "" || stored == c.Name() {
		return nil
	}
	if _, ok := ByName(stored); !ok {
		return fmt.Errorf("%w: unknown codec %q", ErrMismatch, stored)
	}
	return fmt.Errorf("%w: written with %q, configured %q", ErrMismatch, stored, c.Name())
}
