package serialize

import (
	"context"
	"io"

	"github.com/hupe1980/lazyvec/internal/buffered"
	"github.com/hupe1980/lazyvec/model"
)

// Encoder writes records through one cursor of one version file.
//
// It remembers the offset of every reference written during its lifetime so
// shared and cyclic references are written once, and it queues location
// publications until Commit.
type Encoder struct {
	file    *buffered.File
	cursor  buffered.Cursor
	written map[any]written
	pending []func()
	observe func(idx model.FileIndex, v any)

	ctx context.Context
	reg *Registry
}

type written struct {
	off model.FileOffset
	// copied marks a record holding a value of an older version.
	copied bool
}

// NewEncoder returns an encoder over an open cursor of file.
func NewEncoder(file *buffered.File, cursor buffered.Cursor) *Encoder {
	return &Encoder{
		file:    file,
		cursor:  cursor,
		written: make(map[any]written),
		ctx:     context.Background(),
	}
}

// UseRegistry lets the encoder load unresolved references of older versions
// through reg, so their records can be copied into the encoder's version.
func (e *Encoder) UseRegistry(ctx context.Context, reg *Registry) {
	e.ctx, e.reg = ctx, reg
}

// Alias makes references to v resolve to the record at off. v must be a pointer.
func (e *Encoder) Alias(v any, off model.FileOffset) {
	e.written[v] = written{off: off, copied: true}
}

// Version returns the version records are written to.
func (e *Encoder) Version() model.Hash {
	return e.file.Version()
}

// File returns the target file.
func (e *Encoder) File() *buffered.File {
	return e.file
}

// Position returns the cursor position.
func (e *Encoder) Position() (model.FileOffset, error) {
	pos, err := e.file.Position(e.cursor)
	return model.FileOffset(pos), err
}

// Seek moves the cursor to off.
func (e *Encoder) Seek(off model.FileOffset) error {
	_, err := e.file.Seek(e.cursor, int64(off), io.SeekStart)
	return err
}

// SeekEnd moves the cursor to the end of the file and returns that offset.
func (e *Encoder) SeekEnd() (model.FileOffset, error) {
	pos, err := e.file.Seek(e.cursor, 0, io.SeekEnd)
	return model.FileOffset(pos), err
}

// WriteU8 writes one byte.
func (e *Encoder) WriteU8(v uint8) error {
	return e.file.WriteU8(e.cursor, v)
}

// WriteU32 writes a little-endian uint32.
func (e *Encoder) WriteU32(v uint32) error {
	return e.file.WriteU32(e.cursor, v)
}

// WriteF32 writes a little-endian float32.
func (e *Encoder) WriteF32(v float32) error {
	return e.file.WriteF32(e.cursor, v)
}

// WriteBytes writes p.
func (e *Encoder) WriteBytes(p []byte) error {
	return e.file.WriteBytes(e.cursor, p)
}

// Patch overwrites the uint32 at off and restores the cursor.
func (e *Encoder) Patch(off model.FileOffset, v uint32) error {
	_, err := e.At(off, func() (model.FileOffset, error) {
		return off, e.WriteU32(v)
	})
	return err
}

// Append runs fn with the cursor at the end of the file and restores the
// cursor afterwards.
func (e *Encoder) Append(fn func() (model.FileOffset, error)) (model.FileOffset, error) {
	saved, err := e.Position()
	if err != nil {
		return 0, err
	}
	if _, err := e.SeekEnd(); err != nil {
		return 0, err
	}
	off, err := fn()
	if err != nil {
		return 0, err
	}
	return off, e.Seek(saved)
}

// At runs fn with the cursor at off and restores the cursor afterwards.
func (e *Encoder) At(off model.FileOffset, fn func() (model.FileOffset, error)) (model.FileOffset, error) {
	saved, err := e.Position()
	if err != nil {
		return 0, err
	}
	if err := e.Seek(off); err != nil {
		return 0, err
	}
	res, err := fn()
	if err != nil {
		return 0, err
	}
	return res, e.Seek(saved)
}

// Observe registers fn to be called at commit time for every nested value
// whose new location was published.
func (e *Encoder) Observe(fn func(idx model.FileIndex, v any)) {
	e.observe = fn
}

func (e *Encoder) published(idx model.FileIndex, v any) {
	if e.observe != nil {
		e.observe(idx, v)
	}
}

// Defer queues fn until Commit.
func (e *Encoder) Defer(fn func()) {
	e.pending = append(e.pending, fn)
}

// Commit runs the queued publications in order. It must only be called
// once every record is written and the cursor is closed.
func (e *Encoder) Commit() {
	pending := e.pending
	e.pending = nil
	for _, fn := range pending {
		fn()
	}
}

// Discard drops the queued publications.
func (e *Encoder) Discard() {
	e.pending = nil
}

func (e *Encoder) lookup(keys []any) (written, bool) {
	for _, k := range keys {
		if w, ok := e.written[k]; ok {
			return w, true
		}
	}
	return written{}, false
}

func (e *Encoder) remember(keys []any, off model.FileOffset, copied bool) {
	for _, k := range keys {
		e.written[k] = written{off: off, copied: copied}
	}
}
