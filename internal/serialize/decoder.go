package serialize

import (
	"fmt"
	"io"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/lazyvec/internal/buffered"
	"github.com/hupe1980/lazyvec/model"
)

// Decoder carries the state of one top-level load: the registry, the
// remaining depth budget and the set of records being decoded in this call tree.
type Decoder struct {
	reg       *Registry
	remaining int
	skip      map[model.Hash]*roaring.Bitmap
}

func newDecoder(reg *Registry, maxLoads int) *Decoder {
	return &Decoder{
		reg:       reg,
		remaining: maxLoads,
		skip:      make(map[model.Hash]*roaring.Bitmap),
	}
}

// child returns the decoder for a record one level deeper.
func (d *Decoder) child() *Decoder {
	return &Decoder{reg: d.reg, remaining: d.remaining - 1, skip: d.skip}
}

// Registry returns the registry the load runs against.
func (d *Decoder) Registry() *Registry {
	return d.reg
}

// Remaining returns how many nested levels may still be resolved eagerly.
func (d *Decoder) Remaining() int {
	return d.remaining
}

func (d *Decoder) skipped(idx model.FileIndex) bool {
	bm, ok := d.skip[idx.Version]
	return ok && bm.Contains(uint32(idx.Offset))
}

func (d *Decoder) enter(idx model.FileIndex) {
	bm, ok := d.skip[idx.Version]
	if !ok {
		bm = roaring.New()
		d.skip[idx.Version] = bm
	}
	bm.Add(uint32(idx.Offset))
}

func (d *Decoder) leave(idx model.FileIndex) {
	if bm, ok := d.skip[idx.Version]; ok {
		bm.Remove(uint32(idx.Offset))
	}
}

// Read opens a cursor positioned at idx and passes a reader to fn.
// The cursor is closed before Read returns.
func (d *Decoder) Read(idx model.FileIndex, fn func(r *Reader) error) error {
	if !idx.IsValid() || uint32(idx.Offset) == model.NullOffset {
		return fmt.Errorf("%w: %s", ErrInvalidFileIndex, idx)
	}
	f, err := d.reg.files.Lookup(idx.Version)
	if err != nil {
		return err
	}
	return f.WithCursor(func(c buffered.Cursor) error {
		if _, err := f.Seek(c, int64(idx.Offset), io.SeekStart); err != nil {
			return err
		}
		return fn(&Reader{file: f, cursor: c})
	})
}

// Reader reads primitives through one cursor.
type Reader struct {
	file   *buffered.File
	cursor buffered.Cursor
}

// ReadU8 reads one byte.
func (r *Reader) ReadU8() (uint8, error) {
	return r.file.ReadU8(r.cursor)
}

// ReadU32 reads a little-endian uint32.
func (r *Reader) ReadU32() (uint32, error) {
	return r.file.ReadU32(r.cursor)
}

// ReadF32 reads a little-endian float32.
func (r *Reader) ReadF32() (float32, error) {
	return r.file.ReadF32(r.cursor)
}

// ReadBytes reads exactly n bytes.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	return r.file.ReadBytes(r.cursor, n)
}

// Remaining returns the number of bytes between the cursor and the end of the file.
func (r *Reader) Remaining() (int64, error) {
	pos, err := r.file.Position(r.cursor)
	if err != nil {
		return 0, err
	}
	return r.file.Size() - pos, nil
}
