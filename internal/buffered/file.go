package buffered

import (
	"cmp"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"slices"
	"sync"
	"sync/atomic"

	vfs "github.com/hupe1980/lazyvec/internal/fs"
	"github.com/hupe1980/lazyvec/internal/resource"
	"github.com/hupe1980/lazyvec/model"
)

// Cursor identifies an open cursor on a File.
type Cursor uint64

type page struct {
	data  []byte
	dirty bool
	gen   uint64 // bumped on every write
}

// File is a page-buffered handle on one version file.
type File struct {
	version  model.Hash
	raw      vfs.File
	pageSize int64
	maxPages int
	rc       *resource.Controller

	appendMu sync.Mutex
	flushMu  sync.Mutex

	mu       sync.Mutex
	pages    map[int64]*page
	size     int64 // logical size including buffered writes
	diskSize int64
	cursors  map[Cursor]int64
	closed   bool

	nextCursor atomic.Uint64
}

func newFile(version model.Hash, raw vfs.File, opts Options) (*File, error) {
	size, err := vfs.Size(raw)
	if err != nil {
		return nil, fmt.Errorf("buffered: stat version %d: %w", version, err)
	}
	return &File{
		version:  version,
		raw:      raw,
		pageSize: int64(opts.PageSize),
		maxPages: opts.MaxCachedPages,
		rc:       opts.Resources,
		pages:    make(map[int64]*page),
		size:     size,
		diskSize: size,
		cursors:  make(map[Cursor]int64),
	}, nil
}

// Version returns the version this file belongs to.
func (f *File) Version() model.Hash {
	return f.version
}

// Size returns the logical size of the file, including unflushed writes.
func (f *File) Size() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.size
}

// LockAppend acquires the writer lock of the file.
func (f *File) LockAppend() {
	f.appendMu.Lock()
}

// UnlockAppend releases the writer lock of the file.
func (f *File) UnlockAppend() {
	f.appendMu.Unlock()
}

// OpenCursor opens a new cursor positioned at offset 0.
func (f *File) OpenCursor() (Cursor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return 0, ErrClosed
	}
	c := Cursor(f.nextCursor.Add(1))
	f.cursors[c] = 0
	return c, nil
}

// CloseCursor releases a cursor.
func (f *File) CloseCursor(c Cursor) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.cursors[c]; !ok {
		return fmt.Errorf("%w: %d", ErrInvalidCursor, c)
	}
	delete(f.cursors, c)
	return nil
}

// WithCursor opens a cursor, runs fn and closes the cursor on every path.
func (f *File) WithCursor(fn func(c Cursor) error) (err error) {
	c, err := f.OpenCursor()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.CloseCursor(c); err == nil {
			err = cerr
		}
	}()
	return fn(c)
}

// Seek moves the cursor and returns its new absolute position.
func (f *File) Seek(c Cursor, offset int64, whence int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	pos, ok := f.cursors[c]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrInvalidCursor, c)
	}

	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos += offset
	case io.SeekEnd:
		pos = f.size + offset
	default:
		return 0, fmt.Errorf("%w: whence %d", ErrInvalidOffset, whence)
	}
	if pos < 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidOffset, pos)
	}

	f.cursors[c] = pos
	return pos, nil
}

// Position returns the absolute position of the cursor.
func (f *File) Position(c Cursor) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pos, ok := f.cursors[c]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrInvalidCursor, c)
	}
	return pos, nil
}

// ReadU8 reads one byte at the cursor.
func (f *File) ReadU8(c Cursor) (uint8, error) {
	var b [1]byte
	if err := f.read(c, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadU32 reads a little-endian uint32 at the cursor.
func (f *File) ReadU32(c Cursor) (uint32, error) {
	var b [4]byte
	if err := f.read(c, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

// ReadF32 reads a little-endian float32 at the cursor.
func (f *File) ReadF32(c Cursor) (float32, error) {
	v, err := f.ReadU32(c)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

// ReadBytes reads exactly n bytes at the cursor.
// Lengths running past the end of the file fail before anything is allocated.
func (f *File) ReadBytes(c Cursor, n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: length %d", ErrInvalidOffset, n)
	}
	if err := f.ensure(c, n); err != nil {
		return nil, err
	}
	b := make([]byte, n)
	if err := f.read(c, b); err != nil {
		return nil, err
	}
	return b, nil
}

// WriteU8 writes one byte at the cursor.
func (f *File) WriteU8(c Cursor, v uint8) error {
	return f.write(c, []byte{v})
}

// WriteU32 writes a little-endian uint32 at the cursor.
func (f *File) WriteU32(c Cursor, v uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return f.write(c, b[:])
}

// WriteF32 writes a little-endian float32 at the cursor.
func (f *File) WriteF32(c Cursor, v float32) error {
	return f.WriteU32(c, math.Float32bits(v))
}

// WriteBytes writes p at the cursor.
func (f *File) WriteBytes(c Cursor, p []byte) error {
	return f.write(c, p)
}

// ensure checks that n bytes are readable at the cursor.
func (f *File) ensure(c Cursor, n int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrClosed
	}
	pos, ok := f.cursors[c]
	if !ok {
		return fmt.Errorf("%w: %d", ErrInvalidCursor, c)
	}
	if int64(n) > f.size-pos {
		return fmt.Errorf("%w: want %d bytes at offset %d of version %d, size %d",
			ErrShortRead, n, pos, f.version, f.size)
	}
	return nil
}

func (f *File) read(c Cursor, p []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrClosed
	}
	pos, ok := f.cursors[c]
	if !ok {
		return fmt.Errorf("%w: %d", ErrInvalidCursor, c)
	}
	if pos+int64(len(p)) > f.size {
		return fmt.Errorf("%w: want %d bytes at offset %d of version %d, size %d",
			ErrShortRead, len(p), pos, f.version, f.size)
	}

	if err := f.copyOut(p, pos); err != nil {
		return err
	}
	f.cursors[c] = pos + int64(len(p))
	f.trim()
	return nil
}

func (f *File) write(c Cursor, p []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrClosed
	}
	pos, ok := f.cursors[c]
	if !ok {
		return fmt.Errorf("%w: %d", ErrInvalidCursor, c)
	}
	end := pos + int64(len(p))
	if end > math.MaxUint32 {
		return fmt.Errorf("%w: version %d", ErrFileTooLarge, f.version)
	}

	if err := f.copyIn(p, pos); err != nil {
		return err
	}
	if end > f.size {
		f.size = end
	}
	f.cursors[c] = end
	return nil
}

func (f *File) copyOut(p []byte, off int64) error {
	for len(p) > 0 {
		idx := off / f.pageSize
		pg, err := f.page(idx)
		if err != nil {
			return err
		}
		n := copy(p, pg.data[off-idx*f.pageSize:])
		p = p[n:]
		off += int64(n)
	}
	return nil
}

func (f *File) copyIn(p []byte, off int64) error {
	for len(p) > 0 {
		idx := off / f.pageSize
		pg, err := f.page(idx)
		if err != nil {
			return err
		}
		n := copy(pg.data[off-idx*f.pageSize:], p)
		pg.dirty = true
		pg.gen++
		p = p[n:]
		off += int64(n)
	}
	return nil
}

// page returns the cached page idx, loading it from disk when needed.
// Callers hold f.mu.
func (f *File) page(idx int64) (*page, error) {
	if pg, ok := f.pages[idx]; ok {
		return pg, nil
	}
	pg := &page{data: make([]byte, f.pageSize)}
	start := idx * f.pageSize
	if start < f.diskSize {
		n, err := f.raw.ReadAt(pg.data, start)
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("buffered: read page %d of version %d: %w", idx, f.version, err)
		}
		clear(pg.data[n:])
	}
	f.pages[idx] = pg
	return pg, nil
}

// trim drops clean pages once the cache grows beyond its bound.
// Callers hold f.mu.
func (f *File) trim() {
	if len(f.pages) <= f.maxPages {
		return
	}
	for idx, pg := range f.pages {
		if len(f.pages) <= f.maxPages {
			return
		}
		if !pg.dirty {
			delete(f.pages, idx)
		}
	}
}

type flushPage struct {
	idx  int64
	gen  uint64
	data []byte
}

// Flush writes dirty pages back to disk and syncs the file.
// The pages are copied under the file lock and written outside it, so readers
// and writers keep going while a rate-limited flush waits for IO budget.
func (f *File) Flush(ctx context.Context) error {
	f.flushMu.Lock()
	defer f.flushMu.Unlock()

	batch, err := f.dirtyPages()
	if err != nil || len(batch) == 0 {
		return err
	}

	for _, fp := range batch {
		if err := f.rc.AcquireIO(ctx, len(fp.data)); err != nil {
			return err
		}
		start := fp.idx * f.pageSize
		if _, err := f.raw.WriteAt(fp.data, start); err != nil {
			return fmt.Errorf("buffered: flush page %d of version %d: %w", fp.idx, f.version, err)
		}
		f.written(fp, start)
	}

	if err := vfs.Datasync(f.raw); err != nil {
		return fmt.Errorf("buffered: sync version %d: %w", f.version, err)
	}

	f.mu.Lock()
	if !f.closed {
		f.trim()
	}
	f.mu.Unlock()
	return nil
}

// dirtyPages copies the dirty pages in offset order.
func (f *File) dirtyPages() ([]flushPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil, ErrClosed
	}

	var batch []flushPage
	for idx, pg := range f.pages {
		if !pg.dirty {
			continue
		}
		n := min(f.pageSize, f.size-idx*f.pageSize)
		if n <= 0 {
			pg.dirty = false
			continue
		}
		batch = append(batch, flushPage{idx: idx, gen: pg.gen, data: slices.Clone(pg.data[:n])})
	}
	slices.SortFunc(batch, func(a, b flushPage) int { return cmp.Compare(a.idx, b.idx) })
	return batch, nil
}

// written marks a flushed page clean unless it was written again meanwhile.
func (f *File) written(fp flushPage, start int64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if end := start + int64(len(fp.data)); end > f.diskSize {
		f.diskSize = end
	}
	if pg, ok := f.pages[fp.idx]; ok && pg.gen == fp.gen {
		pg.dirty = false
	}
}

// Close closes the underlying file without flushing.
// It waits for an in-flight Flush.
func (f *File) Close() error {
	f.flushMu.Lock()
	defer f.flushMu.Unlock()

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	f.cursors = nil
	f.pages = nil
	return f.raw.Close()
}
