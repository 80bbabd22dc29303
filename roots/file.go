package roots

import (
	"context"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/hupe1980/lazyvec/codec"
	"github.com/hupe1980/lazyvec/internal/fs"
	"github.com/hupe1980/lazyvec/model"
)

// FileName is the base name of the catalog file.
const FileName = "ROOTS"

type fileEntry struct {
	Offset  model.FileOffset `json:"offset"`
	Version model.Hash       `json:"version"`
}

type fileState struct {
	Codec string               `json:"codec"`
	Roots map[string]fileEntry `json:"roots"`
}

// FileOptions configures a FileCatalog.
type FileOptions struct {
	// FileSystem defaults to fs.Default.
	FileSystem fs.FileSystem
	// Codec encodes the catalog file. Defaults to codec.Default.
	Codec codec.Codec
}

// FileCatalog keeps the catalog in a single file inside dir. Every successful
// CompareAndSwap rewrites a temporary file and renames it over the old one.
// It coordinates writers within one process only.
type FileCatalog struct {
	path string
	opts FileOptions

	mu    sync.RWMutex
	roots map[string]model.FileIndex
}

// OpenFileCatalog loads the catalog file in dir, starting empty if it does not exist.
func OpenFileCatalog(dir string, optFns ...func(o *FileOptions)) (*FileCatalog, error) {
	opts := FileOptions{FileSystem: fs.Default, Codec: codec.Default}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.FileSystem == nil {
		opts.FileSystem = fs.Default
	}
	if opts.Codec == nil {
		opts.Codec = codec.Default
	}
	if err := opts.FileSystem.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("roots: create %s: %w", dir, err)
	}

	c := &FileCatalog{
		path:  filepath.Join(dir, FileName),
		opts:  opts,
		roots: make(map[string]model.FileIndex),
	}
	if err := c.load(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *FileCatalog) load() error {
	f, err := c.opts.FileSystem.OpenFile(c.path, os.O_RDONLY, 0)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("roots: open %s: %w", c.path, err)
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("roots: read %s: %w", c.path, err)
	}
	var st fileState
	if err := c.opts.Codec.Unmarshal(data, &st); err != nil {
		return fmt.Errorf("roots: decode %s: %w", c.path, err)
	}
	if err := codec.Verify(c.opts.Codec, st.Codec); err != nil {
		return fmt.Errorf("roots: %s: %w", c.path, err)
	}
	for name, e := range st.Roots {
		c.roots[name] = model.ValidIndex(e.Offset, e.Version)
	}
	return nil
}

// Get returns the root stored under name, or ErrNotFound.
func (c *FileCatalog) Get(_ context.Context, name string) (model.FileIndex, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	idx, ok := c.roots[name]
	if !ok {
		return model.InvalidIndex(), ErrNotFound
	}
	return idx, nil
}

// CompareAndSwap stores next under name if the current root equals prev, where
// an Invalid prev means the name must not exist yet. The catalog file is
// rewritten before the call returns; if that fails the in-memory root is rolled back.
func (c *FileCatalog) CompareAndSwap(ctx context.Context, name string, prev, next model.FileIndex) error {
	if !next.IsValid() {
		return ErrInvalidRoot
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := check(c.roots, name, prev); err != nil {
		return err
	}

	old, existed := c.roots[name]
	c.roots[name] = next
	if err := c.save(); err != nil {
		if existed {
			c.roots[name] = old
		} else {
			delete(c.roots, name)
		}
		return err
	}
	return nil
}

// List returns the sorted root names.
func (c *FileCatalog) List(_ context.Context) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return sortedNames(c.roots), nil
}

// save must be called with c.mu held.
func (c *FileCatalog) save() error {
	st := fileState{Codec: c.opts.Codec.Name(), Roots: make(map[string]fileEntry, len(c.roots))}
	for name, idx := range c.roots {
		st.Roots[name] = fileEntry{Offset: idx.Offset, Version: idx.Version}
	}
	data, err := c.opts.Codec.Marshal(st)
	if err != nil {
		return fmt.Errorf("roots: encode: %w", err)
	}

	fsys := c.opts.FileSystem
	tmp := c.path + ".tmp"
	f, err := fsys.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("roots: create %s: %w", tmp, err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = fsys.Remove(tmp)
		return fmt.Errorf("roots: write %s: %w", tmp, err)
	}
	if err := fs.Datasync(f); err != nil {
		_ = f.Close()
		_ = fsys.Remove(tmp)
		return fmt.Errorf("roots: sync %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		_ = fsys.Remove(tmp)
		return fmt.Errorf("roots: close %s: %w", tmp, err)
	}
	if err := fsys.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("roots: rename %s: %w", tmp, err)
	}
	return nil
}
