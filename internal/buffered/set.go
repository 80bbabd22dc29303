package buffered

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"

	vfs "github.com/hupe1980/lazyvec/internal/fs"
	"github.com/hupe1980/lazyvec/internal/resource"
	"github.com/hupe1980/lazyvec/model"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultPageSize is the page size of the buffer cache.
	DefaultPageSize = 4096
	// DefaultMaxCachedPages bounds the number of pages kept per file.
	DefaultMaxCachedPages = 4096
	// FileExtension is the suffix of version files.
	FileExtension = ".vec"
)

// Options configures a Set.
type Options struct {
	// FileSystem is used to open version files. Defaults to fs.Default.
	FileSystem vfs.FileSystem

	// PageSize is the size of one buffered page in bytes.
	PageSize int

	// MaxCachedPages bounds the clean pages retained per file. Dirty pages are never dropped.
	MaxCachedPages int

	// Resources rate-limits flush IO. Optional.
	Resources *resource.Controller
}

// Set owns one buffered File per version.
type Set struct {
	dir  string
	opts Options

	mu       sync.RWMutex
	files    map[model.Hash]*File
	reserved map[model.Hash]struct{}
	closed   bool

	flight singleflight.Group
}

// NewSet creates a Set rooted at dir, creating the directory if needed.
func NewSet(dir string, optFns ...func(o *Options)) (*Set, error) {
	opts := Options{
		FileSystem:     vfs.Default,
		PageSize:       DefaultPageSize,
		MaxCachedPages: DefaultMaxCachedPages,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.FileSystem == nil {
		opts.FileSystem = vfs.Default
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.MaxCachedPages <= 0 {
		opts.MaxCachedPages = DefaultMaxCachedPages
	}

	if err := opts.FileSystem.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("buffered: create %s: %w", dir, err)
	}

	return &Set{
		dir:      dir,
		opts:     opts,
		files:    make(map[model.Hash]*File),
		reserved: make(map[model.Hash]struct{}),
	}, nil
}

// Dir returns the directory holding the version files.
func (s *Set) Dir() string {
	return s.dir
}

// Path returns the on-disk path of the version file.
func (s *Set) Path(version model.Hash) string {
	return filepath.Join(s.dir, FileName(version))
}

// FileName returns the base name of the version file.
func FileName(version model.Hash) string {
	return strconv.FormatUint(uint64(version), 10) + FileExtension
}

// Get returns the buffered file for version, creating it if absent.
// Concurrent first accessors converge on a single handle.
func (s *Set) Get(version model.Hash) (*File, error) {
	return s.open(version, os.O_CREATE|os.O_RDWR)
}

// Lookup returns the buffered file for version. Unlike Get it never creates
// a new file and fails with ErrFileNotFound instead.
func (s *Set) Lookup(version model.Hash) (*File, error) {
	return s.open(version, os.O_RDWR)
}

func (s *Set) open(version model.Hash, flag int) (*File, error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, ErrClosed
	}
	if f, ok := s.files[version]; ok {
		s.mu.RUnlock()
		return f, nil
	}
	s.mu.RUnlock()

	key := strconv.FormatUint(uint64(version), 10) + ":" + strconv.Itoa(flag)
	v, err, _ := s.flight.Do(key, func() (any, error) {
		s.mu.RLock()
		f, ok := s.files[version]
		s.mu.RUnlock()
		if ok {
			return f, nil
		}

		raw, err := s.opts.FileSystem.OpenFile(s.Path(version), flag, 0o644)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("%w: version %d", ErrFileNotFound, version)
			}
			return nil, fmt.Errorf("buffered: open version %d: %w", version, err)
		}

		f, err = newFile(version, raw, s.opts)
		if err != nil {
			_ = raw.Close()
			return nil, err
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed {
			_ = f.Close()
			return nil, ErrClosed
		}
		if _, ok := s.reserved[version]; ok {
			_ = f.Close()
			return nil, fmt.Errorf("%w: version %d", ErrReserved, version)
		}
		if existing, ok := s.files[version]; ok {
			// Lost a race against the other open mode.
			_ = f.Close()
			return existing, nil
		}
		s.files[version] = f
		return f, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*File), nil
}

// Reserve claims version for a caller that creates its file outside the Set,
// such as a restore. It fails with ErrFileExists when the version has an open
// handle or a file on disk. Until release is called, Get and Lookup of the
// version fail with ErrReserved.
func (s *Set) Reserve(version model.Hash) (release func(), err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	if _, ok := s.reserved[version]; ok {
		return nil, fmt.Errorf("%w: version %d", ErrReserved, version)
	}
	if _, ok := s.files[version]; ok {
		return nil, fmt.Errorf("%w: version %d is open", ErrFileExists, version)
	}
	ok, err := vfs.Exists(s.opts.FileSystem, s.Path(version))
	if err != nil {
		return nil, fmt.Errorf("buffered: stat version %d: %w", version, err)
	}
	if ok {
		return nil, fmt.Errorf("%w: version %d", ErrFileExists, version)
	}

	s.reserved[version] = struct{}{}
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.reserved, version)
			s.mu.Unlock()
		})
	}, nil
}

// Versions lists the versions that have a file on disk or an open handle.
func (s *Set) Versions() ([]model.Hash, error) {
	entries, err := s.opts.FileSystem.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("buffered: list %s: %w", s.dir, err)
	}

	seen := make(map[model.Hash]struct{})
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, FileExtension) {
			continue
		}
		n, err := strconv.ParseUint(strings.TrimSuffix(name, FileExtension), 10, 32)
		if err != nil {
			continue
		}
		seen[model.Hash(n)] = struct{}{}
	}

	s.mu.RLock()
	for v := range s.files {
		seen[v] = struct{}{}
	}
	s.mu.RUnlock()

	versions := make([]model.Hash, 0, len(seen))
	for v := range seen {
		versions = append(versions, v)
	}
	slices.Sort(versions)
	return versions, nil
}

// Flush writes back the dirty pages of every open file.
func (s *Set) Flush(ctx context.Context) error {
	s.mu.RLock()
	files := make([]*File, 0, len(s.files))
	for _, f := range s.files {
		files = append(files, f)
	}
	s.mu.RUnlock()

	var errs []error
	for _, f := range files {
		if err := f.Flush(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close flushes and closes all files. The Set cannot be used afterwards.
func (s *Set) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	files := s.files
	s.files = make(map[model.Hash]*File)
	s.mu.Unlock()

	var errs []error
	for _, f := range files {
		if err := f.Flush(context.Background()); err != nil {
			errs = append(errs, err)
		}
		if err := f.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
