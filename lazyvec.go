package lazyvec

import (
	"context"
	"sync/atomic"

	"github.com/hupe1980/lazyvec/internal/buffered"
	"github.com/hupe1980/lazyvec/internal/persist"
	"github.com/hupe1980/lazyvec/internal/resource"
	"github.com/hupe1980/lazyvec/internal/serialize"
	"github.com/hupe1980/lazyvec/model"
	"github.com/hupe1980/lazyvec/roots"
	"golang.org/x/sync/singleflight"
)

// CacheStats reports the counters of the resident value cache.
type CacheStats = serialize.Stats

// DB is a directory of version files with a lazily loading, identity
// preserving view over the records they hold.
//
// All methods are safe for concurrent use.
type DB struct {
	dir     string
	opts    options
	files   *buffered.Set
	reg     *serialize.Registry
	orch    *persist.Orchestrator
	rc      *resource.Controller
	catalog roots.Catalog

	restores singleflight.Group
	closed   atomic.Bool
}

// Open opens the DB in dir, creating the directory if needed.
func Open(dir string, optFns ...Option) (*DB, error) {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	rc := resource.NewController(resource.Config{
		MaxBackgroundWorkers: opts.backgroundWorkers,
		IOLimitBytesPerSec:   opts.ioLimit,
	})

	files, err := buffered.NewSet(dir, func(o *buffered.Options) {
		o.FileSystem = opts.fileSystem
		o.PageSize = opts.pageSize
		o.Resources = rc
	})
	if err != nil {
		return nil, translateError(err)
	}

	catalog := opts.catalog
	if catalog == nil {
		fc, err := roots.OpenFileCatalog(dir, func(o *roots.FileOptions) {
			o.FileSystem = opts.fileSystem
			o.Codec = opts.codec
		})
		if err != nil {
			_ = files.Close()
			return nil, translateError(err)
		}
		catalog = fc
	}

	reg := serialize.NewRegistry(files, func(o *serialize.Options) {
		o.MaxLoads = opts.maxLoads
		o.Capacity = opts.cacheCapacity
	})

	db := &DB{
		dir:   dir,
		opts:  opts,
		files: files,
		reg:   reg,
		orch: persist.New(files, func(o *persist.Options) {
			o.Logger = opts.logger.Logger
			o.Registry = reg
		}),
		rc:      rc,
		catalog: catalog,
	}

	opts.logger.Info("opened", "dir", dir, "max_loads", opts.maxLoads)
	return db, nil
}

// Dir returns the directory of the version files.
func (db *DB) Dir() string {
	return db.dir
}

func (db *DB) checkOpen() error {
	if db.closed.Load() {
		return ErrClosed
	}
	return nil
}

// Versions returns the versions with a local file, in ascending order.
func (db *DB) Versions() ([]model.Hash, error) {
	if err := db.checkOpen(); err != nil {
		return nil, err
	}
	v, err := db.files.Versions()
	return v, translateError(err)
}

// Root returns the location committed under name.
func (db *DB) Root(ctx context.Context, name string) (model.FileIndex, error) {
	if err := db.checkOpen(); err != nil {
		return model.InvalidIndex(), err
	}
	idx, err := db.catalog.Get(ctx, name)
	return idx, translateError(err)
}

// Roots returns the sorted names of all committed roots.
func (db *DB) Roots(ctx context.Context) ([]string, error) {
	if err := db.checkOpen(); err != nil {
		return nil, err
	}
	names, err := db.catalog.List(ctx)
	return names, translateError(err)
}

// Commit flushes every version file and then atomically moves the root
// name from prev to next. An Invalid prev creates the root. A concurrent
// commit yields ErrConflict.
func (db *DB) Commit(ctx context.Context, name string, prev, next model.FileIndex) error {
	if err := db.checkOpen(); err != nil {
		return err
	}
	if err := db.orch.Flush(ctx); err != nil {
		return translateError(err)
	}
	err := db.catalog.CompareAndSwap(ctx, name, prev, next)
	db.opts.logger.LogCommit(ctx, name, next, err)
	return translateError(err)
}

// Flush writes the buffered pages of every version file to disk.
func (db *DB) Flush(ctx context.Context) error {
	if err := db.checkOpen(); err != nil {
		return err
	}
	return translateError(db.orch.Flush(ctx))
}

// Evict drops the clean cached values of version and returns how many were dropped.
// References held by callers stay valid.
func (db *DB) Evict(version model.Hash) int {
	return db.reg.EvictVersion(version)
}

// CacheStats returns the counters of the resident value cache.
func (db *DB) CacheStats() CacheStats {
	return db.reg.Stats()
}

// Close flushes and closes all version files.
func (db *DB) Close() error {
	if !db.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := db.files.Close()
	db.opts.logger.Info("closed", "dir", db.dir)
	return translateError(err)
}
