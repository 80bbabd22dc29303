package lazyvec

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hupe1980/lazyvec/blobstore"
	"github.com/hupe1980/lazyvec/internal/buffered"
	"github.com/hupe1980/lazyvec/internal/fs"
	"github.com/hupe1980/lazyvec/internal/resource"
	"github.com/hupe1980/lazyvec/model"
	"golang.org/x/sync/errgroup"
)

const transferChunk = 1 << 20

func (db *DB) blobName(version model.Hash) string {
	return db.opts.archivePrefix + buffered.FileName(version)
}

// Archive uploads the given versions to bs, or every local version when none
// are given. Each version file is flushed and copied while its writers are
// held off, so the archived bytes are a consistent prefix of the file.
// Uploads run in parallel up to the configured number of background workers.
func (db *DB) Archive(ctx context.Context, bs blobstore.BlobStore, versions ...model.Hash) error {
	if err := db.checkOpen(); err != nil {
		return err
	}
	start := time.Now()
	if len(versions) == 0 {
		var err error
		if versions, err = db.files.Versions(); err != nil {
			return translateError(err)
		}
	}

	var total atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	for _, v := range versions {
		g.Go(func() error {
			if err := db.rc.AcquireBackground(gctx); err != nil {
				return err
			}
			defer db.rc.ReleaseBackground()

			n, err := db.archiveVersion(gctx, bs, v)
			total.Add(n)
			return err
		})
	}

	err := translateError(g.Wait())
	db.opts.metricsCollector.RecordArchive(len(versions), total.Load(), time.Since(start), err)
	db.opts.logger.LogArchive(ctx, len(versions), total.Load(), err)
	return err
}

func (db *DB) archiveVersion(ctx context.Context, bs blobstore.BlobStore, version model.Hash) (int64, error) {
	f, err := db.files.Lookup(version)
	if err != nil {
		return 0, err
	}
	f.LockAppend()
	defer f.UnlockAppend()

	if err := f.Flush(ctx); err != nil {
		return 0, err
	}
	src, err := db.opts.fileSystem.OpenFile(db.files.Path(version), os.O_RDONLY, 0)
	if err != nil {
		return 0, fmt.Errorf("archive version %d: %w", version, err)
	}
	defer func() { _ = src.Close() }()

	w, err := bs.Create(ctx, db.blobName(version))
	if err != nil {
		return 0, fmt.Errorf("archive version %d: %w", version, err)
	}
	n, err := db.transfer(ctx, w, io.LimitReader(src, f.Size()))
	if err != nil {
		if a, ok := w.(blobstore.Aborter); ok {
			_ = a.Abort()
		} else {
			_ = w.Close()
		}
		return n, fmt.Errorf("archive version %d: %w", version, err)
	}
	if err := w.Close(); err != nil {
		return n, fmt.Errorf("archive version %d: %w", version, err)
	}
	return n, nil
}

// transfer copies r to w in chunks charged against the IO limit.
func (db *DB) transfer(ctx context.Context, w io.Writer, r io.Reader) (int64, error) {
	return io.CopyBuffer(resource.NewWriter(ctx, w, db.rc), r, make([]byte, transferChunk))
}

// ArchivedVersions lists the versions archived in bs, in ascending order.
func (db *DB) ArchivedVersions(ctx context.Context, bs blobstore.BlobStore) ([]model.Hash, error) {
	names, err := bs.List(ctx, db.opts.archivePrefix)
	if err != nil {
		return nil, translateError(err)
	}
	var versions []model.Hash
	for _, name := range names {
		base := strings.TrimPrefix(name, db.opts.archivePrefix)
		if !strings.HasSuffix(base, buffered.FileExtension) {
			continue
		}
		v, err := strconv.ParseUint(strings.TrimSuffix(base, buffered.FileExtension), 10, 32)
		if err != nil {
			continue
		}
		versions = append(versions, model.Hash(v))
	}
	slices.Sort(versions)
	return versions, nil
}

// Restore downloads an archived version file from bs into the DB directory.
// It fails with ErrVersionExists when the version is already present locally.
// Concurrent restores of the same version share one download.
func (db *DB) Restore(ctx context.Context, bs blobstore.BlobStore, version model.Hash) error {
	if err := db.checkOpen(); err != nil {
		return err
	}
	key := strconv.FormatUint(uint64(version), 10)
	_, err, _ := db.restores.Do(key, func() (any, error) {
		start := time.Now()
		n, err := db.restoreVersion(ctx, bs, version)
		err = translateError(err)
		db.opts.metricsCollector.RecordRestore(n, time.Since(start), err)
		db.opts.logger.LogRestore(ctx, version, n, err)
		return nil, err
	})
	return err
}

func (db *DB) restoreVersion(ctx context.Context, bs blobstore.BlobStore, version model.Hash) (int64, error) {
	path := db.files.Path(version)
	fsys := db.opts.fileSystem

	// The reservation keeps handles off the version until the rename is done.
	release, err := db.files.Reserve(version)
	if errors.Is(err, buffered.ErrFileExists) {
		return 0, &ErrVersionExists{Version: version}
	} else if err != nil {
		return 0, err
	}
	defer release()

	if err := db.rc.AcquireBackground(ctx); err != nil {
		return 0, err
	}
	defer db.rc.ReleaseBackground()

	blob, err := bs.Open(ctx, db.blobName(version))
	if err != nil {
		return 0, fmt.Errorf("restore version %d: %w", version, err)
	}
	defer func() { _ = blob.Close() }()

	tmp := path + ".restore"
	dst, err := fsys.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, err
	}
	cleanup := func() {
		_ = dst.Close()
		_ = fsys.Remove(tmp)
	}

	var n int64
	if size := blob.Size(); size > 0 {
		rc, err := blob.ReadRange(ctx, 0, size)
		if err != nil {
			cleanup()
			return 0, fmt.Errorf("restore version %d: %w", version, err)
		}
		n, err = db.transfer(ctx, dst, rc)
		_ = rc.Close()
		if err == nil && n != size {
			err = fmt.Errorf("%w: got %d of %d bytes", io.ErrUnexpectedEOF, n, size)
		}
		if err != nil {
			cleanup()
			return n, fmt.Errorf("restore version %d: %w", version, err)
		}
	}

	if err := fs.Datasync(dst); err != nil {
		cleanup()
		return n, err
	}
	if err := dst.Close(); err != nil {
		_ = fsys.Remove(tmp)
		return n, err
	}
	if err := fsys.Rename(tmp, path); err != nil {
		_ = fsys.Remove(tmp)
		return n, err
	}
	return n, nil
}
