package persist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hupe1980/lazyvec/internal/buffered"
	"github.com/hupe1980/lazyvec/internal/lazy"
	"github.com/hupe1980/lazyvec/internal/serialize"
	"github.com/hupe1980/lazyvec/model"
)

// ErrStaleIndex is returned when a previous location lies outside its version file.
var ErrStaleIndex = errors.New("persist: previous file index is outside its version file")

// Options configures an Orchestrator.
type Options struct {
	// Logger receives a debug trace per write. Defaults to a discarding logger.
	Logger *slog.Logger

	// Registry, when set, learns every value written so later loads of the
	// new locations return the resident instances.
	Registry *serialize.Registry
}

// Orchestrator writes values into a buffered file set.
type Orchestrator struct {
	files  *buffered.Set
	logger *slog.Logger
	reg    *serialize.Registry
}

// New creates an Orchestrator over files.
func New(files *buffered.Set, optFns ...func(o *Options)) *Orchestrator {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &Orchestrator{files: files, logger: opts.Logger, reg: opts.Registry}
}

// Files returns the file set written to.
func (o *Orchestrator) Files() *buffered.Set {
	return o.files
}

// WriteNode writes the resident value of ref and returns its new location.
//
// The target version is the version of prev when prev is valid, otherwise the
// value's version. A valid prev is rewritten in place; otherwise the record is
// appended at the end of the file. Nested references written along the way
// learn their locations before WriteNode returns. ref's own location is left
// to the caller. Unresolved records of older versions reached from ref are
// loaded through the registry and copied; ctx bounds those loads.
func WriteNode[T any](ctx context.Context, o *Orchestrator, ref *lazy.Ref[T], codec serialize.Codec[T], prev model.FileIndex) (model.FileIndex, error) {
	if ref == nil {
		return model.InvalidIndex(), fmt.Errorf("%w: nil reference", serialize.ErrUnresolved)
	}

	version := ref.CurrentVersion()
	if prev.IsValid() {
		version = prev.Version
	}

	f, err := o.files.Get(version)
	if err != nil {
		return model.InvalidIndex(), err
	}

	f.LockAppend()
	defer f.UnlockAppend()

	mode := "append"
	var (
		enc *serialize.Encoder
		off model.FileOffset
	)
	err = f.WithCursor(func(c buffered.Cursor) error {
		enc = serialize.NewEncoder(f, c)
		if o.reg != nil {
			enc.UseRegistry(ctx, o.reg)
			enc.Observe(func(idx model.FileIndex, v any) { o.reg.Register(idx, v) })
		}
		if prev.IsValid() {
			mode = "in-place"
			if int64(prev.Offset) >= f.Size() {
				return fmt.Errorf("%w: %s, size %d", ErrStaleIndex, prev, f.Size())
			}
			if err := enc.Seek(prev.Offset); err != nil {
				return err
			}
		} else if _, err := enc.SeekEnd(); err != nil {
			return err
		}

		var err error
		off, err = serialize.EncodeRoot(enc, ref, codec)
		return err
	})
	if err != nil {
		o.logger.ErrorContext(ctx, "write failed",
			"version", version,
			"mode", mode,
			"prev", prev.String(),
			"error", err,
		)
		return model.InvalidIndex(), err
	}

	enc.Commit()

	idx := model.ValidIndex(off, version)
	o.logger.DebugContext(ctx, "write completed",
		"version", version,
		"offset", off,
		"mode", mode,
		"size", f.Size(),
	)
	return idx, nil
}

// PersistUpdate writes ref and publishes its new location on ref.
//
// The record is rewritten in place when its current location belongs to a
// version not older than the value; otherwise it is appended to the value's
// version. The value is marked clean for the generation that was written.
func PersistUpdate[T any](ctx context.Context, o *Orchestrator, ref *lazy.Ref[T], codec serialize.Codec[T]) (model.FileIndex, error) {
	if ref == nil {
		return model.InvalidIndex(), fmt.Errorf("%w: nil reference", serialize.ErrUnresolved)
	}
	snap := ref.Snapshot()
	if snap.Null || !snap.Resident {
		return model.InvalidIndex(), fmt.Errorf("%w: no resident value for %s", serialize.ErrUnresolved, snap.Index)
	}

	m, mutable := any(snap.Value).(serialize.Mutable)
	var gen uint64
	if mutable {
		gen = m.Generation()
	}

	prev := snap.Index
	if prev.IsValid() && prev.Version < snap.Version {
		prev = model.InvalidIndex()
	}

	idx, err := WriteNode(ctx, o, ref, codec, prev)
	if err != nil {
		return model.InvalidIndex(), err
	}

	if err := ref.BindFileIndex(idx); err != nil {
		return model.InvalidIndex(), err
	}
	if mutable {
		m.MarkClean(gen)
	}
	if o.reg != nil {
		o.reg.Register(idx, snap.Value)
	}
	return idx, nil
}

// Flush writes the buffered pages of every version file to disk.
func (o *Orchestrator) Flush(ctx context.Context) error {
	if err := o.files.Flush(ctx); err != nil {
		o.logger.ErrorContext(ctx, "flush failed", "error", err)
		return err
	}
	return nil
}
