package lazy

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/hupe1980/lazyvec/model"
)

var (
	// ErrVersionRegression is returned when binding an index whose version
	// precedes the version of the resident value.
	ErrVersionRegression = errors.New("lazy: file index version precedes value version")

	// ErrNullRef is returned when binding an index to a null reference.
	ErrNullRef = errors.New("lazy: null reference")

	// ErrKept is returned by Relocate when the resident value must stay.
	ErrKept = errors.New("lazy: resident value kept")
)

// Snapshot is one immutable state of a Ref.
type Snapshot[T any] struct {
	Value    T
	Resident bool
	Null     bool
	Index    model.FileIndex
	Version  model.Hash
}

// Ref is a lazily resolved, atomically republished reference.
// The zero value is an unresolved reference with an invalid index.
type Ref[T any] struct {
	cell atomic.Pointer[Snapshot[T]]
}

// NewRef returns a reference to a resident, not yet persisted value.
func NewRef[T any](v T, version model.Hash) *Ref[T] {
	r := &Ref[T]{}
	r.cell.Store(&Snapshot[T]{Value: v, Resident: true, Index: model.InvalidIndex(), Version: version})
	return r
}

// Loaded returns a reference to a resident value persisted at idx.
func Loaded[T any](v T, idx model.FileIndex) *Ref[T] {
	r := &Ref[T]{}
	r.cell.Store(&Snapshot[T]{Value: v, Resident: true, Index: idx, Version: idx.Version})
	return r
}

// Unloaded returns a placeholder that resolves from idx on demand.
func Unloaded[T any](idx model.FileIndex) *Ref[T] {
	r := &Ref[T]{}
	r.cell.Store(&Snapshot[T]{Index: idx, Version: idx.Version})
	return r
}

// Null returns the explicit null reference.
func Null[T any]() *Ref[T] {
	r := &Ref[T]{}
	r.cell.Store(&Snapshot[T]{Null: true, Index: model.InvalidIndex()})
	return r
}

func (r *Ref[T]) load() *Snapshot[T] {
	if s := r.cell.Load(); s != nil {
		return s
	}
	return &Snapshot[T]{}
}

// Snapshot returns a copy of the current state.
func (r *Ref[T]) Snapshot() Snapshot[T] {
	return *r.load()
}

// Peek returns the resident value without triggering a load.
func (r *Ref[T]) Peek() (T, bool) {
	s := r.load()
	return s.Value, s.Resident
}

// FileIndex returns the last known persisted location.
func (r *Ref[T]) FileIndex() model.FileIndex {
	return r.load().Index
}

// CurrentVersion returns the logical version of the resident value.
func (r *Ref[T]) CurrentVersion() model.Hash {
	return r.load().Version
}

// IsNull reports whether r is the explicit null reference.
func (r *Ref[T]) IsNull() bool {
	return r.load().Null
}

// IsResident reports whether a value is held in memory.
func (r *Ref[T]) IsResident() bool {
	return r.load().Resident
}

// Publish installs transform(current) with a compare-and-swap and retries
// the whole cycle when a concurrent publisher won. transform receives a copy
// and must not retain it. An error from transform aborts without change.
func (r *Ref[T]) Publish(transform func(Snapshot[T]) (Snapshot[T], error)) error {
	for {
		cur := r.cell.Load()
		var base Snapshot[T]
		if cur != nil {
			base = *cur
		}
		next, err := transform(base)
		if err != nil {
			return err
		}
		if r.cell.CompareAndSwap(cur, &next) {
			return nil
		}
	}
}

// BindFileIndex publishes a new persisted location for the current value.
func (r *Ref[T]) BindFileIndex(idx model.FileIndex) error {
	return r.Publish(func(s Snapshot[T]) (Snapshot[T], error) {
		if s.Null {
			return s, ErrNullRef
		}
		if idx.IsValid() && s.Resident && idx.Version < s.Version {
			return s, fmt.Errorf("%w: index %s, value version %d", ErrVersionRegression, idx, s.Version)
		}
		s.Index = idx
		if !s.Resident && idx.IsValid() {
			s.Version = idx.Version
		}
		return s, nil
	})
}

// SetValue replaces the resident value. The persisted index is kept so the
// next flush can rewrite it in place.
func (r *Ref[T]) SetValue(v T, version model.Hash) {
	_ = r.Publish(func(s Snapshot[T]) (Snapshot[T], error) {
		s.Value = v
		s.Resident = true
		s.Null = false
		s.Version = version
		return s, nil
	})
}

// Fill installs v as the resident value unless one is already present and
// returns the value that ended up resident.
func (r *Ref[T]) Fill(v T) T {
	var out T
	_ = r.Publish(func(s Snapshot[T]) (Snapshot[T], error) {
		if !s.Resident {
			s.Value = v
			s.Resident = true
		}
		out = s.Value
		return s, nil
	})
	return out
}

// Advance returns a new reference owned by version that points where src
// points. A persisted value is not carried over and resolves from its
// location on demand; an unpersisted one stays resident.
func Advance[T any](src *Ref[T], version model.Hash) *Ref[T] {
	s := src.load()
	if s.Null {
		return Null[T]()
	}
	r := &Ref[T]{}
	if s.Index.IsValid() {
		r.cell.Store(&Snapshot[T]{Index: s.Index, Version: version})
	} else {
		r.cell.Store(&Snapshot[T]{Value: s.Value, Resident: s.Resident, Index: s.Index, Version: version})
	}
	return r
}

// Relocate points r at idx and drops the resident value, so the next
// resolution loads the record stored there. keep, when non-nil, vetoes the
// move for a resident value.
func (r *Ref[T]) Relocate(idx model.FileIndex, keep func(T) bool) error {
	return r.Publish(func(s Snapshot[T]) (Snapshot[T], error) {
		if s.Null {
			return s, ErrNullRef
		}
		if idx.Version < s.Version {
			return s, fmt.Errorf("%w: index %s, reference version %d", ErrVersionRegression, idx, s.Version)
		}
		if s.Resident && keep != nil && keep(s.Value) {
			return s, ErrKept
		}
		return Snapshot[T]{Index: idx, Version: idx.Version}, nil
	})
}
