package serialize

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/lazyvec/internal/buffered"
	"github.com/hupe1980/lazyvec/internal/cache"
	"github.com/hupe1980/lazyvec/internal/lazy"
	"github.com/hupe1980/lazyvec/model"
)

const (
	// DefaultMaxLoads is the default number of nested levels resolved eagerly.
	DefaultMaxLoads = 2
	// DefaultCapacity is the default number of clean values kept resident.
	DefaultCapacity = 65536
)

// Options configures a Registry.
type Options struct {
	// MaxLoads bounds how many nested levels a load resolves eagerly.
	MaxLoads int

	// Capacity bounds the number of cached values. Values with unflushed
	// mutations are not counted against eviction. Zero disables eviction.
	Capacity int
}

type key struct {
	offset  model.FileOffset
	version model.Hash
}

func keyOf(idx model.FileIndex) key {
	return key{offset: idx.Offset, version: idx.Version}
}

type call struct {
	done chan struct{}
	val  any
	err  error
}

// Stats reports registry counters.
type Stats struct {
	Hits         int64
	Misses       int64
	Evictions    int64
	Decodes      int64
	Placeholders int64
	Resident     int
}

// Registry resolves file indices to resident values. At most one value
// exists per (offset, version) at any time.
type Registry struct {
	files *buffered.Set
	opts  Options

	mu       sync.Mutex
	inflight map[key]*call
	values   *cache.LRU[key, any]

	decodes      atomic.Int64
	placeholders atomic.Int64
}

// NewRegistry creates a registry reading from files.
func NewRegistry(files *buffered.Set, optFns ...func(o *Options)) *Registry {
	opts := Options{
		MaxLoads: DefaultMaxLoads,
		Capacity: DefaultCapacity,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxLoads < 0 {
		opts.MaxLoads = 0
	}

	return &Registry{
		files:    files,
		opts:     opts,
		inflight: make(map[key]*call),
		values:   cache.NewLRU[key, any](opts.Capacity, isDirty),
	}
}

func isDirty(v any) bool {
	m, ok := v.(Mutable)
	return ok && m.Dirty()
}

// Files returns the file set the registry reads from.
func (r *Registry) Files() *buffered.Set {
	return r.files
}

// MaxLoads returns the default depth budget of a load.
func (r *Registry) MaxLoads() int {
	return r.opts.MaxLoads
}

// Load returns the value persisted at idx using the registry's default depth budget.
func Load[T any](ctx context.Context, r *Registry, idx model.FileIndex, codec Codec[T]) (T, error) {
	return LoadWith(ctx, r, idx, codec, r.opts.MaxLoads)
}

// LoadWith returns the value persisted at idx, resolving at most maxLoads
// nested levels eagerly. Concurrent callers for the same idx share one decode;
// ctx only bounds the wait for another caller's decode.
func LoadWith[T any](ctx context.Context, r *Registry, idx model.FileIndex, codec Codec[T], maxLoads int) (T, error) {
	var zero T
	if !idx.IsValid() {
		return zero, ErrInvalidFileIndex
	}

	k := keyOf(idx)
	r.mu.Lock()
	if v, ok := r.values.Get(k); ok {
		r.mu.Unlock()
		return cast[T](v, idx)
	}
	if c, ok := r.inflight[k]; ok {
		r.mu.Unlock()
		select {
		case <-c.done:
		case <-ctx.Done():
			return zero, ctx.Err()
		}
		if c.err != nil {
			return zero, c.err
		}
		return cast[T](c.val, idx)
	}
	c := &call{done: make(chan struct{})}
	r.inflight[k] = c
	r.mu.Unlock()

	return create(newDecoder(r, maxLoads), idx, codec, k, c)
}

// loadNested resolves a nested reference. It never waits: a record that is
// being decoded by any caller yields ok=false.
func loadNested[T any](dec *Decoder, idx model.FileIndex, codec Codec[T]) (T, bool, error) {
	var zero T
	r := dec.reg
	k := keyOf(idx)

	r.mu.Lock()
	if v, ok := r.values.Get(k); ok {
		r.mu.Unlock()
		t, err := cast[T](v, idx)
		return t, err == nil, err
	}
	if _, busy := r.inflight[k]; busy {
		r.mu.Unlock()
		r.placeholders.Add(1)
		return zero, false, nil
	}
	c := &call{done: make(chan struct{})}
	r.inflight[k] = c
	r.mu.Unlock()

	v, err := create(dec.child(), idx, codec, k, c)
	if err != nil {
		return zero, false, err
	}
	return v, true, nil
}

func create[T any](dec *Decoder, idx model.FileIndex, codec Codec[T], k key, c *call) (v T, err error) {
	r := dec.reg
	defer func() {
		r.mu.Lock()
		delete(r.inflight, k)
		if err == nil {
			r.values.Add(k, v)
		}
		r.mu.Unlock()

		c.val, c.err = v, err
		close(c.done)
	}()

	dec.enter(idx)
	defer dec.leave(idx)

	r.decodes.Add(1)
	v, err = codec.Decode(dec, idx)
	if err != nil {
		return v, fmt.Errorf("decode %s: %w", idx, err)
	}
	return v, nil
}

func cast[T any](v any, idx model.FileIndex) (T, error) {
	t, ok := v.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: %s holds %T", ErrTypeMismatch, idx, v)
	}
	return t, nil
}

// Resolve returns the value behind ref, loading and installing it when the
// reference is an unresolved placeholder.
func Resolve[T any](ctx context.Context, r *Registry, ref *lazy.Ref[T], codec Codec[T]) (T, error) {
	var zero T
	if ref == nil || ref.IsNull() {
		return zero, lazy.ErrNullRef
	}
	if v, ok := ref.Peek(); ok {
		return v, nil
	}
	v, err := Load(ctx, r, ref.FileIndex(), codec)
	if err != nil {
		return zero, err
	}
	return ref.Fill(v), nil
}

// Register caches v as the value persisted at idx, replacing any clean value.
// It returns false when a decode of idx is in flight.
func (r *Registry) Register(idx model.FileIndex, v any) bool {
	if !idx.IsValid() {
		return false
	}
	k := keyOf(idx)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, busy := r.inflight[k]; busy {
		return false
	}
	r.values.Add(k, v)
	return true
}

// EvictVersion drops the clean values of one version and returns how many were dropped.
func (r *Registry) EvictVersion(version model.Hash) int {
	return r.values.Invalidate(func(k key) bool { return k.version == version })
}


// Stats returns a snapshot of the registry counters.
func (r *Registry) Stats() Stats {
	hits, misses, evictions := r.values.Stats()
	return Stats{
		Hits:         hits,
		Misses:       misses,
		Evictions:    evictions,
		Decodes:      r.decodes.Load(),
		Placeholders: r.placeholders.Load(),
		Resident:     r.values.Len(),
	}
}
