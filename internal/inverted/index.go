package inverted

import (
	"context"
	"slices"
	"sync"

	"github.com/hupe1980/lazyvec/internal/lazy"
	"github.com/hupe1980/lazyvec/internal/serialize"
	"github.com/hupe1980/lazyvec/model"
)

// Index is a base-4 trie of items rooted at dimension 0.
// Unresolved items are loaded through the registry on access.
type Index[T any] struct {
	mu      sync.Mutex
	root    *lazy.Ref[*Item[T]]
	reg     *serialize.Registry
	codec   ItemCodec[T]
	version model.Hash

	// fresh holds the items copied for version.
	fresh map[*Item[T]]struct{}
}

// New returns an empty index whose new items belong to version.
func New[T any](reg *serialize.Registry, elem serialize.Codec[T], version model.Hash) *Index[T] {
	return &Index[T]{
		root:    lazy.NewRef(NewItem[T](0, true), version),
		reg:     reg,
		codec:   ItemCodec[T]{Elem: elem},
		version: version,
		fresh:   make(map[*Item[T]]struct{}),
	}
}

// Open returns an index over an existing root reference.
func Open[T any](reg *serialize.Registry, elem serialize.Codec[T], root *lazy.Ref[*Item[T]], version model.Hash) *Index[T] {
	return &Index[T]{
		root:    root,
		reg:     reg,
		codec:   ItemCodec[T]{Elem: elem},
		version: version,
		fresh:   make(map[*Item[T]]struct{}),
	}
}

// Root returns the root reference, the handle to persist.
func (x *Index[T]) Root() *lazy.Ref[*Item[T]] {
	return x.root
}

// Codec returns the item codec of the index.
func (x *Index[T]) Codec() ItemCodec[T] {
	return x.codec
}

// Advance makes version the target of later inserts and of the next
// persist of the root. Items persisted in older versions are copied on
// their next modification, so earlier versions keep their contents.
func (x *Index[T]) Advance(ctx context.Context, version model.Hash) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	x.version = version
	x.fresh = make(map[*Item[T]]struct{})
	root, err := x.writable(ctx, x.root)
	if err != nil {
		return err
	}
	if x.root.CurrentVersion() < version {
		root.Touch()
		x.root.SetValue(root, version)
	}
	return nil
}

// writable resolves ref for a modification in x.version. An item persisted
// in an older version is replaced by a copy first.
func (x *Index[T]) writable(ctx context.Context, ref *lazy.Ref[*Item[T]]) (*Item[T], error) {
	it, err := serialize.Resolve(ctx, x.reg, ref, x.codec)
	if err != nil {
		return nil, err
	}
	if _, ok := x.fresh[it]; ok {
		return it, nil
	}
	idx := ref.FileIndex()
	if !idx.IsValid() || idx.Version >= x.version {
		return it, nil
	}
	c := it.NextVersion(x.version)
	ref.SetValue(c, x.version)
	x.fresh[c] = struct{}{}
	return c, nil
}

// Path returns the base-4 digits leading from the root to dim.
func Path(dim uint32) []uint32 {
	var digits []uint32
	for d := dim; d > 0; d /= 4 {
		digits = append(digits, d%4)
	}
	slices.Reverse(digits)
	return digits
}

// Insert stores value under key in the item of dim, materializing missing
// items on the path. Every item on the path is marked dirty.
func (x *Index[T]) Insert(ctx context.Context, dim, key uint32, value T) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	cur, err := x.writable(ctx, x.root)
	if err != nil {
		return err
	}
	cur.Touch()

	for _, digit := range Path(dim) {
		childDim := cur.DimIndex*4 + digit
		ref, ok := cur.Children.Get(digit)
		if !ok {
			ref = lazy.NewRef(NewItem[T](childDim, true), x.version)
			cur.Children.Put(digit, ref)
		}
		next, err := x.writable(ctx, ref)
		if err != nil {
			return err
		}
		next.Touch()
		cur = next
	}

	cur.SetImplicit(false)
	cur.Put(key, lazy.NewRef(value, x.version))
	return nil
}

// Find returns the item of dim without materializing anything.
func (x *Index[T]) Find(ctx context.Context, dim uint32) (*Item[T], bool, error) {
	cur, err := serialize.Resolve(ctx, x.reg, x.root, x.codec)
	if err != nil {
		return nil, false, err
	}
	for _, digit := range Path(dim) {
		ref, ok := cur.Children.Get(digit)
		if !ok || ref.IsNull() {
			return nil, false, nil
		}
		if cur, err = serialize.Resolve(ctx, x.reg, ref, x.codec); err != nil {
			return nil, false, err
		}
	}
	return cur, true, nil
}

// Get returns the value stored under key in the item of dim.
func (x *Index[T]) Get(ctx context.Context, dim, key uint32) (T, bool, error) {
	var zero T
	it, ok, err := x.Find(ctx, dim)
	if err != nil || !ok {
		return zero, false, err
	}
	ref, ok := it.Data.Get(key)
	if !ok || ref.IsNull() {
		return zero, false, nil
	}
	v, err := serialize.Resolve(ctx, x.reg, ref, x.codec.Elem)
	if err != nil {
		return zero, false, err
	}
	return v, true, nil
}
