package inverted

import (
	"context"
	"testing"

	"github.com/hupe1980/lazyvec/internal/buffered"
	"github.com/hupe1980/lazyvec/internal/lazy"
	"github.com/hupe1980/lazyvec/internal/persist"
	"github.com/hupe1980/lazyvec/internal/serialize"
	"github.com/hupe1980/lazyvec/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*buffered.Set, *persist.Orchestrator) {
	t.Helper()
	files, err := buffered.NewSet(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = files.Close() })
	return files, persist.New(files)
}

func TestPath(t *testing.T) {
	assert.Empty(t, Path(0))
	assert.Equal(t, []uint32{3}, Path(3))
	assert.Equal(t, []uint32{1, 0}, Path(4))
	assert.Equal(t, []uint32{1, 2, 3}, Path(27))
}

func TestIndex_InsertAndFind(t *testing.T) {
	files, _ := setup(t)
	ctx := context.Background()
	x := New[float32](serialize.NewRegistry(files), serialize.Float32{}, 1)

	require.NoError(t, x.Insert(ctx, 27, 5, 0.25))
	require.NoError(t, x.Insert(ctx, 27, 6, 0.5))
	require.NoError(t, x.Insert(ctx, 0, 1, 1))

	it, ok, err := x.Find(ctx, 27)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint32(27), it.DimIndex)
	assert.False(t, it.Implicit())
	assert.Equal(t, 2, it.Data.Len())

	mid, ok, err := x.Find(ctx, 6)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, mid.Implicit())

	_, ok, err = x.Find(ctx, 28)
	require.NoError(t, err)
	assert.False(t, ok)

	v, ok, err := x.Get(ctx, 27, 6)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, float32(0.5), v)

	_, ok, err = x.Get(ctx, 27, 7)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIndex_PersistAndReload(t *testing.T) {
	files, o := setup(t)
	ctx := context.Background()
	x := New[float32](serialize.NewRegistry(files), serialize.Float32{}, 1)

	for dim := uint32(0); dim < 40; dim += 3 {
		require.NoError(t, x.Insert(ctx, dim, dim, float32(dim)/2))
	}
	idx, err := persist.PersistUpdate(context.Background(), o, x.Root(), x.Codec())
	require.NoError(t, err)

	reg := serialize.NewRegistry(files, func(o *serialize.Options) { o.MaxLoads = 1 })
	root, err := serialize.Load(ctx, reg, idx, x.Codec())
	require.NoError(t, err)
	y := Open[float32](reg, serialize.Float32{}, lazy.Loaded(root, idx), 1)

	for dim := uint32(0); dim < 40; dim += 3 {
		v, ok, err := y.Get(ctx, dim, dim)
		require.NoError(t, err)
		require.True(t, ok, "dim %d", dim)
		assert.Equal(t, float32(dim)/2, v)
	}

	// Incremental insert after reload rewrites the path in place.
	require.NoError(t, y.Insert(ctx, 39, 1, 9))
	idx2, err := persist.PersistUpdate(context.Background(), o, y.Root(), y.Codec())
	require.NoError(t, err)
	assert.Equal(t, idx, idx2)

	fresh := serialize.NewRegistry(files)
	root2, err := serialize.Load(ctx, fresh, idx2, y.Codec())
	require.NoError(t, err)
	z := Open[float32](fresh, serialize.Float32{}, lazy.Loaded(root2, idx2), 1)
	v, ok, err := z.Get(ctx, 39, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, float32(9), v)
	v, ok, err = z.Get(ctx, 39, 39)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, float32(19.5), v)
}

func TestIndex_Advance(t *testing.T) {
	files, _ := setup(t)
	ctx := context.Background()
	reg := serialize.NewRegistry(files)
	o := persist.New(files, func(po *persist.Options) { po.Registry = reg })
	x := New[float32](reg, serialize.Float32{}, 1)

	require.NoError(t, x.Insert(ctx, 5, 1, 1))
	require.NoError(t, x.Insert(ctx, 2, 1, 3))
	idx1, err := persist.PersistUpdate(ctx, o, x.Root(), x.Codec())
	require.NoError(t, err)
	v1Item, ok, err := x.Find(ctx, 5)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, x.Advance(ctx, 2))
	require.NoError(t, x.Insert(ctx, 5, 2, 2))
	idx2, err := persist.PersistUpdate(ctx, o, x.Root(), x.Codec())
	require.NoError(t, err)
	assert.Equal(t, model.Hash(1), idx1.Version)
	assert.Equal(t, model.ValidIndex(0, 2), idx2)

	// The version 1 item is untouched in memory and on disk.
	assert.Equal(t, 1, v1Item.Data.Len())
	ref, ok := v1Item.Data.Get(1)
	require.True(t, ok)
	assert.Equal(t, model.Hash(1), ref.FileIndex().Version)

	fresh := serialize.NewRegistry(files)
	old := Open[float32](fresh, serialize.Float32{}, lazy.Unloaded[*Item[float32]](idx1), 1)
	_, ok, err = old.Get(ctx, 5, 2)
	require.NoError(t, err)
	assert.False(t, ok)

	cur := Open[float32](fresh, serialize.Float32{}, lazy.Unloaded[*Item[float32]](idx2), 2)
	for _, tc := range []struct {
		dim, key uint32
		want     float32
	}{{5, 1, 1}, {5, 2, 2}, {2, 1, 3}} {
		v, ok, err := cur.Get(ctx, tc.dim, tc.key)
		require.NoError(t, err)
		require.True(t, ok, "dim %d key %d", tc.dim, tc.key)
		assert.Equal(t, tc.want, v)
	}

	// Every item reachable from the new root lives in version 2.
	it, ok, err := cur.Find(ctx, 2)
	require.NoError(t, err)
	require.True(t, ok)
	dref, ok := it.Data.Get(1)
	require.True(t, ok)
	assert.Equal(t, model.Hash(2), dref.FileIndex().Version)
}

func TestItemCodec_HeaderSize(t *testing.T) {
	files, o := setup(t)
	ref := lazy.NewRef(NewItem[float32](3, false), 1)
	_, err := persist.PersistUpdate(context.Background(), o, ref, ItemCodec[float32]{Elem: serialize.Float32{}})
	require.NoError(t, err)

	f, err := files.Get(1)
	require.NoError(t, err)
	// header plus two empty collections
	assert.Equal(t, int64(HeaderSize+4+4), f.Size())
}
