package graph

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

func setup(t *testing.T) (*persist.Orchestrator, *serialize.Registry) {
	t.Helper()
	files, err := buffered.NewSet(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = files.Close() })
	return persist.New(files), serialize.NewRegistry(files)
}

func TestNode_Mutations(t *testing.T) {
	n := NewNode(1, 3)
	assert.True(t, n.Dirty())
	n.MarkClean(n.Generation())
	assert.False(t, n.Dirty())
	assert.Equal(t, Flags(0), n.Flags())

	n.AddNeighbor(2, lazy.NewRef(NewNode(2, 3), 1))
	assert.True(t, n.Dirty())
	_, ok := n.Neighbor(2)
	assert.True(t, ok)

	n.MarkClean(n.Generation())
	assert.False(t, n.RemoveNeighbor(9))
	assert.False(t, n.Dirty())
	assert.True(t, n.RemoveNeighbor(2))
	assert.True(t, n.Dirty())

	n.SetProp(model.PropRef{Offset: 4, Length: 8})
	n.SetPrev(lazy.Unloaded[*Node](model.ValidIndex(0, 1)))
	assert.Equal(t, FlagProp|FlagPrev, n.Flags())
}

func TestNode_NextVersion(t *testing.T) {
	n := NewNode(1, 2)
	persisted := lazy.Loaded(NewNode(2, 2), model.ValidIndex(40, 1))
	n.AddNeighbor(2, persisted)
	n.AddNeighbor(3, lazy.NewRef(NewNode(3, 2), 1))
	n.SetProp(model.PropRef{Offset: 4, Length: 8})
	prev := lazy.Loaded(n, model.ValidIndex(0, 1))

	next := n.NextVersion(prev, 2)
	assert.True(t, next.Dirty())
	assert.Same(t, prev, next.Prev())
	assert.True(t, next.Prop().IsZero())
	assert.Equal(t, FlagPrev, next.Flags())

	ref, ok := next.Neighbor(2)
	require.True(t, ok)
	assert.NotSame(t, persisted, ref)
	assert.False(t, ref.IsResident())
	assert.Equal(t, model.ValidIndex(40, 1), ref.FileIndex())
	assert.Equal(t, model.Hash(2), ref.CurrentVersion())

	unpersisted, ok := next.Neighbor(3)
	require.True(t, ok)
	assert.True(t, unpersisted.IsResident())

	next.RemoveNeighbor(2)
	_, ok = n.Neighbor(2)
	assert.True(t, ok, "the previous version keeps its neighbors")
}

func TestCodec_RoundTrip(t *testing.T) {
	o, reg := setup(t)
	ctx := context.Background()
	codec := Codec{}

	n := NewNode(42, 4)
	for _, id := range []model.VectorID{7, 3, 11} {
		n.AddNeighbor(id, lazy.NewRef(NewNode(id, 0), 1))
	}
	n.AddNeighbor(99, lazy.Null[*Node]())
	n.SetProp(model.PropRef{Offset: 1234, Length: 56})
	ref := lazy.NewRef(n, 1)

	idx, err := persist.PersistUpdate(context.Background(), o, ref, codec)
	require.NoError(t, err)

	got, err := serialize.Load(ctx, reg, idx, codec)
	require.NoError(t, err)
	assert.Equal(t, n.ID, got.ID)
	assert.Equal(t, n.Level, got.Level)
	assert.Equal(t, n.Prop(), got.Prop())
	assert.Equal(t, n.Neighbors.Keys(), got.Neighbors.Keys())
	assert.Nil(t, got.Prev())
	assert.False(t, got.Dirty())

	for _, id := range []model.VectorID{3, 7, 11} {
		want, _ := n.Neighbor(id)
		have, ok := got.Neighbor(id)
		require.True(t, ok)
		assert.Equal(t, want.FileIndex(), have.FileIndex())

		nb, err := serialize.Resolve(ctx, reg, have, codec)
		require.NoError(t, err)
		assert.Equal(t, id, nb.ID)
	}

	null, ok := got.Neighbor(99)
	require.True(t, ok)
	assert.True(t, null.IsNull())
}

func TestCodec_Cycle(t *testing.T) {
	o, reg := setup(t)
	ctx := context.Background()
	codec := Codec{}

	a := NewNode(1, 0)
	b := NewNode(2, 0)
	refA := lazy.NewRef(a, 1)
	refB := lazy.NewRef(b, 1)
	a.AddNeighbor(2, refB)
	b.AddNeighbor(1, refA)

	idxA, err := persist.PersistUpdate(context.Background(), o, refA, codec)
	require.NoError(t, err)
	assert.True(t, refB.FileIndex().IsValid())
	assert.False(t, b.Dirty())

	got, err := serialize.LoadWith(ctx, reg, idxA, codec, 16)
	require.NoError(t, err)

	nb, _ := got.Neighbor(2)
	gotB, ok := nb.Peek()
	require.True(t, ok)

	back, _ := gotB.Neighbor(1)
	assert.False(t, back.IsResident())
	assert.Equal(t, idxA, back.FileIndex())

	resolved, err := serialize.Resolve(ctx, reg, back, codec)
	require.NoError(t, err)
	assert.Same(t, got, resolved)
}

func TestCodec_PrevNotPersisted(t *testing.T) {
	o, _ := setup(t)
	n := NewNode(1, 0)
	n.SetPrev(lazy.NewRef(NewNode(1, 0), 1))

	_, err := persist.PersistUpdate(context.Background(), o, lazy.NewRef(n, 2), Codec{})
	assert.ErrorIs(t, err, ErrPrevNotPersisted)
}

func TestCodec_HeaderLayout(t *testing.T) {
	o, _ := setup(t)
	n := NewNode(0x01020304, 5)
	n.SetProp(model.PropRef{Offset: 9, Length: 10})
	idx, err := persist.PersistUpdate(context.Background(), o, lazy.NewRef(n, 1), Codec{})
	require.NoError(t, err)

	f, err := o.Files().Get(1)
	require.NoError(t, err)
	require.NoError(t, f.WithCursor(func(c buffered.Cursor) error {
		header, err := f.ReadBytes(c, HeaderSize)
		require.NoError(t, err)
		assert.Equal(t, []byte{4, 3, 2, 1}, header[0:4])
		assert.Equal(t, byte(5), header[4])
		assert.Equal(t, byte(FlagProp), header[5])
		// neighbors directly after the header, prop after the empty collection
		assert.Equal(t, []byte{HeaderSize, 0, 0, 0}, header[6:10])
		assert.Equal(t, []byte{HeaderSize + 4, 0, 0, 0}, header[10:14])
		assert.Equal(t, []byte{0xff, 0xff, 0xff, 0xff}, header[14:18])
		return nil
	}))
	assert.Equal(t, model.ValidIndex(0, 1), idx)
}
