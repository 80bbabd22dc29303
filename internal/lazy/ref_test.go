package lazy

import (
	"errors"
	"sync"
	"testing"

	"github.com/hupe1980/lazyvec/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRef_States(t *testing.T) {
	t.Run("resident", func(t *testing.T) {
		r := NewRef("a", 3)
		v, ok := r.Peek()
		assert.True(t, ok)
		assert.Equal(t, "a", v)
		assert.False(t, r.FileIndex().IsValid())
		assert.Equal(t, model.Hash(3), r.CurrentVersion())
		assert.False(t, r.IsNull())
	})

	t.Run("unloaded", func(t *testing.T) {
		idx := model.ValidIndex(40, 2)
		r := Unloaded[string](idx)
		_, ok := r.Peek()
		assert.False(t, ok)
		assert.Equal(t, idx, r.FileIndex())
		assert.Equal(t, model.Hash(2), r.CurrentVersion())
	})

	t.Run("null", func(t *testing.T) {
		r := Null[string]()
		assert.True(t, r.IsNull())
		assert.False(t, r.IsResident())
		assert.ErrorIs(t, r.BindFileIndex(model.ValidIndex(0, 1)), ErrNullRef)
	})

	t.Run("zero value", func(t *testing.T) {
		var r Ref[int]
		assert.False(t, r.IsResident())
		assert.False(t, r.FileIndex().IsValid())
		require.NoError(t, r.BindFileIndex(model.ValidIndex(8, 1)))
		assert.Equal(t, model.ValidIndex(8, 1), r.FileIndex())
	})
}

func TestRef_BindFileIndex(t *testing.T) {
	r := NewRef(1, 5)

	err := r.BindFileIndex(model.ValidIndex(10, 4))
	assert.ErrorIs(t, err, ErrVersionRegression)
	assert.False(t, r.FileIndex().IsValid())

	require.NoError(t, r.BindFileIndex(model.ValidIndex(10, 5)))
	require.NoError(t, r.BindFileIndex(model.ValidIndex(20, 6)))
	assert.Equal(t, model.ValidIndex(20, 6), r.FileIndex())
	assert.Equal(t, model.Hash(5), r.CurrentVersion())
}

func TestRef_SetValueKeepsIndex(t *testing.T) {
	r := Loaded("old", model.ValidIndex(12, 1))
	r.SetValue("new", 2)

	s := r.Snapshot()
	assert.Equal(t, "new", s.Value)
	assert.Equal(t, model.Hash(2), s.Version)
	assert.Equal(t, model.ValidIndex(12, 1), s.Index)
}

func TestRef_Fill(t *testing.T) {
	r := Unloaded[*int](model.ValidIndex(0, 1))
	a, b := new(int), new(int)

	assert.Same(t, a, r.Fill(a))
	assert.Same(t, a, r.Fill(b))
}

func TestRef_PublishAbort(t *testing.T) {
	r := NewRef(1, 1)
	boom := errors.New("boom")

	err := r.Publish(func(s Snapshot[int]) (Snapshot[int], error) {
		s.Value = 99
		return s, boom
	})
	assert.ErrorIs(t, err, boom)
	v, _ := r.Peek()
	assert.Equal(t, 1, v)
}

func TestRef_ConcurrentPublish(t *testing.T) {
	r := NewRef(0, 1)

	const workers, rounds = 8, 500
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range rounds {
				assert.NoError(t, r.Publish(func(s Snapshot[int]) (Snapshot[int], error) {
					s.Value++
					s.Index = model.ValidIndex(model.FileOffset(s.Value), s.Version)
					return s, nil
				}))
			}
		}()
	}

	// Readers must always see a value paired with its own index.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for range workers * rounds {
			s := r.Snapshot()
			if s.Index.IsValid() {
				assert.Equal(t, model.FileOffset(s.Value), s.Index.Offset)
			}
		}
	}()

	wg.Wait()
	<-done

	v, _ := r.Peek()
	assert.Equal(t, workers*rounds, v)
}

func TestAdvance(t *testing.T) {
	persisted := Loaded("v1", model.ValidIndex(12, 1))
	r := Advance(persisted, 2)
	assert.False(t, r.IsResident(), "persisted values resolve from their location")
	assert.Equal(t, model.ValidIndex(12, 1), r.FileIndex())
	assert.Equal(t, model.Hash(2), r.CurrentVersion())

	require.NoError(t, r.Relocate(model.ValidIndex(40, 2), nil))
	assert.Equal(t, model.ValidIndex(12, 1), persisted.FileIndex(), "source keeps its location")

	fresh := Advance(NewRef("new", 1), 2)
	v, ok := fresh.Peek()
	require.True(t, ok)
	assert.Equal(t, "new", v)

	assert.True(t, Advance(Null[string](), 2).IsNull())

	m := NewMap[string]()
	m.Put(1, persisted)
	adv := m.Advance(3)
	got, ok := adv.Get(1)
	require.True(t, ok)
	assert.NotSame(t, persisted, got)
	assert.Equal(t, model.Hash(3), got.CurrentVersion())
}

func TestRef_Relocate(t *testing.T) {
	r := Loaded("v", model.ValidIndex(0, 2))

	err := r.Relocate(model.ValidIndex(8, 1), nil)
	assert.ErrorIs(t, err, ErrVersionRegression)

	err = r.Relocate(model.ValidIndex(8, 2), func(string) bool { return true })
	assert.ErrorIs(t, err, ErrKept)
	assert.True(t, r.IsResident())

	require.NoError(t, r.Relocate(model.ValidIndex(8, 3), func(string) bool { return false }))
	assert.False(t, r.IsResident())
	assert.Equal(t, model.ValidIndex(8, 3), r.FileIndex())
	assert.Equal(t, model.Hash(3), r.CurrentVersion())

	assert.ErrorIs(t, Null[string]().Relocate(model.ValidIndex(0, 1), nil), ErrNullRef)
}
