package lazy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMap(t *testing.T) {
	m := NewMap[int]()
	assert.Equal(t, 0, m.Len())

	m.Put(9, NewRef(90, 1))
	m.Put(1, NewRef(10, 1))
	m.Put(5, Null[int]())

	assert.Equal(t, 3, m.Len())
	assert.Equal(t, []uint32{1, 5, 9}, m.Keys())

	ref, ok := m.Get(9)
	assert.True(t, ok)
	v, _ := ref.Peek()
	assert.Equal(t, 90, v)

	var seen []uint32
	m.Range(func(key uint32, _ *Ref[int]) bool {
		seen = append(seen, key)
		return key < 5
	})
	assert.Equal(t, []uint32{1, 5}, seen)

	assert.True(t, m.Delete(5))
	assert.False(t, m.Delete(5))

	entries := m.Entries()
	assert.Len(t, entries, 2)
	assert.Equal(t, uint32(1), entries[0].Key)
	assert.Equal(t, uint32(9), entries[1].Key)
}

func TestMap_NilAndZero(t *testing.T) {
	var nilMap *Map[int]
	assert.Equal(t, 0, nilMap.Len())
	assert.Nil(t, nilMap.Entries())

	var zero Map[int]
	zero.Put(3, NewRef(1, 1))
	assert.Equal(t, []uint32{3}, zero.Keys())
}
