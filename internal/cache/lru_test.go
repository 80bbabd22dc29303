package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLRU_Eviction(t *testing.T) {
	c := NewLRU[int, string](2, nil)
	c.Add(1, "a")
	c.Add(2, "b")

	_, ok := c.Get(1) // 1 becomes most recent
	assert.True(t, ok)

	c.Add(3, "c")
	_, ok = c.Get(2)
	assert.False(t, ok, "least recently used entry should be evicted")
	assert.Equal(t, 2, c.Len())

	hits, misses, evictions := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
	assert.Equal(t, int64(1), evictions)
}

func TestLRU_Replace(t *testing.T) {
	c := NewLRU[int, string](2, nil)
	c.Add(1, "a")
	c.Add(1, "b")
	v, ok := c.Get(1)
	assert.True(t, ok)
	assert.Equal(t, "b", v)
	assert.Equal(t, 1, c.Len())
}

func TestLRU_Pinned(t *testing.T) {
	pinned := map[string]bool{"dirty": true}
	c := NewLRU[int, string](2, func(v string) bool { return pinned[v] })

	c.Add(1, "dirty")
	c.Add(2, "clean")
	c.Add(3, "clean2")

	_, ok := c.Get(1)
	assert.True(t, ok, "pinned entry must survive eviction")
	_, ok = c.Get(2)
	assert.False(t, ok)

	assert.Equal(t, 1, c.Invalidate(func(int) bool { return true }))
	assert.Equal(t, 1, c.Len())

	pinned["dirty"] = false
	assert.Equal(t, 1, c.Invalidate(func(k int) bool { return k == 1 }))
	assert.Equal(t, 0, c.Len())
}

func TestLRU_Invalidate(t *testing.T) {
	c := NewLRU[int, string](0, func(v string) bool { return v == "keep" })
	c.Add(1, "a")
	c.Add(2, "b")
	c.Add(3, "keep")
	c.Add(10, "c")

	n := c.Invalidate(func(k int) bool { return k < 5 })
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, c.Len())

	_, ok := c.Get(10)
	assert.True(t, ok)
	_, ok = c.Get(3)
	assert.True(t, ok)
}
