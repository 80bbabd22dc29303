package testutil

import (
	"testing"

	"github.com/hupe1980/lazyvec/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUniformVector(t *testing.T) {
	rng := NewRNG(4711)
	v := rng.UniformVector(32)

	assert.Len(t, v, 32)
	for _, x := range v {
		assert.GreaterOrEqual(t, x, float32(0))
		assert.Less(t, x, float32(1))
	}
}

func TestReset(t *testing.T) {
	rng := NewRNG(4711)
	v1 := rng.UniformVector(10)

	rng.Reset()
	v2 := rng.UniformVector(10)

	assert.Equal(t, v1, v2)
}

func TestGraph(t *testing.T) {
	refs := NewRNG(42).Graph(20, 4, 3)
	require.Len(t, refs, 20)

	adj := Adjacency(refs)
	for i, ref := range refs {
		assert.Equal(t, model.Hash(3), ref.CurrentVersion())
		node, ok := ref.Peek()
		require.True(t, ok)
		assert.Equal(t, model.VectorID(i), node.ID)
		assert.NotEmpty(t, adj[node.ID])
		assert.LessOrEqual(t, len(adj[node.ID]), 4)
	}

	// Same seed, same shape.
	assert.Equal(t, adj, Adjacency(NewRNG(42).Graph(20, 4, 3)))
}
