package testutil

import (
	"math/rand"
	"sync"

	"github.com/hupe1980/lazyvec/internal/graph"
	"github.com/hupe1980/lazyvec/internal/lazy"
	"github.com/hupe1980/lazyvec/model"
)

// RNG wraps a seeded random source. It is safe for concurrent use.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset rewinds the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// UniformVector returns a vector with values in [0, 1).
func (r *RNG) UniformVector(dim int) []float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	v := make([]float32, dim)
	for i := range v {
		v[i] = r.rand.Float32()
	}
	return v
}

// Graph builds n unpersisted nodes of version with ids 0..n-1. Each node
// links to up to degree distinct random neighbors; self links and cycles
// are allowed to appear.
func (r *RNG) Graph(n, degree int, version model.Hash) []*lazy.Ref[*graph.Node] {
	r.mu.Lock()
	defer r.mu.Unlock()

	refs := make([]*lazy.Ref[*graph.Node], n)
	for i := range refs {
		level := model.Level(r.rand.Intn(4))
		refs[i] = lazy.NewRef(graph.NewNode(model.VectorID(i), level), version)
	}
	for _, ref := range refs {
		node, _ := ref.Peek()
		for range degree {
			j := r.rand.Intn(n)
			node.AddNeighbor(model.VectorID(j), refs[j])
		}
	}
	return refs
}

// Adjacency returns the neighbor ids of every node in refs, keyed by node id.
func Adjacency(refs []*lazy.Ref[*graph.Node]) map[model.VectorID][]uint32 {
	out := make(map[model.VectorID][]uint32, len(refs))
	for _, ref := range refs {
		node, ok := ref.Peek()
		if !ok {
			continue
		}
		out[node.ID] = node.Neighbors.Keys()
	}
	return out
}
