package graph

import (
	"sync"

	"github.com/hupe1980/lazyvec/internal/lazy"
	"github.com/hupe1980/lazyvec/internal/serialize"
	"github.com/hupe1980/lazyvec/model"
)

// Flags describes the optional parts of a node record.
type Flags uint8

const (
	// FlagPrev marks a link to the node's previous version.
	FlagPrev Flags = 1 << iota
	// FlagProp marks a property reference.
	FlagProp
)

// Node is one vertex of the graph.
// Mutations through its methods mark it dirty.
type Node struct {
	serialize.Tracker

	ID    model.VectorID
	Level model.Level

	// Neighbors is keyed by neighbor id.
	Neighbors *lazy.Map[*Node]

	mu   sync.RWMutex
	prop model.PropRef
	prev *lazy.Ref[*Node]
}

// NewNode returns an unpersisted node without neighbors.
func NewNode(id model.VectorID, level model.Level) *Node {
	return &Node{
		ID:        id,
		Level:     level,
		Neighbors: lazy.NewMap[*Node](),
	}
}

// AddNeighbor links ref under the neighbor's id.
func (n *Node) AddNeighbor(id model.VectorID, ref *lazy.Ref[*Node]) {
	n.Neighbors.Put(uint32(id), ref)
	n.Touch()
}

// RemoveNeighbor unlinks a neighbor and reports whether it was linked.
func (n *Node) RemoveNeighbor(id model.VectorID) bool {
	ok := n.Neighbors.Delete(uint32(id))
	if ok {
		n.Touch()
	}
	return ok
}

// Neighbor returns the reference stored for a neighbor id.
func (n *Node) Neighbor(id model.VectorID) (*lazy.Ref[*Node], bool) {
	return n.Neighbors.Get(uint32(id))
}

// Prop returns the property reference.
func (n *Node) Prop() model.PropRef {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.prop
}

// SetProp replaces the property reference.
func (n *Node) SetProp(p model.PropRef) {
	n.mu.Lock()
	n.prop = p
	n.mu.Unlock()
	n.Touch()
}

// Prev returns the link to the previous version of this node, or nil.
func (n *Node) Prev() *lazy.Ref[*Node] {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.prev
}

// SetPrev links the previous version of this node.
func (n *Node) SetPrev(ref *lazy.Ref[*Node]) {
	n.mu.Lock()
	n.prev = ref
	n.mu.Unlock()
	n.Touch()
}

// Flags returns the flags the node is currently encoded with.
func (n *Node) Flags() Flags {
	n.mu.RLock()
	defer n.mu.RUnlock()
	var f Flags
	if n.prev != nil && !n.prev.IsNull() {
		f |= FlagPrev
	}
	if !n.prop.IsZero() {
		f |= FlagProp
	}
	return f
}

// NextVersion returns a copy of n for version, linked back to prev.
// The copy gets its own neighbor references, so locations published for
// version never reach n. The property reference is not carried over since
// it is an offset into the previous version's file.
func (n *Node) NextVersion(prev *lazy.Ref[*Node], version model.Hash) *Node {
	next := NewNode(n.ID, n.Level)
	next.Neighbors = n.Neighbors.Advance(version)
	next.prev = prev
	return next
}
