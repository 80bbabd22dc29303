package lazyvec

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/lazyvec/internal/graph"
	"github.com/hupe1980/lazyvec/internal/lazy"
	"github.com/hupe1980/lazyvec/internal/persist"
	"github.com/hupe1980/lazyvec/internal/serialize"
	"github.com/hupe1980/lazyvec/model"
)

// Node is one vertex of the proximity graph.
type Node = graph.Node

// NodeRef is a lazy reference to a Node: resident, unresolved or null.
type NodeRef = lazy.Ref[*graph.Node]

// NewNode returns a reference to a new, unpersisted node of version.
func NewNode(id model.VectorID, level model.Level, version model.Hash) *NodeRef {
	return lazy.NewRef(graph.NewNode(id, level), version)
}

// NodeAt returns an unresolved reference to the node persisted at idx.
func NodeAt(idx model.FileIndex) *NodeRef {
	return lazy.Unloaded[*graph.Node](idx)
}

// PersistNode writes the node behind ref together with every unpersisted or
// modified node reachable from it, and publishes the new locations.
//
// A node whose location belongs to its own version is rewritten in place;
// otherwise it is appended to the file of its version.
func (db *DB) PersistNode(ctx context.Context, ref *NodeRef) (model.FileIndex, error) {
	if err := db.checkOpen(); err != nil {
		return model.InvalidIndex(), err
	}
	start := time.Now()
	idx, err := persist.PersistUpdate(ctx, db.orch, ref, graph.Codec{})
	err = translateError(err)
	db.opts.metricsCollector.RecordPersist(time.Since(start), err)
	db.opts.logger.LogPersist(ctx, "node", idx, err)
	return idx, err
}

// LoadNode returns the node persisted at idx. Repeated loads of the same
// location return the same *Node while it stays cached.
func (db *DB) LoadNode(ctx context.Context, idx model.FileIndex) (*Node, error) {
	return db.LoadNodeWith(ctx, idx, db.opts.maxLoads)
}

// LoadNodeWith is LoadNode with an explicit number of nested levels to resolve eagerly.
func (db *DB) LoadNodeWith(ctx context.Context, idx model.FileIndex, maxLoads int) (*Node, error) {
	if err := db.checkOpen(); err != nil {
		return nil, err
	}
	start := time.Now()
	n, err := serialize.LoadWith(ctx, db.reg, idx, graph.Codec{}, maxLoads)
	err = translateError(err)
	db.opts.metricsCollector.RecordLoad(time.Since(start), err)
	db.opts.logger.LogLoad(ctx, "node", idx, err)
	return n, err
}

// ResolveNode returns the node behind ref, loading it when unresolved.
func (db *DB) ResolveNode(ctx context.Context, ref *NodeRef) (*Node, error) {
	if err := db.checkOpen(); err != nil {
		return nil, err
	}
	n, err := serialize.Resolve(ctx, db.reg, ref, graph.Codec{})
	return n, translateError(err)
}

// ResolveNeighbor returns the neighbor id of n, loading it when unresolved.
func (db *DB) ResolveNeighbor(ctx context.Context, n *Node, id model.VectorID) (*Node, error) {
	ref, ok := n.Neighbor(id)
	if !ok {
		return nil, fmt.Errorf("%w: node %d has no neighbor %d", ErrNotFound, n.ID, id)
	}
	return db.ResolveNode(ctx, ref)
}

// NextVersion moves ref to a new node for version that links back to the
// persisted node ref currently holds. The new node references the same
// neighbors through its own references, and the property payload is copied
// into the new version's file. The returned node is persisted by the next
// PersistNode of ref, which copies every neighbor record still living in an
// older version into version. Earlier versions keep their locations.
func (db *DB) NextVersion(ctx context.Context, ref *NodeRef, version model.Hash) (*Node, error) {
	if err := db.checkOpen(); err != nil {
		return nil, err
	}
	cur, err := db.ResolveNode(ctx, ref)
	if err != nil {
		return nil, err
	}
	snap := ref.Snapshot()
	if !snap.Index.IsValid() || cur.Dirty() {
		return nil, fmt.Errorf("%w: node %d must be persisted before it gets a new version", ErrUnresolved, cur.ID)
	}
	if version <= snap.Index.Version {
		return nil, fmt.Errorf("%w: version %d does not follow %d", ErrStaleIndex, version, snap.Index.Version)
	}

	next := cur.NextVersion(lazy.Loaded(cur, snap.Index), version)
	if p := cur.Prop(); !p.IsZero() {
		prop, err := db.ReadProp(ctx, snap.Index.Version, p)
		if err != nil {
			return nil, err
		}
		moved, err := db.WriteProp(ctx, version, prop)
		if err != nil {
			return nil, err
		}
		next.SetProp(moved)
	}

	ref.SetValue(next, version)
	return next, nil
}
