package lazyvec

import (
	"context"

	"github.com/hupe1980/lazyvec/internal/props"
	"github.com/hupe1980/lazyvec/model"
)

// NodeProp is the property payload of a graph node.
type NodeProp = props.NodeProp

// WriteProp appends p to the file of version and returns its reference.
func (db *DB) WriteProp(ctx context.Context, version model.Hash, p NodeProp) (model.PropRef, error) {
	if err := db.checkOpen(); err != nil {
		return model.PropRef{}, err
	}
	payload, err := props.Marshal(db.opts.codec, p)
	if err != nil {
		db.opts.metricsCollector.RecordProp(true, 0, err)
		return model.PropRef{}, err
	}
	f, err := db.files.Get(version)
	if err != nil {
		return model.PropRef{}, translateError(err)
	}
	ref, err := props.Write(f, payload, db.opts.compression)
	db.opts.metricsCollector.RecordProp(true, len(payload), err)
	if err != nil {
		db.opts.logger.ErrorContext(ctx, "prop write failed", "version", version, "error", err)
	}
	return ref, translateError(err)
}

// ReadProp reads the property payload at ref in the file of version.
func (db *DB) ReadProp(ctx context.Context, version model.Hash, ref model.PropRef) (NodeProp, error) {
	if err := db.checkOpen(); err != nil {
		return NodeProp{}, err
	}
	f, err := db.files.Lookup(version)
	if err != nil {
		return NodeProp{}, translateError(err)
	}
	payload, err := props.Read(f, ref)
	if err != nil {
		db.opts.metricsCollector.RecordProp(false, 0, err)
		db.opts.logger.ErrorContext(ctx, "prop read failed", "version", version, "offset", ref.Offset, "error", err)
		return NodeProp{}, translateError(err)
	}
	p, err := props.Unmarshal(db.opts.codec, payload)
	db.opts.metricsCollector.RecordProp(false, len(payload), err)
	return p, err
}

// SetNodeProp writes p to the file of the node's version and attaches it to the node.
func (db *DB) SetNodeProp(ctx context.Context, ref *NodeRef, p NodeProp) error {
	n, err := db.ResolveNode(ctx, ref)
	if err != nil {
		return err
	}
	pr, err := db.WriteProp(ctx, ref.CurrentVersion(), p)
	if err != nil {
		return err
	}
	n.SetProp(pr)
	return nil
}

// NodeProp reads the property payload attached to the node behind ref.
func (db *DB) NodeProp(ctx context.Context, ref *NodeRef) (NodeProp, bool, error) {
	n, err := db.ResolveNode(ctx, ref)
	if err != nil {
		return NodeProp{}, false, err
	}
	pr := n.Prop()
	if pr.IsZero() {
		return NodeProp{}, false, nil
	}
	p, err := db.ReadProp(ctx, ref.CurrentVersion(), pr)
	return p, err == nil, err
}
