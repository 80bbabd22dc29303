package lazyvec

import (
	"context"
	"time"

	"github.com/hupe1980/lazyvec/internal/inverted"
	"github.com/hupe1980/lazyvec/internal/lazy"
	"github.com/hupe1980/lazyvec/internal/persist"
	"github.com/hupe1980/lazyvec/internal/serialize"
	"github.com/hupe1980/lazyvec/model"
)

// InvertedIndex maps (dimension, key) pairs to float32 weights.
type InvertedIndex = inverted.Index[float32]

// InvertedItem is one dimension of an InvertedIndex.
type InvertedItem = inverted.Item[float32]

func itemCodec() inverted.ItemCodec[float32] {
	return inverted.ItemCodec[float32]{Elem: serialize.Float32{}}
}

// NewInvertedIndex returns an empty inverted index whose items belong to version.
func (db *DB) NewInvertedIndex(version model.Hash) *InvertedIndex {
	return inverted.New[float32](db.reg, serialize.Float32{}, version)
}

// OpenInvertedIndex returns the inverted index rooted at idx. Items load on access.
// New items belong to version.
func (db *DB) OpenInvertedIndex(idx model.FileIndex, version model.Hash) *InvertedIndex {
	return inverted.Open[float32](db.reg, serialize.Float32{}, lazy.Unloaded[*InvertedItem](idx), version)
}

// PersistInvertedIndex writes every new or modified item of x and returns the root location.
func (db *DB) PersistInvertedIndex(ctx context.Context, x *InvertedIndex) (model.FileIndex, error) {
	if err := db.checkOpen(); err != nil {
		return model.InvalidIndex(), err
	}
	start := time.Now()
	idx, err := persist.PersistUpdate(ctx, db.orch, x.Root(), x.Codec())
	err = translateError(err)
	db.opts.metricsCollector.RecordPersist(time.Since(start), err)
	db.opts.logger.LogPersist(ctx, "inverted", idx, err)
	return idx, err
}

// LoadItem returns the inverted-index item persisted at idx.
func (db *DB) LoadItem(ctx context.Context, idx model.FileIndex) (*InvertedItem, error) {
	if err := db.checkOpen(); err != nil {
		return nil, err
	}
	start := time.Now()
	it, err := serialize.Load(ctx, db.reg, idx, itemCodec())
	err = translateError(err)
	db.opts.metricsCollector.RecordLoad(time.Since(start), err)
	db.opts.logger.LogLoad(ctx, "inverted", idx, err)
	return it, err
}
