package inverted

import (
	"fmt"
	"sync/atomic"

	"github.com/hupe1980/lazyvec/internal/lazy"
	"github.com/hupe1980/lazyvec/internal/serialize"
	"github.com/hupe1980/lazyvec/model"
)

// HeaderSize is the encoded size of an item header.
const HeaderSize = 13

const (
	dataSlot     = 5
	childrenSlot = 9
)

// Item is one dimension entry of the index.
type Item[T any] struct {
	serialize.Tracker

	DimIndex uint32
	Data     *lazy.Map[T]
	Children *lazy.Map[*Item[T]]

	implicit atomic.Bool
}

// NewItem returns an empty item.
func NewItem[T any](dim uint32, implicit bool) *Item[T] {
	it := &Item[T]{
		DimIndex: dim,
		Data:     lazy.NewMap[T](),
		Children: lazy.NewMap[*Item[T]](),
	}
	it.implicit.Store(implicit)
	return it
}

// Implicit reports whether the item was materialized on the way to a deeper dimension.
func (it *Item[T]) Implicit() bool {
	return it.implicit.Load()
}

// SetImplicit updates the implicit flag.
func (it *Item[T]) SetImplicit(v bool) {
	if it.implicit.Swap(v) != v {
		it.Touch()
	}
}

// Put stores a data reference under key.
func (it *Item[T]) Put(key uint32, ref *lazy.Ref[T]) {
	it.Data.Put(key, ref)
	it.Touch()
}

// NextVersion returns a copy of it whose references are owned by version.
func (it *Item[T]) NextVersion(version model.Hash) *Item[T] {
	c := &Item[T]{
		DimIndex: it.DimIndex,
		Data:     it.Data.Advance(version),
		Children: it.Children.Advance(version),
	}
	c.implicit.Store(it.Implicit())
	return c
}

// ItemCodec is the serialize.Codec of items whose data is encoded with Elem.
type ItemCodec[T any] struct {
	Elem serialize.Codec[T]
}

func (c ItemCodec[T]) data() serialize.MapCodec[T] {
	return serialize.MapCodec[T]{Elem: c.Elem}
}

func (c ItemCodec[T]) children() serialize.MapCodec[*Item[T]] {
	return serialize.MapCodec[*Item[T]]{Elem: c}
}

// Encode implements serialize.Codec.
func (c ItemCodec[T]) Encode(enc *serialize.Encoder, it *Item[T]) (model.FileOffset, error) {
	start, err := enc.Position()
	if err != nil {
		return 0, err
	}

	var implicit uint8
	if it.Implicit() {
		implicit = 1
	}
	if err := enc.WriteU32(it.DimIndex); err != nil {
		return 0, err
	}
	if err := enc.WriteU8(implicit); err != nil {
		return 0, err
	}
	if err := enc.WriteU32(model.NullOffset); err != nil {
		return 0, err
	}
	if err := enc.WriteU32(model.NullOffset); err != nil {
		return 0, err
	}

	dOff, err := enc.Append(func() (model.FileOffset, error) {
		return c.data().Encode(enc, it.Data)
	})
	if err != nil {
		return 0, fmt.Errorf("item %d data: %w", it.DimIndex, err)
	}
	if err := enc.Patch(start+dataSlot, uint32(dOff)); err != nil {
		return 0, err
	}

	cOff, err := enc.Append(func() (model.FileOffset, error) {
		return c.children().Encode(enc, it.Children)
	})
	if err != nil {
		return 0, fmt.Errorf("item %d children: %w", it.DimIndex, err)
	}
	if err := enc.Patch(start+childrenSlot, uint32(cOff)); err != nil {
		return 0, err
	}
	return start, nil
}

// Decode implements serialize.Codec.
func (c ItemCodec[T]) Decode(dec *serialize.Decoder, idx model.FileIndex) (*Item[T], error) {
	var (
		dim, dOff, cOff uint32
		implicit        uint8
	)
	err := dec.Read(idx, func(r *serialize.Reader) error {
		var err error
		if dim, err = r.ReadU32(); err != nil {
			return err
		}
		if implicit, err = r.ReadU8(); err != nil {
			return err
		}
		if dOff, err = r.ReadU32(); err != nil {
			return err
		}
		cOff, err = r.ReadU32()
		return err
	})
	if err != nil {
		return nil, err
	}

	it := NewItem[T](dim, implicit != 0)

	data, err := c.data().Decode(dec, model.ValidIndex(model.FileOffset(dOff), idx.Version))
	if err != nil {
		return nil, fmt.Errorf("item %d data: %w", dim, err)
	}
	children, err := c.children().Decode(dec, model.ValidIndex(model.FileOffset(cOff), idx.Version))
	if err != nil {
		return nil, fmt.Errorf("item %d children: %w", dim, err)
	}
	it.Data, it.Children = data, children

	it.MarkClean(it.Generation())
	return it, nil
}
