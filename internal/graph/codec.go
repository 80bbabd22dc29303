package graph

import (
	"errors"
	"fmt"

	"github.com/hupe1980/lazyvec/internal/lazy"
	"github.com/hupe1980/lazyvec/internal/serialize"
	"github.com/hupe1980/lazyvec/model"
)

// HeaderSize is the encoded size of a node header.
const HeaderSize = 22

const (
	neighborsSlot = 6
	propSlot      = 10
)

// ErrPrevNotPersisted is returned when a node links a previous version
// that has no persisted location.
var ErrPrevNotPersisted = errors.New("graph: previous version is not persisted")

// Codec is the serialize.Codec of graph nodes.
type Codec struct{}

var _ serialize.Codec[*Node] = Codec{}

func (c Codec) neighbors() serialize.MapCodec[*Node] {
	return serialize.MapCodec[*Node]{Elem: c}
}

// Encode implements serialize.Codec.
func (c Codec) Encode(enc *serialize.Encoder, n *Node) (model.FileOffset, error) {
	start, err := enc.Position()
	if err != nil {
		return 0, err
	}

	n.mu.RLock()
	prop, prev := n.prop, n.prev
	n.mu.RUnlock()

	var flags Flags
	prevOff, prevVer := model.NullOffset, uint32(0)
	if prev != nil && !prev.IsNull() {
		idx := prev.FileIndex()
		if !idx.IsValid() {
			return 0, fmt.Errorf("node %d: %w", n.ID, ErrPrevNotPersisted)
		}
		flags |= FlagPrev
		prevOff, prevVer = uint32(idx.Offset), uint32(idx.Version)
		// Inside this version the previous node is this record.
		if old, ok := prev.Peek(); ok && old != nil && idx.Version != enc.Version() {
			enc.Alias(old, start)
		}
	}
	if !prop.IsZero() {
		flags |= FlagProp
	}

	if err := enc.WriteU32(uint32(n.ID)); err != nil {
		return 0, err
	}
	if err := enc.WriteU8(uint8(n.Level)); err != nil {
		return 0, err
	}
	if err := enc.WriteU8(uint8(flags)); err != nil {
		return 0, err
	}
	for _, v := range []uint32{model.NullOffset, model.NullOffset, prevOff, prevVer} {
		if err := enc.WriteU32(v); err != nil {
			return 0, err
		}
	}

	nOff, err := enc.Append(func() (model.FileOffset, error) {
		return c.neighbors().Encode(enc, n.Neighbors)
	})
	if err != nil {
		return 0, fmt.Errorf("node %d neighbors: %w", n.ID, err)
	}
	if err := enc.Patch(start+neighborsSlot, uint32(nOff)); err != nil {
		return 0, err
	}

	if flags&FlagProp != 0 {
		pOff, err := enc.Append(func() (model.FileOffset, error) {
			return serialize.PropRefCodec{}.Encode(enc, prop)
		})
		if err != nil {
			return 0, fmt.Errorf("node %d prop: %w", n.ID, err)
		}
		if err := enc.Patch(start+propSlot, uint32(pOff)); err != nil {
			return 0, err
		}
	}

	return start, nil
}

// Decode implements serialize.Codec.
func (c Codec) Decode(dec *serialize.Decoder, idx model.FileIndex) (*Node, error) {
	var (
		id, nOff, pOff, prevOff, prevVer uint32
		level, flags                     uint8
	)
	err := dec.Read(idx, func(r *serialize.Reader) error {
		var err error
		if id, err = r.ReadU32(); err != nil {
			return err
		}
		if level, err = r.ReadU8(); err != nil {
			return err
		}
		if flags, err = r.ReadU8(); err != nil {
			return err
		}
		for _, p := range []*uint32{&nOff, &pOff, &prevOff, &prevVer} {
			if *p, err = r.ReadU32(); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	n := NewNode(model.VectorID(id), model.Level(level))

	neighbors, err := c.neighbors().Decode(dec, model.ValidIndex(model.FileOffset(nOff), idx.Version))
	if err != nil {
		return nil, fmt.Errorf("node %d neighbors: %w", id, err)
	}
	n.Neighbors = neighbors

	if Flags(flags)&FlagProp != 0 {
		prop, err := serialize.PropRefCodec{}.Decode(dec, model.ValidIndex(model.FileOffset(pOff), idx.Version))
		if err != nil {
			return nil, fmt.Errorf("node %d prop: %w", id, err)
		}
		n.prop = prop
	}

	if Flags(flags)&FlagPrev != 0 {
		n.prev = lazy.Unloaded[*Node](model.ValidIndex(model.FileOffset(prevOff), model.Hash(prevVer)))
	}

	n.MarkClean(n.Generation())
	return n, nil
}
