package serialize

import (
	"fmt"

	"github.com/hupe1980/lazyvec/internal/lazy"
	"github.com/hupe1980/lazyvec/model"
)

const mapEntrySize = 8

// MapCodec encodes a lazy.Map as count u32 followed by count entries of
// (key u32, offset u32). Entry offsets refer to records of Elem in the same
// version. model.NullOffset encodes a null reference.
type MapCodec[T any] struct {
	Elem Codec[T]
}

// Encode implements Codec. The entry table is written in full before any
// referenced record is appended.
func (c MapCodec[T]) Encode(enc *Encoder, m *lazy.Map[T]) (model.FileOffset, error) {
	start, err := enc.Position()
	if err != nil {
		return 0, err
	}

	entries := m.Entries()
	if err := enc.WriteU32(uint32(len(entries))); err != nil {
		return 0, err
	}
	for _, e := range entries {
		if err := enc.WriteU32(e.Key); err != nil {
			return 0, err
		}
		if err := enc.WriteU32(model.NullOffset); err != nil {
			return 0, err
		}
	}

	for i, e := range entries {
		off, err := EncodeRef(enc, e.Ref, c.Elem)
		if err != nil {
			return 0, fmt.Errorf("map entry %d: %w", e.Key, err)
		}
		slot := start + 4 + model.FileOffset(i*mapEntrySize) + 4
		if err := enc.Patch(slot, off); err != nil {
			return 0, err
		}
	}
	return start, nil
}

// Decode implements Codec.
func (c MapCodec[T]) Decode(dec *Decoder, idx model.FileIndex) (*lazy.Map[T], error) {
	type rawEntry struct {
		key uint32
		off uint32
	}

	var raw []rawEntry
	err := dec.Read(idx, func(r *Reader) error {
		count, err := r.ReadU32()
		if err != nil {
			return err
		}
		left, err := r.Remaining()
		if err != nil {
			return err
		}
		if int64(count)*mapEntrySize > left {
			return fmt.Errorf("%w: map at %s declares %d entries, %d bytes left", ErrMalformed, idx, count, left)
		}
		raw = make([]rawEntry, count)
		for i := range raw {
			if raw[i].key, err = r.ReadU32(); err != nil {
				return err
			}
			if raw[i].off, err = r.ReadU32(); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	m := lazy.NewMap[T]()
	for _, e := range raw {
		ref, err := DecodeRef(dec, model.ValidIndex(model.FileOffset(e.off), idx.Version), c.Elem)
		if err != nil {
			return nil, fmt.Errorf("map entry %d: %w", e.key, err)
		}
		m.Put(e.key, ref)
	}
	return m, nil
}
