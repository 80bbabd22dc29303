package serialize

import (
	"fmt"
	"reflect"

	"github.com/hupe1980/lazyvec/internal/lazy"
	"github.com/hupe1980/lazyvec/model"
)

// Codec encodes and decodes one record kind.
type Codec[T any] interface {
	// Encode writes v at the encoder's position and returns the start offset.
	Encode(enc *Encoder, v T) (model.FileOffset, error)
	// Decode reconstructs the record that begins at idx.
	Decode(dec *Decoder, idx model.FileIndex) (T, error)
}

// Float32 is the codec of a bare 4-byte float.
type Float32 struct{}

// Encode implements Codec.
func (Float32) Encode(enc *Encoder, v float32) (model.FileOffset, error) {
	start, err := enc.Position()
	if err != nil {
		return 0, err
	}
	return start, enc.WriteF32(v)
}

// Decode implements Codec.
func (Float32) Decode(dec *Decoder, idx model.FileIndex) (float32, error) {
	var v float32
	err := dec.Read(idx, func(r *Reader) error {
		var err error
		v, err = r.ReadF32()
		return err
	})
	return v, err
}

// PropRefCodec is the codec of a property reference: offset u32 | length u32.
type PropRefCodec struct{}

// PropRefSize is the encoded size of a property reference.
const PropRefSize = 8

// Encode implements Codec.
func (PropRefCodec) Encode(enc *Encoder, p model.PropRef) (model.FileOffset, error) {
	start, err := enc.Position()
	if err != nil {
		return 0, err
	}
	if err := enc.WriteU32(uint32(p.Offset)); err != nil {
		return 0, err
	}
	return start, enc.WriteU32(uint32(p.Length))
}

// Decode implements Codec.
func (PropRefCodec) Decode(dec *Decoder, idx model.FileIndex) (model.PropRef, error) {
	var p model.PropRef
	err := dec.Read(idx, func(r *Reader) error {
		off, err := r.ReadU32()
		if err != nil {
			return err
		}
		n, err := r.ReadU32()
		if err != nil {
			return err
		}
		p = model.PropRef{Offset: model.FileOffset(off), Length: model.BytesToRead(n)}
		return nil
	})
	return p, err
}

// EncodeRef writes the record behind ref as needed and returns the offset
// to store in the enclosing record, or model.NullOffset for a null reference.
//
// A clean value already persisted in the encoder's version is referenced by
// its offset and a dirty one is rewritten in place. Any other value is
// appended. A record that still lives in an older version is copied, loading
// it through the encoder's registry when unresolved. The new location is
// published when the encoder commits, and only on references owned by the
// encoder's version: a reference of an older version keeps pointing into
// its own file. A reference to a copy is re-pointed at the copy and resolves
// from it on demand.
func EncodeRef[T any](enc *Encoder, ref *lazy.Ref[T], codec Codec[T]) (uint32, error) {
	if ref == nil || ref.IsNull() {
		return model.NullOffset, nil
	}

	snap := ref.Snapshot()
	version := enc.Version()
	sameVersion := snap.Index.IsValid() && snap.Index.Version == version
	owned := snap.Version >= version

	keys := identityKeys(ref, snap.Value, snap.Resident)
	if w, ok := enc.lookup(keys); ok {
		return reuse(enc, ref, snap, w, owned), nil
	}

	copied := false
	if !snap.Resident {
		if sameVersion {
			return uint32(snap.Index.Offset), nil
		}
		if enc.reg == nil {
			return 0, fmt.Errorf("%w: %s cannot be written to version %d", ErrUnresolved, snap.Index, version)
		}
		v, err := LoadWith(enc.ctx, enc.reg, snap.Index, codec, 0)
		if err != nil {
			return 0, fmt.Errorf("copy %s: %w", snap.Index, err)
		}
		snap.Value, copied = v, true
		keys = identityKeys(ref, v, true)
		if w, ok := enc.lookup(keys); ok {
			return reuse(enc, ref, snap, w, owned), nil
		}
	}

	m, mutable := any(snap.Value).(Mutable)
	clean := !mutable || !m.Dirty()
	if !copied && sameVersion && clean {
		return uint32(snap.Index.Offset), nil
	}
	if snap.Index.IsValid() && snap.Index.Version < version && clean {
		copied = true
	}

	var gen uint64
	if mutable {
		gen = m.Generation()
	}

	write := func() (model.FileOffset, error) {
		start, err := enc.Position()
		if err != nil {
			return 0, err
		}
		enc.remember(keys, start, copied || !owned)
		return codec.Encode(enc, snap.Value)
	}

	var (
		off model.FileOffset
		err error
	)
	if sameVersion && owned && !copied {
		off, err = enc.At(snap.Index.Offset, write)
	} else {
		off, err = enc.Append(write)
	}
	if err != nil {
		return 0, err
	}

	idx := model.ValidIndex(off, version)
	switch {
	case !owned:
	case copied:
		enc.Defer(func() { _ = ref.Relocate(idx, isDirtyValue[T]) })
	default:
		enc.Defer(func() {
			// A value that moved on to a newer version keeps its previous index.
			if err := ref.BindFileIndex(idx); err != nil {
				return
			}
			if mutable {
				m.MarkClean(gen)
			}
			enc.published(idx, snap.Value)
		})
	}
	return uint32(off), nil
}

// reuse returns the offset of a record already written by this encoder and
// points an owned reference at it.
func reuse[T any](enc *Encoder, ref *lazy.Ref[T], snap lazy.Snapshot[T], w written, owned bool) uint32 {
	idx := model.ValidIndex(w.off, enc.Version())
	if owned && snap.Index != idx {
		if w.copied || !snap.Resident {
			enc.Defer(func() { _ = ref.Relocate(idx, isDirtyValue[T]) })
		} else {
			enc.Defer(func() { _ = ref.BindFileIndex(idx) })
		}
	}
	return uint32(w.off)
}

func isDirtyValue[T any](v T) bool {
	return isDirty(v)
}

// EncodeRoot writes the resident value of ref at the encoder's position.
// References back to ref from nested records resolve to the same offset.
func EncodeRoot[T any](enc *Encoder, ref *lazy.Ref[T], codec Codec[T]) (model.FileOffset, error) {
	snap := ref.Snapshot()
	if snap.Null || !snap.Resident {
		return 0, fmt.Errorf("%w: no resident value for %s", ErrUnresolved, snap.Index)
	}
	start, err := enc.Position()
	if err != nil {
		return 0, err
	}
	enc.remember(identityKeys(ref, snap.Value, true), start, false)
	return codec.Encode(enc, snap.Value)
}

// DecodeRef turns a nested offset into a reference. Within the depth budget
// the record is loaded through the registry; past it, or when the record is
// already being decoded, an unresolved placeholder is returned.
func DecodeRef[T any](dec *Decoder, idx model.FileIndex, codec Codec[T]) (*lazy.Ref[T], error) {
	if !idx.IsValid() {
		return nil, ErrInvalidFileIndex
	}
	if uint32(idx.Offset) == model.NullOffset {
		return lazy.Null[T](), nil
	}
	if dec.remaining <= 0 || dec.skipped(idx) {
		return lazy.Unloaded[T](idx), nil
	}

	v, ok, err := loadNested(dec, idx, codec)
	if err != nil {
		return nil, err
	}
	if !ok {
		return lazy.Unloaded[T](idx), nil
	}
	return lazy.Loaded(v, idx), nil
}

// identityKeys returns the keys under which a reference is tracked while
// encoding: the reference itself and, for pointer values, the pointee.
func identityKeys[T any](ref *lazy.Ref[T], v T, resident bool) []any {
	keys := []any{ref}
	if !resident {
		return keys
	}
	rv := reflect.ValueOf(any(v))
	if rv.IsValid() && rv.Kind() == reflect.Pointer && !rv.IsNil() {
		keys = append(keys, any(v))
	}
	return keys
}
