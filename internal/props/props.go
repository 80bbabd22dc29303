package props

import (
	"errors"
	"fmt"
	"io"

	"github.com/hupe1980/lazyvec/codec"
	"github.com/hupe1980/lazyvec/internal/buffered"
	"github.com/hupe1980/lazyvec/internal/hash"
	"github.com/hupe1980/lazyvec/model"
)

const (
	// HeaderSize is the size of a property record header.
	HeaderSize = 13
	// MaxPayloadSize bounds the uncompressed size of a property payload.
	MaxPayloadSize = 256 << 20
)

var (
	// ErrChecksum is returned when a payload does not match its checksum.
	ErrChecksum = errors.New("props: checksum mismatch")
	// ErrCorrupt is returned when a record header is inconsistent with its reference.
	ErrCorrupt = errors.New("props: corrupt record")
	// ErrUnknownCompression is returned for an unsupported compression.
	ErrUnknownCompression = errors.New("props: unknown compression")
	// ErrTooLarge is returned for payloads above MaxPayloadSize.
	ErrTooLarge = errors.New("props: payload too large")
)

// Write appends payload to f and returns its reference.
func Write(f *buffered.File, payload []byte, c Compression) (model.PropRef, error) {
	if len(payload) > MaxPayloadSize {
		return model.PropRef{}, fmt.Errorf("%w: %d bytes", ErrTooLarge, len(payload))
	}
	stored, applied, err := compress(payload, c)
	if err != nil {
		return model.PropRef{}, err
	}

	f.LockAppend()
	defer f.UnlockAppend()

	var ref model.PropRef
	err = f.WithCursor(func(cur buffered.Cursor) error {
		start, err := f.Seek(cur, 0, io.SeekEnd)
		if err != nil {
			return err
		}
		if err := f.WriteU32(cur, uint32(len(stored))); err != nil {
			return err
		}
		if err := f.WriteU8(cur, uint8(applied)); err != nil {
			return err
		}
		if err := f.WriteU32(cur, uint32(len(payload))); err != nil {
			return err
		}
		if err := f.WriteU32(cur, hash.CRC32C(stored)); err != nil {
			return err
		}
		if err := f.WriteBytes(cur, stored); err != nil {
			return err
		}
		ref = model.PropRef{
			Offset: model.FileOffset(start),
			Length: model.BytesToRead(HeaderSize + len(stored)),
		}
		return nil
	})
	return ref, err
}

// Read returns the payload referenced by ref.
func Read(f *buffered.File, ref model.PropRef) ([]byte, error) {
	if ref.Length < HeaderSize {
		return nil, fmt.Errorf("%w: length %d shorter than header", ErrCorrupt, ref.Length)
	}

	var out []byte
	err := f.WithCursor(func(cur buffered.Cursor) error {
		if _, err := f.Seek(cur, int64(ref.Offset), io.SeekStart); err != nil {
			return err
		}
		storedLen, err := f.ReadU32(cur)
		if err != nil {
			return err
		}
		comp, err := f.ReadU8(cur)
		if err != nil {
			return err
		}
		rawLen, err := f.ReadU32(cur)
		if err != nil {
			return err
		}
		sum, err := f.ReadU32(cur)
		if err != nil {
			return err
		}
		if uint64(storedLen)+HeaderSize != uint64(ref.Length) {
			return fmt.Errorf("%w: stored %d bytes, reference says %d", ErrCorrupt, storedLen, ref.Length)
		}
		stored, err := f.ReadBytes(cur, int(storedLen))
		if err != nil {
			return err
		}
		if hash.CRC32C(stored) != sum {
			return fmt.Errorf("%w: at offset %d of version %d", ErrChecksum, ref.Offset, f.Version())
		}
		out, err = decompress(stored, Compression(comp), rawLen)
		return err
	})
	return out, err
}

// NodeProp is the property payload of a graph node.
type NodeProp struct {
	ID     model.VectorID `json:"id"`
	Vector []float32      `json:"vector"`
}

// Marshal encodes p with c, or codec.Default when c is nil.
func Marshal(c codec.Codec, p NodeProp) ([]byte, error) {
	if c == nil {
		c = codec.Default
	}
	return c.Marshal(p)
}

// Unmarshal decodes a NodeProp with c, or codec.Default when c is nil.
func Unmarshal(c codec.Codec, data []byte) (NodeProp, error) {
	if c == nil {
		c = codec.Default
	}
	var p NodeProp
	err := c.Unmarshal(data, &p)
	return p, err
}
