package props

import (
	"fmt"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects the payload compression of a property record.
type Compression uint8

const (
	// CompressionNone stores payloads as-is.
	CompressionNone Compression = 0
	// CompressionLZ4 uses LZ4 block compression.
	CompressionLZ4 Compression = 1
	// CompressionZSTD uses ZSTD.
	CompressionZSTD Compression = 2
)

// String returns the name of the compression.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("compression(%d)", uint8(c))
	}
}

// ParseCompression returns the compression named s.
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZSTD, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownCompression, s)
	}
}

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() (*zstd.Encoder, error) {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder), nil
	}
	return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
}

func getZstdDecoder() (*zstd.Decoder, error) {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder), nil
	}
	return zstd.NewReader(nil, zstd.WithDecoderMaxMemory(MaxPayloadSize))
}

// maxLZ4Ratio is the largest expansion an LZ4 block can encode.
const maxLZ4Ratio = 255

// compress returns the stored form of data and the compression actually
// applied. Compression that saves less than 10% is dropped.
func compress(data []byte, c Compression) ([]byte, Compression, error) {
	if c == CompressionNone || len(data) == 0 {
		return data, CompressionNone, nil
	}

	var out []byte
	switch c {
	case CompressionLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, 0, err
		}
		out = buf[:n] // n == 0: incompressible
	case CompressionZSTD:
		enc, err := getZstdEncoder()
		if err != nil {
			return nil, 0, err
		}
		out = enc.EncodeAll(data, nil)
		zstdEncoderPool.Put(enc)
	default:
		return nil, 0, fmt.Errorf("%w: %s", ErrUnknownCompression, c)
	}

	if len(out) == 0 || float64(len(out)) > float64(len(data))*0.9 {
		return data, CompressionNone, nil
	}
	return out, c, nil
}

// decompress restores a payload of rawLen bytes. rawLen comes from disk, so it
// is checked against MaxPayloadSize and the stored size before any allocation.
func decompress(stored []byte, c Compression, rawLen uint32) ([]byte, error) {
	if rawLen > MaxPayloadSize {
		return nil, fmt.Errorf("%w: raw size %d exceeds %d", ErrCorrupt, rawLen, MaxPayloadSize)
	}
	switch c {
	case CompressionNone:
		if int(rawLen) != len(stored) {
			return nil, fmt.Errorf("%w: raw size %d, stored %d", ErrCorrupt, rawLen, len(stored))
		}
		return stored, nil
	case CompressionLZ4:
		if uint64(rawLen) > uint64(len(stored))*maxLZ4Ratio {
			return nil, fmt.Errorf("%w: lz4 raw size %d from %d stored bytes", ErrCorrupt, rawLen, len(stored))
		}
		out := make([]byte, rawLen)
		n, err := lz4.UncompressBlock(stored, out)
		if err != nil {
			return nil, fmt.Errorf("%w: lz4: %v", ErrCorrupt, err)
		}
		if uint32(n) != rawLen {
			return nil, fmt.Errorf("%w: lz4 size %d, want %d", ErrCorrupt, n, rawLen)
		}
		return out, nil
	case CompressionZSTD:
		dec, err := getZstdDecoder()
		if err != nil {
			return nil, err
		}
		defer zstdDecoderPool.Put(dec)
		out, err := dec.DecodeAll(stored, make([]byte, 0, min(int(rawLen), 4*len(stored))))
		if err != nil {
			return nil, fmt.Errorf("%w: zstd: %v", ErrCorrupt, err)
		}
		if uint32(len(out)) != rawLen {
			return nil, fmt.Errorf("%w: zstd size %d, want %d", ErrCorrupt, len(out), rawLen)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownCompression, c)
	}
}
