// Package props stores opaque node property payloads in version files.
//
// A property record is
//
//	stored u32 | compression u8 | raw u32 | crc32c u32 | bytes[stored]
//
// where crc32c covers the stored bytes. The record is addressed by a
// model.PropRef holding its offset and total length. Payloads are compressed
// only when that saves at least 10%.
package props
