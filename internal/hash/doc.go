// Package hash provides the CRC32-Castagnoli checksum used to verify
// property records.
//
//	checksum := hash.CRC32C(data)
//
// Go's hash/crc32 uses hardware instructions for this polynomial when the
// CPU supports them.
package hash
