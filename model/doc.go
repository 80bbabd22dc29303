// Package model defines the value types shared by every layer of lazyvec.
//
// # Identity Types
//
//   - Hash: opaque, totally ordered version identifier naming one on-disk file
//   - FileOffset: absolute byte offset inside a version file
//   - FileIndex: logical pointer, either Invalid or Valid{Offset, Version}
//   - VectorID / Level: graph node identity and HNSW level
//
// A Valid FileIndex always names the first byte of a complete serialized record.
// FileIndex is a plain comparable value; copy it freely and use it as a map key.
package model
