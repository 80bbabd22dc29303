// Package roots maps names to the persisted location of root records.
//
// A lazyvec store never keeps a directory inside its version files, so the
// entry point of a graph or an inverted index must be retained elsewhere.
// A Catalog stores those entry points and updates them with compare-and-swap,
// which lets several writers coordinate on the same root.
//
// # Implementations
//
//   - MemoryCatalog: process-local map
//   - FileCatalog: codec-encoded file replaced atomically by rename
//   - dynamodb.Catalog: DynamoDB table with conditional writes
package roots
