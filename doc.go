// Package lazyvec provides lazily loaded, identity preserving storage for the
// records of a versioned vector index.
//
// A DB is a directory of version files. Each version owns one append-only
// file; records refer to each other through FileIndex values (an offset plus a
// version) and are loaded on demand. Loading the same location twice yields
// the same in-memory value while it stays cached, so a graph reassembled from
// disk has exactly the shape it had when it was written.
//
// # Quick Start
//
//	db, _ := lazyvec.Open("./data")
//	defer db.Close()
//
//	a := lazyvec.NewNode(1, 0, 1)
//	b := lazyvec.NewNode(2, 0, 1)
//	na, _ := a.Peek()
//	na.AddNeighbor(2, b)
//
//	idx, _ := db.PersistNode(ctx, a)
//	_ = db.Commit(ctx, "graph", model.InvalidIndex(), idx)
//
// Re-open and walk the graph:
//
//	idx, _ := db.Root(ctx, "graph")
//	n, _ := db.LoadNode(ctx, idx)
//	neighbor, _ := db.ResolveNeighbor(ctx, n, 2)
//
// # Loading
//
// A load decodes the requested record and eagerly resolves nested records up
// to WithMaxLoads levels deep. Deeper records stay unresolved until they are
// accessed through ResolveNode or an index lookup.
//
// # Versions
//
// Records are appended to the file of the version they belong to. A persisted
// record is rewritten in place only by its own version; NextVersion moves a
// node forward and links it back to its predecessor. Record offsets are local
// to a version file, so persisting the new version copies the reachable
// records of older versions into it, loading them as needed.
//
// # Roots
//
// Named roots map a name to the FileIndex of a top-level record. Commit flushes
// all version files and moves a root with compare-and-swap semantics through
// the configured roots.Catalog (a local file by default, or DynamoDB).
//
// # Archiving
//
// Archive uploads version files to a blobstore.BlobStore (local, in-memory,
// S3 or MinIO) and Restore brings them back into an empty slot.
//
// # Observability
//
//	db, _ := lazyvec.Open("./data",
//	    lazyvec.WithLogger(lazyvec.NewJSONLogger(slog.LevelDebug)),
//	    lazyvec.WithMetrics(&lazyvec.BasicMetricsCollector{}),
//	)
package lazyvec
