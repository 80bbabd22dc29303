// Package buffered implements the per-version buffered file set.
//
// A Set owns one File per version identifier. Each File is a page-buffered view over
// its on-disk file: reads and writes go through an in-memory page cache, and Flush
// writes dirty pages back (rate-limited by the resource controller) before syncing.
//
// # Cursors
//
// A File hands out independent cursors. Every cursor has its own position, so
// concurrent readers never disturb each other:
//
//	err := file.WithCursor(func(c buffered.Cursor) error {
//	    if _, err := file.Seek(c, int64(offset), io.SeekStart); err != nil {
//	        return err
//	    }
//	    id, err := file.ReadU32(c)
//	    ...
//	})
//
// Cursors give no protection against two writers touching overlapping byte ranges.
// Writers that append take the file's append lock (LockAppend) for the duration of
// a record so that concurrent appends never interleave. Readers never take it.
//
// All integers and floats are little-endian and fixed-width.
package buffered
