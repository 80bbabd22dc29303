// Package resource implements the controller that governs background work and I/O.
//
// The Controller manages two resource types:
//
//   - Concurrency: a weighted semaphore bounding background jobs (archive uploads, restores)
//   - IO: a token bucket limiting bytes flushed to disk or shipped to a blob store
//
// # IO Rate Limiting
//
//	rc := resource.NewController(resource.Config{
//	    IOLimitBytesPerSec: 64 * 1024 * 1024,
//	})
//
//	if err := rc.AcquireIO(ctx, 4096); err != nil {
//	    return err
//	}
//
// Requests larger than the bucket are split into bucket-sized waits.
//
// # Nil Safety
//
// All methods handle a nil Controller gracefully; they become no-ops.
package resource
