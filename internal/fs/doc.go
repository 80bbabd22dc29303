// Package fs provides the filesystem abstraction under the per-version files.
//
// The package defines two key interfaces:
//
//   - [File]: an open version file with positioned read/write and sync
//   - [FileSystem]: open, remove, rename, stat, mkdir, readdir, truncate
//
// # Implementations
//
//   - [LocalFS]: production implementation using the os package
//   - [FaultyFS]: test utility that injects write, read, sync and close failures
//
// Production code uses fs.Default. Tests inject a FaultyFS:
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.AddRule("7.vec", fs.Fault{FailAfterBytes: 64})
//
// Filesystem calls take no context.Context: local syscalls are not interruptible.
// Remote storage goes through the blobstore package, which does take a context.
package fs
