//go:build linux

package fs

import (
	"os"

	"golang.org/x/sys/unix"
)

// Datasync flushes file data to stable storage.
// On Linux it skips the metadata flush when f is backed by an *os.File.
func Datasync(f File) error {
	if osf, ok := f.(*os.File); ok {
		return unix.Fdatasync(int(osf.Fd()))
	}
	return f.Sync()
}
