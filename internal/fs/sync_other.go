//go:build !linux

package fs

// Datasync flushes file data to stable storage.
func Datasync(f File) error {
	return f.Sync()
}
