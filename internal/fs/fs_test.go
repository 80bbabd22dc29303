package fs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalFS(t *testing.T) {
	tmp := t.TempDir()
	lfs := LocalFS{}

	dir := filepath.Join(tmp, "subdir")
	assert.NoError(t, lfs.MkdirAll(dir, 0755))

	fpath := filepath.Join(dir, "1.vec")
	f, err := lfs.OpenFile(fpath, os.O_CREATE|os.O_RDWR, 0644)
	require.NoError(t, err)

	_, err = f.WriteAt([]byte("hello"), 0)
	assert.NoError(t, err)
	_, err = f.WriteAt([]byte("J"), 0)
	assert.NoError(t, err)

	buf := make([]byte, 5)
	_, err = f.ReadAt(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "Jello", string(buf))

	assert.NoError(t, Datasync(f))

	size, err := Size(f)
	assert.NoError(t, err)
	assert.Equal(t, int64(5), size)
	assert.NoError(t, f.Close())

	entries, err := lfs.ReadDir(dir)
	assert.NoError(t, err)
	assert.Len(t, entries, 1)

	newPath := filepath.Join(dir, "2.vec")
	assert.NoError(t, lfs.Rename(fpath, newPath))
	ok, err := Exists(lfs, newPath)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.NoError(t, lfs.Remove(newPath))
	ok, err = Exists(lfs, newPath)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFaultyFS_WriteLimit(t *testing.T) {
	tmp := t.TempDir()
	ffs := NewFaultyFS(LocalFS{})
	ffs.AddRule("faulty", Fault{FailAfterBytes: 5})

	f, err := ffs.OpenFile(filepath.Join(tmp, "faulty.vec"), os.O_CREATE|os.O_RDWR, 0644)
	require.NoError(t, err)
	defer f.Close()

	n, err := f.WriteAt([]byte("hello"), 0)
	assert.NoError(t, err)
	assert.Equal(t, 5, n)

	n, err = f.WriteAt([]byte("!"), 5)
	assert.ErrorIs(t, err, ErrInjected)
	assert.Equal(t, 0, n)

	// Files not matching the rule are unaffected.
	g, err := ffs.OpenFile(filepath.Join(tmp, "healthy.vec"), os.O_CREATE|os.O_RDWR, 0644)
	require.NoError(t, err)
	defer g.Close()
	_, err = g.WriteAt([]byte("hello world"), 0)
	assert.NoError(t, err)
}

func TestFaultyFS_ReadSyncClose(t *testing.T) {
	tmp := t.TempDir()
	custom := errors.New("disk on fire")
	ffs := NewFaultyFS(nil)
	ffs.AddRule("bad", Fault{FailAfterBytes: -1, FailOnRead: true, FailOnSync: true, FailOnClose: true, Err: custom})

	f, err := ffs.OpenFile(filepath.Join(tmp, "bad.vec"), os.O_CREATE|os.O_RDWR, 0644)
	require.NoError(t, err)

	_, err = f.WriteAt([]byte("abc"), 0)
	assert.NoError(t, err)

	_, err = f.ReadAt(make([]byte, 3), 0)
	assert.ErrorIs(t, err, custom)
	assert.ErrorIs(t, f.Sync(), custom)
	assert.ErrorIs(t, f.Close(), custom)

	ffs.ClearRules()
	g, err := ffs.OpenFile(filepath.Join(tmp, "bad.vec"), os.O_RDWR, 0644)
	require.NoError(t, err)
	buf := make([]byte, 3)
	_, err = g.ReadAt(buf, 0)
	assert.NoError(t, err)
	assert.Equal(t, "abc", string(buf))
	assert.NoError(t, g.Close())
}

func TestFaultyFS_Delegation(t *testing.T) {
	tmp := t.TempDir()
	ffs := NewFaultyFS(LocalFS{})

	dir := filepath.Join(tmp, "subdir")
	assert.NoError(t, ffs.MkdirAll(dir, 0755))

	fpath := filepath.Join(dir, "test.vec")
	f, err := ffs.OpenFile(fpath, os.O_CREATE|os.O_RDWR, 0644)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	info, err := ffs.Stat(fpath)
	require.NoError(t, err)
	assert.Equal(t, int64(0), info.Size())

	assert.NoError(t, ffs.Rename(fpath, fpath+".old"))
	_, err = ffs.ReadDir(dir)
	assert.NoError(t, err)
	assert.NoError(t, ffs.Remove(fpath+".old"))
}
