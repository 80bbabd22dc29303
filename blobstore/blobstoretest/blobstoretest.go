// Package blobstoretest checks BlobStore implementations against the
// behavior Archive and Restore rely on.
//
//	func TestStore(t *testing.T) {
//	    blobstoretest.Run(t, func(t *testing.T) blobstore.BlobStore {
//	        return newStore(t)
//	    })
//	}
package blobstoretest

import (
	"context"
	"io"
	"os"
	"testing"

	"github.com/hupe1980/lazyvec/blobstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run executes the conformance suite. newStore must return an empty store
// (or one scoped to a fresh prefix) on every call.
func Run(t *testing.T, newStore func(t *testing.T) blobstore.BlobStore) {
	t.Run("Lifecycle", func(t *testing.T) { testLifecycle(t, newStore(t)) })
	t.Run("ReadRange", func(t *testing.T) { testReadRange(t, newStore(t)) })
	t.Run("WriteAfterClose", func(t *testing.T) { testWriteAfterClose(t, newStore(t)) })
	t.Run("Abort", func(t *testing.T) { testAbort(t, newStore(t)) })
}

func testLifecycle(t *testing.T, store blobstore.BlobStore) {
	ctx := context.Background()
	data := []byte("hello world, this is an archived version file")

	w, err := store.Create(ctx, "v/1.vec")
	require.NoError(t, err)
	n, err := w.Write(data)
	require.NoError(t, err)
	require.Equal(t, len(data), n)
	require.NoError(t, w.Sync())
	require.NoError(t, w.Close())

	blob, err := store.Open(ctx, "v/1.vec")
	require.NoError(t, err)
	defer blob.Close()
	require.Equal(t, int64(len(data)), blob.Size())

	buf := make([]byte, 5)
	n, err = blob.ReadAt(ctx, buf, 6)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "world", string(buf))

	all, err := blobstore.ReadAll(ctx, blob)
	require.NoError(t, err)
	assert.Equal(t, data, all)

	require.NoError(t, store.Put(ctx, "v/2.vec", []byte("x")))
	require.NoError(t, store.Put(ctx, "other", []byte("y")))

	names, err := store.List(ctx, "v/")
	require.NoError(t, err)
	assert.Equal(t, []string{"v/1.vec", "v/2.vec"}, names)

	for _, name := range []string{"v/1.vec", "v/2.vec", "other"} {
		require.NoError(t, store.Delete(ctx, name))
	}
	require.NoError(t, store.Delete(ctx, "v/1.vec"), "deleting a missing blob")
	_, err = store.Open(ctx, "v/1.vec")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}

func testReadRange(t *testing.T, store blobstore.BlobStore) {
	ctx := context.Background()
	data := []byte("0123456789")
	require.NoError(t, store.Put(ctx, "boundary", data))
	defer func() { _ = store.Delete(ctx, "boundary") }()

	blob, err := store.Open(ctx, "boundary")
	require.NoError(t, err)
	defer blob.Close()

	read := func(off, length int64) string {
		r, err := blob.ReadRange(ctx, off, length)
		require.NoError(t, err)
		defer r.Close()
		content, err := io.ReadAll(r)
		require.NoError(t, err)
		return string(content)
	}
	assert.Equal(t, string(data), read(0, 10))
	assert.Equal(t, "89", read(8, 5))

	_, err = blob.ReadRange(ctx, 20, 5)
	assert.ErrorIs(t, err, io.EOF)

	buf := make([]byte, 4)
	n, err := blob.ReadAt(ctx, buf, 8)
	assert.Equal(t, 2, n)
	assert.ErrorIs(t, err, io.EOF)
}

func testWriteAfterClose(t *testing.T, store blobstore.BlobStore) {
	ctx := context.Background()
	w, err := store.Create(ctx, "closed")
	require.NoError(t, err)
	require.NoError(t, w.Close())
	defer func() { _ = store.Delete(ctx, "closed") }()

	_, err = w.Write([]byte("late"))
	assert.ErrorIs(t, err, os.ErrClosed)
}

func testAbort(t *testing.T, store blobstore.BlobStore) {
	ctx := context.Background()
	w, err := store.Create(ctx, "aborted")
	require.NoError(t, err)
	_, err = w.Write([]byte("partial"))
	require.NoError(t, err)

	a, ok := w.(blobstore.Aborter)
	if !ok {
		_ = w.Close()
		_ = store.Delete(ctx, "aborted")
		t.Skipf("%T does not support Abort", w)
	}
	require.NoError(t, a.Abort())

	_, err = store.Open(ctx, "aborted")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.NotContains(t, names, "aborted")
}
