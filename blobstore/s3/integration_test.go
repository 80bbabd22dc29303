package s3

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hupe1980/lazyvec/blobstore"
	"github.com/hupe1980/lazyvec/blobstore/blobstoretest"
	"github.com/stretchr/testify/require"
)

func TestIntegration_S3Store(t *testing.T) {
	bucket := os.Getenv("S3_BUCKET")
	if bucket == "" {
		t.Skip("Skipping S3 integration test: S3_BUCKET not set")
	}

	var seq atomic.Int64
	run := time.Now().UnixNano()
	blobstoretest.Run(t, func(t *testing.T) blobstore.BlobStore {
		store, err := NewFromDefaultConfig(context.Background(), bucket, fmt.Sprintf("test-lazyvec-%d-%d/", run, seq.Add(1)))
		require.NoError(t, err)
		return store
	})
}
