// Package s3 provides an Amazon S3 implementation of blobstore.BlobStore.
//
// # Usage
//
//	store, err := s3.NewFromDefaultConfig(ctx, "my-bucket", "lazyvec/")
//	if err != nil {
//	    return err
//	}
//	err = db.Archive(ctx, store)
//
// Version files are uploaded with the multipart manager and read back with
// ranged GETs, so a restore can stream a large file without buffering it.
package s3
