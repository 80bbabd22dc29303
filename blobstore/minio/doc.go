// Package minio implements blobstore.BlobStore on the MinIO client, for
// MinIO and other S3-compatible servers such as Ceph or Garage.
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds: credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	store := minioblob.NewStore(client, "backups", "lazyvec/")
//	err = db.Archive(ctx, store)
//
// Version files are uploaded as single streaming PUTs; Abort cancels an
// upload so no partial object becomes visible. Reads are ranged GETs.
package minio
