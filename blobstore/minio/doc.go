// Package minio provides a blobstore.Store implementation using the MinIO client.
//
// It works with MinIO and other S3-compatible servers (Ceph, Garage, SeaweedFS)
// without pulling in the AWS SDK.
//
// # Basic Usage
//
//	store, err := minio.Dial("localhost:9000", "minioadmin", "minioadmin", false,
//	    "my-bucket", "geocluster/")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	w := export.NewWriter(store)
package minio
