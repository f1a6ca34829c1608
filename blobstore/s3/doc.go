// Package s3 provides an S3 implementation of the blobstore.Store interface.
//
// # Usage
//
//	cfg, err := config.LoadDefaultConfig(ctx)
//	store := s3.NewStore(awss3.NewFromConfig(cfg), "my-bucket", "geocluster/")
//
//	w := export.NewWriter(store)
//
// # Features
//
//   - Multipart uploads for large record sets
//   - Automatic pagination for listing
//   - Configurable prefix for multi-tenant isolation
package s3
