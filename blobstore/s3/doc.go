// Package s3 provides an S3 implementation of the blobstore.BlobStore interface.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("knn-results/"),
//	    s3.WithRegion("us-east-1"),
//	)
//
//	w, err := store.Create(ctx, "run-42.nnr")
//	sw, err := sink.NewStreamWriter[float64](ctx, w, dim)
//
// # Features
//
//   - Range reads for efficient partial fetches
//   - Multipart streaming uploads for large result sets
//   - Abort discards a partial upload
//   - Automatic pagination for listing
//   - Configurable prefix for multi-tenant isolation
package s3
