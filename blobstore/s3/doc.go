// Package s3 provides an S3 implementation of the blobstore.BlobStore interface.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("artlens/"),
//	    s3.WithRegion("eu-central-1"),
//	)
//
//	err = snapshot.Save(ctx, store, model)
//
// Use NewDDB instead when several writers may publish models to the same
// prefix: the CURRENT pointer then lives in DynamoDB and is advanced with
// conditional writes.
//
// # Features
//
//   - Range reads through GetObject
//   - CRC32C-checked single puts, multipart uploads above a threshold
//   - Automatic pagination for listing
//   - Configurable prefix for multi-tenant isolation
package s3
