// Package blobstore abstracts where persisted models live.
//
// A BlobStore holds immutable named blobs. Snapshots are written once under
// a unique name and a small pointer blob names the current one, so stores
// only need atomic single-blob puts.
//
// # Built-in Implementations
//
//   - MemoryStore: in-process, for tests
//   - LocalStore: local filesystem, reads through mmap
//   - s3.Store / s3.DDBCommitStore: Amazon S3, optionally with DynamoDB
//     conditional writes for the pointer blob
//   - minio.Store: MinIO and other S3-compatible servers
//   - badger.Store: an embedded BadgerDB
//
// Implementations must be safe for concurrent use and return errors that
// satisfy errors.Is(err, ErrNotFound) for missing blobs.
package blobstore
