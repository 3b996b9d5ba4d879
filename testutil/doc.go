// Package testutil provides seeded data generators for tests and benchmarks.
//
// This package is intended for use in tests only.
//
// # Random Vectors
//
//	rng := testutil.NewRNG(seed)
//	vecs := rng.ClusteredVectors(300, 16, 3, 0.05)
//
// # Labeled Records
//
//	records := rng.LabeledBlobs(testutil.BlobSpec{Num: 300, Dim: 16, Blobs: 3, Spread: 0.05})
//
// Blob b carries the labels at position b of each vocabulary, so tests can
// check that clusters recover the labels of the blob they came from.
package testutil
