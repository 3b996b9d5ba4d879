// Package kmeans implements seeded Lloyd refinement over flat float32
// vectors.
//
// Used by the clustering package, which maps ordinals back to record ids
// and exposes the result as clusters.
package kmeans
