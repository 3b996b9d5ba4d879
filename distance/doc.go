// Package distance provides the vector distance metrics used for clustering
// and nearest-cluster assignment.
//
// # Supported Metrics
//
//   - MetricEuclidean: Euclidean (L2) distance (default)
//   - MetricCosine: cosine distance, 1 - cos(a, b), in [0, 2]
//
// # Usage
//
//	fn, err := distance.Provider(distance.MetricCosine)
//	d := fn(a, b)
//	normalized, ok := distance.NormalizeL2Copy(vec)
package distance
