// Package assign locates the nearest clusters of vectors that were not part
// of the clustering run.
//
// The Assigner scans every centroid, which is fine for the cluster counts a
// caption pipeline uses. It is bound to the metric the clusters were built
// with and refuses queries under any other metric.
package assign
