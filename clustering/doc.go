// Package clustering partitions the vectors of a vectorindex.Index into K
// clusters with seeded Lloyd refinement.
//
// # Usage
//
//	ix, err := vectorindex.Build(records)
//	if err != nil {
//		return err
//	}
//
//	res, err := clustering.NewEngine().Cluster(ctx, ix, clustering.Config{
//		K:             8,
//		Metric:        distance.MetricCosine,
//		MaxIterations: 100,
//		Seed:          42,
//	})
//
// The outcome is a pure function of the index contents and the Config:
// the same records in the same order with the same seed always produce the
// same clusters, regardless of Workers.
//
// Every record ends up in exactly one cluster and no cluster is empty.
// A run that stops before convergence reports StatusMaxIterations or
// StatusInterrupted; both are results, not errors.
//
// Under MetricCosine a zero vector has no direction and is rejected with a
// model.DataError naming the record.
package clustering
