// Package artlens clusters artwork embeddings, explains each cluster through
// the metadata of its members and writes captions from those explanations.
//
// The pipeline has three stages:
//
//	records → clustering engine → cluster interpreter → caption generator
//
// plus a nearest-cluster assigner that lets previously unseen artworks be
// described by the cluster they fall into.
//
// # Quick Start
//
//	p, err := artlens.New(
//	    artlens.WithK(12),
//	    artlens.WithMetric(distance.MetricCosine),
//	    artlens.WithSeed(42),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	m, err := p.Build(ctx, records)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	c, _ := m.Caption(ctx, "art-17")
//	fmt.Println(c.Text) // "A portrait painting depicting religion and rendered in oil."
//
//	// Previously unseen artwork:
//	c, _ = m.CaptionVector(ctx, "new-1", embedding)
//
// # Determinism
//
// A build is fully determined by its records (in order), K, metric, seed and
// iteration limit. The number of workers never changes the result.
//
// # Persistence
//
// Models are saved as snapshots to any blobstore.BlobStore: memory, the
// local filesystem, S3 (optionally with a DynamoDB commit store), MinIO or
// BadgerDB.
//
//	store := blobstore.NewLocalStore("./models")
//	p, _ := artlens.New(artlens.WithBlobStore(store), artlens.WithCompression(snapshot.CompressionZSTD))
//	name, _ := p.Save(ctx, m)
//	m, _ = p.Load(ctx)
//
// # Observability
//
// Every operation is logged through a Logger (log/slog) and reported to a
// MetricsCollector. The observability package exports the metrics to
// Prometheus.
//
// # Errors
//
// Invalid parameters fail with a *ConfigurationError, malformed input with a
// *DataError. Both match ErrConfiguration and ErrData with errors.Is.
// Non-convergence is not an error; inspect Model.Status.
package artlens
