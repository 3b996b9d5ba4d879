package clustering

import (
	"context"
	"time"

	"github.com/hupe1980/artlens/distance"
	"github.com/hupe1980/artlens/internal/kmeans"
	"github.com/hupe1980/artlens/internal/math32"
	"github.com/hupe1980/artlens/model"
	"github.com/hupe1980/artlens/vectorindex"
)

// Config controls a clustering run.
type Config struct {
	// K is the number of clusters, 1 <= K <= number of records.
	K int
	// Metric is the distance used for assignment. Cosine centroids are kept
	// at unit length.
	Metric distance.Metric
	// MaxIterations bounds the refinement loop.
	MaxIterations int
	// Seed drives the initial centroid selection.
	Seed int64
	// Workers bounds parallelism per iteration phase. Zero means GOMAXPROCS.
	Workers int
}

// DefaultConfig returns a configuration with the library defaults.
func DefaultConfig() Config {
	return Config{
		K:             8,
		Metric:        distance.MetricCosine,
		MaxIterations: 100,
	}
}

// Validate checks the configuration against a record count.
func (c Config) Validate(n int) error {
	if c.K < 1 || c.K > n {
		return model.NewConfigurationError("k", "must be in [1, %d], got %d", n, c.K)
	}
	if c.MaxIterations < 1 {
		return model.NewConfigurationError("max_iterations", "must be positive, got %d", c.MaxIterations)
	}
	if !c.Metric.Valid() {
		return model.NewConfigurationError("metric", "unsupported metric: %v", c.Metric)
	}
	if c.Workers < 0 {
		return model.NewConfigurationError("workers", "must not be negative, got %d", c.Workers)
	}
	return nil
}

// Result is the outcome of a clustering run.
type Result struct {
	Clusters []*Cluster
	// Assignments maps each index ordinal to its cluster id.
	Assignments []int
	Status      Status
	Iterations  int
	// Inertia is the sum of member distances to their centroid.
	Inertia float64
	// Reseeds counts empty-cluster re-seed moves.
	Reseeds  int
	Config   Config
	Duration time.Duration
}

// ClusterOf returns the cluster holding the record at ordinal.
func (r *Result) ClusterOf(ordinal int) *Cluster {
	if ordinal < 0 || ordinal >= len(r.Assignments) {
		return nil
	}
	return r.Clusters[r.Assignments[ordinal]]
}

// Centroids returns the centroid of every cluster, indexed by cluster id.
func (r *Result) Centroids() [][]float32 {
	out := make([][]float32, len(r.Clusters))
	for i, c := range r.Clusters {
		out[i] = c.Centroid
	}
	return out
}

// Engine runs clustering over a vector index.
type Engine struct{}

// NewEngine creates a clustering engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Cluster partitions the index into cfg.K clusters. The index is not
// modified.
func (e *Engine) Cluster(ctx context.Context, ix *vectorindex.Index, cfg Config) (*Result, error) {
	if ix == nil || ix.Len() == 0 {
		return nil, &model.DataError{Field: "records", Reason: "no records to cluster"}
	}
	if err := cfg.Validate(ix.Len()); err != nil {
		return nil, err
	}
	if cfg.Metric == distance.MetricCosine {
		for i := 0; i < ix.Len(); i++ {
			if math32.Norm(ix.Vector(i)) == 0 {
				return nil, &model.DataError{RecordID: ix.ID(i), Field: "vector", Reason: "zero vector has no direction under the cosine metric"}
			}
		}
	}

	start := time.Now()
	dim := ix.Dimension()

	km, err := kmeans.TrainKMeans(ctx, ix.Flat(), dim, kmeans.Config{
		K:             cfg.K,
		MaxIterations: cfg.MaxIterations,
		Seed:          cfg.Seed,
		Metric:        cfg.Metric,
		Workers:       cfg.Workers,
	})
	if err != nil {
		return nil, err
	}
	if len(km.Centroids) != cfg.K*dim {
		return nil, &model.DataError{Field: "centroid", Reason: "centroid dimension does not match the index"}
	}

	ordinals := make([][]uint32, cfg.K)
	ids := make([][]string, cfg.K)
	for i, c := range km.Assignments {
		ordinals[c] = append(ordinals[c], uint32(i))
		ids[c] = append(ids[c], ix.ID(i))
	}

	clusters := make([]*Cluster, cfg.K)
	for j := range clusters {
		clusters[j] = NewCluster(j, km.Centroids[j*dim:(j+1)*dim], ordinals[j], ids[j])
	}

	status := StatusMaxIterations
	switch {
	case km.Converged:
		status = StatusConverged
	case km.Interrupted:
		status = StatusInterrupted
	}

	return &Result{
		Clusters:    clusters,
		Assignments: km.Assignments,
		Status:      status,
		Iterations:  km.Iterations,
		Inertia:     km.Inertia(),
		Reseeds:     km.Reseeds,
		Config:      cfg,
		Duration:    time.Since(start),
	}, nil
}
