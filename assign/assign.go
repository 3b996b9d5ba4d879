package assign

import (
	"fmt"
	"sort"

	"github.com/hupe1980/artlens/clustering"
	"github.com/hupe1980/artlens/distance"
	"github.com/hupe1980/artlens/internal/kmeans"
	"github.com/hupe1980/artlens/internal/math32"
	"github.com/hupe1980/artlens/model"
)

// Match is a cluster and its distance to a query vector.
type Match struct {
	ClusterID int     `json:"cluster_id"`
	Distance  float64 `json:"distance"`
}

// Assigner finds the nearest clusters for new vectors.
// It is safe for concurrent use.
type Assigner struct {
	metric distance.Metric
	dim    int
	// ids maps a centroid index to its cluster id; ascending.
	ids []int
	// centroids holds all centroids row-major, in ids order.
	centroids []float32
}

// New builds an assigner over the given clusters. The centroids are copied.
func New(clusters []*clustering.Cluster, metric distance.Metric) (*Assigner, error) {
	if len(clusters) == 0 {
		return nil, model.NewConfigurationError("clusters", "at least one cluster is required")
	}
	if _, err := distance.Provider(metric); err != nil {
		return nil, model.NewConfigurationError("metric", "%v", err)
	}

	sorted := make([]*clustering.Cluster, len(clusters))
	copy(sorted, clusters)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	a := &Assigner{
		metric:    metric,
		dim:       len(sorted[0].Centroid),
		ids:       make([]int, len(sorted)),
		centroids: make([]float32, 0, len(sorted)*len(sorted[0].Centroid)),
	}
	if a.dim == 0 {
		return nil, &model.DataError{Field: "centroid", Reason: "empty centroid"}
	}
	for i, c := range sorted {
		if len(c.Centroid) != a.dim {
			return nil, &model.DataError{
				Field:  "centroid",
				Reason: fmt.Sprintf("cluster %d: dimension mismatch: expected %d, got %d", c.ID, a.dim, len(c.Centroid)),
			}
		}
		a.ids[i] = c.ID
		a.centroids = append(a.centroids, c.Centroid...)
	}
	return a, nil
}

// Metric returns the metric the assigner was built with.
func (a *Assigner) Metric() distance.Metric { return a.metric }

// Dimension returns the expected query dimension.
func (a *Assigner) Dimension() int { return a.dim }

// Len returns the number of clusters.
func (a *Assigner) Len() int { return len(a.ids) }

func (a *Assigner) check(vector []float32, metric distance.Metric) error {
	if metric != a.metric {
		return model.NewConfigurationError("metric", "assigner uses %v, got %v", a.metric, metric)
	}
	if len(vector) != a.dim {
		return model.ErrDimensionMismatch("", a.dim, len(vector))
	}
	if err := model.ValidateVector(vector); err != nil {
		return err
	}
	if a.metric == distance.MetricCosine && math32.Norm(vector) == 0 {
		return &model.DataError{Field: "vector", Reason: "zero vector has no direction under the cosine metric"}
	}
	return nil
}

// Assign returns the topK nearest clusters to vector, ascending by distance
// with ties broken by cluster id. metric must match the build metric.
func (a *Assigner) Assign(vector []float32, metric distance.Metric, topK int) ([]Match, error) {
	if metric != a.metric {
		return nil, model.NewConfigurationError("metric", "assigner uses %v, got %v", a.metric, metric)
	}
	if topK < 1 || topK > len(a.ids) {
		return nil, model.NewConfigurationError("top_k", "must be in [1, %d], got %d", len(a.ids), topK)
	}
	if err := a.check(vector, metric); err != nil {
		return nil, err
	}

	found, err := kmeans.FindClosestCentroids(vector, a.centroids, a.dim, topK, a.metric)
	if err != nil {
		return nil, err
	}
	matches := make([]Match, len(found))
	for i, f := range found {
		matches[i] = Match{ClusterID: a.ids[f.ID], Distance: f.Distance}
	}
	return matches, nil
}

// Nearest returns the closest cluster under the build metric.
func (a *Assigner) Nearest(vector []float32) (Match, error) {
	if err := a.check(vector, a.metric); err != nil {
		return Match{}, err
	}
	idx, d, err := kmeans.AssignPartition(vector, a.centroids, a.dim, a.metric)
	if err != nil {
		return Match{}, err
	}
	return Match{ClusterID: a.ids[idx], Distance: d}, nil
}
