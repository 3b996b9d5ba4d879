// Package stats reports quality statistics of a clustering run.
package stats

import (
	"fmt"
	"math"

	"github.com/hupe1980/artlens/clustering"
	"github.com/hupe1980/artlens/distance"
	"github.com/hupe1980/artlens/vectorindex"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// ClusterStats describes one cluster.
type ClusterStats struct {
	ID   int `json:"id"`
	Size int `json:"size"`
	// MeanDistance is the mean member distance to the centroid.
	MeanDistance float64 `json:"mean_distance"`
	// MaxDistance is the distance of the farthest member.
	MaxDistance float64 `json:"max_distance"`
	// Similarity is the mean cosine similarity of the centroid to every
	// other centroid. Lower means more distinct. Zero when K is 1.
	Similarity float64 `json:"similarity"`
}

// Report summarizes a clustering run.
type Report struct {
	Clusters   int     `json:"clusters"`
	Records    int     `json:"records"`
	SizeMean   float64 `json:"size_mean"`
	SizeStdDev float64 `json:"size_std_dev"`
	SizeMin    int     `json:"size_min"`
	SizeMax    int     `json:"size_max"`
	Inertia    float64 `json:"inertia"`
	// MeanSimilarity averages ClusterStats.Similarity over all clusters.
	MeanSimilarity float64        `json:"mean_similarity"`
	PerCluster     []ClusterStats `json:"per_cluster"`
}

func (r *Report) String() string {
	return fmt.Sprintf("Report(clusters=%d, records=%d, size=%.1f±%.1f [%d, %d], inertia=%.4f, similarity=%.4f)",
		r.Clusters, r.Records, r.SizeMean, r.SizeStdDev, r.SizeMin, r.SizeMax, r.Inertia, r.MeanSimilarity)
}

// Compute derives a report from a clustering result and the index it was
// built from.
func Compute(res *clustering.Result, ix *vectorindex.Index) (*Report, error) {
	if len(res.Clusters) == 0 {
		return nil, fmt.Errorf("stats: result has no clusters")
	}
	if ix.Len() != len(res.Assignments) {
		return nil, fmt.Errorf("stats: index has %d records, result has %d assignments", ix.Len(), len(res.Assignments))
	}
	distFunc, err := distance.Provider(res.Config.Metric)
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}

	k := len(res.Clusters)
	sizes := make([]float64, k)
	per := make([]ClusterStats, k)
	for j, c := range res.Clusters {
		sizes[j] = float64(c.Size())

		dists := make([]float64, 0, c.Size())
		c.ForEachOrdinal(func(ord int) bool {
			dists = append(dists, distFunc(ix.Vector(ord), c.Centroid))
			return true
		})

		cs := ClusterStats{ID: c.ID, Size: c.Size()}
		if len(dists) > 0 {
			cs.MeanDistance = stat.Mean(dists, nil)
			cs.MaxDistance = floats.Max(dists)
		}
		per[j] = cs
	}

	sims := centroidSimilarity(res.Clusters)
	for j := range per {
		per[j].Similarity = sims[j]
	}

	mean, std := stat.MeanStdDev(sizes, nil)
	if k == 1 {
		std = 0
	}

	return &Report{
		Clusters:       k,
		Records:        ix.Len(),
		SizeMean:       mean,
		SizeStdDev:     std,
		SizeMin:        int(floats.Min(sizes)),
		SizeMax:        int(floats.Max(sizes)),
		Inertia:        res.Inertia,
		MeanSimilarity: stat.Mean(sims, nil),
		PerCluster:     per,
	}, nil
}

// centroidSimilarity returns, per centroid, the mean cosine similarity to
// the other centroids. Zero centroids count as orthogonal to everything.
func centroidSimilarity(clusters []*clustering.Cluster) []float64 {
	k := len(clusters)
	out := make([]float64, k)
	if k < 2 {
		return out
	}

	dim := len(clusters[0].Centroid)
	c := mat.NewDense(k, dim, nil)
	for i, cl := range clusters {
		row := make([]float64, dim)
		for d, v := range cl.Centroid {
			row[d] = float64(v)
		}
		if n := floats.Norm(row, 2); n > 0 {
			floats.Scale(1/n, row)
		}
		c.SetRow(i, row)
	}

	var gram mat.Dense
	gram.Mul(c, c.T())

	for i := 0; i < k; i++ {
		var sum float64
		for j := 0; j < k; j++ {
			if i != j {
				sum += math.Max(-1, math.Min(1, gram.At(i, j)))
			}
		}
		out[i] = sum / float64(k-1)
	}
	return out
}
