package clustering

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/hupe1980/artlens/distance"
	"github.com/hupe1980/artlens/model"
	"github.com/hupe1980/artlens/testutil"
	"github.com/hupe1980/artlens/vectorindex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildIndex(t *testing.T, vecs ...[]float32) *vectorindex.Index {
	t.Helper()
	records := make([]model.Record, len(vecs))
	for i, v := range vecs {
		records[i] = model.Record{ID: fmt.Sprintf("r%d", i), Vector: v}
	}
	ix, err := vectorindex.Build(records)
	require.NoError(t, err)
	return ix
}

func TestEngine_TwoBlobs(t *testing.T) {
	ix := buildIndex(t,
		[]float32{0, 0}, []float32{0, 1}, []float32{1, 0},
		[]float32{10, 10}, []float32{10, 11}, []float32{11, 10},
	)

	res, err := NewEngine().Cluster(context.Background(), ix, Config{
		K:             2,
		Metric:        distance.MetricEuclidean,
		MaxIterations: 100,
		Seed:          0,
	})
	require.NoError(t, err)
	assert.Equal(t, StatusConverged, res.Status)
	require.Len(t, res.Clusters, 2)

	clusters := append([]*Cluster(nil), res.Clusters...)
	sort.Slice(clusters, func(i, j int) bool { return clusters[i].Centroid[0] < clusters[j].Centroid[0] })

	assert.Equal(t, []string{"r0", "r1", "r2"}, clusters[0].MemberIDs())
	assert.Equal(t, []string{"r3", "r4", "r5"}, clusters[1].MemberIDs())
	assert.InDeltaSlice(t, []float32{0.3333, 0.3333}, clusters[0].Centroid, 1e-3)
	assert.InDeltaSlice(t, []float32{10.3333, 10.3333}, clusters[1].Centroid, 1e-3)

	for i, c := range res.Clusters {
		assert.Equal(t, i, c.ID)
	}
	assert.Same(t, res.ClusterOf(4), res.ClusterOf(5))
	assert.Nil(t, res.ClusterOf(6))
	assert.Positive(t, res.Inertia)
	assert.Equal(t, 2, res.Config.K)
}

func TestEngine_PartitionInvariant(t *testing.T) {
	rng := testutil.NewRNG(11)
	records := rng.LabeledBlobs(testutil.BlobSpec{Num: 300, Dim: 16, Blobs: 4, Spread: 0.05})
	ix, err := vectorindex.Build(records)
	require.NoError(t, err)

	for _, metric := range []distance.Metric{distance.MetricEuclidean, distance.MetricCosine} {
		t.Run(metric.String(), func(t *testing.T) {
			res, err := NewEngine().Cluster(context.Background(), ix, Config{
				K:             6,
				Metric:        metric,
				MaxIterations: 50,
				Seed:          5,
				Workers:       3,
			})
			require.NoError(t, err)

			seen := make(map[string]int)
			total := 0
			for _, c := range res.Clusters {
				assert.Positive(t, c.Size(), "cluster %d is empty", c.ID)
				assert.Len(t, c.Centroid, 16)
				for _, id := range c.MemberIDs() {
					seen[id]++
				}
				total += c.Size()

				c.ForEachOrdinal(func(ord int) bool {
					assert.Equal(t, c.ID, res.Assignments[ord])
					return true
				})
			}
			assert.Equal(t, ix.Len(), total)
			assert.Len(t, seen, ix.Len())
			for id, n := range seen {
				assert.Equal(t, 1, n, "record %s assigned %d times", id, n)
			}
		})
	}
}

func TestEngine_Deterministic(t *testing.T) {
	rng := testutil.NewRNG(3)
	records := rng.LabeledBlobs(testutil.BlobSpec{Num: 200, Dim: 8, Blobs: 3, Spread: 0.2})
	ix, err := vectorindex.Build(records)
	require.NoError(t, err)

	cfg := Config{K: 4, Metric: distance.MetricCosine, MaxIterations: 30, Seed: 99}
	r1, err := NewEngine().Cluster(context.Background(), ix, cfg)
	require.NoError(t, err)

	cfg.Workers = 7
	r2, err := NewEngine().Cluster(context.Background(), ix, cfg)
	require.NoError(t, err)

	assert.Equal(t, r1.Assignments, r2.Assignments)
	assert.Equal(t, r1.Centroids(), r2.Centroids())
	assert.Equal(t, r1.Status, r2.Status)
	assert.Equal(t, r1.Iterations, r2.Iterations)
}

func TestEngine_DoesNotMutateIndex(t *testing.T) {
	ix := buildIndex(t, []float32{3, 4}, []float32{0, 2}, []float32{5, 0})
	before := append([]float32(nil), ix.Flat()...)

	_, err := NewEngine().Cluster(context.Background(), ix, Config{K: 2, Metric: distance.MetricCosine, MaxIterations: 10})
	require.NoError(t, err)
	assert.Equal(t, before, ix.Flat())
}

func TestEngine_EmptyClustersAreReseeded(t *testing.T) {
	ix := buildIndex(t, []float32{1, 1}, []float32{1, 1}, []float32{1, 1}, []float32{1, 1})

	res, err := NewEngine().Cluster(context.Background(), ix, Config{K: 3, MaxIterations: 4})
	require.NoError(t, err)
	for _, c := range res.Clusters {
		assert.Positive(t, c.Size())
	}
	assert.Positive(t, res.Reseeds)
	assert.Equal(t, StatusMaxIterations, res.Status)
}

func TestEngine_Interrupted(t *testing.T) {
	rng := testutil.NewRNG(8)
	records := rng.LabeledBlobs(testutil.BlobSpec{Num: 100, Dim: 4, Blobs: 5, Spread: 0.5})
	ix, err := vectorindex.Build(records)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := NewEngine().Cluster(ctx, ix, Config{K: 5, MaxIterations: 100})
	require.NoError(t, err)
	assert.Equal(t, StatusInterrupted, res.Status)
	assert.Equal(t, 1, res.Iterations)

	total := 0
	for _, c := range res.Clusters {
		total += c.Size()
	}
	assert.Equal(t, 100, total)
}

func TestEngine_ConfigErrors(t *testing.T) {
	ix := buildIndex(t, []float32{0, 0}, []float32{1, 1})

	tests := []struct {
		name string
		cfg  Config
	}{
		{"KZero", Config{K: 0, MaxIterations: 1}},
		{"KTooLarge", Config{K: 3, MaxIterations: 1}},
		{"NoIterations", Config{K: 1}},
		{"BadMetric", Config{K: 1, MaxIterations: 1, Metric: distance.Metric(42)}},
		{"NegativeWorkers", Config{K: 1, MaxIterations: 1, Workers: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEngine().Cluster(context.Background(), ix, tt.cfg)
			var cfgErr *model.ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
		})
	}

	_, err := NewEngine().Cluster(context.Background(), nil, DefaultConfig())
	assert.ErrorIs(t, err, model.ErrData)
}

func TestEngine_CosineRejectsZeroVector(t *testing.T) {
	ix := buildIndex(t, []float32{1, 0}, []float32{0, 0}, []float32{0, 1})

	_, err := NewEngine().Cluster(context.Background(), ix, Config{K: 3, Metric: distance.MetricCosine, MaxIterations: 10})
	var dataErr *model.DataError
	require.ErrorAs(t, err, &dataErr)
	assert.Equal(t, "r1", dataErr.RecordID)
	assert.ErrorIs(t, err, model.ErrData)

	res, err := NewEngine().Cluster(context.Background(), ix, Config{K: 3, Metric: distance.MetricEuclidean, MaxIterations: 10})
	require.NoError(t, err)
	assert.Equal(t, StatusConverged, res.Status)
}

func TestStatus_Text(t *testing.T) {
	for _, s := range []Status{StatusConverged, StatusMaxIterations, StatusInterrupted} {
		b, err := s.MarshalText()
		require.NoError(t, err)

		var got Status
		require.NoError(t, got.UnmarshalText(b))
		assert.Equal(t, s, got)
	}

	_, err := Status(9).MarshalText()
	assert.Error(t, err)
	assert.Equal(t, "unknown(9)", Status(9).String())
}

func TestCluster_Accessors(t *testing.T) {
	c := NewCluster(2, []float32{1, 2}, []uint32{0, 4}, []string{"a", "b"})

	assert.Equal(t, 2, c.Size())
	assert.True(t, c.Contains(4))
	assert.False(t, c.Contains(1))
	assert.False(t, c.Contains(-1))
	assert.Equal(t, uint64(2), c.Ordinals().GetCardinality())

	ids := c.MemberIDs()
	ids[0] = "changed"
	assert.Equal(t, []string{"a", "b"}, c.MemberIDs())
}
