package kmeans

import (
	"context"
	"testing"

	"github.com/hupe1980/artlens/distance"
	"github.com/hupe1980/artlens/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrainKMeans(t *testing.T) {
	ctx := context.Background()
	// 2 clusters: near (0,0) and near (10,10)
	vecs := []float32{
		0, 0, 0, 1, 1, 0,
		10, 10, 10, 11, 11, 10,
	}

	res, err := TrainKMeans(ctx, vecs, 2, Config{K: 2, MaxIterations: 100, Seed: 42})
	require.NoError(t, err)
	assert.True(t, res.Converged)
	assert.False(t, res.Interrupted)
	assert.Len(t, res.Centroids, 4)
	assert.Equal(t, []int{3, 3}, res.Counts)

	a := res.Assignments
	assert.Equal(t, a[0], a[1])
	assert.Equal(t, a[0], a[2])
	assert.Equal(t, a[3], a[4])
	assert.Equal(t, a[3], a[5])
	assert.NotEqual(t, a[0], a[3])

	p1, _, err := AssignPartition([]float32{0.5, 0.5}, res.Centroids, 2, distance.MetricEuclidean)
	require.NoError(t, err)
	assert.Equal(t, a[0], p1)

	// Per blob: sqrt(2)/3 for the corner plus 2 * sqrt(5)/3 for the others.
	assert.InDelta(t, 2*(0.4714045+2*0.745356), res.Inertia(), 1e-4)
}

func TestTrainKMeans_Deterministic(t *testing.T) {
	ctx := context.Background()
	vecs := make([]float32, 0, 200*4)
	for i := 0; i < 200; i++ {
		f := float32(i % 7)
		vecs = append(vecs, f, float32(i%5), f*f, float32(i%3))
	}

	cfg := Config{K: 5, MaxIterations: 50, Seed: 7, Workers: 4}
	r1, err := TrainKMeans(ctx, vecs, 4, cfg)
	require.NoError(t, err)

	cfg.Workers = 1
	r2, err := TrainKMeans(ctx, vecs, 4, cfg)
	require.NoError(t, err)

	assert.Equal(t, r1.Assignments, r2.Assignments)
	assert.Equal(t, r1.Centroids, r2.Centroids)
	assert.Equal(t, r1.Iterations, r2.Iterations)
}

func TestTrainKMeans_Errors(t *testing.T) {
	ctx := context.Background()
	vecs := []float32{0, 0, 1, 1}

	tests := []struct {
		name string
		dim  int
		vecs []float32
		cfg  Config
		want error
	}{
		{"KZero", 2, vecs, Config{K: 0, MaxIterations: 1}, model.ErrConfiguration},
		{"KTooLarge", 2, vecs, Config{K: 3, MaxIterations: 1}, model.ErrConfiguration},
		{"NoIterations", 2, vecs, Config{K: 1, MaxIterations: 0}, model.ErrConfiguration},
		{"BadMetric", 2, vecs, Config{K: 1, MaxIterations: 1, Metric: distance.Metric(999)}, model.ErrConfiguration},
		{"BadDimension", 0, vecs, Config{K: 1, MaxIterations: 1}, model.ErrConfiguration},
		{"Ragged", 3, vecs, Config{K: 1, MaxIterations: 1}, model.ErrData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := TrainKMeans(ctx, tt.vecs, tt.dim, tt.cfg)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestTrainKMeans_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	vecs := make([]float32, 1000*2)
	for i := range vecs {
		vecs[i] = float32(i % 97)
	}

	res, err := TrainKMeans(ctx, vecs, 2, Config{K: 10, MaxIterations: 1000})
	require.NoError(t, err)
	assert.True(t, res.Interrupted)
	assert.False(t, res.Converged)
	assert.Equal(t, 1, res.Iterations)
	for _, a := range res.Assignments {
		assert.GreaterOrEqual(t, a, 0)
		assert.Less(t, a, 10)
	}
}

func TestTrainKMeans_MaxIterations(t *testing.T) {
	vecs := []float32{0, 0, 1, 0, 5, 5, 6, 5, 9, 9}
	res, err := TrainKMeans(context.Background(), vecs, 2, Config{K: 2, MaxIterations: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Iterations)
	assert.False(t, res.Converged)
	assert.False(t, res.Interrupted)
}

func TestTrainKMeans_KEqualsN(t *testing.T) {
	vecs := []float32{0, 0, 3, 0, 0, 4, 8, 8}
	res, err := TrainKMeans(context.Background(), vecs, 2, Config{K: 4, MaxIterations: 10, Seed: 3})
	require.NoError(t, err)
	assert.True(t, res.Converged)
	assert.Equal(t, []int{1, 1, 1, 1}, res.Counts)
	assert.InDelta(t, 0, res.Inertia(), 1e-9)
}

func TestTrainKMeans_ReseedsEmptyClusters(t *testing.T) {
	// Identical vectors always tie to cluster 0, leaving cluster 1 empty
	// until a re-seed fills it.
	vecs := []float32{1, 1, 1, 1, 1, 1}
	res, err := TrainKMeans(context.Background(), vecs, 2, Config{K: 2, MaxIterations: 5})
	require.NoError(t, err)

	assert.Positive(t, res.Reseeds)
	for j, c := range res.Counts {
		assert.Positive(t, c, "cluster %d is empty", j)
	}
	assert.Equal(t, 3, res.Counts[0]+res.Counts[1])
}

func TestTrainKMeans_CosineCentroidsAreUnit(t *testing.T) {
	vecs := []float32{1, 0, 2, 0.1, 0, 1, 0.1, 3}
	res, err := TrainKMeans(context.Background(), vecs, 2, Config{K: 2, MaxIterations: 20, Metric: distance.MetricCosine})
	require.NoError(t, err)

	for j := 0; j < 2; j++ {
		c := res.Centroids[j*2 : (j+1)*2]
		assert.InDelta(t, 1.0, distance.Dot(c, c), 1e-5)
	}
	assert.Equal(t, res.Assignments[0], res.Assignments[1])
	assert.Equal(t, res.Assignments[2], res.Assignments[3])
}

func TestAssignPartition_TieGoesToLowestID(t *testing.T) {
	centroids := []float32{1, 0, -1, 0}
	p, d, err := AssignPartition([]float32{0, 0}, centroids, 2, distance.MetricEuclidean)
	require.NoError(t, err)
	assert.Equal(t, 0, p)
	assert.InDelta(t, 1.0, d, 1e-9)

	_, _, err = AssignPartition([]float32{0, 0}, centroids, 2, distance.Metric(7))
	assert.Error(t, err)
}

func TestFindClosestCentroids(t *testing.T) {
	centroids := []float32{
		0, 0,
		10, 10,
		5, 5,
		0, 0,
	}

	matches, err := FindClosestCentroids([]float32{1, 1}, centroids, 2, 3, distance.MetricEuclidean)
	require.NoError(t, err)
	require.Len(t, matches, 3)
	assert.Equal(t, 0, matches[0].ID)
	assert.Equal(t, 3, matches[1].ID)
	assert.Equal(t, 2, matches[2].ID)

	all, err := FindClosestCentroids([]float32{1, 1}, centroids, 2, 10, distance.MetricEuclidean)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}
