package kmeans

import (
	"context"
	"math"
	"math/rand"
	"runtime"
	"sort"

	"github.com/bits-and-blooms/bitset"
	"github.com/hupe1980/artlens/distance"
	"github.com/hupe1980/artlens/internal/math32"
	"github.com/hupe1980/artlens/model"
	"golang.org/x/sync/errgroup"
)

// Config controls a training run.
type Config struct {
	K             int
	MaxIterations int
	Seed          int64
	Metric        distance.Metric
	// Workers bounds the goroutines used per iteration phase.
	// Zero means runtime.GOMAXPROCS(0).
	Workers int
}

// Result is the outcome of TrainKMeans.
type Result struct {
	// Centroids holds the flattened centroids (k * dim).
	Centroids []float32
	// Assignments maps each vector ordinal to its cluster.
	Assignments []int
	// Distances holds each vector's distance to its final centroid.
	Distances []float64
	// Counts holds the member count per cluster.
	Counts      []int
	Iterations  int
	Converged   bool
	Interrupted bool
	// Reseeds counts empty-cluster re-seed moves across all iterations.
	Reseeds int
}

// Inertia returns the sum of member distances to their centroids.
func (r *Result) Inertia() float64 {
	var sum float64
	for _, d := range r.Distances {
		sum += d
	}
	return sum
}

// TrainKMeans partitions the vectors into k clusters using Lloyd's algorithm.
//
// Initial centroids are the first k entries of a permutation drawn from a
// math/rand source seeded with cfg.Seed, so identical input and config
// yield identical output. Each iteration is a barrier: every assignment is
// computed against the previous iteration's centroids before any centroid is
// recomputed. Empty clusters are re-seeded with the vector farthest from its
// own centroid.
//
// ctx is only checked between iterations. On cancellation the last complete
// partition is returned with Interrupted set; this is not an error.
func TrainKMeans(ctx context.Context, vectors []float32, dim int, cfg Config) (*Result, error) {
	if dim <= 0 {
		return nil, model.NewConfigurationError("dimension", "must be positive, got %d", dim)
	}
	if len(vectors)%dim != 0 {
		return nil, &model.DataError{Field: "vector", Reason: "flattened vectors are not a multiple of the dimension"}
	}
	n := len(vectors) / dim
	if cfg.K < 1 || cfg.K > n {
		return nil, model.NewConfigurationError("k", "must be in [1, %d], got %d", n, cfg.K)
	}
	if cfg.MaxIterations < 1 {
		return nil, model.NewConfigurationError("max_iterations", "must be positive, got %d", cfg.MaxIterations)
	}
	distFunc, err := distance.Provider(cfg.Metric)
	if err != nil {
		return nil, model.NewConfigurationError("metric", "%v", err)
	}

	t := &trainer{
		vectors:  vectors,
		dim:      dim,
		n:        n,
		k:        cfg.K,
		metric:   cfg.Metric,
		distFunc: distFunc,
		workers:  cfg.Workers,
	}
	if t.workers <= 0 {
		t.workers = runtime.GOMAXPROCS(0)
	}

	t.init(cfg.Seed)

	res := &Result{}
	for iter := 1; iter <= cfg.MaxIterations; iter++ {
		if iter > 1 && ctx.Err() != nil {
			res.Interrupted = true
			break
		}

		changed := t.assign()
		reseeds := t.reseed()
		res.Iterations = iter
		res.Reseeds += reseeds

		if !changed && reseeds == 0 {
			res.Converged = true
			break
		}

		t.update()
	}

	t.finalDistances()

	res.Centroids = t.centroids
	res.Assignments = t.assignments
	res.Distances = t.dists
	res.Counts = t.counts
	return res, nil
}

type trainer struct {
	vectors  []float32
	dim      int
	n        int
	k        int
	metric   distance.Metric
	distFunc distance.Func
	workers  int

	centroids   []float32
	assignments []int
	dists       []float64
	counts      []int
}

func (t *trainer) vector(i int) []float32 {
	return t.vectors[i*t.dim : (i+1)*t.dim]
}

func (t *trainer) centroid(j int) []float32 {
	return t.centroids[j*t.dim : (j+1)*t.dim]
}

func (t *trainer) init(seed int64) {
	rng := rand.New(rand.NewSource(seed)) // nolint gosec
	perm := rng.Perm(t.n)

	t.centroids = make([]float32, t.k*t.dim)
	for j := 0; j < t.k; j++ {
		c := t.centroid(j)
		copy(c, t.vector(perm[j]))
		if t.metric == distance.MetricCosine {
			distance.NormalizeL2InPlace(c)
		}
	}

	t.assignments = make([]int, t.n)
	for i := range t.assignments {
		t.assignments[i] = -1
	}
	t.dists = make([]float64, t.n)
	t.counts = make([]int, t.k)
}

// parallel runs fn over [0, total) split into contiguous chunks.
func (t *trainer) parallel(total int, fn func(lo, hi int)) {
	workers := min(t.workers, total)
	if workers <= 1 {
		fn(0, total)
		return
	}

	chunk := (total + workers - 1) / workers
	var g errgroup.Group
	g.SetLimit(workers)
	for lo := 0; lo < total; lo += chunk {
		hi := min(lo+chunk, total)
		g.Go(func() error {
			fn(lo, hi)
			return nil
		})
	}
	_ = g.Wait()
}

// assign moves every vector to its nearest centroid and reports whether
// any assignment changed. Ties go to the lowest cluster id.
func (t *trainer) assign() bool {
	next := make([]int, t.n)
	t.parallel(t.n, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			best, bestDist := nearest(t.vector(i), t.centroids, t.dim, t.k, t.distFunc)
			next[i] = best
			t.dists[i] = bestDist
		}
	})

	changed := false
	for j := range t.counts {
		t.counts[j] = 0
	}
	for i, c := range next {
		if t.assignments[i] != c {
			t.assignments[i] = c
			changed = true
		}
		t.counts[c]++
	}
	return changed
}

// reseed fills each empty cluster, in ascending id order, with the vector
// farthest from its own centroid. Donor clusters must keep at least one
// member and each vector moves at most once. Returns the number of moves.
func (t *trainer) reseed() int {
	var moved *bitset.BitSet
	moves := 0
	for j := 0; j < t.k; j++ {
		if t.counts[j] > 0 {
			continue
		}
		if moved == nil {
			moved = bitset.New(uint(t.n))
		}

		donor := -1
		far := -1.0
		for i := 0; i < t.n; i++ {
			if moved.Test(uint(i)) || t.counts[t.assignments[i]] < 2 {
				continue
			}
			if t.dists[i] > far {
				far = t.dists[i]
				donor = i
			}
		}
		if donor < 0 {
			// Unreachable while k <= n.
			continue
		}

		t.counts[t.assignments[donor]]--
		t.assignments[donor] = j
		t.counts[j]++
		t.dists[donor] = 0
		moved.Set(uint(donor))

		c := t.centroid(j)
		copy(c, t.vector(donor))
		if t.metric == distance.MetricCosine {
			distance.NormalizeL2InPlace(c)
		}
		moves++
	}
	return moves
}

// update recomputes every centroid as the mean of its members, visiting
// members in ascending ordinal order.
func (t *trainer) update() {
	members := make([][]int, t.k)
	for j := range members {
		members[j] = make([]int, 0, t.counts[j])
	}
	for i, c := range t.assignments {
		members[c] = append(members[c], i)
	}

	t.parallel(t.k, func(lo, hi int) {
		sum := make([]float64, t.dim)
		for j := lo; j < hi; j++ {
			if len(members[j]) == 0 {
				continue
			}
			for d := range sum {
				sum[d] = 0
			}
			for _, i := range members[j] {
				math32.AddInPlace(sum, t.vector(i))
			}
			c := t.centroid(j)
			scale := 1 / float64(len(members[j]))
			for d := range c {
				c[d] = float32(sum[d] * scale)
			}
			if t.metric == distance.MetricCosine {
				distance.NormalizeL2InPlace(c)
			}
		}
	})
}

func (t *trainer) finalDistances() {
	t.parallel(t.n, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			t.dists[i] = t.distFunc(t.vector(i), t.centroid(t.assignments[i]))
		}
	})
}

func nearest(vec, centroids []float32, dim, k int, distFunc distance.Func) (int, float64) {
	best := -1
	minDist := math.Inf(1)
	for j := 0; j < k; j++ {
		d := distFunc(vec, centroids[j*dim:(j+1)*dim])
		if d < minDist {
			minDist = d
			best = j
		}
	}
	return best, minDist
}

// AssignPartition finds the closest centroid for a vector.
// Ties go to the lowest centroid index.
func AssignPartition(vec []float32, centroids []float32, dim int, metric distance.Metric) (int, float64, error) {
	distFunc, err := distance.Provider(metric)
	if err != nil {
		return -1, 0, err
	}
	best, d := nearest(vec, centroids, dim, len(centroids)/dim, distFunc)
	return best, d, nil
}

// Match is a centroid index with its distance to a query.
type Match struct {
	ID       int
	Distance float64
}

// FindClosestCentroids returns the n closest centroids to the query vector,
// ascending by distance, ties by centroid index.
func FindClosestCentroids(query []float32, centroids []float32, dim int, n int, metric distance.Metric) ([]Match, error) {
	k := len(centroids) / dim
	if n > k {
		n = k
	}

	distFunc, err := distance.Provider(metric)
	if err != nil {
		return nil, err
	}

	dists := make([]Match, k)
	for i := 0; i < k; i++ {
		dists[i] = Match{ID: i, Distance: distFunc(query, centroids[i*dim:(i+1)*dim])}
	}

	sort.Slice(dists, func(i, j int) bool {
		if dists[i].Distance != dists[j].Distance {
			return dists[i].Distance < dists[j].Distance
		}
		return dists[i].ID < dists[j].ID
	})

	return dists[:n], nil
}
