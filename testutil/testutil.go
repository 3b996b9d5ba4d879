package testutil

import (
	"fmt"
	"maps"
	"math"
	"math/rand"
	"slices"
	"sync"

	"github.com/hupe1980/artlens/distance"
	"github.com/hupe1980/artlens/model"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)), // nolint gosec
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float64 returns a pseudo-random number in [0.0,1.0).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// FillUniform fills dst with random values in range [0, 1).
func (r *RNG) FillUniform(dst []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range dst {
		dst[i] = r.rand.Float32()
	}
}

// UniformVectors generates random vectors with values in range [0, 1).
// Uses a single backing array.
func (r *RNG) UniformVectors(num int, dimensions int) [][]float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float32, num*dimensions)
	vectors := make([][]float32, num)

	for i := range num {
		vec := data[i*dimensions : (i+1)*dimensions]
		for j := range vec {
			vec[j] = r.rand.Float32()
		}
		vectors[i] = vec
	}

	return vectors
}

// UnitVectors generates L2-normalized random vectors (on the hypersphere).
func (r *RNG) UnitVectors(num int, dimensions int) [][]float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unitVectorsLocked(num, dimensions)
}

func (r *RNG) unitVectorsLocked(num int, dimensions int) [][]float32 {
	data := make([]float32, num*dimensions)
	vectors := make([][]float32, num)

	for i := range num {
		vec := data[i*dimensions : (i+1)*dimensions]
		for j := range vec {
			vec[j] = float32(r.rand.NormFloat64())
		}
		if !distance.NormalizeL2InPlace(vec) {
			vec[0] = 1
		}
		vectors[i] = vec
	}

	return vectors
}

// ClusteredVectors generates vectors around random unit centroids with
// Gaussian noise of the given spread. Vector i belongs to blob i % clusters.
func (r *RNG) ClusteredVectors(num, dim, clusters int, spread float32) [][]float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	centroids := r.unitVectorsLocked(clusters, dim)

	data := make([]float32, num*dim)
	vectors := make([][]float32, num)

	for i := range num {
		centroid := centroids[i%clusters]
		vec := data[i*dim : (i+1)*dim]
		for j := range dim {
			vec[j] = centroid[j] + float32(r.rand.NormFloat64())*spread
		}
		vectors[i] = vec
	}

	return vectors
}

// Zipf returns a Zipfian-distributed value in [0, n).
// s=1.0 gives standard Zipf, larger values skew harder.
func (r *RNG) Zipf(n int, s float64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.zipfLocked(n, s)
}

func (r *RNG) zipfLocked(n int, s float64) int {
	if n <= 1 {
		return 0
	}

	var hns float64
	for i := 1; i <= n; i++ {
		hns += 1.0 / math.Pow(float64(i), s)
	}

	u := r.rand.Float64() * hns
	var cumulative float64
	for k := 1; k <= n; k++ {
		cumulative += 1.0 / math.Pow(float64(k), s)
		if u <= cumulative {
			return k - 1
		}
	}

	return n - 1
}

// Vocabulary lists the labels used by LabeledBlobs for each dimension.
var Vocabulary = map[string][]string{
	model.DimensionGenre: {"portrait", "landscape", "still life", "religious painting", "genre painting"},
	model.DimensionStyle: {"impressionism", "baroque", "cubism", "romanticism", "realism"},
	model.DimensionMedia: {"oil", "watercolor", "tempera", "ink", "fresco"},
	model.DimensionTopic: {"women", "mountains", "fruit", "saints", "peasants"},
}

// BlobSpec describes a LabeledBlobs dataset.
type BlobSpec struct {
	Num    int
	Dim    int
	Blobs  int
	Spread float32
	// Noise is the probability that a record gets one extra random label
	// per dimension.
	Noise float64
	// Unlabeled lists dimensions left empty on every record.
	Unlabeled []string
}

// LabeledBlobs generates records around Blobs unit centroids. Record i is
// "art-<i>" in blob i % Blobs and carries label (i % Blobs) % len(labels) of
// every vocabulary dimension.
func (r *RNG) LabeledBlobs(spec BlobSpec) []model.Record {
	vectors := r.ClusteredVectors(spec.Num, spec.Dim, spec.Blobs, spec.Spread)

	skip := make(map[string]bool, len(spec.Unlabeled))
	for _, d := range spec.Unlabeled {
		skip[d] = true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	dims := slices.Sorted(maps.Keys(Vocabulary))
	records := make([]model.Record, spec.Num)
	for i, vec := range vectors {
		blob := i % spec.Blobs
		attrs := model.Attributes{}
		for _, dim := range dims {
			labels := Vocabulary[dim]
			if skip[dim] {
				continue
			}
			set := []string{labels[blob%len(labels)]}
			if spec.Noise > 0 && r.rand.Float64() < spec.Noise {
				extra := labels[r.zipfLocked(len(labels), 1.0)]
				if extra != set[0] {
					set = append(set, extra)
				}
			}
			attrs[dim] = set
		}
		records[i] = model.Record{
			ID:         fmt.Sprintf("art-%d", i),
			Vector:     vec,
			Attributes: attrs,
		}
	}

	return records
}
