package artlens

import (
	"log/slog"
	"time"

	"github.com/hupe1980/artlens/blobstore"
	"github.com/hupe1980/artlens/caption"
	"github.com/hupe1980/artlens/clustering"
	"github.com/hupe1980/artlens/codec"
	"github.com/hupe1980/artlens/distance"
	"github.com/hupe1980/artlens/resource"
	"github.com/hupe1980/artlens/snapshot"
)

type options struct {
	clustering       clustering.Config
	policy           caption.Policy
	topN             int
	codec            codec.Codec
	compression      snapshot.Compression
	store            blobstore.BlobStore
	controller       *resource.Controller
	nonBlocking      bool
	metricsCollector MetricsCollector
	logger           *Logger
	now              func() time.Time
}

// Option configures a Pipeline.
type Option func(*options)

// WithK sets the number of clusters.
func WithK(k int) Option {
	return func(o *options) {
		o.clustering.K = k
	}
}

// WithMetric sets the distance metric used for clustering and assignment.
func WithMetric(m distance.Metric) Option {
	return func(o *options) {
		o.clustering.Metric = m
	}
}

// WithMaxIterations bounds the number of refinement iterations.
func WithMaxIterations(n int) Option {
	return func(o *options) {
		o.clustering.MaxIterations = n
	}
}

// WithSeed sets the seed of the centroid initialization. Equal seeds and
// inputs give identical models.
func WithSeed(seed int64) Option {
	return func(o *options) {
		o.clustering.Seed = seed
	}
}

// WithWorkers bounds the goroutines each stage fans out to.
// Zero or negative uses GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.clustering.Workers = n
	}
}

// WithClusteringConfig replaces the whole clustering configuration.
func WithClusteringConfig(cfg clustering.Config) Option {
	return func(o *options) {
		o.clustering = cfg
	}
}

// WithCaptionPolicy sets the caption policy.
func WithCaptionPolicy(p caption.Policy) Option {
	return func(o *options) {
		o.policy = p
	}
}

// WithTopN truncates every interpretation ranking to n labels.
// Zero keeps all labels.
func WithTopN(n int) Option {
	return func(o *options) {
		o.topN = n
	}
}

// WithCodec configures the codec used to encode snapshots.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithCompression sets the snapshot payload compression.
func WithCompression(c snapshot.Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithBlobStore sets where Save and Load keep snapshots.
//
// Example:
//
//	s3Store, _ := s3.New(ctx, "my-bucket", s3.WithPrefix("artlens/"))
//	p, _ := artlens.New(artlens.WithBlobStore(s3Store))
func WithBlobStore(s blobstore.BlobStore) Option {
	return func(o *options) {
		o.store = s
	}
}

// WithResourceController bounds memory, concurrent builds and snapshot I/O.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.controller = rc
	}
}

// WithNonBlocking makes Build fail with ErrBusy instead of waiting when the
// resource controller has no free build slot or memory budget.
func WithNonBlocking() Option {
	return func(o *options) {
		o.nonBlocking = true
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &artlens.BasicMetricsCollector{}
//	p, _ := artlens.New(artlens.WithMetricsCollector(metrics))
//	// ... build and caption ...
//	stats := metrics.GetStats()
//	fmt.Printf("Builds: %d, Avg latency: %dns\n", stats.BuildCount, stats.BuildAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := artlens.NewJSONLogger(slog.LevelInfo)
//	p, _ := artlens.New(artlens.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		clustering:       clustering.DefaultConfig(),
		policy:           caption.DefaultPolicy(),
		codec:            codec.Default,
		compression:      snapshot.CompressionZSTD,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
		now:              time.Now,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
