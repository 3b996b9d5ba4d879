package artlens

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hupe1980/artlens/caption"
	"github.com/hupe1980/artlens/clustering"
	"github.com/hupe1980/artlens/interpret"
	"github.com/hupe1980/artlens/model"
	"github.com/hupe1980/artlens/resource"
	"github.com/hupe1980/artlens/stats"
	"github.com/hupe1980/artlens/vectorindex"
)

// Pipeline runs clustering, interpretation and captioning with one fixed
// configuration. It is safe for concurrent use.
type Pipeline struct {
	opts        options
	engine      *clustering.Engine
	interpreter *interpret.Interpreter
	generator   *caption.Generator
}

// New creates a pipeline. The caption policy and storage options are
// validated here; the clustering configuration is validated by Build
// against the record count.
func New(optFns ...Option) (*Pipeline, error) {
	o := applyOptions(optFns)

	if o.topN < 0 {
		return nil, model.NewConfigurationError("top_n", "must not be negative, got %d", o.topN)
	}
	if !o.compression.Valid() {
		return nil, model.NewConfigurationError("compression", "unknown compression %v", o.compression)
	}
	if !o.clustering.Metric.Valid() {
		return nil, model.NewConfigurationError("metric", "unsupported metric: %v", o.clustering.Metric)
	}

	gen, err := caption.New(o.policy)
	if err != nil {
		return nil, err
	}

	interpOpts := []interpret.Option{interpret.WithTopN(o.topN)}
	if o.clustering.Workers > 0 {
		interpOpts = append(interpOpts, interpret.WithWorkers(o.clustering.Workers))
	}

	return &Pipeline{
		opts:        o,
		engine:      clustering.NewEngine(),
		interpreter: interpret.New(interpOpts...),
		generator:   gen,
	}, nil
}

// Config returns the clustering configuration Build uses.
func (p *Pipeline) Config() clustering.Config {
	return p.opts.clustering
}

// Logger returns the pipeline's logger.
func (p *Pipeline) Logger() *Logger {
	return p.opts.logger
}

// Build indexes records, clusters them and interprets every cluster.
//
// A build interrupted through ctx still returns a complete model over the
// last finished partition, with Status clustering.StatusInterrupted.
func (p *Pipeline) Build(ctx context.Context, records []model.Record) (m *Model, err error) {
	start := time.Now()
	runID := uuid.NewString()
	log := p.opts.logger.WithRunID(runID).WithK(p.opts.clustering.K)

	var res *clustering.Result
	defer func() {
		status, iterations := "", 0
		if res != nil {
			status, iterations = res.Status.String(), res.Iterations
		}
		d := time.Since(start)
		p.opts.metricsCollector.RecordBuild(len(records), p.opts.clustering.K, iterations, status, d, err)
		log.LogBuild(ctx, len(records), p.opts.clustering.K, status, iterations, d, err)
	}()

	rc := p.opts.controller
	if err := p.acquireBuild(ctx, rc); err != nil {
		return nil, err
	}
	defer rc.ReleaseBuild()

	ix, err := vectorindex.Build(records)
	if err != nil {
		return nil, err
	}

	mem := ix.SizeBytes()
	if err := p.acquireMemory(ctx, rc, mem); err != nil {
		return nil, err
	}
	defer rc.ReleaseMemory(mem)

	res, err = p.engine.Cluster(ctx, ix, p.opts.clustering)
	if err != nil {
		return nil, err
	}

	ictx := ctx
	if res.Status == clustering.StatusInterrupted {
		ictx = context.WithoutCancel(ctx)
	}
	interps, err := p.interpreter.InterpretAll(ictx, res.Clusters, ix)
	log.LogInterpret(ctx, len(res.Clusters), err)
	if err != nil {
		return nil, err
	}

	report, err := stats.Compute(res, ix)
	if err != nil {
		return nil, err
	}

	return newModel(modelParams{
		runID:           runID,
		createdAt:       p.opts.now().UTC(),
		config:          p.opts.clustering,
		status:          res.Status,
		iterations:      res.Iterations,
		inertia:         res.Inertia,
		reseeds:         res.Reseeds,
		ids:             ix.IDs(),
		clusters:        res.Clusters,
		interpretations: interps,
		report:          report,
		generator:       p.generator,
		logger:          log,
		metrics:         p.opts.metricsCollector,
	})
}

func (p *Pipeline) acquireBuild(ctx context.Context, rc *resource.Controller) error {
	if !p.opts.nonBlocking {
		return rc.AcquireBuild(ctx)
	}
	if !rc.TryAcquireBuild() {
		return fmt.Errorf("%w: no free build slot", ErrBusy)
	}
	return nil
}

func (p *Pipeline) acquireMemory(ctx context.Context, rc *resource.Controller, bytes int64) error {
	if !p.opts.nonBlocking {
		return rc.AcquireMemory(ctx, bytes)
	}
	if !rc.TryAcquireMemory(bytes) {
		return fmt.Errorf("%w: %d bytes exceed the free memory budget", ErrBusy, bytes)
	}
	return nil
}
