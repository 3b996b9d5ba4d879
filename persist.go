package artlens

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/artlens/caption"
	"github.com/hupe1980/artlens/clustering"
	"github.com/hupe1980/artlens/distance"
	"github.com/hupe1980/artlens/interpret"
	"github.com/hupe1980/artlens/snapshot"
)

// ErrNoBlobStore is returned by Save and Load when no store is configured.
var ErrNoBlobStore = errors.New("no blob store configured")

func (p *Pipeline) snapshotOptions() snapshot.Options {
	return snapshot.Options{
		Codec:       p.opts.codec,
		Compression: p.opts.compression,
		Controller:  p.opts.controller,
	}
}

// Save persists m to the configured blob store and makes it current.
// It returns the blob name.
func (p *Pipeline) Save(ctx context.Context, m *Model) (name string, err error) {
	start := time.Now()
	defer func() {
		p.opts.metricsCollector.RecordSnapshot("save", time.Since(start), err)
		p.opts.logger.LogSnapshot(ctx, "saved", name, err)
	}()

	if p.opts.store == nil {
		return "", ErrNoBlobStore
	}
	return snapshot.Save(ctx, p.opts.store, m.Snapshot(), p.snapshotOptions())
}

// Load reads the current model from the configured blob store.
func (p *Pipeline) Load(ctx context.Context) (*Model, error) {
	return p.load(ctx, "")
}

// LoadRun reads the model saved by a specific run.
func (p *Pipeline) LoadRun(ctx context.Context, runID string) (*Model, error) {
	return p.load(ctx, snapshot.Name(runID))
}

// Runs lists the run ids of every saved model.
func (p *Pipeline) Runs(ctx context.Context) ([]string, error) {
	if p.opts.store == nil {
		return nil, ErrNoBlobStore
	}
	return snapshot.List(ctx, p.opts.store)
}

func (p *Pipeline) load(ctx context.Context, name string) (m *Model, err error) {
	start := time.Now()
	defer func() {
		p.opts.metricsCollector.RecordSnapshot("load", time.Since(start), err)
		p.opts.logger.LogSnapshot(ctx, "loaded", name, err)
	}()

	if p.opts.store == nil {
		return nil, ErrNoBlobStore
	}
	if name == "" {
		if name, err = snapshot.Current(ctx, p.opts.store); err != nil {
			return nil, translateError(err)
		}
	}

	sm, err := snapshot.LoadNamed(ctx, p.opts.store, name, p.snapshotOptions())
	if err != nil {
		return nil, translateError(err)
	}
	return p.fromSnapshot(sm)
}

// Snapshot returns the persisted form of m.
func (m *Model) Snapshot() *snapshot.Model {
	sm := &snapshot.Model{
		Metadata: snapshot.Metadata{
			RunID:         m.RunID,
			CreatedAt:     m.CreatedAt,
			Metric:        m.Config.Metric.String(),
			K:             m.Config.K,
			Seed:          m.Config.Seed,
			MaxIterations: m.Config.MaxIterations,
			Iterations:    m.Iterations,
			Status:        m.Status.String(),
			Reseeds:       m.Reseeds,
			Inertia:       m.Inertia,
			Dimension:     m.Dimension(),
			RecordCount:   len(m.ids),
		},
		Clusters:        make([]snapshot.Cluster, len(m.clusters)),
		Interpretations: make([]snapshot.Interpretation, len(m.interpretations)),
	}

	for i, c := range m.clusters {
		sm.Clusters[i] = snapshot.Cluster{
			ID:       c.ID,
			Centroid: append([]float32(nil), c.Centroid...),
			Members:  c.MemberIDs(),
			Ordinals: c.Ordinals().ToArray(),
		}
	}

	for i, in := range m.interpretations {
		rankings := make(map[string][]snapshot.LabelScore, len(in.Rankings))
		for dim, ranking := range in.Rankings {
			out := make([]snapshot.LabelScore, len(ranking))
			for j, ls := range ranking {
				out[j] = snapshot.LabelScore{Label: ls.Label, Score: ls.Score}
			}
			rankings[dim] = out
		}
		sm.Interpretations[i] = snapshot.Interpretation{ClusterID: in.ClusterID, Size: in.Size, Rankings: rankings}
	}

	policy := m.generator.Policy()
	sp := &snapshot.Policy{
		MinScoreThreshold:     policy.MinScoreThreshold,
		MaxLabelsPerDimension: policy.MaxLabelsPerDimension,
		DimensionOrder:        policy.DimensionOrder,
		Fallback:              policy.Fallback,
	}
	if len(policy.Templates) > 0 {
		sp.Templates = make(map[string]snapshot.Template, len(policy.Templates))
		for dim, t := range policy.Templates {
			sp.Templates[dim] = snapshot.Template{Role: t.Role.String(), Pattern: t.Pattern}
		}
	}
	sm.Policy = sp

	return sm
}

func corrupt(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCorruptSnapshot, fmt.Sprintf(format, args...))
}

func (p *Pipeline) fromSnapshot(sm *snapshot.Model) (*Model, error) {
	md := sm.Metadata

	metric, err := distance.ParseMetric(md.Metric)
	if err != nil {
		return nil, corrupt("metric: %v", err)
	}
	var status clustering.Status
	if err := status.UnmarshalText([]byte(md.Status)); err != nil {
		return nil, corrupt("status: %v", err)
	}
	if len(sm.Clusters) == 0 || len(sm.Clusters) != len(sm.Interpretations) {
		return nil, corrupt("%d clusters, %d interpretations", len(sm.Clusters), len(sm.Interpretations))
	}

	members := 0
	for _, c := range sm.Clusters {
		if len(c.Members) == 0 {
			return nil, corrupt("cluster %d has no members", c.ID)
		}
		members += len(c.Members)
	}
	if md.RecordCount != members {
		return nil, corrupt("record count %d, clusters hold %d members", md.RecordCount, members)
	}

	ids := make([]string, md.RecordCount)
	seen := 0
	clusters := make([]*clustering.Cluster, len(sm.Clusters))
	for i, c := range sm.Clusters {
		if c.ID != i {
			return nil, corrupt("cluster %d stored at position %d", c.ID, i)
		}
		if len(c.Centroid) != md.Dimension {
			return nil, corrupt("cluster %d: centroid dimension %d, want %d", c.ID, len(c.Centroid), md.Dimension)
		}
		if len(c.Members) != len(c.Ordinals) {
			return nil, corrupt("cluster %d: %d members, %d ordinals", c.ID, len(c.Members), len(c.Ordinals))
		}
		for j, ord := range c.Ordinals {
			if int(ord) >= len(ids) || ids[ord] != "" {
				return nil, corrupt("cluster %d: ordinal %d out of range or duplicated", c.ID, ord)
			}
			ids[ord] = c.Members[j]
			seen++
		}
		clusters[i] = clustering.NewCluster(c.ID, c.Centroid, c.Ordinals, c.Members)
	}
	if seen != len(ids) {
		return nil, corrupt("%d members for %d records", seen, len(ids))
	}

	interps := make([]*interpret.Interpretation, len(sm.Interpretations))
	for i, in := range sm.Interpretations {
		if in.ClusterID != i {
			return nil, corrupt("interpretation %d stored at position %d", in.ClusterID, i)
		}
		rankings := make(map[string][]interpret.LabelScore, len(in.Rankings))
		for dim, ranking := range in.Rankings {
			out := make([]interpret.LabelScore, len(ranking))
			for j, ls := range ranking {
				out[j] = interpret.LabelScore{Label: ls.Label, Score: ls.Score}
			}
			rankings[dim] = out
		}
		interps[i] = &interpret.Interpretation{ClusterID: in.ClusterID, Size: in.Size, Rankings: rankings}
	}

	gen := p.generator
	if sm.Policy != nil {
		policy, err := policyFromSnapshot(sm.Policy)
		if err != nil {
			return nil, err
		}
		if gen, err = caption.New(policy); err != nil {
			return nil, err
		}
	}

	return newModel(modelParams{
		runID:     md.RunID,
		createdAt: md.CreatedAt,
		config: clustering.Config{
			K:             md.K,
			Metric:        metric,
			MaxIterations: md.MaxIterations,
			Seed:          md.Seed,
			Workers:       p.opts.clustering.Workers,
		},
		status:          status,
		iterations:      md.Iterations,
		inertia:         md.Inertia,
		reseeds:         md.Reseeds,
		ids:             ids,
		clusters:        clusters,
		interpretations: interps,
		generator:       gen,
		logger:          p.opts.logger.WithRunID(md.RunID),
		metrics:         p.opts.metricsCollector,
	})
}

func policyFromSnapshot(sp *snapshot.Policy) (caption.Policy, error) {
	policy := caption.Policy{
		MinScoreThreshold:     sp.MinScoreThreshold,
		MaxLabelsPerDimension: sp.MaxLabelsPerDimension,
		DimensionOrder:        sp.DimensionOrder,
		Fallback:              sp.Fallback,
	}
	if len(sp.Templates) > 0 {
		policy.Templates = make(map[string]caption.Template, len(sp.Templates))
		for dim, t := range sp.Templates {
			var role caption.Role
			if err := role.UnmarshalText([]byte(t.Role)); err != nil {
				return caption.Policy{}, corrupt("template %s: %v", dim, err)
			}
			policy.Templates[dim] = caption.Template{Role: role, Pattern: t.Pattern}
		}
	}
	if err := policy.Validate(); err != nil {
		return caption.Policy{}, fmt.Errorf("%w: %w", ErrCorruptSnapshot, err)
	}
	return policy, nil
}
