package artlens

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/artlens/assign"
	"github.com/hupe1980/artlens/caption"
	"github.com/hupe1980/artlens/clustering"
	"github.com/hupe1980/artlens/interpret"
	"github.com/hupe1980/artlens/model"
	"github.com/hupe1980/artlens/stats"
)

// Model is a built or loaded set of clusters with their interpretations.
// It is immutable and safe for concurrent use, except SetCaptionPolicy.
type Model struct {
	RunID      string
	CreatedAt  time.Time
	Config     clustering.Config
	Status     clustering.Status
	Iterations int
	Inertia    float64
	Reseeds    int

	ids             []string
	members         map[string]int
	clusters        []*clustering.Cluster
	interpretations []*interpret.Interpretation
	report          *stats.Report
	assigner        *assign.Assigner
	generator       *caption.Generator

	logger  *Logger
	metrics MetricsCollector
}

type modelParams struct {
	runID           string
	createdAt       time.Time
	config          clustering.Config
	status          clustering.Status
	iterations      int
	inertia         float64
	reseeds         int
	ids             []string
	clusters        []*clustering.Cluster
	interpretations []*interpret.Interpretation
	report          *stats.Report
	generator       *caption.Generator
	logger          *Logger
	metrics         MetricsCollector
}

func newModel(p modelParams) (*Model, error) {
	if len(p.interpretations) != len(p.clusters) {
		return nil, &model.DataError{
			Field:  "interpretations",
			Reason: fmt.Sprintf("%d interpretations for %d clusters", len(p.interpretations), len(p.clusters)),
		}
	}

	a, err := assign.New(p.clusters, p.config.Metric)
	if err != nil {
		return nil, err
	}

	members := make(map[string]int, len(p.ids))
	for _, c := range p.clusters {
		for _, id := range c.MemberIDs() {
			members[id] = c.ID
		}
	}

	return &Model{
		RunID:           p.runID,
		CreatedAt:       p.createdAt,
		Config:          p.config,
		Status:          p.status,
		Iterations:      p.iterations,
		Inertia:         p.inertia,
		Reseeds:         p.reseeds,
		ids:             p.ids,
		members:         members,
		clusters:        p.clusters,
		interpretations: p.interpretations,
		report:          p.report,
		assigner:        a,
		generator:       p.generator,
		logger:          p.logger,
		metrics:         p.metrics,
	}, nil
}

// K returns the number of clusters.
func (m *Model) K() int { return len(m.clusters) }

// Dimension returns the vector dimension the model accepts.
func (m *Model) Dimension() int { return m.assigner.Dimension() }

// Len returns the number of clustered records.
func (m *Model) Len() int { return len(m.ids) }

// IDs returns the clustered record ids in index order.
func (m *Model) IDs() []string { return append([]string(nil), m.ids...) }

// Clusters returns the clusters indexed by id.
func (m *Model) Clusters() []*clustering.Cluster {
	return append([]*clustering.Cluster(nil), m.clusters...)
}

// Cluster returns the cluster with the given id.
func (m *Model) Cluster(id int) (*clustering.Cluster, error) {
	if id < 0 || id >= len(m.clusters) {
		return nil, fmt.Errorf("cluster %d: %w", id, ErrNotFound)
	}
	return m.clusters[id], nil
}

// Interpretation returns the interpretation of a cluster.
func (m *Model) Interpretation(clusterID int) (*interpret.Interpretation, error) {
	if clusterID < 0 || clusterID >= len(m.interpretations) {
		return nil, fmt.Errorf("cluster %d: %w", clusterID, ErrNotFound)
	}
	return m.interpretations[clusterID], nil
}

// Interpretations returns every interpretation indexed by cluster id.
func (m *Model) Interpretations() []*interpret.Interpretation {
	return append([]*interpret.Interpretation(nil), m.interpretations...)
}

// ClusterOf returns the cluster id of a clustered record.
func (m *Model) ClusterOf(recordID string) (int, error) {
	c, ok := m.members[recordID]
	if !ok {
		return 0, &ErrRecordNotFound{ID: recordID}
	}
	return c, nil
}

// Report returns the quality statistics of the run. It is nil for models
// loaded from a snapshot.
func (m *Model) Report() *stats.Report { return m.report }

// CaptionPolicy returns the policy captions are rendered with.
func (m *Model) CaptionPolicy() caption.Policy { return m.generator.Policy() }

// SetCaptionPolicy replaces the caption policy. It must not be called
// concurrently with captioning.
func (m *Model) SetCaptionPolicy(p caption.Policy) error {
	gen, err := caption.New(p)
	if err != nil {
		return err
	}
	m.generator = gen
	return nil
}

// Caption renders the caption of a clustered record from its cluster's
// interpretation.
func (m *Model) Caption(ctx context.Context, recordID string) (*caption.Result, error) {
	clusterID, err := m.ClusterOf(recordID)
	if err != nil {
		m.logger.LogCaption(ctx, recordID, -1, err)
		m.metrics.RecordCaption(false, err)
		return nil, err
	}
	return m.caption(ctx, recordID, clusterID)
}

func (m *Model) caption(ctx context.Context, subjectID string, clusterID int) (*caption.Result, error) {
	res, err := m.generator.Generate(subjectID, m.interpretations[clusterID])
	m.logger.LogCaption(ctx, subjectID, clusterID, err)
	m.metrics.RecordCaption(err == nil && len(res.Components) == 0, err)
	return res, err
}

// CaptionAll captions every clustered record. Results follow index order.
func (m *Model) CaptionAll(ctx context.Context) ([]*caption.Result, error) {
	subjects := make([]caption.Subject, len(m.ids))
	for i, id := range m.ids {
		subjects[i] = caption.Subject{ID: id, Interpretation: m.interpretations[m.members[id]]}
	}

	results, err := m.generator.GenerateAll(ctx, subjects)
	if err != nil {
		m.metrics.RecordCaption(false, err)
		return nil, err
	}
	for _, r := range results {
		m.metrics.RecordCaption(len(r.Components) == 0, nil)
	}
	m.logger.WithCount(len(results)).DebugContext(ctx, "captioned all records")
	return results, nil
}

// Assign returns the topK clusters nearest to vector, ascending by distance.
// The vector is compared with the model's metric.
func (m *Model) Assign(ctx context.Context, vector []float32, topK int) ([]assign.Match, error) {
	start := time.Now()
	matches, err := m.assigner.Assign(vector, m.Config.Metric, topK)
	m.metrics.RecordAssign(time.Since(start), err)

	clusterID := -1
	if len(matches) > 0 {
		clusterID = matches[0].ClusterID
	}
	m.logger.LogAssign(ctx, topK, clusterID, err)
	return matches, err
}

// CaptionVector describes a previously unseen item: it is assigned to its
// nearest cluster and captioned from that cluster's interpretation.
func (m *Model) CaptionVector(ctx context.Context, subjectID string, vector []float32) (*caption.Result, error) {
	matches, err := m.Assign(ctx, vector, 1)
	if err != nil {
		return nil, err
	}
	return m.caption(ctx, subjectID, matches[0].ClusterID)
}
