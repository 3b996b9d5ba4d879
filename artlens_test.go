package artlens_test

import (
	"bytes"
	"context"
	"log/slog"
	"math"
	"testing"

	"github.com/hupe1980/artlens"
	"github.com/hupe1980/artlens/blobstore"
	"github.com/hupe1980/artlens/caption"
	"github.com/hupe1980/artlens/clustering"
	"github.com/hupe1980/artlens/codec"
	"github.com/hupe1980/artlens/distance"
	"github.com/hupe1980/artlens/model"
	"github.com/hupe1980/artlens/resource"
	"github.com/hupe1980/artlens/snapshot"
	"github.com/hupe1980/artlens/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoBlobRecords() []model.Record {
	portrait := model.Attributes{"genre": {"portrait"}}
	landscape := model.Attributes{"genre": {"landscape"}, "topic": {"sea"}}
	return []model.Record{
		{ID: "a0", Vector: []float32{0, 0}, Attributes: portrait},
		{ID: "a1", Vector: []float32{0, 1}, Attributes: portrait},
		{ID: "a2", Vector: []float32{1, 0}, Attributes: portrait},
		{ID: "b0", Vector: []float32{10, 10}, Attributes: landscape},
		{ID: "b1", Vector: []float32{10, 11}, Attributes: landscape},
		{ID: "b2", Vector: []float32{11, 10}, Attributes: landscape},
	}
}

func newPipeline(t *testing.T, opts ...artlens.Option) *artlens.Pipeline {
	t.Helper()
	base := []artlens.Option{
		artlens.WithK(2),
		artlens.WithMetric(distance.MetricEuclidean),
		artlens.WithSeed(0),
	}
	p, err := artlens.New(append(base, opts...)...)
	require.NoError(t, err)
	return p
}

func TestPipeline_TwoBlobs(t *testing.T) {
	ctx := context.Background()
	m, err := newPipeline(t).Build(ctx, twoBlobRecords())
	require.NoError(t, err)

	assert.Equal(t, clustering.StatusConverged, m.Status)
	assert.Equal(t, 2, m.K())
	assert.Equal(t, 6, m.Len())
	assert.Equal(t, 2, m.Dimension())
	assert.NotEmpty(t, m.RunID)

	a, err := m.ClusterOf("a0")
	require.NoError(t, err)
	b, err := m.ClusterOf("b0")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	ca, err := m.Cluster(a)
	require.NoError(t, err)
	assert.Equal(t, []string{"a0", "a1", "a2"}, ca.MemberIDs())
	assert.InDelta(t, 1.0/3, ca.Centroid[0], 1e-6)
	assert.InDelta(t, 1.0/3, ca.Centroid[1], 1e-6)

	cb, err := m.Cluster(b)
	require.NoError(t, err)
	assert.InDelta(t, 31.0/3, cb.Centroid[0], 1e-5)
	assert.InDelta(t, 31.0/3, cb.Centroid[1], 1e-5)

	in, err := m.Interpretation(a)
	require.NoError(t, err)
	top, ok := in.Top("genre")
	require.True(t, ok)
	assert.Equal(t, "portrait", top.Label)
	assert.Empty(t, in.Ranking("topic"))

	capA, err := m.Caption(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "A portrait painting.", capA.Text)
	assert.Equal(t, a, capA.ClusterID)

	capB, err := m.Caption(ctx, "b2")
	require.NoError(t, err)
	assert.Equal(t, "A landscape painting depicting sea.", capB.Text)

	require.NotNil(t, m.Report())
	assert.Equal(t, 6, m.Report().Records)
}

func TestModel_CaptionAll(t *testing.T) {
	ctx := context.Background()
	m, err := newPipeline(t, artlens.WithWorkers(3)).Build(ctx, twoBlobRecords())
	require.NoError(t, err)

	all, err := m.CaptionAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 6)
	for i, id := range m.IDs() {
		assert.Equal(t, id, all[i].SubjectID)
		single, err := m.Caption(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, single, all[i])
	}
}

func TestModel_AssignAndCaptionVector(t *testing.T) {
	ctx := context.Background()
	m, err := newPipeline(t).Build(ctx, twoBlobRecords())
	require.NoError(t, err)

	b, err := m.ClusterOf("b0")
	require.NoError(t, err)

	matches, err := m.Assign(ctx, []float32{10.2, 10.4}, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, b, matches[0].ClusterID)
	assert.Less(t, matches[0].Distance, matches[1].Distance)

	res, err := m.CaptionVector(ctx, "new-1", []float32{10.2, 10.4})
	require.NoError(t, err)
	assert.Equal(t, "new-1", res.SubjectID)
	assert.Equal(t, "A landscape painting depicting sea.", res.Text)

	_, err = m.Assign(ctx, []float32{1, 2, 3}, 1)
	assert.ErrorIs(t, err, artlens.ErrData)

	_, err = m.Assign(ctx, []float32{1, 2}, 3)
	assert.ErrorIs(t, err, artlens.ErrConfiguration)

	_, err = m.Assign(ctx, []float32{float32(math.NaN()), 0}, 1)
	assert.ErrorIs(t, err, artlens.ErrData)
}

func TestPipeline_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("KTooLarge", func(t *testing.T) {
		_, err := newPipeline(t, artlens.WithK(7)).Build(ctx, twoBlobRecords())
		var ce *artlens.ConfigurationError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, "k", ce.Field)
	})

	t.Run("MaxIterations", func(t *testing.T) {
		_, err := newPipeline(t, artlens.WithMaxIterations(0)).Build(ctx, twoBlobRecords())
		assert.ErrorIs(t, err, artlens.ErrConfiguration)
	})

	t.Run("BadRecord", func(t *testing.T) {
		recs := twoBlobRecords()
		recs[3].Vector = []float32{1, 2, 3}
		_, err := newPipeline(t).Build(ctx, recs)
		var de *artlens.DataError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, "b0", de.RecordID)
	})

	t.Run("NoRecords", func(t *testing.T) {
		_, err := newPipeline(t).Build(ctx, nil)
		assert.ErrorIs(t, err, artlens.ErrData)
	})

	t.Run("BadPolicy", func(t *testing.T) {
		policy := caption.DefaultPolicy()
		policy.MinScoreThreshold = 2
		_, err := artlens.New(artlens.WithCaptionPolicy(policy))
		assert.ErrorIs(t, err, artlens.ErrConfiguration)
	})

	t.Run("NegativeTopN", func(t *testing.T) {
		_, err := artlens.New(artlens.WithTopN(-1))
		assert.ErrorIs(t, err, artlens.ErrConfiguration)
	})

	t.Run("UnknownRecord", func(t *testing.T) {
		m, err := newPipeline(t).Build(ctx, twoBlobRecords())
		require.NoError(t, err)
		_, err = m.Caption(ctx, "zz")
		assert.ErrorIs(t, err, artlens.ErrNotFound)
		_, err = m.Cluster(5)
		assert.ErrorIs(t, err, artlens.ErrNotFound)
		_, err = m.Interpretation(-1)
		assert.ErrorIs(t, err, artlens.ErrNotFound)
	})
}

func TestPipeline_Deterministic(t *testing.T) {
	ctx := context.Background()
	recs := testutil.NewRNG(3).LabeledBlobs(testutil.BlobSpec{Num: 120, Dim: 8, Blobs: 4, Spread: 0.2, Noise: 0.1})

	build := func(workers int) *artlens.Model {
		p := newPipeline(t, artlens.WithK(4), artlens.WithMetric(distance.MetricCosine), artlens.WithSeed(7), artlens.WithWorkers(workers))
		m, err := p.Build(ctx, recs)
		require.NoError(t, err)
		return m
	}

	m1, m2 := build(1), build(8)
	assert.Equal(t, m1.Iterations, m2.Iterations)
	assert.Equal(t, m1.Inertia, m2.Inertia)
	for i := range m1.Clusters() {
		c1, _ := m1.Cluster(i)
		c2, _ := m2.Cluster(i)
		assert.Equal(t, c1.MemberIDs(), c2.MemberIDs())
		assert.Equal(t, c1.Centroid, c2.Centroid)
	}

	caps1, err := m1.CaptionAll(ctx)
	require.NoError(t, err)
	caps2, err := m2.CaptionAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, caps1, caps2)
}

func TestPipeline_InterruptedBuildIsUsable(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	recs := testutil.NewRNG(3).LabeledBlobs(testutil.BlobSpec{Num: 60, Dim: 4, Blobs: 3, Spread: 0.5})
	m, err := newPipeline(t, artlens.WithK(3)).Build(ctx, recs)
	require.NoError(t, err)
	assert.Equal(t, clustering.StatusInterrupted, m.Status)
	assert.Equal(t, 1, m.Iterations)
	assert.Len(t, m.Interpretations(), 3)
}

func TestPipeline_SaveLoad(t *testing.T) {
	ctx := context.Background()

	for _, name := range codec.Names() {
		t.Run(name, func(t *testing.T) {
			c, _ := codec.ByName(name)
			store := blobstore.NewMemoryStore()
			metrics := &artlens.BasicMetricsCollector{}
			p := newPipeline(t,
				artlens.WithBlobStore(store),
				artlens.WithCodec(c),
				artlens.WithCompression(snapshot.CompressionLZ4),
				artlens.WithMetricsCollector(metrics),
			)

			_, err := p.Load(ctx)
			assert.ErrorIs(t, err, artlens.ErrNoSnapshot)

			m, err := p.Build(ctx, twoBlobRecords())
			require.NoError(t, err)

			name, err := p.Save(ctx, m)
			require.NoError(t, err)
			assert.Equal(t, snapshot.Name(m.RunID), name)

			loaded, err := p.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, m.RunID, loaded.RunID)
			assert.Equal(t, m.Config.Metric, loaded.Config.Metric)
			assert.Equal(t, m.Status, loaded.Status)
			assert.Equal(t, m.IDs(), loaded.IDs())
			assert.Nil(t, loaded.Report())

			for i, c := range m.Clusters() {
				lc, err := loaded.Cluster(i)
				require.NoError(t, err)
				assert.Equal(t, c.Centroid, lc.Centroid)
				assert.Equal(t, c.MemberIDs(), lc.MemberIDs())

				in, _ := m.Interpretation(i)
				lin, _ := loaded.Interpretation(i)
				assert.Equal(t, in.Rankings["genre"], lin.Rankings["genre"])
			}

			want, err := m.CaptionAll(ctx)
			require.NoError(t, err)
			got, err := loaded.CaptionAll(ctx)
			require.NoError(t, err)
			assert.Equal(t, want, got)

			byRun, err := p.LoadRun(ctx, m.RunID)
			require.NoError(t, err)
			assert.Equal(t, m.RunID, byRun.RunID)

			runs, err := p.Runs(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{m.RunID}, runs)

			stats := metrics.GetStats()
			assert.Equal(t, int64(1), stats.BuildCount)
			assert.Equal(t, int64(1), stats.SnapshotSaves)
			assert.Equal(t, int64(3), stats.SnapshotLoads)
			assert.Equal(t, int64(1), stats.SnapshotErrors)
		})
	}
}

func TestPipeline_LoadKeepsSavedPolicy(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	policy := caption.DefaultPolicy()
	policy.Fallback = "Unknown."
	policy.DimensionOrder = []string{"style"}

	p := newPipeline(t, artlens.WithBlobStore(store), artlens.WithCaptionPolicy(policy))
	m, err := p.Build(ctx, twoBlobRecords())
	require.NoError(t, err)
	_, err = p.Save(ctx, m)
	require.NoError(t, err)

	loaded, err := newPipeline(t, artlens.WithBlobStore(store)).Load(ctx)
	require.NoError(t, err)

	res, err := loaded.Caption(ctx, "a0")
	require.NoError(t, err)
	assert.Equal(t, "Unknown.", res.Text)
	assert.Empty(t, res.Components)

	require.NoError(t, loaded.SetCaptionPolicy(caption.DefaultPolicy()))
	res, err = loaded.Caption(ctx, "a0")
	require.NoError(t, err)
	assert.Equal(t, "A portrait painting.", res.Text)
}

func TestPipeline_LoadCorrupt(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	require.NoError(t, store.Put(ctx, "models/bad.snap", []byte("definitely not a snapshot")))
	require.NoError(t, store.Put(ctx, blobstore.PointerName, []byte("models/bad.snap")))

	_, err := newPipeline(t, artlens.WithBlobStore(store)).Load(ctx)
	assert.ErrorIs(t, err, artlens.ErrCorruptSnapshot)
}

func TestPipeline_LoadRejectsInconsistentModel(t *testing.T) {
	ctx := context.Background()
	built, err := newPipeline(t).Build(ctx, twoBlobRecords())
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*snapshot.Model)
	}{
		{"NegativeRecordCount", func(sm *snapshot.Model) { sm.Metadata.RecordCount = -1 }},
		{"RecordCountTooLarge", func(sm *snapshot.Model) { sm.Metadata.RecordCount = 1 << 40 }},
		{"EmptyCluster", func(sm *snapshot.Model) {
			sm.Clusters[1].Members = nil
			sm.Clusters[1].Ordinals = nil
			sm.Metadata.RecordCount = len(sm.Clusters[0].Members)
		}},
		{"DuplicateOrdinal", func(sm *snapshot.Model) { sm.Clusters[1].Ordinals[0] = sm.Clusters[0].Ordinals[0] }},
		{"UnknownMetric", func(sm *snapshot.Model) { sm.Metadata.Metric = "manhattan" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sm := built.Snapshot()
			tt.mutate(sm)

			store := blobstore.NewMemoryStore()
			_, err := snapshot.Save(ctx, store, sm, snapshot.Options{})
			require.NoError(t, err)

			_, err = newPipeline(t, artlens.WithBlobStore(store)).Load(ctx)
			assert.ErrorIs(t, err, artlens.ErrCorruptSnapshot)
		})
	}
}

func TestPipeline_NoBlobStore(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t)
	m, err := p.Build(ctx, twoBlobRecords())
	require.NoError(t, err)

	_, err = p.Save(ctx, m)
	assert.ErrorIs(t, err, artlens.ErrNoBlobStore)
	_, err = p.Load(ctx)
	assert.ErrorIs(t, err, artlens.ErrNoBlobStore)
}

func TestPipeline_ResourceLimits(t *testing.T) {
	ctx := context.Background()

	t.Run("MemoryBudgetTooSmall", func(t *testing.T) {
		rc := resource.NewController(resource.Config{MemoryLimitBytes: 8})
		_, err := newPipeline(t, artlens.WithResourceController(rc)).Build(ctx, twoBlobRecords())
		assert.ErrorIs(t, err, resource.ErrMemoryLimitExceeded)
	})

	t.Run("ReleasedAfterBuild", func(t *testing.T) {
		rc := resource.NewController(resource.Config{MemoryLimitBytes: 1 << 20})
		_, err := newPipeline(t, artlens.WithResourceController(rc)).Build(ctx, twoBlobRecords())
		require.NoError(t, err)
		assert.Zero(t, rc.MemoryUsage())
		assert.True(t, rc.TryAcquireBuild())
	})

	t.Run("NonBlockingSlotTaken", func(t *testing.T) {
		rc := resource.NewController(resource.Config{MaxConcurrentBuilds: 1})
		p := newPipeline(t, artlens.WithResourceController(rc), artlens.WithNonBlocking())

		require.True(t, rc.TryAcquireBuild())
		_, err := p.Build(ctx, twoBlobRecords())
		assert.ErrorIs(t, err, artlens.ErrBusy)

		rc.ReleaseBuild()
		_, err = p.Build(ctx, twoBlobRecords())
		assert.NoError(t, err)
	})

	t.Run("NonBlockingMemory", func(t *testing.T) {
		rc := resource.NewController(resource.Config{MaxConcurrentBuilds: 1, MemoryLimitBytes: 8})
		p := newPipeline(t, artlens.WithResourceController(rc), artlens.WithNonBlocking())

		_, err := p.Build(ctx, twoBlobRecords())
		assert.ErrorIs(t, err, artlens.ErrBusy)
		assert.Zero(t, rc.MemoryUsage())
		assert.True(t, rc.TryAcquireBuild())
	})
}

func TestPipeline_Logging(t *testing.T) {
	var buf bytes.Buffer
	p := newPipeline(t, artlens.WithLogger(artlens.NewJSONLoggerTo(&buf, slog.LevelDebug)))

	m, err := p.Build(context.Background(), twoBlobRecords())
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"msg":"build completed"`)
	assert.Contains(t, out, `"run_id":"`+m.RunID+`"`)
	assert.Contains(t, out, `"status":"converged"`)
}
