package snapshot

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/hupe1980/artlens/blobstore"
	"github.com/hupe1980/artlens/codec"
	"github.com/hupe1980/artlens/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleModel(runID string) *Model {
	return &Model{
		Metadata: Metadata{
			RunID:         runID,
			CreatedAt:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
			Metric:        "cosine",
			K:             2,
			Seed:          42,
			MaxIterations: 100,
			Iterations:    3,
			Status:        "converged",
			Inertia:       0.25,
			Dimension:     2,
			RecordCount:   3,
		},
		Clusters: []Cluster{
			{ID: 0, Centroid: []float32{1, 0}, Members: []string{"a", "b"}, Ordinals: []uint32{0, 1}},
			{ID: 1, Centroid: []float32{0, 1}, Members: []string{"c"}, Ordinals: []uint32{2}},
		},
		Interpretations: []Interpretation{
			{ClusterID: 0, Size: 2, Rankings: map[string][]LabelScore{
				"genre": {{Label: "portrait", Score: 0.75}, {Label: "landscape", Score: 0.25}},
				"style": {},
			}},
			{ClusterID: 1, Size: 1, Rankings: map[string][]LabelScore{
				"genre": {{Label: "still life", Score: 1}},
				"style": {},
			}},
		},
		Policy: &Policy{
			MinScoreThreshold:     0.15,
			MaxLabelsPerDimension: 1,
			DimensionOrder:        []string{"genre", "style"},
			Templates:             map[string]Template{"genre": {Role: "subject", Pattern: "{a} {label} painting"}},
			Fallback:              "An unclassified artwork.",
		},
	}
}

func assertModelEqual(t *testing.T, want, got *Model) {
	t.Helper()
	assert.True(t, want.Metadata.CreatedAt.Equal(got.Metadata.CreatedAt))
	w, g := *want, *got
	w.Metadata.CreatedAt, g.Metadata.CreatedAt = time.Time{}, time.Time{}
	assert.Equal(t, w, g)
}

func TestRoundTrip_CodecsAndCompression(t *testing.T) {
	compressions := []Compression{CompressionNone, CompressionLZ4, CompressionZSTD}

	for _, name := range codec.Names() {
		c, ok := codec.ByName(name)
		require.True(t, ok)
		for _, comp := range compressions {
			t.Run(fmt.Sprintf("%s/%s", name, comp), func(t *testing.T) {
				m := sampleModel("run-1")
				data, err := Marshal(m, Options{Codec: c, Compression: comp})
				require.NoError(t, err)

				h, _, err := ReadHeader(data)
				require.NoError(t, err)
				assert.Equal(t, Version, h.Version)
				assert.Equal(t, name, h.Codec)
				assert.Equal(t, comp, h.Compression)

				got, err := Unmarshal(data)
				require.NoError(t, err)
				assertModelEqual(t, m, got)
			})
		}
	}
}

func TestUnmarshal_Errors(t *testing.T) {
	good, err := Marshal(sampleModel("run-1"), Options{Compression: CompressionZSTD})
	require.NoError(t, err)

	t.Run("BadMagic", func(t *testing.T) {
		_, err := Unmarshal([]byte("NOPE and more bytes than a header"))
		assert.ErrorIs(t, err, ErrBadMagic)
	})

	t.Run("ShortHeader", func(t *testing.T) {
		_, err := Unmarshal(good[:8])
		assert.ErrorIs(t, err, ErrCorrupt)
	})

	t.Run("FlippedPayloadByte", func(t *testing.T) {
		bad := bytes.Clone(good)
		bad[len(bad)-1] ^= 0xff
		_, err := Unmarshal(bad)
		assert.ErrorIs(t, err, ErrCorrupt)
	})

	t.Run("Truncated", func(t *testing.T) {
		_, err := Unmarshal(good[:len(good)-3])
		assert.ErrorIs(t, err, ErrCorrupt)
	})

	t.Run("FutureVersion", func(t *testing.T) {
		bad := bytes.Clone(good)
		bad[4] = 0xff
		_, err := Unmarshal(bad)
		assert.ErrorIs(t, err, ErrUnsupportedVersion)
	})
}

func TestMarshal_NilModel(t *testing.T) {
	_, err := Marshal(nil, Options{})
	assert.Error(t, err)
}

func TestSaveLoad(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	opts := Options{Codec: codec.Msgpack{}, Compression: CompressionLZ4}

	_, err := Load(ctx, store, opts)
	assert.ErrorIs(t, err, blobstore.ErrNotFound)

	first := sampleModel("run-a")
	name, err := Save(ctx, store, first, opts)
	require.NoError(t, err)
	assert.Equal(t, "models/run-a.snap", name)

	second := sampleModel("run-b")
	second.Metadata.Seed = 7
	_, err = Save(ctx, store, second, opts)
	require.NoError(t, err)

	got, err := Load(ctx, store, opts)
	require.NoError(t, err)
	assertModelEqual(t, second, got)

	old, err := LoadNamed(ctx, store, Name("run-a"), opts)
	require.NoError(t, err)
	assertModelEqual(t, first, old)

	ids, err := List(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, []string{"run-a", "run-b"}, ids)
}

func TestSave_RequiresRunID(t *testing.T) {
	_, err := Save(context.Background(), blobstore.NewMemoryStore(), &Model{}, Options{})
	assert.Error(t, err)
}

func TestEncodeDecode_Throttled(t *testing.T) {
	ctx := context.Background()
	rc := resource.NewController(resource.Config{IOLimitBytesPerSec: 1 << 20})
	opts := Options{Compression: CompressionNone, Controller: rc}

	var buf bytes.Buffer
	require.NoError(t, Encode(ctx, &buf, sampleModel("run-1"), opts))

	got, err := Decode(ctx, &buf, opts)
	require.NoError(t, err)
	assert.Equal(t, "run-1", got.Metadata.RunID)
}

func TestCurrent_Empty(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	require.NoError(t, store.Put(ctx, blobstore.PointerName, []byte("  ")))
	_, err := Current(ctx, store)
	assert.ErrorIs(t, err, ErrCorrupt)
}
