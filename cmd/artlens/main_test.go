package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/hupe1980/artlens"
	"github.com/hupe1980/artlens/dataset"
	"github.com/hupe1980/artlens/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestEnv writes a dataset and a config with a local store into a
// temp directory and returns their paths.
func setupTestEnv(t *testing.T) (dataPath, configPath string) {
	t.Helper()
	dir := t.TempDir()

	portrait := model.Attributes{"genre": {"portrait"}}
	landscape := model.Attributes{"genre": {"landscape"}, "topic": {"sea"}}
	records := []model.Record{
		{ID: "a0", Vector: []float32{0, 0}, Attributes: portrait},
		{ID: "a1", Vector: []float32{0, 1}, Attributes: portrait},
		{ID: "a2", Vector: []float32{1, 0}, Attributes: portrait},
		{ID: "b0", Vector: []float32{10, 10}, Attributes: landscape},
		{ID: "b1", Vector: []float32{10, 11}, Attributes: landscape},
		{ID: "b2", Vector: []float32{11, 10}, Attributes: landscape},
	}

	var buf bytes.Buffer
	require.NoError(t, dataset.WriteJSONL(&buf, records))
	dataPath = filepath.Join(dir, "artworks.jsonl")
	require.NoError(t, os.WriteFile(dataPath, buf.Bytes(), 0o600))

	cfg := fmt.Sprintf(`clustering:
  k: 2
  metric: euclidean
storage:
  backend: local
  path: %s
log:
  level: error
`, filepath.Join(dir, "store"))
	configPath = filepath.Join(dir, "artlens.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(cfg), 0o600))
	return dataPath, configPath
}

func runCmd(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestVersion(t *testing.T) {
	stdout, _, err := runCmd(t, "version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "artlens dev")
}

func TestVersion_IgnoresBrokenConfig(t *testing.T) {
	_, _, err := runCmd(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "version")
	assert.NoError(t, err)
}

func TestCluster_SaveCaptionInspect(t *testing.T) {
	data, cfg := setupTestEnv(t)

	stdout, _, err := runCmd(t, "-c", cfg, "cluster", data, "--save", "--captions")
	require.NoError(t, err)
	assert.Contains(t, stdout, "converged")
	assert.Contains(t, stdout, "genre=portrait (1.00)")
	assert.Contains(t, stdout, "A portrait painting.")
	assert.Contains(t, stdout, "A landscape painting depicting sea.")
	assert.Contains(t, stdout, "models/")

	stdout, _, err = runCmd(t, "-c", cfg, "inspect", "--runs")
	require.NoError(t, err)
	runs := strings.Fields(stdout)
	require.Len(t, runs, 1)

	stdout, _, err = runCmd(t, "-c", cfg, "inspect", "-o", "json")
	require.NoError(t, err)
	var out inspectOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, runs[0], out.RunID)
	assert.Equal(t, 2, out.K)
	assert.Equal(t, 6, out.Records)
	assert.Equal(t, 2, out.Dimension)
	assert.Equal(t, "euclidean", out.Metric)
	assert.Equal(t, []int{3, 3}, out.Sizes)

	stdout, _, err = runCmd(t, "-c", cfg, "caption", "a1", "b2")
	require.NoError(t, err)
	assert.Contains(t, stdout, "A portrait painting.")
	assert.Contains(t, stdout, "A landscape painting depicting sea.")

	stdout, _, err = runCmd(t, "-c", cfg, "caption", "--vector", "10.5, 10.5", "-o", "json", "--run", runs[0])
	require.NoError(t, err)
	assert.Contains(t, stdout, `"subject_id": "query"`)
	assert.Contains(t, stdout, "A landscape painting depicting sea.")
}

func TestCluster_JSON(t *testing.T) {
	data, cfg := setupTestEnv(t)

	stdout, _, err := runCmd(t, "-c", cfg, "cluster", data, "-o", "json", "--k", "1")
	require.NoError(t, err)

	var out clusterOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, "converged", out.Status)
	assert.Empty(t, out.Snapshot)
	require.NotNil(t, out.Report)
	assert.Equal(t, 1, out.Report.Clusters)
	assert.Equal(t, 6, out.Report.Records)
}

func TestCaption_NoSnapshot(t *testing.T) {
	_, cfg := setupTestEnv(t)

	_, _, err := runCmd(t, "-c", cfg, "caption", "a1")
	assert.ErrorIs(t, err, artlens.ErrNoSnapshot)
}

func TestCommandErrors(t *testing.T) {
	data, cfg := setupTestEnv(t)

	tests := []struct {
		name string
		args []string
	}{
		{"ClusterMissingDataset", []string{"-c", cfg, "cluster"}},
		{"ClusterBadK", []string{"-c", cfg, "cluster", data, "--k", "0"}},
		{"ClusterTooManyClusters", []string{"-c", cfg, "cluster", data, "--k", "7"}},
		{"ClusterBadFormat", []string{"-c", cfg, "cluster", data, "-o", "xml"}},
		{"ClusterUnknownFile", []string{"-c", cfg, "cluster", data + ".parquet"}},
		{"CaptionNoMode", []string{"-c", cfg, "caption"}},
		{"CaptionTwoModes", []string{"-c", cfg, "caption", "a1", "--all"}},
		{"CaptionBadVector", []string{"-c", cfg, "caption", "--vector", "1,x"}},
		{"BadLogLevel", []string{"-c", cfg, "--log-level", "loud", "inspect"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runCmd(t, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestParseVector(t *testing.T) {
	v, err := parseVector("[0.5, 1  2]")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 1, 2}, v)

	_, err = parseVector(" , ")
	assert.Error(t, err)
}
