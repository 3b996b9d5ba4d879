package snapshot

import "time"

// Metadata describes the run a model was built by.
type Metadata struct {
	RunID         string    `json:"run_id"`
	CreatedAt     time.Time `json:"created_at"`
	Metric        string    `json:"metric"`
	K             int       `json:"k"`
	Seed          int64     `json:"seed"`
	MaxIterations int       `json:"max_iterations"`
	Iterations    int       `json:"iterations"`
	Status        string    `json:"status"`
	Reseeds       int       `json:"reseeds"`
	Inertia       float64   `json:"inertia"`
	Dimension     int       `json:"dimension"`
	RecordCount   int       `json:"record_count"`
}

// Cluster is the persisted form of one cluster.
type Cluster struct {
	ID       int       `json:"id"`
	Centroid []float32 `json:"centroid"`
	// Members lists member ids in index order; Ordinals holds the matching
	// index ordinals.
	Members  []string `json:"members"`
	Ordinals []uint32 `json:"ordinals"`
}

// LabelScore is one ranked label.
type LabelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Interpretation is the persisted semantic description of a cluster.
type Interpretation struct {
	ClusterID int                     `json:"cluster_id"`
	Size      int                     `json:"size"`
	Rankings  map[string][]LabelScore `json:"rankings"`
}

// Template is a persisted caption template.
type Template struct {
	Role    string `json:"role"`
	Pattern string `json:"pattern"`
}

// Policy is the caption policy the model was saved with.
type Policy struct {
	MinScoreThreshold     float64             `json:"min_score_threshold"`
	MaxLabelsPerDimension int                 `json:"max_labels_per_dimension"`
	DimensionOrder        []string            `json:"dimension_order"`
	Templates             map[string]Template `json:"templates"`
	Fallback              string              `json:"fallback"`
}

// Model is everything needed to caption and assign without the source data.
type Model struct {
	Metadata        Metadata         `json:"metadata"`
	Clusters        []Cluster        `json:"clusters"`
	Interpretations []Interpretation `json:"interpretations"`
	Policy          *Policy          `json:"policy,omitempty"`
}
