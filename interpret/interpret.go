package interpret

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strings"

	"github.com/hupe1980/artlens/clustering"
	"github.com/hupe1980/artlens/model"
	"golang.org/x/sync/errgroup"
)

// Lookup resolves the attributes of indexed records.
// vectorindex.Index implements it.
type Lookup interface {
	// Dimensions returns every attribute dimension present in the dataset.
	Dimensions() []string
	// Attributes returns the normalized attributes of the record at ordinal.
	Attributes(ordinal int) model.Attributes
}

// LabelScore is a label with its score within one dimension of a cluster.
type LabelScore struct {
	Label string  `json:"label" msgpack:"label"`
	Score float64 `json:"score" msgpack:"score"`
}

// Interpretation is the ranked label summary of one cluster.
type Interpretation struct {
	ClusterID int `json:"cluster_id" msgpack:"cluster_id"`
	// Size is the member count the scores were normalized by.
	Size int `json:"size" msgpack:"size"`
	// Rankings holds one ranking per known dimension. A dimension without
	// labeled members maps to an empty ranking.
	Rankings map[string][]LabelScore `json:"rankings" msgpack:"rankings"`
}

// Dimensions returns the interpreted dimensions in lexicographic order.
func (in *Interpretation) Dimensions() []string {
	dims := make([]string, 0, len(in.Rankings))
	for d := range in.Rankings {
		dims = append(dims, d)
	}
	sort.Strings(dims)
	return dims
}

// Ranking returns the ranking for a dimension, or nil if unknown.
func (in *Interpretation) Ranking(dimension string) []LabelScore {
	return in.Rankings[dimension]
}

// Top returns the highest ranked label of a dimension.
func (in *Interpretation) Top(dimension string) (LabelScore, bool) {
	r := in.Rankings[dimension]
	if len(r) == 0 {
		return LabelScore{}, false
	}
	return r[0], true
}

// Summary renders the top perDimension labels of every non-empty dimension
// as "dimension: label, label; dimension: label". perDimension <= 0 lists
// all labels.
func (in *Interpretation) Summary(perDimension int) string {
	var sb strings.Builder
	for _, d := range in.Dimensions() {
		r := in.Rankings[d]
		if len(r) == 0 {
			continue
		}
		if perDimension > 0 && len(r) > perDimension {
			r = r[:perDimension]
		}
		if sb.Len() > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(d)
		sb.WriteString(": ")
		for i, ls := range r {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(ls.Label)
		}
	}
	return sb.String()
}

func (in *Interpretation) String() string {
	return fmt.Sprintf("Interpretation(cluster=%d, size=%d, %s)", in.ClusterID, in.Size, in.Summary(3))
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithTopN keeps only the first n labels of every ranking. n <= 0 keeps all.
func WithTopN(n int) Option {
	return func(i *Interpreter) {
		i.topN = n
	}
}

// WithWorkers bounds the clusters interpreted concurrently by InterpretAll.
func WithWorkers(n int) Option {
	return func(i *Interpreter) {
		i.workers = n
	}
}

// Interpreter computes cluster interpretations.
type Interpreter struct {
	topN    int
	workers int
}

// New creates an interpreter.
func New(optFns ...Option) *Interpreter {
	in := &Interpreter{}
	for _, fn := range optFns {
		fn(in)
	}
	if in.workers <= 0 {
		in.workers = runtime.GOMAXPROCS(0)
	}
	return in
}

// Interpret ranks the labels of a cluster's members.
func (i *Interpreter) Interpret(c *clustering.Cluster, lookup Lookup) *Interpretation {
	dims := lookup.Dimensions()
	tallies := make(map[string]map[string]float64, len(dims))
	for _, d := range dims {
		tallies[d] = make(map[string]float64)
	}

	c.ForEachOrdinal(func(ord int) bool {
		for d, labels := range lookup.Attributes(ord) {
			if len(labels) == 0 {
				continue
			}
			t, ok := tallies[d]
			if !ok {
				t = make(map[string]float64)
				tallies[d] = t
			}
			w := 1 / float64(len(labels))
			for _, l := range labels {
				t[l] += w
			}
		}
		return true
	})

	out := &Interpretation{
		ClusterID: c.ID,
		Size:      c.Size(),
		Rankings:  make(map[string][]LabelScore, len(tallies)),
	}
	for d, t := range tallies {
		out.Rankings[d] = i.rank(t, c.Size())
	}
	return out
}

func (i *Interpreter) rank(tally map[string]float64, size int) []LabelScore {
	ranking := make([]LabelScore, 0, len(tally))
	if size == 0 {
		return ranking
	}
	for label, w := range tally {
		ranking = append(ranking, LabelScore{Label: label, Score: w / float64(size)})
	}
	sort.Slice(ranking, func(a, b int) bool {
		if ranking[a].Score != ranking[b].Score {
			return ranking[a].Score > ranking[b].Score
		}
		return ranking[a].Label < ranking[b].Label
	})
	if i.topN > 0 && len(ranking) > i.topN {
		ranking = ranking[:i.topN]
	}
	return ranking
}

// InterpretAll interprets every cluster concurrently. The result is indexed
// like clusters.
func (i *Interpreter) InterpretAll(ctx context.Context, clusters []*clustering.Cluster, lookup Lookup) ([]*Interpretation, error) {
	out := make([]*Interpretation, len(clusters))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(i.workers)
	for idx, c := range clusters {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out[idx] = i.Interpret(c, lookup)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
