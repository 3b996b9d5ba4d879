package caption

import (
	"context"
	"runtime"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hupe1980/artlens/interpret"
	"github.com/hupe1980/artlens/model"
	"golang.org/x/sync/errgroup"
)

// Component is one label that made it into a caption.
type Component struct {
	Dimension string  `json:"dimension"`
	Label     string  `json:"label"`
	Score     float64 `json:"score"`
}

// Result is a rendered caption.
type Result struct {
	SubjectID  string      `json:"subject_id"`
	ClusterID  int         `json:"cluster_id"`
	Text       string      `json:"text"`
	Components []Component `json:"components"`
}

// Generator renders captions under a fixed policy.
// It is safe for concurrent use.
type Generator struct {
	policy  Policy
	workers int
}

// New creates a generator. The policy is validated and copied with its
// dimension names trimmed and lower-cased.
func New(policy Policy) (*Generator, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	return &Generator{policy: policy.normalized(), workers: runtime.GOMAXPROCS(0)}, nil
}

// Policy returns a copy of the generator's policy.
func (g *Generator) Policy() Policy {
	p := g.policy
	p.DimensionOrder = append([]string(nil), g.policy.DimensionOrder...)
	return p
}

type clause struct {
	role       Role
	text       string
	components []Component
}

// Generate renders the caption of subjectID from its cluster's
// interpretation.
func (g *Generator) Generate(subjectID string, in *interpret.Interpretation) (*Result, error) {
	if in == nil {
		return nil, &model.DataError{RecordID: subjectID, Field: "interpretation", Reason: "missing interpretation"}
	}

	var (
		head      *clause
		modifiers []clause
	)
	for _, dim := range g.policy.DimensionOrder {
		c, ok := g.clause(dim, in.Ranking(dim))
		if !ok {
			continue
		}
		if c.role == RoleSubject {
			// Only the first subject clause is rendered.
			if head == nil {
				head = &c
			}
			continue
		}
		modifiers = append(modifiers, c)
	}

	res := &Result{
		SubjectID:  subjectID,
		ClusterID:  in.ClusterID,
		Components: []Component{},
	}

	if head == nil && len(modifiers) == 0 {
		res.Text = g.policy.Fallback
		return res, nil
	}

	headText := DefaultHead
	if head != nil {
		headText = head.text
		res.Components = append(res.Components, head.components...)
	}

	parts := make([]string, 0, len(modifiers))
	for _, m := range modifiers {
		parts = append(parts, m.text)
		res.Components = append(res.Components, m.components...)
	}

	var sb strings.Builder
	sb.WriteString(headText)
	if len(parts) > 0 {
		sb.WriteByte(' ')
		sb.WriteString(joinList(parts))
	}
	sb.WriteByte('.')

	res.Text = capitalize(sb.String())
	return res, nil
}

func (g *Generator) clause(dim string, ranking []interpret.LabelScore) (clause, bool) {
	var comps []Component
	for _, ls := range ranking {
		if len(comps) == g.policy.MaxLabelsPerDimension {
			break
		}
		// Rankings are sorted, so nothing after a failing score qualifies.
		if ls.Score < g.policy.MinScoreThreshold {
			break
		}
		comps = append(comps, Component{Dimension: dim, Label: ls.Label, Score: ls.Score})
	}
	if len(comps) == 0 {
		return clause{}, false
	}

	labels := make([]string, len(comps))
	for i, c := range comps {
		labels[i] = c.Label
	}
	joined := joinList(labels)

	tmpl := g.policy.template(dim)
	text := strings.NewReplacer(
		"{a}", article(joined),
		"{label}", joined,
		"{dimension}", dim,
	).Replace(tmpl.Pattern)

	return clause{role: tmpl.Role, text: strings.TrimSpace(text), components: comps}, true
}

// Subject pairs a subject id with the interpretation of its cluster.
type Subject struct {
	ID             string
	Interpretation *interpret.Interpretation
}

// GenerateAll captions every subject concurrently. Results are indexed like
// subjects.
func (g *Generator) GenerateAll(ctx context.Context, subjects []Subject) ([]*Result, error) {
	out := make([]*Result, len(subjects))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.workers)
	for i, s := range subjects {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r, err := g.Generate(s.ID, s.Interpretation)
			if err != nil {
				return err
			}
			out[i] = r
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// joinList joins items as "x", "x and y" or "x, y and z".
func joinList(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	default:
		return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
	}
}

func article(word string) string {
	r, _ := utf8.DecodeRuneInString(word)
	switch unicode.ToLower(r) {
	case 'a', 'e', 'i', 'o', 'u':
		return "an"
	default:
		return "a"
	}
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
