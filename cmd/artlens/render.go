package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/goccy/go-json"
	"github.com/hupe1980/artlens"
	"github.com/hupe1980/artlens/caption"
)

const (
	formatTable = "table"
	formatJSON  = "json"
)

func checkFormat(format string) error {
	switch format {
	case formatTable, formatJSON:
		return nil
	}
	return fmt.Errorf("unknown output format %q (want table or json)", format)
}

// styles is a set of lipgloss styles bound to one output writer, so color
// is only emitted when that writer is a terminal.
type styles struct {
	r      *lipgloss.Renderer
	title  lipgloss.Style
	header lipgloss.Style
	label  lipgloss.Style
	dim    lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	primary := lipgloss.Color("#00ff9f")
	return styles{
		r:      r,
		title:  r.NewStyle().Bold(true).Foreground(primary),
		header: r.NewStyle().Bold(true).Underline(true),
		label:  r.NewStyle().Foreground(primary),
		dim:    r.NewStyle().Foreground(lipgloss.Color("#6e7681")),
	}
}

// table renders rows in left-aligned columns sized to their widest cell.
func (s styles) table(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	line := func(cells []string, style lipgloss.Style) string {
		parts := make([]string, len(cells))
		for i, cell := range cells {
			parts[i] = style.Width(widths[i]).Render(cell)
		}
		return strings.Join(parts, "  ")
	}

	var b strings.Builder
	b.WriteString(line(headers, s.header))
	b.WriteByte('\n')
	for _, row := range rows {
		b.WriteString(line(row, s.r.NewStyle()))
		b.WriteByte('\n')
	}
	return b.String()
}

func (s styles) field(name string, value any) string {
	return s.label.Render(fmt.Sprintf("%-12s", name)) + " " + fmt.Sprint(value)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// topLabels lists the best label of every dimension, e.g. "genre=portrait (0.67)".
func topLabels(m *artlens.Model, clusterID int) string {
	in, err := m.Interpretation(clusterID)
	if err != nil {
		return ""
	}
	var parts []string
	for _, dim := range in.Dimensions() {
		if top, ok := in.Top(dim); ok {
			parts = append(parts, fmt.Sprintf("%s=%s (%.2f)", dim, top.Label, top.Score))
		}
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ", ")
}

func renderModel(w io.Writer, m *artlens.Model) {
	s := newStyles(w)

	fmt.Fprintln(w, s.title.Render("Model "+m.RunID))
	fmt.Fprintln(w, s.field("created", m.CreatedAt.Format("2006-01-02 15:04:05 MST")))
	fmt.Fprintln(w, s.field("records", m.Len()))
	fmt.Fprintln(w, s.field("dimension", m.Dimension()))
	fmt.Fprintln(w, s.field("metric", m.Config.Metric))
	fmt.Fprintln(w, s.field("clusters", fmt.Sprintf("%d (requested %d)", m.K(), m.Config.K)))
	fmt.Fprintln(w, s.field("status", fmt.Sprintf("%s after %d iterations", m.Status, m.Iterations)))
	fmt.Fprintln(w, s.field("inertia", fmt.Sprintf("%.4f", m.Inertia)))
	if m.Reseeds > 0 {
		fmt.Fprintln(w, s.field("reseeds", m.Reseeds))
	}
	fmt.Fprintln(w)

	report := m.Report()
	headers := []string{"CLUSTER", "SIZE", "TOP LABELS"}
	if report != nil {
		headers = []string{"CLUSTER", "SIZE", "MEAN DIST", "SIMILARITY", "TOP LABELS"}
	}

	rows := make([][]string, 0, m.K())
	for i, c := range m.Clusters() {
		row := []string{fmt.Sprint(c.ID), fmt.Sprint(c.Size())}
		if report != nil && i < len(report.PerCluster) {
			cs := report.PerCluster[i]
			row = append(row, fmt.Sprintf("%.4f", cs.MeanDistance), fmt.Sprintf("%.4f", cs.Similarity))
		} else if report != nil {
			row = append(row, "-", "-")
		}
		rows = append(rows, append(row, topLabels(m, c.ID)))
	}
	fmt.Fprint(w, s.table(headers, rows))

	if report != nil {
		fmt.Fprintln(w, s.dim.Render(fmt.Sprintf("size %.1f ± %.1f, range [%d, %d], mean similarity %.4f",
			report.SizeMean, report.SizeStdDev, report.SizeMin, report.SizeMax, report.MeanSimilarity)))
	}
}

func renderCaptions(w io.Writer, results []*caption.Result) {
	s := newStyles(w)
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, []string{r.SubjectID, fmt.Sprint(r.ClusterID), r.Text})
	}
	fmt.Fprint(w, s.table([]string{"SUBJECT", "CLUSTER", "CAPTION"}, rows))
}
