package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

type inspectOutput struct {
	RunID      string   `json:"run_id"`
	CreatedAt  string   `json:"created_at"`
	Metric     string   `json:"metric"`
	K          int      `json:"k"`
	Records    int      `json:"records"`
	Dimension  int      `json:"dimension"`
	Status     string   `json:"status"`
	Iterations int      `json:"iterations"`
	Inertia    float64  `json:"inertia"`
	Sizes      []int    `json:"sizes"`
	Labels     []string `json:"labels"`
}

func newInspectCmd(a *app) *cobra.Command {
	var (
		runID  string
		runs   bool
		format string
	)

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print a saved model or list saved runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			ctx := cmd.Context()
			p, closer, err := a.pipeline(ctx, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() { _ = closer.Close() }()

			w := cmd.OutOrStdout()
			if runs {
				ids, err := p.Runs(ctx)
				if err != nil {
					return err
				}
				if format == formatJSON {
					return writeJSON(w, ids)
				}
				for _, id := range ids {
					fmt.Fprintln(w, id)
				}
				return nil
			}

			m, err := loadModel(ctx, p, runID)
			if err != nil {
				return err
			}
			if format == formatTable {
				renderModel(w, m)
				return nil
			}

			out := inspectOutput{
				RunID:      m.RunID,
				CreatedAt:  m.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
				Metric:     m.Config.Metric.String(),
				K:          m.K(),
				Records:    m.Len(),
				Dimension:  m.Dimension(),
				Status:     m.Status.String(),
				Iterations: m.Iterations,
				Inertia:    m.Inertia,
			}
			for _, c := range m.Clusters() {
				out.Sizes = append(out.Sizes, c.Size())
				out.Labels = append(out.Labels, topLabels(m, c.ID))
			}
			return writeJSON(w, out)
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", "run id of a saved model, default is the current one")
	cmd.Flags().BoolVar(&runs, "runs", false, "list the run ids of all saved models")
	cmd.Flags().StringVarP(&format, "format", "o", formatTable, "output format: table or json")
	return cmd
}
