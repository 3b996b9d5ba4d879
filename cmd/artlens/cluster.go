package main

import (
	"fmt"

	"github.com/hupe1980/artlens/caption"
	"github.com/hupe1980/artlens/clustering"
	"github.com/hupe1980/artlens/dataset"
	"github.com/hupe1980/artlens/stats"
	"github.com/spf13/cobra"
)

type clusterFlags struct {
	k             int
	metric        string
	maxIterations int
	seed          int64
	workers       int
	save          bool
	captions      bool
	format        string
}

type clusterOutput struct {
	RunID      string            `json:"run_id"`
	Snapshot   string            `json:"snapshot,omitempty"`
	Status     string            `json:"status"`
	Iterations int               `json:"iterations"`
	Report     *stats.Report     `json:"report"`
	Captions   []*caption.Result `json:"captions,omitempty"`
}

func newClusterCmd(a *app) *cobra.Command {
	f := &clusterFlags{}

	cmd := &cobra.Command{
		Use:   "cluster <dataset>",
		Short: "Build clusters from a JSONL or CSV dataset",
		Long: `Reads a dataset (.jsonl, .ndjson, .json or .csv, optionally .gz or .zst
compressed), clusters the embeddings and prints a report of the clusters
with their top labels. Flags override the configuration.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(f.format); err != nil {
				return err
			}
			c := &a.cfg.Clustering
			if cmd.Flags().Changed("k") {
				c.K = f.k
			}
			if cmd.Flags().Changed("metric") {
				c.Metric = f.metric
			}
			if cmd.Flags().Changed("max-iterations") {
				c.MaxIterations = f.maxIterations
			}
			if cmd.Flags().Changed("seed") {
				c.Seed = f.seed
			}
			if cmd.Flags().Changed("workers") {
				c.Workers = f.workers
			}

			records, err := dataset.Load(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			p, closer, err := a.pipeline(ctx, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() { _ = closer.Close() }()

			m, err := p.Build(ctx, records)
			if err != nil {
				return err
			}

			out := clusterOutput{
				RunID:      m.RunID,
				Status:     m.Status.String(),
				Iterations: m.Iterations,
				Report:     m.Report(),
			}
			if f.save {
				if out.Snapshot, err = p.Save(ctx, m); err != nil {
					return err
				}
			}
			if f.captions {
				results, err := m.CaptionAll(ctx)
				if err != nil {
					return err
				}
				out.Captions = results
			}

			w := cmd.OutOrStdout()
			if f.format == formatJSON {
				return writeJSON(w, out)
			}
			renderModel(w, m)
			if out.Captions != nil {
				fmt.Fprintln(w)
				renderCaptions(w, out.Captions)
			}
			if out.Snapshot != "" {
				fmt.Fprintln(w)
				fmt.Fprintln(w, newStyles(w).field("saved", out.Snapshot))
			}
			return nil
		},
	}

	def := clustering.DefaultConfig()
	cmd.Flags().IntVarP(&f.k, "k", "k", def.K, "number of clusters")
	cmd.Flags().StringVarP(&f.metric, "metric", "m", def.Metric.String(), "distance metric: cosine or euclidean")
	cmd.Flags().IntVar(&f.maxIterations, "max-iterations", def.MaxIterations, "refinement iteration limit")
	cmd.Flags().Int64Var(&f.seed, "seed", def.Seed, "initialization seed")
	cmd.Flags().IntVar(&f.workers, "workers", 0, "goroutines per stage, 0 uses GOMAXPROCS")
	cmd.Flags().BoolVar(&f.save, "save", false, "save the model to the configured store")
	cmd.Flags().BoolVar(&f.captions, "captions", false, "caption every record")
	cmd.Flags().StringVarP(&f.format, "format", "o", formatTable, "output format: table or json")
	return cmd
}
