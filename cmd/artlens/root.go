package main

import (
	"context"
	"fmt"
	"io"

	"github.com/hupe1980/artlens"
	"github.com/hupe1980/artlens/config"
	"github.com/spf13/cobra"
)

// app carries the global flags and the configuration they resolve to.
type app struct {
	configPath string
	logLevel   string
	logFormat  string

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "artlens",
		Short: "Cluster artwork embeddings and caption the clusters",
		Long: `artlens - groups artwork embeddings into clusters, ranks the labels
that characterize each cluster and renders short captions from them.

Settings come from an optional YAML file (--config) and ARTLENS_*
environment variables, which override the file.

Examples:
  # Build 8 clusters and save the model
  artlens cluster artworks.jsonl --k 8 --save

  # Caption a record of the saved model
  artlens caption art-42

  # Caption a new embedding
  artlens caption --vector "0.12 0.48 0.31"`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig()
		},
	}

	cmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to a YAML configuration file")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	cmd.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "log format: text or json")

	cmd.AddCommand(
		newClusterCmd(a),
		newCaptionCmd(a),
		newInspectCmd(a),
		newVersionCmd(),
	)
	return cmd
}

func (a *app) loadConfig() error {
	cfg := config.DefaultConfig()
	if a.configPath != "" {
		var err error
		if cfg, err = config.LoadConfig(a.configPath); err != nil {
			return err
		}
	}
	if err := config.LoadFromEnv(cfg); err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Log.Format = a.logFormat
	}
	a.cfg = cfg
	return nil
}

// pipeline opens the configured blob store and builds a pipeline on it.
// Logs go to stderr. The returned closer releases the store.
func (a *app) pipeline(ctx context.Context, stderr io.Writer) (*artlens.Pipeline, io.Closer, error) {
	opts, err := a.cfg.Options()
	if err != nil {
		return nil, nil, err
	}
	logger, err := a.cfg.LoggerTo(stderr)
	if err != nil {
		return nil, nil, err
	}

	store, closer, err := a.cfg.Storage.Open(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s store: %w", a.cfg.Storage.Backend, err)
	}

	opts = append(opts, artlens.WithLogger(logger), artlens.WithBlobStore(store))
	p, err := artlens.New(opts...)
	if err != nil {
		_ = closer.Close()
		return nil, nil, err
	}
	return p, closer, nil
}

// loadModel loads the current model, or runID when set.
func loadModel(ctx context.Context, p *artlens.Pipeline, runID string) (*artlens.Model, error) {
	if runID != "" {
		return p.LoadRun(ctx, runID)
	}
	return p.Load(ctx)
}
