package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/hupe1980/artlens/caption"
	"github.com/spf13/cobra"
)

type captionFlags struct {
	runID   string
	vector  string
	subject string
	all     bool
	format  string
}

func newCaptionCmd(a *app) *cobra.Command {
	f := &captionFlags{}

	cmd := &cobra.Command{
		Use:   "caption [record-id...]",
		Short: "Caption records or a new vector from a saved model",
		Long: `Loads the current model (or --run) from the configured store and captions
the given records. With --vector, an unseen embedding is assigned to its
nearest cluster and captioned from that cluster.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(f.format); err != nil {
				return err
			}
			modes := 0
			for _, set := range []bool{len(args) > 0, f.vector != "", f.all} {
				if set {
					modes++
				}
			}
			if modes != 1 {
				return errors.New("pass record ids, --vector or --all")
			}

			var vector []float32
			if f.vector != "" {
				var err error
				if vector, err = parseVector(f.vector); err != nil {
					return err
				}
			}

			ctx := cmd.Context()
			p, closer, err := a.pipeline(ctx, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() { _ = closer.Close() }()

			m, err := loadModel(ctx, p, f.runID)
			if err != nil {
				return err
			}

			var results []*caption.Result
			switch {
			case f.all:
				if results, err = m.CaptionAll(ctx); err != nil {
					return err
				}
			case vector != nil:
				res, err := m.CaptionVector(ctx, f.subject, vector)
				if err != nil {
					return err
				}
				results = append(results, res)
			default:
				for _, id := range args {
					res, err := m.Caption(ctx, id)
					if err != nil {
						return err
					}
					results = append(results, res)
				}
			}

			if f.format == formatJSON {
				return writeJSON(cmd.OutOrStdout(), results)
			}
			renderCaptions(cmd.OutOrStdout(), results)
			return nil
		},
	}

	cmd.Flags().StringVar(&f.runID, "run", "", "run id of a saved model, default is the current one")
	cmd.Flags().StringVar(&f.vector, "vector", "", "embedding to caption, comma or space separated")
	cmd.Flags().StringVar(&f.subject, "subject", "query", "subject id reported for --vector")
	cmd.Flags().BoolVar(&f.all, "all", false, "caption every record of the model")
	cmd.Flags().StringVarP(&f.format, "format", "o", formatTable, "output format: table or json")
	return cmd
}

func parseVector(s string) ([]float32, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '[' || r == ']'
	})
	if len(fields) == 0 {
		return nil, errors.New("empty vector")
	}
	vec := make([]float32, len(fields))
	for i, field := range fields {
		v, err := strconv.ParseFloat(field, 32)
		if err != nil {
			return nil, fmt.Errorf("vector component %d: %w", i, err)
		}
		vec[i] = float32(v)
	}
	return vec, nil
}
