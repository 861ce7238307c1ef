package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/banshee-data/natbreaks/internal/jenks"
	"github.com/banshee-data/natbreaks/internal/pipeline"
)

func newBreaksCmd(a *app) *cobra.Command {
	var (
		flags  classifyFlags
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "breaks INPUT",
		Short: "Print the natural breaks of a raster without writing output",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig(flags.overrides(cmd))
			if err != nil {
				return err
			}

			an, err := pipeline.ComputeBreaks(cmd.Context(), pipeline.Options{Input: args[0], Config: cfg, FS: a.fs})
			if err != nil {
				return err
			}
			c := an.Classification
			gvf := jenks.GoodnessOfVarianceFit(an.Values, c.Breaks)

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), runSummary{
					Input:      args[0],
					NumClasses: cfg.GetNumClasses(),
					Breaks:     c.Breaks,
					Bins:       an.Bins,
					ValidCount: len(an.Values),
					SampleSize: c.SampleSize,
					Sampled:    c.Sampled,
					GVF:        gvf,
					Width:      an.Band.Width,
					Height:     an.Band.Height,
				})
			}

			w := cmd.OutOrStdout()
			for i, b := range c.Breaks {
				fmt.Fprintf(w, "Class %d: <= %.6f\n", i+1, b)
			}
			fmt.Fprintf(w, "Goodness of variance fit: %.4f\n", gvf)
			return nil
		},
	}
	flags.register(cmd, false)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the breaks as JSON")
	return cmd
}
