package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/banshee-data/natbreaks/internal/db"
	"github.com/banshee-data/natbreaks/internal/pipeline"
)

func newClassifyCmd(a *app) *cobra.Command {
	var (
		flags  classifyFlags
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "classify INPUT OUTPUT",
		Short: "Reclassify a raster into natural-breaks classes",
		Long: `Computes Jenks natural breaks over the valid pixels of INPUT and writes
OUTPUT as an LZW-compressed byte GeoTIFF of class indices. No-data and NaN
pixels become 0. An existing OUTPUT is replaced.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig(flags.overrides(cmd))
			if err != nil {
				return err
			}

			opts := pipeline.Options{Input: args[0], Output: args[1], Config: cfg, FS: a.fs}
			if path := cfg.GetHistoryDB(); path != "" {
				history, err := db.NewDB(path)
				if err != nil {
					return fmt.Errorf("failed to open history database: %w", err)
				}
				defer history.Close()
				opts.History = history
			}

			res, err := pipeline.Run(cmd.Context(), opts)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), resultJSON(res))
			}
			printResult(cmd.OutOrStdout(), res)
			return nil
		},
	}
	flags.register(cmd, true)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	return cmd
}

type runSummary struct {
	RunID       string    `json:"run_id,omitempty"`
	Input       string    `json:"input"`
	Output      string    `json:"output,omitempty"`
	NumClasses  int       `json:"num_classes"`
	Breaks      []float64 `json:"breaks"`
	Bins        []float64 `json:"bins"`
	ValidCount  int       `json:"valid_count"`
	SampleSize  int       `json:"sample_size"`
	Sampled     bool      `json:"sampled"`
	ClassCounts []int     `json:"class_counts,omitempty"`
	GVF         float64   `json:"gvf"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	DurationMs  int64     `json:"duration_ms,omitempty"`
	Histogram   string    `json:"histogram,omitempty"`
	Chart       string    `json:"chart,omitempty"`
}

func resultJSON(res *pipeline.Result) runSummary {
	return runSummary{
		RunID:       res.RunID.String(),
		Input:       res.Input,
		Output:      res.Output,
		NumClasses:  res.NumClasses,
		Breaks:      res.Breaks,
		Bins:        res.Bins,
		ValidCount:  res.ValidCount,
		SampleSize:  res.SampleSize,
		Sampled:     res.Sampled,
		ClassCounts: res.ClassCounts,
		GVF:         res.GVF,
		Width:       res.Width,
		Height:      res.Height,
		DurationMs:  res.Duration.Milliseconds(),
		Histogram:   res.HistogramPath,
		Chart:       res.ChartPath,
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printResult(w io.Writer, res *pipeline.Result) {
	fmt.Fprintf(w, "Run:    %s\n", res.RunID)
	fmt.Fprintf(w, "Output: %s (%dx%d)\n", res.Output, res.Width, res.Height)
	fmt.Fprintf(w, "Valid values: %d", res.ValidCount)
	if res.Sampled {
		fmt.Fprintf(w, " (breaks from a sample of %d)", res.SampleSize)
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CLASS\tUPPER BOUND\tPIXELS")
	fmt.Fprintf(tw, "0\tno data\t%d\n", res.ClassCounts[0])
	for i, b := range res.Breaks {
		fmt.Fprintf(tw, "%d\t%.6f\t%d\n", i+1, b, res.ClassCounts[i+1])
	}
	tw.Flush()

	fmt.Fprintf(w, "Goodness of variance fit: %.4f\n", res.GVF)
	if res.HistogramPath != "" {
		fmt.Fprintf(w, "Histogram: %s\n", res.HistogramPath)
	}
	if res.ChartPath != "" {
		fmt.Fprintf(w, "Chart:     %s\n", res.ChartPath)
	}
}
