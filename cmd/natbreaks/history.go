package main

import (
	"errors"
	"fmt"
	"io"
	"math"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/banshee-data/natbreaks/internal/db"
)

// historyPath returns the database named by --db, falling back to the
// config's history_db.
func (a *app) historyPath(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	cfg, err := a.loadConfig(nil)
	if err != nil {
		return "", err
	}
	if path := cfg.GetHistoryDB(); path != "" {
		return path, nil
	}
	return "", errors.New("no history database: pass --db or set history_db in the config")
}

func newHistoryCmd(a *app) *cobra.Command {
	var (
		dbPath string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "history [RUN_ID]",
		Short: "List recorded classification runs, or show one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := a.historyPath(dbPath)
			if err != nil {
				return err
			}
			history, err := db.NewDB(path)
			if err != nil {
				return err
			}
			defer history.Close()
			w := cmd.OutOrStdout()

			if len(args) == 1 {
				run, err := history.GetRun(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				printRun(w, run)
				return nil
			}

			runs, err := history.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(w, "No runs recorded.")
				return nil
			}
			tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RUN ID\tSTARTED\tINPUT\tCLASSES\tVALID\tGVF\tDURATION")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
					r.RunID, r.StartedAt.Format(time.RFC3339), r.InputPath,
					r.NumClasses, r.ValidCount, formatGVF(r.GVF), r.Duration)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "History database (defaults to history_db from the config)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list (0 = all)")
	return cmd
}

func formatGVF(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	return fmt.Sprintf("%.4f", v)
}

func printRun(w io.Writer, r *db.Run) {
	fmt.Fprintf(w, "Run:      %s\n", r.RunID)
	fmt.Fprintf(w, "Started:  %s (%s)\n", r.StartedAt.Format(time.RFC3339), r.Duration)
	fmt.Fprintf(w, "Input:    %s\n", r.InputPath)
	fmt.Fprintf(w, "Output:   %s (%dx%d)\n", r.OutputPath, r.Width, r.Height)
	fmt.Fprintf(w, "Version:  %s\n", r.Version)
	fmt.Fprintf(w, "Valid:    %d (sample %d)\n", r.ValidCount, r.SampleSize)
	fmt.Fprintf(w, "GVF:      %s\n", formatGVF(r.GVF))
	for i, b := range r.Breaks {
		count := 0
		if i+1 < len(r.ClassCounts) {
			count = r.ClassCounts[i+1]
		}
		fmt.Fprintf(w, "Class %d: <= %.6f (%d px)\n", i+1, b, count)
	}
	if r.ConfigJSON != "" {
		fmt.Fprintf(w, "Config:   %s\n", r.ConfigJSON)
	}
}
