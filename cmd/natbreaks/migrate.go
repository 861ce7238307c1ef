package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/banshee-data/natbreaks/internal/db"
)

func newMigrateCmd(a *app) *cobra.Command {
	var dbPath string
	cmd := &cobra.Command{
		Use:       "migrate up|down|status",
		Short:     "Manage the history database schema",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"up", "down", "status"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := a.historyPath(dbPath)
			if err != nil {
				return err
			}
			history, err := db.OpenDB(path)
			if err != nil {
				return err
			}
			defer history.Close()
			migrations, err := db.MigrationsFS()
			if err != nil {
				return err
			}

			switch args[0] {
			case "up":
				if err := history.MigrateUp(migrations); err != nil {
					return err
				}
			case "down":
				if err := history.MigrateDown(migrations); err != nil {
					return err
				}
			case "status":
			default:
				return fmt.Errorf("unknown migrate action %q (want up, down or status)", args[0])
			}

			version, dirty, err := history.MigrateVersion(migrations)
			if err != nil {
				return err
			}
			latest, err := db.LatestMigrationVersion(migrations)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Schema version: %d (latest %d)", version, latest)
			if dirty {
				fmt.Fprint(cmd.OutOrStdout(), " DIRTY")
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "History database (defaults to history_db from the config)")
	return cmd
}
