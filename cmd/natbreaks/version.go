package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/banshee-data/natbreaks/internal/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "natbreaks %s\n", version.String())
			return nil
		},
	}
}
