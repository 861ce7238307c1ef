package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/banshee-data/natbreaks/internal/geotiff"
	"github.com/banshee-data/natbreaks/internal/raster"
)

func newInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info INPUT",
		Short: "Describe a raster: size, no-data, georeferencing and value statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			band, err := geotiff.ReadFile(a.fs, args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()

			fmt.Fprintf(w, "File:        %s\n", args[0])
			fmt.Fprintf(w, "Size:        %d x %d\n", band.Width, band.Height)
			fmt.Fprintf(w, "Sample type: %s\n", band.SampleType)
			if band.NoData != nil {
				fmt.Fprintf(w, "No-data:     %g\n", *band.NoData)
			} else {
				fmt.Fprintln(w, "No-data:     none")
			}
			if band.Geo.IsZero() {
				fmt.Fprintln(w, "Georef:      none")
			}
			if epsg, ok := band.Geo.EPSG(); ok {
				fmt.Fprintf(w, "EPSG:        %d\n", epsg)
			}
			if gt, ok := band.Geo.GeoTransform(); ok {
				fmt.Fprintf(w, "Origin:      (%.6f, %.6f)\n", gt[0], gt[3])
				fmt.Fprintf(w, "Pixel size:  (%.6f, %.6f)\n", gt[1], gt[5])
			}

			all := band.ValidValues(raster.FilterOptions{})
			positive := band.ValidValues(raster.DefaultFilterOptions())
			fmt.Fprintf(w, "No-data px:  %d\n", band.CountNoData())
			fmt.Fprintf(w, "Valid px:    %d (%d positive)\n", len(all), len(positive))
			if len(all) > 0 {
				s := raster.Summarize(all)
				fmt.Fprintf(w, "Min/Max:     %g / %g\n", s.Min, s.Max)
				fmt.Fprintf(w, "Mean/StdDev: %g / %g\n", s.Mean, s.StdDev)
			}

			if len(band.Metadata) > 0 {
				keys := make([]string, 0, len(band.Metadata))
				for k := range band.Metadata {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				fmt.Fprintln(w, "Metadata:")
				for _, k := range keys {
					fmt.Fprintf(w, "  %s=%s\n", k, band.Metadata[k])
				}
			}
			return nil
		},
	}
}
