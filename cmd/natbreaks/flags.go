package main

import (
	"github.com/spf13/cobra"

	"github.com/banshee-data/natbreaks/internal/config"
)

// classifyFlags are the config overrides accepted on the command line.
type classifyFlags struct {
	numClasses         int
	maxSampleSize      int
	includeNonPositive bool
	maskNonPositive    bool
	upperInclusive     bool
	compression        string
	workers            int
	plotDir            string
	historyDB          string
}

// register adds the breaks flags, and with output also the flags that only
// matter when a raster is written.
func (f *classifyFlags) register(cmd *cobra.Command, output bool) {
	fl := cmd.Flags()
	fl.IntVarP(&f.numClasses, "classes", "k", 3, "Number of classes (1-255)")
	fl.IntVar(&f.maxSampleSize, "max-sample-size", 3000, "Inputs larger than this are sampled before computing breaks")
	fl.BoolVar(&f.includeNonPositive, "include-non-positive", false, "Include zero and negative values in the break computation")
	if !output {
		return
	}
	fl.BoolVar(&f.maskNonPositive, "mask-non-positive", false, "Write zero and negative pixels as no-data")
	fl.BoolVar(&f.upperInclusive, "upper-inclusive", false, "Assign values equal to a break to the lower class")
	fl.StringVar(&f.compression, "compression", "lzw", "Output compression: lzw, deflate or none")
	fl.IntVar(&f.workers, "workers", 0, "Reclassification goroutines (0 = GOMAXPROCS)")
	fl.StringVar(&f.plotDir, "plot-dir", "", "Write a histogram PNG and class chart HTML into this directory")
	fl.StringVar(&f.historyDB, "history-db", "", "Record the run in this SQLite database")
}

// overrides returns a config holding only the flags set on the command line.
func (f *classifyFlags) overrides(cmd *cobra.Command) *config.ClassifyConfig {
	fl := cmd.Flags()
	c := config.EmptyClassifyConfig()
	if fl.Changed("classes") {
		c.NumClasses = &f.numClasses
	}
	if fl.Changed("max-sample-size") {
		c.MaxSampleSize = &f.maxSampleSize
	}
	if fl.Changed("include-non-positive") {
		exclude := !f.includeNonPositive
		c.ExcludeNonPositive = &exclude
	}
	if fl.Changed("mask-non-positive") {
		c.MaskNonPositive = &f.maskNonPositive
	}
	if fl.Changed("upper-inclusive") {
		c.UpperInclusive = &f.upperInclusive
	}
	if fl.Changed("compression") {
		c.Compression = &f.compression
	}
	if fl.Changed("workers") {
		c.Workers = &f.workers
	}
	if fl.Changed("plot-dir") {
		c.PlotDir = &f.plotDir
	}
	if fl.Changed("history-db") {
		c.HistoryDB = &f.historyDB
	}
	return c
}
