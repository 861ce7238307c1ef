package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/banshee-data/natbreaks/internal/config"
	"github.com/banshee-data/natbreaks/internal/db"
	"github.com/banshee-data/natbreaks/internal/fsutil"
	"github.com/banshee-data/natbreaks/internal/monitoring"
	"github.com/banshee-data/natbreaks/internal/report"
	"github.com/banshee-data/natbreaks/internal/version"
)

// writeReports renders the histogram and class chart when a plot directory
// is configured. Failures are reported as warnings; the raster is already
// written at this point.
func writeReports(fsys fsutil.FileSystem, cfg *config.ClassifyConfig, a *Analysis, res *Result) {
	dir := cfg.GetPlotDir()
	if dir == "" {
		return
	}
	pngPath, htmlPath := report.Paths(dir, res.Output)
	title := filepath.Base(res.Input)

	if err := report.WriteHistogramPNG(fsys, pngPath, a.Values, res.Breaks, title); err != nil {
		monitoring.Warnf("Could not write histogram %s: %v", pngPath, err)
	} else {
		res.HistogramPath = pngPath
	}

	summary := report.ClassSummary{
		Title:    title,
		Subtitle: fmt.Sprintf("%d classes, GVF %.4f", res.NumClasses, res.GVF),
		Breaks:   res.Breaks,
		Counts:   res.ClassCounts[:len(res.Breaks)+1],
	}
	if err := report.WriteClassChartHTML(fsys, htmlPath, summary); err != nil {
		monitoring.Warnf("Could not write class chart %s: %v", htmlPath, err)
	} else {
		res.ChartPath = htmlPath
	}
}

// recordHistory stores res in the history store, if one is configured.
func recordHistory(ctx context.Context, store HistoryStore, cfg *config.ClassifyConfig, res *Result) {
	if store == nil {
		return
	}
	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		monitoring.Warnf("Could not encode config for history: %v", err)
	}
	run := &db.Run{
		RunID:       res.RunID.String(),
		InputPath:   res.Input,
		OutputPath:  res.Output,
		NumClasses:  res.NumClasses,
		ValidCount:  res.ValidCount,
		SampleSize:  res.SampleSize,
		Sampled:     res.Sampled,
		Breaks:      res.Breaks,
		ClassCounts: res.ClassCounts,
		GVF:         res.GVF,
		Width:       res.Width,
		Height:      res.Height,
		Version:     version.Version,
		StartedAt:   res.StartedAt,
		Duration:    res.Duration,
		ConfigJSON:  string(cfgJSON),
	}
	if err := store.RecordRun(ctx, run); err != nil {
		monitoring.Warnf("Could not record run %s: %v", res.RunID, err)
	}
}
