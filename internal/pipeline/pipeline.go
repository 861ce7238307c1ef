// Package pipeline runs a natural-breaks reclassification end to end:
// open raster, filter values, compute breaks, threshold pixels and write
// the class raster.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/natbreaks/internal/config"
	"github.com/banshee-data/natbreaks/internal/db"
	"github.com/banshee-data/natbreaks/internal/fsutil"
	"github.com/banshee-data/natbreaks/internal/geotiff"
	"github.com/banshee-data/natbreaks/internal/jenks"
	"github.com/banshee-data/natbreaks/internal/monitoring"
	"github.com/banshee-data/natbreaks/internal/raster"
	"github.com/banshee-data/natbreaks/internal/reclass"
	"github.com/banshee-data/natbreaks/internal/timeutil"
)

var (
	// ErrInputNotFound is returned when the input raster does not exist.
	ErrInputNotFound = errors.New("input raster not found")
	// ErrNoValidValues is returned when filtering leaves nothing to classify.
	ErrNoValidValues = errors.New("no valid pixel values")
	// ErrCreateOutput is returned when the output raster cannot be created.
	ErrCreateOutput = errors.New("cannot create output raster")
)

// Metadata keys written to the output raster.
const (
	MetadataBreaks  = "NATBREAKS_BREAKS"
	MetadataClasses = "NATBREAKS_CLASSES"
	MetadataGVF     = "NATBREAKS_GVF"
	MetadataRunID   = "NATBREAKS_RUN_ID"
)

// HistoryStore records completed runs.
type HistoryStore interface {
	RecordRun(ctx context.Context, run *db.Run) error
}

// Options configures a run.
type Options struct {
	Input  string
	Output string

	// Config supplies the classification parameters; nil means defaults.
	Config *config.ClassifyConfig
	// FS is used for every file access; nil means the OS filesystem.
	FS fsutil.FileSystem
	// History, when set, receives a record of each successful run.
	History HistoryStore
	// Clock stamps StartedAt and Duration; nil means the system clock.
	Clock timeutil.Clock
}

func (o Options) fs() fsutil.FileSystem {
	if o.FS == nil {
		return fsutil.OSFileSystem{}
	}
	return o.FS
}

func (o Options) clock() timeutil.Clock {
	if o.Clock == nil {
		return timeutil.RealClock{}
	}
	return o.Clock
}

func (o Options) config() *config.ClassifyConfig {
	if o.Config == nil {
		return config.EmptyClassifyConfig()
	}
	return o.Config
}

// Analysis is the outcome of the break computation.
type Analysis struct {
	Band           *raster.Band
	Values         []float64
	Classification *jenks.Classification
	Bins           []float64
}

// Result summarises a completed run.
type Result struct {
	RunID      uuid.UUID
	Input      string
	Output     string
	NumClasses int
	Breaks     []float64
	Bins       []float64
	ValidCount int
	SampleSize int
	Sampled    bool
	// ClassCounts holds pixels per class; index 0 is no-data.
	ClassCounts []int
	GVF         float64
	Width       int
	Height      int
	StartedAt   time.Time
	Duration    time.Duration

	// Side outputs, empty when not produced.
	HistogramPath string
	ChartPath     string
}

// ComputeBreaks reads the input raster, filters its values and computes
// the class breaks without writing anything.
func ComputeBreaks(ctx context.Context, opts Options) (*Analysis, error) {
	cfg := opts.config()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	fsys := opts.fs()

	info, err := fsys.Stat(opts.Input)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrInputNotFound, opts.Input)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat input: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrInputNotFound, opts.Input)
	}

	band, err := geotiff.ReadFile(fsys, opts.Input)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	values := band.ValidValues(raster.FilterOptions{ExcludeNonPositive: cfg.GetExcludeNonPositive()})
	if len(values) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoValidValues, opts.Input)
	}
	monitoring.Logf("Number of valid values: %d", len(values))

	c, err := jenks.Classify(values, cfg.GetNumClasses(), jenks.Options{
		MaxSampleSize: cfg.GetMaxSampleSize(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to compute breaks: %w", err)
	}
	if c.Sampled {
		monitoring.Logf("Breaks computed from a sample of %d values", c.SampleSize)
	}
	monitoring.Logf("Computed Jenks breaks:")
	for i, b := range c.Breaks {
		monitoring.Logf("Class %d: <= %.6f", i+1, b)
	}

	bins := reclass.Bins(c.Breaks)
	monitoring.Logf("Bins for digitize: %v", bins)
	return &Analysis{Band: band, Values: values, Classification: c, Bins: bins}, nil
}

// Run executes the full reclassification and writes opts.Output.
func Run(ctx context.Context, opts Options) (*Result, error) {
	clock := opts.clock()
	started := clock.Now()
	cfg := opts.config()
	fsys := opts.fs()

	a, err := ComputeBreaks(ctx, opts)
	if err != nil {
		return nil, err
	}

	k := cfg.GetNumClasses()
	classes, err := reclass.Reclassify(ctx, a.Band, a.Classification.Breaks, k, reclass.Options{
		UpperInclusive:  cfg.GetUpperInclusive(),
		MaskNonPositive: cfg.GetMaskNonPositive(),
		Workers:         cfg.GetWorkers(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to reclassify: %w", err)
	}

	res := &Result{
		RunID:       uuid.New(),
		Input:       opts.Input,
		Output:      opts.Output,
		NumClasses:  k,
		Breaks:      a.Classification.Breaks,
		Bins:        a.Bins,
		ValidCount:  len(a.Values),
		SampleSize:  a.Classification.SampleSize,
		Sampled:     a.Classification.Sampled,
		ClassCounts: reclass.Histogram(classes, k),
		GVF:         jenks.GoodnessOfVarianceFit(a.Values, a.Classification.Breaks),
		Width:       a.Band.Width,
		Height:      a.Band.Height,
		StartedAt:   started,
	}

	compression, err := geotiff.ParseCompression(cfg.GetCompression())
	if err != nil {
		return nil, err
	}
	img := &geotiff.ClassImage{
		Width:  a.Band.Width,
		Height: a.Band.Height,
		Pix:    classes,
		Geo:    a.Band.Geo.Clone(),
	}
	if img.Geo.IsZero() {
		monitoring.Warnf("Input %s has no georeferencing; output will not be georeferenced", opts.Input)
	}
	if err := writeOutput(fsys, opts.Output, img, geotiff.EncodeOptions{
		Compression: compression,
		NoData:      reclass.NoDataClass,
		Metadata:    outputMetadata(res),
	}); err != nil {
		return nil, err
	}
	monitoring.Logf("Reclassification complete. Output saved to: %s", opts.Output)

	res.Duration = clock.Since(started)
	writeReports(fsys, cfg, a, res)
	recordHistory(ctx, opts.History, cfg, res)
	return res, nil
}

// writeOutput replaces any existing file at path with img.
func writeOutput(fsys fsutil.FileSystem, path string, img *geotiff.ClassImage, opts geotiff.EncodeOptions) error {
	if fsys.Exists(path) {
		if err := fsys.Remove(path); err != nil {
			monitoring.Warnf("Could not remove existing file %s: %v", path, err)
		}
	}

	f, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("%w %s: %v", ErrCreateOutput, path, err)
	}
	if err := geotiff.Encode(f, img, opts); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}

func outputMetadata(res *Result) map[string]string {
	breaks := make([]string, len(res.Breaks))
	for i, b := range res.Breaks {
		breaks[i] = strconv.FormatFloat(b, 'g', -1, 64)
	}
	return map[string]string{
		MetadataBreaks:  strings.Join(breaks, ","),
		MetadataClasses: strconv.Itoa(res.NumClasses),
		MetadataGVF:     strconv.FormatFloat(res.GVF, 'f', 6, 64),
		MetadataRunID:   res.RunID.String(),
	}
}
