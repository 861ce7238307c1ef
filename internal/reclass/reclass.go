// Package reclass maps continuous pixel values onto class indices using
// the thresholds derived from a set of class breaks.
package reclass

import (
	"context"
	"fmt"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/natbreaks/internal/raster"
)

// NoDataClass is the class written for pixels without a measurement.
const NoDataClass = 0

// MaxClasses is the largest class index a byte raster can carry.
const MaxClasses = 255

// Options controls Reclassify.
type Options struct {
	// UpperInclusive puts a value equal to a threshold in the lower class
	// (numpy digitize right=True). The default puts it in the upper class.
	UpperInclusive bool
	// MaskNonPositive writes NoDataClass for values <= 0.
	MaskNonPositive bool
	// Workers bounds the number of goroutines; 0 means GOMAXPROCS.
	Workers int
}

// Bins returns the thresholds between classes: every break except the
// last, which is the maximum of the data.
func Bins(breaks []float64) []float64 {
	if len(breaks) == 0 {
		return nil
	}
	return append([]float64(nil), breaks[:len(breaks)-1]...)
}

// Digitize returns the index of the bin v falls into, following numpy's
// digitize for increasing bins: the number of bins <= v, or with
// upperInclusive, the number of bins < v.
func Digitize(v float64, bins []float64, upperInclusive bool) int {
	if upperInclusive {
		return sort.Search(len(bins), func(i int) bool { return bins[i] >= v })
	}
	return sort.Search(len(bins), func(i int) bool { return bins[i] > v })
}

// ClassOf returns the 1-based class of v, clipped to [1, k].
func ClassOf(v float64, bins []float64, k int, upperInclusive bool) uint8 {
	c := Digitize(v, bins, upperInclusive) + 1
	if c < 1 {
		c = 1
	}
	if c > k {
		c = k
	}
	return uint8(c)
}

// Reclassify assigns every pixel of band a class in [1, k] derived from
// breaks, or NoDataClass when the pixel is no-data or NaN. Rows are
// processed concurrently.
func Reclassify(ctx context.Context, band *raster.Band, breaks []float64, k int, opts Options) ([]uint8, error) {
	if err := band.Validate(); err != nil {
		return nil, err
	}
	if k < 1 || k > MaxClasses {
		return nil, fmt.Errorf("class count must be between 1 and %d, got %d", MaxClasses, k)
	}
	if len(breaks) == 0 {
		return nil, fmt.Errorf("no breaks to classify with")
	}
	if !sort.Float64sAreSorted(breaks) {
		return nil, fmt.Errorf("breaks must be non-decreasing: %v", breaks)
	}

	bins := Bins(breaks)
	valid := band.ValidMask()
	out := make([]uint8, len(band.Data))

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	rowsPerChunk := (band.Height + workers*4 - 1) / (workers * 4)
	if rowsPerChunk < 1 {
		rowsPerChunk = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for y0 := 0; y0 < band.Height; y0 += rowsPerChunk {
		y1 := min(y0+rowsPerChunk, band.Height)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for i := y0 * band.Width; i < y1*band.Width; i++ {
				v := band.Data[i]
				if !valid[i] || (opts.MaskNonPositive && v <= 0) {
					out[i] = NoDataClass
					continue
				}
				out[i] = ClassOf(v, bins, k, opts.UpperInclusive)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Histogram counts pixels per class. Index 0 holds the no-data count.
func Histogram(classes []uint8, k int) []int {
	counts := make([]int, k+1)
	for _, c := range classes {
		if int(c) < len(counts) {
			counts[c]++
		}
	}
	return counts
}
