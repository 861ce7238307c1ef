// Package jenks computes Jenks natural breaks: the class boundaries of a
// one-dimensional data set that minimise the variance within each class.
//
// The implementation follows the Fisher/Jenks dynamic programme as used by
// QGIS, including its sampling of large inputs, and returns the upper
// bound of each class.
package jenks

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// DefaultMaxSampleSize is the input size above which values are sampled.
const DefaultMaxSampleSize = 3000

// ErrNoValues is returned when there is nothing to classify.
var ErrNoValues = errors.New("jenks: no values to classify")

// Options tunes the classification.
type Options struct {
	// MaxSampleSize caps the number of values fed to the O(n²k) programme.
	// Larger inputs are reduced to MaxSampleSize evenly spaced order
	// statistics.
	MaxSampleSize int
}

// DefaultOptions returns the QGIS defaults.
func DefaultOptions() Options {
	return Options{MaxSampleSize: DefaultMaxSampleSize}
}

func (o Options) maxSampleSize() int {
	if o.MaxSampleSize < 3 {
		return DefaultMaxSampleSize
	}
	return o.MaxSampleSize
}

// Classification is the outcome of Classify.
type Classification struct {
	// Breaks are the class upper bounds in non-decreasing order; the last
	// one is the maximum of the input.
	Breaks []float64
	// SampleSize is the number of values the breaks were computed from.
	SampleSize int
	Sampled    bool
	Min, Max   float64
}

// Breaks returns the upper bounds of k natural-breaks classes.
func Breaks(values []float64, k int, opts Options) ([]float64, error) {
	c, err := Classify(values, k, opts)
	if err != nil {
		return nil, err
	}
	return c.Breaks, nil
}

// Classify computes natural breaks for values. Fewer than k breaks are
// returned when values has k or fewer distinct entries.
func Classify(values []float64, k int, opts Options) (*Classification, error) {
	if k < 1 {
		return nil, fmt.Errorf("jenks: class count must be positive, got %d", k)
	}
	if len(values) == 0 {
		return nil, ErrNoValues
	}
	if floats.HasNaN(values) {
		return nil, fmt.Errorf("jenks: values contain NaN")
	}

	lo, hi := floats.Min(values), floats.Max(values)
	c := &Classification{SampleSize: len(values), Min: lo, Max: hi}
	if k == 1 {
		c.Breaks = []float64{hi}
		return c, nil
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	if distinct := uniqueSorted(sorted); len(distinct) <= k {
		c.Breaks = distinct
		return c, nil
	}

	sample := sorted
	if len(values) > opts.maxSampleSize() {
		sample = strideSample(sorted, opts.maxSampleSize())
		sort.Float64s(sample)
		c.Sampled = true
		c.SampleSize = len(sample)
	}

	breaks := fisherJenks(sample, k)
	breaks[k-1] = hi
	sort.Float64s(breaks)
	c.Breaks = breaks
	return c, nil
}

// strideSample keeps the minimum and maximum of sorted plus maxSize-2
// interior values taken at an even stride through the sorted order, so the
// sample depends only on the data.
func strideSample(sorted []float64, maxSize int) []float64 {
	n := len(sorted)
	sample := make([]float64, maxSize)
	sample[0], sample[1] = sorted[0], sorted[n-1]
	j := -1
	for i := 1; i < n-2; i++ {
		if i*(maxSize-2)/(n-2) > j {
			j++
			sample[j+2] = sorted[i]
		}
	}
	return sample
}

// fisherJenks runs the dynamic programme over sorted data and returns k
// breaks. Row l, column j of the variance matrix holds the smallest total
// within-class sum of squares for the first l values split into j classes.
func fisherJenks(data []float64, k int) []float64 {
	n := len(data)
	lower := make([][]int, n+1)
	for i := range lower {
		lower[i] = make([]int, k+1)
	}
	variance := mat.NewDense(n+1, k+1, nil)
	raw := variance.RawMatrix()
	vd, stride := raw.Data, raw.Stride

	for j := 1; j <= k; j++ {
		lower[0][j] = 1
		lower[1][j] = 1
		for i := 2; i <= n; i++ {
			vd[i*stride+j] = math.MaxFloat64
		}
	}

	for l := 2; l <= n; l++ {
		var s1, s2, w, v float64
		row := vd[l*stride : (l+1)*stride]
		for m := 1; m <= l; m++ {
			i3 := l - m + 1
			val := data[i3-1]
			s1 += val
			s2 += val * val
			w++
			v = s2 - s1*s1/w
			i4 := i3 - 1
			if i4 == 0 {
				continue
			}
			prev := vd[i4*stride : (i4+1)*stride]
			for j := 2; j <= k; j++ {
				if cand := v + prev[j-1]; row[j] >= cand {
					lower[l][j] = i3
					row[j] = cand
				}
			}
		}
		lower[l][1] = 1
		row[1] = v
	}

	breaks := make([]float64, k)
	breaks[k-1] = data[n-1]
	idx := n
	for j := k; j >= 2; j-- {
		id := lower[idx][j] - 2
		if id < 0 {
			id = 0
		}
		breaks[j-2] = data[id]
		idx = lower[idx][j] - 1
		if idx < 1 {
			idx = 1
		}
	}
	return breaks
}

func uniqueSorted(sorted []float64) []float64 {
	out := make([]float64, 0, 8)
	for i, v := range sorted {
		if i == 0 || v != sorted[i-1] {
			out = append(out, v)
		}
	}
	return out
}
