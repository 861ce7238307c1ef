// Package raster holds the in-memory single-band grid that the
// classification pipeline reads, filters and reclassifies.
package raster

import (
	"fmt"
	"math"
)

// Band is one raster band decoded to float64 in row-major order.
type Band struct {
	Width  int
	Height int
	Data   []float64

	// NoData is the band's no-data sentinel, nil when the source declares none.
	NoData *float64

	// SampleType names the on-disk sample type (e.g. "float32", "uint16").
	SampleType string

	Geo GeoRef

	// Metadata holds dataset-level GDAL metadata items, if any.
	Metadata map[string]string
}

// NewBand allocates a zero-filled band of the given size.
func NewBand(width, height int) *Band {
	return &Band{
		Width:  width,
		Height: height,
		Data:   make([]float64, width*height),
	}
}

// FilterOptions controls which pixel values take part in the break computation.
type FilterOptions struct {
	// ExcludeNonPositive drops values <= 0 in addition to no-data and NaN.
	ExcludeNonPositive bool
}

// DefaultFilterOptions drops zeros and negatives along with no-data.
func DefaultFilterOptions() FilterOptions {
	return FilterOptions{ExcludeNonPositive: true}
}

// Validate checks that the band's dimensions agree with its data.
func (b *Band) Validate() error {
	if b == nil {
		return fmt.Errorf("band is nil")
	}
	if b.Width <= 0 || b.Height <= 0 {
		return fmt.Errorf("invalid band dimensions %dx%d", b.Width, b.Height)
	}
	if len(b.Data) != b.Width*b.Height {
		return fmt.Errorf("band data size mismatch: expected %d, got %d", b.Width*b.Height, len(b.Data))
	}
	return nil
}

// SetNoData records v as the band's no-data sentinel.
func (b *Band) SetNoData(v float64) {
	b.NoData = &v
}

// At returns the value at column x, row y.
func (b *Band) At(x, y int) float64 {
	return b.Data[y*b.Width+x]
}

// Set stores v at column x, row y.
func (b *Band) Set(x, y int, v float64) {
	b.Data[y*b.Width+x] = v
}

// IsNoData reports whether v is NaN or equal to the band's no-data value.
func (b *Band) IsNoData(v float64) bool {
	if math.IsNaN(v) {
		return true
	}
	return b.NoData != nil && v == *b.NoData
}

// ValidValues returns the pixel values eligible for classification.
func (b *Band) ValidValues(opts FilterOptions) []float64 {
	values := make([]float64, 0, len(b.Data))
	for _, v := range b.Data {
		if b.IsNoData(v) {
			continue
		}
		if opts.ExcludeNonPositive && v <= 0 {
			continue
		}
		values = append(values, v)
	}
	return values
}

// ValidMask marks every pixel that carries a measurement. Unlike
// ValidValues it keeps zeros and negatives: those still receive a class.
func (b *Band) ValidMask() []bool {
	mask := make([]bool, len(b.Data))
	for i, v := range b.Data {
		mask[i] = !b.IsNoData(v)
	}
	return mask
}

// CountNoData returns the number of pixels flagged as no-data or NaN.
func (b *Band) CountNoData() int {
	n := 0
	for _, v := range b.Data {
		if b.IsNoData(v) {
			n++
		}
	}
	return n
}
