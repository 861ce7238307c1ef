// Package testutil provides shared test utilities and fixtures.
//
// The fixtures build small rasters and hand-assembled TIFF files so that
// decoder paths GDAL would normally exercise can be tested without it.
package testutil

import (
	"testing"

	"github.com/banshee-data/natbreaks/internal/raster"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t testing.TB, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// NoData is the no-data value used by the fixture bands.
const NoData = -9999.0

// NewBand returns a band of the given size holding values row by row.
func NewBand(width, height int, values []float64, noData *float64) *raster.Band {
	b := raster.NewBand(width, height)
	copy(b.Data, values)
	if noData != nil {
		b.SetNoData(*noData)
	}
	b.SampleType = "float32"
	return b
}

// ClusterBand is a 4x3 float band with three obvious clusters around 2, 11
// and 21, one no-data pixel, one NaN and one zero.
func ClusterBand() *raster.Band {
	nd := NoData
	return NewBand(4, 3, []float64{
		1, 2, 3, NoData,
		10, 11, 12, 0,
		20, 21, 22, nan(),
	}, &nd)
}

// UTMGeoRef is a north-up 30 m grid in WGS 84 / UTM zone 33N.
func UTMGeoRef() raster.GeoRef {
	return raster.GeoRef{
		PixelScale: []float64{30, 30, 0},
		Tiepoints:  []float64{0, 0, 0, 500000, 4649776, 0},
		GeoKeys: []uint16{
			1, 1, 0, 3,
			1024, 0, 1, 1, // GTModelTypeGeoKey: projected
			1025, 0, 1, 1, // GTRasterTypeGeoKey: PixelIsArea
			3072, 0, 1, 32633,
		},
		GeoASCII: "WGS 84 / UTM zone 33N|",
	}
}
