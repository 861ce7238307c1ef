package testutil

import (
	"encoding/binary"
	"strconv"
	"testing"

	"github.com/banshee-data/natbreaks/internal/fsutil"
	"github.com/banshee-data/natbreaks/internal/raster"
)

// Tag numbers used by FloatGeoTIFF.
const (
	tagImageWidth       = 256
	tagImageLength      = 257
	tagBitsPerSample    = 258
	tagCompression      = 259
	tagPhotometric      = 262
	tagStripOffsets     = 273
	tagRowsPerStrip     = 278
	tagStripByteCounts  = 279
	tagSampleFormat     = 339
	tagModelPixelScale  = 33550
	tagModelTiepoint    = 33922
	tagGeoKeyDirectory  = 34735
	tagGeoASCIIParams   = 34737
	tagGDALNoData       = 42113
	sampleFormatFloat   = 3
	compressionNone     = 1
	photometricMinBlack = 1
)

// FloatGeoTIFF encodes b as an uncompressed little-endian float32 GeoTIFF
// with one strip per row, carrying its no-data value and georeferencing.
func FloatGeoTIFF(b *raster.Band) []byte {
	noData := ""
	if b.NoData != nil {
		noData = strconv.FormatFloat(*b.NoData, 'g', -1, 64)
	}
	return FloatGeoTIFFWithNoData(b, noData)
}

// FloatGeoTIFFWithNoData is FloatGeoTIFF with the GDAL_NODATA text given
// verbatim, as GDAL would have printed it. b.NoData is ignored.
func FloatGeoTIFFWithNoData(b *raster.Band, noData string) []byte {
	le := binary.LittleEndian
	fields := []TIFFField{
		Long(tagImageWidth, uint32(b.Width)),
		Long(tagImageLength, uint32(b.Height)),
		Short(tagBitsPerSample, 32),
		Short(tagCompression, compressionNone),
		Short(tagPhotometric, photometricMinBlack),
		Long(tagRowsPerStrip, 1),
		Short(tagSampleFormat, sampleFormatFloat),
	}
	if noData != "" {
		fields = append(fields, ASCII(tagGDALNoData, noData))
	}
	if len(b.Geo.PixelScale) > 0 {
		fields = append(fields, Double(tagModelPixelScale, b.Geo.PixelScale...))
	}
	if len(b.Geo.Tiepoints) > 0 {
		fields = append(fields, Double(tagModelTiepoint, b.Geo.Tiepoints...))
	}
	if len(b.Geo.GeoKeys) > 0 {
		fields = append(fields, Short(tagGeoKeyDirectory, b.Geo.GeoKeys...))
	}
	if b.Geo.GeoASCII != "" {
		fields = append(fields, ASCII(tagGeoASCIIParams, b.Geo.GeoASCII))
	}

	strips := make([][]byte, b.Height)
	for y := 0; y < b.Height; y++ {
		strips[y] = Float32Bytes(le, b.Data[y*b.Width:(y+1)*b.Width]...)
	}
	return BuildTIFF(le, fields, strips, tagStripOffsets, tagStripByteCounts)
}

// WriteFloatGeoTIFF stores FloatGeoTIFF(b) at path in fsys.
func WriteFloatGeoTIFF(t testing.TB, fsys fsutil.FileSystem, path string, b *raster.Band) {
	t.Helper()
	if err := fsys.WriteFile(path, FloatGeoTIFF(b), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}
