// Package geotiff reads the first band of a GeoTIFF and writes single-band
// byte GeoTIFFs that carry the source raster's georeferencing.
package geotiff

import "errors"

// TIFF tags used by the decoder and encoder.
const (
	tagImageWidth      = 256
	tagImageLength     = 257
	tagBitsPerSample   = 258
	tagCompression     = 259
	tagPhotometric     = 262
	tagStripOffsets    = 273
	tagSamplesPerPixel = 277
	tagRowsPerStrip    = 278
	tagStripByteCounts = 279
	tagPlanarConfig    = 284
	tagPredictor       = 317
	tagTileWidth       = 322
	tagTileLength      = 323
	tagTileOffsets     = 324
	tagTileByteCounts  = 325
	tagSampleFormat    = 339

	tagModelPixelScale     = 33550
	tagModelTiepoint       = 33922
	tagModelTransformation = 34264
	tagGeoKeyDirectory     = 34735
	tagGeoDoubleParams     = 34736
	tagGeoASCIIParams      = 34737

	tagGDALMetadata = 42112
	tagGDALNoData   = 42113
)

// Field types.
const (
	dtByte      = 1
	dtASCII     = 2
	dtShort     = 3
	dtLong      = 4
	dtRational  = 5
	dtSByte     = 6
	dtUndefined = 7
	dtSShort    = 8
	dtSLong     = 9
	dtSRational = 10
	dtFloat     = 11
	dtDouble    = 12
	dtLong8     = 16
)

var lengths = map[uint16]uint32{
	dtByte:      1,
	dtASCII:     1,
	dtShort:     2,
	dtLong:      4,
	dtRational:  8,
	dtSByte:     1,
	dtUndefined: 1,
	dtSShort:    2,
	dtSLong:     4,
	dtSRational: 8,
	dtFloat:     4,
	dtDouble:    8,
	dtLong8:     8,
}

// Compression schemes.
const (
	cNone       = 1
	cLZW        = 5
	cDeflate    = 8
	cPackBits   = 32773
	cDeflateOld = 32946
)

// Predictors.
const (
	prNone          = 1
	prHorizontal    = 2
	prFloatingPoint = 3
)

// Sample formats.
const (
	sfUint  = 1
	sfInt   = 2
	sfFloat = 3
)

const (
	pcChunky = 1
	pcPlanar = 2
)

const photometricMinIsBlack = 1

const (
	leHeader = "II\x2A\x00"
	beHeader = "MM\x00\x2A"

	bigTIFFMagic = 43
)

// maxPixels bounds the decoded raster size.
const maxPixels = 1 << 30

// ErrUnsupported is returned for well-formed files that use a layout
// or encoding this package does not handle.
var ErrUnsupported = errors.New("geotiff: unsupported feature")

// A FormatError reports that the input is not a valid TIFF.
type FormatError string

func (e FormatError) Error() string { return "geotiff: invalid format: " + string(e) }

// An UnsupportedError reports which unsupported feature was encountered.
type UnsupportedError string

func (e UnsupportedError) Error() string { return "geotiff: unsupported feature: " + string(e) }

// Is lets errors.Is(err, ErrUnsupported) match every UnsupportedError.
func (e UnsupportedError) Is(target error) bool { return target == ErrUnsupported }
