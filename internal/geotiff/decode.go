package geotiff

import (
	"bytes"
	"encoding/binary"
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/banshee-data/natbreaks/internal/fsutil"
	"github.com/banshee-data/natbreaks/internal/raster"
)

// ReadFile decodes band 1 of the GeoTIFF at path.
func ReadFile(fsys fsutil.FileSystem, path string) (*raster.Band, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read raster: %w", err)
	}
	band, err := Decode(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return band, nil
}

// layout describes how band 1 is stored.
type layout struct {
	width, height int
	spp           int
	bps           int
	format        int
	compression   int
	predictor     int
	planar        int

	blockW, blockH int
	tiled          bool
	offsets        []uint64
	counts         []uint64
}

// Decode reads the first image of a TIFF and returns its first band.
func Decode(r io.ReaderAt, size int64) (*raster.Band, error) {
	d := &decoder{r: r, size: size}
	off, err := d.readHeader()
	if err != nil {
		return nil, err
	}
	if err := d.readIFD(off); err != nil {
		return nil, err
	}

	l, err := d.layout()
	if err != nil {
		return nil, err
	}
	sample, sampleType, err := sampleReader(d.order, l.format, l.bps)
	if err != nil {
		return nil, err
	}

	band := raster.NewBand(l.width, l.height)
	band.SampleType = sampleType
	if nd, ok := parseNoData(d.ascii(tagGDALNoData), l.format == sfFloat && l.bps == 32); ok {
		band.SetNoData(nd)
	}
	band.Geo = raster.GeoRef{
		PixelScale:     d.floats(tagModelPixelScale),
		Tiepoints:      d.floats(tagModelTiepoint),
		Transformation: d.floats(tagModelTransformation),
		GeoKeys:        d.shorts(tagGeoKeyDirectory),
		GeoDoubles:     d.floats(tagGeoDoubleParams),
		GeoASCII:       d.ascii(tagGeoASCIIParams),
	}
	band.Metadata = parseMetadata(d.ascii(tagGDALMetadata))

	if err := d.readBlocks(l, band, sample); err != nil {
		return nil, err
	}
	return band, nil
}

func (d *decoder) layout() (*layout, error) {
	var l layout
	width, err := d.firstUint(tagImageWidth, 0)
	if err != nil {
		return nil, err
	}
	height, err := d.firstUint(tagImageLength, 0)
	if err != nil {
		return nil, err
	}
	if width == 0 || height == 0 {
		return nil, FormatError("missing image dimensions")
	}
	if width*height > maxPixels {
		return nil, UnsupportedError(fmt.Sprintf("image too large (%dx%d)", width, height))
	}
	l.width, l.height = int(width), int(height)

	spp, err := d.firstUint(tagSamplesPerPixel, 1)
	if err != nil {
		return nil, err
	}
	if spp == 0 {
		return nil, FormatError("zero samples per pixel")
	}
	l.spp = int(spp)

	bps, err := d.uints(tagBitsPerSample)
	if err != nil {
		return nil, err
	}
	if len(bps) == 0 {
		bps = []uint64{1}
	}
	for _, b := range bps[1:] {
		if b != bps[0] {
			return nil, UnsupportedError("mixed bits per sample")
		}
	}
	l.bps = int(bps[0])
	if l.bps != 8 && l.bps != 16 && l.bps != 32 && l.bps != 64 {
		return nil, UnsupportedError(fmt.Sprintf("%d bits per sample", l.bps))
	}

	format, err := d.firstUint(tagSampleFormat, sfUint)
	if err != nil {
		return nil, err
	}
	l.format = int(format)

	for _, f := range []struct {
		tag uint16
		def uint64
		dst *int
	}{
		{tagCompression, cNone, &l.compression},
		{tagPredictor, prNone, &l.predictor},
		{tagPlanarConfig, pcChunky, &l.planar},
	} {
		v, err := d.firstUint(f.tag, f.def)
		if err != nil {
			return nil, err
		}
		*f.dst = int(v)
	}
	if l.planar != pcChunky && l.planar != pcPlanar {
		return nil, FormatError("bad planar configuration")
	}

	if d.has(tagTileWidth) {
		l.tiled = true
		tw, err := d.firstUint(tagTileWidth, 0)
		if err != nil {
			return nil, err
		}
		th, err := d.firstUint(tagTileLength, 0)
		if err != nil {
			return nil, err
		}
		if tw == 0 || th == 0 {
			return nil, FormatError("zero tile size")
		}
		if tw*th > maxPixels {
			return nil, UnsupportedError(fmt.Sprintf("tile too large (%dx%d)", tw, th))
		}
		l.blockW, l.blockH = int(tw), int(th)
		if l.offsets, err = d.uints(tagTileOffsets); err != nil {
			return nil, err
		}
		if l.counts, err = d.uints(tagTileByteCounts); err != nil {
			return nil, err
		}
	} else {
		rps, err := d.firstUint(tagRowsPerStrip, height)
		if err != nil {
			return nil, err
		}
		if rps == 0 || rps > height {
			rps = height
		}
		l.blockW, l.blockH = l.width, int(rps)
		if l.offsets, err = d.uints(tagStripOffsets); err != nil {
			return nil, err
		}
		if l.counts, err = d.uints(tagStripByteCounts); err != nil {
			return nil, err
		}
	}

	perPlane := l.blocksAcross() * l.blocksDown()
	if len(l.offsets) < perPlane {
		return nil, FormatError("too few block offsets")
	}
	if len(l.counts) < perPlane {
		if l.compression != cNone {
			return nil, FormatError("too few block byte counts")
		}
		l.counts = nil
	}
	return &l, nil
}

func (l *layout) blocksAcross() int { return (l.width + l.blockW - 1) / l.blockW }
func (l *layout) blocksDown() int   { return (l.height + l.blockH - 1) / l.blockH }

// pixelStride is the number of samples per pixel inside a block.
func (l *layout) pixelStride() int {
	if l.planar == pcPlanar {
		return 1
	}
	return l.spp
}

func (d *decoder) readBlocks(l *layout, band *raster.Band, sample func([]byte) float64) error {
	across := l.blocksAcross()
	perPlane := across * l.blocksDown()
	bytesPerSample := l.bps / 8
	stride := l.pixelStride()
	rowBytes := l.blockW * stride * bytesPerSample

	fill := 0.0
	if band.NoData != nil {
		fill = *band.NoData
	}

	for bi := 0; bi < perPlane; bi++ {
		x0 := (bi % across) * l.blockW
		y0 := (bi / across) * l.blockH
		rows := l.blockH
		if !l.tiled && y0+rows > l.height {
			rows = l.height - y0
		}
		expected := rowBytes * rows

		var count uint64
		if l.counts != nil {
			count = l.counts[bi]
		} else {
			count = uint64(expected)
		}
		if count == 0 {
			// Sparse block: GDAL leaves these as no-data.
			fillBlock(band, x0, y0, l.blockW, rows, fill)
			continue
		}
		if l.offsets[bi]+count > uint64(d.size) {
			return FormatError("block extends past end of file")
		}
		raw := make([]byte, count)
		if err := d.readAt(raw, int64(l.offsets[bi])); err != nil {
			return FormatError("cannot read block")
		}

		buf, err := decompress(raw, l.compression, expected)
		if err != nil {
			return err
		}
		if len(buf) < expected {
			return FormatError("short block data")
		}
		buf = buf[:expected]

		switch l.predictor {
		case prNone:
		case prHorizontal:
			if err := undoHorizontal(buf, d.order, rowBytes, stride, l.bps); err != nil {
				return err
			}
		case prFloatingPoint:
			if l.format != sfFloat {
				return FormatError("floating point predictor on integer samples")
			}
			undoFloatingPoint(buf, d.order, rowBytes, stride, bytesPerSample)
		default:
			return UnsupportedError(fmt.Sprintf("predictor %d", l.predictor))
		}

		pixelBytes := stride * bytesPerSample
		for r := 0; r < rows; r++ {
			y := y0 + r
			if y >= l.height {
				break
			}
			line := buf[r*rowBytes : (r+1)*rowBytes]
			for c := 0; c < l.blockW; c++ {
				x := x0 + c
				if x >= l.width {
					break
				}
				band.Data[y*l.width+x] = sample(line[c*pixelBytes:])
			}
		}
	}
	return nil
}

func fillBlock(band *raster.Band, x0, y0, w, h int, v float64) {
	for y := y0; y < y0+h && y < band.Height; y++ {
		for x := x0; x < x0+w && x < band.Width; x++ {
			band.Data[y*band.Width+x] = v
		}
	}
}

// sampleReader returns a decoder for one sample and the sample type's name.
func sampleReader(order binary.ByteOrder, format, bps int) (func([]byte) float64, string, error) {
	switch {
	case format == sfUint && bps == 8:
		return func(b []byte) float64 { return float64(b[0]) }, "uint8", nil
	case format == sfUint && bps == 16:
		return func(b []byte) float64 { return float64(order.Uint16(b)) }, "uint16", nil
	case format == sfUint && bps == 32:
		return func(b []byte) float64 { return float64(order.Uint32(b)) }, "uint32", nil
	case format == sfUint && bps == 64:
		return func(b []byte) float64 { return float64(order.Uint64(b)) }, "uint64", nil
	case format == sfInt && bps == 8:
		return func(b []byte) float64 { return float64(int8(b[0])) }, "int8", nil
	case format == sfInt && bps == 16:
		return func(b []byte) float64 { return float64(int16(order.Uint16(b))) }, "int16", nil
	case format == sfInt && bps == 32:
		return func(b []byte) float64 { return float64(int32(order.Uint32(b))) }, "int32", nil
	case format == sfInt && bps == 64:
		return func(b []byte) float64 { return float64(int64(order.Uint64(b))) }, "int64", nil
	case format == sfFloat && bps == 32:
		return func(b []byte) float64 { return float64(math.Float32frombits(order.Uint32(b))) }, "float32", nil
	case format == sfFloat && bps == 64:
		return func(b []byte) float64 { return math.Float64frombits(order.Uint64(b)) }, "float64", nil
	}
	return nil, "", UnsupportedError(fmt.Sprintf("sample format %d with %d bits", format, bps))
}

// parseNoData interprets the GDAL_NODATA tag, which GDAL stores as text.
// For float32 bands the value is narrowed the way GDAL does it, so that a
// printed sentinel such as -3.40282346639e+38 compares equal to the
// decoded samples.
func parseNoData(s string, float32Band bool) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if float32Band {
		v = float64(float32(snapFloat32Max(v)))
	}
	return v, true
}

// snapFloat32Max maps values within rounding distance of ±MaxFloat32 onto
// it exactly.
func snapFloat32Max(v float64) float64 {
	const tol = 1e-10 * math.MaxFloat32
	switch {
	case math.Abs(v-math.MaxFloat32) < tol:
		return math.MaxFloat32
	case math.Abs(v+math.MaxFloat32) < tol:
		return -math.MaxFloat32
	}
	return v
}

type gdalMetadata struct {
	Items []struct {
		Name   string `xml:"name,attr"`
		Sample string `xml:"sample,attr"`
		Value  string `xml:",chardata"`
	} `xml:"Item"`
}

// parseMetadata extracts dataset-level items from a GDAL_METADATA document.
func parseMetadata(s string) map[string]string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var md gdalMetadata
	if err := xml.Unmarshal([]byte(s), &md); err != nil {
		return nil
	}
	out := make(map[string]string, len(md.Items))
	for _, it := range md.Items {
		if it.Sample != "" {
			continue
		}
		out[it.Name] = it.Value
	}
	return out
}
