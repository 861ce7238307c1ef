package geotiff

import (
	"bytes"
	"encoding/binary"
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/klauspost/compress/zlib"

	"github.com/banshee-data/natbreaks/internal/raster"
)

// Compression selects how the output strips are compressed.
type Compression string

const (
	CompressionLZW     Compression = "lzw"
	CompressionDeflate Compression = "deflate"
	CompressionNone    Compression = "none"
)

// ParseCompression accepts the names used in configuration files.
func ParseCompression(s string) (Compression, error) {
	switch c := Compression(strings.ToLower(strings.TrimSpace(s))); c {
	case CompressionLZW, CompressionDeflate, CompressionNone:
		return c, nil
	case "":
		return CompressionLZW, nil
	}
	return "", fmt.Errorf("unknown compression %q (want lzw, deflate or none)", s)
}

func (c Compression) code() uint16 {
	switch c {
	case CompressionDeflate:
		return cDeflate
	case CompressionNone:
		return cNone
	}
	return cLZW
}

// stripTarget is the approximate uncompressed size of one output strip.
const stripTarget = 8192

// ClassImage is a single-band byte raster ready to be written.
type ClassImage struct {
	Width  int
	Height int
	Pix    []uint8
	Geo    raster.GeoRef
}

// EncodeOptions controls Encode.
type EncodeOptions struct {
	Compression Compression
	// NoData is written as the GDAL_NODATA tag.
	NoData uint8
	// Metadata items are written to the GDAL_METADATA tag.
	Metadata map[string]string
}

type field struct {
	tag   uint16
	typ   uint16
	count uint32
	data  []byte
}

// Encode writes img as a little-endian GeoTIFF.
func Encode(w io.Writer, img *ClassImage, opts EncodeOptions) error {
	if img.Width <= 0 || img.Height <= 0 {
		return fmt.Errorf("invalid image dimensions %dx%d", img.Width, img.Height)
	}
	if len(img.Pix) != img.Width*img.Height {
		return fmt.Errorf("pixel buffer size mismatch: expected %d, got %d", img.Width*img.Height, len(img.Pix))
	}
	if opts.Compression == "" {
		opts.Compression = CompressionLZW
	}

	rps := stripTarget / img.Width
	if rps < 1 {
		rps = 1
	}
	if rps > img.Height {
		rps = img.Height
	}

	var strips [][]byte
	for y := 0; y < img.Height; y += rps {
		end := y + rps
		if end > img.Height {
			end = img.Height
		}
		s, err := compressStrip(img.Pix[y*img.Width:end*img.Width], opts.Compression)
		if err != nil {
			return err
		}
		strips = append(strips, s)
	}

	le := binary.LittleEndian
	offsets := make([]uint32, len(strips))
	counts := make([]uint32, len(strips))
	pos := uint64(8)
	for i, s := range strips {
		offsets[i] = uint32(pos)
		counts[i] = uint32(len(s))
		pos += uint64(len(s))
	}
	pos += pos & 1

	fields := []field{
		longField(tagImageWidth, uint32(img.Width)),
		longField(tagImageLength, uint32(img.Height)),
		shortField(tagBitsPerSample, 8),
		shortField(tagCompression, opts.Compression.code()),
		shortField(tagPhotometric, photometricMinIsBlack),
		longField(tagStripOffsets, offsets...),
		shortField(tagSamplesPerPixel, 1),
		longField(tagRowsPerStrip, uint32(rps)),
		longField(tagStripByteCounts, counts...),
		shortField(tagPlanarConfig, pcChunky),
		shortField(tagSampleFormat, sfUint),
		asciiField(tagGDALNoData, fmt.Sprintf("%d", opts.NoData)),
	}
	fields = append(fields, geoFields(img.Geo)...)
	if len(opts.Metadata) > 0 {
		fields = append(fields, asciiField(tagGDALMetadata, metadataXML(opts.Metadata)))
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].tag < fields[j].tag })

	ifdOffset := pos
	ifdSize := uint64(2 + 12*len(fields) + 4)
	extra := ifdOffset + ifdSize
	for _, f := range fields {
		if len(f.data) > 4 {
			extra += uint64(len(f.data)) + uint64(len(f.data)&1)
		}
	}
	if extra > math.MaxUint32 {
		return UnsupportedError("output larger than 4 GiB")
	}

	var buf bytes.Buffer
	buf.Grow(int(extra))
	buf.WriteString(leHeader)
	binary.Write(&buf, le, uint32(ifdOffset))
	for _, s := range strips {
		buf.Write(s)
	}
	for uint64(buf.Len()) < ifdOffset {
		buf.WriteByte(0)
	}

	// IFD, with out-of-line values placed directly after it.
	dataPos := ifdOffset + ifdSize
	var tail bytes.Buffer
	binary.Write(&buf, le, uint16(len(fields)))
	for _, f := range fields {
		binary.Write(&buf, le, f.tag)
		binary.Write(&buf, le, f.typ)
		binary.Write(&buf, le, f.count)
		if len(f.data) <= 4 {
			var inline [4]byte
			copy(inline[:], f.data)
			buf.Write(inline[:])
			continue
		}
		binary.Write(&buf, le, uint32(dataPos))
		tail.Write(f.data)
		if len(f.data)&1 == 1 {
			tail.WriteByte(0)
		}
		dataPos += uint64(len(f.data)) + uint64(len(f.data)&1)
	}
	binary.Write(&buf, le, uint32(0))
	buf.Write(tail.Bytes())

	_, err := w.Write(buf.Bytes())
	return err
}

func compressStrip(pix []uint8, c Compression) ([]byte, error) {
	switch c {
	case CompressionNone:
		return append([]byte(nil), pix...), nil
	case CompressionDeflate:
		var b bytes.Buffer
		zw, err := zlib.NewWriterLevel(&b, zlib.DefaultCompression)
		if err != nil {
			return nil, err
		}
		if _, err := zw.Write(pix); err != nil {
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
		return b.Bytes(), nil
	case CompressionLZW:
		return compressLZW(pix), nil
	}
	return nil, fmt.Errorf("unknown compression %q", c)
}

func geoFields(g raster.GeoRef) []field {
	var out []field
	if len(g.PixelScale) > 0 {
		out = append(out, doubleField(tagModelPixelScale, g.PixelScale))
	}
	if len(g.Tiepoints) > 0 {
		out = append(out, doubleField(tagModelTiepoint, g.Tiepoints))
	}
	if len(g.Transformation) > 0 {
		out = append(out, doubleField(tagModelTransformation, g.Transformation))
	}
	if len(g.GeoKeys) > 0 {
		out = append(out, shortField(tagGeoKeyDirectory, g.GeoKeys...))
	}
	if len(g.GeoDoubles) > 0 {
		out = append(out, doubleField(tagGeoDoubleParams, g.GeoDoubles))
	}
	if g.GeoASCII != "" {
		out = append(out, asciiField(tagGeoASCIIParams, g.GeoASCII))
	}
	return out
}

func shortField(tag uint16, v ...uint16) field {
	b := make([]byte, 2*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint16(b[2*i:], x)
	}
	return field{tag: tag, typ: dtShort, count: uint32(len(v)), data: b}
}

func longField(tag uint16, v ...uint32) field {
	b := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(b[4*i:], x)
	}
	return field{tag: tag, typ: dtLong, count: uint32(len(v)), data: b}
}

func doubleField(tag uint16, v []float64) field {
	b := make([]byte, 8*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint64(b[8*i:], math.Float64bits(x))
	}
	return field{tag: tag, typ: dtDouble, count: uint32(len(v)), data: b}
}

func asciiField(tag uint16, s string) field {
	b := append([]byte(s), 0)
	return field{tag: tag, typ: dtASCII, count: uint32(len(b)), data: b}
}

func metadataXML(items map[string]string) string {
	keys := make([]string, 0, len(items))
	for k := range items {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("<GDALMetadata>\n")
	for _, k := range keys {
		b.WriteString(`  <Item name="`)
		xml.EscapeText(&b, []byte(k))
		b.WriteString(`">`)
		xml.EscapeText(&b, []byte(items[k]))
		b.WriteString("</Item>\n")
	}
	b.WriteString("</GDALMetadata>")
	return b.String()
}
