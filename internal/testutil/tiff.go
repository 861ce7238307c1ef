package testutil

import (
	"bytes"
	"encoding/binary"
	"math"
	"sort"
)

// TIFF field types used by the fixture builder.
const (
	TypeASCII  = 2
	TypeShort  = 3
	TypeLong   = 4
	TypeDouble = 12
)

// TIFFField is one IFD entry. Values must be []uint16, []uint32,
// []float64 or string, matching Type.
type TIFFField struct {
	Tag    uint16
	Type   uint16
	Values any
}

// Short builds a SHORT field.
func Short(tag uint16, v ...uint16) TIFFField {
	return TIFFField{Tag: tag, Type: TypeShort, Values: v}
}

// Long builds a LONG field.
func Long(tag uint16, v ...uint32) TIFFField {
	return TIFFField{Tag: tag, Type: TypeLong, Values: v}
}

// Double builds a DOUBLE field.
func Double(tag uint16, v ...float64) TIFFField {
	return TIFFField{Tag: tag, Type: TypeDouble, Values: v}
}

// ASCII builds a NUL-terminated ASCII field.
func ASCII(tag uint16, s string) TIFFField {
	return TIFFField{Tag: tag, Type: TypeASCII, Values: s}
}

// BuildTIFF assembles a classic TIFF in the given byte order. The blocks are
// written after the header, and their offsets and byte counts are stored
// under offsetsTag and countsTag. A nil block is recorded with offset and
// count zero, the way GDAL writes sparse files.
func BuildTIFF(order binary.ByteOrder, fields []TIFFField, blocks [][]byte, offsetsTag, countsTag uint16) []byte {
	var buf bytes.Buffer
	if order == binary.BigEndian {
		buf.WriteString("MM\x00\x2A")
	} else {
		buf.WriteString("II\x2A\x00")
	}
	buf.Write(make([]byte, 4))

	offsets := make([]uint32, len(blocks))
	counts := make([]uint32, len(blocks))
	for i, b := range blocks {
		if b == nil {
			continue
		}
		offsets[i] = uint32(buf.Len())
		counts[i] = uint32(len(b))
		buf.Write(b)
	}
	if buf.Len()%2 == 1 {
		buf.WriteByte(0)
	}

	all := append([]TIFFField(nil), fields...)
	all = append(all, Long(offsetsTag, offsets...), Long(countsTag, counts...))
	sort.Slice(all, func(i, j int) bool { return all[i].Tag < all[j].Tag })

	ifdOffset := uint32(buf.Len())
	order.PutUint32(buf.Bytes()[4:8], ifdOffset)

	dataPos := ifdOffset + uint32(2+12*len(all)+4)
	var tail bytes.Buffer
	put16 := func(v uint16) { b := make([]byte, 2); order.PutUint16(b, v); buf.Write(b) }
	put32 := func(v uint32) { b := make([]byte, 4); order.PutUint32(b, v); buf.Write(b) }

	put16(uint16(len(all)))
	for _, f := range all {
		data, count := encodeValues(order, f)
		put16(f.Tag)
		put16(f.Type)
		put32(count)
		if len(data) <= 4 {
			var inline [4]byte
			copy(inline[:], data)
			buf.Write(inline[:])
			continue
		}
		put32(dataPos)
		tail.Write(data)
		if len(data)%2 == 1 {
			tail.WriteByte(0)
		}
		dataPos += uint32(len(data) + len(data)%2)
	}
	put32(0)
	buf.Write(tail.Bytes())
	return buf.Bytes()
}

func encodeValues(order binary.ByteOrder, f TIFFField) ([]byte, uint32) {
	switch v := f.Values.(type) {
	case []uint16:
		b := make([]byte, 2*len(v))
		for i, x := range v {
			order.PutUint16(b[2*i:], x)
		}
		return b, uint32(len(v))
	case []uint32:
		b := make([]byte, 4*len(v))
		for i, x := range v {
			order.PutUint32(b[4*i:], x)
		}
		return b, uint32(len(v))
	case []float64:
		b := make([]byte, 8*len(v))
		for i, x := range v {
			order.PutUint64(b[8*i:], math.Float64bits(x))
		}
		return b, uint32(len(v))
	case string:
		b := append([]byte(v), 0)
		return b, uint32(len(b))
	}
	panic("testutil: unsupported TIFF field values")
}

// Float32Bytes encodes values as float32 samples in order.
func Float32Bytes(order binary.ByteOrder, values ...float64) []byte {
	b := make([]byte, 4*len(values))
	for i, v := range values {
		order.PutUint32(b[4*i:], math.Float32bits(float32(v)))
	}
	return b
}

// Uint16Bytes encodes values as uint16 samples in order.
func Uint16Bytes(order binary.ByteOrder, values ...uint16) []byte {
	b := make([]byte, 2*len(values))
	for i, v := range values {
		order.PutUint16(b[2*i:], v)
	}
	return b
}

// PredictFloatingPoint applies TIFF predictor 3 to rows of samples encoded
// in order, each row rowBytes long, with stride samples per pixel.
func PredictFloatingPoint(buf []byte, order binary.ByteOrder, rowBytes, stride, bytesPerSample int) []byte {
	out := make([]byte, len(buf))
	wc := rowBytes / bytesPerSample
	for off := 0; off+rowBytes <= len(buf); off += rowBytes {
		src := buf[off : off+rowBytes]
		row := out[off : off+rowBytes]
		for c := 0; c < wc; c++ {
			for b := 0; b < bytesPerSample; b++ {
				// Byte planes are stored most significant first.
				idx := c*bytesPerSample + b
				if order == binary.LittleEndian {
					idx = c*bytesPerSample + bytesPerSample - 1 - b
				}
				row[b*wc+c] = src[idx]
			}
		}
		for i := len(row) - 1; i >= stride; i-- {
			row[i] -= row[i-stride]
		}
	}
	return out
}

// PredictHorizontal16 applies TIFF predictor 2 to rows of 16-bit samples.
func PredictHorizontal16(buf []byte, order binary.ByteOrder, rowBytes, stride int) []byte {
	out := append([]byte(nil), buf...)
	for off := 0; off+rowBytes <= len(out); off += rowBytes {
		row := out[off : off+rowBytes]
		n := len(row) / 2
		for i := n - 1; i >= stride; i-- {
			v := order.Uint16(row[2*i:]) - order.Uint16(row[2*(i-stride):])
			order.PutUint16(row[2*i:], v)
		}
	}
	return out
}

// PackBits compresses src with the PackBits run-length scheme.
func PackBits(src []byte) []byte {
	var out []byte
	for i := 0; i < len(src); {
		run := 1
		for i+run < len(src) && run < 128 && src[i+run] == src[i] {
			run++
		}
		if run > 1 {
			out = append(out, byte(int8(1-run)), src[i])
			i += run
			continue
		}
		start := i
		for i < len(src) && i-start < 128 && (i+1 >= len(src) || src[i+1] != src[i]) {
			i++
		}
		if i == start {
			i++
		}
		out = append(out, byte(i-start-1))
		out = append(out, src[start:i]...)
	}
	return out
}

func nan() float64 { return math.NaN() }
