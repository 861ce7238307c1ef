package geotiff

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
	"golang.org/x/image/tiff/lzw"
)

// decompress expands one strip or tile to (at least) expected bytes.
func decompress(raw []byte, compression, expected int) ([]byte, error) {
	switch compression {
	case cNone:
		return raw, nil
	case cLZW:
		r := lzw.NewReader(bytes.NewReader(raw), lzw.MSB, 8)
		defer r.Close()
		return readBlock(r, expected)
	case cDeflate, cDeflateOld:
		r, err := zlib.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, FormatError(fmt.Sprintf("bad deflate stream: %v", err))
		}
		defer r.Close()
		return readBlock(r, expected)
	case cPackBits:
		return unpackBits(raw, expected)
	}
	return nil, UnsupportedError(fmt.Sprintf("compression %d", compression))
}

func readBlock(r io.Reader, expected int) ([]byte, error) {
	buf := make([]byte, expected)
	n, err := io.ReadFull(r, buf)
	if err != nil {
		return nil, FormatError(fmt.Sprintf("decompressed block too short: %d of %d bytes: %v", n, expected, err))
	}
	return buf, nil
}

func unpackBits(src []byte, expected int) ([]byte, error) {
	dst := make([]byte, 0, expected)
	for i := 0; i < len(src) && len(dst) < expected; {
		n := int(int8(src[i]))
		i++
		switch {
		case n >= 0:
			end := i + n + 1
			if end > len(src) {
				return nil, FormatError("truncated PackBits literal")
			}
			dst = append(dst, src[i:end]...)
			i = end
		case n != -128:
			if i >= len(src) {
				return nil, FormatError("truncated PackBits run")
			}
			for j := 0; j < 1-n; j++ {
				dst = append(dst, src[i])
			}
			i++
		}
	}
	return dst, nil
}

// undoHorizontal reverses predictor 2: each sample was stored as the
// difference from the same component of the previous pixel.
func undoHorizontal(buf []byte, order binary.ByteOrder, rowBytes, stride, bps int) error {
	for off := 0; off+rowBytes <= len(buf); off += rowBytes {
		row := buf[off : off+rowBytes]
		switch bps {
		case 8:
			for i := stride; i < len(row); i++ {
				row[i] += row[i-stride]
			}
		case 16:
			for i := stride; i < len(row)/2; i++ {
				v := order.Uint16(row[2*i:]) + order.Uint16(row[2*(i-stride):])
				order.PutUint16(row[2*i:], v)
			}
		case 32:
			for i := stride; i < len(row)/4; i++ {
				v := order.Uint32(row[4*i:]) + order.Uint32(row[4*(i-stride):])
				order.PutUint32(row[4*i:], v)
			}
		case 64:
			for i := stride; i < len(row)/8; i++ {
				v := order.Uint64(row[8*i:]) + order.Uint64(row[8*(i-stride):])
				order.PutUint64(row[8*i:], v)
			}
		default:
			return UnsupportedError(fmt.Sprintf("horizontal predictor with %d bits", bps))
		}
	}
	return nil
}

// undoFloatingPoint reverses predictor 3. Each row was split into byte
// planes (most significant first) and byte-differenced, so the result is
// rebuilt in the file's byte order.
func undoFloatingPoint(buf []byte, order binary.ByteOrder, rowBytes, stride, bytesPerSample int) {
	little := order == binary.LittleEndian
	wc := rowBytes / bytesPerSample
	tmp := make([]byte, rowBytes)
	for off := 0; off+rowBytes <= len(buf); off += rowBytes {
		row := buf[off : off+rowBytes]
		for i := stride; i < len(row); i++ {
			row[i] += row[i-stride]
		}
		copy(tmp, row)
		for c := 0; c < wc; c++ {
			for b := 0; b < bytesPerSample; b++ {
				v := tmp[b*wc+c]
				if little {
					row[c*bytesPerSample+bytesPerSample-1-b] = v
				} else {
					row[c*bytesPerSample+b] = v
				}
			}
		}
	}
}
