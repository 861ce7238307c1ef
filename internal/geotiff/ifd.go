package geotiff

import (
	"encoding/binary"
	"io"
	"math"
	"strings"
)

type ifdEntry struct {
	typ   uint16
	count uint32
	data  []byte
}

type decoder struct {
	r     io.ReaderAt
	size  int64
	order binary.ByteOrder
	ifd   map[uint16]ifdEntry
}

func (d *decoder) readAt(p []byte, off int64) error {
	if off < 0 || off+int64(len(p)) > d.size {
		return FormatError("offset out of range")
	}
	n, err := d.r.ReadAt(p, off)
	if n == len(p) {
		return nil
	}
	if err == nil || err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return err
}

func (d *decoder) readHeader() (uint32, error) {
	p := make([]byte, 8)
	if err := d.readAt(p, 0); err != nil {
		return 0, FormatError("short header")
	}
	switch string(p[0:2]) {
	case "II":
		d.order = binary.LittleEndian
	case "MM":
		d.order = binary.BigEndian
	default:
		return 0, FormatError("malformed header")
	}
	switch d.order.Uint16(p[2:4]) {
	case 42:
	case bigTIFFMagic:
		return 0, UnsupportedError("BigTIFF")
	default:
		return 0, FormatError("bad magic number")
	}
	return d.order.Uint32(p[4:8]), nil
}

func (d *decoder) readIFD(off uint32) error {
	p := make([]byte, 2)
	if err := d.readAt(p, int64(off)); err != nil {
		return FormatError("cannot read IFD")
	}
	n := int(d.order.Uint16(p))
	buf := make([]byte, 12*n)
	if err := d.readAt(buf, int64(off)+2); err != nil {
		return FormatError("truncated IFD")
	}

	d.ifd = make(map[uint16]ifdEntry, n)
	for i := 0; i < n; i++ {
		e := buf[12*i : 12*(i+1)]
		tag := d.order.Uint16(e[0:2])
		typ := d.order.Uint16(e[2:4])
		count := d.order.Uint32(e[4:8])

		size, ok := lengths[typ]
		if !ok {
			// Unknown field types must be skipped per TIFF 6.0.
			continue
		}
		total := uint64(size) * uint64(count)
		if total > uint64(d.size) {
			return FormatError("IFD entry larger than file")
		}
		var data []byte
		if total <= 4 {
			data = append([]byte(nil), e[8:8+total]...)
		} else {
			data = make([]byte, total)
			if err := d.readAt(data, int64(d.order.Uint32(e[8:12]))); err != nil {
				return FormatError("IFD entry points outside file")
			}
		}
		d.ifd[tag] = ifdEntry{typ: typ, count: count, data: data}
	}
	return nil
}

func (d *decoder) has(tag uint16) bool {
	_, ok := d.ifd[tag]
	return ok
}

// uints returns an integer-valued field.
func (d *decoder) uints(tag uint16) ([]uint64, error) {
	e, ok := d.ifd[tag]
	if !ok {
		return nil, nil
	}
	out := make([]uint64, e.count)
	for i := range out {
		switch e.typ {
		case dtByte, dtUndefined:
			out[i] = uint64(e.data[i])
		case dtShort:
			out[i] = uint64(d.order.Uint16(e.data[2*i:]))
		case dtLong:
			out[i] = uint64(d.order.Uint32(e.data[4*i:]))
		case dtLong8:
			out[i] = d.order.Uint64(e.data[8*i:])
		default:
			return nil, FormatError("tag has non-integer type")
		}
	}
	return out, nil
}

// firstUint returns the first value of an integer field, or def if absent.
func (d *decoder) firstUint(tag uint16, def uint64) (uint64, error) {
	v, err := d.uints(tag)
	if err != nil {
		return 0, err
	}
	if len(v) == 0 {
		return def, nil
	}
	return v[0], nil
}

func (d *decoder) shorts(tag uint16) []uint16 {
	e, ok := d.ifd[tag]
	if !ok || e.typ != dtShort {
		return nil
	}
	out := make([]uint16, e.count)
	for i := range out {
		out[i] = d.order.Uint16(e.data[2*i:])
	}
	return out
}

func (d *decoder) floats(tag uint16) []float64 {
	e, ok := d.ifd[tag]
	if !ok {
		return nil
	}
	out := make([]float64, e.count)
	for i := range out {
		switch e.typ {
		case dtDouble:
			out[i] = math.Float64frombits(d.order.Uint64(e.data[8*i:]))
		case dtFloat:
			out[i] = float64(math.Float32frombits(d.order.Uint32(e.data[4*i:])))
		default:
			return nil
		}
	}
	return out
}

func (d *decoder) ascii(tag uint16) string {
	e, ok := d.ifd[tag]
	if !ok || e.typ != dtASCII {
		return ""
	}
	return strings.TrimRight(string(e.data), "\x00")
}
