package geotiff

// TIFF LZW: MSB-first codes, 8-bit literals, and the "early change"
// convention where the code width grows one code before the table fills.
const (
	lzwClear     = 256
	lzwEOI       = 257
	lzwFirstCode = 258
	lzwMinWidth  = 9
	// The table is reset before the 12-bit code space runs out.
	lzwResetAt = 4094
)

type bitWriter struct {
	out   []byte
	acc   uint64
	nbits uint
}

func (w *bitWriter) write(code uint32, width uint) {
	w.acc = w.acc<<width | uint64(code)
	w.nbits += width
	for w.nbits >= 8 {
		w.out = append(w.out, byte(w.acc>>(w.nbits-8)))
		w.nbits -= 8
	}
	w.acc &= 1<<w.nbits - 1
}

func (w *bitWriter) flush() []byte {
	if w.nbits > 0 {
		w.out = append(w.out, byte(w.acc<<(8-w.nbits)))
		w.acc, w.nbits = 0, 0
	}
	return w.out
}

// compressLZW encodes src as a single TIFF LZW strip.
func compressLZW(src []byte) []byte {
	w := &bitWriter{out: make([]byte, 0, len(src)/2+16)}
	width := uint(lzwMinWidth)
	next := uint32(lzwFirstCode)
	table := make(map[uint32]uint32, lzwResetAt)

	w.write(lzwClear, width)
	if len(src) == 0 {
		w.write(lzwEOI, width)
		return w.flush()
	}

	prefix := uint32(src[0])
	for _, c := range src[1:] {
		key := prefix<<8 | uint32(c)
		if code, ok := table[key]; ok {
			prefix = code
			continue
		}
		w.write(prefix, width)
		table[key] = next
		next++
		if next >= 1<<width {
			width++
		}
		if next == lzwResetAt {
			w.write(lzwClear, width)
			clear(table)
			next = lzwFirstCode
			width = lzwMinWidth
		}
		prefix = uint32(c)
	}
	w.write(prefix, width)
	// The decoder widens after this last code as if it had added an entry.
	next++
	if next >= 1<<width {
		width++
	}
	w.write(lzwEOI, width)
	return w.flush()
}
