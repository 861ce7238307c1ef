package geotiff

import (
	"bytes"
	"io"
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/tiff/lzw"

	"github.com/banshee-data/natbreaks/internal/testutil"
)

func randomClasses(w, h, k int, seed uint64) []uint8 {
	rng := rand.New(rand.NewPCG(seed, seed))
	pix := make([]uint8, w*h)
	for i := range pix {
		pix[i] = uint8(rng.IntN(k + 1))
	}
	return pix
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	for _, c := range []Compression{CompressionLZW, CompressionDeflate, CompressionNone} {
		t.Run(string(c), func(t *testing.T) {
			img := &ClassImage{
				Width:  301,
				Height: 97,
				Pix:    randomClasses(301, 97, 5, 7),
				Geo:    testutil.UTMGeoRef(),
			}
			md := map[string]string{
				"JENKS_BREAKS": "1.5,7.25,12",
				"NOTE":         `a <b> & "c"`,
			}

			var buf bytes.Buffer
			require.NoError(t, Encode(&buf, img, EncodeOptions{Compression: c, Metadata: md}))

			band, err := Decode(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
			require.NoError(t, err)

			assert.Equal(t, img.Width, band.Width)
			assert.Equal(t, img.Height, band.Height)
			assert.Equal(t, "uint8", band.SampleType)
			require.NotNil(t, band.NoData)
			assert.Equal(t, 0.0, *band.NoData)

			got := make([]uint8, len(band.Data))
			for i, v := range band.Data {
				got[i] = uint8(v)
			}
			if diff := cmp.Diff(img.Pix, got); diff != "" {
				t.Errorf("pixels mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(img.Geo, band.Geo); diff != "" {
				t.Errorf("georef mismatch (-want +got):\n%s", diff)
			}
			assert.Equal(t, md, band.Metadata)
		})
	}
}

func TestEncode_CompressionTagAndDefault(t *testing.T) {
	img := &ClassImage{Width: 2, Height: 2, Pix: []uint8{0, 1, 2, 3}}

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, img, EncodeOptions{}))

	d := &decoder{r: bytes.NewReader(buf.Bytes()), size: int64(buf.Len())}
	off, err := d.readHeader()
	require.NoError(t, err)
	require.NoError(t, d.readIFD(off))

	c, err := d.firstUint(tagCompression, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(cLZW), c)
	assert.Equal(t, "0", d.ascii(tagGDALNoData))
	assert.False(t, d.has(tagGDALMetadata))
	assert.False(t, d.has(tagGeoKeyDirectory))
}

func TestEncode_CustomNoData(t *testing.T) {
	img := &ClassImage{Width: 3, Height: 1, Pix: []uint8{255, 1, 2}}

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, img, EncodeOptions{Compression: CompressionNone, NoData: 255}))

	band, err := Decode(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.NotNil(t, band.NoData)
	assert.Equal(t, 255.0, *band.NoData)
	assert.Equal(t, 1, band.CountNoData())
}

func TestEncode_Errors(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, Encode(&buf, &ClassImage{Width: 0, Height: 1}, EncodeOptions{}))
	assert.Error(t, Encode(&buf, &ClassImage{Width: 2, Height: 2, Pix: []uint8{1}}, EncodeOptions{}))
	assert.Error(t, Encode(&buf, &ClassImage{Width: 1, Height: 1, Pix: []uint8{1}}, EncodeOptions{Compression: "jpeg"}))
}

func TestParseCompression(t *testing.T) {
	tests := []struct {
		in      string
		want    Compression
		wantErr bool
	}{
		{in: "", want: CompressionLZW},
		{in: "LZW", want: CompressionLZW},
		{in: " deflate ", want: CompressionDeflate},
		{in: "none", want: CompressionNone},
		{in: "jpeg", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseCompression(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func decodeLZW(t *testing.T, data []byte) []byte {
	t.Helper()
	r := lzw.NewReader(bytes.NewReader(data), lzw.MSB, 8)
	defer r.Close()
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	return out
}

func TestCompressLZW(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	random := make([]byte, 200000)
	for i := range random {
		random[i] = byte(rng.UintN(256))
	}
	lowEntropy := make([]byte, 100000)
	for i := range lowEntropy {
		lowEntropy[i] = byte(rng.UintN(4))
	}

	tests := map[string][]byte{
		"empty":       {},
		"single":      {42},
		"pair":        {1, 1},
		"run":         bytes.Repeat([]byte{3}, 10000),
		"pattern":     bytes.Repeat([]byte{0, 1, 2, 3, 4, 5, 6, 7}, 5000),
		"random":      random,
		"low entropy": lowEntropy,
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			got := decodeLZW(t, compressLZW(src))
			if !bytes.Equal(src, got) {
				t.Fatalf("round trip mismatch: %d bytes in, %d bytes out", len(src), len(got))
			}
		})
	}
}

func TestCompressLZW_Compresses(t *testing.T) {
	src := bytes.Repeat([]byte{1, 2, 3}, 10000)
	assert.Less(t, len(compressLZW(src)), len(src)/10)
}
