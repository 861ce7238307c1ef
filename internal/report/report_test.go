package report

import (
	"bytes"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/natbreaks/internal/fsutil"
)

func clusterValues() []float64 {
	var v []float64
	for i := 0; i < 200; i++ {
		v = append(v, 1+float64(i%10)/10, 10+float64(i%7)/7, 20+float64(i%5)/5)
	}
	return v
}

func TestHistogramPNG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, HistogramPNG(&buf, clusterValues(), []float64{2, 11, 21}, "test"))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Greater(t, img.Bounds().Dx(), img.Bounds().Dy())
}

func TestHistogramPNG_NoValues(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, HistogramPNG(&buf, nil, []float64{1}, "empty"))
}

func TestHistBins(t *testing.T) {
	assert.Equal(t, minHistBins, histBins(4))
	assert.Equal(t, 30, histBins(900))
	assert.Equal(t, maxHistBins, histBins(1_000_000))
}

func TestClassChartHTML(t *testing.T) {
	var buf bytes.Buffer
	s := ClassSummary{
		Title:    "elevation.tif",
		Subtitle: "3 classes",
		Breaks:   []float64{2, 11, 21},
		Counts:   []int{4, 10, 20, 30},
	}
	require.NoError(t, ClassChartHTML(&buf, s))

	html := buf.String()
	assert.Contains(t, html, "echarts")
	assert.Contains(t, html, "elevation.tif")
	assert.Contains(t, html, "No data")
	assert.Contains(t, html, "Class 3")
}

func TestClassChartHTML_CountMismatch(t *testing.T) {
	var buf bytes.Buffer
	err := ClassChartHTML(&buf, ClassSummary{Breaks: []float64{1, 2}, Counts: []int{1}})
	assert.Error(t, err)
}

func TestClassLabels(t *testing.T) {
	assert.Equal(t, []string{"Class 1 (<= 2.5)", "Class 2 (<= 1e+06)"}, ClassLabels([]float64{2.5, 1e6}))
}

func TestClassColors(t *testing.T) {
	colors := classColors(5)
	require.Len(t, colors, 5)
	seen := map[string]bool{}
	for _, c := range colors {
		h := hexColor(c)
		assert.True(t, strings.HasPrefix(h, "#"))
		assert.Len(t, h, 7)
		seen[h] = true
	}
	assert.Len(t, seen, 5)
	assert.Nil(t, classColors(0))
}

func TestPaths(t *testing.T) {
	png, html := Paths("/plots", "/data/out/classes.tif")
	assert.Equal(t, "/plots/classes_histogram.png", png)
	assert.Equal(t, "/plots/classes_classes.html", html)
}

func TestPaths_Stem(t *testing.T) {
	tests := []struct {
		output string
		want   string
	}{
		{"dem v2.tif", "/plots/dem_v2_histogram.png"},
		{"/x/élévation (final).tif", "/plots/l_vation_final_histogram.png"},
		{"my.class.map.tif", "/plots/my_class_map_histogram.png"},
		{"..tif", "/plots/raster_histogram.png"},
		{"/x/" + strings.Repeat("a", 200) + ".tif", "/plots/" + strings.Repeat("a", maxStemLen) + "_histogram.png"},
	}
	for _, tt := range tests {
		t.Run(tt.output, func(t *testing.T) {
			png, _ := Paths("/plots", tt.output)
			assert.Equal(t, tt.want, png)
		})
	}
}

func TestWriteReports(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()

	require.NoError(t, WriteHistogramPNG(fs, "/plots/h.png", clusterValues(), []float64{2, 11, 21}, "h"))
	require.NoError(t, WriteClassChartHTML(fs, "/plots/c.html", ClassSummary{
		Title:  "c",
		Breaks: []float64{1},
		Counts: []int{0, 5},
	}))

	data, err := fs.ReadFile("/plots/h.png")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")))
	assert.True(t, fs.Exists("/plots/c.html"))

	assert.Error(t, WriteHistogramPNG(fs, "/plots/empty.png", nil, nil, "e"))
}
