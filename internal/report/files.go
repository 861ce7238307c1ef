package report

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/banshee-data/natbreaks/internal/fsutil"
)

// Paths returns the PNG and HTML report paths for an output raster inside
// dir. The raster's base name is reduced to a safe file stem.
func Paths(dir, output string) (png, html string) {
	base := filepath.Base(output)
	base = reportStem(base[:len(base)-len(filepath.Ext(base))])
	return filepath.Join(dir, base+"_histogram.png"), filepath.Join(dir, base+"_classes.html")
}

const maxStemLen = 96

// reportStem keeps ASCII letters, digits, '-' and '_', collapsing any other
// run of characters into a single underscore.
func reportStem(s string) string {
	var b strings.Builder
	pending := false
	for _, r := range s {
		if b.Len() >= maxStemLen {
			break
		}
		ok := r == '-' || r == '_' || (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		if !ok {
			pending = true
			continue
		}
		if pending && b.Len() > 0 {
			b.WriteByte('_')
		}
		pending = false
		b.WriteRune(r)
	}
	if b.Len() == 0 {
		return "raster"
	}
	return b.String()
}

// WriteHistogramPNG writes HistogramPNG to path.
func WriteHistogramPNG(fsys fsutil.FileSystem, path string, values, breaks []float64, title string) error {
	return writeFile(fsys, path, func(w io.Writer) error {
		return HistogramPNG(w, values, breaks, title)
	})
}

// WriteClassChartHTML writes ClassChartHTML to path.
func WriteClassChartHTML(fsys fsutil.FileSystem, path string, s ClassSummary) error {
	return writeFile(fsys, path, func(w io.Writer) error {
		return ClassChartHTML(w, s)
	})
}

func writeFile(fsys fsutil.FileSystem, path string, render func(io.Writer) error) error {
	if err := fsys.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	f, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := render(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
