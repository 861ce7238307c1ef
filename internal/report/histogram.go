// Package report renders classification results as a PNG histogram and an
// HTML class chart.
package report

import (
	"fmt"
	"image/color"
	"io"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

const (
	minHistBins = 10
	maxHistBins = 100
)

var breakColor = color.RGBA{R: 200, G: 30, B: 30, A: 255}

// histBins picks a bin count close to the square root of n.
func histBins(n int) int {
	b := int(math.Sqrt(float64(n)))
	return max(minHistBins, min(maxHistBins, b))
}

// NewHistogramPlot builds a histogram of values with a dashed vertical line
// at every break.
func NewHistogramPlot(values, breaks []float64, title string) (*plot.Plot, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("no values to plot")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Value"
	p.Y.Label.Text = "Pixels"

	h, err := plotter.NewHist(plotter.Values(values), histBins(len(values)))
	if err != nil {
		return nil, fmt.Errorf("failed to build histogram: %w", err)
	}
	h.FillColor = color.RGBA{R: 70, G: 110, B: 170, A: 255}
	h.LineStyle.Width = vg.Points(0.5)
	p.Add(h)

	top := 0.0
	for _, b := range h.Bins {
		top = max(top, b.Weight)
	}
	for i, b := range breaks {
		line, err := plotter.NewLine(plotter.XYs{{X: b, Y: 0}, {X: b, Y: top}})
		if err != nil {
			return nil, err
		}
		line.Color = breakColor
		line.Width = vg.Points(1.5)
		line.Dashes = []vg.Length{vg.Points(6), vg.Points(3)}
		p.Add(line)
		if i == 0 {
			p.Legend.Add("class breaks", line)
		}
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

// HistogramPNG writes the histogram of values with break lines as a PNG.
func HistogramPNG(w io.Writer, values, breaks []float64, title string) error {
	p, err := NewHistogramPlot(values, breaks, title)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(10*vg.Inch, 5*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("failed to render plot: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write plot: %w", err)
	}
	return nil
}
