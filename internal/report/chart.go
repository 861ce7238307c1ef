package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// ClassSummary is what the class chart shows.
type ClassSummary struct {
	Title    string
	Subtitle string
	// Breaks holds the upper bound of each class.
	Breaks []float64
	// Counts holds pixels per class; index 0 is no-data.
	Counts []int
}

// ClassLabels names each class by its value range.
func ClassLabels(breaks []float64) []string {
	labels := make([]string, len(breaks))
	for i, b := range breaks {
		labels[i] = fmt.Sprintf("Class %d (<= %.4g)", i+1, b)
	}
	return labels
}

// NewClassChart builds a bar chart of pixels per class.
func NewClassChart(s ClassSummary) (*charts.Bar, error) {
	if len(s.Counts) != len(s.Breaks)+1 {
		return nil, fmt.Errorf("expected %d class counts, got %d", len(s.Breaks)+1, len(s.Counts))
	}

	x := append([]string{"No data"}, ClassLabels(s.Breaks)...)
	colors := classColors(len(s.Breaks))
	y := make([]opts.BarData, len(s.Counts))
	y[0] = opts.BarData{Value: s.Counts[0], ItemStyle: &opts.ItemStyle{Color: "#9e9e9e"}}
	for i := 1; i < len(s.Counts); i++ {
		y[i] = opts.BarData{Value: s.Counts[i], ItemStyle: &opts.ItemStyle{Color: hexColor(colors[i-1])}}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: s.Title, Width: "100%", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: s.Title, Subtitle: s.Subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Pixels"}),
	)
	bar.SetXAxis(x).
		AddSeries("pixels", y,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)
	return bar, nil
}

// ClassChartHTML renders the class chart as a standalone HTML page.
func ClassChartHTML(w io.Writer, s ClassSummary) error {
	bar, err := NewClassChart(s)
	if err != nil {
		return err
	}
	page := components.NewPage()
	page.PageTitle = s.Title
	page.AddCharts(bar)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render error: %w", err)
	}
	return nil
}
