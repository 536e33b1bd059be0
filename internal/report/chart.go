package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/bmvandoren/vol2bird/internal/fsutil"
	"github.com/bmvandoren/vol2bird/internal/profile"
)

// EchartsAssetsHost serves the echarts scripts referenced by rendered pages.
var EchartsAssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

// NewChart builds an HTML page with speed, direction and density per
// height bin.
func NewChart(vp *profile.VerticalProfile) *components.Page {
	layers := vp.Layers()
	heights := make([]string, len(layers))
	speed := make([]opts.LineData, len(layers))
	density := make([]opts.BarData, len(layers))
	densityAll := make([]opts.BarData, len(layers))
	for i, l := range layers {
		heights[i] = fmt.Sprintf("%.0f", l.Height)
		speed[i] = opts.LineData{Value: chartValue(l.Speed)}
		density[i] = opts.BarData{Value: chartValue(l.Density)}
		densityAll[i] = opts.BarData{Value: chartValue(l.DensityAll)}
	}
	subtitle := fmt.Sprintf("source=%s date=%s time=%s bins=%d", vp.Metadata.Source, vp.Metadata.Date, vp.Metadata.Time, len(layers))

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "vol2bird profile", Width: "900px", Height: "480px", AssetsHost: EchartsAssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: "Ground speed", Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Height (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Speed (m/s)"}),
	)
	line.SetXAxis(heights).AddSeries("speed", speed)

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "480px", AssetsHost: EchartsAssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: "Bird density", Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Height (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "birds/km³"}),
	)
	bar.SetXAxis(heights).
		AddSeries("bio", density).
		AddSeries("all", densityAll)

	page := components.NewPage()
	page.SetAssetsHost(EchartsAssetsHost)
	page.AddCharts(line, bar)
	return page
}

// chartValue maps a missing value to "-", which echarts leaves blank.
func chartValue(v float64) any {
	if profile.Cell(v).Missing() {
		return "-"
	}
	return v
}

// WriteChartTo renders the chart page as HTML into w.
func WriteChartTo(w io.Writer, vp *profile.VerticalProfile) error {
	if err := NewChart(vp).Render(w); err != nil {
		return fmt.Errorf("render error: %w", err)
	}
	return nil
}

// WriteChart renders the chart page to an HTML file.
func WriteChart(fsys fsutil.FileSystem, path string, vp *profile.VerticalProfile) error {
	return fsutil.WriteFile(fsys, path, func(w io.Writer) error {
		return WriteChartTo(w, vp)
	})
}
