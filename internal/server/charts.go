package server

import (
	"fmt"
	"image/color"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"proxigesture.klederson.com/internal/sensor"
)

// chartSeries converts readings into seconds relative to the newest one.
func chartSeries(readings []sensor.Reading) (xs []float64, ys []float64) {
	if len(readings) == 0 {
		return nil, nil
	}
	newest := readings[len(readings)-1].Timestamp
	xs = make([]float64, len(readings))
	ys = make([]float64, len(readings))
	for i, r := range readings {
		xs[i] = float64(r.Timestamp-newest) / 1000
		ys[i] = r.Distance
	}
	return xs, ys
}

// renderHTMLChart writes an interactive line chart of readings.
func renderHTMLChart(w io.Writer, readings []sensor.Reading, modality sensor.Modality, maxRange float64) error {
	xs, ys := chartSeries(readings)

	labels := make([]string, len(xs))
	data := make([]opts.LineData, len(ys))
	for i := range xs {
		labels[i] = fmt.Sprintf("%.1f", xs[i])
		data[i] = opts.LineData{Value: ys[i]}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "proxigesture",
			Theme:     types.ThemeWesteros,
			Width:     "900px",
			Height:    "420px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Readings",
			Subtitle: fmt.Sprintf("%s sensor, %d points", modality, len(readings)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "seconds"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "distance", Min: 0, Max: maxRange}),
	)
	line.SetXAxis(labels).AddSeries("distance", data,
		charts.WithLineChartOpts(opts.LineChart{
			Step:       "end",
			ShowSymbol: opts.Bool(false),
		}),
		charts.WithMarkLineNameYAxisItemOpts(opts.MarkLineNameYAxisItem{
			Name:  "near",
			YAxis: sensor.NearLine(modality),
		}),
	)
	return line.Render(w)
}

// renderPNGChart writes a static PNG of readings.
func renderPNGChart(w io.Writer, readings []sensor.Reading, modality sensor.Modality, maxRange float64) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s sensor", modality)
	p.X.Label.Text = "seconds"
	p.Y.Label.Text = "distance"
	p.Y.Min, p.Y.Max = 0, sensor.ProxyFar+1
	if maxRange > 0 {
		p.Y.Max = maxRange
	}

	xs, ys := chartSeries(readings)
	p.X.Min, p.X.Max = -10, 0
	if len(xs) > 0 {
		if xs[0] < p.X.Min {
			p.X.Min = xs[0]
		}
		pts := make(plotter.XYs, len(xs))
		for i := range xs {
			pts[i] = plotter.XY{X: xs[i], Y: ys[i]}
		}
		l, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("failed to create line: %w", err)
		}
		l.Width = vg.Points(1)
		l.Color = color.RGBA{R: 0, G: 200, B: 120, A: 255}
		p.Add(l)
	}

	threshold := plotter.NewFunction(func(float64) float64 { return sensor.NearLine(modality) })
	threshold.Color = color.RGBA{R: 220, G: 60, B: 60, A: 255}
	threshold.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
	p.Add(threshold)

	wt, err := p.WriterTo(8*vg.Inch, 4*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("failed to render plot: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}
