// Package chart draws planner convergence as an HTML line chart.
package chart

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

var ErrNoSeries = errors.New("chart error: nothing to plot")

// Series is the per-sweep delta history of one convergence loop.
type Series struct {
	Name   string
	Deltas []float64
}

// Convergence writes an HTML page with one line per series, sweep number on
// the x axis and the sweep's largest value change on a logarithmic y axis.
// Zero deltas are left out because a log axis cannot show them.
func Convergence(w io.Writer, title string, series ...Series) error {
	n := 0
	for _, s := range series {
		n = max(n, len(s.Deltas))
	}
	if n == 0 {
		return ErrNoSeries
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title: title,
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Name: "sweep",
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name: "delta",
			Type: "log",
		}),
	)

	sweeps := make([]string, n)
	for i := range sweeps {
		sweeps[i] = fmt.Sprintf("%d", i+1)
	}
	line.SetXAxis(sweeps)

	for _, s := range series {
		items := make([]opts.LineData, 0, len(s.Deltas))
		for _, d := range s.Deltas {
			if d > 0 {
				items = append(items, opts.LineData{Value: d})
			} else {
				items = append(items, opts.LineData{Value: "-"})
			}
		}
		line.AddSeries(s.Name, items)
	}

	page := components.NewPage()
	page.AddCharts(line)
	return page.Render(w)
}
