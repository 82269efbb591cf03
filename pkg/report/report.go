// Package report renders authentication telemetry as an HTML page of charts.
package report

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/droneauth/droneauth-go/pkg/stats"
)

// Data is the telemetry a report reads. *stats.MemorySink satisfies it.
type Data interface {
	Sources() []string
	Scalar(source, name string) (float64, bool)
	Series(source, signal string) []stats.Sample
}

// Options configures a report.
type Options struct {
	// Title heads the page. Default "Authentication report".
	Title string

	// Start is the origin of the time axis. Zero uses the earliest sample.
	Start time.Time
}

// Row is one source's teardown scalars.
type Row struct {
	Source      string
	Station     bool
	Requests    float64
	Successes   float64
	Failures    float64
	SuccessRate float64
	HasRate     bool
}

// Rows collects teardown scalars for every source that recorded them, in
// source order. Sources that only emitted signals are skipped.
func Rows(data Data) []Row {
	var rows []Row
	for _, src := range data.Sources() {
		names, station, ok := namesFor(data, src)
		if !ok {
			continue
		}
		r := Row{Source: src, Station: station}
		r.Requests, _ = data.Scalar(src, names.Requests)
		r.Successes, _ = data.Scalar(src, names.Successes)
		r.Failures, _ = data.Scalar(src, names.Failures)
		r.SuccessRate, r.HasRate = data.Scalar(src, names.SuccessRate)
		rows = append(rows, r)
	}
	return rows
}

func namesFor(data Data, source string) (stats.Names, bool, bool) {
	if _, ok := data.Scalar(source, stats.StationNames.Requests); ok {
		return stats.StationNames, true, true
	}
	if _, ok := data.Scalar(source, stats.DroneNames.Requests); ok {
		return stats.DroneNames, false, true
	}
	return stats.Names{}, false, false
}

// Build assembles the report page: a counter bar chart, a success rate bar
// chart and the cumulative success series over time.
func Build(data Data, o Options) *components.Page {
	if o.Title == "" {
		o.Title = "Authentication report"
	}
	rows := Rows(data)

	page := components.NewPage()
	page.AddCharts(countersChart(o.Title, rows), rateChart(rows), seriesChart(data, o.Start))
	return page
}

// Render writes the report as HTML.
func Render(w io.Writer, data Data, o Options) error {
	if err := Build(data, o).Render(w); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}

// WriteFile renders the report into path.
func WriteFile(path string, data Data, o Options) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := Render(f, data, o); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func countersChart(title string, rows []Row) *charts.Bar {
	labels := make([]string, len(rows))
	requests := make([]opts.BarData, len(rows))
	successes := make([]opts.BarData, len(rows))
	failures := make([]opts.BarData, len(rows))
	for i, r := range rows {
		labels[i] = r.Source
		requests[i] = opts.BarData{Value: r.Requests}
		successes[i] = opts.BarData{Value: r.Successes}
		failures[i] = opts.BarData{Value: r.Failures}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: "requests, successes and failures per source"}),
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "1200px", Height: "500px"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(labels).
		AddSeries("requests", requests).
		AddSeries("successes", successes, charts.WithItemStyleOpts(opts.ItemStyle{Color: "#22c55e"})).
		AddSeries("failures", failures, charts.WithItemStyleOpts(opts.ItemStyle{Color: "#ef4444"})).
		SetSeriesOptions(charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}))
	return bar
}

func rateChart(rows []Row) *charts.Bar {
	var labels []string
	var rates []opts.BarData
	for _, r := range rows {
		if !r.HasRate {
			continue
		}
		labels = append(labels, r.Source)
		rates = append(rates, opts.BarData{Value: r.SuccessRate})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Success rate", Subtitle: "percent of requests"}),
		charts.WithInitializationOpts(opts.Initialization{Width: "1200px", Height: "400px"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "%", Max: 100}),
	)
	bar.SetXAxis(labels).AddSeries("successRate", rates)
	return bar
}

func seriesChart(data Data, start time.Time) *charts.Line {
	if start.IsZero() {
		start = earliest(data)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Cumulative successes", Subtitle: "authSuccess over time"}),
		charts.WithInitializationOpts(opts.Initialization{Width: "1200px", Height: "500px"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "s"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "inside"}, opts.DataZoom{Type: "slider"}),
	)
	for _, src := range data.Sources() {
		samples := data.Series(src, stats.SignalSuccess)
		if len(samples) == 0 {
			continue
		}
		items := make([]opts.LineData, len(samples))
		for i, s := range samples {
			items[i] = opts.LineData{Value: []interface{}{s.At.Sub(start).Seconds(), s.Value}}
		}
		line.AddSeries(src, items)
	}
	return line
}

func earliest(data Data) time.Time {
	var first time.Time
	for _, src := range data.Sources() {
		for _, signal := range []string{stats.SignalRequest, stats.SignalSuccess, stats.SignalFailure} {
			samples := data.Series(src, signal)
			if len(samples) > 0 && (first.IsZero() || samples[0].At.Before(first)) {
				first = samples[0].At
			}
		}
	}
	return first
}
