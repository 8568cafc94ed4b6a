// Package chart renders a symbol detail as an interactive echarts page.
package chart

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/kktt667/Pair-Finder/internal/model"
)

const (
	colorBull      = "#34d399"
	colorBear      = "#f87171"
	colorWVF       = "#22d3ee"
	colorUpperBand = "#fbbf24"
	colorRangeHigh = "#f472b6"
	colorAlert     = "#a78bfa"

	chartWidthPx   = 1200
	klineHeightPx  = 520
	vixFixHeightPx = 300
)

// Render writes an HTML page with the candles of d, its alert markers and
// the Vix Fix lines underneath.
func Render(w io.Writer, d *model.Detail) error {
	if d == nil || d.Series.Len() == 0 {
		return fmt.Errorf("render chart: no candles")
	}
	if d.Indicator.Len() != d.Series.Len() || d.Alerts.Len() != d.Series.Len() {
		return fmt.Errorf("render chart %s: %d candles, %d indicator bars, %d alert bars",
			d.Series.Symbol, d.Series.Len(), d.Indicator.Len(), d.Alerts.Len())
	}

	xAxis := buildXAxis(d.Series)
	page := components.NewPage()
	page.SetPageTitle(fmt.Sprintf("%s %s", d.Series.Symbol, d.Params.Interval))
	page.SetLayout(components.PageFlexLayout)
	page.AddCharts(buildKline(d, xAxis), buildVixFix(d, xAxis))
	return page.Render(w)
}

func buildKline(d *model.Detail, xAxis []string) *charts.Kline {
	kline := charts.NewKLine()
	kline.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Width:  fmt.Sprintf("%dpx", chartWidthPx),
			Height: fmt.Sprintf("%dpx", klineHeightPx),
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("%s %s", d.Series.Symbol, d.Params.Interval),
			Subtitle: fmt.Sprintf("WVF period %d, bands %d x%.1f, range %d", d.Params.WindowPeriod, d.Params.BandLength, d.Params.BandMultiplier, d.Params.RangeLookback),
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", XAxisIndex: []int{0}}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category"}),
		charts.WithYAxisOpts(opts.YAxis{Scale: opts.Bool(true)}),
	)

	data := make([]opts.KlineData, len(d.Series.Candles))
	for i, c := range d.Series.Candles {
		data[i] = opts.KlineData{Value: [4]float64{c.Open, c.Close, c.Low, c.High}}
	}
	kline.SetXAxis(xAxis)
	kline.AddSeries("Price", data,
		charts.WithItemStyleOpts(opts.ItemStyle{
			Color:        colorBull,
			Color0:       colorBear,
			BorderColor:  colorBull,
			BorderColor0: colorBear,
		}),
		charts.WithMarkPointNameCoordItemOpts(alertMarks(d, xAxis)...),
		charts.WithMarkPointStyleOpts(opts.MarkPointStyle{Symbol: []string{"pin"}, SymbolSize: 28}),
	)
	return kline
}

// alertMarks pins the highest tier that fired on each bar under its low.
func alertMarks(d *model.Detail, xAxis []string) []opts.MarkPointNameCoordItem {
	var marks []opts.MarkPointNameCoordItem
	for i := range xAxis {
		tier := highestTier(d.Alerts.TiersAt(i))
		if tier == 0 {
			continue
		}
		marks = append(marks, opts.MarkPointNameCoordItem{
			Name:       fmt.Sprintf("alert%d", tier),
			Coordinate: []interface{}{xAxis[i], d.Series.Candles[i].Low},
			Value:      fmt.Sprintf("A%d", tier),
			ItemStyle:  &opts.ItemStyle{Color: colorAlert},
		})
	}
	return marks
}

func highestTier(tiers [4]bool) int {
	for i := len(tiers) - 1; i >= 0; i-- {
		if tiers[i] {
			return i + 1
		}
	}
	return 0
}

func buildVixFix(d *model.Detail, xAxis []string) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Width:  fmt.Sprintf("%dpx", chartWidthPx),
			Height: fmt.Sprintf("%dpx", vixFixHeightPx),
		}),
		charts.WithTitleOpts(opts.Title{Title: "Williams Vix Fix"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category"}),
		charts.WithYAxisOpts(opts.YAxis{Scale: opts.Bool(true)}),
	)
	line.SetSeriesOptions(
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
	)
	ind := d.Indicator.Rounded()
	line.SetXAxis(xAxis)
	line.AddSeries("WVF", toLineData(ind.WVF), charts.WithLineStyleOpts(opts.LineStyle{Color: colorWVF, Width: 2}))
	line.AddSeries("Upper band", toLineData(ind.UpperBand), charts.WithLineStyleOpts(opts.LineStyle{Color: colorUpperBand, Width: 1}))
	line.AddSeries("Range high", toLineData(ind.RangeHigh), charts.WithLineStyleOpts(opts.LineStyle{Color: colorRangeHigh, Width: 1, Type: "dashed"}))
	return line
}

func buildXAxis(s model.CandleSeries) []string {
	layout := "2006-01-02 15:04"
	if d, ok := model.IntervalDuration(s.Interval); ok && d >= 24*time.Hour {
		layout = "2006-01-02"
	}
	x := make([]string, len(s.Candles))
	for i, c := range s.Candles {
		x[i] = c.Time.UTC().Format(layout)
	}
	return x
}

// toLineData leaves undefined bars empty so the line starts where the
// indicator becomes defined.
func toLineData(series []float64) []opts.LineData {
	out := make([]opts.LineData, len(series))
	for i, v := range series {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			out[i] = opts.LineData{Value: nil}
			continue
		}
		out[i] = opts.LineData{Value: v}
	}
	return out
}
