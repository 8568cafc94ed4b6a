package model

import (
	"math"

	"github.com/shopspring/decimal"
)

// IndicatorFrame holds the Vix Fix values aligned index-for-index with a CandleSeries.
// NaN marks bars whose trailing windows lack history.
type IndicatorFrame struct {
	WVF       []float64 `json:"wvf"`
	LowerBand []float64 `json:"lower_band"`
	UpperBand []float64 `json:"upper_band"`
	RangeHigh []float64 `json:"range_high"`
	RangeLow  []float64 `json:"range_low"`
}

// NewIndicatorFrame allocates a frame of n undefined values.
func NewIndicatorFrame(n int) IndicatorFrame {
	return IndicatorFrame{
		WVF:       nanSeries(n),
		LowerBand: nanSeries(n),
		UpperBand: nanSeries(n),
		RangeHigh: nanSeries(n),
		RangeLow:  nanSeries(n),
	}
}

// Len returns the number of bars covered by the frame.
func (f IndicatorFrame) Len() int { return len(f.WVF) }

// Slice returns the frame restricted to [from, to).
func (f IndicatorFrame) Slice(from, to int) IndicatorFrame {
	return IndicatorFrame{
		WVF:       f.WVF[from:to],
		LowerBand: f.LowerBand[from:to],
		UpperBand: f.UpperBand[from:to],
		RangeHigh: f.RangeHigh[from:to],
		RangeLow:  f.RangeLow[from:to],
	}
}

// Rounded returns a copy with every defined value rounded to two decimals.
// It is meant for display; alert evaluation always works on the unrounded frame.
func (f IndicatorFrame) Rounded() IndicatorFrame {
	return IndicatorFrame{
		WVF:       roundSeries(f.WVF),
		LowerBand: roundSeries(f.LowerBand),
		UpperBand: roundSeries(f.UpperBand),
		RangeHigh: roundSeries(f.RangeHigh),
		RangeLow:  roundSeries(f.RangeLow),
	}
}

// AlertFrame holds the four alert tiers aligned with a CandleSeries.
type AlertFrame struct {
	Alert1 []bool `json:"alert1"`
	Alert2 []bool `json:"alert2"`
	Alert3 []bool `json:"alert3"`
	Alert4 []bool `json:"alert4"`
}

// NewAlertFrame allocates an all-false frame of n bars.
func NewAlertFrame(n int) AlertFrame {
	return AlertFrame{
		Alert1: make([]bool, n),
		Alert2: make([]bool, n),
		Alert3: make([]bool, n),
		Alert4: make([]bool, n),
	}
}

// Len returns the number of bars covered by the frame.
func (a AlertFrame) Len() int { return len(a.Alert1) }

// AnyAt reports whether any tier fired at bar i.
func (a AlertFrame) AnyAt(i int) bool {
	return a.Alert1[i] || a.Alert2[i] || a.Alert3[i] || a.Alert4[i]
}

// TiersAt returns the four tiers at bar i.
func (a AlertFrame) TiersAt(i int) [4]bool {
	return [4]bool{a.Alert1[i], a.Alert2[i], a.Alert3[i], a.Alert4[i]}
}

// Slice returns the frame restricted to [from, to).
func (a AlertFrame) Slice(from, to int) AlertFrame {
	return AlertFrame{
		Alert1: a.Alert1[from:to],
		Alert2: a.Alert2[from:to],
		Alert3: a.Alert3[from:to],
		Alert4: a.Alert4[from:to],
	}
}

// Round2 rounds v half away from zero to two decimals. NaN and Inf pass through.
func Round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	r, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return r
}

func roundSeries(in []float64) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = Round2(v)
	}
	return out
}

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
