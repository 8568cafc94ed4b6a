package calculator

import (
	"fmt"
	"math"

	"github.com/kktt667/Pair-Finder/internal/model"
)

// MinBars is the shortest series ComputeIndicator accepts.
const MinBars = 2

// InsufficientDataError is returned when a series is too short to say anything.
type InsufficientDataError struct {
	Symbol string
	Bars   int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data for %s: %d bars, need at least %d", e.Symbol, e.Bars, MinBars)
}

// ComputeIndicator calculates the Williams Vix Fix oscillator with its
// standard-deviation bands and percentile range over the series.
//
// Leading bars without a full window stay NaN: the oscillator is defined
// from WindowPeriod-1, the bands from WindowPeriod+BandLength-2 and the
// range from WindowPeriod+RangeLookback-2. Values are not rounded.
func ComputeIndicator(series model.CandleSeries, params model.ScanParameters) (model.IndicatorFrame, error) {
	n := series.Len()
	if n < MinBars {
		return model.IndicatorFrame{}, &InsufficientDataError{Symbol: series.Symbol, Bars: n}
	}
	if err := params.Validate(); err != nil {
		return model.IndicatorFrame{}, err
	}

	frame := model.NewIndicatorFrame(n)
	period := params.WindowPeriod
	if n < period {
		return frame, nil
	}

	frame.WVF = vixFix(series, period, params.UseHighs)

	// Only the defined tail of the oscillator goes through the rolling windows.
	start := period - 1
	wvf := frame.WVF[start:]

	mid := rollingMean(wvf, params.BandLength)
	dev := rollingStdDev(wvf, params.BandLength, params.BandMultiplier)
	lower := make([]float64, len(wvf))
	upper := make([]float64, len(wvf))
	for i := range wvf {
		lower[i] = mid[i] - dev[i]
		upper[i] = mid[i] + dev[i]
	}
	frame.LowerBand = place(n, start, lower)
	frame.UpperBand = place(n, start, upper)

	highMult, lowMult := params.PercentileHigh, params.PercentileLow
	if params.UseHighs {
		highMult, lowMult = lowMult, highMult
	}
	rangeHigh := rollingMax(wvf, params.RangeLookback)
	rangeLow := rollingMin(wvf, params.RangeLookback)
	for i := range wvf {
		rangeHigh[i] *= highMult
		rangeLow[i] *= lowMult
	}
	frame.RangeHigh = place(n, start, rangeHigh)
	frame.RangeLow = place(n, start, rangeLow)

	if params.Flip {
		frame = Negate(frame)
	}
	return frame, nil
}

// vixFix measures how far each bar's low (or high, for tops) sits from the
// trailing close extreme, as a percentage of that extreme.
func vixFix(series model.CandleSeries, period int, useHighs bool) []float64 {
	closes := series.Closes()
	n := len(closes)
	out := nans(n)
	if useHighs {
		lowest := rollingMin(closes, period)
		for i := period - 1; i < n; i++ {
			if lowest[i] == 0 {
				continue
			}
			out[i] = (lowest[i] - series.Candles[i].High) / lowest[i] * 100
		}
		return out
	}
	highest := rollingMax(closes, period)
	for i := period - 1; i < n; i++ {
		if highest[i] == 0 {
			continue
		}
		out[i] = (highest[i] - series.Candles[i].Low) / highest[i] * 100
	}
	return out
}

// Negate flips the sign of every value in the frame. NaN stays NaN.
func Negate(f model.IndicatorFrame) model.IndicatorFrame {
	return model.IndicatorFrame{
		WVF:       negate(f.WVF),
		LowerBand: negate(f.LowerBand),
		UpperBand: negate(f.UpperBand),
		RangeHigh: negate(f.RangeHigh),
		RangeLow:  negate(f.RangeLow),
	}
}

func negate(in []float64) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = -v
	}
	return out
}

// FirstDefined returns the index of the first non-NaN value, or -1.
func FirstDefined(in []float64) int {
	for i, v := range in {
		if !math.IsNaN(v) {
			return i
		}
	}
	return -1
}
