package strategy

import (
	"fmt"
	"math"

	"github.com/kktt667/Pair-Finder/internal/calculator"
	"github.com/kktt667/Pair-Finder/internal/model"
)

// EvaluateAlerts derives the four alert tiers from a series and its indicator frame.
//
//	alert1  oscillator at or above the upper band or the range high
//	alert2  extended last bar, back inside both thresholds this bar
//	alert3  alert2 plus a reversal bar, short-term momentum and a longer-term context filter
//	alert4  aggressive alert3: looser reversal bar and the oscillator still extended
//
// UseHighs selects the bearish bar patterns and must match the value the
// frame was computed with. A flipped frame is evaluated on its unflipped
// values, so Flip never changes which bars alert.
func EvaluateAlerts(series model.CandleSeries, ind model.IndicatorFrame, params model.ScanParameters) (model.AlertFrame, error) {
	n := series.Len()
	if ind.Len() != n {
		return model.AlertFrame{}, fmt.Errorf("evaluate %s: indicator covers %d bars, series has %d", series.Symbol, ind.Len(), n)
	}
	alerts := model.NewAlertFrame(n)
	if params.Flip {
		ind = calculator.Negate(ind)
	}

	bars := series.Candles
	for t := 0; t < n; t++ {
		alerts.Alert1[t] = Extended(ind, t)
		if t == 0 {
			continue
		}

		filtered := BreakoutFiltered(ind, t)
		filteredAggr := BreakoutFilteredAggr(ind, t)
		alerts.Alert2[t] = filtered

		var pattern, patternAggr bool
		if params.UseHighs {
			pattern, patternAggr = DownRange(bars, t), DownRangeAggr(bars, t)
		} else {
			pattern, patternAggr = UpRange(bars, t), UpRangeAggr(bars, t)
		}
		confirmed := Momentum(bars, t, params.ShortLookback, params.UseHighs) &&
			Context(bars, t, params.LongTermLookback, params.MidTermLookback, params.UseHighs)

		alerts.Alert3[t] = pattern && confirmed && filtered
		alerts.Alert4[t] = patternAggr && confirmed && filteredAggr
	}
	return alerts, nil
}

// Extended reports whether the oscillator reached the upper band or the range high at t.
func Extended(ind model.IndicatorFrame, t int) bool {
	return ge(ind.WVF[t], ind.UpperBand[t]) || ge(ind.WVF[t], ind.RangeHigh[t])
}

// BreakoutFiltered is true when the oscillator was extended at t-1 and is
// strictly inside both thresholds at t.
func BreakoutFiltered(ind model.IndicatorFrame, t int) bool {
	if t < 1 || !Extended(ind, t-1) {
		return false
	}
	return lt(ind.WVF[t], ind.UpperBand[t]) && lt(ind.WVF[t], ind.RangeHigh[t])
}

// BreakoutFilteredAggr is true when the oscillator was extended at t-1 and still is at t.
func BreakoutFilteredAggr(ind model.IndicatorFrame, t int) bool {
	if t < 1 {
		return false
	}
	return Extended(ind, t-1) && Extended(ind, t)
}

// UpRange is a higher low closing above the previous high.
func UpRange(bars []model.Candle, t int) bool {
	if t < 1 {
		return false
	}
	return gt(bars[t].Low, bars[t-1].Low) && gt(bars[t].Close, bars[t-1].High)
}

// UpRangeAggr is a bar closing above both its open and the previous close.
func UpRangeAggr(bars []model.Candle, t int) bool {
	if t < 1 {
		return false
	}
	return gt(bars[t].Close, bars[t-1].Close) && gt(bars[t].Close, bars[t].Open)
}

// DownRange is a lower high closing below the previous low.
func DownRange(bars []model.Candle, t int) bool {
	if t < 1 {
		return false
	}
	return lt(bars[t].High, bars[t-1].High) && lt(bars[t].Close, bars[t-1].Low)
}

// DownRangeAggr is a bar closing below both its open and the previous close.
func DownRangeAggr(bars []model.Candle, t int) bool {
	if t < 1 {
		return false
	}
	return lt(bars[t].Close, bars[t-1].Close) && lt(bars[t].Close, bars[t].Open)
}

// Momentum compares the close at t with the close short bars earlier, in
// the direction of the signal.
func Momentum(bars []model.Candle, t, short int, useHighs bool) bool {
	prev, ok := closeAt(bars, t-short)
	if !ok {
		return false
	}
	if useHighs {
		return lt(bars[t].Close, prev)
	}
	return gt(bars[t].Close, prev)
}

// Context requires the close at t to still be below (above, for tops) the
// close long or mid bars earlier.
func Context(bars []model.Candle, t, long, mid int, useHighs bool) bool {
	cmp := lt
	if useHighs {
		cmp = gt
	}
	if prev, ok := closeAt(bars, t-long); ok && cmp(bars[t].Close, prev) {
		return true
	}
	if prev, ok := closeAt(bars, t-mid); ok && cmp(bars[t].Close, prev) {
		return true
	}
	return false
}

func closeAt(bars []model.Candle, i int) (float64, bool) {
	if i < 0 || i >= len(bars) {
		return 0, false
	}
	return bars[i].Close, true
}

// NaN on either side is false.

func ge(a, b float64) bool { return !math.IsNaN(a) && !math.IsNaN(b) && a >= b }
func gt(a, b float64) bool { return !math.IsNaN(a) && !math.IsNaN(b) && a > b }
func lt(a, b float64) bool { return !math.IsNaN(a) && !math.IsNaN(b) && a < b }
