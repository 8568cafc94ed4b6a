package strategy

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kktt667/Pair-Finder/internal/calculator"
	"github.com/kktt667/Pair-Finder/internal/model"
	"github.com/kktt667/Pair-Finder/internal/testutil"
)

func evaluate(t *testing.T, series model.CandleSeries, params model.ScanParameters) (model.IndicatorFrame, model.AlertFrame) {
	t.Helper()
	ind, err := calculator.ComputeIndicator(series, params)
	require.NoError(t, err)
	alerts, err := EvaluateAlerts(series, ind, params)
	require.NoError(t, err)
	return ind, alerts
}

func TestEvaluateAlerts_LengthMismatch(t *testing.T) {
	series := testutil.FlatSeries("X", 10, 1)
	_, err := EvaluateAlerts(series, model.NewIndicatorFrame(9), model.DefaultScanParameters())
	assert.Error(t, err)
}

func TestEvaluateAlerts_Reversal(t *testing.T) {
	_, alerts := evaluate(t, testutil.ReversalSeries("XYZ"), testutil.ReversalParams())
	require.Equal(t, 60, alerts.Len())

	assert.True(t, alerts.Alert1[44])
	assert.False(t, alerts.Alert2[44])

	assert.False(t, alerts.Alert1[45])
	assert.True(t, alerts.Alert2[45])
	assert.True(t, alerts.Alert3[45])
	assert.False(t, alerts.Alert4[45])

	// bar 40 pulls back from the decline but the close is not above 3 bars ago
	assert.True(t, alerts.Alert2[40])
	assert.False(t, alerts.Alert3[40])

	for i := 46; i < 60; i++ {
		assert.False(t, alerts.AnyAt(i), "bar %d", i)
	}
}

func TestEvaluateAlerts_UndefinedNeverAlerts(t *testing.T) {
	params := testutil.ReversalParams()
	_, alerts := evaluate(t, testutil.RandomWalk("RW", 80, 1), params)

	firstBand := params.WindowPeriod + params.BandLength - 2
	for i := 0; i < firstBand; i++ {
		assert.False(t, alerts.AnyAt(i), "bar %d", i)
	}
}

func TestEvaluateAlerts_TooShortForBands(t *testing.T) {
	series := testutil.RandomWalk("RW", 30, 2)
	_, alerts := evaluate(t, series, model.DefaultScanParameters())
	for i := 0; i < alerts.Len(); i++ {
		assert.False(t, alerts.AnyAt(i))
	}
}

func TestEvaluateAlerts_TierImplications(t *testing.T) {
	for seed := int64(1); seed <= 25; seed++ {
		for _, useHighs := range []bool{false, true} {
			params := testutil.ReversalParams()
			params.UseHighs = useHighs
			_, alerts := evaluate(t, testutil.RandomWalk("RW", 200, seed), params)

			for i := 1; i < alerts.Len(); i++ {
				if alerts.Alert3[i] {
					assert.True(t, alerts.Alert2[i], "seed %d bar %d", seed, i)
				}
				if alerts.Alert2[i] {
					assert.True(t, alerts.Alert1[i-1], "seed %d bar %d", seed, i)
					assert.False(t, alerts.Alert1[i], "seed %d bar %d", seed, i)
				}
				if alerts.Alert4[i] {
					assert.True(t, alerts.Alert1[i], "seed %d bar %d", seed, i)
					assert.True(t, alerts.Alert1[i-1], "seed %d bar %d", seed, i)
				}
			}
		}
	}
}

func TestEvaluateAlerts_FlipInvariant(t *testing.T) {
	for _, useHighs := range []bool{false, true} {
		series := testutil.RandomWalk("RW", 150, 42)
		params := testutil.ReversalParams()
		params.UseHighs = useHighs
		_, plain := evaluate(t, series, params)

		params.Flip = true
		_, flipped := evaluate(t, series, params)
		assert.Equal(t, plain, flipped)
	}
}

func TestBreakoutFiltered_NaN(t *testing.T) {
	nan := math.NaN()
	ind := model.IndicatorFrame{
		WVF:       []float64{5, 1},
		UpperBand: []float64{4, nan},
		LowerBand: []float64{0, 0},
		RangeHigh: []float64{nan, 3},
		RangeLow:  []float64{0, 0},
	}
	assert.True(t, Extended(ind, 0))
	assert.False(t, BreakoutFiltered(ind, 1))
	assert.False(t, BreakoutFilteredAggr(ind, 1))

	ind.UpperBand[1] = 2
	assert.True(t, BreakoutFiltered(ind, 1))
	assert.False(t, BreakoutFiltered(ind, 0))
}

func TestBarPatterns(t *testing.T) {
	bars := []model.Candle{
		{Open: 10, High: 12, Low: 9, Close: 11},
		{Open: 11, High: 14, Low: 10, Close: 13},
		{Open: 13, High: 13.5, Low: 7, Close: 8},
	}
	assert.False(t, UpRange(bars, 0))
	assert.True(t, UpRange(bars, 1))
	assert.True(t, UpRangeAggr(bars, 1))
	assert.False(t, DownRange(bars, 1))

	assert.True(t, DownRange(bars, 2))
	assert.True(t, DownRangeAggr(bars, 2))
	assert.False(t, UpRangeAggr(bars, 2))
}

func TestMomentumAndContext(t *testing.T) {
	closes := []float64{20, 18, 16, 15, 17}
	bars := make([]model.Candle, len(closes))
	for i, c := range closes {
		bars[i] = model.Candle{Open: c, High: c, Low: c, Close: c}
	}

	assert.True(t, Momentum(bars, 4, 1, false))
	assert.False(t, Momentum(bars, 4, 1, true))
	assert.False(t, Momentum(bars, 4, 5, false))

	assert.True(t, Context(bars, 4, 4, 10, false))
	assert.True(t, Context(bars, 4, 10, 3, false))
	assert.False(t, Context(bars, 4, 10, 20, false))
	assert.True(t, Context(bars, 4, 10, 1, true))
}
