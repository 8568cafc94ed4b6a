// Package testutil builds deterministic candle series for tests.
package testutil

import (
	"math/rand"
	"time"

	"github.com/kktt667/Pair-Finder/internal/model"
)

// Epoch is the open time of the first bar of every fixture.
var Epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// ReversalParams are short-window settings that let the 60-bar reversal
// fixture warm up fully.
func ReversalParams() model.ScanParameters {
	p := model.DefaultScanParameters()
	p.Interval = "D"
	p.LookbackDays = 14
	p.WindowPeriod = 5
	p.BandLength = 10
	p.BandMultiplier = 2
	p.RangeLookback = 10
	return p
}

// ReversalSeries is 60 daily bars: a steady decline over bars 0-39, a run of
// higher lows and closes above the prior high over bars 40-45 with a spike
// low at bar 44, then a quiet drift higher.
//
// With ReversalParams the oscillator is extended at bar 44 and back inside
// both thresholds at bar 45, and no alert fires after bar 45.
func ReversalSeries(symbol string) model.CandleSeries {
	bars := make([]model.Candle, 0, 60)
	for i := 0; i < 40; i++ {
		c := 200 - 2.5*float64(i)
		bars = append(bars, bar(i, c+1.0, c+1.5, c-1.0, c))
	}
	closes := []float64{104.5, 106.5, 108.5, 110.5, 124.0, 126.5}
	lows := []float64{102.0, 103.0, 104.0, 105.0, 106.0, 124.0}
	for k := range closes {
		c, l := closes[k], lows[k]
		bars = append(bars, bar(40+k, l+0.2, c+0.3, l, c))
	}
	c := 126.5
	for i := 46; i < 60; i++ {
		c += 0.4
		bars = append(bars, bar(i, c-0.2, c+0.3, c-0.6, c))
	}
	return model.CandleSeries{Symbol: symbol, Interval: "D", Candles: bars}
}

// FlatSeries is n daily bars that never move.
func FlatSeries(symbol string, n int, price float64) model.CandleSeries {
	bars := make([]model.Candle, n)
	for i := range bars {
		bars[i] = bar(i, price, price, price, price)
	}
	return model.CandleSeries{Symbol: symbol, Interval: "D", Candles: bars}
}

// RandomWalk is n daily bars from a seeded geometric walk.
func RandomWalk(symbol string, n int, seed int64) model.CandleSeries {
	rng := rand.New(rand.NewSource(seed))
	bars := make([]model.Candle, n)
	c := 100.0
	for i := range bars {
		o := c
		c = o * (1 + rng.NormFloat64()*0.03)
		h := max(o, c) * (1 + rng.Float64()*0.02)
		l := min(o, c) * (1 - rng.Float64()*0.02)
		bars[i] = bar(i, o, h, l, c)
	}
	return model.CandleSeries{Symbol: symbol, Interval: "D", Candles: bars}
}

// BarTime is the open time of bar i in a daily fixture.
func BarTime(i int) time.Time {
	return Epoch.AddDate(0, 0, i)
}

func bar(i int, o, h, l, c float64) model.Candle {
	return model.Candle{Time: BarTime(i), Open: o, High: h, Low: l, Close: c, Volume: 1000 + float64(i)}
}
