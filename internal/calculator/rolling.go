package calculator

import (
	"math"

	"github.com/markcheno/go-talib"
)

// The talib window functions keep running sums and index out of range on
// short input, so every helper here takes a NaN-free series and returns a
// slice of the same length with NaN before the first full window.

func rollingMax(in []float64, period int) []float64 {
	if period == 1 {
		return clone(in)
	}
	return windowed(in, period, func(x []float64) []float64 { return talib.Max(x, period) })
}

func rollingMin(in []float64, period int) []float64 {
	if period == 1 {
		return clone(in)
	}
	return windowed(in, period, func(x []float64) []float64 { return talib.Min(x, period) })
}

func rollingMean(in []float64, period int) []float64 {
	return windowed(in, period, func(x []float64) []float64 { return talib.Sma(x, period) })
}

// rollingStdDev is the population standard deviation scaled by mult.
func rollingStdDev(in []float64, period int, mult float64) []float64 {
	return windowed(in, period, func(x []float64) []float64 { return talib.StdDev(x, period, mult) })
}

func windowed(in []float64, period int, fn func([]float64) []float64) []float64 {
	out := nans(len(in))
	if period <= 0 || len(in) < period {
		return out
	}
	res := fn(in)
	copy(out[period-1:], res[period-1:])
	return out
}

// place writes seg into a NaN series of length n starting at offset.
func place(n, offset int, seg []float64) []float64 {
	out := nans(n)
	if offset < n {
		copy(out[offset:], seg)
	}
	return out
}

func clone(in []float64) []float64 {
	out := make([]float64, len(in))
	copy(out, in)
	return out
}

func nans(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
