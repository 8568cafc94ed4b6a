package model

import (
	"sort"
	"time"
)

// Candle is a single OHLCV bar of one symbol.
type Candle struct {
	Time     time.Time `json:"time"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	Volume   float64   `json:"volume"`
	Turnover float64   `json:"turnover,omitempty"`
}

// CandleSeries holds the ordered bars fetched for one symbol.
// Candles are strictly increasing by Time with no duplicate timestamps.
type CandleSeries struct {
	Symbol   string   `json:"symbol"`
	Interval string   `json:"interval"`
	Candles  []Candle `json:"candles"`
}

// Len returns the number of bars.
func (s CandleSeries) Len() int { return len(s.Candles) }

// Closes extracts the close prices.
func (s CandleSeries) Closes() []float64 {
	out := make([]float64, len(s.Candles))
	for i, c := range s.Candles {
		out[i] = c.Close
	}
	return out
}

// Highs extracts the high prices.
func (s CandleSeries) Highs() []float64 {
	out := make([]float64, len(s.Candles))
	for i, c := range s.Candles {
		out[i] = c.High
	}
	return out
}

// Lows extracts the low prices.
func (s CandleSeries) Lows() []float64 {
	out := make([]float64, len(s.Candles))
	for i, c := range s.Candles {
		out[i] = c.Low
	}
	return out
}

// NormalizeCandles sorts bars chronologically and drops repeated timestamps,
// keeping the last occurrence. The input slice is not modified.
func NormalizeCandles(in []Candle) []Candle {
	if len(in) == 0 {
		return nil
	}
	bars := make([]Candle, len(in))
	copy(bars, in)
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	out := bars[:0]
	for _, b := range bars {
		if n := len(out); n > 0 && out[n-1].Time.Equal(b.Time) {
			out[n-1] = b
			continue
		}
		out = append(out, b)
	}
	return out
}

// Ticker is one row of an exchange's 24h market overview.
type Ticker struct {
	Symbol            string  `json:"symbol"`
	LastPrice         float64 `json:"last_price"`
	Turnover24h       float64 `json:"turnover_24h"`
	OpenInterestValue float64 `json:"open_interest_value"`
	FundingRate       float64 `json:"funding_rate"`
	High24h           float64 `json:"high_24h"`
	Low24h            float64 `json:"low_24h"`
	PriceChangePct    float64 `json:"price_change_pct"`
}
