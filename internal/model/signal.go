package model

import "time"

// SignalResult is what a scan task emits for a symbol whose alerts fired
// inside the lookback window. All three tails cover the same bars.
type SignalResult struct {
	Symbol    string         `json:"symbol"`
	Candles   []Candle       `json:"candles"`
	Indicator IndicatorFrame `json:"indicator"`
	Alerts    AlertFrame     `json:"alerts"`
	// PrevClose is the close of the bar before the last tail bar, zero when
	// the series has no such bar.
	PrevClose float64 `json:"prev_close"`
}

// SummaryRow is one line of the scan result table.
type SummaryRow struct {
	Symbol        string    `json:"symbol"`
	Time          time.Time `json:"time"`
	Open          float64   `json:"open"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	Close         float64   `json:"close"`
	Volume        float64   `json:"volume"`
	PercentChange float64   `json:"percent_change"`
	// Tiers reports which of alert1..alert4 fired anywhere in the window.
	Tiers [4]bool `json:"tiers"`
}

// Detail is the full recomputed view of one symbol for inspection.
type Detail struct {
	Series    CandleSeries   `json:"series"`
	Indicator IndicatorFrame `json:"indicator"`
	Alerts    AlertFrame     `json:"alerts"`
	Params    ScanParameters `json:"params"`
}
