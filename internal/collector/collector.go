package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kktt667/Pair-Finder/internal/calculator"
	"github.com/kktt667/Pair-Finder/internal/logger"
	"github.com/kktt667/Pair-Finder/internal/metrics"
	"github.com/kktt667/Pair-Finder/internal/model"
	"github.com/kktt667/Pair-Finder/internal/strategy"
)

// DefaultSymbolTimeout bounds the whole history fetch of one symbol.
const DefaultSymbolTimeout = 2 * time.Minute

// Collector runs the per-symbol pipeline: fetch, compute, evaluate, filter.
type Collector struct {
	Fetcher Fetcher
	// Timeout covers every page and retry of one symbol's fetch. Fetchers
	// bound their single requests themselves.
	Timeout time.Duration
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, timeout time.Duration) *Collector {
	if timeout <= 0 {
		timeout = DefaultSymbolTimeout
	}
	return &Collector{Fetcher: fetcher, Timeout: timeout}
}

// Fetch retrieves enough history for params and returns it as a normalised series.
func (c *Collector) Fetch(ctx context.Context, symbol string, params model.ScanParameters) (model.CandleSeries, error) {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	started := time.Now()
	bars, err := c.Fetcher.FetchCandles(ctx, symbol, params.Interval, params.FetchLimit())
	metrics.ObserveFetch(c.Fetcher.Name(), started)
	if err != nil {
		return model.CandleSeries{}, err
	}
	bars = model.NormalizeCandles(bars)
	if len(bars) == 0 {
		return model.CandleSeries{}, fmt.Errorf("%s: %w", symbol, ErrEmptyResult)
	}
	return model.CandleSeries{Symbol: symbol, Interval: params.Interval, Candles: bars}, nil
}

// Analyze runs one symbol through the scan pipeline. A nil result with a
// nil error means the symbol was rejected: no alert fired on a bar opening
// within [now - LookbackDays, now], or the series was too short.
func (c *Collector) Analyze(ctx context.Context, symbol string, params model.ScanParameters, now time.Time) (*model.SignalResult, error) {
	series, err := c.Fetch(ctx, symbol, params)
	if err != nil {
		return nil, err
	}
	return Evaluate(series, params, now)
}

// Evaluate computes indicator and alerts for an already fetched series and
// cuts the lookback tail. See Analyze for the rejection rules.
func Evaluate(series model.CandleSeries, params model.ScanParameters, now time.Time) (*model.SignalResult, error) {
	ind, err := calculator.ComputeIndicator(series, params)
	var short *calculator.InsufficientDataError
	if errors.As(err, &short) {
		logger.Debugf("[collector] %s rejected: %v", series.Symbol, err)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	alerts, err := strategy.EvaluateAlerts(series, ind, params)
	if err != nil {
		return nil, err
	}

	from, to := Window(series, now, params.LookbackDays)
	for i := from; i < to; i++ {
		if alerts.AnyAt(i) {
			res := &model.SignalResult{
				Symbol:    series.Symbol,
				Candles:   series.Candles[from:to],
				Indicator: ind.Slice(from, to),
				Alerts:    alerts.Slice(from, to),
			}
			if to >= 2 {
				res.PrevClose = series.Candles[to-2].Close
			}
			return res, nil
		}
	}
	return nil, nil
}

// Window returns the index range [from, to) of bars whose open time lies
// in [now - days, now]. Both bounds are inclusive in time.
func Window(series model.CandleSeries, now time.Time, days int) (from, to int) {
	start := now.Add(-time.Duration(days) * 24 * time.Hour)
	from, to = series.Len(), series.Len()
	for i, c := range series.Candles {
		if c.Time.After(now) {
			to = i
			break
		}
		if from == series.Len() && !c.Time.Before(start) {
			from = i
		}
	}
	if from > to {
		from = to
	}
	return from, to
}

// Detail fetches and recomputes the full series of one symbol.
func (c *Collector) Detail(ctx context.Context, symbol string, params model.ScanParameters) (*model.Detail, error) {
	series, err := c.Fetch(ctx, symbol, params)
	if err != nil {
		return nil, fmt.Errorf("detail %s: %w", symbol, err)
	}
	ind, err := calculator.ComputeIndicator(series, params)
	if err != nil {
		return nil, fmt.Errorf("detail %s: %w", symbol, err)
	}
	alerts, err := strategy.EvaluateAlerts(series, ind, params)
	if err != nil {
		return nil, fmt.Errorf("detail %s: %w", symbol, err)
	}
	return &model.Detail{Series: series, Indicator: ind, Alerts: alerts, Params: params}, nil
}
