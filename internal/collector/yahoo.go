package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kktt667/Pair-Finder/internal/model"
)

const DefaultYahooURL = "https://query1.finance.yahoo.com"

// YahooFetcher serves candles for a fixed stock or index universe from the
// Yahoo Finance chart API.
type YahooFetcher struct {
	BaseURL   string
	Symbols   []string
	SymbolMap map[string]string // internal symbol -> Yahoo ticker
	Client    *http.Client
}

// NewYahooFetcher creates a Yahoo Finance fetcher over the given universe.
func NewYahooFetcher(symbols []string, proxyURL string) *YahooFetcher {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &YahooFetcher{
		BaseURL: DefaultYahooURL,
		Symbols: symbols,
		SymbolMap: map[string]string{
			"SPX500": "^GSPC",
			"SPX":    "^GSPC",
			"NDX":    "^NDX",
		},
		Client: &http.Client{Transport: transport, Timeout: DefaultRequestTimeout},
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

// ListSymbols returns the configured universe.
func (f *YahooFetcher) ListSymbols(context.Context) ([]string, error) {
	if len(f.Symbols) == 0 {
		return nil, fmt.Errorf("yahoo: no symbols configured: %w", ErrEmptyResult)
	}
	out := make([]string, len(f.Symbols))
	copy(out, f.Symbols)
	return out, nil
}

type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// FetchCandles maps the interval onto Yahoo's, requests a range wide enough
// for limit bars and trims the answer to the newest limit bars.
func (f *YahooFetcher) FetchCandles(ctx context.Context, symbol, interval string, limit int) ([]model.Candle, error) {
	yInterval, ok := yahooIntervals[strings.ToUpper(interval)]
	if !ok {
		return nil, &APIError{Code: http.StatusBadRequest, Message: fmt.Sprintf("yahoo: interval %q not supported", interval)}
	}
	barLen, _ := model.IntervalDuration(interval)
	rng := yahooRange(time.Duration(limit) * barLen)

	ticker := symbol
	if mapped, ok := f.SymbolMap[symbol]; ok {
		ticker = mapped
	}
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=%s&range=%s",
		strings.TrimRight(f.BaseURL, "/"), url.PathEscape(ticker), yInterval, rng)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: "yahoo chart " + symbol, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Op: "yahoo chart " + symbol, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Code: resp.StatusCode, Message: truncate(string(body), 200)}
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("yahoo chart %s: %w: %v", symbol, ErrMalformedResponse, err)
	}
	if e := chart.Chart.Error; e != nil {
		return nil, &APIError{Code: http.StatusOK, Message: e.Code + ": " + e.Description}
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("yahoo chart %s: %w", symbol, ErrEmptyResult)
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	bars := make([]model.Candle, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		o, h, l, c := at(quote.Open, i), at(quote.High, i), at(quote.Low, i), at(quote.Close, i)
		// holidays and halted sessions come back as nulls
		if o == nil || h == nil || l == nil || c == nil {
			continue
		}
		var vol float64
		if v := at(quote.Volume, i); v != nil {
			vol = *v
		}
		bars = append(bars, model.Candle{
			Time:   time.Unix(ts, 0).UTC(),
			Open:   *o,
			High:   *h,
			Low:    *l,
			Close:  *c,
			Volume: vol,
		})
	}
	bars = model.NormalizeCandles(bars)
	if len(bars) == 0 {
		return nil, fmt.Errorf("yahoo chart %s: %w", symbol, ErrEmptyResult)
	}
	if limit > 0 && len(bars) > limit {
		bars = bars[len(bars)-limit:]
	}
	return bars, nil
}

var yahooIntervals = map[string]string{
	"1":  "1m",
	"5":  "5m",
	"15": "15m",
	"30": "30m",
	"60": "60m",
	"D":  "1d",
	"W":  "1wk",
	"M":  "1mo",
}

func yahooRange(span time.Duration) string {
	day := 24 * time.Hour
	// daily bars cover trading days only
	span = span * 7 / 5
	switch {
	case span <= 5*day:
		return "5d"
	case span <= 30*day:
		return "1mo"
	case span <= 90*day:
		return "3mo"
	case span <= 180*day:
		return "6mo"
	case span <= 365*day:
		return "1y"
	case span <= 2*365*day:
		return "2y"
	case span <= 5*365*day:
		return "5y"
	case span <= 10*365*day:
		return "10y"
	default:
		return "max"
	}
}

func at(s []*float64, i int) *float64 {
	if i >= len(s) {
		return nil
	}
	return s[i]
}
