package collector

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/kktt667/Pair-Finder/internal/logger"
	"github.com/kktt667/Pair-Finder/internal/metrics"
	"github.com/kktt667/Pair-Finder/internal/model"
)

const (
	DefaultBybitURL = "https://api.bybit.com"

	// DefaultRequestTimeout bounds one HTTP attempt.
	DefaultRequestTimeout = 10 * time.Second

	bybitMaxLimit = 1000

	// retCodes Bybit uses for throttling on top of HTTP 429
	retCodeTooManyVisits = 10006
	retCodeIPBanned      = 10018
)

// BybitFetcher reads public market data from the Bybit v5 REST API.
type BybitFetcher struct {
	BaseURL  string
	Category string
	// QuoteCoin restricts ListSymbols to pairs quoted in this coin. Empty keeps all.
	QuoteCoin string
	// MinTurnover is the 24h turnover floor for ListSymbols, in quote units.
	MinTurnover float64

	// RequestTimeout bounds each attempt on its own; backoff waits are not
	// counted against it.
	RequestTimeout time.Duration
	MaxAttempts    int
	BaseBackoff    time.Duration
	MaxBackoff     time.Duration

	Client *http.Client
}

// NewBybitFetcher creates a fetcher for the linear perpetual market with optional proxy support.
func NewBybitFetcher(baseURL, proxyURL string) *BybitFetcher {
	if baseURL == "" {
		baseURL = DefaultBybitURL
	}
	transport := &http.Transport{MaxIdleConnsPerHost: 16}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &BybitFetcher{
		BaseURL:        strings.TrimRight(baseURL, "/"),
		Category:       "linear",
		QuoteCoin:      "USDT",
		RequestTimeout: DefaultRequestTimeout,
		MaxAttempts:    5,
		BaseBackoff:    500 * time.Millisecond,
		MaxBackoff:     8 * time.Second,
		Client:         &http.Client{Transport: transport},
	}
}

func (f *BybitFetcher) Name() string { return "bybit" }

// FetchCandles calls /v5/market/kline, paging back in time with the end
// parameter until limit bars are collected or the listing runs out. Bybit
// returns rows newest first as [startTime, open, high, low, close, volume,
// turnover] strings.
func (f *BybitFetcher) FetchCandles(ctx context.Context, symbol, interval string, limit int) ([]model.Candle, error) {
	limit = max(limit, 1)
	var bars []model.Candle
	var end int64
	for len(bars) < limit {
		want := min(limit-len(bars), bybitMaxLimit)
		page, err := f.fetchKlinePage(ctx, symbol, interval, want, end)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}
		bars = append(bars, page...)
		oldest := page[0].Time.UnixMilli()
		for _, c := range page[1:] {
			oldest = min(oldest, c.Time.UnixMilli())
		}
		if len(page) < want || (end > 0 && oldest > end) {
			break
		}
		end = oldest - 1
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("kline %s: %w", symbol, ErrEmptyResult)
	}
	return model.NormalizeCandles(bars), nil
}

func (f *BybitFetcher) fetchKlinePage(ctx context.Context, symbol, interval string, limit int, end int64) ([]model.Candle, error) {
	params := url.Values{}
	params.Set("category", f.Category)
	params.Set("symbol", symbol)
	params.Set("interval", interval)
	params.Set("limit", strconv.Itoa(limit))
	if end > 0 {
		params.Set("end", strconv.FormatInt(end, 10))
	}

	res, err := f.get(ctx, "/v5/market/kline", params)
	if err != nil {
		return nil, fmt.Errorf("kline %s: %w", symbol, err)
	}

	rows := res.Get("result.list").Array()
	bars := make([]model.Candle, 0, len(rows))
	for _, row := range rows {
		cols := row.Array()
		if len(cols) < 6 {
			return nil, fmt.Errorf("kline %s: row %s: %w", symbol, row.Raw, ErrMalformedResponse)
		}
		c := model.Candle{
			Time:   time.UnixMilli(cols[0].Int()).UTC(),
			Open:   cols[1].Float(),
			High:   cols[2].Float(),
			Low:    cols[3].Float(),
			Close:  cols[4].Float(),
			Volume: cols[5].Float(),
		}
		if len(cols) > 6 {
			c.Turnover = cols[6].Float()
		}
		bars = append(bars, c)
	}
	return bars, nil
}

// FetchTickers returns the 24h overview of every instrument in the category.
func (f *BybitFetcher) FetchTickers(ctx context.Context) ([]model.Ticker, error) {
	params := url.Values{}
	params.Set("category", f.Category)
	res, err := f.get(ctx, "/v5/market/tickers", params)
	if err != nil {
		return nil, fmt.Errorf("tickers: %w", err)
	}

	list := res.Get("result.list").Array()
	tickers := make([]model.Ticker, 0, len(list))
	for _, t := range list {
		tickers = append(tickers, model.Ticker{
			Symbol:            t.Get("symbol").String(),
			LastPrice:         t.Get("lastPrice").Float(),
			Turnover24h:       t.Get("turnover24h").Float(),
			OpenInterestValue: t.Get("openInterestValue").Float(),
			FundingRate:       t.Get("fundingRate").Float(),
			High24h:           t.Get("highPrice24h").Float(),
			Low24h:            t.Get("lowPrice24h").Float(),
			PriceChangePct:    t.Get("price24hPcnt").Float() * 100,
		})
	}
	return tickers, nil
}

// ListSymbols returns the tickers passing the quote coin and turnover filters,
// sorted. A quiet market can leave the list empty.
func (f *BybitFetcher) ListSymbols(ctx context.Context) ([]string, error) {
	tickers, err := f.FetchTickers(ctx)
	if err != nil {
		return nil, err
	}
	symbols := FilterTickers(tickers, f.QuoteCoin, f.MinTurnover)
	if len(symbols) == 0 {
		logger.Infof("[bybit] no %s symbol above %.0f turnover", f.QuoteCoin, f.MinTurnover)
	}
	return symbols, nil
}

// FilterTickers keeps symbols quoted in quoteCoin with at least minTurnover
// traded over 24h. Empty quoteCoin and zero minTurnover disable each filter.
func FilterTickers(tickers []model.Ticker, quoteCoin string, minTurnover float64) []string {
	var out []string
	for _, t := range tickers {
		if quoteCoin != "" && !strings.HasSuffix(t.Symbol, quoteCoin) {
			continue
		}
		if t.Turnover24h < minTurnover {
			continue
		}
		out = append(out, t.Symbol)
	}
	sort.Strings(out)
	return out
}

// get performs a public GET and retries throttled answers with capped
// exponential backoff, at most MaxAttempts times.
func (f *BybitFetcher) get(ctx context.Context, path string, params url.Values) (gjson.Result, error) {
	attempts := max(f.MaxAttempts, 1)
	endpoint := f.BaseURL + path + "?" + params.Encode()

	for attempt := 1; attempt <= attempts; attempt++ {
		res, throttled, err := f.attempt(ctx, endpoint)
		if !throttled {
			return res, err
		}
		if attempt == attempts {
			break
		}
		wait := backoff(f.BaseBackoff, f.MaxBackoff, attempt)
		metrics.FetchRetries.WithLabelValues(f.Name()).Inc()
		logger.Debugf("[bybit] %s throttled, retry %d/%d in %s", path, attempt, attempts-1, wait)
		if err := sleepCtx(ctx, wait); err != nil {
			return gjson.Result{}, &NetworkError{Op: path, Err: err}
		}
	}
	return gjson.Result{}, fmt.Errorf("%s: %w after %d attempts", path, ErrRateLimitExceeded, attempts)
}

func (f *BybitFetcher) attempt(ctx context.Context, endpoint string) (gjson.Result, bool, error) {
	if f.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.RequestTimeout)
		defer cancel()
	}
	return f.do(ctx, endpoint)
}

func (f *BybitFetcher) do(ctx context.Context, endpoint string) (res gjson.Result, throttled bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return gjson.Result{}, false, err
	}
	req.Header.Set("User-Agent", "pairfinder/1.0")

	resp, err := f.Client.Do(req)
	if err != nil {
		return gjson.Result{}, false, &NetworkError{Op: req.URL.Path, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, false, &NetworkError{Op: req.URL.Path, Err: err}
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return gjson.Result{}, true, nil
	}
	if resp.StatusCode != http.StatusOK {
		return gjson.Result{}, false, &APIError{Code: resp.StatusCode, Message: truncate(string(body), 200)}
	}
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, false, ErrMalformedResponse
	}

	res = gjson.ParseBytes(body)
	switch code := int(res.Get("retCode").Int()); code {
	case 0:
		return res, false, nil
	case retCodeTooManyVisits, retCodeIPBanned:
		return gjson.Result{}, true, nil
	default:
		return gjson.Result{}, false, &APIError{Code: code, Message: res.Get("retMsg").String()}
	}
}

func backoff(base, limit time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	d := base << (attempt - 1)
	if limit > 0 && (d > limit || d <= 0) {
		d = limit
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
