package collector

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/kktt667/Pair-Finder/internal/model"
)

// MockFetcher serves in-memory series for development and testing.
// It is safe for concurrent use.
type MockFetcher struct {
	// Delay is applied to every FetchCandles call.
	Delay time.Duration

	mu       sync.Mutex
	series   map[string][]model.Candle
	failures map[string]error
	calls    map[string]int
}

// NewMockFetcher creates an empty mock.
func NewMockFetcher() *MockFetcher {
	return &MockFetcher{
		series:   make(map[string][]model.Candle),
		failures: make(map[string]error),
		calls:    make(map[string]int),
	}
}

func (m *MockFetcher) Name() string { return "mock" }

// Add registers a series under its symbol.
func (m *MockFetcher) Add(series model.CandleSeries) *MockFetcher {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.series[series.Symbol] = series.Candles
	return m
}

// Fail makes every fetch of symbol return err. The symbol is still listed.
func (m *MockFetcher) Fail(symbol string, err error) *MockFetcher {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[symbol] = err
	return m
}

// Calls returns how many times symbol was fetched.
func (m *MockFetcher) Calls(symbol string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[symbol]
}

// TotalCalls returns the number of fetches across all symbols.
func (m *MockFetcher) TotalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		n += c
	}
	return n
}

// ListSymbols returns every registered symbol, sorted.
func (m *MockFetcher) ListSymbols(context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[string]struct{}, len(m.series)+len(m.failures))
	for s := range m.series {
		seen[s] = struct{}{}
	}
	for s := range m.failures {
		seen[s] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out, nil
}

// FetchCandles returns the newest limit bars of the registered series.
func (m *MockFetcher) FetchCandles(ctx context.Context, symbol, _ string, limit int) ([]model.Candle, error) {
	m.mu.Lock()
	m.calls[symbol]++
	bars, ok := m.series[symbol]
	failure := m.failures[symbol]
	m.mu.Unlock()

	if m.Delay > 0 {
		if err := sleepCtx(ctx, m.Delay); err != nil {
			return nil, &NetworkError{Op: "mock " + symbol, Err: err}
		}
	}
	if failure != nil {
		return nil, failure
	}
	if !ok || len(bars) == 0 {
		return nil, fmt.Errorf("mock %s: %w", symbol, ErrEmptyResult)
	}
	if limit > 0 && len(bars) > limit {
		bars = bars[len(bars)-limit:]
	}
	out := make([]model.Candle, len(bars))
	copy(out, bars)
	return out, nil
}

// NewDemoFetcher builds a mock over random-walk series ending at end, for
// dry runs without network access.
func NewDemoFetcher(symbols []string, interval string, bars int, end time.Time, seed int64) *MockFetcher {
	m := NewMockFetcher()
	step, ok := model.IntervalDuration(interval)
	if !ok {
		step = 24 * time.Hour
	}
	rng := rand.New(rand.NewSource(seed))
	for _, sym := range symbols {
		m.Add(model.CandleSeries{
			Symbol:   sym,
			Interval: interval,
			Candles:  generateMockBars(rng, 50+rng.Float64()*950, bars, end.Truncate(step), step),
		})
	}
	return m
}

func generateMockBars(rng *rand.Rand, basePrice float64, count int, end time.Time, step time.Duration) []model.Candle {
	bars := make([]model.Candle, count)
	p := basePrice
	for i := 0; i < count; i++ {
		open := p
		p *= 1 + rng.NormFloat64()*0.025
		bars[i] = model.Candle{
			Time:   end.Add(-time.Duration(count-1-i) * step),
			Open:   open,
			High:   max(open, p) * (1 + rng.Float64()*0.01),
			Low:    min(open, p) * (1 - rng.Float64()*0.01),
			Close:  p,
			Volume: 1e6 * (0.5 + rng.Float64()),
		}
	}
	return bars
}
