package scanner

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kktt667/Pair-Finder/internal/collector"
	"github.com/kktt667/Pair-Finder/internal/model"
	"github.com/kktt667/Pair-Finder/internal/testutil"
)

func newScanner(f collector.Fetcher, workers int) *Scanner {
	s := New(collector.NewCollector(f, time.Second), workers)
	s.Now = func() time.Time { return testutil.BarTime(59) }
	return s
}

func TestScan_EndToEnd(t *testing.T) {
	mock := collector.NewMockFetcher().
		Add(testutil.ReversalSeries("XYZ")).
		Add(testutil.FlatSeries("FLAT", 60, 10))

	report, err := newScanner(mock, 4).Scan(context.Background(), []string{"XYZ", "FLAT"}, testutil.ReversalParams())
	require.NoError(t, err)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, []string{"XYZ"}, report.Accepted())
	assert.Equal(t, []string{"FLAT"}, report.Rejected)
	assert.Empty(t, report.Failures)
	assert.False(t, report.FinishedAt.Before(report.StartedAt))

	rows := Summarize(report.Results)
	require.Len(t, rows, 1)
	assert.Equal(t, "XYZ", rows[0].Symbol)
	assert.InDelta(t, 132.1, rows[0].Close, 1e-9)
	assert.InDelta(t, (132.1-131.7)/131.7*100, rows[0].PercentChange, 1e-9)
	assert.Equal(t, [4]bool{false, true, true, false}, rows[0].Tiers)
}

func TestScan_LookbackExcludesOldAlert(t *testing.T) {
	mock := collector.NewMockFetcher().Add(testutil.ReversalSeries("XYZ"))
	params := testutil.ReversalParams()
	params.LookbackDays = 13

	report, err := newScanner(mock, 1).Scan(context.Background(), []string{"XYZ"}, params)
	require.NoError(t, err)
	assert.Empty(t, report.Results)
	assert.Equal(t, []string{"XYZ"}, report.Rejected)
}

func TestScan_IsolatesFailures(t *testing.T) {
	mock := collector.NewMockFetcher()
	symbols := []string{"A", "B", "C", "D", "E"}
	for _, s := range symbols {
		mock.Add(testutil.ReversalSeries(s))
	}
	mock.Fail("C", &collector.NetworkError{Op: "kline C", Err: errors.New("connection reset")})

	report, err := newScanner(mock, 3).Scan(context.Background(), symbols, testutil.ReversalParams())
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "D", "E"}, report.Accepted())
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "C", report.Failures[0].Symbol)

	var netErr *collector.NetworkError
	assert.True(t, errors.As(report.Failures[0].Err, &netErr))
	for _, s := range symbols {
		assert.Equal(t, 1, mock.Calls(s))
	}
}

func TestScan_DeterministicAcrossPoolSizes(t *testing.T) {
	mock := collector.NewMockFetcher().Add(testutil.ReversalSeries("XYZ"))
	symbols := []string{"XYZ"}
	for seed := int64(1); seed <= 40; seed++ {
		sym := fmt.Sprintf("RW%02d", seed)
		mock.Add(testutil.RandomWalk(sym, 60, seed))
		symbols = append(symbols, sym)
	}
	mock.Delay = time.Millisecond
	params := testutil.ReversalParams()

	one, err := newScanner(mock, 1).Scan(context.Background(), symbols, params)
	require.NoError(t, err)
	ten, err := newScanner(mock, 10).Scan(context.Background(), symbols, params)
	require.NoError(t, err)

	assert.Contains(t, one.Accepted(), "XYZ")
	assert.Equal(t, one.Accepted(), ten.Accepted())
	assert.Equal(t, one.Rejected, ten.Rejected)
	assert.Equal(t, len(symbols), len(one.Results)+len(one.Rejected))
}

func TestScan_InvalidParamsFetchNothing(t *testing.T) {
	mock := collector.NewMockFetcher().Add(testutil.ReversalSeries("XYZ"))
	params := testutil.ReversalParams()
	params.WindowPeriod = 0

	report, err := newScanner(mock, 2).Scan(context.Background(), []string{"XYZ"}, params)
	assert.Nil(t, report)
	var cfgErr *model.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Zero(t, mock.TotalCalls())
}

func TestScan_Empty(t *testing.T) {
	report, err := newScanner(collector.NewMockFetcher(), 2).Scan(context.Background(), nil, testutil.ReversalParams())
	require.NoError(t, err)
	assert.Empty(t, report.Results)
	assert.Empty(t, Summarize(report.Results))
}

func TestScan_Dedupes(t *testing.T) {
	mock := collector.NewMockFetcher().Add(testutil.ReversalSeries("XYZ"))
	report, err := newScanner(mock, 2).Scan(context.Background(), []string{"XYZ", "", "XYZ"}, testutil.ReversalParams())
	require.NoError(t, err)
	assert.Equal(t, []string{"XYZ"}, report.Symbols)
	assert.Equal(t, 1, mock.Calls("XYZ"))
}

func TestScan_Cancelled(t *testing.T) {
	mock := collector.NewMockFetcher()
	var symbols []string
	for i := 0; i < 20; i++ {
		sym := fmt.Sprintf("S%02d", i)
		mock.Add(testutil.ReversalSeries(sym))
		symbols = append(symbols, sym)
	}
	mock.Delay = 50 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	report, err := newScanner(mock, 2).Scan(ctx, symbols, testutil.ReversalParams())
	assert.Nil(t, report)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, mock.TotalCalls(), len(symbols))
}

type panicFetcher struct{ *collector.MockFetcher }

func (p panicFetcher) FetchCandles(ctx context.Context, symbol, interval string, limit int) ([]model.Candle, error) {
	if symbol == "BOOM" {
		panic("decoder exploded")
	}
	return p.MockFetcher.FetchCandles(ctx, symbol, interval, limit)
}

func TestScan_RecoversPanickingSymbol(t *testing.T) {
	mock := collector.NewMockFetcher().Add(testutil.ReversalSeries("XYZ"))
	report, err := newScanner(panicFetcher{mock}, 2).Scan(context.Background(), []string{"BOOM", "XYZ"}, testutil.ReversalParams())
	require.NoError(t, err)
	assert.Equal(t, []string{"XYZ"}, report.Accepted())
	require.Len(t, report.Failures, 1)
	assert.Contains(t, report.Failures[0].Message, "decoder exploded")
}
