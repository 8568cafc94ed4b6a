package scheduler

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kktt667/Pair-Finder/internal/collector"
	"github.com/kktt667/Pair-Finder/internal/model"
	"github.com/kktt667/Pair-Finder/internal/recorder"
	"github.com/kktt667/Pair-Finder/internal/scanner"
	"github.com/kktt667/Pair-Finder/internal/testutil"
)

type captureNotifier struct {
	mu   sync.Mutex
	sent []string
}

func (c *captureNotifier) SendWithRetry(_ context.Context, text string, _ int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, text)
	return nil
}

func (c *captureNotifier) messages() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.sent...)
}

func newTestScheduler(t *testing.T, mock *collector.MockFetcher, rec recorder.Recorder) (*Scheduler, *captureNotifier) {
	t.Helper()
	sc := scanner.New(collector.NewCollector(mock, time.Second), 4)
	sc.Now = func() time.Time { return testutil.BarTime(59) }
	n := &captureNotifier{}
	s := NewScheduler(context.Background(), sc, scanner.NewSession(), n, rec, testutil.ReversalParams())
	return s, n
}

func reversalMock() *collector.MockFetcher {
	return collector.NewMockFetcher().
		Add(testutil.ReversalSeries("XYZUSDT")).
		Add(testutil.FlatSeries("FLATUSDT", 60, 10)).
		Fail("BADUSDT", errors.New("boom"))
}

func TestRunScan(t *testing.T) {
	rec, err := recorder.NewSQLiteRecorder(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer rec.Close()

	s, n := newTestScheduler(t, reversalMock(), rec)
	report, err := s.RunScan(context.Background(), TriggerHTTP, s.Params)
	require.NoError(t, err)

	assert.Equal(t, []string{"XYZUSDT"}, report.Accepted())
	assert.Same(t, report, s.Session.Report())
	assert.False(t, s.Running())

	msgs := n.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "XYZUSDT")
	assert.Contains(t, msgs[0], "1 symbols failed")

	runs, err := rec.RecentScans(5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, report.RunID, runs[0].RunID)
	assert.Equal(t, TriggerHTTP, runs[0].Trigger)
	assert.Equal(t, 3, runs[0].Symbols)
	assert.Equal(t, 1, runs[0].Accepted)
	assert.Equal(t, 1, runs[0].Rejected)

	failed, err := rec.FailureCount(report.RunID)
	require.NoError(t, err)
	assert.Equal(t, 1, failed)
}

func TestRunScan_StaticSymbols(t *testing.T) {
	mock := reversalMock()
	s, _ := newTestScheduler(t, mock, nil)
	s.Symbols = []string{"FLATUSDT"}

	report, err := s.RunScan(context.Background(), TriggerCron, s.Params)
	require.NoError(t, err)
	assert.Empty(t, report.Results)
	assert.Equal(t, 0, mock.Calls("XYZUSDT"))
}

func TestRunScan_EmptyUniverse(t *testing.T) {
	s, n := newTestScheduler(t, reversalMock(), nil)
	_, err := s.RunScan(context.Background(), TriggerCron, s.Params)
	require.NoError(t, err)
	require.NotEmpty(t, s.Session.Results())

	s.Scanner.Collector.Fetcher = collector.NewMockFetcher()
	report, err := s.RunScan(context.Background(), TriggerCron, s.Params)
	require.NoError(t, err)
	assert.Empty(t, report.Symbols)
	assert.Empty(t, report.Results)
	assert.Same(t, report, s.Session.Report())
	assert.Empty(t, s.Session.Results())

	msgs := n.messages()
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[1], "No active signals")
}

func TestRunScan_InvalidParamsKeepsSession(t *testing.T) {
	s, n := newTestScheduler(t, reversalMock(), nil)
	_, err := s.RunScan(context.Background(), TriggerHTTP, s.Params)
	require.NoError(t, err)
	prev := s.Session.Report()

	bad := s.Params
	bad.WindowPeriod = 0
	_, err = s.RunScan(context.Background(), TriggerHTTP, bad)
	var cfgErr *model.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Same(t, prev, s.Session.Report())
	assert.Len(t, n.messages(), 1)
}

func TestRunScan_CancelledKeepsSession(t *testing.T) {
	mock := reversalMock()
	s, n := newTestScheduler(t, mock, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.RunScan(ctx, TriggerHTTP, s.Params)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, s.Session.Report())
	assert.Empty(t, n.messages())
}

func TestRunScan_RejectsOverlap(t *testing.T) {
	mock := reversalMock()
	mock.Delay = 200 * time.Millisecond
	s, _ := newTestScheduler(t, mock, nil)

	done := make(chan error, 1)
	go func() {
		_, err := s.RunScan(context.Background(), TriggerCron, s.Params)
		done <- err
	}()
	require.Eventually(t, s.Running, time.Second, 5*time.Millisecond)

	_, err := s.RunScan(context.Background(), TriggerHTTP, s.Params)
	assert.ErrorIs(t, err, ErrScanInProgress)
	require.NoError(t, <-done)
}

func TestHandleCommand(t *testing.T) {
	s, n := newTestScheduler(t, reversalMock(), nil)
	ctx := context.Background()

	assert.Contains(t, s.HandleCommand(ctx, "/signals"), "No scan has completed")
	assert.Contains(t, s.HandleCommand(ctx, "/help"), "/detail SYMBOL")
	assert.Contains(t, s.HandleCommand(ctx, "hello"), "/scan")

	assert.Empty(t, s.HandleCommand(ctx, "/scan@pairfinder_bot"))
	assert.Len(t, n.messages(), 1)

	assert.Contains(t, s.HandleCommand(ctx, "/signals"), "XYZUSDT")
	assert.Equal(t, "Usage: /detail SYMBOL", s.HandleCommand(ctx, "/detail"))
	assert.Contains(t, s.HandleCommand(ctx, "/detail flatusdt"), "FLATUSDT is not in the last scan results")

	detail := s.HandleCommand(ctx, "/detail xyzusdt")
	assert.True(t, strings.HasPrefix(detail, "🔎 <b>XYZUSDT</b>"), detail)
	assert.Equal(t, "XYZUSDT", s.Session.Selected())
}

func TestRegister(t *testing.T) {
	s, _ := newTestScheduler(t, reversalMock(), nil)
	require.NoError(t, s.Register(""))
	assert.Empty(t, s.Cron.Entries())

	require.NoError(t, s.Register("0 5 0 * * *"))
	assert.Len(t, s.Cron.Entries(), 1)

	assert.Error(t, s.Register("not a cron spec"))
}
