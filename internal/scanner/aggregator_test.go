package scanner

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kktt667/Pair-Finder/internal/collector"
	"github.com/kktt667/Pair-Finder/internal/model"
	"github.com/kktt667/Pair-Finder/internal/testutil"
)

func TestSummarize(t *testing.T) {
	results := []model.SignalResult{
		{
			Symbol:  "ZED",
			Candles: []model.Candle{{Time: testutil.BarTime(0), Close: 50, Volume: 7}},
			Alerts:  model.NewAlertFrame(1),
		},
		{
			Symbol: "ABC",
			Candles: []model.Candle{
				{Time: testutil.BarTime(0), Close: 100},
				{Time: testutil.BarTime(1), Open: 101, High: 112, Low: 99, Close: 110, Volume: 3},
			},
			Alerts: model.AlertFrame{
				Alert1: []bool{true, false},
				Alert2: []bool{false, false},
				Alert3: []bool{false, false},
				Alert4: []bool{false, true},
			},
		},
		{Symbol: "EMPTY"},
	}

	rows := Summarize(results)
	require.Len(t, rows, 2)

	assert.Equal(t, "ABC", rows[0].Symbol)
	assert.InDelta(t, 10.0, rows[0].PercentChange, 1e-9)
	assert.Equal(t, 112.0, rows[0].High)
	assert.Equal(t, testutil.BarTime(1), rows[0].Time)
	assert.Equal(t, [4]bool{true, false, false, true}, rows[0].Tiers)

	assert.Equal(t, "ZED", rows[1].Symbol)
	assert.Equal(t, 0.0, rows[1].PercentChange)
	assert.Equal(t, 7.0, rows[1].Volume)
}

func TestPercentChange(t *testing.T) {
	assert.InDelta(t, -50.0, PercentChange(2, 1), 1e-12)
	assert.Equal(t, 0.0, PercentChange(0, 1))
}

func TestSession(t *testing.T) {
	s := NewSession()
	assert.Nil(t, s.Results())
	_, ok := s.Params()
	assert.False(t, ok)
	assert.ErrorIs(t, s.Select("XYZ"), ErrUnknownSymbol)

	first := &Report{
		Params:  testutil.ReversalParams(),
		Results: []model.SignalResult{{Symbol: "XYZ"}, {Symbol: "ABC"}},
	}
	s.Replace(first)
	require.NoError(t, s.Select("XYZ"))
	assert.Equal(t, "XYZ", s.Selected())
	params, ok := s.Params()
	assert.True(t, ok)
	assert.Equal(t, testutil.ReversalParams(), params)

	s.Replace(nil)
	assert.Same(t, first, s.Report())

	s.Replace(&Report{Results: []model.SignalResult{{Symbol: "XYZ"}}})
	assert.Equal(t, "XYZ", s.Selected())

	s.Replace(&Report{Results: []model.SignalResult{{Symbol: "ABC"}}})
	assert.Equal(t, "", s.Selected())
	_, ok = s.Result("ABC")
	assert.True(t, ok)
}

func TestSession_ChooseReturnsAcceptingParams(t *testing.T) {
	s := NewSession()
	old := testutil.ReversalParams()
	s.Replace(&Report{Params: old, Results: []model.SignalResult{{Symbol: "XYZ"}}})

	params, err := s.choose("XYZ")
	require.NoError(t, err)
	assert.Equal(t, old, params)

	next := old
	next.LookbackDays = 3
	s.Replace(&Report{Params: next, Results: []model.SignalResult{{Symbol: "ABC"}}})
	_, err = s.choose("XYZ")
	assert.ErrorIs(t, err, ErrUnknownSymbol)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		i := i
		wg.Add(2)
		go func() {
			defer wg.Done()
			if i%2 == 0 {
				s.Replace(&Report{Params: old, Results: []model.SignalResult{{Symbol: "XYZ"}}})
			} else {
				s.Replace(&Report{Params: next, Results: []model.SignalResult{{Symbol: "ABC"}}})
			}
		}()
		go func() {
			defer wg.Done()
			if p, err := s.choose("XYZ"); err == nil {
				assert.Equal(t, old, p)
			}
		}()
	}
	wg.Wait()
}

func TestSelectDetail_UsesScanParams(t *testing.T) {
	mock := collector.NewMockFetcher().Add(testutil.ReversalSeries("XYZ"))
	sc := New(collector.NewCollector(mock, time.Second), 2)
	sc.Now = func() time.Time { return testutil.BarTime(59) }

	report, err := sc.Scan(context.Background(), []string{"XYZ"}, testutil.ReversalParams())
	require.NoError(t, err)
	session := NewSession()
	session.Replace(report)

	detail, err := sc.SelectDetail(context.Background(), session, "XYZ")
	require.NoError(t, err)
	assert.Equal(t, "XYZ", session.Selected())
	assert.Equal(t, report.Params, detail.Params)
	assert.Equal(t, 60, detail.Series.Len())
	assert.True(t, detail.Alerts.Alert2[45])

	// the tail held by the session matches the recomputation
	res, ok := session.Result("XYZ")
	require.True(t, ok)
	assert.Equal(t, detail.Indicator.WVF[45], res.Indicator.WVF[0])

	_, err = sc.SelectDetail(context.Background(), session, "NOPE")
	assert.ErrorIs(t, err, ErrUnknownSymbol)
}

func TestSummarize_OneBarWindow(t *testing.T) {
	full := testutil.ReversalSeries("XYZ")
	cut := model.CandleSeries{Symbol: "XYZ", Interval: "D", Candles: full.Candles[:46]}
	mock := collector.NewMockFetcher().Add(cut)
	sc := New(collector.NewCollector(mock, time.Second), 1)
	sc.Now = func() time.Time { return testutil.BarTime(45).Add(time.Hour) }

	params := testutil.ReversalParams()
	params.LookbackDays = 1
	report, err := sc.Scan(context.Background(), []string{"XYZ"}, params)
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	require.Len(t, report.Results[0].Candles, 1)

	rows := Summarize(report.Results)
	require.Len(t, rows, 1)
	// bar 44 closes at 124, bar 45 at 126.5
	assert.InDelta(t, 2.5/124*100, rows[0].PercentChange, 1e-9)
}
