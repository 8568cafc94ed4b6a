package scanner

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/kktt667/Pair-Finder/internal/model"
)

// ErrUnknownSymbol is returned when selecting a symbol the last scan did not accept.
var ErrUnknownSymbol = errors.New("symbol not in scan results")

// Summarize reduces accepted results to one row per symbol, ordered by symbol.
func Summarize(results []model.SignalResult) []model.SummaryRow {
	rows := make([]model.SummaryRow, 0, len(results))
	for _, r := range results {
		n := len(r.Candles)
		if n == 0 {
			continue
		}
		last := r.Candles[n-1]
		row := model.SummaryRow{
			Symbol: r.Symbol,
			Time:   last.Time,
			Open:   last.Open,
			High:   last.High,
			Low:    last.Low,
			Close:  last.Close,
			Volume: last.Volume,
		}
		prev := r.PrevClose
		if n >= 2 {
			prev = r.Candles[n-2].Close
		}
		row.PercentChange = PercentChange(prev, last.Close)
		for i := 0; i < r.Alerts.Len(); i++ {
			tiers := r.Alerts.TiersAt(i)
			for k := range tiers {
				row.Tiers[k] = row.Tiers[k] || tiers[k]
			}
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Symbol < rows[j].Symbol })
	return rows
}

// PercentChange is the move from prev to last in percent. Zero when prev is
// zero, which also covers a series with a single bar.
func PercentChange(prev, last float64) float64 {
	if prev == 0 {
		return 0
	}
	return (last - prev) / prev * 100
}

// Session holds the last completed scan and the symbol selected for
// inspection. It is owned by the caller and safe for concurrent use.
type Session struct {
	mu       sync.RWMutex
	report   *Report
	selected string
}

// NewSession creates an empty session.
func NewSession() *Session { return &Session{} }

// Replace swaps in a completed scan. A nil report is ignored. The selection
// survives only if the symbol is still among the results.
func (s *Session) Replace(r *Report) {
	if r == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.report = r
	if _, ok := find(r, s.selected); !ok {
		s.selected = ""
	}
}

// Report returns the last completed scan, or nil.
func (s *Session) Report() *Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.report
}

// Results returns the accepted results of the last scan.
func (s *Session) Results() []model.SignalResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.report == nil {
		return nil
	}
	return s.report.Results
}

// Result returns the accepted result for symbol.
func (s *Session) Result(symbol string) (model.SignalResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return find(s.report, symbol)
}

// Params returns the parameters of the last scan.
func (s *Session) Params() (model.ScanParameters, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.report == nil {
		return model.ScanParameters{}, false
	}
	return s.report.Params, true
}

// Summary returns the summary table of the last scan.
func (s *Session) Summary() []model.SummaryRow {
	return Summarize(s.Results())
}

// Select marks symbol for inspection.
func (s *Session) Select(symbol string) error {
	_, err := s.choose(symbol)
	return err
}

// choose selects symbol and returns the parameters of the scan that
// accepted it, read under the same lock.
func (s *Session) choose(symbol string) (model.ScanParameters, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := find(s.report, symbol); !ok {
		return model.ScanParameters{}, fmt.Errorf("select %q: %w", symbol, ErrUnknownSymbol)
	}
	s.selected = symbol
	return s.report.Params, nil
}

// Selected returns the selected symbol, or "".
func (s *Session) Selected() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

func find(r *Report, symbol string) (model.SignalResult, bool) {
	if r == nil || symbol == "" {
		return model.SignalResult{}, false
	}
	for _, res := range r.Results {
		if res.Symbol == symbol {
			return res, true
		}
	}
	return model.SignalResult{}, false
}

// SelectDetail selects symbol in the session and recomputes its full series
// with the parameters of the scan that accepted it.
func (s *Scanner) SelectDetail(ctx context.Context, session *Session, symbol string) (*model.Detail, error) {
	params, err := session.choose(symbol)
	if err != nil {
		return nil, err
	}
	return s.Collector.Detail(ctx, symbol, params)
}
