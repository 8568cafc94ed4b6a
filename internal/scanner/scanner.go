// Package scanner fans a symbol universe out over a bounded worker pool and
// collects the symbols whose Vix Fix alerts fired recently.
package scanner

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kktt667/Pair-Finder/internal/collector"
	"github.com/kktt667/Pair-Finder/internal/logger"
	"github.com/kktt667/Pair-Finder/internal/metrics"
	"github.com/kktt667/Pair-Finder/internal/model"
)

// DefaultWorkers is the pool size when none is configured.
const DefaultWorkers = 10

// Failure records a symbol whose task could not complete.
type Failure struct {
	Symbol  string `json:"symbol"`
	Message string `json:"error"`
	Err     error  `json:"-"`
}

// Report is the outcome of one completed scan.
type Report struct {
	RunID      string               `json:"run_id"`
	StartedAt  time.Time            `json:"started_at"`
	FinishedAt time.Time            `json:"finished_at"`
	Params     model.ScanParameters `json:"params"`
	Symbols    []string             `json:"symbols"`
	Results    []model.SignalResult `json:"results"`
	Rejected   []string             `json:"rejected"`
	Failures   []Failure            `json:"failures"`
}

// Accepted returns the accepted symbols in result order.
func (r *Report) Accepted() []string {
	out := make([]string, len(r.Results))
	for i, res := range r.Results {
		out[i] = res.Symbol
	}
	return out
}

// Scanner runs scans. It holds no per-scan state and may run scans concurrently.
type Scanner struct {
	Collector *collector.Collector
	Workers   int
	Now       func() time.Time
}

// New creates a scanner over the given collector.
func New(c *collector.Collector, workers int) *Scanner {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Scanner{Collector: c, Workers: workers, Now: time.Now}
}

type outcome struct {
	symbol string
	result *model.SignalResult
	err    error
}

// Scan analyses every symbol and returns the accepted ones.
//
// Invalid parameters fail the scan before any fetch. Per-symbol failures are
// recorded in the report and never abort the scan. If ctx is cancelled the
// scan returns ctx.Err() and no report.
func (s *Scanner) Scan(ctx context.Context, symbols []string, params model.ScanParameters) (*Report, error) {
	if err := params.Validate(); err != nil {
		metrics.ObserveScan("invalid", time.Now(), 0)
		return nil, err
	}

	report := &Report{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
		Params:    params,
		Symbols:   dedupe(symbols),
	}
	now := s.Now()
	log := logger.With("run_id", report.RunID)
	log.Info().
		Int("symbols", len(report.Symbols)).
		Str("interval", params.Interval).
		Int("lookback_days", params.LookbackDays).
		Int("workers", s.workers()).
		Msg("scan started")

	outcomes := make(chan outcome, s.workers())
	collected := make(chan struct{})
	go func() {
		defer close(collected)
		for o := range outcomes {
			switch {
			case o.err != nil:
				metrics.ObserveTask(metrics.StateFailed)
				log.Warn().Str("symbol", o.symbol).Err(o.err).Msg("symbol failed")
				report.Failures = append(report.Failures, Failure{Symbol: o.symbol, Message: o.err.Error(), Err: o.err})
			case o.result == nil:
				metrics.ObserveTask(metrics.StateRejected)
				report.Rejected = append(report.Rejected, o.symbol)
			default:
				metrics.ObserveTask(metrics.StateAccepted)
				log.Debug().Str("symbol", o.symbol).Msg("symbol accepted")
				report.Results = append(report.Results, *o.result)
			}
		}
	}()

	var g errgroup.Group
	g.SetLimit(s.workers())
	for _, sym := range report.Symbols {
		sym := sym
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			res, err := s.analyze(ctx, sym, params, now)
			if ctx.Err() != nil {
				return nil
			}
			outcomes <- outcome{symbol: sym, result: res, err: err}
			return nil
		})
	}
	_ = g.Wait()
	close(outcomes)
	<-collected

	if err := ctx.Err(); err != nil {
		metrics.ObserveScan("cancelled", report.StartedAt, 0)
		log.Warn().Err(err).Msg("scan cancelled")
		return nil, err
	}

	sort.Slice(report.Results, func(i, j int) bool { return report.Results[i].Symbol < report.Results[j].Symbol })
	sort.Strings(report.Rejected)
	sort.Slice(report.Failures, func(i, j int) bool { return report.Failures[i].Symbol < report.Failures[j].Symbol })
	report.FinishedAt = time.Now()

	metrics.ObserveScan("ok", report.StartedAt, len(report.Results))
	log.Info().
		Int("accepted", len(report.Results)).
		Int("rejected", len(report.Rejected)).
		Int("failed", len(report.Failures)).
		Dur("took", report.FinishedAt.Sub(report.StartedAt)).
		Msg("scan finished")
	return report, nil
}

// analyze keeps a panicking symbol from taking the scan down.
func (s *Scanner) analyze(ctx context.Context, symbol string, params model.ScanParameters, now time.Time) (res *model.SignalResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("%s: panic: %v", symbol, r)
		}
	}()
	return s.Collector.Analyze(ctx, symbol, params, now)
}

func (s *Scanner) workers() int {
	if s.Workers <= 0 {
		return DefaultWorkers
	}
	return s.Workers
}

func dedupe(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		if sym == "" {
			continue
		}
		if _, ok := seen[sym]; ok {
			continue
		}
		seen[sym] = struct{}{}
		out = append(out, sym)
	}
	return out
}
