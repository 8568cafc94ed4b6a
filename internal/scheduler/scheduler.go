package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/robfig/cron/v3"

	"github.com/kktt667/Pair-Finder/internal/logger"
	"github.com/kktt667/Pair-Finder/internal/model"
	"github.com/kktt667/Pair-Finder/internal/notifier"
	"github.com/kktt667/Pair-Finder/internal/recorder"
	"github.com/kktt667/Pair-Finder/internal/scanner"
)

// ErrScanInProgress is returned when a scan is requested while another runs.
var ErrScanInProgress = errors.New("a scan is already running")

// Scan triggers, journaled with each run.
const (
	TriggerCron     = "cron"
	TriggerTelegram = "telegram"
	TriggerHTTP     = "http"
	TriggerStartup  = "startup"
)

// detailBars is how many recent bars /detail lists alerts for.
const detailBars = 10

// Scheduler runs scans on a cron schedule and on demand, publishes the
// result into the session and reports it.
type Scheduler struct {
	Cron     *cron.Cron
	Scanner  *scanner.Scanner
	Session  *scanner.Session
	Notifier notifier.Notifier
	Recorder recorder.Recorder
	Params   model.ScanParameters
	// Symbols overrides the fetcher's symbol listing when set.
	Symbols []string
	Ctx     context.Context

	running atomic.Bool
}

// NewScheduler creates a new Scheduler. n may be nil to disable notifications.
func NewScheduler(ctx context.Context, sc *scanner.Scanner, session *scanner.Session, n notifier.Notifier, rec recorder.Recorder, params model.ScanParameters) *Scheduler {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds()),
		Scanner:  sc,
		Session:  session,
		Notifier: n,
		Recorder: rec,
		Params:   params,
		Ctx:      ctx,
	}
}

// Register schedules the periodic scan. An empty spec leaves scans manual.
func (s *Scheduler) Register(spec string) error {
	if strings.TrimSpace(spec) == "" {
		logger.Infof("no scan schedule configured")
		return nil
	}
	if _, err := s.Cron.AddFunc(spec, s.scheduledScan); err != nil {
		return fmt.Errorf("register scan task: %w", err)
	}
	logger.Infof("scan scheduled: %s", spec)
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	logger.Infof("scheduler started")
}

// Stop stops the cron scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	logger.Infof("scheduler stopped")
}

// RunScanNow runs a scan with the configured parameters (for RUN_ON_START).
func (s *Scheduler) RunScanNow() {
	if _, err := s.RunScan(s.Ctx, TriggerStartup, s.Params); err != nil {
		logger.Errorf("startup scan: %v", err)
	}
}

func (s *Scheduler) scheduledScan() {
	if _, err := s.RunScan(s.Ctx, TriggerCron, s.Params); err != nil {
		logger.Errorf("scheduled scan: %v", err)
	}
}

// RunScan lists the symbol universe, scans it, swaps the report into the
// session, sends the summary and journals the run. Only one scan runs at a
// time; a cancelled or rejected scan leaves the session untouched.
func (s *Scheduler) RunScan(ctx context.Context, trigger string, params model.ScanParameters) (*scanner.Report, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrScanInProgress
	}
	defer s.running.Store(false)

	symbols, err := s.universe(ctx)
	if err != nil {
		s.trySend(ctx, fmt.Sprintf("❌ Scan failed: could not list symbols: %v", err))
		return nil, fmt.Errorf("list symbols: %w", err)
	}

	report, err := s.Scanner.Scan(ctx, symbols, params)
	if err != nil {
		if ctx.Err() == nil {
			s.trySend(ctx, fmt.Sprintf("❌ Scan failed: %v", err))
		}
		return nil, err
	}
	s.Session.Replace(report)

	rows := scanner.Summarize(report.Results)
	s.trySend(ctx, notifier.FormatSummary(report.FinishedAt, report.Params, rows, len(report.Failures)))
	s.record(trigger, report)
	return report, nil
}

// Running reports whether a scan is in progress.
func (s *Scheduler) Running() bool { return s.running.Load() }

func (s *Scheduler) universe(ctx context.Context) ([]string, error) {
	if len(s.Symbols) > 0 {
		return s.Symbols, nil
	}
	symbols, err := s.Scanner.Collector.Fetcher.ListSymbols(ctx)
	if err != nil {
		return nil, err
	}
	if len(symbols) == 0 {
		logger.Warnf("symbol universe is empty, the scan reports no signals")
	}
	return symbols, nil
}

// HandleCommand processes a bot command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return notifier.FormatHelp()
	}
	// Group chats address commands as /cmd@botname.
	name, _, _ := strings.Cut(strings.ToLower(fields[0]), "@")

	switch name {
	case "/scan":
		if _, err := s.RunScan(ctx, TriggerTelegram, s.Params); err != nil {
			if errors.Is(err, ErrScanInProgress) {
				return "⏳ A scan is already running."
			}
			return fmt.Sprintf("❌ Scan failed: %v", err)
		}
		return ""
	case "/signals":
		report := s.Session.Report()
		if report == nil {
			return "No scan has completed yet. Send /scan to run one."
		}
		return notifier.FormatSummary(report.FinishedAt, report.Params, s.Session.Summary(), len(report.Failures))
	case "/detail":
		if len(fields) < 2 {
			return "Usage: /detail SYMBOL"
		}
		symbol := strings.ToUpper(fields[1])
		d, err := s.Scanner.SelectDetail(ctx, s.Session, symbol)
		if errors.Is(err, scanner.ErrUnknownSymbol) {
			return fmt.Sprintf("%s is not in the last scan results.", symbol)
		}
		if err != nil {
			return fmt.Sprintf("❌ %s: %v", symbol, err)
		}
		return notifier.FormatDetail(d, detailBars)
	default:
		return notifier.FormatHelp()
	}
}

func (s *Scheduler) record(trigger string, report *scanner.Report) {
	run := &recorder.ScanRun{
		RunID:        report.RunID,
		Trigger:      trigger,
		StartedAt:    report.StartedAt,
		FinishedAt:   report.FinishedAt,
		Interval:     report.Params.Interval,
		LookbackDays: report.Params.LookbackDays,
		Symbols:      len(report.Symbols),
		Accepted:     len(report.Results),
		Rejected:     len(report.Rejected),
	}
	for _, f := range report.Failures {
		run.Failures = append(run.Failures, recorder.RunFailure{Symbol: f.Symbol, Error: f.Message})
	}
	if err := s.Recorder.RecordScan(run); err != nil {
		logger.Errorf("record scan %s: %v", report.RunID, err)
	}
}

func (s *Scheduler) trySend(ctx context.Context, text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(ctx, text, 3); err != nil {
		logger.Errorf("send notification: %v", err)
	}
}
