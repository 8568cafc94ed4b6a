package recorder

import "time"

// ScanRun is the journal entry of one completed scan. It records counts
// and failures only; accepted signals are not persisted.
type ScanRun struct {
	RunID        string       `json:"run_id"`
	Trigger      string       `json:"trigger"` // "cron", "telegram", "http", "startup"
	StartedAt    time.Time    `json:"started_at"`
	FinishedAt   time.Time    `json:"finished_at"`
	Interval     string       `json:"interval"`
	LookbackDays int          `json:"lookback_days"`
	Symbols      int          `json:"symbols"`
	Accepted     int          `json:"accepted"`
	Rejected     int          `json:"rejected"`
	Failures     []RunFailure `json:"failures,omitempty"`
}

// RunFailure is a symbol whose task failed during a run.
type RunFailure struct {
	Symbol string `json:"symbol"`
	Error  string `json:"error"`
}

// Recorder keeps a journal of scan runs.
type Recorder interface {
	RecordScan(run *ScanRun) error
	RecentScans(limit int) ([]ScanRun, error)
	Close() error
}
