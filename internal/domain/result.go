package domain

import "time"

// ImportStatus enumerates per-source run outcomes.
type ImportStatus string

const (
	StatusSuccess        ImportStatus = "success"
	StatusFailed         ImportStatus = "failed"
	StatusPartialSuccess ImportStatus = "partial_success"
	StatusSkipped        ImportStatus = "skipped"
)

// ImportResult is the immutable outcome of running one importer.
type ImportResult struct {
	SourceName string
	Status     ImportStatus
	Records    int
	Inserted   int
	Updated    int
	Unchanged  int
	Failed     int
	Message    string
	ErrorKind  string
	ErrorInfo  string
	Duration   time.Duration
}

// IsFailure reports whether the result represents any kind of failure.
func (r ImportResult) IsFailure() bool {
	return r.Status == StatusFailed || r.Status == StatusPartialSuccess
}

// SyncLogEntry is one append-only audit row per source per orchestrator run.
type SyncLogEntry struct {
	RunID      string
	SourceName string
	Status     ImportStatus
	Records    int
	Inserted   int
	Updated    int
	Unchanged  int
	Failed     int
	Message    string
	StartedAt  time.Time
	FinishedAt time.Time
}
