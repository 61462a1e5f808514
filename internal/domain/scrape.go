package domain

import "time"

// ScrapeSource configures one supplier endpoint for the concurrent fetch
// orchestrator. Only the last-sync health fields mutate after creation.
type ScrapeSource struct {
	ID           int64
	OrgID        string
	Name         string
	URL          string
	Domain       string
	RateLimitSec int
	CacheTTLSec  int
	Enabled      bool

	LastSyncAt     *time.Time
	LastSyncStatus string
	LastSyncItems  int
	LastSyncError  string
}

// Delay converts the configured per-source rate limit to a duration,
// falling back to def when unset.
func (s ScrapeSource) Delay(def time.Duration) time.Duration {
	if s.RateLimitSec <= 0 {
		return def
	}
	return time.Duration(s.RateLimitSec) * time.Second
}

// MarkSyncSuccess records a successful fetch on the health fields.
func (s *ScrapeSource) MarkSyncSuccess(items int, at time.Time) {
	s.LastSyncAt = &at
	s.LastSyncStatus = "success"
	s.LastSyncItems = items
	s.LastSyncError = ""
}

// MarkSyncFailure records a failed fetch on the health fields.
func (s *ScrapeSource) MarkSyncFailure(err error, at time.Time) {
	s.LastSyncAt = &at
	s.LastSyncStatus = "failed"
	s.LastSyncItems = 0
	if err != nil {
		s.LastSyncError = err.Error()
	}
}

// ScrapedProduct is the validated intermediate built once from the raw
// extractor payload, so stringly-typed lookups never travel further.
type ScrapedProduct struct {
	VendorCode  string
	Description string
	Unit        string
	UnitPrice   *float64
	Currency    string
	URL         string
	SourceName  string
}

// DuplicateSource identifies one competing offer for a vendor code.
type DuplicateSource struct {
	SourceName string
	UnitPrice  *float64
	URL        string
}

// PriceVariance summarizes price spread across duplicate offers.
type PriceVariance struct {
	Min          float64
	Max          float64
	Mean         float64
	VariancePct  float64
	SourcesCount int
}

// DedupedProduct is a canonical product with its competing offers attached.
type DedupedProduct struct {
	ScrapedProduct
	DuplicateSources []DuplicateSource
	Variance         *PriceVariance
}

// SourceFailure pairs a source with the error that took it out of a run.
type SourceFailure struct {
	SourceName string
	Err        error
	Compliance bool
}

// MultiSourceStats aggregates counts over one concurrent fan-out run.
type MultiSourceStats struct {
	SourcesAttempted  int
	SourcesSucceeded  int
	SourcesFailed     int
	TotalProducts     int
	UniqueProducts    int
	DuplicatesRemoved int
}

// MultiSourceResult is the ephemeral aggregation returned by the concurrent
// fan-out orchestrator.
type MultiSourceResult struct {
	Products  []DedupedProduct
	BySource  map[string][]ScrapedProduct
	Failures  []SourceFailure
	Stats     MultiSourceStats
	StartedAt time.Time
	Duration  time.Duration
}
