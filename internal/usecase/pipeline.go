package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"PriceScanner/internal/config"
	"PriceScanner/internal/domain"
	"PriceScanner/internal/importer"
	"PriceScanner/internal/ports"
	"PriceScanner/internal/scd2"
)

// PipelineDeps wires all driven adapters into the import orchestrator.
type PipelineDeps struct {
	Registry *importer.Registry
	Catalog  ports.PriceCatalog
	SyncLogs ports.SyncLogRepository
	Alerts   ports.AlertSink
	Sources  []config.SourceConfig
	Logger   *slog.Logger
}

// Pipeline runs the configured importers one at a time, each against its own
// updater session, so a later source's failure never touches an earlier
// source's committed work.
type Pipeline struct {
	registry *importer.Registry
	catalog  ports.PriceCatalog
	syncLogs ports.SyncLogRepository
	alerts   ports.AlertSink
	sources  []config.SourceConfig
	logger   *slog.Logger
}

// Summary aggregates one pipeline run.
type Summary struct {
	RunID        string
	Total        int
	Succeeded    int
	Failed       int
	AllSucceeded bool
	Results      []domain.ImportResult
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	return &Pipeline{
		registry: deps.Registry,
		catalog:  deps.Catalog,
		syncLogs: deps.SyncLogs,
		alerts:   deps.Alerts,
		sources:  deps.Sources,
		logger:   deps.Logger,
	}
}

// Run executes every configured source sequentially, writes the audit batch,
// and surfaces aggregated failures to the alert sink. Per-source failures are
// converted to results, never raised out of the run.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	if p.registry == nil || p.catalog == nil {
		return Summary{}, fmt.Errorf("pipeline is not configured")
	}

	summary := Summary{RunID: uuid.NewString(), Total: len(p.sources)}
	entries := make([]domain.SyncLogEntry, 0, len(p.sources))

	for _, src := range p.sources {
		startedAt := time.Now()
		result := p.runSource(ctx, src)
		summary.Results = append(summary.Results, result)
		entries = append(entries, logEntry(summary.RunID, result, startedAt))

		if result.Status == domain.StatusSuccess {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
		p.info("source finished",
			"source", src.Name,
			"status", string(result.Status),
			"records", result.Records,
			"inserted", result.Inserted,
			"updated", result.Updated,
			"unchanged", result.Unchanged,
			"failed", result.Failed,
		)
	}

	if p.syncLogs != nil {
		if err := p.syncLogs.SaveBatch(ctx, entries); err != nil {
			p.warn("persist sync logs", "error", err)
		}
	}

	p.reportFailures(ctx, summary)

	summary.AllSucceeded = summary.Failed == 0
	return summary, nil
}

// runSource is the per-source isolation boundary: everything that can go
// wrong below it comes back as a result, not an error.
func (p *Pipeline) runSource(ctx context.Context, src config.SourceConfig) domain.ImportResult {
	imp, err := p.registry.Resolve(src.Importer)
	if err != nil {
		return configFailure(src.Name, err)
	}

	session, err := p.catalog.Begin(ctx)
	if err != nil {
		return persistFailure(src.Name, "begin session", err)
	}

	updater := scd2.New(session, p.logger)
	req := importer.Request{SourceName: src.Name, Options: src.Options}

	result := importer.Run(ctx, imp, req, func(rec domain.CanonicalRecord) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		// Record-level failures are contained and counted by the updater.
		_ = updater.Process(ctx, rec)
		return nil
	})

	stats := updater.Stats()
	result.Inserted = stats.Inserted
	result.Updated = stats.Updated
	result.Unchanged = stats.Unchanged
	result.Failed = stats.Failed

	if result.Status == domain.StatusFailed && result.Records == 0 {
		if err := updater.Rollback(); err != nil {
			p.warn("rollback failed source", "source", src.Name, "error", err)
		}
		return result
	}

	// Commit whatever was applied, even when the fetch broke mid-stream:
	// each source's work is persisted independently.
	if err := updater.Commit(); err != nil {
		result.Status = domain.StatusFailed
		result.ErrorKind = domain.ErrorKind(err)
		result.ErrorInfo = err.Error()
		result.Message = err.Error()
		return result
	}

	if result.Status == domain.StatusSuccess && stats.Failed > 0 {
		result.Status = domain.StatusPartialSuccess
		result.Message = fmt.Sprintf("%d of %d records failed", stats.Failed, result.Records)
	}
	if result.Status == domain.StatusFailed && result.Records > 0 {
		result.Status = domain.StatusPartialSuccess
	}
	return result
}

func (p *Pipeline) reportFailures(ctx context.Context, summary Summary) {
	var failures []domain.ImportResult
	for _, result := range summary.Results {
		if result.IsFailure() {
			failures = append(failures, result)
		}
	}
	if len(failures) == 0 {
		return
	}

	for _, failure := range failures {
		p.warn("source failed",
			"run_id", summary.RunID,
			"source", failure.SourceName,
			"status", string(failure.Status),
			"kind", failure.ErrorKind,
			"detail", failure.ErrorInfo,
		)
	}
	if p.alerts != nil {
		if err := p.alerts.NotifyFailures(ctx, summary.RunID, failures); err != nil {
			p.warn("alert sink", "error", err)
		}
	}
}

func logEntry(runID string, result domain.ImportResult, startedAt time.Time) domain.SyncLogEntry {
	return domain.SyncLogEntry{
		RunID:      runID,
		SourceName: result.SourceName,
		Status:     result.Status,
		Records:    result.Records,
		Inserted:   result.Inserted,
		Updated:    result.Updated,
		Unchanged:  result.Unchanged,
		Failed:     result.Failed,
		Message:    result.Message,
		StartedAt:  startedAt,
		FinishedAt: startedAt.Add(result.Duration),
	}
}

func configFailure(source string, err error) domain.ImportResult {
	return domain.ImportResult{
		SourceName: source,
		Status:     domain.StatusFailed,
		ErrorKind:  "configuration",
		ErrorInfo:  err.Error(),
		Message:    err.Error(),
	}
}

func persistFailure(source, op string, err error) domain.ImportResult {
	wrapped := &domain.PersistError{Op: op, Err: err}
	return domain.ImportResult{
		SourceName: source,
		Status:     domain.StatusFailed,
		ErrorKind:  domain.ErrorKind(wrapped),
		ErrorInfo:  wrapped.Error(),
		Message:    wrapped.Error(),
	}
}

func (p *Pipeline) info(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Info(msg, args...)
	}
}

func (p *Pipeline) warn(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}
