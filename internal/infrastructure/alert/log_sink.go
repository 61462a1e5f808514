package alert

import (
	"context"
	"log/slog"

	"PriceScanner/internal/domain"
	"PriceScanner/internal/ports"
)

// LogSink is the shipped AlertSink: it records aggregated failures in the
// log. Actual delivery channels are owned by an external collaborator and
// plug in behind the same interface.
type LogSink struct {
	logger *slog.Logger
}

var _ ports.AlertSink = (*LogSink)(nil)

// NewLogSink wires a logger.
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// NotifyFailures emits one structured entry per failed source.
func (s *LogSink) NotifyFailures(ctx context.Context, runID string, failures []domain.ImportResult) error {
	if s.logger == nil {
		return nil
	}
	for _, failure := range failures {
		s.logger.Error("import failure requires attention",
			"run_id", runID,
			"source", failure.SourceName,
			"status", string(failure.Status),
			"kind", failure.ErrorKind,
			"detail", failure.ErrorInfo,
			"failed_records", failure.Failed,
		)
	}
	return nil
}
