package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"PriceScanner/internal/domain"
	"PriceScanner/internal/ports"
)

// PostgresSyncLogs appends audit rows for pipeline runs.
type PostgresSyncLogs struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var _ ports.SyncLogRepository = (*PostgresSyncLogs)(nil)

// NewPostgresSyncLogs wires a sql.DB implementation.
func NewPostgresSyncLogs(db *sql.DB) *PostgresSyncLogs {
	return &PostgresSyncLogs{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// SaveBatch writes one row per source inside a single commit.
func (r *PostgresSyncLogs) SaveBatch(ctx context.Context, entries []domain.SyncLogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	insert := r.builder.Insert("sync_logs").Columns(
		"run_id", "source_name", "status",
		"records", "inserted", "updated", "unchanged", "failed",
		"message", "started_at", "finished_at",
	)
	for _, e := range entries {
		insert = insert.Values(
			e.RunID, e.SourceName, string(e.Status),
			e.Records, e.Inserted, e.Updated, e.Unchanged, e.Failed,
			e.Message, e.StartedAt, e.FinishedAt,
		)
	}

	query, args, err := insert.ToSql()
	if err != nil {
		return fmt.Errorf("build sync log insert: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin sync log batch: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert sync logs: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit sync logs: %w", err)
	}
	return nil
}
