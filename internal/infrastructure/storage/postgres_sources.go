package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"PriceScanner/internal/domain"
	"PriceScanner/internal/ports"
)

const scrapeSourcesTable = "scrape_sources"

// PostgresScrapeSources serves supplier endpoint configurations.
type PostgresScrapeSources struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var _ ports.ScrapeSourceRepository = (*PostgresScrapeSources)(nil)

// NewPostgresScrapeSources wires a sql.DB implementation.
func NewPostgresScrapeSources(db *sql.DB) *PostgresScrapeSources {
	return &PostgresScrapeSources{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// ListEnabled returns the org's enabled sources ordered by name, so fan-out
// input is deterministic run to run.
func (r *PostgresScrapeSources) ListEnabled(ctx context.Context, orgID string) ([]domain.ScrapeSource, error) {
	query, args, err := r.builder.
		Select(
			"id", "org_id", "name", "url", "domain",
			"rate_limit_seconds", "cache_ttl_seconds", "enabled",
			"last_sync_at", "last_sync_status", "last_sync_items", "last_sync_error",
		).
		From(scrapeSourcesTable).
		Where(sq.Eq{"org_id": orgID, "enabled": true}).
		OrderBy("name").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list enabled: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query enabled sources: %w", err)
	}
	defer rows.Close()

	var sources []domain.ScrapeSource
	for rows.Next() {
		var (
			src      domain.ScrapeSource
			syncAt   sql.NullTime
			status   sql.NullString
			syncErr  sql.NullString
			lastSeen sql.NullInt64
		)
		err := rows.Scan(
			&src.ID, &src.OrgID, &src.Name, &src.URL, &src.Domain,
			&src.RateLimitSec, &src.CacheTTLSec, &src.Enabled,
			&syncAt, &status, &lastSeen, &syncErr,
		)
		if err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		if syncAt.Valid {
			src.LastSyncAt = &syncAt.Time
		}
		src.LastSyncStatus = status.String
		src.LastSyncItems = int(lastSeen.Int64)
		src.LastSyncError = syncErr.String
		sources = append(sources, src)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sources: %w", err)
	}
	return sources, nil
}

// UpdateHealth writes back the source's last-sync health fields; all other
// columns stay untouched.
func (r *PostgresScrapeSources) UpdateHealth(ctx context.Context, src *domain.ScrapeSource) error {
	query, args, err := r.builder.
		Update(scrapeSourcesTable).
		Set("last_sync_at", src.LastSyncAt).
		Set("last_sync_status", src.LastSyncStatus).
		Set("last_sync_items", src.LastSyncItems).
		Set("last_sync_error", src.LastSyncError).
		Where(sq.Eq{"id": src.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update health: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update health for %s: %w", src.Name, err)
	}
	return nil
}
