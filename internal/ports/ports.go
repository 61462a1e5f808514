package ports

import (
	"context"
	"time"

	"PriceScanner/internal/domain"
)

// PriceCatalog opens versioned-store sessions. One session backs one
// source's updates so sources commit independently.
type PriceCatalog interface {
	Begin(ctx context.Context) (PriceSession, error)
}

// PriceSession is a single persistence session over the SCD2 price store.
// Savepoint operations scope individual records so one bad record never
// poisons the rest of the source's transaction.
type PriceSession interface {
	// FindCurrent returns the current version for the key, or nil.
	FindCurrent(ctx context.Context, key domain.PriceKey) (*domain.PriceVersion, error)
	InsertVersion(ctx context.Context, v *domain.PriceVersion) error
	ExpireVersion(ctx context.Context, id int64, at time.Time) error
	TouchChecked(ctx context.Context, id int64, at time.Time) error

	Savepoint(ctx context.Context, name string) error
	ReleaseSavepoint(ctx context.Context, name string) error
	RollbackSavepoint(ctx context.Context, name string) error

	Commit() error
	Rollback() error
}

// SyncLogRepository persists audit rows, one per source per run.
type SyncLogRepository interface {
	SaveBatch(ctx context.Context, entries []domain.SyncLogEntry) error
}

// ScrapeSourceRepository serves supplier endpoint configurations.
type ScrapeSourceRepository interface {
	// ListEnabled returns enabled sources for the org, ordered by name.
	ListEnabled(ctx context.Context, orgID string) ([]domain.ScrapeSource, error)
	// UpdateHealth writes back a source's last-sync health fields.
	UpdateHealth(ctx context.Context, src *domain.ScrapeSource) error
}

// Extractor is the external content-extraction collaborator. Transport
// timeouts and retries live behind this boundary.
type Extractor interface {
	Extract(ctx context.Context, url string, forceRefresh bool) ([]domain.ScrapedProduct, error)
}

// AlertSink receives aggregated failures after a pipeline run. Delivery is
// an external concern; implementations decide what to do with them.
type AlertSink interface {
	NotifyFailures(ctx context.Context, runID string, failures []domain.ImportResult) error
}

// Scheduler controls when pipeline runs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
