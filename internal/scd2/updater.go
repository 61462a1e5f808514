// Package scd2 applies canonical records against the versioned price store,
// maintaining at most one current row per business key.
package scd2

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"PriceScanner/internal/domain"
	"PriceScanner/internal/ports"
)

// Stats are the accumulated outcome counters of one updater instance.
type Stats struct {
	Inserted  int
	Updated   int
	Unchanged int
	Failed    int
}

// Updater is bound to one persistence session and must process records
// strictly sequentially: the one-current-row invariant depends on each
// record seeing the previous record's effect, even for repeated keys.
type Updater struct {
	session ports.PriceSession
	logger  *slog.Logger
	stats   Stats
	seq     int
	now     func() time.Time
}

// New binds an updater to a session.
func New(session ports.PriceSession, logger *slog.Logger) *Updater {
	return &Updater{session: session, logger: logger, now: time.Now}
}

// Process applies one record. Any failure is contained at record granularity:
// it is rolled back to the record's savepoint, counted as failed, and
// returned for observability only. Callers continue with the next record.
func (u *Updater) Process(ctx context.Context, rec domain.CanonicalRecord) error {
	rec = rec.Normalized()

	u.seq++
	sp := fmt.Sprintf("rec_%d", u.seq)
	if err := u.session.Savepoint(ctx, sp); err != nil {
		u.stats.Failed++
		return &domain.PersistError{Op: "savepoint", Err: err}
	}

	if err := u.apply(ctx, rec); err != nil {
		if rbErr := u.session.RollbackSavepoint(ctx, sp); rbErr != nil {
			u.warn("rollback savepoint", "savepoint", sp, "error", rbErr)
		}
		u.stats.Failed++
		u.warn("record failed", "item_code", rec.ItemCode, "region", rec.Region, "error", err)
		return err
	}

	if err := u.session.ReleaseSavepoint(ctx, sp); err != nil {
		u.warn("release savepoint", "savepoint", sp, "error", err)
	}
	return nil
}

func (u *Updater) apply(ctx context.Context, rec domain.CanonicalRecord) error {
	now := u.now()

	current, err := u.session.FindCurrent(ctx, rec.Key())
	if err != nil {
		return &domain.PersistError{Op: "find current", Err: err}
	}

	if current == nil {
		if err := u.session.InsertVersion(ctx, domain.NewVersionFrom(rec, now)); err != nil {
			return &domain.PersistError{Op: "insert version", Err: err}
		}
		u.stats.Inserted++
		return nil
	}

	// A currency change alone forces a new version: price is only meaningful
	// in its source-currency context.
	if current.UnitPrice == rec.UnitPrice && current.SourceCurrency == rec.SourceCurrency {
		if err := u.session.TouchChecked(ctx, current.ID, now); err != nil {
			return &domain.PersistError{Op: "touch checked", Err: err}
		}
		u.stats.Unchanged++
		return nil
	}

	// Expire before inserting the replacement so the store never transiently
	// holds two current rows for the key.
	if err := u.session.ExpireVersion(ctx, current.ID, now); err != nil {
		return &domain.PersistError{Op: "expire version", Err: err}
	}
	if err := u.session.InsertVersion(ctx, domain.NewVersionFrom(rec, now)); err != nil {
		return &domain.PersistError{Op: "insert replacement", Err: err}
	}
	u.stats.Updated++
	return nil
}

// Commit finalizes the bound session.
func (u *Updater) Commit() error {
	if err := u.session.Commit(); err != nil {
		return &domain.PersistError{Op: "commit", Err: err}
	}
	return nil
}

// Rollback abandons the bound session.
func (u *Updater) Rollback() error {
	if err := u.session.Rollback(); err != nil {
		return &domain.PersistError{Op: "rollback", Err: err}
	}
	return nil
}

// Stats returns a snapshot of the counters without mutating state.
func (u *Updater) Stats() Stats {
	return u.stats
}

func (u *Updater) warn(msg string, args ...any) {
	if u.logger != nil {
		u.logger.Warn(msg, args...)
	}
}
