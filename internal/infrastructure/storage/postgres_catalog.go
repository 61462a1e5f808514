package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"PriceScanner/internal/domain"
	"PriceScanner/internal/ports"
)

const priceVersionsTable = "price_versions"

var priceVersionColumns = []string{
	"id", "item_code", "region", "class_code", "description", "unit",
	"unit_price", "currency", "vat_rate", "dimensions", "material",
	"source_name", "source_currency", "vendor_id", "sku",
	"original_effective_date", "vendor_note",
	"valid_from", "valid_to", "is_current", "last_checked_at",
}

var savepointName = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// PostgresCatalog opens SCD2 sessions over a Postgres database.
type PostgresCatalog struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var _ ports.PriceCatalog = (*PostgresCatalog)(nil)

// NewPostgresCatalog wires a sql.DB implementation.
func NewPostgresCatalog(db *sql.DB) *PostgresCatalog {
	return &PostgresCatalog{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Begin starts one source's session as a database transaction.
func (c *PostgresCatalog) Begin(ctx context.Context) (ports.PriceSession, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin session: %w", err)
	}
	return &postgresSession{tx: tx, builder: c.builder}, nil
}

type postgresSession struct {
	tx      *sql.Tx
	builder sq.StatementBuilderType
}

func (s *postgresSession) FindCurrent(ctx context.Context, key domain.PriceKey) (*domain.PriceVersion, error) {
	query, args, err := s.builder.
		Select(priceVersionColumns...).
		From(priceVersionsTable).
		Where(sq.Eq{"item_code": key.ItemCode, "region": key.Region, "is_current": true}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build find current: %w", err)
	}

	row := s.tx.QueryRowContext(ctx, query, args...)
	v, err := scanVersion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find current %s/%s: %w", key.ItemCode, key.Region, err)
	}
	return v, nil
}

func (s *postgresSession) InsertVersion(ctx context.Context, v *domain.PriceVersion) error {
	query, args, err := s.builder.
		Insert(priceVersionsTable).
		Columns(priceVersionColumns[1:]...).
		Values(
			v.ItemCode, v.Region, v.ClassCode, v.Description, v.Unit,
			v.UnitPrice, v.Currency, v.VATRate, v.Dimensions, v.Material,
			v.SourceName, v.SourceCurrency, v.VendorID, v.SKU,
			v.OriginalEffective, v.VendorNote,
			v.ValidFrom, v.ValidTo, v.IsCurrent, v.LastCheckedAt,
		).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert version: %w", err)
	}

	if err := s.tx.QueryRowContext(ctx, query, args...).Scan(&v.ID); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			// The partial unique index on (item_code, region) WHERE is_current
			// caught a second current row.
			return fmt.Errorf("current-row uniqueness violated for %s/%s: %w", v.ItemCode, v.Region, err)
		}
		return fmt.Errorf("insert version %s/%s: %w", v.ItemCode, v.Region, err)
	}
	return nil
}

func (s *postgresSession) ExpireVersion(ctx context.Context, id int64, at time.Time) error {
	query, args, err := s.builder.
		Update(priceVersionsTable).
		Set("valid_to", at).
		Set("is_current", false).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build expire version: %w", err)
	}
	if _, err := s.tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("expire version %d: %w", id, err)
	}
	return nil
}

func (s *postgresSession) TouchChecked(ctx context.Context, id int64, at time.Time) error {
	query, args, err := s.builder.
		Update(priceVersionsTable).
		Set("last_checked_at", at).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build touch checked: %w", err)
	}
	if _, err := s.tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("touch checked %d: %w", id, err)
	}
	return nil
}

func (s *postgresSession) Savepoint(ctx context.Context, name string) error {
	return s.savepointExec(ctx, "SAVEPOINT", name)
}

func (s *postgresSession) ReleaseSavepoint(ctx context.Context, name string) error {
	return s.savepointExec(ctx, "RELEASE SAVEPOINT", name)
}

func (s *postgresSession) RollbackSavepoint(ctx context.Context, name string) error {
	return s.savepointExec(ctx, "ROLLBACK TO SAVEPOINT", name)
}

func (s *postgresSession) savepointExec(ctx context.Context, verb, name string) error {
	if !savepointName.MatchString(name) {
		return fmt.Errorf("invalid savepoint name %q", name)
	}
	if _, err := s.tx.ExecContext(ctx, verb+" "+name); err != nil {
		return fmt.Errorf("%s %s: %w", verb, name, err)
	}
	return nil
}

func (s *postgresSession) Commit() error {
	return s.tx.Commit()
}

func (s *postgresSession) Rollback() error {
	return s.tx.Rollback()
}

func scanVersion(row *sql.Row) (*domain.PriceVersion, error) {
	var (
		v        domain.PriceVersion
		vatRate  sql.NullFloat64
		origDate sql.NullTime
		validTo  sql.NullTime
	)

	err := row.Scan(
		&v.ID, &v.ItemCode, &v.Region, &v.ClassCode, &v.Description, &v.Unit,
		&v.UnitPrice, &v.Currency, &vatRate, &v.Dimensions, &v.Material,
		&v.SourceName, &v.SourceCurrency, &v.VendorID, &v.SKU,
		&origDate, &v.VendorNote,
		&v.ValidFrom, &validTo, &v.IsCurrent, &v.LastCheckedAt,
	)
	if err != nil {
		return nil, err
	}

	if vatRate.Valid {
		v.VATRate = &vatRate.Float64
	}
	if origDate.Valid {
		v.OriginalEffective = &origDate.Time
	}
	if validTo.Valid {
		v.ValidTo = &validTo.Time
	}
	return &v, nil
}
