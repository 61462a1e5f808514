package importer_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PriceScanner/internal/domain"
	"PriceScanner/internal/importer"
)

type fakeImporter struct {
	name   string
	reader importer.RecordReader
	err    error
}

func (f *fakeImporter) Name() string { return f.name }

func (f *fakeImporter) Fetch(ctx context.Context, req importer.Request) (importer.RecordReader, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.reader, nil
}

// brokenReader yields n records and then fails.
type brokenReader struct {
	n    int
	pos  int
	fail error
}

func (b *brokenReader) Next() (domain.CanonicalRecord, error) {
	if b.pos >= b.n {
		return domain.CanonicalRecord{}, b.fail
	}
	b.pos++
	return domain.CanonicalRecord{ItemCode: "OK", Region: "msk", UnitPrice: 1}, nil
}

func record(code string) domain.CanonicalRecord {
	return domain.CanonicalRecord{
		ItemCode:  code,
		Region:    "msk",
		UnitPrice: 100,
		Currency:  "RUB",
	}
}

func TestRunAppliesEveryRecord(t *testing.T) {
	t.Parallel()

	imp := &fakeImporter{
		name: "csv",
		reader: importer.NewSliceReader([]domain.CanonicalRecord{
			record("CEM-42.5-50"), record("REB-A500-12"),
		}),
	}

	var applied []string
	result := importer.Run(context.Background(), imp, importer.Request{SourceName: "vendor"}, func(rec domain.CanonicalRecord) error {
		applied = append(applied, rec.ItemCode)
		return nil
	})

	assert.Equal(t, domain.StatusSuccess, result.Status)
	assert.Equal(t, 2, result.Records)
	assert.Equal(t, []string{"CEM-42.5-50", "REB-A500-12"}, applied)
	assert.Equal(t, "fetched 2 records", result.Message)
}

func TestRunTurnsFetchErrorIntoFailedResult(t *testing.T) {
	t.Parallel()

	imp := &fakeImporter{name: "csv", err: errors.New("connection refused")}
	result := importer.Run(context.Background(), imp, importer.Request{SourceName: "vendor"}, nil)

	assert.Equal(t, domain.StatusFailed, result.Status)
	assert.Equal(t, "fetch", result.ErrorKind)
	assert.Contains(t, result.ErrorInfo, "connection refused")
	assert.Zero(t, result.Records)
}

func TestRunKeepsConfigErrorKind(t *testing.T) {
	t.Parallel()

	imp := &fakeImporter{name: "csv", err: &domain.ConfigError{Setting: "path", Reason: "no file or url configured"}}
	result := importer.Run(context.Background(), imp, importer.Request{SourceName: "vendor"}, nil)

	assert.Equal(t, domain.StatusFailed, result.Status)
	assert.Equal(t, "configuration", result.ErrorKind)
}

func TestRunReportsMidStreamAbort(t *testing.T) {
	t.Parallel()

	imp := &fakeImporter{
		name:   "api",
		reader: &brokenReader{n: 3, fail: errors.New("page 2 unreachable")},
	}

	applied := 0
	result := importer.Run(context.Background(), imp, importer.Request{SourceName: "vendor"}, func(domain.CanonicalRecord) error {
		applied++
		return nil
	})

	assert.Equal(t, domain.StatusFailed, result.Status)
	assert.Equal(t, 3, result.Records)
	assert.Equal(t, 3, applied)
	assert.Contains(t, result.Message, "fetch aborted after 3 records")
}

func TestRunStopsWhenApplyRefuses(t *testing.T) {
	t.Parallel()

	imp := &fakeImporter{
		name:   "csv",
		reader: importer.NewSliceReader([]domain.CanonicalRecord{record("A"), record("B")}),
	}

	result := importer.Run(context.Background(), imp, importer.Request{SourceName: "vendor"}, func(domain.CanonicalRecord) error {
		return context.Canceled
	})

	assert.Equal(t, domain.StatusFailed, result.Status)
	assert.Equal(t, 1, result.Records)
}

func TestRegistryResolve(t *testing.T) {
	t.Parallel()

	reg := importer.NewRegistry()
	reg.Register(&fakeImporter{name: "csv"})

	imp, err := reg.Resolve("csv")
	require.NoError(t, err)
	assert.Equal(t, "csv", imp.Name())

	_, err = reg.Resolve("carrier-pigeon")
	assert.Error(t, err)
}
