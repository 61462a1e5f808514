package importer

import (
	"context"
	"fmt"
	"io"

	"PriceScanner/internal/domain"
)

// Request carries all parameters required to execute one fetch.
type Request struct {
	SourceName string
	Options    map[string]string
}

// RecordReader yields canonical records one at a time. The sequence is lazy,
// finite and non-restartable; Next returns io.EOF after the last record.
type RecordReader interface {
	Next() (domain.CanonicalRecord, error)
}

// Importer captures a single source strategy (CSV, Excel, HTML, API, ...).
type Importer interface {
	Name() string
	Fetch(ctx context.Context, req Request) (RecordReader, error)
}

// SliceReader adapts an eagerly built slice to the RecordReader contract.
type SliceReader struct {
	records []domain.CanonicalRecord
	pos     int
}

// NewSliceReader wraps records in a reader.
func NewSliceReader(records []domain.CanonicalRecord) *SliceReader {
	return &SliceReader{records: records}
}

// Next returns the next record or io.EOF.
func (s *SliceReader) Next() (domain.CanonicalRecord, error) {
	if s.pos >= len(s.records) {
		return domain.CanonicalRecord{}, io.EOF
	}
	rec := s.records[s.pos]
	s.pos++
	return rec, nil
}

// Registry keeps a mapping from importer names to their implementations.
type Registry struct {
	importers map[string]Importer
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{importers: map[string]Importer{}}
}

// Register adds or replaces an importer implementation.
func (r *Registry) Register(imp Importer) {
	if r.importers == nil {
		r.importers = map[string]Importer{}
	}
	r.importers[imp.Name()] = imp
}

// Resolve returns an importer by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Importer, error) {
	if imp, ok := r.importers[name]; ok {
		return imp, nil
	}
	return nil, fmt.Errorf("importer %s is not registered", name)
}
