package domain

import (
	"errors"
	"fmt"
)

// FetchKind classifies source retrieval failures for operator triage.
type FetchKind string

const (
	FetchNetwork FetchKind = "network"
	FetchHTTP    FetchKind = "http"
	FetchParse   FetchKind = "parse"
	FetchTimeout FetchKind = "timeout"
)

// ConfigError reports a required setting that is absent or unusable.
// It is fatal to the importer that needs the setting.
type ConfigError struct {
	Setting string
	Reason  string
}

func (e *ConfigError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("missing required setting %q", e.Setting)
	}
	return fmt.Sprintf("missing required setting %q: %s", e.Setting, e.Reason)
}

// FetchError reports a source retrieval failure, contained per source.
type FetchError struct {
	Kind   FetchKind
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s (%s): %v", e.Source, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ComplianceError reports a source that is not lawfully fetchable. It is
// tagged distinctly from FetchError so operators can triage policy blocks.
type ComplianceError struct {
	URL    string
	Reason string
}

func (e *ComplianceError) Error() string {
	return fmt.Sprintf("compliance: %s not fetchable: %s", e.URL, e.Reason)
}

// PersistError reports a failure writing or committing a versioned row.
type PersistError struct {
	Op  string
	Err error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Op, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

// ErrorKind maps a taxonomy error to its short operator-facing tag.
func ErrorKind(err error) string {
	var (
		configErr     *ConfigError
		fetchErr      *FetchError
		complianceErr *ComplianceError
		persistErr    *PersistError
	)
	switch {
	case errors.As(err, &configErr):
		return "configuration"
	case errors.As(err, &complianceErr):
		return "compliance"
	case errors.As(err, &fetchErr):
		return "fetch"
	case errors.As(err, &persistErr):
		return "persistence"
	default:
		return "unexpected"
	}
}
