package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"PriceScanner/internal/domain"
)

// Run executes one importer fetch and streams every yielded record through
// apply. It measures duration, counts records, and converts any fetch failure
// into a terminal FAILED result; no source-level failure escapes this
// boundary. Record-level outcomes (inserted/updated/...) are apply's concern
// and are overlaid by the caller.
func Run(ctx context.Context, imp Importer, req Request, apply func(domain.CanonicalRecord) error) domain.ImportResult {
	start := time.Now()
	result := domain.ImportResult{SourceName: req.SourceName}

	reader, err := imp.Fetch(ctx, req)
	if err != nil {
		return failed(result, req.SourceName, err, start)
	}

	for {
		rec, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			res := failed(result, req.SourceName, err, start)
			if result.Records > 0 {
				res.Message = fmt.Sprintf("fetch aborted after %d records: %v", result.Records, err)
			}
			return res
		}

		result.Records++
		if applyErr := apply(rec); applyErr != nil {
			// apply only refuses on fatal conditions such as a cancelled
			// context; record-level failures stay inside the updater.
			return failed(result, req.SourceName, applyErr, start)
		}
	}

	result.Status = domain.StatusSuccess
	result.Message = fmt.Sprintf("fetched %d records", result.Records)
	result.Duration = time.Since(start)
	return result
}

func failed(result domain.ImportResult, source string, err error, start time.Time) domain.ImportResult {
	var (
		configErr *domain.ConfigError
		fetchErr  *domain.FetchError
	)
	if !errors.As(err, &configErr) && !errors.As(err, &fetchErr) {
		err = &domain.FetchError{Kind: domain.FetchNetwork, Source: source, Err: err}
	}
	result.Status = domain.StatusFailed
	result.ErrorKind = domain.ErrorKind(err)
	result.ErrorInfo = err.Error()
	result.Message = err.Error()
	result.Duration = time.Since(start)
	return result
}
