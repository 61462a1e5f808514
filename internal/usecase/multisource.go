package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"PriceScanner/internal/crawl"
	"PriceScanner/internal/domain"
	"PriceScanner/internal/ports"
)

// MultiSourceDeps wires the collaborators of the concurrent fetch.
type MultiSourceDeps struct {
	Sources      ports.ScrapeSourceRepository
	Extractor    ports.Extractor
	Limiter      *crawl.DomainRateLimiter
	Compliance   *crawl.ComplianceChecker
	DefaultDelay time.Duration
	Logger       *slog.Logger
}

// MultiSource fans out concurrently across an org's enabled sources,
// classifies every outcome, and deduplicates the aggregate by vendor code.
// A source's failure never cancels its siblings.
type MultiSource struct {
	sources      ports.ScrapeSourceRepository
	extractor    ports.Extractor
	limiter      *crawl.DomainRateLimiter
	compliance   *crawl.ComplianceChecker
	defaultDelay time.Duration
	logger       *slog.Logger
}

// NewMultiSource constructs the orchestration component.
func NewMultiSource(deps MultiSourceDeps) *MultiSource {
	return &MultiSource{
		sources:      deps.Sources,
		extractor:    deps.Extractor,
		limiter:      deps.Limiter,
		compliance:   deps.Compliance,
		defaultDelay: deps.DefaultDelay,
		logger:       deps.Logger,
	}
}

type sourceOutcome struct {
	source   domain.ScrapeSource
	products []domain.ScrapedProduct
	err      error
}

// Run fetches every enabled source of the org concurrently and joins on the
// full set before aggregating. Only a failure to load the source list returns
// an error: that step runs before any per-source isolation boundary exists.
func (m *MultiSource) Run(ctx context.Context, orgID string) (domain.MultiSourceResult, error) {
	if m.sources == nil || m.extractor == nil {
		return domain.MultiSourceResult{}, fmt.Errorf("multi-source orchestrator is not configured")
	}

	started := time.Now()
	sources, err := m.sources.ListEnabled(ctx, orgID)
	if err != nil {
		return domain.MultiSourceResult{}, fmt.Errorf("load sources for org %s: %w", orgID, err)
	}

	outcomes := make([]sourceOutcome, len(sources))
	var wg sync.WaitGroup
	for i, src := range sources {
		wg.Add(1)
		go func(i int, src domain.ScrapeSource) {
			defer wg.Done()
			outcomes[i] = m.fetchOne(ctx, src)
		}(i, src)
	}
	wg.Wait()

	// Sources arrive ordered by name and outcomes keep that order, so the
	// aggregation below is deterministic for a given completed set.
	result := domain.MultiSourceResult{
		BySource:  map[string][]domain.ScrapedProduct{},
		StartedAt: started,
	}
	result.Stats.SourcesAttempted = len(sources)

	var all []domain.ScrapedProduct
	for _, outcome := range outcomes {
		if outcome.err != nil {
			var complianceErr *domain.ComplianceError
			result.Failures = append(result.Failures, domain.SourceFailure{
				SourceName: outcome.source.Name,
				Err:        outcome.err,
				Compliance: errors.As(outcome.err, &complianceErr),
			})
			result.Stats.SourcesFailed++
			continue
		}
		result.Stats.SourcesSucceeded++
		result.BySource[outcome.source.Name] = outcome.products
		all = append(all, outcome.products...)
	}

	deduped, removed := Dedup(all)
	result.Products = deduped
	result.Stats.TotalProducts = len(all)
	result.Stats.UniqueProducts = len(deduped)
	result.Stats.DuplicatesRemoved = removed
	result.Duration = time.Since(started)

	m.info("multi-source run finished",
		"org", orgID,
		"attempted", result.Stats.SourcesAttempted,
		"succeeded", result.Stats.SourcesSucceeded,
		"failed", result.Stats.SourcesFailed,
		"total_products", result.Stats.TotalProducts,
		"unique_products", result.Stats.UniqueProducts,
	)
	return result, nil
}

// fetchOne is the per-source isolation boundary of the concurrent path.
func (m *MultiSource) fetchOne(ctx context.Context, src domain.ScrapeSource) sourceOutcome {
	outcome := sourceOutcome{source: src}

	if err := m.prepare(ctx, &src); err != nil {
		outcome.err = err
		m.recordFailure(ctx, &src, err)
		return outcome
	}

	products, err := m.extractor.Extract(ctx, src.URL, false)
	if err != nil {
		outcome.err = err
		m.recordFailure(ctx, &src, err)
		return outcome
	}

	for i := range products {
		products[i].SourceName = src.Name
	}
	outcome.products = products

	src.MarkSyncSuccess(len(products), time.Now())
	m.updateHealth(ctx, &src)
	return outcome
}

// prepare runs the compliance gate and spaces the access on the source's
// domain. The site's own published delay supersedes the configured one.
func (m *MultiSource) prepare(ctx context.Context, src *domain.ScrapeSource) error {
	if m.compliance != nil {
		if allowed, reason := m.compliance.Check(ctx, src.URL); !allowed {
			return &domain.ComplianceError{URL: src.URL, Reason: reason}
		}
	}

	if m.limiter == nil {
		return nil
	}

	delay := src.Delay(m.defaultDelay)
	if m.compliance != nil {
		delay = m.compliance.CrawlDelay(ctx, src.URL, delay)
	}
	m.limiter.SetDomainDelay(src.Domain, delay)

	if err := m.limiter.Acquire(ctx, src.Domain); err != nil {
		return &domain.FetchError{Kind: domain.FetchTimeout, Source: src.Name, Err: err}
	}
	return nil
}

func (m *MultiSource) recordFailure(ctx context.Context, src *domain.ScrapeSource, err error) {
	m.warn("source fetch failed",
		"source", src.Name,
		"kind", domain.ErrorKind(err),
		"error", err,
	)
	src.MarkSyncFailure(err, time.Now())
	m.updateHealth(ctx, src)
}

func (m *MultiSource) updateHealth(ctx context.Context, src *domain.ScrapeSource) {
	if err := m.sources.UpdateHealth(ctx, src); err != nil {
		m.warn("update source health", "source", src.Name, "error", err)
	}
}

func (m *MultiSource) info(msg string, args ...any) {
	if m.logger != nil {
		m.logger.Info(msg, args...)
	}
}

func (m *MultiSource) warn(msg string, args ...any) {
	if m.logger != nil {
		m.logger.Warn(msg, args...)
	}
}
