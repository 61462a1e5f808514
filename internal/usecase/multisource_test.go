package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PriceScanner/internal/crawl"
	"PriceScanner/internal/domain"
	"PriceScanner/internal/infrastructure/storage"
	"PriceScanner/internal/logging"
	"PriceScanner/internal/usecase"
)

// stubExtractor answers per URL.
type stubExtractor struct {
	products map[string][]domain.ScrapedProduct
	errs     map[string]error
}

func (s *stubExtractor) Extract(ctx context.Context, url string, forceRefresh bool) ([]domain.ScrapedProduct, error) {
	if err, ok := s.errs[url]; ok {
		return nil, err
	}
	return s.products[url], nil
}

func scrapeSource(id int64, name, url string) domain.ScrapeSource {
	return domain.ScrapeSource{
		ID:      id,
		OrgID:   "org-1",
		Name:    name,
		URL:     url,
		Domain:  name + ".example.com",
		Enabled: true,
	}
}

func TestMultiSourceClassifiesOutcomes(t *testing.T) {
	t.Parallel()

	repo := storage.NewMemoryScrapeSources([]domain.ScrapeSource{
		scrapeSource(1, "alpha", "https://alpha.example.com/prices"),
		scrapeSource(2, "bravo", "https://bravo.example.com/prices"),
		scrapeSource(3, "charlie", "https://charlie.example.com/prices"),
	})

	extractor := &stubExtractor{
		products: map[string][]domain.ScrapedProduct{
			"https://alpha.example.com/prices": {
				{VendorCode: "A", UnitPrice: price(12)},
				{VendorCode: "B", UnitPrice: price(5)},
			},
		},
		errs: map[string]error{
			"https://bravo.example.com/prices":   &domain.ComplianceError{URL: "https://bravo.example.com/prices", Reason: "disallowed"},
			"https://charlie.example.com/prices": &domain.FetchError{Kind: domain.FetchNetwork, Source: "charlie", Err: errors.New("timeout")},
		},
	}

	orchestrator := usecase.NewMultiSource(usecase.MultiSourceDeps{
		Sources:      repo,
		Extractor:    extractor,
		Limiter:      crawl.NewDomainRateLimiter(0),
		DefaultDelay: 0,
		Logger:       logging.Discard(),
	})

	result, err := orchestrator.Run(context.Background(), "org-1")
	require.NoError(t, err)

	assert.Equal(t, 3, result.Stats.SourcesAttempted)
	assert.Equal(t, 1, result.Stats.SourcesSucceeded)
	assert.Equal(t, 2, result.Stats.SourcesFailed)
	assert.Equal(t, 2, result.Stats.TotalProducts)
	assert.Equal(t, 2, result.Stats.UniqueProducts)
	assert.Equal(t, 0, result.Stats.DuplicatesRemoved)

	require.Len(t, result.Failures, 2)
	byName := map[string]domain.SourceFailure{}
	for _, failure := range result.Failures {
		byName[failure.SourceName] = failure
	}
	assert.True(t, byName["bravo"].Compliance)
	assert.False(t, byName["charlie"].Compliance)

	// Successful products carry their source name.
	for _, p := range result.Products {
		assert.Equal(t, "alpha", p.SourceName)
	}

	// Health fields were written back per source.
	alpha, ok := repo.Get(1)
	require.True(t, ok)
	assert.Equal(t, "success", alpha.LastSyncStatus)
	assert.Equal(t, 2, alpha.LastSyncItems)
	require.NotNil(t, alpha.LastSyncAt)

	bravo, _ := repo.Get(2)
	assert.Equal(t, "failed", bravo.LastSyncStatus)
	assert.Contains(t, bravo.LastSyncError, "disallowed")

	charlie, _ := repo.Get(3)
	assert.Equal(t, "failed", charlie.LastSyncStatus)
}

func TestMultiSourceDeduplicatesAcrossSources(t *testing.T) {
	t.Parallel()

	repo := storage.NewMemoryScrapeSources([]domain.ScrapeSource{
		scrapeSource(1, "alpha", "https://alpha.example.com/prices"),
		scrapeSource(2, "bravo", "https://bravo.example.com/prices"),
	})

	extractor := &stubExtractor{
		products: map[string][]domain.ScrapedProduct{
			"https://alpha.example.com/prices": {{VendorCode: "A", UnitPrice: price(12)}},
			"https://bravo.example.com/prices": {{VendorCode: "A", UnitPrice: price(8)}},
		},
	}

	orchestrator := usecase.NewMultiSource(usecase.MultiSourceDeps{
		Sources:   repo,
		Extractor: extractor,
		Logger:    logging.Discard(),
	})

	result, err := orchestrator.Run(context.Background(), "org-1")
	require.NoError(t, err)

	assert.Equal(t, 2, result.Stats.TotalProducts)
	assert.Equal(t, 1, result.Stats.UniqueProducts)
	assert.Equal(t, 1, result.Stats.DuplicatesRemoved)

	require.Len(t, result.Products, 1)
	winner := result.Products[0]
	require.NotNil(t, winner.UnitPrice)
	assert.Equal(t, 8.0, *winner.UnitPrice)
	assert.Equal(t, "bravo", winner.SourceName)
	assert.Len(t, winner.DuplicateSources, 2)
}

func TestMultiSourceSkipsOtherOrgs(t *testing.T) {
	t.Parallel()

	other := scrapeSource(9, "other", "https://other.example.com/prices")
	other.OrgID = "org-2"

	repo := storage.NewMemoryScrapeSources([]domain.ScrapeSource{
		scrapeSource(1, "alpha", "https://alpha.example.com/prices"),
		other,
	})

	orchestrator := usecase.NewMultiSource(usecase.MultiSourceDeps{
		Sources:   repo,
		Extractor: &stubExtractor{},
		Logger:    logging.Discard(),
	})

	result, err := orchestrator.Run(context.Background(), "org-1")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Stats.SourcesAttempted)
}

func TestMultiSourceFanOutRunsConcurrently(t *testing.T) {
	t.Parallel()

	var sources []domain.ScrapeSource
	products := map[string][]domain.ScrapedProduct{}
	names := []string{"alpha", "bravo", "charlie", "delta"}
	for i, name := range names {
		src := scrapeSource(int64(i+1), name, "https://"+name+".example.com/prices")
		sources = append(sources, src)
		products[src.URL] = nil
	}

	slow := &slowExtractor{delay: 50 * time.Millisecond}
	orchestrator := usecase.NewMultiSource(usecase.MultiSourceDeps{
		Sources:   storage.NewMemoryScrapeSources(sources),
		Extractor: slow,
		Logger:    logging.Discard(),
	})

	started := time.Now()
	result, err := orchestrator.Run(context.Background(), "org-1")
	require.NoError(t, err)
	elapsed := time.Since(started)

	assert.Equal(t, 4, result.Stats.SourcesSucceeded)
	// Sequential execution would need at least 4 * delay.
	assert.Less(t, elapsed, 3*slow.delay)
}

type slowExtractor struct {
	delay time.Duration
}

func (s *slowExtractor) Extract(ctx context.Context, url string, forceRefresh bool) ([]domain.ScrapedProduct, error) {
	time.Sleep(s.delay)
	return nil, nil
}
