package crawl_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PriceScanner/internal/crawl"
)

func TestAcquireSpacesSameDomain(t *testing.T) {
	t.Parallel()

	delay := 60 * time.Millisecond
	limiter := crawl.NewDomainRateLimiter(delay)
	ctx := context.Background()

	require.NoError(t, limiter.Acquire(ctx, "vendor.example.com"))
	started := time.Now()
	require.NoError(t, limiter.Acquire(ctx, "vendor.example.com"))
	elapsed := time.Since(started)

	assert.GreaterOrEqual(t, elapsed, delay-5*time.Millisecond)
}

func TestAcquireDistinctDomainsAreIndependent(t *testing.T) {
	t.Parallel()

	limiter := crawl.NewDomainRateLimiter(200 * time.Millisecond)
	ctx := context.Background()

	require.NoError(t, limiter.Acquire(ctx, "a.example.com"))
	started := time.Now()
	require.NoError(t, limiter.Acquire(ctx, "b.example.com"))

	assert.Less(t, time.Since(started), 100*time.Millisecond)
}

func TestSetDomainDelayOverridesOneDomain(t *testing.T) {
	t.Parallel()

	limiter := crawl.NewDomainRateLimiter(0)
	limiter.SetDomainDelay("slow.example.com", 60*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, limiter.Acquire(ctx, "slow.example.com"))
	started := time.Now()
	require.NoError(t, limiter.Acquire(ctx, "slow.example.com"))
	assert.GreaterOrEqual(t, time.Since(started), 55*time.Millisecond)

	// Other domains still see the zero default and never wait.
	fastStart := time.Now()
	require.NoError(t, limiter.Acquire(ctx, "fast.example.com"))
	require.NoError(t, limiter.Acquire(ctx, "fast.example.com"))
	assert.Less(t, time.Since(fastStart), 50*time.Millisecond)
}

func TestAcquireHonorsContextCancellation(t *testing.T) {
	t.Parallel()

	limiter := crawl.NewDomainRateLimiter(time.Hour)
	ctx := context.Background()
	require.NoError(t, limiter.Acquire(ctx, "vendor.example.com"))

	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	err := limiter.Acquire(short, "vendor.example.com")
	assert.Error(t, err)
}
