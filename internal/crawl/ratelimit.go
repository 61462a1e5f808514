// Package crawl holds the site-facing collaborators shared by concurrent
// fetches: the per-domain rate limiter and the crawl-policy checker.
package crawl

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DomainRateLimiter enforces a minimum delay between successive accesses to
// the same domain. Different domains never block one another; concurrent
// callers for one domain are serialized by that domain's limiter.
type DomainRateLimiter struct {
	mu           sync.Mutex
	defaultDelay time.Duration
	domains      map[string]*rate.Limiter
}

// NewDomainRateLimiter builds a limiter with the given default delay.
func NewDomainRateLimiter(defaultDelay time.Duration) *DomainRateLimiter {
	return &DomainRateLimiter{
		defaultDelay: defaultDelay,
		domains:      map[string]*rate.Limiter{},
	}
}

// Acquire suspends the caller until at least the configured delay has
// elapsed since the last access to the domain.
func (l *DomainRateLimiter) Acquire(ctx context.Context, domain string) error {
	return l.limiterFor(domain, l.defaultDelay).Wait(ctx)
}

// SetDomainDelay overrides the delay for one domain only, e.g. when the
// site's own policy publishes a crawl delay.
func (l *DomainRateLimiter) SetDomainDelay(domain string, delay time.Duration) {
	l.limiterFor(domain, delay).SetLimit(every(delay))
}

func (l *DomainRateLimiter) limiterFor(domain string, delay time.Duration) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.domains[domain]
	if !ok {
		lim = rate.NewLimiter(every(delay), 1)
		l.domains[domain] = lim
	}
	return lim
}

func every(delay time.Duration) rate.Limit {
	if delay <= 0 {
		return rate.Inf
	}
	return rate.Every(delay)
}
