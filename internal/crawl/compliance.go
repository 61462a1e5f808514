package crawl

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

// ComplianceChecker validates candidate URLs against scheme rules and the
// origin's published crawl policy. The policy is fetched once per origin and
// cached; any failure to reach or parse it resolves to allowed (fail-open)
// so an unreachable policy never blocks a fetch, but is always logged.
type ComplianceChecker struct {
	client    *http.Client
	userAgent string
	logger    *slog.Logger

	mu    sync.Mutex
	cache map[string]*robotstxt.RobotsData
}

// NewComplianceChecker wires an HTTP client; a nil client gets a short-timeout default.
func NewComplianceChecker(client *http.Client, userAgent string, logger *slog.Logger) *ComplianceChecker {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &ComplianceChecker{
		client:    client,
		userAgent: userAgent,
		logger:    logger,
		cache:     map[string]*robotstxt.RobotsData{},
	}
}

// Check reports whether the URL may be fetched, with a human-readable reason
// when it may not.
func (c *ComplianceChecker) Check(ctx context.Context, rawURL string) (bool, string) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false, fmt.Sprintf("unparseable url: %v", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false, fmt.Sprintf("scheme %q is not allowed", parsed.Scheme)
	}
	if parsed.Host == "" {
		return false, "url has no host"
	}

	robots := c.robotsFor(ctx, parsed)
	if robots == nil {
		return true, ""
	}

	group := robots.FindGroup(c.userAgent)
	if group != nil && !group.Test(pathOf(parsed)) {
		return false, fmt.Sprintf("disallowed by %s robots policy", parsed.Host)
	}
	return true, ""
}

// CrawlDelay returns the recommended delay for the URL: the maximum of the
// origin's published crawl-delay and def, never less than def.
func (c *ComplianceChecker) CrawlDelay(ctx context.Context, rawURL string, def time.Duration) time.Duration {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return def
	}

	robots := c.robotsFor(ctx, parsed)
	if robots == nil {
		return def
	}

	group := robots.FindGroup(c.userAgent)
	if group != nil && group.CrawlDelay > def {
		return group.CrawlDelay
	}
	return def
}

// robotsFor returns the cached policy for the URL's origin, fetching it on
// first use. A nil return means "no usable policy": treat as allowed.
func (c *ComplianceChecker) robotsFor(ctx context.Context, u *url.URL) *robotstxt.RobotsData {
	origin := u.Scheme + "://" + u.Host

	c.mu.Lock()
	robots, cached := c.cache[origin]
	c.mu.Unlock()
	if cached {
		return robots
	}

	robots = c.fetchRobots(ctx, origin)

	c.mu.Lock()
	c.cache[origin] = robots
	c.mu.Unlock()
	return robots
}

func (c *ComplianceChecker) fetchRobots(ctx context.Context, origin string) *robotstxt.RobotsData {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, origin+"/robots.txt", nil)
	if err != nil {
		c.warn("build robots request", "origin", origin, "error", err)
		return nil
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.warn("fetch robots.txt failed, allowing", "origin", origin, "error", err)
		return nil
	}
	defer resp.Body.Close()

	robots, err := robotstxt.FromResponse(resp)
	if err != nil {
		c.warn("parse robots.txt failed, allowing", "origin", origin, "error", err)
		return nil
	}
	return robots
}

func pathOf(u *url.URL) string {
	if u.Path == "" {
		return "/"
	}
	return u.Path
}

func (c *ComplianceChecker) warn(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}
