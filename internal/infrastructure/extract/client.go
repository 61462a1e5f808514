// Package extract talks to the external AI-assisted content-extraction
// service. Only its request/response contract lives here; the engine itself
// is a collaborator. Retries and transport timeouts belong to this client,
// not to the orchestrators above it.
package extract

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"

	"PriceScanner/internal/config"
	"PriceScanner/internal/domain"
	"PriceScanner/internal/ports"
)

// Client implements ports.Extractor over the extraction service HTTP API.
type Client struct {
	http   *resty.Client
	logger *slog.Logger
}

var _ ports.Extractor = (*Client)(nil)

// NewClient builds a client from configuration.
func NewClient(cfg config.ExtractorConfig, logger *slog.Logger) *Client {
	client := resty.New().
		SetBaseURL(cfg.Endpoint).
		SetTimeout(cfg.Timeout()).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(10 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if cfg.APIKey != "" {
		client.SetAuthToken(cfg.APIKey)
	}
	return &Client{http: client, logger: logger}
}

type extractRequest struct {
	URL          string `json:"url"`
	ForceRefresh bool   `json:"force_refresh"`
}

type extractResponse struct {
	Products []map[string]any `json:"products"`
	Error    string           `json:"error"`
	Code     string           `json:"code"`
}

// Extract asks the service to extract products from the vendor page and
// validates the raw payload into typed products at this boundary.
func (c *Client) Extract(ctx context.Context, url string, forceRefresh bool) ([]domain.ScrapedProduct, error) {
	var out extractResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(extractRequest{URL: url, ForceRefresh: forceRefresh}).
		SetResult(&out).
		SetError(&out).
		Post("/extract")
	if err != nil {
		return nil, &domain.FetchError{Kind: fetchKind(ctx, err), Source: url, Err: err}
	}

	if resp.StatusCode() == 451 || out.Code == "compliance_blocked" {
		reason := out.Error
		if reason == "" {
			reason = "blocked by site policy"
		}
		return nil, &domain.ComplianceError{URL: url, Reason: reason}
	}
	if resp.IsError() {
		return nil, &domain.FetchError{
			Kind:   domain.FetchHTTP,
			Source: url,
			Err:    fmtStatusError(resp.Status(), out.Error),
		}
	}

	products := make([]domain.ScrapedProduct, 0, len(out.Products))
	for _, raw := range out.Products {
		product, ok := productFromRaw(raw, url)
		if !ok {
			c.debug("dropping product without vendor code", "url", url)
			continue
		}
		products = append(products, product)
	}
	return products, nil
}

func (c *Client) debug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}

func fetchKind(ctx context.Context, err error) domain.FetchKind {
	if ctx.Err() != nil {
		return domain.FetchTimeout
	}
	return domain.FetchNetwork
}
