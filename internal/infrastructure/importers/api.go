package importers

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/go-resty/resty/v2"

	"PriceScanner/internal/domain"
	"PriceScanner/internal/importer"
)

// APIImporter pulls canonical records from a vendor's JSON price API,
// page by page, so large catalogs stream instead of loading at once.
type APIImporter struct {
	timeout time.Duration
}

var _ importer.Importer = (*APIImporter)(nil)

// NewAPIImporter builds the strategy.
func NewAPIImporter(timeout time.Duration) *APIImporter {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &APIImporter{timeout: timeout}
}

// Name identifies the strategy inside the registry.
func (a *APIImporter) Name() string {
	return "api"
}

// Fetch validates options and probes the first page so misconfiguration and
// dead endpoints fail before any record is consumed.
// Options: url (required), api_key, page_size, region, currency.
func (a *APIImporter) Fetch(ctx context.Context, req importer.Request) (importer.RecordReader, error) {
	baseURL, err := requiredOption(req.Options, "url", req.SourceName)
	if err != nil {
		return nil, err
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(a.timeout).
		SetHeader("Accept", "application/json")
	if apiKey := optionOr(req.Options, "api_key", ""); apiKey != "" {
		client.SetAuthToken(apiKey)
	}

	reader := &apiReader{
		ctx:        ctx,
		client:     client,
		sourceName: req.SourceName,
		region:     optionOr(req.Options, "region", ""),
		currency:   optionOr(req.Options, "currency", ""),
		pageSize:   intOptionOr(req.Options, "page_size", 200),
		page:       1,
	}
	if err := reader.fetchPage(); err != nil {
		return nil, err
	}
	return reader, nil
}

type apiItem struct {
	ItemCode    string   `json:"item_code"`
	Region      string   `json:"region"`
	ClassCode   string   `json:"class_code"`
	Description string   `json:"description"`
	Unit        string   `json:"unit"`
	UnitPrice   float64  `json:"unit_price"`
	Currency    string   `json:"currency"`
	VATRate     *float64 `json:"vat_rate"`
	Dimensions  string   `json:"dimensions"`
	Material    string   `json:"material"`
	VendorID    string   `json:"vendor_id"`
	SKU         string   `json:"sku"`
	VendorNote  string   `json:"vendor_note"`
}

type apiPage struct {
	Items   []apiItem `json:"items"`
	HasMore bool      `json:"has_more"`
}

type apiReader struct {
	ctx        context.Context
	client     *resty.Client
	sourceName string
	region     string
	currency   string
	pageSize   int

	page    int
	items   []apiItem
	pos     int
	hasMore bool
}

// Next serves the buffered page and fetches the following one on demand.
func (r *apiReader) Next() (domain.CanonicalRecord, error) {
	for r.pos >= len(r.items) {
		if !r.hasMore {
			return domain.CanonicalRecord{}, io.EOF
		}
		r.page++
		if err := r.fetchPage(); err != nil {
			return domain.CanonicalRecord{}, err
		}
	}

	item := r.items[r.pos]
	r.pos++
	return r.toRecord(item), nil
}

func (r *apiReader) fetchPage() error {
	var page apiPage
	resp, err := r.client.R().
		SetContext(r.ctx).
		SetQueryParam("page", fmt.Sprintf("%d", r.page)).
		SetQueryParam("per_page", fmt.Sprintf("%d", r.pageSize)).
		SetResult(&page).
		Get("")
	if err != nil {
		return &domain.FetchError{Kind: domain.FetchNetwork, Source: r.sourceName, Err: err}
	}
	if resp.IsError() {
		return &domain.FetchError{Kind: domain.FetchHTTP, Source: r.sourceName, Err: fmt.Errorf("price api returned %s", resp.Status())}
	}

	r.items = page.Items
	r.pos = 0
	r.hasMore = page.HasMore
	return nil
}

func (r *apiReader) toRecord(item apiItem) domain.CanonicalRecord {
	region := item.Region
	if region == "" {
		region = r.region
	}
	currency := item.Currency
	if currency == "" {
		currency = r.currency
	}
	return domain.CanonicalRecord{
		ItemCode:    item.ItemCode,
		Region:      region,
		ClassCode:   item.ClassCode,
		Description: item.Description,
		Unit:        item.Unit,
		UnitPrice:   item.UnitPrice,
		Currency:    currency,
		VATRate:     item.VATRate,
		Dimensions:  item.Dimensions,
		Material:    item.Material,
		SourceName:  r.sourceName,
		VendorID:    item.VendorID,
		SKU:         item.SKU,
		VendorNote:  item.VendorNote,
	}.Normalized()
}
