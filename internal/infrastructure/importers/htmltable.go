package importers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"PriceScanner/internal/domain"
	"PriceScanner/internal/importer"
)

// HTMLTableImporter scrapes canonical records out of a vendor price page.
// The columns option names the cell order, e.g.
// "item_code,description,unit,unit_price".
type HTMLTableImporter struct {
	client    *http.Client
	userAgent string
}

var _ importer.Importer = (*HTMLTableImporter)(nil)

// NewHTMLTableImporter wires an HTTP client.
func NewHTMLTableImporter(client *http.Client, userAgent string) *HTMLTableImporter {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &HTMLTableImporter{client: client, userAgent: userAgent}
}

// Name identifies the strategy inside the registry.
func (h *HTMLTableImporter) Name() string {
	return "html_table"
}

// Fetch downloads the page and walks the selected table rows.
// Options: url (required), row_selector, columns, region, currency.
func (h *HTMLTableImporter) Fetch(ctx context.Context, req importer.Request) (importer.RecordReader, error) {
	pageURL, err := requiredOption(req.Options, "url", req.SourceName)
	if err != nil {
		return nil, err
	}

	doc, err := h.fetchDocument(ctx, pageURL, req.SourceName)
	if err != nil {
		return nil, err
	}

	columns := strings.Split(optionOr(req.Options, "columns", "item_code,description,unit,unit_price"), ",")
	idx := map[string]int{}
	for i, col := range columns {
		idx[strings.ToLower(strings.TrimSpace(col))] = i
	}
	if _, ok := idx["item_code"]; !ok {
		return nil, &domain.ConfigError{Setting: "columns", Reason: "must include item_code"}
	}

	mapper := rowMapper{
		idx:        idx,
		sourceName: req.SourceName,
		region:     optionOr(req.Options, "region", ""),
		currency:   optionOr(req.Options, "currency", ""),
	}

	var records []domain.CanonicalRecord
	seen := map[domain.PriceKey]struct{}{}
	doc.Find(optionOr(req.Options, "row_selector", "table tr")).Each(func(i int, row *goquery.Selection) {
		cells := row.Find("td").Map(func(_ int, cell *goquery.Selection) string {
			return strings.TrimSpace(cell.Text())
		})
		if len(cells) == 0 {
			return
		}
		rec, ok := mapper.rowToRecord(cells)
		if !ok {
			return
		}
		if _, dup := seen[rec.Key()]; dup {
			return
		}
		seen[rec.Key()] = struct{}{}
		records = append(records, rec)
	})

	return importer.NewSliceReader(records), nil
}

func (h *HTMLTableImporter) fetchDocument(ctx context.Context, pageURL, source string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, &domain.FetchError{Kind: domain.FetchNetwork, Source: source, Err: err}
	}
	if h.userAgent != "" {
		req.Header.Set("User-Agent", h.userAgent)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, &domain.FetchError{Kind: domain.FetchNetwork, Source: source, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &domain.FetchError{Kind: domain.FetchHTTP, Source: source, Err: fmt.Errorf("price page returned %s", resp.Status)}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, &domain.FetchError{Kind: domain.FetchParse, Source: source, Err: err}
	}
	return doc, nil
}
