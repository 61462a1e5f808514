package importers

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"PriceScanner/internal/domain"
	"PriceScanner/internal/importer"
)

// CSVImporter streams canonical records out of vendor CSV exports, local or
// remote. Vendors in this trade still ship Windows-1251/1252 files, so the
// charset option selects the decoder.
type CSVImporter struct {
	client *http.Client
}

var _ importer.Importer = (*CSVImporter)(nil)

// NewCSVImporter wires an HTTP client for url-based sources.
func NewCSVImporter(client *http.Client) *CSVImporter {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &CSVImporter{client: client}
}

// Name identifies the strategy inside the registry.
func (c *CSVImporter) Name() string {
	return "csv"
}

// Fetch opens the configured file or URL and returns a streaming reader.
// Options: path or url (one required), delimiter, charset, region, currency.
func (c *CSVImporter) Fetch(ctx context.Context, req importer.Request) (importer.RecordReader, error) {
	source, err := c.open(ctx, req)
	if err != nil {
		return nil, err
	}

	decoded, err := decodeCharset(source, optionOr(req.Options, "charset", "utf-8"))
	if err != nil {
		source.Close()
		return nil, err
	}

	r := csv.NewReader(decoded)
	r.Comma = rune(optionOr(req.Options, "delimiter", ";")[0])
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		source.Close()
		return nil, &domain.FetchError{Kind: domain.FetchParse, Source: req.SourceName, Err: fmt.Errorf("read header: %w", err)}
	}

	idx := map[string]int{}
	for i, col := range header {
		idx[strings.ToLower(strings.TrimSpace(col))] = i
	}
	if _, ok := idx["item_code"]; !ok {
		source.Close()
		return nil, &domain.FetchError{Kind: domain.FetchParse, Source: req.SourceName, Err: fmt.Errorf("header has no item_code column")}
	}

	return &csvReader{
		closer: source,
		r:      r,
		mapper: rowMapper{
			idx:        idx,
			sourceName: req.SourceName,
			region:     optionOr(req.Options, "region", ""),
			currency:   optionOr(req.Options, "currency", ""),
		},
	}, nil
}

func (c *CSVImporter) open(ctx context.Context, req importer.Request) (io.ReadCloser, error) {
	if rawURL := optionOr(req.Options, "url", ""); rawURL != "" {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, &domain.FetchError{Kind: domain.FetchNetwork, Source: req.SourceName, Err: err}
		}
		resp, err := c.client.Do(httpReq)
		if err != nil {
			return nil, &domain.FetchError{Kind: domain.FetchNetwork, Source: req.SourceName, Err: err}
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, &domain.FetchError{Kind: domain.FetchHTTP, Source: req.SourceName, Err: fmt.Errorf("price file returned %s", resp.Status)}
		}
		return resp.Body, nil
	}

	path, err := requiredOption(req.Options, "path", req.SourceName)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, &domain.FetchError{Kind: domain.FetchNetwork, Source: req.SourceName, Err: err}
	}
	return file, nil
}

func decodeCharset(r io.Reader, charset string) (io.Reader, error) {
	switch strings.ToLower(charset) {
	case "", "utf-8", "utf8":
		return r, nil
	case "windows-1251", "cp1251":
		return transform.NewReader(r, charmap.Windows1251.NewDecoder()), nil
	case "windows-1252", "cp1252":
		return transform.NewReader(r, charmap.Windows1252.NewDecoder()), nil
	default:
		return nil, &domain.ConfigError{Setting: "charset", Reason: fmt.Sprintf("unsupported value %q", charset)}
	}
}

type csvReader struct {
	closer io.Closer
	r      *csv.Reader
	mapper rowMapper
}

// Next reads rows until one yields a usable record, then returns it. Rows
// without an item code or a parseable price are skipped.
func (cr *csvReader) Next() (domain.CanonicalRecord, error) {
	for {
		row, err := cr.r.Read()
		if err == io.EOF {
			cr.closer.Close()
			return domain.CanonicalRecord{}, io.EOF
		}
		if err != nil {
			cr.closer.Close()
			return domain.CanonicalRecord{}, &domain.FetchError{Kind: domain.FetchParse, Source: cr.mapper.sourceName, Err: err}
		}

		rec, ok := cr.mapper.rowToRecord(row)
		if !ok {
			continue
		}
		return rec, nil
	}
}

// rowMapper converts one header-indexed tabular row into a canonical record.
// CSV and Excel share it: both deliver [][]string shaped data.
type rowMapper struct {
	idx        map[string]int
	sourceName string
	region     string
	currency   string
}

func (m rowMapper) rowToRecord(row []string) (domain.CanonicalRecord, bool) {
	field := func(name string) string {
		if i, ok := m.idx[name]; ok && i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	itemCode := field("item_code")
	if itemCode == "" {
		return domain.CanonicalRecord{}, false
	}
	price, ok := parsePrice(field("unit_price"))
	if !ok {
		return domain.CanonicalRecord{}, false
	}

	region := field("region")
	if region == "" {
		region = m.region
	}
	currency := field("currency")
	if currency == "" {
		currency = m.currency
	}

	rec := domain.CanonicalRecord{
		ItemCode:    itemCode,
		Region:      region,
		ClassCode:   field("class_code"),
		Description: field("description"),
		Unit:        field("unit"),
		UnitPrice:   price,
		Currency:    currency,
		Dimensions:  field("dimensions"),
		Material:    field("material"),
		SourceName:  m.sourceName,
		VendorID:    field("vendor_id"),
		SKU:         field("sku"),
		VendorNote:  field("vendor_note"),
	}
	if vat, ok := parsePrice(field("vat_rate")); ok {
		rec.VATRate = &vat
	}
	return rec.Normalized(), true
}
