package extract

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"PriceScanner/internal/config"
	"PriceScanner/internal/domain"
	"PriceScanner/internal/logging"
)

func extractClient(endpoint string) *Client {
	return NewClient(config.ExtractorConfig{
		Endpoint:       endpoint,
		APIKey:         "test-key",
		TimeoutSeconds: 5,
		RetryCount:     0,
	}, logging.Discard())
}

func TestExtractValidatesProducts(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/extract" {
			http.NotFound(w, r)
			return
		}
		var req struct {
			URL          string `json:"url"`
			ForceRefresh bool   `json:"force_refresh"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.URL != "https://vendor.example.com/prices" {
			t.Errorf("unexpected url in request: %s", req.URL)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"products":[
			{"vendor_code":"CEM-42.5-50","description":"cement","unit":"bag","unit_price":612.5,"currency":"RUB"},
			{"vendor_code":"REB-A500-12","unit_price":"58400"},
			{"description":"no vendor code","unit_price":10},
			{"vendor_code":"BRK-CER-250","unit_price":"n/a"}
		]}`))
	}))
	defer server.Close()

	client := extractClient(server.URL)
	products, err := client.Extract(context.Background(), "https://vendor.example.com/prices", false)
	if err != nil {
		t.Fatalf("Extract error: %v", err)
	}

	if len(products) != 3 {
		t.Fatalf("expected 3 products, got %d", len(products))
	}

	first := products[0]
	if first.VendorCode != "CEM-42.5-50" {
		t.Fatalf("unexpected vendor code: %s", first.VendorCode)
	}
	if first.UnitPrice == nil || *first.UnitPrice != 612.5 {
		t.Fatalf("unexpected price: %v", first.UnitPrice)
	}
	if first.URL != "https://vendor.example.com/prices" {
		t.Fatalf("source url not defaulted: %s", first.URL)
	}

	// String-shaped prices parse, unparseable prices leave the field nil.
	if products[1].UnitPrice == nil || *products[1].UnitPrice != 58400 {
		t.Fatalf("string price not parsed: %v", products[1].UnitPrice)
	}
	if products[2].UnitPrice != nil {
		t.Fatalf("expected nil price for unparseable value, got %v", *products[2].UnitPrice)
	}
}

func TestExtractReportsComplianceBlock(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(451)
		_, _ = w.Write([]byte(`{"error":"robots.txt disallows this path","code":"compliance_blocked"}`))
	}))
	defer server.Close()

	client := extractClient(server.URL)
	_, err := client.Extract(context.Background(), "https://vendor.example.com/private", false)

	var complianceErr *domain.ComplianceError
	if !errors.As(err, &complianceErr) {
		t.Fatalf("expected ComplianceError, got %T: %v", err, err)
	}
	if complianceErr.Reason != "robots.txt disallows this path" {
		t.Fatalf("unexpected reason: %s", complianceErr.Reason)
	}
}

func TestExtractReportsServiceFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"extraction engine crashed"}`))
	}))
	defer server.Close()

	client := extractClient(server.URL)
	_, err := client.Extract(context.Background(), "https://vendor.example.com/prices", false)

	var fetchErr *domain.FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected FetchError, got %T: %v", err, err)
	}
	if fetchErr.Kind != domain.FetchHTTP {
		t.Fatalf("expected http kind, got %s", fetchErr.Kind)
	}
}

func TestExtractReportsNetworkFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()

	client := extractClient(server.URL)
	_, err := client.Extract(context.Background(), "https://vendor.example.com/prices", false)

	var fetchErr *domain.FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected FetchError, got %T: %v", err, err)
	}
	if fetchErr.Kind != domain.FetchNetwork {
		t.Fatalf("expected network kind, got %s", fetchErr.Kind)
	}
}
