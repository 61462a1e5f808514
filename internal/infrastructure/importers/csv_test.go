package importers

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"PriceScanner/internal/domain"
	"PriceScanner/internal/importer"
)

func drain(t *testing.T, reader importer.RecordReader) []domain.CanonicalRecord {
	t.Helper()
	var records []domain.CanonicalRecord
	for {
		rec, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return records
		}
		if err != nil {
			t.Fatalf("Next error: %v", err)
		}
		records = append(records, rec)
	}
}

func writeTempCSV(t *testing.T, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "price.csv")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write temp csv: %v", err)
	}
	return path
}

func TestCSVImporterReadsLocalFile(t *testing.T) {
	t.Parallel()

	content := []byte("item_code;description;unit;unit_price;currency\n" +
		"CEM-42.5-50;Portland cement 50kg;bag;612,50;RUB\n" +
		"REB-A500-12;Rebar A500C d12;t;58400;RUB\n")
	path := writeTempCSV(t, content)

	imp := NewCSVImporter(nil)
	reader, err := imp.Fetch(context.Background(), importer.Request{
		SourceName: "vendor-local",
		Options:    map[string]string{"path": path, "region": "msk"},
	})
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}

	records := drain(t, reader)
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	first := records[0]
	if first.ItemCode != "CEM-42.5-50" {
		t.Fatalf("unexpected item code: %s", first.ItemCode)
	}
	if first.Region != "msk" {
		t.Fatalf("expected fallback region msk, got %s", first.Region)
	}
	if first.UnitPrice != 612.50 {
		t.Fatalf("unexpected price: %v", first.UnitPrice)
	}
	if first.SourceName != "vendor-local" {
		t.Fatalf("unexpected source: %s", first.SourceName)
	}
	if first.SKU != "CEM-42.5-50" {
		t.Fatalf("expected sku defaulted to item code, got %s", first.SKU)
	}
}

func TestCSVImporterDecodesWindows1251(t *testing.T) {
	t.Parallel()

	utf8Content := "item_code;description;unit_price\nCEM-42.5-50;Цемент М500 50кг;612,50\n"
	encoded, _, err := transform.Bytes(charmap.Windows1251.NewEncoder(), []byte(utf8Content))
	if err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	path := writeTempCSV(t, encoded)

	imp := NewCSVImporter(nil)
	reader, err := imp.Fetch(context.Background(), importer.Request{
		SourceName: "vendor-1251",
		Options:    map[string]string{"path": path, "charset": "windows-1251", "region": "spb"},
	})
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}

	records := drain(t, reader)
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].Description != "Цемент М500 50кг" {
		t.Fatalf("description not decoded: %q", records[0].Description)
	}
}

func TestCSVImporterSkipsUnusableRows(t *testing.T) {
	t.Parallel()

	content := []byte("item_code;unit_price\n" +
		";100\n" + // no item code
		"BRK-CER-250;not-a-price\n" +
		"SND-RVR-M2;840\n")
	path := writeTempCSV(t, content)

	imp := NewCSVImporter(nil)
	reader, err := imp.Fetch(context.Background(), importer.Request{
		SourceName: "vendor-dirty",
		Options:    map[string]string{"path": path, "region": "msk"},
	})
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}

	records := drain(t, reader)
	if len(records) != 1 {
		t.Fatalf("expected 1 usable record, got %d", len(records))
	}
	if records[0].ItemCode != "SND-RVR-M2" {
		t.Fatalf("unexpected survivor: %s", records[0].ItemCode)
	}
}

func TestCSVImporterRequiresPathOrURL(t *testing.T) {
	t.Parallel()

	imp := NewCSVImporter(nil)
	_, err := imp.Fetch(context.Background(), importer.Request{SourceName: "vendor-misconfigured"})
	if err == nil {
		t.Fatal("expected error for missing path/url")
	}

	var configErr *domain.ConfigError
	if !errors.As(err, &configErr) {
		t.Fatalf("expected ConfigError, got %T: %v", err, err)
	}
}

func TestCSVImporterRejectsUnknownCharset(t *testing.T) {
	t.Parallel()

	path := writeTempCSV(t, []byte("item_code;unit_price\nA;1\n"))
	imp := NewCSVImporter(nil)
	_, err := imp.Fetch(context.Background(), importer.Request{
		SourceName: "vendor-charset",
		Options:    map[string]string{"path": path, "charset": "koi8-r"},
	})

	var configErr *domain.ConfigError
	if !errors.As(err, &configErr) {
		t.Fatalf("expected ConfigError, got %T: %v", err, err)
	}
}

func TestCSVImporterRejectsHeaderWithoutItemCode(t *testing.T) {
	t.Parallel()

	path := writeTempCSV(t, []byte("sku;price\nA;1\n"))
	imp := NewCSVImporter(nil)
	_, err := imp.Fetch(context.Background(), importer.Request{
		SourceName: "vendor-headerless",
		Options:    map[string]string{"path": path},
	})

	var fetchErr *domain.FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected FetchError, got %T: %v", err, err)
	}
	if fetchErr.Kind != domain.FetchParse {
		t.Fatalf("expected parse kind, got %s", fetchErr.Kind)
	}
}

func TestParsePriceFormats(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"612,50", 612.50, true},
		{"1 234,56", 1234.56, true},
		{"1,234.56", 1234.56, true},
		{"58400", 58400, true},
		{"", 0, false},
		{"n/a", 0, false},
	}
	for _, tc := range cases {
		got, ok := parsePrice(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("parsePrice(%q) = %v, %v; want %v, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}
