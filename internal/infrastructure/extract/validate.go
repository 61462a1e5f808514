package extract

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"PriceScanner/internal/domain"
)

// productFromRaw validates one untyped product dict into the typed
// intermediate. A product without a vendor code is unusable and dropped.
func productFromRaw(raw map[string]any, sourceURL string) (domain.ScrapedProduct, bool) {
	code := stringField(raw, "vendor_code")
	if code == "" {
		return domain.ScrapedProduct{}, false
	}

	product := domain.ScrapedProduct{
		VendorCode:  code,
		Description: stringField(raw, "description"),
		Unit:        stringField(raw, "unit"),
		Currency:    stringField(raw, "currency"),
		URL:         stringField(raw, "url"),
	}
	if product.URL == "" {
		product.URL = sourceURL
	}
	if price, ok := floatField(raw, "unit_price"); ok {
		product.UnitPrice = &price
	}
	return product, true
}

func stringField(raw map[string]any, key string) string {
	if v, ok := raw[key]; ok {
		if s, ok := v.(string); ok {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func floatField(raw map[string]any, key string) (float64, bool) {
	switch v := raw[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func fmtStatusError(status, detail string) error {
	if detail == "" {
		return errors.New("extraction service returned " + status)
	}
	return fmt.Errorf("extraction service returned %s: %s", status, detail)
}
