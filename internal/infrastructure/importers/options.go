// Package importers holds the concrete importer strategies registered under
// the configuration-driven registry: CSV, Excel, HTML table, REST API, and a
// synthetic demo source.
package importers

import (
	"strconv"
	"strings"

	"PriceScanner/internal/domain"
)

// requiredOption reads a setting that the importer cannot run without.
// Absence fails fast with a ConfigError instead of silently defaulting.
func requiredOption(opts map[string]string, key, source string) (string, error) {
	if v, ok := opts[key]; ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v), nil
	}
	return "", &domain.ConfigError{Setting: key, Reason: "required by source " + source}
}

func optionOr(opts map[string]string, key, def string) string {
	if v, ok := opts[key]; ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func intOptionOr(opts map[string]string, key string, def int) int {
	if v, ok := opts[key]; ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			return n
		}
	}
	return def
}

// parsePrice accepts "1 234,56" and "1,234.56" style vendor price strings.
func parsePrice(value string) (float64, bool) {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0, false
	}
	cleaned = strings.ReplaceAll(cleaned, " ", "")
	cleaned = strings.ReplaceAll(cleaned, " ", "")
	if strings.Contains(cleaned, ",") && !strings.Contains(cleaned, ".") {
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	} else {
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
