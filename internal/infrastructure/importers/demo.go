package importers

import (
	"context"

	"PriceScanner/internal/domain"
	"PriceScanner/internal/importer"
)

// DemoImporter yields a fixed set of construction materials for smoke runs
// against an empty catalog.
type DemoImporter struct{}

var _ importer.Importer = (*DemoImporter)(nil)

// NewDemoImporter builds the strategy.
func NewDemoImporter() *DemoImporter {
	return &DemoImporter{}
}

// Name identifies the strategy inside the registry.
func (d *DemoImporter) Name() string {
	return "demo"
}

// Fetch returns the synthetic records. Options: region, currency.
func (d *DemoImporter) Fetch(ctx context.Context, req importer.Request) (importer.RecordReader, error) {
	region := optionOr(req.Options, "region", "central")
	currency := optionOr(req.Options, "currency", "USD")

	base := []struct {
		code, class, desc, unit string
		price                   float64
	}{
		{"CEM-42.5-50", "04.1.01", "Portland cement 42.5, 50kg bag", "bag", 7.40},
		{"REB-A500-12", "08.3.02", "Rebar A500C 12mm", "t", 612.00},
		{"BRK-CER-250", "06.1.01", "Ceramic brick 250x120x65", "pcs", 0.38},
		{"SND-RVR-M2", "02.2.01", "River sand, washed", "m3", 21.50},
		{"PLY-BIR-18", "11.2.03", "Birch plywood 18mm 1525x1525", "sheet", 26.90},
	}

	records := make([]domain.CanonicalRecord, 0, len(base))
	for _, item := range base {
		records = append(records, domain.CanonicalRecord{
			ItemCode:    item.code,
			Region:      region,
			ClassCode:   item.class,
			Description: item.desc,
			Unit:        item.unit,
			UnitPrice:   item.price,
			Currency:    currency,
			SourceName:  req.SourceName,
		}.Normalized())
	}
	return importer.NewSliceReader(records), nil
}
