package importers

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"PriceScanner/internal/domain"
	"PriceScanner/internal/importer"
)

// ExcelImporter reads vendor .xlsx price sheets. Sheets are read eagerly
// (excelize holds the workbook in memory anyway) and served lazily.
type ExcelImporter struct{}

var _ importer.Importer = (*ExcelImporter)(nil)

// NewExcelImporter builds the strategy.
func NewExcelImporter() *ExcelImporter {
	return &ExcelImporter{}
}

// Name identifies the strategy inside the registry.
func (e *ExcelImporter) Name() string {
	return "excel"
}

// Fetch opens the configured workbook and converts its rows.
// Options: path (required), sheet, region, currency.
func (e *ExcelImporter) Fetch(ctx context.Context, req importer.Request) (importer.RecordReader, error) {
	path, err := requiredOption(req.Options, "path", req.SourceName)
	if err != nil {
		return nil, err
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, &domain.FetchError{Kind: domain.FetchNetwork, Source: req.SourceName, Err: err}
	}
	defer f.Close()

	sheet := optionOr(req.Options, "sheet", "")
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, &domain.FetchError{Kind: domain.FetchParse, Source: req.SourceName, Err: fmt.Errorf("workbook %s has no sheets", path)}
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, &domain.FetchError{Kind: domain.FetchParse, Source: req.SourceName, Err: fmt.Errorf("read sheet %s: %w", sheet, err)}
	}
	if len(rows) == 0 {
		return importer.NewSliceReader(nil), nil
	}

	idx := map[string]int{}
	for i, col := range rows[0] {
		idx[strings.ToLower(strings.TrimSpace(col))] = i
	}
	if _, ok := idx["item_code"]; !ok {
		return nil, &domain.FetchError{Kind: domain.FetchParse, Source: req.SourceName, Err: fmt.Errorf("sheet %s has no item_code column", sheet)}
	}

	mapper := rowMapper{
		idx:        idx,
		sourceName: req.SourceName,
		region:     optionOr(req.Options, "region", ""),
		currency:   optionOr(req.Options, "currency", ""),
	}

	records := make([]domain.CanonicalRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if rec, ok := mapper.rowToRecord(row); ok {
			records = append(records, rec)
		}
	}
	return importer.NewSliceReader(records), nil
}
