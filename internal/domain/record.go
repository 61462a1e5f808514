package domain

import "time"

// PriceKey is the natural business key for a price datum, distinct from the
// surrogate row id of the versioned store.
type PriceKey struct {
	ItemCode string
	Region   string
}

// CanonicalRecord is the source-agnostic price datum every importer produces.
// It is ephemeral: created by an importer, fed to the updater, discarded.
type CanonicalRecord struct {
	ItemCode    string
	Region      string
	ClassCode   string
	Description string
	Unit        string
	UnitPrice   float64
	Currency    string
	VATRate     *float64

	// Optional physical attributes.
	Dimensions string
	Material   string

	// Governance fields.
	SourceName        string
	SourceCurrency    string
	VendorID          string
	SKU               string
	OriginalEffective *time.Time
	VendorNote        string
}

// Key returns the business key of the record.
func (r CanonicalRecord) Key() PriceKey {
	return PriceKey{ItemCode: r.ItemCode, Region: r.Region}
}

// Normalized applies defaulting rules: source currency falls back to the
// record currency and SKU falls back to the item code.
func (r CanonicalRecord) Normalized() CanonicalRecord {
	if r.SourceCurrency == "" {
		r.SourceCurrency = r.Currency
	}
	if r.SKU == "" {
		r.SKU = r.ItemCode
	}
	return r
}

// PriceVersion is one row of the SCD Type 2 price history. For any business
// key at most one row is current at any instant; expired rows are immutable.
type PriceVersion struct {
	ID          int64
	ItemCode    string
	Region      string
	ClassCode   string
	Description string
	Unit        string
	UnitPrice   float64
	Currency    string
	VATRate     *float64
	Dimensions  string
	Material    string

	SourceName        string
	SourceCurrency    string
	VendorID          string
	SKU               string
	OriginalEffective *time.Time
	VendorNote        string

	ValidFrom     time.Time
	ValidTo       *time.Time
	IsCurrent     bool
	LastCheckedAt time.Time
}

// Key returns the business key of the version.
func (v PriceVersion) Key() PriceKey {
	return PriceKey{ItemCode: v.ItemCode, Region: v.Region}
}

// NewVersionFrom builds a fresh current version for the record, valid from now.
func NewVersionFrom(rec CanonicalRecord, now time.Time) *PriceVersion {
	rec = rec.Normalized()
	return &PriceVersion{
		ItemCode:          rec.ItemCode,
		Region:            rec.Region,
		ClassCode:         rec.ClassCode,
		Description:       rec.Description,
		Unit:              rec.Unit,
		UnitPrice:         rec.UnitPrice,
		Currency:          rec.Currency,
		VATRate:           rec.VATRate,
		Dimensions:        rec.Dimensions,
		Material:          rec.Material,
		SourceName:        rec.SourceName,
		SourceCurrency:    rec.SourceCurrency,
		VendorID:          rec.VendorID,
		SKU:               rec.SKU,
		OriginalEffective: rec.OriginalEffective,
		VendorNote:        rec.VendorNote,
		ValidFrom:         now,
		ValidTo:           nil,
		IsCurrent:         true,
		LastCheckedAt:     now,
	}
}
