package usecase

import (
	"math"

	"PriceScanner/internal/domain"
)

// Dedup groups products by vendor code and collapses each group onto the
// member with the lowest valid price; ties and price-less groups keep the
// first-seen member. The grouped sources and a price-variance summary are
// attached to the canonical product. Returns the deduplicated list in
// first-seen order plus the number of duplicates removed.
func Dedup(products []domain.ScrapedProduct) ([]domain.DedupedProduct, int) {
	groups := map[string][]domain.ScrapedProduct{}
	var order []string
	for _, product := range products {
		if _, seen := groups[product.VendorCode]; !seen {
			order = append(order, product.VendorCode)
		}
		groups[product.VendorCode] = append(groups[product.VendorCode], product)
	}

	out := make([]domain.DedupedProduct, 0, len(order))
	for _, code := range order {
		group := groups[code]
		if len(group) == 1 {
			out = append(out, domain.DedupedProduct{ScrapedProduct: group[0]})
			continue
		}
		out = append(out, collapse(group))
	}
	return out, len(products) - len(out)
}

func collapse(group []domain.ScrapedProduct) domain.DedupedProduct {
	canonical := group[0]
	for _, candidate := range group[1:] {
		if candidate.UnitPrice == nil {
			continue
		}
		if canonical.UnitPrice == nil || *candidate.UnitPrice < *canonical.UnitPrice {
			canonical = candidate
		}
	}

	deduped := domain.DedupedProduct{ScrapedProduct: canonical}
	for _, member := range group {
		deduped.DuplicateSources = append(deduped.DuplicateSources, domain.DuplicateSource{
			SourceName: member.SourceName,
			UnitPrice:  member.UnitPrice,
			URL:        member.URL,
		})
	}
	deduped.Variance = variance(group)
	return deduped
}

// variance summarizes price spread over the group's valid prices; nil when
// fewer than two members carry one.
func variance(group []domain.ScrapedProduct) *domain.PriceVariance {
	var prices []float64
	for _, member := range group {
		if member.UnitPrice != nil {
			prices = append(prices, *member.UnitPrice)
		}
	}
	if len(prices) < 2 {
		return nil
	}

	minPrice, maxPrice, sum := prices[0], prices[0], 0.0
	for _, price := range prices {
		if price < minPrice {
			minPrice = price
		}
		if price > maxPrice {
			maxPrice = price
		}
		sum += price
	}
	mean := sum / float64(len(prices))

	variancePct := 0.0
	if mean != 0 {
		variancePct = (maxPrice - minPrice) / mean * 100
	}

	return &domain.PriceVariance{
		Min:          round2(minPrice),
		Max:          round2(maxPrice),
		Mean:         round2(mean),
		VariancePct:  round1(variancePct),
		SourcesCount: len(prices),
	}
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round1(v float64) float64 { return math.Round(v*10) / 10 }
