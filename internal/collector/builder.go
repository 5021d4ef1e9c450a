package collector

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"catalog/collector/internal/domain"
)

// ProductDocumentBuilder turns one source row into an output document.
type ProductDocumentBuilder struct {
	prices     *PriceResolver
	categories *CategoryAggregator
}

func NewProductDocumentBuilder(prices *PriceResolver, categories *CategoryAggregator) *ProductDocumentBuilder {
	return &ProductDocumentBuilder{
		prices:     prices,
		categories: categories,
	}
}

// Build returns either a complete document or an error, never a partial document.
func (b *ProductDocumentBuilder) Build(ctx context.Context, row domain.SourceRow, localeID int64) (*domain.OutputDocument, error) {
	attributes, err := MergeAttributes(row.AbstractLocalizedAttributes, row.ConcreteLocalizedAttributes, row.ConcreteAttributes)
	if err != nil {
		return nil, fmt.Errorf("product abstract %d: %w", row.AbstractProductID, err)
	}

	quantity, err := ParseQuantity(row.Quantity)
	if err != nil {
		return nil, fmt.Errorf("product abstract %d: %w", row.AbstractProductID, err)
	}

	prices, err := b.prices.ResolvePrices(ctx, row.ProductID, row.AbstractProductID, row.AbstractSKU)
	if err != nil {
		return nil, fmt.Errorf("product abstract %d: %w", row.AbstractProductID, err)
	}

	categories, err := b.categories.AggregateCategories(ctx, row.AbstractProductID, localeID)
	if err != nil {
		return nil, fmt.Errorf("product abstract %d: %w", row.AbstractProductID, err)
	}

	return &domain.OutputDocument{
		AbstractProductID:  row.AbstractProductID,
		AbstractAttributes: attributes,
		AbstractName:       row.AbstractName,
		AbstractSKU:        row.AbstractSKU,
		URL:                row.URL,
		Quantity:           quantity,
		Available:          quantity > 0,
		Prices:             prices,
		Categories:         categories,
	}, nil
}

// ParseQuantity accepts integer strings and decimal stock values such as "3.000",
// which are truncated toward zero. Both forms must fit in 32 bits.
func ParseQuantity(raw string) (int, error) {
	s := strings.TrimSpace(raw)

	if n, err := strconv.ParseInt(s, 10, 32); err == nil {
		return int(n), nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f > math.MaxInt32 || f < math.MinInt32 {
		return 0, fmt.Errorf("%w: %q", domain.ErrMalformedQuantity, raw)
	}

	return int(f), nil
}
