package collector

import (
	"context"
	"errors"
	"fmt"

	"catalog/collector/internal/domain"

	log "github.com/sirupsen/logrus"
)

// PriceSource is the part of the catalog the price resolver reads from.
type PriceSource interface {
	FindActivePriceRows(ctx context.Context, abstractProductID, productID int64) ([]domain.PriceEntry, error)
	FindDefaultPriceTypeName(ctx context.Context) (string, error)
	FindAbstractPriceBySku(ctx context.Context, sku string) (int64, error)
}

type PriceResolver struct {
	source PriceSource
}

func NewPriceResolver(source PriceSource) *PriceResolver {
	return &PriceResolver{source: source}
}

// ResolvePrices returns the concrete prices of an active product. Products without
// concrete price rows get a single entry for the default price type holding the
// abstract price, so the result is never empty.
func (r *PriceResolver) ResolvePrices(ctx context.Context, productID, abstractProductID int64, abstractSKU string) (domain.PriceMap, error) {
	rows, err := r.source.FindActivePriceRows(ctx, abstractProductID, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve prices for product %d: %w", productID, err)
	}

	if len(rows) > 0 {
		prices := make(domain.PriceMap, len(rows))
		for _, row := range rows {
			prices[row.TypeName] = domain.Price{Price: row.Amount}
		}
		return prices, nil
	}

	log.Debugf("No concrete prices for product %d, falling back to abstract price of %s", productID, abstractSKU)
	return r.defaultPrice(ctx, abstractSKU)
}

func (r *PriceResolver) defaultPrice(ctx context.Context, abstractSKU string) (domain.PriceMap, error) {
	priceType, err := r.source.FindDefaultPriceTypeName(ctx)
	if err != nil {
		return nil, fallbackFailed("default price type", err)
	}
	if priceType == "" {
		return nil, fmt.Errorf("%w: empty default price type name", domain.ErrMissingDefaultPrice)
	}

	price, err := r.source.FindAbstractPriceBySku(ctx, abstractSKU)
	if err != nil {
		return nil, fallbackFailed("abstract price for "+abstractSKU, err)
	}

	return domain.PriceMap{priceType: {Price: price}}, nil
}

// fallbackFailed makes sure every fallback failure matches ErrMissingDefaultPrice
// while keeping the underlying cause matchable.
func fallbackFailed(what string, err error) error {
	if errors.Is(err, domain.ErrMissingDefaultPrice) {
		return fmt.Errorf("failed to resolve %s: %w", what, err)
	}
	return fmt.Errorf("%w: failed to resolve %s: %w", domain.ErrMissingDefaultPrice, what, err)
}
