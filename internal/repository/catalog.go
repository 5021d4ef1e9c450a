package repository

import (
	"context"
	"errors"
	"fmt"

	"catalog/collector/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

type CatalogRepository interface {
	FindSourceRows(ctx context.Context, localeID int64, filter SourceRowFilter) ([]domain.SourceRow, error)

	FindActivePriceRows(ctx context.Context, abstractProductID, productID int64) ([]domain.PriceEntry, error)
	FindDefaultPriceTypeName(ctx context.Context) (string, error)
	FindAbstractPriceBySku(ctx context.Context, sku string) (int64, error)

	FindActiveCategoryMemberships(ctx context.Context, abstractProductID int64) ([]domain.CategoryMembership, error)
	FindCategoryNodesForCategory(ctx context.Context, categoryID int64) ([]domain.CategoryNode, error)
	FindPathForNode(ctx context.Context, nodeID, localeID int64) ([]domain.PathEntry, error)
	FindURLForNode(ctx context.Context, nodeID int64) (*string, error)
}

// Querier is the subset of *pgxpool.Pool the repository needs.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ Querier = (*pgxpool.Pool)(nil)

type catalogRepository struct {
	db               Querier
	defaultPriceType string
}

func NewCatalogRepository(db Querier, defaultPriceType string) CatalogRepository {
	return &catalogRepository{
		db:               db,
		defaultPriceType: defaultPriceType,
	}
}

func queryFailed(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrQueryFailed, op, err)
}

func (r *catalogRepository) FindSourceRows(ctx context.Context, localeID int64, filter SourceRowFilter) ([]domain.SourceRow, error) {
	query, args, err := buildSourceRowsQuery(localeID, filter)
	if err != nil {
		return nil, queryFailed("build source rows query", err)
	}

	log.Debugf("Fetching source rows for locale %d after %d (limit %d)", localeID, filter.AfterID, filter.Limit)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, queryFailed("find source rows", err)
	}

	result, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.SourceRow, error) {
		var sr domain.SourceRow
		err := row.Scan(
			&sr.AbstractProductID,
			&sr.ProductID,
			&sr.AbstractSKU,
			&sr.SKU,
			&sr.AbstractName,
			&sr.AbstractLocalizedAttributes,
			&sr.ConcreteLocalizedAttributes,
			&sr.ConcreteAttributes,
			&sr.Quantity,
			&sr.URL,
		)
		return sr, err
	})
	if err != nil {
		return nil, queryFailed("scan source rows", err)
	}

	return result, nil
}

func (r *catalogRepository) FindActivePriceRows(ctx context.Context, abstractProductID, productID int64) ([]domain.PriceEntry, error) {
	query, args, err := buildActivePriceRowsQuery(abstractProductID, productID)
	if err != nil {
		return nil, queryFailed("build price rows query", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, queryFailed("find active price rows", err)
	}

	result, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.PriceEntry, error) {
		var e domain.PriceEntry
		err := row.Scan(&e.TypeName, &e.Amount)
		return e, err
	})
	if err != nil {
		return nil, queryFailed("scan price rows", err)
	}

	return result, nil
}

func (r *catalogRepository) FindDefaultPriceTypeName(ctx context.Context) (string, error) {
	query, args, err := buildPriceTypeByNameQuery(r.defaultPriceType)
	if err != nil {
		return "", queryFailed("build price type query", err)
	}

	var name string
	if err := r.db.QueryRow(ctx, query, args...).Scan(&name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("%w: price type %q does not exist", domain.ErrMissingDefaultPrice, r.defaultPriceType)
		}
		return "", queryFailed("find default price type", err)
	}

	return name, nil
}

func (r *catalogRepository) FindAbstractPriceBySku(ctx context.Context, sku string) (int64, error) {
	query, args, err := buildAbstractPriceBySkuQuery(sku, r.defaultPriceType)
	if err != nil {
		return 0, queryFailed("build abstract price query", err)
	}

	var price int64
	if err := r.db.QueryRow(ctx, query, args...).Scan(&price); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("%w: no %s price for abstract sku %s", domain.ErrMissingDefaultPrice, r.defaultPriceType, sku)
		}
		return 0, queryFailed("find abstract price by sku", err)
	}

	return price, nil
}

func (r *catalogRepository) FindActiveCategoryMemberships(ctx context.Context, abstractProductID int64) ([]domain.CategoryMembership, error) {
	query, args, err := buildActiveCategoryMembershipsQuery(abstractProductID)
	if err != nil {
		return nil, queryFailed("build category memberships query", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, queryFailed("find category memberships", err)
	}

	result, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.CategoryMembership, error) {
		var m domain.CategoryMembership
		err := row.Scan(&m.AbstractProductID, &m.CategoryID, &m.ProductOrder)
		return m, err
	})
	if err != nil {
		return nil, queryFailed("scan category memberships", err)
	}

	return result, nil
}

func (r *catalogRepository) FindCategoryNodesForCategory(ctx context.Context, categoryID int64) ([]domain.CategoryNode, error) {
	query, args, err := buildCategoryNodesQuery(categoryID)
	if err != nil {
		return nil, queryFailed("build category nodes query", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, queryFailed("find category nodes", err)
	}

	result, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.CategoryNode, error) {
		var n domain.CategoryNode
		err := row.Scan(&n.ID, &n.CategoryID, &n.ParentNodeID, &n.IsRoot, &n.IsActive)
		return n, err
	})
	if err != nil {
		return nil, queryFailed("scan category nodes", err)
	}

	return result, nil
}

func (r *catalogRepository) FindPathForNode(ctx context.Context, nodeID, localeID int64) ([]domain.PathEntry, error) {
	query, args, err := buildPathForNodeQuery(nodeID, localeID)
	if err != nil {
		return nil, queryFailed("build category path query", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, queryFailed("find category path", err)
	}

	result, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.PathEntry, error) {
		var e domain.PathEntry
		err := row.Scan(&e.NodeID, &e.Name)
		return e, err
	})
	if err != nil {
		return nil, queryFailed("scan category path", err)
	}

	return result, nil
}

// FindURLForNode returns nil when the node has no URL assigned.
func (r *catalogRepository) FindURLForNode(ctx context.Context, nodeID int64) (*string, error) {
	query, args, err := buildURLForNodeQuery(nodeID)
	if err != nil {
		return nil, queryFailed("build category url query", err)
	}

	var url string
	if err := r.db.QueryRow(ctx, query, args...).Scan(&url); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, queryFailed("find category url", err)
	}

	return &url, nil
}
