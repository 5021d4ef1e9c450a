package collector

import (
	"context"
	"fmt"

	"catalog/collector/internal/domain"
)

// CategorySource is the part of the catalog the category components read from.
type CategorySource interface {
	FindActiveCategoryMemberships(ctx context.Context, abstractProductID int64) ([]domain.CategoryMembership, error)
	FindCategoryNodesForCategory(ctx context.Context, categoryID int64) ([]domain.CategoryNode, error)
	FindPathForNode(ctx context.Context, nodeID, localeID int64) ([]domain.PathEntry, error)
	FindURLForNode(ctx context.Context, nodeID int64) (*string, error)
}

// CategoryPathResolver resolves node paths and URLs. It does not cache;
// memoization happens per product in CategoryAggregator.
type CategoryPathResolver struct {
	source CategorySource
}

func NewCategoryPathResolver(source CategorySource) *CategoryPathResolver {
	return &CategoryPathResolver{source: source}
}

// ResolvePath returns the localized path of a node ordered root first.
func (r *CategoryPathResolver) ResolvePath(ctx context.Context, nodeID, localeID int64) ([]domain.PathEntry, error) {
	path, err := r.source.FindPathForNode(ctx, nodeID, localeID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path of node %d: %w", nodeID, err)
	}
	return path, nil
}

// ResolveURL returns nil when no URL is assigned to the node.
func (r *CategoryPathResolver) ResolveURL(ctx context.Context, nodeID int64) (*string, error) {
	url, err := r.source.FindURLForNode(ctx, nodeID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve url of node %d: %w", nodeID, err)
	}
	return url, nil
}

// Resolve returns the path of a node together with the node's own URL.
func (r *CategoryPathResolver) Resolve(ctx context.Context, nodeID, localeID int64) (domain.CategoryPath, error) {
	entries, err := r.ResolvePath(ctx, nodeID, localeID)
	if err != nil {
		return domain.CategoryPath{}, err
	}

	url, err := r.ResolveURL(ctx, nodeID)
	if err != nil {
		return domain.CategoryPath{}, err
	}

	return domain.CategoryPath{Entries: entries, URL: url}, nil
}
