package collector

import (
	"context"
	"fmt"

	"catalog/collector/internal/domain"

	log "github.com/sirupsen/logrus"
)

type CategoryAggregator struct {
	source   CategorySource
	resolver *CategoryPathResolver
	cache    *CategoryPathCache

	// includeAncestors also puts every ancestor on a node's path into the map.
	includeAncestors bool
}

type AggregatorOption func(*CategoryAggregator)

// WithAncestors makes the aggregator add the whole root→node path of each
// membership node instead of the node alone.
func WithAncestors(enabled bool) AggregatorOption {
	return func(a *CategoryAggregator) {
		a.includeAncestors = enabled
	}
}

func NewCategoryAggregator(source CategorySource, resolver *CategoryPathResolver, cache *CategoryPathCache, opts ...AggregatorOption) *CategoryAggregator {
	a := &CategoryAggregator{
		source:   source,
		resolver: resolver,
		cache:    cache,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AggregateCategories returns the category map of a product abstract. The first call
// for a product walks its memberships; later calls in the same run hit the cache.
func (a *CategoryAggregator) AggregateCategories(ctx context.Context, abstractProductID, localeID int64) (domain.CategoryMap, error) {
	if categories, ok := a.cache.Get(abstractProductID); ok {
		log.Debugf("Category cache hit for product abstract %d", abstractProductID)
		return categories, nil
	}

	return a.cache.GetOrCompute(abstractProductID, func() (domain.CategoryMap, error) {
		return a.collect(ctx, abstractProductID, localeID)
	})
}

func (a *CategoryAggregator) collect(ctx context.Context, abstractProductID, localeID int64) (domain.CategoryMap, error) {
	memberships, err := a.source.FindActiveCategoryMemberships(ctx, abstractProductID)
	if err != nil {
		return nil, fmt.Errorf("failed to load categories of product abstract %d: %w", abstractProductID, err)
	}

	categories := make(domain.CategoryMap)
	for _, membership := range memberships {
		nodes, err := a.source.FindCategoryNodesForCategory(ctx, membership.CategoryID)
		if err != nil {
			return nil, fmt.Errorf("failed to load nodes of category %d: %w", membership.CategoryID, err)
		}

		for _, node := range nodes {
			if err := a.addNode(ctx, categories, node, localeID); err != nil {
				return nil, err
			}
		}
	}

	return categories, nil
}

// addNode upserts the node (and its ancestors when enabled); later memberships
// targeting the same node overwrite earlier ones.
func (a *CategoryAggregator) addNode(ctx context.Context, categories domain.CategoryMap, node domain.CategoryNode, localeID int64) error {
	path, err := a.resolver.Resolve(ctx, node.ID, localeID)
	if err != nil {
		return err
	}

	terminal, ok := path.Terminal()
	if !ok {
		log.Warnf("⚠️ Category node %d has no path in locale %d, skipping", node.ID, localeID)
		return nil
	}

	if a.includeAncestors {
		for _, entry := range path.Entries[:len(path.Entries)-1] {
			url, err := a.resolver.ResolveURL(ctx, entry.NodeID)
			if err != nil {
				return err
			}
			categories[entry.NodeID] = domain.CategoryEntry{NodeID: entry.NodeID, Name: entry.Name, URL: url}
		}
	}

	categories[node.ID] = domain.CategoryEntry{
		NodeID: node.ID,
		Name:   terminal.Name,
		URL:    path.URL,
	}

	log.Debugf("Resolved category node %d as %s", node.ID, path.DisplayPath())
	return nil
}
