package collector

import (
	"context"
	"sync"

	"catalog/collector/internal/domain"
)

// fakeCatalog serves canned catalog data and counts every query.
type fakeCatalog struct {
	mu sync.Mutex

	priceRows        map[int64][]domain.PriceEntry
	defaultPriceType string
	abstractPrices   map[string]int64
	memberships      map[int64][]domain.CategoryMembership
	nodes            map[int64][]domain.CategoryNode
	paths            map[int64][]domain.PathEntry
	// pathVersions, when set for a node, answers successive path lookups in order.
	pathVersions map[int64][][]domain.PathEntry
	pathLookups  map[int64]int
	urls         map[int64]string

	priceErr    error
	categoryErr error
	urlErr      error

	calls map[string]int
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		priceRows:        map[int64][]domain.PriceEntry{},
		defaultPriceType: "DEFAULT",
		abstractPrices:   map[string]int64{},
		memberships:      map[int64][]domain.CategoryMembership{},
		nodes:            map[int64][]domain.CategoryNode{},
		paths:            map[int64][]domain.PathEntry{},
		pathVersions:     map[int64][][]domain.PathEntry{},
		pathLookups:      map[int64]int{},
		urls:             map[int64]string{},
		calls:            map[string]int{},
	}
}

func (f *fakeCatalog) count(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
}

func (f *fakeCatalog) Calls(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeCatalog) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

func (f *fakeCatalog) FindActivePriceRows(_ context.Context, _, productID int64) ([]domain.PriceEntry, error) {
	f.count("prices")
	if f.priceErr != nil {
		return nil, f.priceErr
	}
	return f.priceRows[productID], nil
}

func (f *fakeCatalog) FindDefaultPriceTypeName(context.Context) (string, error) {
	f.count("default_price_type")
	if f.defaultPriceType == "" {
		return "", domain.ErrMissingDefaultPrice
	}
	return f.defaultPriceType, nil
}

func (f *fakeCatalog) FindAbstractPriceBySku(_ context.Context, sku string) (int64, error) {
	f.count("abstract_price")
	price, ok := f.abstractPrices[sku]
	if !ok {
		return 0, domain.ErrMissingDefaultPrice
	}
	return price, nil
}

func (f *fakeCatalog) FindActiveCategoryMemberships(_ context.Context, abstractProductID int64) ([]domain.CategoryMembership, error) {
	f.count("memberships")
	if f.categoryErr != nil {
		return nil, f.categoryErr
	}
	return f.memberships[abstractProductID], nil
}

func (f *fakeCatalog) FindCategoryNodesForCategory(_ context.Context, categoryID int64) ([]domain.CategoryNode, error) {
	f.count("nodes")
	return f.nodes[categoryID], nil
}

func (f *fakeCatalog) FindPathForNode(_ context.Context, nodeID, _ int64) ([]domain.PathEntry, error) {
	f.count("path")

	f.mu.Lock()
	defer f.mu.Unlock()
	if versions := f.pathVersions[nodeID]; len(versions) > 0 {
		n := min(f.pathLookups[nodeID], len(versions)-1)
		f.pathLookups[nodeID]++
		return versions[n], nil
	}
	return f.paths[nodeID], nil
}

func (f *fakeCatalog) FindURLForNode(_ context.Context, nodeID int64) (*string, error) {
	f.count("url")
	if f.urlErr != nil {
		return nil, f.urlErr
	}
	url, ok := f.urls[nodeID]
	if !ok {
		return nil, nil
	}
	return &url, nil
}

// withShoesAndSale seeds abstract product 1 with memberships in two category trees:
// node 10 "Shoes" and node 20 "Sale", both roots.
func (f *fakeCatalog) withShoesAndSale() *fakeCatalog {
	f.memberships[1] = []domain.CategoryMembership{
		{AbstractProductID: 1, CategoryID: 100, ProductOrder: 1},
		{AbstractProductID: 1, CategoryID: 200, ProductOrder: 2},
	}
	f.nodes[100] = []domain.CategoryNode{{ID: 10, CategoryID: 100, IsRoot: true, IsActive: true}}
	f.nodes[200] = []domain.CategoryNode{{ID: 20, CategoryID: 200, IsRoot: true, IsActive: true}}
	f.paths[10] = []domain.PathEntry{{NodeID: 10, Name: "Shoes"}}
	f.paths[20] = []domain.PathEntry{{NodeID: 20, Name: "Sale"}}
	f.urls[10] = "/shoes"
	f.urls[20] = "/sale"
	return f
}

func strPtr(s string) *string {
	return &s
}
