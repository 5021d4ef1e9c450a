package domain

// SourceRow is one joined record describing a product abstract in a locale.
// Attribute blobs are kept as raw JSON; decoding them is the collector's job.
type SourceRow struct {
	AbstractProductID           int64  `json:"abstract_product_id"`
	ProductID                   int64  `json:"product_id"`
	AbstractSKU                 string `json:"abstract_sku"`
	SKU                         string `json:"sku"`
	AbstractName                string `json:"abstract_name"`
	AbstractLocalizedAttributes string `json:"abstract_localized_attributes"`
	ConcreteLocalizedAttributes string `json:"concrete_localized_attributes"`
	ConcreteAttributes          string `json:"concrete_attributes"`
	Quantity                    string `json:"quantity"`
	URL                         string `json:"url"`
}

// AttributeMap is the flat result of merging the attribute sources of a product.
type AttributeMap map[string]any

// OutputDocument is the denormalized product abstract handed to the sinks.
// Field names are the contract with the storage and search indexes.
type OutputDocument struct {
	AbstractProductID  int64        `json:"abstract_product_id"`
	AbstractAttributes AttributeMap `json:"abstract_attributes"`
	AbstractName       string       `json:"abstract_name"`
	AbstractSKU        string       `json:"abstract_sku"`
	URL                string       `json:"url"`
	Quantity           int          `json:"quantity"`
	Available          bool         `json:"available"`
	Prices             PriceMap     `json:"prices"`
	Categories         CategoryMap  `json:"categories"`
}
