package task

// CollectProductsTask re-collects a set of touched product abstracts.
type CollectProductsTask struct {
	LocaleID           int64   `json:"locale_id"`
	AbstractProductIDs []int64 `json:"abstract_product_ids"`
}

func (t *CollectProductsTask) TaskType() string {
	return TypeCollectProducts
}

func (t *CollectProductsTask) TaskValue() ([]byte, error) {
	return DefaultTaskValue(t)
}
