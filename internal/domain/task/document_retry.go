package task

type DocumentRetryTask struct {
	LocaleID           int64   `json:"locale_id"`
	AbstractProductIDs []int64 `json:"abstract_product_ids"` // Documents that failed on a query error
	RetryCount         int     `json:"retry_count"`          // Attempts made so far
	Error              string  `json:"error"`                // Last failure message
}

func (t *DocumentRetryTask) TaskType() string {
	return TypeDocumentRetry
}

func (t *DocumentRetryTask) TaskValue() ([]byte, error) {
	return DefaultTaskValue(t)
}
