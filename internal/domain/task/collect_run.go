package task

// CollectRunTask triggers a full collection run for one locale.
type CollectRunTask struct {
	LocaleID int64 `json:"locale_id"`
}

func (t *CollectRunTask) TaskType() string {
	return TypeCollectRun
}

func (t *CollectRunTask) TaskValue() ([]byte, error) {
	return DefaultTaskValue(t)
}
