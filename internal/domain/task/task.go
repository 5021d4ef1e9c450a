package task

import jsoniter "github.com/json-iterator/go"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	TypeCollectRun      = "CollectRunTask"
	TypeCollectProducts = "CollectProductsTask"
	TypeDocumentRetry   = "DocumentRetryTask"
)

// Types lists every task type the collector consumes.
var Types = []string{TypeCollectRun, TypeCollectProducts, TypeDocumentRetry}

type Task interface {
	TaskType() string
	TaskValue() ([]byte, error)
}

// DefaultTaskValue provides a common implementation for TaskValue
func DefaultTaskValue(task interface{}) ([]byte, error) {
	return json.Marshal(task)
}

func UnmarshalTask[T Task](task []byte) (T, error) {
	var t T
	err := json.Unmarshal(task, &t)
	return t, err
}
