package collector

import (
	stdjson "encoding/json"
	"errors"
	"fmt"
	"strings"

	"catalog/collector/internal/domain"

	jsoniter "github.com/json-iterator/go"
)

// UseNumber keeps numeric attribute values exactly as they were stored.
var attributeJSON = jsoniter.Config{
	EscapeHTML:             true,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
	UseNumber:              true,
}.Froze()

var (
	errEmptyBlob     = errors.New("empty attribute blob")
	errInvalidSyntax = errors.New("invalid JSON syntax")
)

// MergeAttributes decodes the three attribute blobs and merges them in the order
// abstract localized, concrete localized, concrete raw. On a key collision the later
// source wins; values are replaced as a whole, nested objects are not merged.
func MergeAttributes(abstractLocalized, concreteLocalized, concreteRaw string) (domain.AttributeMap, error) {
	sources := []struct {
		name string
		blob string
	}{
		{"abstract localized", abstractLocalized},
		{"concrete localized", concreteLocalized},
		{"concrete", concreteRaw},
	}

	merged := make(domain.AttributeMap)
	for _, src := range sources {
		if strings.TrimSpace(src.blob) == "" {
			return nil, fmt.Errorf("%w: %s attributes: %w", domain.ErrMalformedAttributeData, src.name, errEmptyBlob)
		}

		// UseNumber keeps number literals verbatim without checking them, so
		// "01" or "1e" would otherwise reach the sinks as invalid JSON.
		if !stdjson.Valid([]byte(src.blob)) {
			return nil, fmt.Errorf("%w: %s attributes: %w", domain.ErrMalformedAttributeData, src.name, errInvalidSyntax)
		}

		var attrs map[string]any
		if err := attributeJSON.UnmarshalFromString(src.blob, &attrs); err != nil {
			return nil, fmt.Errorf("%w: %s attributes: %w", domain.ErrMalformedAttributeData, src.name, err)
		}
		for k, v := range attrs {
			merged[k] = v
		}
	}

	return merged, nil
}
