package sink

import (
	"context"
	"fmt"

	"catalog/collector/internal/domain"
)

// DocumentSink bulk-writes finished documents to an external store.
type DocumentSink interface {
	Name() string
	UpsertDocuments(ctx context.Context, locale domain.Locale, docs []domain.OutputDocument) error
}

// MultiSink writes to every sink in order and stops at the first failure.
type MultiSink []DocumentSink

func (m MultiSink) Name() string {
	return "multi"
}

func (m MultiSink) UpsertDocuments(ctx context.Context, locale domain.Locale, docs []domain.OutputDocument) error {
	for _, s := range m {
		if err := s.UpsertDocuments(ctx, locale, docs); err != nil {
			return fmt.Errorf("%s sink: %w", s.Name(), err)
		}
	}
	return nil
}
