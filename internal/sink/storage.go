package sink

import (
	"context"
	"fmt"
	"strconv"

	"catalog/collector/internal/domain"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const resourceProductAbstract = "product_abstract"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// StorageSink stores each document as a JSON value under its storage key.
type StorageSink struct {
	redisClient redis.Cmdable
	keyPrefix   string
}

func NewStorageSink(redisClient redis.Cmdable, keyPrefix string) *StorageSink {
	return &StorageSink{
		redisClient: redisClient,
		keyPrefix:   keyPrefix,
	}
}

func (s *StorageSink) Name() string {
	return "storage"
}

// StorageKey returns e.g. "kv:de_de.resource.product_abstract.42".
func (s *StorageSink) StorageKey(locale domain.Locale, abstractProductID int64) string {
	return s.keyPrefix + locale.Name + ".resource." + resourceProductAbstract + "." + strconv.FormatInt(abstractProductID, 10)
}

func (s *StorageSink) UpsertDocuments(ctx context.Context, locale domain.Locale, docs []domain.OutputDocument) error {
	if len(docs) == 0 {
		return nil
	}

	// Encode everything first so a bad document never leaves a half-written batch.
	values := make(map[string]string, len(docs))
	for _, doc := range docs {
		value, err := json.MarshalToString(doc)
		if err != nil {
			return fmt.Errorf("failed to encode document %d: %w", doc.AbstractProductID, err)
		}
		values[s.StorageKey(locale, doc.AbstractProductID)] = value
	}

	_, err := s.redisClient.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for key, value := range values {
			pipe.Set(ctx, key, value, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write %d documents to storage: %w", len(docs), err)
	}

	log.Debugf("Stored %d documents for locale %s", len(docs), locale.Name)
	return nil
}
