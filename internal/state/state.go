package state

import (
	"context"
	"fmt"
	"strconv"

	"catalog/collector/internal/domain"

	"github.com/redis/go-redis/v9"
)

// StateManager keeps the resume cursor of full collection runs.
type StateManager interface {
	GetLastCollectedID(ctx context.Context, locale domain.Locale) (int64, error)
	SetLastCollectedID(ctx context.Context, locale domain.Locale, abstractProductID int64) error
	ClearProgress(ctx context.Context, locale domain.Locale) error
}

type redisStateManager struct {
	redisClient redis.Cmdable
	keyPrefix   string
}

func NewRedisStateManager(redisClient redis.Cmdable) StateManager {
	return &redisStateManager{
		redisClient: redisClient,
		keyPrefix:   "collector:progress:locale:",
	}
}

func (s *redisStateManager) key(locale domain.Locale) string {
	return s.keyPrefix + strconv.FormatInt(locale.ID, 10)
}

func (s *redisStateManager) GetLastCollectedID(ctx context.Context, locale domain.Locale) (int64, error) {
	val, err := s.redisClient.Get(ctx, s.key(locale)).Result()
	if err != nil {
		if err == redis.Nil {
			return 0, nil // No progress saved yet
		}
		return 0, fmt.Errorf("failed to get progress for locale %s: %w", locale.Name, err)
	}

	id, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse progress for locale %s: %w", locale.Name, err)
	}

	return id, nil
}

func (s *redisStateManager) SetLastCollectedID(ctx context.Context, locale domain.Locale, abstractProductID int64) error {
	err := s.redisClient.Set(ctx, s.key(locale), abstractProductID, 0).Err() // No expiration
	if err != nil {
		return fmt.Errorf("failed to set progress for locale %s: %w", locale.Name, err)
	}
	return nil
}

func (s *redisStateManager) ClearProgress(ctx context.Context, locale domain.Locale) error {
	if err := s.redisClient.Del(ctx, s.key(locale)).Err(); err != nil {
		return fmt.Errorf("failed to clear progress for locale %s: %w", locale.Name, err)
	}
	return nil
}
