package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"catalog/collector/internal/domain/task"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const (
	StreamPrefix = "collector:stream:"

	fieldTaskType = "task_type"
	fieldTaskData = "task_data"

	defaultBlock = 5 * time.Second
)

var ErrMalformedMessage = errors.New("malformed stream message")

// StreamName returns the stream a task type is published on.
func StreamName(taskType string) string {
	return StreamPrefix + taskType
}

// DecodeMessage splits a stream entry into its task type and JSON payload.
func DecodeMessage(msg *redis.XMessage) (taskType string, data []byte, err error) {
	taskType, ok := msg.Values[fieldTaskType].(string)
	if !ok || taskType == "" {
		return "", nil, fmt.Errorf("%w: message %s has no task type", ErrMalformedMessage, msg.ID)
	}
	raw, ok := msg.Values[fieldTaskData].(string)
	if !ok {
		return taskType, nil, fmt.Errorf("%w: message %s has no task data", ErrMalformedMessage, msg.ID)
	}
	return taskType, []byte(raw), nil
}

type Queue interface {
	AddTask(ctx context.Context, task task.Task) (string, error) // Returns message ID
	GetTask(ctx context.Context, group, consumer, stream string) (*redis.XMessage, error)
	AckTask(ctx context.Context, stream, group, msgID string) error
	CreateGroup(ctx context.Context, stream, group string) error
	AutoClaim(ctx context.Context, group, consumer, stream string, minIdleTime time.Duration) ([]redis.XMessage, error)
	DeliveryCount(ctx context.Context, stream, group, msgID string) (int64, error)
	EnsureStreamsExist(ctx context.Context) error
}

type Config struct {
	Group string
	// Block is how long GetTask waits for a new entry. Defaults to 5s.
	Block time.Duration
}

type RedisQueue struct {
	rdb   redis.UniversalClient
	group string
	block time.Duration
}

// NewRedisQueue creates the task streams and the consumer group before returning,
// so workers can read right away.
func NewRedisQueue(ctx context.Context, rdb redis.UniversalClient, cfg Config) (*RedisQueue, error) {
	block := cfg.Block
	if block <= 0 {
		block = defaultBlock
	}

	q := &RedisQueue{rdb: rdb, group: cfg.Group, block: block}
	if err := q.EnsureStreamsExist(ctx); err != nil {
		return nil, fmt.Errorf("failed to prepare task streams: %w", err)
	}
	return q, nil
}

// CreateGroup starts the group at the beginning of the stream so tasks published
// before the first worker joined are still delivered.
func (q *RedisQueue) CreateGroup(ctx context.Context, stream, group string) error {
	err := q.rdb.XGroupCreateMkStream(ctx, stream, group, "0").Err()
	if err != nil && strings.HasPrefix(err.Error(), "BUSYGROUP") {
		log.Debugf("Consumer group %s already exists on %s", group, stream)
		return nil
	}
	return err
}

func (q *RedisQueue) AddTask(ctx context.Context, t task.Task) (string, error) {
	payload, err := t.TaskValue()
	if err != nil {
		return "", fmt.Errorf("failed to encode %s: %w", t.TaskType(), err)
	}

	stream := StreamName(t.TaskType())
	id, err := q.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]interface{}{
			fieldTaskType: t.TaskType(),
			fieldTaskData: string(payload),
		},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("failed to publish %s on %s: %w", t.TaskType(), stream, err)
	}

	log.Debugf("Published %s on %s as %s", t.TaskType(), stream, id)
	return id, nil
}

// GetTask returns nil, nil when nothing arrived within the block time.
func (q *RedisQueue) GetTask(ctx context.Context, group, consumer, stream string) (*redis.XMessage, error) {
	streams, err := q.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{stream, ">"},
		Count:    1,
		Block:    q.block,
	}).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("failed to read %s as %s: %w", stream, consumer, err)
	}

	for _, s := range streams {
		if len(s.Messages) > 0 {
			return &s.Messages[0], nil
		}
	}
	return nil, nil
}

func (q *RedisQueue) AckTask(ctx context.Context, stream, group, msgID string) error {
	if err := q.rdb.XAck(ctx, stream, group, msgID).Err(); err != nil {
		return fmt.Errorf("failed to ack %s on %s: %w", msgID, stream, err)
	}
	return nil
}

// AutoClaim takes over one entry that stayed pending longer than minIdleTime,
// e.g. a run whose worker died or whose sink write failed.
func (q *RedisQueue) AutoClaim(ctx context.Context, group, consumer, stream string, minIdleTime time.Duration) ([]redis.XMessage, error) {
	msgs, _, err := q.rdb.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   stream,
		Group:    group,
		Consumer: consumer,
		MinIdle:  minIdleTime,
		Start:    "0-0",
		Count:    1,
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to auto-claim from %s: %w", stream, err)
	}
	return msgs, nil
}

// DeliveryCount returns how many times a pending entry was handed to a consumer,
// or 0 when it is no longer pending.
func (q *RedisQueue) DeliveryCount(ctx context.Context, stream, group, msgID string) (int64, error) {
	pending, err := q.rdb.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: stream,
		Group:  group,
		Start:  msgID,
		End:    msgID,
		Count:  1,
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("failed to inspect pending %s on %s: %w", msgID, stream, err)
	}
	if len(pending) == 0 {
		return 0, nil
	}
	return pending[0].RetryCount, nil
}

func (q *RedisQueue) EnsureStreamsExist(ctx context.Context) error {
	for _, taskType := range task.Types {
		stream := StreamName(taskType)
		if err := q.CreateGroup(ctx, stream, q.group); err != nil {
			return fmt.Errorf("failed to create group %s on %s: %w", q.group, stream, err)
		}
		log.Infof("✅ Stream %s ready for group %s", stream, q.group)
	}
	return nil
}
