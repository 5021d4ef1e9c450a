package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"catalog/collector/internal/domain"
	"catalog/collector/internal/domain/task"
	"catalog/collector/internal/queue"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// errPoisonMessage marks messages that can never be handled; they are acked and dropped.
var errPoisonMessage = errors.New("unprocessable message")

const readErrorBackoff = time.Second

// streamConsumers describes the workers attached to one task stream.
type streamConsumers struct {
	stream  string
	kind    string
	workers int
}

// RunWorkers consumes every task stream until ctx is done. Full runs are long and
// few; touched products and retries are many and short.
func (s *Service) RunWorkers(ctx context.Context, numWorkers int) error {
	consumers := []streamConsumers{
		{stream: queue.StreamName(task.TypeCollectRun), kind: "run", workers: 1},
		{stream: queue.StreamName(task.TypeCollectProducts), kind: "products", workers: max(1, numWorkers)},
		{stream: queue.StreamName(task.TypeDocumentRetry), kind: "retry", workers: max(1, numWorkers/2)},
	}

	var wg sync.WaitGroup
	for _, sc := range consumers {
		sc := sc
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.claimLoop(ctx, sc)
		}()

		for id := 1; id <= sc.workers; id++ {
			id := id
			wg.Add(1)
			go func() {
				defer wg.Done()
				s.consumeLoop(ctx, sc, fmt.Sprintf("%s-worker-%d", sc.kind, id))
			}()
		}
	}

	wg.Wait()
	log.Info("🛑 All workers stopped")
	return nil
}

// claimLoop periodically takes over entries left pending by failed or dead consumers.
func (s *Service) claimLoop(ctx context.Context, sc streamConsumers) {
	ticker := time.NewTicker(s.minIdleTime)
	defer ticker.Stop()

	consumer := "claimer-" + sc.kind
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		s.reclaim(ctx, sc, consumer)
	}
}

// reclaim takes over one idle entry. Entries delivered more than maxDeliveries
// times are acked and dropped so a task that always fails does not loop forever.
func (s *Service) reclaim(ctx context.Context, sc streamConsumers, consumer string) {
	msgs, err := s.queue.AutoClaim(ctx, s.groupName, consumer, sc.stream, s.minIdleTime)
	if err != nil {
		if ctx.Err() == nil {
			log.Errorf("❌ Auto-claim on %s failed: %v", sc.stream, err)
		}
		return
	}

	for i := range msgs {
		msg := &msgs[i]

		deliveries, err := s.queue.DeliveryCount(ctx, sc.stream, s.groupName, msg.ID)
		if err != nil {
			log.Warnf("⚠️ %v", err)
		}
		if deliveries > s.maxDeliveries {
			log.Errorf("❌ Dropping message %s from %s after %d deliveries", msg.ID, sc.stream, deliveries)
			if err := s.queue.AckTask(ctx, sc.stream, s.groupName, msg.ID); err != nil {
				log.Errorf("❌ Failed to ack message %s: %v", msg.ID, err)
			}
			continue
		}

		log.Infof("🔄 Reclaimed message %s from %s (delivery %d)", msg.ID, sc.stream, deliveries)
		if err := s.processMessage(ctx, sc.stream, msg); err != nil {
			log.Errorf("❌ Reclaimed message %s failed again: %v", msg.ID, err)
		}
	}
}

func (s *Service) consumeLoop(ctx context.Context, sc streamConsumers, consumer string) {
	log.Infof("🚀 %s consuming %s", consumer, sc.stream)
	defer log.Debugf("%s stopped", consumer)

	for ctx.Err() == nil {
		msg, err := s.queue.GetTask(ctx, s.groupName, consumer, sc.stream)
		if err != nil {
			if ctx.Err() == nil {
				log.Errorf("❌ %s failed to read %s: %v", consumer, sc.stream, err)
			}
			select {
			case <-ctx.Done():
			case <-time.After(readErrorBackoff):
			}
			continue
		}
		if msg == nil {
			continue
		}

		if err := s.processMessage(ctx, sc.stream, msg); err != nil {
			log.Errorf("❌ %s failed on message %s: %v", consumer, msg.ID, err)
		}
	}
}

// processMessage acks a message once it is handled or found unprocessable.
// Messages whose collection failed stay pending and are auto-claimed later.
func (s *Service) processMessage(ctx context.Context, streamName string, msg *redis.XMessage) error {
	err := s.handleMessage(ctx, msg)
	if err != nil && !errors.Is(err, errPoisonMessage) {
		return err
	}
	if err != nil {
		log.Errorf("❌ Dropping message %s: %v", msg.ID, err)
	}

	if ackErr := s.queue.AckTask(ctx, streamName, s.groupName, msg.ID); ackErr != nil {
		return fmt.Errorf("failed to ack message %s: %w", msg.ID, ackErr)
	}

	return nil
}

func (s *Service) handleMessage(ctx context.Context, msg *redis.XMessage) error {
	taskType, taskData, err := queue.DecodeMessage(msg)
	if err != nil {
		return fmt.Errorf("%w: %w", errPoisonMessage, err)
	}

	switch taskType {
	case task.TypeCollectRun:
		runTask, err := task.UnmarshalTask[*task.CollectRunTask](taskData)
		if err != nil {
			return fmt.Errorf("%w: failed to unmarshal run task: %w", errPoisonMessage, err)
		}
		locale, err := s.locale(runTask.LocaleID)
		if err != nil {
			return err
		}
		_, err = s.RunCollection(ctx, locale)
		return err

	case task.TypeCollectProducts:
		productsTask, err := task.UnmarshalTask[*task.CollectProductsTask](taskData)
		if err != nil {
			return fmt.Errorf("%w: failed to unmarshal products task: %w", errPoisonMessage, err)
		}
		locale, err := s.locale(productsTask.LocaleID)
		if err != nil {
			return err
		}
		_, err = s.CollectProducts(ctx, locale, productsTask.AbstractProductIDs, 0)
		return err

	case task.TypeDocumentRetry:
		retryTask, err := task.UnmarshalTask[*task.DocumentRetryTask](taskData)
		if err != nil {
			return fmt.Errorf("%w: failed to unmarshal retry task: %w", errPoisonMessage, err)
		}
		locale, err := s.locale(retryTask.LocaleID)
		if err != nil {
			return err
		}
		log.Infof("🔄 Retrying %d product abstracts for %s (attempt %d), last error: %s",
			len(retryTask.AbstractProductIDs), locale.Name, retryTask.RetryCount, retryTask.Error)
		_, err = s.CollectProducts(ctx, locale, retryTask.AbstractProductIDs, retryTask.RetryCount)
		return err

	default:
		return fmt.Errorf("%w: unknown task type %q", errPoisonMessage, taskType)
	}
}

func (s *Service) locale(id int64) (domain.Locale, error) {
	locale, ok := s.localesByID[id]
	if !ok {
		return domain.Locale{}, fmt.Errorf("%w: locale %d is not configured", errPoisonMessage, id)
	}
	return locale, nil
}
