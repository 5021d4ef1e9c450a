package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"catalog/collector/internal/collector"
	"catalog/collector/internal/domain"
	"catalog/collector/internal/domain/task"
	"catalog/collector/internal/queue"
	"catalog/collector/internal/repository"
	"catalog/collector/internal/sink"
	"catalog/collector/internal/state"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Settings tune how the service runs collections.
type Settings struct {
	Locales          []domain.Locale
	BatchSize        int
	Workers          int
	MaxRetries       int
	IncludeAncestors bool
	GroupName        string
	MinIdleTime      time.Duration
	// MaxDeliveries is how often a stream entry may be handed out before it is dropped.
	MaxDeliveries int
}

type Service struct {
	repository   repository.CatalogRepository
	sink         sink.DocumentSink
	queue        queue.Queue
	stateManager state.StateManager

	locales          []domain.Locale
	localesByID      map[int64]domain.Locale
	batchSize        int
	workers          int
	maxRetries       int
	includeAncestors bool
	groupName        string
	minIdleTime      time.Duration
	maxDeliveries    int64
}

// DocumentFailure records a document that was dropped from its batch.
type DocumentFailure struct {
	AbstractProductID int64
	Err               error
}

// RunReport summarizes one collection pass.
type RunReport struct {
	Locale    domain.Locale
	Collected int
	Batches   int
	Failures  []DocumentFailure
}

func NewService(
	repository repository.CatalogRepository,
	sink sink.DocumentSink,
	queue queue.Queue,
	stateManager state.StateManager,
	settings Settings,
) *Service {
	minIdleTime := settings.MinIdleTime
	if minIdleTime <= 0 {
		minIdleTime = 2 * time.Minute
	}

	maxDeliveries := settings.MaxDeliveries
	if maxDeliveries <= 0 {
		maxDeliveries = 5
	}

	byID := make(map[int64]domain.Locale, len(settings.Locales))
	for _, l := range settings.Locales {
		byID[l.ID] = l
	}

	return &Service{
		repository:       repository,
		sink:             sink,
		queue:            queue,
		stateManager:     stateManager,
		locales:          settings.Locales,
		localesByID:      byID,
		batchSize:        max(1, settings.BatchSize),
		workers:          max(1, settings.Workers),
		maxRetries:       settings.MaxRetries,
		includeAncestors: settings.IncludeAncestors,
		groupName:        settings.GroupName,
		minIdleTime:      minIdleTime,
		maxDeliveries:    int64(maxDeliveries),
	}
}

// newBuilder wires a document builder around a cache that lives for one run only.
func (s *Service) newBuilder(cache *collector.CategoryPathCache) *collector.ProductDocumentBuilder {
	aggregator := collector.NewCategoryAggregator(
		s.repository,
		collector.NewCategoryPathResolver(s.repository),
		cache,
		collector.WithAncestors(s.includeAncestors),
	)
	return collector.NewProductDocumentBuilder(collector.NewPriceResolver(s.repository), aggregator)
}

// EnqueueRuns publishes a full collection run for every configured locale.
func (s *Service) EnqueueRuns(ctx context.Context) error {
	for _, locale := range s.locales {
		if _, err := s.queue.AddTask(ctx, &task.CollectRunTask{LocaleID: locale.ID}); err != nil {
			return fmt.Errorf("failed to enqueue run for locale %s: %w", locale.Name, err)
		}
		log.Infof("📨 Enqueued collection run for locale %s", locale.Name)
	}
	return nil
}

// RunCollection materializes every product abstract of a locale. An interrupted
// run continues after the last written batch.
func (s *Service) RunCollection(ctx context.Context, locale domain.Locale) (*RunReport, error) {
	started := time.Now()
	cache := collector.NewCategoryPathCache()
	builder := s.newBuilder(cache)
	report := &RunReport{Locale: locale}

	afterID, err := s.stateManager.GetLastCollectedID(ctx, locale)
	if err != nil {
		return report, err
	}
	if afterID > 0 {
		log.Infof("🔄 Continue collection for %s after product abstract %d", locale.Name, afterID)
	}

	log.Infof("🔄 Collecting product abstracts for locale %s", locale.Name)

	for {
		rows, err := s.repository.FindSourceRows(ctx, locale.ID, repository.SourceRowFilter{
			AfterID: afterID,
			Limit:   uint(s.batchSize),
		})
		if err != nil {
			return report, fmt.Errorf("failed to load source rows: %w", err)
		}
		if len(rows) == 0 {
			break
		}

		if err := s.collectBatch(ctx, builder, locale, rows, report); err != nil {
			return report, err
		}

		afterID = rows[len(rows)-1].AbstractProductID
		if err := s.stateManager.SetLastCollectedID(ctx, locale, afterID); err != nil {
			log.Warnf("⚠️ %v", err)
		}

		if len(rows) < s.batchSize {
			break
		}
	}

	if err := s.stateManager.ClearProgress(ctx, locale); err != nil {
		log.Warnf("⚠️ %v", err)
	}

	s.scheduleRetry(ctx, locale, report.Failures, 0)

	log.Infof("✅ Completed %s: %d documents in %d batches, %d failed, %d category maps cached (%v)",
		locale.Name, report.Collected, report.Batches, len(report.Failures), cache.Len(), time.Since(started).Round(time.Millisecond))

	return report, nil
}

// CollectProducts re-collects the given product abstracts. attempt counts the
// retries already made for them.
func (s *Service) CollectProducts(ctx context.Context, locale domain.Locale, ids []int64, attempt int) (*RunReport, error) {
	builder := s.newBuilder(collector.NewCategoryPathCache())
	report := &RunReport{Locale: locale}

	for start := 0; start < len(ids); start += s.batchSize {
		chunk := ids[start:min(start+s.batchSize, len(ids))]

		rows, err := s.repository.FindSourceRows(ctx, locale.ID, repository.SourceRowFilter{IDs: chunk})
		if err != nil {
			return report, fmt.Errorf("failed to load source rows: %w", err)
		}
		if missing := len(chunk) - len(rows); missing > 0 {
			log.Infof("%d of %d requested product abstracts have no active source row in %s", missing, len(chunk), locale.Name)
		}
		if len(rows) == 0 {
			continue
		}

		if err := s.collectBatch(ctx, builder, locale, rows, report); err != nil {
			return report, err
		}
	}

	s.scheduleRetry(ctx, locale, report.Failures, attempt)

	log.Infof("✅ Collected %d of %d product abstracts for %s", report.Collected, len(ids), locale.Name)
	return report, nil
}

// collectBatch builds the documents of one batch and writes the ones that
// succeeded, in source order. Only a sink failure or cancellation aborts it.
func (s *Service) collectBatch(
	ctx context.Context,
	builder *collector.ProductDocumentBuilder,
	locale domain.Locale,
	rows []domain.SourceRow,
	report *RunReport,
) error {
	docs := make([]*domain.OutputDocument, len(rows))
	var (
		mu       sync.Mutex
		failures []DocumentFailure
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for i, row := range rows {
		i, row := i, row
		g.Go(func() error {
			doc, err := builder.Build(gctx, row, locale.ID)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				log.Warnf("❌ Dropping product abstract %d: %v", row.AbstractProductID, err)
				mu.Lock()
				failures = append(failures, DocumentFailure{AbstractProductID: row.AbstractProductID, Err: err})
				mu.Unlock()
				return nil
			}
			docs[i] = doc
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("batch cancelled: %w", err)
	}

	batch := make([]domain.OutputDocument, 0, len(docs))
	for _, doc := range docs {
		if doc != nil {
			batch = append(batch, *doc)
		}
	}

	if err := s.sink.UpsertDocuments(ctx, locale, batch); err != nil {
		return fmt.Errorf("failed to write batch of %d documents: %w", len(batch), err)
	}

	report.Batches++
	report.Collected += len(batch)
	report.Failures = append(report.Failures, failures...)

	log.Debugf("Wrote batch of %d documents for %s (%d dropped)", len(batch), locale.Name, len(failures))
	return nil
}

// scheduleRetry re-queues documents that failed on a query error. Malformed
// data is not retried since another attempt would fail the same way.
func (s *Service) scheduleRetry(ctx context.Context, locale domain.Locale, failures []DocumentFailure, attempt int) {
	var (
		ids     []int64
		lastErr error
	)
	for _, f := range failures {
		if errors.Is(f.Err, domain.ErrQueryFailed) {
			ids = append(ids, f.AbstractProductID)
			lastErr = f.Err
		}
	}
	if len(ids) == 0 {
		return
	}

	if attempt >= s.maxRetries {
		log.Errorf("❌ Giving up on %d product abstracts in %s after %d retries: %v", len(ids), locale.Name, attempt, lastErr)
		return
	}

	retryTask := &task.DocumentRetryTask{
		LocaleID:           locale.ID,
		AbstractProductIDs: ids,
		RetryCount:         attempt + 1,
		Error:              lastErr.Error(),
	}
	if _, err := s.queue.AddTask(ctx, retryTask); err != nil {
		log.Errorf("❌ Failed to add retry task for %d product abstracts: %v", len(ids), err)
		return
	}

	log.Warnf("🔄 Added %d product abstracts of %s to retry queue (attempt %d)", len(ids), locale.Name, attempt+1)
}
