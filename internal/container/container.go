package container

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"catalog/collector/internal/config"
	"catalog/collector/internal/domain"
	"catalog/collector/internal/queue"
	"catalog/collector/internal/repository"
	"catalog/collector/internal/service"
	"catalog/collector/internal/sink"
	"catalog/collector/internal/state"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Container holds all initialized components
type Container struct {
	Config       *config.Config
	Repository   repository.CatalogRepository
	Queue        queue.Queue
	StateManager state.StateManager
	Sink         sink.DocumentSink

	Service *service.Service

	db    *pgxpool.Pool
	redis *redis.Client
}

// New creates a new container with all dependencies initialized
func New(ctx context.Context, cfg *config.Config) (*Container, error) {
	container := &Container{
		Config: cfg,
	}

	db, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	container.db = db

	log.Info("✅ Connected to database successfully")

	catalogRepo := repository.NewCatalogRepository(db, cfg.Collector.DefaultPriceType)
	container.Repository = catalogRepo

	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.Database,
	})
	container.redis = rdb

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		container.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Info("✅ Connected to Redis successfully")

	redisQueue, err := queue.NewRedisQueue(ctx, rdb, queue.Config{Group: cfg.Redis.ConsumerGroup})
	if err != nil {
		container.Close()
		return nil, err
	}
	container.Queue = redisQueue

	stateManager := state.NewRedisStateManager(rdb)
	container.StateManager = stateManager

	documentSink := newSink(ctx, cfg, rdb)
	container.Sink = documentSink

	locales := make([]domain.Locale, 0, len(cfg.Collector.Locales))
	for _, l := range cfg.Collector.Locales {
		locales = append(locales, domain.Locale{ID: l.ID, Name: l.Name})
	}

	container.Service = service.NewService(
		catalogRepo,
		documentSink,
		redisQueue,
		stateManager,
		service.Settings{
			Locales:          locales,
			BatchSize:        cfg.Collector.BatchSize,
			Workers:          cfg.Collector.Workers,
			MaxRetries:       cfg.Collector.MaxRetries,
			IncludeAncestors: cfg.Collector.IncludeAncestorCategories,
			GroupName:        cfg.Redis.ConsumerGroup,
			MinIdleTime:      time.Duration(cfg.Redis.MinIdleTime) * time.Second,
			MaxDeliveries:    cfg.Redis.MaxDeliveries,
		},
	)

	return container, nil
}

func newSink(ctx context.Context, cfg *config.Config, rdb *redis.Client) sink.DocumentSink {
	var sinks sink.MultiSink

	if cfg.Storage.Enabled {
		sinks = append(sinks, sink.NewStorageSink(rdb, cfg.Storage.KeyPrefix))
		log.Infof("📦 Storage sink enabled with key prefix %q", cfg.Storage.KeyPrefix)
	}

	if cfg.Search.Enabled {
		hosts := sink.NewHostSupplier(ctx, cfg.Search.Hosts)
		sinks = append(sinks, sink.NewSearchSink(sink.SearchConfig{
			IndexName:            cfg.Search.IndexName,
			Timeout:              time.Duration(cfg.Search.Timeout) * time.Second,
			MaxRequestsPerSecond: cfg.Search.MaxRequestsPerSecond,
			ThrottleDelay:        time.Duration(cfg.Search.ThrottleDelay) * time.Second,
		}, hosts))
		log.Infof("🔎 Search sink enabled for index %s", cfg.Search.IndexName)
	}

	if len(sinks) == 1 {
		return sinks[0]
	}
	return sinks
}

// Run enqueues a collection run per locale and processes tasks until ctx is done.
func (c *Container) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return c.Service.EnqueueRuns(ctx)
	})

	g.Go(func() error {
		return c.Service.RunWorkers(ctx, c.Config.Collector.Workers)
	})

	return g.Wait()
}

// Close performs cleanup when shutting down
func (c *Container) Close() error {
	log.Info("Shutting down container...")

	if c.db != nil {
		c.db.Close()
	}
	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			log.Warnf("⚠️ Failed to close Redis client: %v", err)
		}
	}

	log.Info("Container shut down successfully")
	return nil
}
