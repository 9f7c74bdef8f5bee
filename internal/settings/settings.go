package settings

import (
	"context"
	"fmt"
	"time"

	httpadapter "product-studio/internal/settings/adapter/http"
	"product-studio/internal/settings/adapter/persistence"
	mongodbpersistence "product-studio/internal/settings/adapter/persistence/mongodb"
	"product-studio/internal/settings/adapter/policy"
	"product-studio/internal/settings/config"
	"product-studio/internal/settings/domain/repository"
	"product-studio/internal/settings/usecase"
	"product-studio/internal/shared/eventbus"
	"product-studio/internal/shared/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// SettingsModule owns the upload and settings endpoints and the live feed.
type SettingsModule struct {
	Config          *config.SettingsConfig
	Repository      repository.SnapshotRepository
	Cache           repository.SnapshotCache // nil when Redis is disabled
	RedisClient     *redis.Client
	EventBus        *eventbus.EventBus
	Clock           *usecase.MonotonicClock
	SettingsUsecase usecase.SettingsUsecaseInterface
	UploadUsecase   usecase.UploadUsecaseInterface
	Feed            *httpadapter.SettingsFeed
	Logger          logger.Logger

	activity       *activityTracker
	detachFeed     func()
	detachActivity func()
}

// NewSettingsModule builds the module over db, loading configuration from the environment.
// redisClient may be nil; it is only used when REDIS_ENABLED is set.
func NewSettingsModule(log logger.Logger, db *mongo.Database, redisClient *redis.Client) (*SettingsModule, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Warnf("Failed to load settings config from environment, using defaults: %v", err)
		cfg = config.DefaultSettingsConfig()
	}
	return NewSettingsModuleWithConfig(log, db, redisClient, cfg)
}

// NewSettingsModuleWithConfig builds the module with the provided configuration.
func NewSettingsModuleWithConfig(log logger.Logger, db *mongo.Database, redisClient *redis.Client, cfg *config.SettingsConfig) (*SettingsModule, error) {
	if cfg == nil {
		cfg = config.DefaultSettingsConfig()
	}

	repo := mongodbpersistence.NewSnapshotRepository(db, cfg.CollectionName, log)
	log.Info("SnapshotRepository initialized successfully.")

	var cache repository.SnapshotCache
	if cfg.Redis.Enabled && redisClient != nil {
		cache = persistence.NewRedisSnapshotCache(redisClient, cfg.Redis.CacheKey, cfg.Redis.CacheTTL, log)
		log.Info("Redis latest-snapshot cache enabled.")
	}

	m, err := NewSettingsModuleWithRepository(log, repo, cache, cfg)
	if err != nil {
		return nil, err
	}
	m.RedisClient = redisClient
	return m, nil
}

// NewSettingsModuleWithRepository wires the module around an existing repository and cache.
func NewSettingsModuleWithRepository(
	log logger.Logger,
	repo repository.SnapshotRepository,
	cache repository.SnapshotCache,
	cfg *config.SettingsConfig,
) (*SettingsModule, error) {
	log.Info("Initializing Settings Module...")
	if cfg == nil {
		cfg = config.DefaultSettingsConfig()
	}

	uploadPolicy, err := policy.NewUploadPolicy(cfg.UploadPolicy)
	if err != nil {
		return nil, fmt.Errorf("invalid UPLOAD_POLICY: %w", err)
	}
	log.Infof("Upload policy compiled: %s", uploadPolicy.Expression())

	bus := eventbus.NewEventBus(log)
	clock := usecase.NewMonotonicClock()

	settingsUC := usecase.NewSettingsUsecase(repo, log, usecase.SettingsOptions{
		Cache:     cache,
		Events:    bus,
		Clock:     clock,
		Retention: cfg.Retention,
	})
	uploadUC := usecase.NewUploadUsecase(uploadPolicy, bus, log)
	feed := httpadapter.NewSettingsFeed(cfg.LiveFeed.SendBuffer, log)
	activity := newActivityTracker(log)

	return &SettingsModule{
		Config:          cfg,
		Repository:      repo,
		Cache:           cache,
		EventBus:        bus,
		Clock:           clock,
		SettingsUsecase: settingsUC,
		UploadUsecase:   uploadUC,
		Feed:            feed,
		Logger:          log,
		activity:        activity,
		detachActivity:  activity.attach(bus),
	}, nil
}

// RegisterRoutes registers the HTTP and WebSocket routes under router.
func (m *SettingsModule) RegisterRoutes(router fiber.Router) {
	httpadapter.NewUploadHandler(m.UploadUsecase, m.Logger).RegisterRoutes(router)
	httpadapter.NewSettingsHandler(m.SettingsUsecase, m.Logger).RegisterRoutes(router)
	m.Feed.RegisterRoutes(router, m.Config.LiveFeed.Path)

	m.Logger.Info("Settings HTTP routes and live feed registered.")
}

// Start prepares storage and attaches the live feed. Storage failures are logged
// so the server can come up before the database does.
func (m *SettingsModule) Start(ctx context.Context) {
	if indexer, ok := m.Repository.(interface{ EnsureIndexes(context.Context) error }); ok {
		if err := indexer.EnsureIndexes(ctx); err != nil {
			m.Logger.Warnf("Failed to ensure settings indexes: %v", err)
		}
	}

	if latest, err := m.Repository.FindLatest(ctx); err != nil {
		m.Logger.Warnf("Could not read latest snapshot at startup: %v", err)
	} else if latest != nil {
		m.Clock.Observe(latest.CreatedAt)
	}

	if m.detachFeed == nil {
		m.detachFeed = m.Feed.Attach(m.EventBus)
	}
	m.Logger.Info("Settings live feed started.")
}

// Activity returns the save, upload and retention counters since the module was built.
func (m *SettingsModule) Activity() ActivityStats {
	return m.activity.snapshot()
}

// HealthCheck reports whether the database and cache are reachable.
func (m *SettingsModule) HealthCheck(ctx context.Context) error {
	return m.SettingsUsecase.HealthCheck(ctx)
}

// Stop detaches the live feed and closes the Redis client.
func (m *SettingsModule) Stop() error {
	m.Logger.Info("Stopping Settings Module...")
	if m.detachFeed != nil {
		m.detachFeed()
		m.detachFeed = nil
	}
	if m.detachActivity != nil {
		m.detachActivity()
		m.detachActivity = nil
	}
	if m.RedisClient != nil {
		if err := m.RedisClient.Close(); err != nil {
			return fmt.Errorf("failed to close redis client: %w", err)
		}
		m.RedisClient = nil
	}
	m.Logger.Info("Settings Module stopped.")
	return nil
}

// startupTimeout bounds Start when called from main
const startupTimeout = 10 * time.Second

// StartWithTimeout runs Start bounded by a fixed timeout.
func (m *SettingsModule) StartWithTimeout() {
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()
	m.Start(ctx)
}
