package usecase

import (
	"context"
	"fmt"

	"product-studio/internal/settings/domain/model"
	"product-studio/internal/settings/domain/repository"
	"product-studio/internal/shared/errors"
	"product-studio/internal/shared/eventbus"
	"product-studio/internal/shared/logger"
)

// SettingsUsecase implements create-on-save / read-latest-on-load
type SettingsUsecase struct {
	repo      repository.SnapshotRepository
	cache     repository.SnapshotCache
	events    eventbus.Publisher
	clock     Clock
	retention int
	logger    logger.Logger
}

// SettingsOptions configures optional collaborators of SettingsUsecase
type SettingsOptions struct {
	Cache     repository.SnapshotCache
	Events    eventbus.Publisher
	Clock     Clock
	Retention int
}

// NewSettingsUsecase wires the settings service. Nil options get no-op defaults.
func NewSettingsUsecase(repo repository.SnapshotRepository, log logger.Logger, opts SettingsOptions) *SettingsUsecase {
	if opts.Cache == nil {
		opts.Cache = noopCache{}
	}
	if opts.Clock == nil {
		opts.Clock = NewMonotonicClock()
	}
	return &SettingsUsecase{
		repo:      repo,
		cache:     opts.Cache,
		events:    opts.Events,
		clock:     opts.Clock,
		retention: opts.Retention,
		logger:    log.WithComponent("settings-usecase"),
	}
}

var _ SettingsUsecaseInterface = (*SettingsUsecase)(nil)

// Save stores a new snapshot stamped with the current time.
// Persistence errors come back as infrastructure AppErrors wrapping the driver error.
func (uc *SettingsUsecase) Save(ctx context.Context, req SaveSettingsRequest) (*model.ConfigurationSnapshot, error) {
	log := uc.logger.WithContext(ctx)

	snapshot := model.NewConfigurationSnapshot(req.ModelURL, req.BackgroundColor, req.IsWireframe)
	if err := snapshot.Validate(); err != nil {
		log.Warnf("Rejected settings save: %v", err)
		return nil, err
	}

	snapshot.CreatedAt = uc.clock.Now()
	log.Infof("Attempting to save payload of size: %.2f MB", float64(len(snapshot.ModelURL))/(1024*1024))

	if err := uc.repo.Insert(ctx, snapshot); err != nil {
		log.Errorf("SAVE ERROR: %v", err)
		return nil, errors.NewInfrastructureError(err.Error()).WithCause(err).WithComponent("settings")
	}

	if _, err := uc.cache.Put(ctx, snapshot); err != nil {
		log.Warnf("Failed to refresh latest-settings cache: %v", err)
	}

	// Published inline so subscribers see saves in CreatedAt order.
	if uc.events != nil {
		event := eventbus.NewBasicEvent(eventbus.EventTypeSettingsSaved, snapshot, "settings-usecase")
		if err := uc.events.Publish(context.WithoutCancel(ctx), event); err != nil {
			log.Warnf("Settings saved but not every subscriber was notified: %v", err)
		}
	}

	uc.applyRetention(ctx)

	log.WithFields(map[string]interface{}{
		"id":        snapshot.ID.Hex(),
		"createdAt": snapshot.CreatedAt,
	}).Info("Settings saved")
	return snapshot, nil
}

// applyRetention prunes old snapshots; failures never fail the save
func (uc *SettingsUsecase) applyRetention(ctx context.Context) {
	if uc.retention <= 0 {
		return
	}
	deleted, err := uc.repo.PruneOlderThanNewest(ctx, uc.retention)
	if err != nil {
		uc.logger.WithContext(ctx).Warnf("Retention pass failed: %v", err)
		return
	}
	if deleted > 0 && uc.events != nil {
		uc.events.PublishAndForget(ctx, eventbus.NewBasicEvent(eventbus.EventTypeSettingsPruned, deleted, "settings-usecase"))
	}
}

// GetLatest returns the newest snapshot, preferring the cache
func (uc *SettingsUsecase) GetLatest(ctx context.Context) (*model.ConfigurationSnapshot, error) {
	log := uc.logger.WithContext(ctx)

	if cached, err := uc.cache.Get(ctx); err != nil {
		log.Warnf("Latest-settings cache unavailable: %v", err)
	} else if cached != nil {
		return cached, nil
	}

	latest, err := uc.repo.FindLatest(ctx)
	if err != nil {
		log.Errorf("Failed to load latest settings: %v", err)
		return nil, errors.NewInfrastructureError(err.Error()).WithCause(err).WithComponent("settings")
	}
	if latest == nil {
		return nil, nil
	}

	if _, err := uc.cache.Put(ctx, latest); err != nil {
		log.Warnf("Failed to populate latest-settings cache: %v", err)
	}
	return latest, nil
}

// HealthCheck pings the repository and the cache
func (uc *SettingsUsecase) HealthCheck(ctx context.Context) error {
	if err := uc.repo.Ping(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := uc.cache.Ping(ctx); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	return nil
}

type noopCache struct{}

func (noopCache) Get(context.Context) (*model.ConfigurationSnapshot, error)       { return nil, nil }
func (noopCache) Put(context.Context, *model.ConfigurationSnapshot) (bool, error) { return false, nil }
func (noopCache) Ping(context.Context) error                                      { return nil }
