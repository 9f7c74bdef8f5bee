package settings

import (
	"context"
	"sync"

	"product-studio/internal/settings/domain/model"
	"product-studio/internal/shared/eventbus"
	"product-studio/internal/shared/logger"
)

// ActivityStats counts what the module has done since it started
type ActivityStats struct {
	Saves            int64  `json:"saves"`
	Uploads          int64  `json:"uploads"`
	UploadedBytes    int64  `json:"uploadedBytes"`
	PrunedSnapshots  int64  `json:"prunedSnapshots"`
	LastUploadDigest string `json:"lastUploadDigest,omitempty"`
}

// activityTracker folds bus events into ActivityStats
type activityTracker struct {
	mu    sync.Mutex
	stats ActivityStats
	log   logger.Logger
}

func newActivityTracker(log logger.Logger) *activityTracker {
	return &activityTracker{log: log.WithComponent("settings-activity")}
}

// attach subscribes to the module's events and returns a func that unsubscribes all of them
func (a *activityTracker) attach(bus *eventbus.EventBus) (detach func()) {
	unsubscribers := []func(){
		bus.Subscribe(eventbus.EventTypeSettingsSaved, a.onSaved),
		bus.Subscribe(eventbus.EventTypeModelUploaded, a.onUploaded),
		bus.Subscribe(eventbus.EventTypeSettingsPruned, a.onPruned),
	}
	return func() {
		for _, unsubscribe := range unsubscribers {
			unsubscribe()
		}
	}
}

func (a *activityTracker) onSaved(ctx context.Context, event eventbus.Event) error {
	a.mu.Lock()
	a.stats.Saves++
	a.mu.Unlock()
	return nil
}

func (a *activityTracker) onUploaded(ctx context.Context, event eventbus.Event) error {
	receipt, ok := event.Data().(model.UploadReceipt)
	if !ok {
		return nil
	}
	a.mu.Lock()
	a.stats.Uploads++
	a.stats.UploadedBytes += receipt.Size
	a.stats.LastUploadDigest = receipt.Digest
	a.mu.Unlock()
	return nil
}

func (a *activityTracker) onPruned(ctx context.Context, event eventbus.Event) error {
	deleted, ok := event.Data().(int64)
	if !ok {
		return nil
	}
	a.mu.Lock()
	a.stats.PrunedSnapshots += deleted
	a.mu.Unlock()
	a.log.WithContext(ctx).Infof("Retention removed %d snapshots", deleted)
	return nil
}

func (a *activityTracker) snapshot() ActivityStats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats
}
