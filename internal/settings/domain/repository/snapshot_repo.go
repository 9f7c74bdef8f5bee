package repository

import (
	"context"

	"product-studio/internal/settings/domain/model"
)

// SnapshotRepository is the append-only store of configuration snapshots
type SnapshotRepository interface {
	// Insert writes a new snapshot and sets its generated ID.
	Insert(ctx context.Context, snapshot *model.ConfigurationSnapshot) error
	// FindLatest returns the snapshot with the greatest CreatedAt, or (nil, nil)
	// when the collection is empty.
	FindLatest(ctx context.Context) (*model.ConfigurationSnapshot, error)
	// PruneOlderThanNewest deletes everything except the keep most recent
	// snapshots and returns the number removed.
	PruneOlderThanNewest(ctx context.Context, keep int) (int64, error)
	// Ping checks the backing store is reachable.
	Ping(ctx context.Context) error
}

// SnapshotCache holds the latest snapshot in front of the repository.
// Implementations must never replace a cached snapshot with an older one.
type SnapshotCache interface {
	// Get returns the cached latest snapshot, or (nil, nil) on a miss.
	Get(ctx context.Context) (*model.ConfigurationSnapshot, error)
	// Put stores snapshot if it is newer than the cached one and reports
	// whether it was stored.
	Put(ctx context.Context, snapshot *model.ConfigurationSnapshot) (bool, error)
	Ping(ctx context.Context) error
}
