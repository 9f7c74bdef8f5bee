package usecase_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"product-studio/internal/settings/domain/model"
	"product-studio/internal/settings/domain/repository"
	"product-studio/internal/shared/eventbus"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MockSnapshotRepository is a testify mock for failure-path tests
type MockSnapshotRepository struct {
	mock.Mock
}

var _ repository.SnapshotRepository = (*MockSnapshotRepository)(nil)

func (m *MockSnapshotRepository) Insert(ctx context.Context, s *model.ConfigurationSnapshot) error {
	return m.Called(ctx, s).Error(0)
}

func (m *MockSnapshotRepository) FindLatest(ctx context.Context) (*model.ConfigurationSnapshot, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ConfigurationSnapshot), args.Error(1)
}

func (m *MockSnapshotRepository) PruneOlderThanNewest(ctx context.Context, keep int) (int64, error) {
	args := m.Called(ctx, keep)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSnapshotRepository) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// memoryRepository is an in-memory append-only snapshot store
type memoryRepository struct {
	mu        sync.Mutex
	snapshots []*model.ConfigurationSnapshot
}

func (r *memoryRepository) Insert(ctx context.Context, s *model.ConfigurationSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s.ID = primitive.NewObjectID()
	cp := *s
	r.snapshots = append(r.snapshots, &cp)
	return nil
}

func (r *memoryRepository) sorted() []*model.ConfigurationSnapshot {
	out := append([]*model.ConfigurationSnapshot(nil), r.snapshots...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *memoryRepository) FindLatest(ctx context.Context) (*model.ConfigurationSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.snapshots) == 0 {
		return nil, nil
	}
	cp := *r.sorted()[0]
	return &cp, nil
}

func (r *memoryRepository) PruneOlderThanNewest(ctx context.Context, keep int) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if keep <= 0 || len(r.snapshots) <= keep {
		return 0, nil
	}
	sorted := r.sorted()
	deleted := int64(len(sorted) - keep)
	r.snapshots = sorted[:keep]
	return deleted, nil
}

func (r *memoryRepository) Ping(ctx context.Context) error { return nil }

func (r *memoryRepository) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snapshots)
}

// memoryCache mimics the compare-and-set cache
type memoryCache struct {
	mu       sync.Mutex
	snapshot *model.ConfigurationSnapshot
	getErr   error
}

func (c *memoryCache) Get(ctx context.Context) (*model.ConfigurationSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, c.getErr
	}
	return c.snapshot, nil
}

func (c *memoryCache) Put(ctx context.Context, s *model.ConfigurationSnapshot) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.snapshot != nil && !s.CreatedAt.After(c.snapshot.CreatedAt) {
		return false, nil
	}
	c.snapshot = s
	return true, nil
}

func (c *memoryCache) Ping(ctx context.Context) error { return nil }

// recordingPublisher captures published events synchronously
type recordingPublisher struct {
	mu     sync.Mutex
	events []eventbus.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, e eventbus.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) PublishAndForget(ctx context.Context, e eventbus.Event) {
	_ = p.Publish(ctx, e)
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type())
	}
	return out
}

// fixedClock always reports the same instant
type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }
