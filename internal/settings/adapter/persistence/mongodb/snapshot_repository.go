package mongodb

import (
	"context"
	"errors"
	"fmt"

	"product-studio/internal/settings/domain/model"
	"product-studio/internal/settings/domain/repository"
	"product-studio/internal/shared/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// DefaultCollectionName is the collection legacy deployments already write to
const DefaultCollectionName = "settings"

// newestFirst orders snapshots by recency. _id breaks ties between equal timestamps.
var newestFirst = bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}

// PingFunc checks server reachability; *mongo.Client.Ping fits after binding readpref.
type PingFunc func(ctx context.Context) error

// SnapshotRepository stores configuration snapshots in a single MongoDB collection
type SnapshotRepository struct {
	collection CollectionInterface
	ping       PingFunc
	logger     logger.Logger
}

var _ repository.SnapshotRepository = (*SnapshotRepository)(nil)

// NewSnapshotRepository creates a repository over db.<collectionName>
func NewSnapshotRepository(db *mongo.Database, collectionName string, log logger.Logger) *SnapshotRepository {
	if collectionName == "" {
		collectionName = DefaultCollectionName
	}
	client := db.Client()
	return NewSnapshotRepositoryWithCollection(
		NewMongoCollectionAdapter(db.Collection(collectionName)),
		func(ctx context.Context) error { return client.Ping(ctx, readpref.Primary()) },
		log,
	)
}

// NewSnapshotRepositoryWithCollection wires the repository to any CollectionInterface
func NewSnapshotRepositoryWithCollection(col CollectionInterface, ping PingFunc, log logger.Logger) *SnapshotRepository {
	return &SnapshotRepository{
		collection: col,
		ping:       ping,
		logger:     log.WithComponent("snapshot-repository"),
	}
}

// EnsureIndexes creates the recency index used by FindLatest and pruning
func (r *SnapshotRepository) EnsureIndexes(ctx context.Context) error {
	name, err := r.collection.CreateIndex(ctx, mongo.IndexModel{
		Keys:    newestFirst,
		Options: options.Index().SetName("createdAt_desc"),
	})
	if err != nil {
		return fmt.Errorf("failed to create createdAt index: %w", err)
	}
	r.logger.Debugf("Index %s ready", name)
	return nil
}

// Insert writes the snapshot as a new document
func (r *SnapshotRepository) Insert(ctx context.Context, snapshot *model.ConfigurationSnapshot) error {
	if snapshot.ID.IsZero() {
		snapshot.ID = primitive.NewObjectID()
	}
	insertedID, err := r.collection.InsertOne(ctx, snapshot)
	if err != nil {
		return err
	}
	if oid, ok := insertedID.(primitive.ObjectID); ok {
		snapshot.ID = oid
	}
	return nil
}

// FindLatest returns the most recent snapshot or nil when none exists
func (r *SnapshotRepository) FindLatest(ctx context.Context) (*model.ConfigurationSnapshot, error) {
	var snapshot model.ConfigurationSnapshot
	err := r.collection.FindOne(ctx, bson.M{}, options.FindOne().SetSort(newestFirst)).Decode(&snapshot)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &snapshot, nil
}

// PruneOlderThanNewest keeps the newest keep snapshots and deletes the rest.
// keep <= 0 disables pruning.
func (r *SnapshotRepository) PruneOlderThanNewest(ctx context.Context, keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}

	cur, err := r.collection.Find(ctx, bson.M{}, options.Find().
		SetSort(newestFirst).
		SetSkip(int64(keep-1)).
		SetLimit(1).
		SetProjection(bson.M{"_id": 1, "createdAt": 1}))
	if err != nil {
		return 0, fmt.Errorf("failed to locate retention boundary: %w", err)
	}
	defer cur.Close(ctx)

	if !cur.Next(ctx) {
		return 0, cur.Err()
	}
	var boundary struct {
		ID        primitive.ObjectID `bson:"_id"`
		CreatedAt primitive.DateTime `bson:"createdAt"`
	}
	if err := cur.Decode(&boundary); err != nil {
		return 0, fmt.Errorf("failed to decode retention boundary: %w", err)
	}

	deleted, err := r.collection.DeleteMany(ctx, olderThan(boundary.CreatedAt, boundary.ID))
	if err != nil {
		return 0, fmt.Errorf("failed to prune snapshots: %w", err)
	}
	if deleted > 0 {
		r.logger.Infof("Pruned %d snapshots older than %s", deleted, boundary.CreatedAt.Time().UTC())
	}
	return deleted, nil
}

// olderThan matches documents strictly before (createdAt, _id) in newestFirst order
func olderThan(createdAt primitive.DateTime, id primitive.ObjectID) bson.M {
	return bson.M{"$or": bson.A{
		bson.M{"createdAt": bson.M{"$lt": createdAt}},
		bson.M{"createdAt": createdAt, "_id": bson.M{"$lt": id}},
	}}
}

// Ping checks the database connection
func (r *SnapshotRepository) Ping(ctx context.Context) error {
	if r.ping == nil {
		return nil
	}
	return r.ping(ctx)
}
