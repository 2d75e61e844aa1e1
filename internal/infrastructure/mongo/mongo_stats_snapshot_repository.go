package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"charity-admin/internal/domain/repository"
	apperrors "charity-admin/pkg/errors"
)

const statsSnapshotCollection = "stats_snapshots"

// MongoStatsSnapshotRepository implements StatsSnapshotRepository using MongoDB
type MongoStatsSnapshotRepository struct {
	collection *mongo.Collection
}

func NewMongoStatsSnapshotRepository(database *mongo.Database) *MongoStatsSnapshotRepository {
	return &MongoStatsSnapshotRepository{
		collection: database.Collection(statsSnapshotCollection),
	}
}

// EnsureIndexes creates the listing indexes; it is idempotent.
func (r *MongoStatsSnapshotRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "captured_at", Value: -1}}},
		{Keys: bson.D{{Key: "range_key", Value: 1}, {Key: "captured_at", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create snapshot indexes: %w", err)
	}
	return nil
}

func (r *MongoStatsSnapshotRepository) Save(ctx context.Context, snapshot *repository.StatsSnapshot) error {
	opts := options.Replace().SetUpsert(true)
	if _, err := r.collection.ReplaceOne(ctx, bson.M{"_id": snapshot.ID}, snapshot, opts); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

func (r *MongoStatsSnapshotRepository) GetByID(ctx context.Context, id string) (*repository.StatsSnapshot, error) {
	var snapshot repository.StatsSnapshot
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&snapshot)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NewNotFoundError("snapshot")
		}
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}
	return &snapshot, nil
}

func (r *MongoStatsSnapshotRepository) ListRecent(ctx context.Context, limit int) ([]*repository.StatsSnapshot, error) {
	opts := options.Find().
		SetLimit(int64(limit)).
		SetSort(bson.D{{Key: "captured_at", Value: -1}}).
		SetProjection(bson.M{"report.revenue_by_day": 0})

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer cursor.Close(ctx)

	snapshots := make([]*repository.StatsSnapshot, 0, limit)
	if err := cursor.All(ctx, &snapshots); err != nil {
		return nil, fmt.Errorf("failed to decode snapshots: %w", err)
	}
	return snapshots, nil
}
