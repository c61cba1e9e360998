package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"castrelay/internal/domain"
	"castrelay/internal/persistence/db"
)

type roomAuditLogRepository struct {
	db *mongo.Database
}

func NewRoomAuditLogRepository(database *mongo.Database) domain.RoomAuditRepository {
	return &roomAuditLogRepository{
		db: database,
	}
}

func (r *roomAuditLogRepository) collection() *mongo.Collection {
	return r.db.Collection(db.RoomAuditLogsCollection)
}

func (r *roomAuditLogRepository) Log(ctx context.Context, entry *domain.RoomAuditLog) error {
	_, err := r.collection().InsertOne(ctx, entry)
	return err
}

func (r *roomAuditLogRepository) GetByRoomID(ctx context.Context, roomID string, limit int) ([]domain.RoomAuditLog, error) {
	if limit <= 0 {
		limit = 100
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection().Find(ctx, bson.M{"room_id": roomID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entries []domain.RoomAuditLog
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *roomAuditLogRepository) DeleteOlderThan(ctx context.Context, before time.Time) error {
	filter := bson.M{
		"timestamp": bson.M{
			"$lt": before,
		},
	}

	_, err := r.collection().DeleteMany(ctx, filter)
	return err
}

func (r *roomAuditLogRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "room_id", Value: 1}, {Key: "timestamp", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "event_type", Value: 1}, {Key: "timestamp", Value: -1}},
		},
	}

	_, err := r.collection().Indexes().CreateMany(ctx, indexes)
	return err
}
