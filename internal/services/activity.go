package services

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/AnshRaj112/smart-bookmarks-backend/internal/logger"
	"github.com/AnshRaj112/smart-bookmarks-backend/internal/models"
)

const (
	activityCollection   = "activities"
	activityWriteTimeout = 5 * time.Second
	maxActivityLimit     = 100
)

// ActivityLog records user actions. Record never fails the caller.
type ActivityLog interface {
	Record(ctx context.Context, activity models.Activity)
	List(ctx context.Context, userID string, limit int) ([]models.Activity, error)
}

// MongoActivityLog stores activities in the "activities" collection.
type MongoActivityLog struct {
	col *mongo.Collection
	log logger.Logger
}

func NewMongoActivityLog(db *mongo.Database, log logger.Logger) *MongoActivityLog {
	return &MongoActivityLog{col: db.Collection(activityCollection), log: log}
}

// EnsureIndexes creates the (user_id, created_at) index used by List.
func (a *MongoActivityLog) EnsureIndexes(ctx context.Context) error {
	_, err := a.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "user_id", Value: 1},
			{Key: "created_at", Value: -1},
		},
		Options: options.Index().SetName("idx_user_created_at"),
	})
	return err
}

func (a *MongoActivityLog) Record(ctx context.Context, activity models.Activity) {
	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = time.Now().UTC()
	}

	// Detached from the request so a cancelled client doesn't lose the entry.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), activityWriteTimeout)
	defer cancel()

	if _, err := a.col.InsertOne(writeCtx, activity); err != nil {
		a.log.Warn("failed to record activity",
			logger.String("user_id", activity.UserID),
			logger.String("action", string(activity.Action)),
			logger.Error(err))
	}
}

// List returns the user's most recent activities, newest first.
func (a *MongoActivityLog) List(ctx context.Context, userID string, limit int) ([]models.Activity, error) {
	if limit <= 0 || limit > maxActivityLimit {
		limit = maxActivityLimit
	}

	findOptions := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := a.col.Find(ctx, bson.M{"user_id": userID}, findOptions)
	if err != nil {
		return nil, fmt.Errorf("find activities: %w", err)
	}
	defer cursor.Close(ctx)

	activities := make([]models.Activity, 0)
	if err := cursor.All(ctx, &activities); err != nil {
		return nil, fmt.Errorf("decode activities: %w", err)
	}
	return activities, nil
}

// NopActivityLog is used when MongoDB is not configured.
type NopActivityLog struct{}

func (NopActivityLog) Record(context.Context, models.Activity) {}

func (NopActivityLog) List(context.Context, string, int) ([]models.Activity, error) {
	return []models.Activity{}, nil
}
