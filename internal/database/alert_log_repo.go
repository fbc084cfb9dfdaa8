package database

import (
	"context"
	"fmt"
	"time"

	"github.com/dandantas/turnstile/internal/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// AlertLogRepository handles alert log persistence
type AlertLogRepository struct {
	collection *mongo.Collection
}

// NewAlertLogRepository creates a new alert log repository
func NewAlertLogRepository(db *MongoDB) *AlertLogRepository {
	return &AlertLogRepository{
		collection: db.GetCollection(CollectionAlertLogs),
	}
}

// Create inserts a new alert log
func (r *AlertLogRepository) Create(ctx context.Context, log *model.AlertLog) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if log.ID.IsZero() {
		log.ID = primitive.NewObjectID()
	}

	_, err := r.collection.InsertOne(ctxTimeout, log)
	if err != nil {
		return fmt.Errorf("failed to create alert log: %w", err)
	}

	return nil
}

// ListByJob retrieves alert logs for one engine job, newest first
func (r *AlertLogRepository) ListByJob(ctx context.Context, jobID string, limit int) ([]model.AlertLog, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := options.Find().
		SetLimit(int64(limit)).
		SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := r.collection.Find(ctxTimeout, bson.M{"job_id": jobID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list alert logs: %w", err)
	}
	defer cursor.Close(ctxTimeout)

	var logs []model.AlertLog
	if err := cursor.All(ctxTimeout, &logs); err != nil {
		return nil, fmt.Errorf("failed to decode alert logs: %w", err)
	}

	return logs, nil
}

// DeleteOlderThan removes alert logs created before the cutoff
func (r *AlertLogRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	result, err := r.collection.DeleteMany(ctxTimeout, bson.M{"created_at": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired alert logs: %w", err)
	}

	return result.DeletedCount, nil
}
