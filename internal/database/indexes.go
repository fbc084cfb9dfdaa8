package database

import (
	"context"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CreateIndexes creates all necessary indexes for the collections
func CreateIndexes(ctx context.Context, db *MongoDB) error {
	slog.Info("Creating MongoDB indexes")

	collections := map[string][]mongo.IndexModel{
		CollectionJobs: {
			{
				Keys:    bson.D{{Key: "job_id", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("idx_job_id_unique"),
			},
			{
				Keys:    bson.D{{Key: "session_id", Value: 1}, {Key: "submitted_at", Value: -1}},
				Options: options.Index().SetName("idx_session_id_submitted_at"),
			},
			{
				Keys:    bson.D{{Key: "status", Value: 1}, {Key: "submitted_at", Value: -1}},
				Options: options.Index().SetName("idx_status_submitted_at"),
			},
			{
				Keys:    bson.D{{Key: "submitted_at", Value: -1}},
				Options: options.Index().SetName("idx_submitted_at"),
			},
		},
		CollectionObservations: {
			{
				Keys:    bson.D{{Key: "job_id", Value: 1}, {Key: "seq", Value: 1}},
				Options: options.Index().SetName("idx_job_id_seq"),
			},
			{
				Keys:    bson.D{{Key: "fetched_at", Value: -1}},
				Options: options.Index().SetName("idx_fetched_at"),
			},
		},
		CollectionAlertRules: {
			{
				Keys:    bson.D{{Key: "name", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("idx_name_unique"),
			},
			{
				Keys:    bson.D{{Key: "enabled", Value: 1}},
				Options: options.Index().SetName("idx_enabled"),
			},
		},
		CollectionAlertLogs: {
			{
				Keys:    bson.D{{Key: "job_id", Value: 1}, {Key: "created_at", Value: -1}},
				Options: options.Index().SetName("idx_job_id_created_at"),
			},
			{
				Keys:    bson.D{{Key: "created_at", Value: -1}},
				Options: options.Index().SetName("idx_created_at"),
			},
		},
		CollectionSweepLocks: {
			{
				Keys:    bson.D{{Key: "name", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("idx_name_unique"),
			},
			{
				Keys:    bson.D{{Key: "expires_at", Value: 1}},
				Options: options.Index().SetExpireAfterSeconds(0).SetName("idx_expires_at_ttl"),
			},
		},
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	for name, indexes := range collections {
		if _, err := db.GetCollection(name).Indexes().CreateMany(ctxTimeout, indexes); err != nil {
			return err
		}
		slog.Info("Created indexes", "collection", name)
	}

	return nil
}
