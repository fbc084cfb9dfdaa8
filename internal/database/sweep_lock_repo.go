package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dandantas/turnstile/internal/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SweepLockRepository handles the distributed lock guarding retention sweeps
type SweepLockRepository struct {
	collection *mongo.Collection
}

// NewSweepLockRepository creates a new sweep lock repository
func NewSweepLockRepository(db *MongoDB) *SweepLockRepository {
	return &SweepLockRepository{
		collection: db.GetCollection(CollectionSweepLocks),
	}
}

// Acquire attempts to take the named lock for this pod. Returns false when
// another pod holds an unexpired lock. Uses FindOneAndUpdate with upsert for
// atomic acquisition.
func (r *SweepLockRepository) Acquire(ctx context.Context, name, podID string, ttl time.Duration) (bool, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	now := time.Now().UTC()

	filter := bson.M{
		"name": name,
		"$or": []bson.M{
			{"expires_at": bson.M{"$lt": now}},
			{"expires_at": bson.M{"$exists": false}},
		},
	}
	update := bson.M{
		"$set": bson.M{
			"name":       name,
			"locked_by":  podID,
			"locked_at":  now,
			"expires_at": now.Add(ttl),
		},
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var result model.SweepLock
	err := r.collection.FindOneAndUpdate(ctxTimeout, filter, update, opts).Decode(&result)
	if err != nil {
		// A duplicate key error means the unexpired lock document blocked the
		// upsert; either way another pod holds it.
		if errors.Is(err, mongo.ErrNoDocuments) || mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to acquire sweep lock: %w", err)
	}

	if result.LockedBy != podID {
		return false, nil
	}

	slog.Debug("Acquired sweep lock", "name", name, "pod_id", podID)
	return true, nil
}

// Release frees the named lock, but only if this pod owns it
func (r *SweepLockRepository) Release(ctx context.Context, name, podID string) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := r.collection.DeleteOne(ctxTimeout, bson.M{"name": name, "locked_by": podID})
	if err != nil {
		return fmt.Errorf("failed to release sweep lock: %w", err)
	}

	return nil
}
