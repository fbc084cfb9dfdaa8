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

// observationDoc is the stored form of one history row
type observationDoc struct {
	ID                primitive.ObjectID `bson:"_id,omitempty"`
	JobID             string             `bson:"job_id"`
	Seq               int                `bson:"seq"`
	model.Observation `bson:",inline"`
	FetchedAt         time.Time `bson:"fetched_at"`
}

// ObservationRepository persists the most recently fetched result history
// per job. Writes mirror the client semantics: each fetch replaces the
// stored series in full.
type ObservationRepository struct {
	collection *mongo.Collection
}

// NewObservationRepository creates a new observation repository
func NewObservationRepository(db *MongoDB) *ObservationRepository {
	return &ObservationRepository{
		collection: db.GetCollection(CollectionObservations),
	}
}

// ReplaceHistory replaces the stored history for a job with the given series
func (r *ObservationRepository) ReplaceHistory(ctx context.Context, jobID string, history []model.Observation) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := r.collection.DeleteMany(ctxTimeout, bson.M{"job_id": jobID}); err != nil {
		return fmt.Errorf("failed to clear stored history: %w", err)
	}
	if len(history) == 0 {
		return nil
	}

	now := time.Now().UTC()
	docs := make([]interface{}, 0, len(history))
	for i, obs := range history {
		docs = append(docs, observationDoc{
			JobID:       jobID,
			Seq:         i,
			Observation: obs,
			FetchedAt:   now,
		})
	}

	if _, err := r.collection.InsertMany(ctxTimeout, docs); err != nil {
		return fmt.Errorf("failed to store history: %w", err)
	}

	return nil
}

// GetHistory returns the stored history for a job in chronological order
func (r *ObservationRepository) GetHistory(ctx context.Context, jobID string) ([]model.Observation, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "seq", Value: 1}})
	cursor, err := r.collection.Find(ctxTimeout, bson.M{"job_id": jobID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch stored history: %w", err)
	}
	defer cursor.Close(ctxTimeout)

	var docs []observationDoc
	if err := cursor.All(ctxTimeout, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode stored history: %w", err)
	}

	history := make([]model.Observation, 0, len(docs))
	for _, doc := range docs {
		history = append(history, doc.Observation)
	}

	return history, nil
}

// DeleteForJobs removes stored history for the given engine job ids
func (r *ObservationRepository) DeleteForJobs(ctx context.Context, jobIDs []string) (int64, error) {
	if len(jobIDs) == 0 {
		return 0, nil
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	result, err := r.collection.DeleteMany(ctxTimeout, bson.M{"job_id": bson.M{"$in": jobIDs}})
	if err != nil {
		return 0, fmt.Errorf("failed to delete stored history: %w", err)
	}

	return result.DeletedCount, nil
}
