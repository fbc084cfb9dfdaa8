package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dandantas/turnstile/internal/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrJobNotFound is returned when no job record matches the given id
var ErrJobNotFound = errors.New("job not found")

// JobRepository handles durable counting-job records
type JobRepository struct {
	collection *mongo.Collection
}

// NewJobRepository creates a new job repository
func NewJobRepository(db *MongoDB) *JobRepository {
	return &JobRepository{
		collection: db.GetCollection(CollectionJobs),
	}
}

// Create inserts a new job record
func (r *JobRepository) Create(ctx context.Context, job *model.JobRecord) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if job.ID.IsZero() {
		job.ID = primitive.NewObjectID()
	}

	_, err := r.collection.InsertOne(ctxTimeout, job)
	if err != nil {
		return fmt.Errorf("failed to create job record: %w", err)
	}

	return nil
}

// GetByJobID retrieves a job record by engine job id
func (r *JobRepository) GetByJobID(ctx context.Context, jobID string) (*model.JobRecord, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var job model.JobRecord
	err := r.collection.FindOne(ctxTimeout, bson.M{"job_id": jobID}).Decode(&job)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job record: %w", err)
	}

	return &job, nil
}

// UpdateStatus records the most recently observed status for a job. Terminal
// transitions also stamp completed_at.
func (r *JobRepository) UpdateStatus(ctx context.Context, jobID string, status model.JobStatus) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	set := bson.M{"status": status}
	if status.IsTerminal() {
		set["completed_at"] = time.Now().UTC()
	}

	result, err := r.collection.UpdateOne(ctxTimeout, bson.M{"job_id": jobID}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrJobNotFound
	}

	return nil
}

// List retrieves job records with pagination, most recent first
func (r *JobRepository) List(ctx context.Context, filter bson.M, page, limit int) ([]model.JobRecord, int64, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	total, err := r.collection.CountDocuments(ctxTimeout, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count jobs: %w", err)
	}

	skip := (page - 1) * limit
	opts := options.Find().
		SetSkip(int64(skip)).
		SetLimit(int64(limit)).
		SetSort(bson.D{{Key: "submitted_at", Value: -1}})

	cursor, err := r.collection.Find(ctxTimeout, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer cursor.Close(ctxTimeout)

	var jobs []model.JobRecord
	if err := cursor.All(ctxTimeout, &jobs); err != nil {
		return nil, 0, fmt.Errorf("failed to decode jobs: %w", err)
	}

	return jobs, total, nil
}

// DeleteOlderThan removes job records submitted before the cutoff and
// returns the engine job ids of the removed records so dependent collections
// can be pruned too
func (r *JobRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) ([]string, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	filter := bson.M{"submitted_at": bson.M{"$lt": cutoff}}

	opts := options.Find().SetProjection(bson.M{"job_id": 1})
	cursor, err := r.collection.Find(ctxTimeout, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find expired jobs: %w", err)
	}

	var docs []struct {
		JobID string `bson:"job_id"`
	}
	if err := cursor.All(ctxTimeout, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode expired jobs: %w", err)
	}
	if len(docs) == 0 {
		return nil, nil
	}

	jobIDs := make([]string, 0, len(docs))
	for _, doc := range docs {
		jobIDs = append(jobIDs, doc.JobID)
	}

	if _, err := r.collection.DeleteMany(ctxTimeout, filter); err != nil {
		return nil, fmt.Errorf("failed to delete expired jobs: %w", err)
	}

	return jobIDs, nil
}
