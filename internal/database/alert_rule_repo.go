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

// ErrRuleNotFound is returned when no alert rule matches the given id
var ErrRuleNotFound = errors.New("alert rule not found")

// AlertRuleRepository handles alert rule CRUD operations
type AlertRuleRepository struct {
	collection *mongo.Collection
}

// NewAlertRuleRepository creates a new alert rule repository
func NewAlertRuleRepository(db *MongoDB) *AlertRuleRepository {
	return &AlertRuleRepository{
		collection: db.GetCollection(CollectionAlertRules),
	}
}

// Create inserts a new alert rule
func (r *AlertRuleRepository) Create(ctx context.Context, rule *model.AlertRule) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if rule.ID.IsZero() {
		rule.ID = primitive.NewObjectID()
	}

	_, err := r.collection.InsertOne(ctxTimeout, rule)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("alert rule with name %q already exists", rule.Name)
		}
		return fmt.Errorf("failed to create alert rule: %w", err)
	}

	return nil
}

// GetByID retrieves an alert rule by id
func (r *AlertRuleRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*model.AlertRule, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var rule model.AlertRule
	err := r.collection.FindOne(ctxTimeout, bson.M{"_id": id}).Decode(&rule)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrRuleNotFound
		}
		return nil, fmt.Errorf("failed to get alert rule: %w", err)
	}

	return &rule, nil
}

// List retrieves all alert rules, newest first
func (r *AlertRuleRepository) List(ctx context.Context) ([]model.AlertRule, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctxTimeout, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list alert rules: %w", err)
	}
	defer cursor.Close(ctxTimeout)

	var rules []model.AlertRule
	if err := cursor.All(ctxTimeout, &rules); err != nil {
		return nil, fmt.Errorf("failed to decode alert rules: %w", err)
	}

	return rules, nil
}

// ListEnabled retrieves the enabled alert rules
func (r *AlertRuleRepository) ListEnabled(ctx context.Context) ([]model.AlertRule, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cursor, err := r.collection.Find(ctxTimeout, bson.M{"enabled": true})
	if err != nil {
		return nil, fmt.Errorf("failed to list enabled alert rules: %w", err)
	}
	defer cursor.Close(ctxTimeout)

	var rules []model.AlertRule
	if err := cursor.All(ctxTimeout, &rules); err != nil {
		return nil, fmt.Errorf("failed to decode alert rules: %w", err)
	}

	return rules, nil
}

// Update replaces an existing alert rule
func (r *AlertRuleRepository) Update(ctx context.Context, id primitive.ObjectID, rule *model.AlertRule) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rule.ID = id
	result, err := r.collection.ReplaceOne(ctxTimeout, bson.M{"_id": id}, rule)
	if err != nil {
		return fmt.Errorf("failed to update alert rule: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrRuleNotFound
	}

	return nil
}

// Delete removes an alert rule
func (r *AlertRuleRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	result, err := r.collection.DeleteOne(ctxTimeout, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete alert rule: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrRuleNotFound
	}

	return nil
}
