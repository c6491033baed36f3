package repositories

import (
	"context"

	"github.com/forumbase/notifyd/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// NotificationRepository defines the interface for notification record storage
type NotificationRepository interface {
	Upsert(ctx context.Context, notification *models.Notification) error
	GetByID(ctx context.Context, id string) (*models.Notification, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]*models.Notification, error)
	DeleteByIDs(ctx context.Context, ids []string) error
	GetMergeIDs(ctx context.Context, ids []string) (map[string]string, error)
}

// MongoNotificationRepository implements NotificationRepository for MongoDB
type MongoNotificationRepository struct {
	collection *mongo.Collection
}

// NewMongoNotificationRepository creates a new MongoNotificationRepository
func NewMongoNotificationRepository(db *mongo.Database) *MongoNotificationRepository {
	return &MongoNotificationRepository{collection: db.Collection("notifications")}
}

// Upsert writes a notification record, replacing any existing record with the
// same id.
func (r *MongoNotificationRepository) Upsert(ctx context.Context, notification *models.Notification) error {
	_, err := r.collection.ReplaceOne(
		ctx,
		bson.M{"_id": notification.ID},
		notification,
		options.Replace().SetUpsert(true),
	)
	return err
}

// GetByID retrieves a notification record by id. A missing record yields
// (nil, nil).
func (r *MongoNotificationRepository) GetByID(ctx context.Context, id string) (*models.Notification, error) {
	var notification models.Notification
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&notification)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &notification, nil
}

// GetByIDs retrieves multiple notification records keyed by id. Missing ids
// are simply absent from the result map.
func (r *MongoNotificationRepository) GetByIDs(ctx context.Context, ids []string) (map[string]*models.Notification, error) {
	result := make(map[string]*models.Notification, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var notification models.Notification
		if err := cursor.Decode(&notification); err != nil {
			return nil, err
		}
		n := notification
		result[n.ID] = &n
	}
	return result, cursor.Err()
}

// DeleteByIDs removes notification records. Deleting absent ids is a no-op.
func (r *MongoNotificationRepository) DeleteByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.collection.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	return err
}

// GetMergeIDs returns the mergeId of each record, keyed by record id.
// Records without a mergeId are omitted.
func (r *MongoNotificationRepository) GetMergeIDs(ctx context.Context, ids []string) (map[string]string, error) {
	result := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	projection := options.Find().SetProjection(bson.M{"_id": 1, "mergeId": 1})
	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, projection)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var doc struct {
			ID      string `bson:"_id"`
			MergeID string `bson:"mergeId"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		if doc.MergeID != "" {
			result[doc.ID] = doc.MergeID
		}
	}
	return result, cursor.Err()
}
