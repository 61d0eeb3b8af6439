package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"studymate/internal/database"
	"studymate/internal/models"
)

// mongoHistory stores chat transcripts in MongoDB. Selected when MONGODB_URI
// is configured; the rest of the repositories stay on SQLite.
type mongoHistory struct {
	db *database.MongoDB
}

// NewMongoHistory returns a MongoDB-backed HistoryStore.
func NewMongoHistory(db *database.MongoDB) HistoryStore {
	return &mongoHistory{db: db}
}

// EnsureHistoryIndexes creates the lookup indexes for the history collection.
func EnsureHistoryIndexes(ctx context.Context, db *database.MongoDB) error {
	_, err := db.Collection(database.CollectionChatHistory).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "sessionId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "userId", Value: 1}, {Key: "updatedAt", Value: -1}},
		},
	})
	if err != nil {
		return fmt.Errorf("create history indexes: %w", err)
	}
	return nil
}

func (s *mongoHistory) List(ctx context.Context, userID string, limit int) ([]models.ChatHistory, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := s.db.Collection(database.CollectionChatHistory).
		Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer cur.Close(ctx)

	var out []models.ChatHistory
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	return out, nil
}

func (s *mongoHistory) Get(ctx context.Context, userID, sessionID string) (*models.ChatHistory, error) {
	var h models.ChatHistory
	err := s.db.Collection(database.CollectionChatHistory).
		FindOne(ctx, bson.M{"userId": userID, "sessionId": sessionID}).Decode(&h)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get history: %w", err)
	}
	return &h, nil
}

func (s *mongoHistory) Save(ctx context.Context, h models.ChatHistory) error {
	_, err := s.db.Collection(database.CollectionChatHistory).UpdateOne(
		ctx,
		bson.M{"userId": h.UserID, "sessionId": h.SessionID},
		bson.M{"$set": bson.M{
			"title":     h.Title,
			"messages":  h.Messages,
			"updatedAt": h.UpdatedAt,
		}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("save history: %w", err)
	}
	return nil
}

func (s *mongoHistory) Prune(ctx context.Context, olderThan time.Time) (int, error) {
	res, err := s.db.Collection(database.CollectionChatHistory).
		DeleteMany(ctx, bson.M{"updatedAt": bson.M{"$lt": olderThan}})
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	return int(res.DeletedCount), nil
}
