package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/luciusandi/bumbootools/internal/types"
)

// MongoStore writes records to a MongoDB collection, one document per
// product per site per day.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
	mu         sync.Mutex
	count      int
	logger     *slog.Logger
}

// NewMongoStore connects to MongoDB and verifies the connection.
func NewMongoStore(uri, database, collection string, logger *slog.Logger) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("connect: %w", err)}
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("ping: %w", err)}
	}

	return &MongoStore{
		client:     client,
		collection: client.Database(database).Collection(collection),
		logger:     logger.With("component", "mongo_store"),
	}, nil
}

func (s *MongoStore) Name() string { return "mongodb" }

func (s *MongoStore) Upsert(ctx context.Context, records []types.ProductRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	opts := options.Replace().SetUpsert(true)
	for _, rec := range records {
		doc := bson.M{
			"brand":         rec.Brand,
			"description":   rec.Description,
			"site":          rec.Site,
			"size":          rec.Size,
			"ply":           rec.Ply,
			"price":         rec.Price,
			"total_reviews": rec.TotalReviews,
			"total_rating":  rec.TotalRating,
			"source_url":    rec.SourceURL,
			"metadata":      rec.Metadata,
			"collected_at":  rec.CollectedAt,
			"collected_day": collectedDay(rec.CollectedAt),
		}
		filter := bson.M{
			"site":          rec.Site,
			"brand":         rec.Brand,
			"description":   rec.Description,
			"size":          rec.Size,
			"collected_day": collectedDay(rec.CollectedAt),
		}
		if _, err := s.collection.ReplaceOne(ctx, filter, doc, opts); err != nil {
			return &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("upsert: %w", err)}
		}
	}

	s.count += len(records)
	s.logger.Debug("records upserted", "count", len(records), "total", s.count)
	return nil
}

func (s *MongoStore) ReadWindow(ctx context.Context, q Query) ([]types.ProductRecord, error) {
	filter := bson.M{}
	if len(q.Sites) > 0 {
		filter["site"] = bson.M{"$in": q.Sites}
	}
	if len(q.Brands) > 0 {
		filter["brand"] = bson.M{"$in": q.Brands}
	}
	window := bson.M{}
	if !q.Since.IsZero() {
		window["$gte"] = q.Since
	}
	if !q.Until.IsZero() {
		window["$lte"] = q.Until
	}
	if len(window) > 0 {
		filter["collected_at"] = window
	}

	opts := options.Find().SetSort(bson.D{{Key: "collected_at", Value: -1}})
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}

	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("find: %w", err)}
	}
	defer cursor.Close(ctx)

	var records []types.ProductRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("decode: %w", err)}
	}
	return records, nil
}

func (s *MongoStore) Close() error {
	s.logger.Info("mongodb store closing", "total_records", s.count)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
