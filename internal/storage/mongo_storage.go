// Path: internal/storage/mongo_storage.go
package storage

import (
	"context"
	"errors"

	"gate-scraper/internal/cache"
	"gate-scraper/internal/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore is the MongoDB implementation of the cache.Backend interface.
// Each cache key is one document whose _id is the key.
type MongoStore struct {
	collection *mongo.Collection
}

// NewMongoStore creates a new storage adapter for cache entries.
func NewMongoStore(db *mongo.Database, collectionName string) *MongoStore {
	return &MongoStore{
		collection: db.Collection(collectionName),
	}
}

// EnsureIndexes creates the storedAt index used by Latest.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "storedAt", Value: -1}},
	})
	return err
}

// Get implements the cache.Backend interface.
func (s *MongoStore) Get(ctx context.Context, key string) (*domain.CacheEntry, error) {
	var entry domain.CacheEntry
	filter := bson.M{"_id": key}
	err := s.collection.FindOne(ctx, filter).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, cache.ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// Put implements the cache.Backend interface. ReplaceOne swaps the whole
// document, so readers see either the old entry or the new one.
func (s *MongoStore) Put(ctx context.Context, entry domain.CacheEntry) error {
	opts := options.Replace().SetUpsert(true)
	filter := bson.M{"_id": entry.Key}
	_, err := s.collection.ReplaceOne(ctx, filter, entry, opts)
	return err
}

// Delete implements the cache.Backend interface.
func (s *MongoStore) Delete(ctx context.Context, key string) error {
	_, err := s.collection.DeleteOne(ctx, bson.M{"_id": key})
	return err
}

// Clear implements the cache.Backend interface.
func (s *MongoStore) Clear(ctx context.Context) error {
	_, err := s.collection.DeleteMany(ctx, bson.D{})
	return err
}

// Latest implements the cache.Backend interface.
func (s *MongoStore) Latest(ctx context.Context) (*domain.CacheEntry, error) {
	var entry domain.CacheEntry
	opts := options.FindOne().SetSort(bson.D{{Key: "storedAt", Value: -1}})
	err := s.collection.FindOne(ctx, bson.D{}, opts).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, cache.ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// Count implements the cache.Backend interface.
func (s *MongoStore) Count(ctx context.Context) (int64, error) {
	return s.collection.CountDocuments(ctx, bson.D{})
}
