package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/valpere/scrapping/internal/pipeline"
)

// MongoDedupeStore backs pipeline.DedupeStore with a MongoDB collection,
// one document per (source_id, kind, key) triple, relying on a unique
// index to make MarkURL/MarkContentHash idempotent under concurrent
// workers.
type MongoDedupeStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoDedupeStore connects to connectionString and ensures the
// dedupe collection's unique index exists.
func NewMongoDedupeStore(ctx context.Context, connectionString, database, collection string) (*MongoDedupeStore, error) {
	clientOpts := options.Client().ApplyURI(connectionString)
	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("store: connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("store: ping mongodb: %w", err)
	}

	coll := client.Database(database).Collection(collection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "source_id", Value: 1}, {Key: "kind", Value: 1}, {Key: "key", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("store: create dedupe index: %w", err)
	}

	return &MongoDedupeStore{client: client, coll: coll}, nil
}

func (s *MongoDedupeStore) seen(ctx context.Context, kind, sourceID, key string) (bool, error) {
	n, err := s.coll.CountDocuments(ctx, bson.M{"source_id": sourceID, "kind": kind, "key": key})
	return n > 0, err
}

func (s *MongoDedupeStore) mark(ctx context.Context, kind, sourceID, key string) error {
	_, err := s.coll.InsertOne(ctx, bson.M{"source_id": sourceID, "kind": kind, "key": key})
	if mongo.IsDuplicateKeyError(err) {
		return nil
	}
	return err
}

func (s *MongoDedupeStore) SeenURL(ctx context.Context, sourceID, url string) (bool, error) {
	return s.seen(ctx, "url", sourceID, url)
}

func (s *MongoDedupeStore) MarkURL(ctx context.Context, sourceID, url string) error {
	return s.mark(ctx, "url", sourceID, url)
}

func (s *MongoDedupeStore) SeenContentHash(ctx context.Context, sourceID, hash string) (bool, error) {
	return s.seen(ctx, "hash", sourceID, hash)
}

func (s *MongoDedupeStore) MarkContentHash(ctx context.Context, sourceID, hash string) error {
	return s.mark(ctx, "hash", sourceID, hash)
}

func (s *MongoDedupeStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

var _ pipeline.DedupeStore = (*MongoDedupeStore)(nil)
