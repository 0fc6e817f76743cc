package metrics

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Defaults for MongoStore.
const (
	DefaultDatabase   = "vpo"
	DefaultCollection = "load_metrics"
)

// MongoStore keeps records in a MongoDB collection.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoStore connects to uri and verifies the connection. Empty database
// and collection names use the defaults.
func NewMongoStore(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	if uri == "" {
		return nil, fmt.Errorf("metrics: mongo uri is required")
	}
	if database == "" {
		database = DefaultDatabase
	}
	if collection == "" {
		collection = DefaultCollection
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("metrics: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("metrics: ping: %w", err)
	}
	return &MongoStore{
		client: client,
		coll:   client.Database(database).Collection(collection),
	}, nil
}

func (s *MongoStore) Record(ctx context.Context, m LoadMetrics) error {
	_, err := s.coll.InsertOne(ctx, stamp(m))
	return err
}

func (s *MongoStore) Recent(ctx context.Context, scene string, limit int) ([]LoadMetrics, error) {
	filter, opts := recentQuery(scene, limit)
	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var out []LoadMetrics
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// recentQuery builds the filter and options for Recent.
func recentQuery(scene string, limit int) (bson.M, *options.FindOptions) {
	filter := bson.M{}
	if scene != "" {
		filter["scene"] = scene
	}
	opts := options.Find().SetSort(bson.D{{Key: "recorded_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return filter, opts
}

var _ Store = (*MongoStore)(nil)
