package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/aluiziolira/go-scrape-apps/models"
)

const mongoOpTimeout = 10 * time.Second

// MongoWriter inserts each record as one document of a collection.
type MongoWriter struct {
	client     *mongo.Client
	collection *mongo.Collection
	ownsClient bool
	mu         sync.Mutex
}

// NewMongoWriter connects to uri and writes into database.collection.
// If truncate is set the collection is emptied first.
func NewMongoWriter(ctx context.Context, uri, database, collection string, truncate bool) (*MongoWriter, error) {
	connectCtx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to MongoDB: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping MongoDB: %w", err)
	}

	mw := NewMongoWriterFromClient(client, database, collection)
	mw.ownsClient = true

	if truncate {
		if _, err := mw.collection.DeleteMany(connectCtx, bson.D{}); err != nil {
			client.Disconnect(context.Background())
			return nil, fmt.Errorf("truncate %s: %w", collection, err)
		}
	}
	return mw, nil
}

// NewMongoWriterFromClient shares an existing client. Close leaves it connected.
func NewMongoWriterFromClient(client *mongo.Client, database, collection string) *MongoWriter {
	return &MongoWriter{
		client:     client,
		collection: client.Database(database).Collection(collection),
	}
}

// Write inserts records in order.
func (mw *MongoWriter) Write(records []Record) error {
	if len(records) == 0 {
		return nil
	}
	mw.mu.Lock()
	defer mw.mu.Unlock()

	docs := make([]interface{}, 0, len(records))
	for _, record := range records {
		docs = append(docs, toDocument(record))
	}

	ctx, cancel := context.WithTimeout(context.Background(), mongoOpTimeout)
	defer cancel()

	if _, err := mw.collection.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true)); err != nil {
		return fmt.Errorf("insert documents: %w", err)
	}
	return nil
}

// Close disconnects the client when the writer created it.
func (mw *MongoWriter) Close() error {
	if !mw.ownsClient {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), mongoOpTimeout)
	defer cancel()
	return mw.client.Disconnect(ctx)
}

// Validate ensures the collection has at least one document.
func (mw *MongoWriter) Validate() error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoOpTimeout)
	defer cancel()

	n, err := mw.collection.CountDocuments(ctx, bson.D{})
	if err != nil {
		return fmt.Errorf("count documents: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("collection %s is empty", mw.collection.Name())
	}
	return nil
}

// toDocument keeps typed fields for app records; other records become
// string-valued documents in header order.
func toDocument(record Record) interface{} {
	if app, ok := record.(models.AppRecord); ok {
		return app
	}
	header := record.Header()
	values := record.Values()
	doc := make(bson.D, 0, len(header))
	for i, key := range header {
		var v string
		if i < len(values) {
			v = values[i]
		}
		doc = append(doc, bson.E{Key: key, Value: v})
	}
	return doc
}
