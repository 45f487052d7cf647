// mongodb.go - Catalog rows from a MongoDB collection

package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoSource reads product documents from one collection. Top-level field
// names become headers; array fields are joined with commas.
type MongoSource struct {
	uri         string
	database    string
	collection  string
	connTimeout time.Duration
}

// NewMongoSource creates a source. Connection happens on each Rows call.
func NewMongoSource(uri, database, collection string, connTimeout time.Duration) *MongoSource {
	if connTimeout <= 0 {
		connTimeout = 10 * time.Second
	}
	return &MongoSource{uri: uri, database: database, collection: collection, connTimeout: connTimeout}
}

// Describe returns database.collection.
func (s *MongoSource) Describe() string {
	return "mongodb:" + s.database + "." + s.collection
}

// Rows connects, reads every document and disconnects.
func (s *MongoSource) Rows(ctx context.Context) (*Table, error) {
	connCtx, cancel := context.WithTimeout(ctx, s.connTimeout)
	defer cancel()

	client, err := mongo.Connect(connCtx, options.Client().ApplyURI(s.uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	defer func() {
		dctx, dcancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer dcancel()
		_ = client.Disconnect(dctx)
	}()

	if err := client.Ping(connCtx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	coll := client.Database(s.database).Collection(s.collection)
	cursor, err := coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", s.collection, err)
	}
	defer cursor.Close(ctx)

	var docs []bson.D
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", s.collection, err)
	}
	return documentsToTable(docs), nil
}

// documentsToTable flattens documents into a table. Headers are the union
// of top-level keys in first-seen order; _id is dropped.
func documentsToTable(docs []bson.D) *Table {
	table := &Table{}
	column := map[string]int{}

	for _, doc := range docs {
		for _, elem := range doc {
			if elem.Key == "_id" {
				continue
			}
			if _, ok := column[elem.Key]; !ok {
				column[elem.Key] = len(table.Headers)
				table.Headers = append(table.Headers, elem.Key)
			}
		}
	}

	for _, doc := range docs {
		row := make([]string, len(table.Headers))
		for _, elem := range doc {
			if i, ok := column[elem.Key]; ok {
				row[i] = cellString(elem.Value)
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}

func cellString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bson.A:
		return joinArray([]interface{}(val))
	case []interface{}:
		return joinArray(val)
	case primitive.ObjectID:
		return val.Hex()
	case bson.D, bson.M:
		// nested documents never map to a catalog field
		return ""
	default:
		return fmt.Sprint(val)
	}
}

func joinArray(items []interface{}) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		if s := cellString(item); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ",")
}
