package memory

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
)

// IndexSpec describes one index on a collection, reduced to the parts the
// schema bootstrapper inspects.
type IndexSpec struct {
	Name   string
	Keys   []string
	Unique bool
}

// HasKey reports whether the index covers the given field.
func (s IndexSpec) HasKey(field string) bool {
	for _, k := range s.Keys {
		if k == field {
			return true
		}
	}

	return false
}

// UpdateResult reports the outcome of an update operation.
type UpdateResult struct {
	MatchedCount int64
	UpsertedID   string
}

/*
Collection is the slice of document-database behavior the store consumes.
The MongoDB implementation wraps a driver collection; the in-memory
implementation backs tests and ephemeral serving.

Document identifiers cross this boundary as plain strings, never as a
driver-native identifier type. FindOne returns (nil, nil) when no document
matches.
*/
type Collection interface {
	InsertOne(ctx context.Context, doc bson.M) (string, error)
	InsertMany(ctx context.Context, docs []bson.M) ([]string, error)
	FindOne(ctx context.Context, filter bson.M) (bson.M, error)
	Find(ctx context.Context, filter bson.M, limit int64) ([]bson.M, error)
	UpdateOne(ctx context.Context, filter, update bson.M, upsert bool) (UpdateResult, error)
	DeleteOne(ctx context.Context, filter bson.M) (int64, error)
	DeleteMany(ctx context.Context, filter bson.M) (int64, error)
	CountDocuments(ctx context.Context, filter bson.M) (int64, error)
	Aggregate(ctx context.Context, pipeline []bson.M) ([]bson.M, error)

	ListIndexes(ctx context.Context) ([]IndexSpec, error)
	CreateIndex(ctx context.Context, keys []string, unique bool) error
	Validator(ctx context.Context) (bson.M, error)
	SetValidator(ctx context.Context, schema bson.M) error
}

// Backend is a handle on the document database.
type Backend interface {
	Ping(ctx context.Context) error
	Collection(database, name string) Collection
	Close(ctx context.Context) error
}
