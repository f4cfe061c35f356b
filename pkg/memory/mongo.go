package memory

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// documentValidationFailure is the server error code MongoDB returns when a
// write violates a collection validator.
const documentValidationFailure = 121

/*
mongoBackend implements Backend on the official MongoDB driver.
*/
type mongoBackend struct {
	client *mongo.Client
}

// Dial connects to MongoDB with the given connection string. It does not
// ping; the store probes connectivity itself so a dead endpoint becomes a
// cached configuration error instead of a construction failure.
func Dial(ctx context.Context, uri string) (Backend, error) {
	// Decode embedded documents as bson.M rather than bson.D so results can
	// be handled (and marshaled to JSON) as plain maps.
	registry := bson.NewRegistry()
	registry.RegisterTypeMapEntry(bson.TypeEmbeddedDocument, reflect.TypeOf(bson.M{}))

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetRegistry(registry))

	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	return &mongoBackend{client: client}, nil
}

func (b *mongoBackend) Ping(ctx context.Context) error {
	return b.client.Ping(ctx, readpref.Primary())
}

func (b *mongoBackend) Collection(database, name string) Collection {
	db := b.client.Database(database)

	return &mongoCollection{db: db, coll: db.Collection(name), name: name}
}

func (b *mongoBackend) Close(ctx context.Context) error {
	return b.client.Disconnect(ctx)
}

type mongoCollection struct {
	db   *mongo.Database
	coll *mongo.Collection
	name string
}

// wrapErr translates driver failures into the backend sentinels the store
// classifies on.
func wrapErr(err error) error {
	if err == nil {
		return nil
	}

	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %v", ErrDuplicateKey, err)
	}

	var cmdErr mongo.CommandError

	if errors.As(err, &cmdErr) && cmdErr.Code == documentValidationFailure {
		return fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	var writeErr mongo.WriteException

	if errors.As(err, &writeErr) {
		for _, werr := range writeErr.WriteErrors {
			if werr.Code == documentValidationFailure {
				return fmt.Errorf("%w: %v", ErrValidationFailed, err)
			}
		}
	}

	var bulkErr mongo.BulkWriteException

	if errors.As(err, &bulkErr) {
		for _, werr := range bulkErr.WriteErrors {
			if werr.Code == documentValidationFailure {
				return fmt.Errorf("%w: %v", ErrValidationFailed, err)
			}
		}
	}

	return err
}

// stringifyID renders a driver identifier as a plain string.
func stringifyID(v any) string {
	if oid, ok := v.(primitive.ObjectID); ok {
		return oid.Hex()
	}

	return fmt.Sprintf("%v", v)
}

// normalizeDoc converts driver-native values that should not leak to callers:
// the _id becomes its string form and timestamps become time.Time.
func normalizeDoc(doc bson.M) bson.M {
	if doc == nil {
		return nil
	}

	for k, v := range doc {
		if dt, ok := v.(primitive.DateTime); ok {
			doc[k] = dt.Time().UTC()
		}
	}

	if id, ok := doc["_id"]; ok {
		doc["_id"] = stringifyID(id)
	}

	return doc
}

func (c *mongoCollection) InsertOne(ctx context.Context, doc bson.M) (string, error) {
	res, err := c.coll.InsertOne(ctx, doc)

	if err != nil {
		return "", wrapErr(err)
	}

	return stringifyID(res.InsertedID), nil
}

func (c *mongoCollection) InsertMany(ctx context.Context, docs []bson.M) ([]string, error) {
	payload := make([]any, len(docs))

	for i, doc := range docs {
		payload[i] = doc
	}

	res, err := c.coll.InsertMany(ctx, payload)

	if err != nil {
		return nil, wrapErr(err)
	}

	ids := make([]string, 0, len(res.InsertedIDs))

	for _, id := range res.InsertedIDs {
		ids = append(ids, stringifyID(id))
	}

	return ids, nil
}

func (c *mongoCollection) FindOne(ctx context.Context, filter bson.M) (bson.M, error) {
	var doc bson.M

	err := c.coll.FindOne(ctx, filter).Decode(&doc)

	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}

	if err != nil {
		return nil, wrapErr(err)
	}

	return normalizeDoc(doc), nil
}

func (c *mongoCollection) Find(ctx context.Context, filter bson.M, limit int64) ([]bson.M, error) {
	opts := options.Find()

	if limit > 0 {
		opts.SetLimit(limit)
	}

	cursor, err := c.coll.Find(ctx, filter, opts)

	if err != nil {
		return nil, wrapErr(err)
	}

	var docs []bson.M

	if err := cursor.All(ctx, &docs); err != nil {
		return nil, wrapErr(err)
	}

	for i := range docs {
		docs[i] = normalizeDoc(docs[i])
	}

	return docs, nil
}

func (c *mongoCollection) UpdateOne(
	ctx context.Context, filter, update bson.M, upsert bool,
) (UpdateResult, error) {
	res, err := c.coll.UpdateOne(ctx, filter, update, options.Update().SetUpsert(upsert))

	if err != nil {
		return UpdateResult{}, wrapErr(err)
	}

	out := UpdateResult{MatchedCount: res.MatchedCount}

	if res.UpsertedID != nil {
		out.UpsertedID = stringifyID(res.UpsertedID)
	}

	return out, nil
}

func (c *mongoCollection) DeleteOne(ctx context.Context, filter bson.M) (int64, error) {
	res, err := c.coll.DeleteOne(ctx, filter)

	if err != nil {
		return 0, wrapErr(err)
	}

	return res.DeletedCount, nil
}

func (c *mongoCollection) DeleteMany(ctx context.Context, filter bson.M) (int64, error) {
	res, err := c.coll.DeleteMany(ctx, filter)

	if err != nil {
		return 0, wrapErr(err)
	}

	return res.DeletedCount, nil
}

func (c *mongoCollection) CountDocuments(ctx context.Context, filter bson.M) (int64, error) {
	count, err := c.coll.CountDocuments(ctx, filter)

	return count, wrapErr(err)
}

func (c *mongoCollection) Aggregate(ctx context.Context, pipeline []bson.M) ([]bson.M, error) {
	cursor, err := c.coll.Aggregate(ctx, pipeline)

	if err != nil {
		return nil, wrapErr(err)
	}

	var rows []bson.M

	if err := cursor.All(ctx, &rows); err != nil {
		return nil, wrapErr(err)
	}

	return rows, nil
}

func (c *mongoCollection) ListIndexes(ctx context.Context) ([]IndexSpec, error) {
	cursor, err := c.coll.Indexes().List(ctx)

	if err != nil {
		return nil, wrapErr(err)
	}

	var raw []struct {
		Name   string `bson:"name"`
		Key    bson.D `bson:"key"`
		Unique bool   `bson:"unique"`
	}

	if err := cursor.All(ctx, &raw); err != nil {
		return nil, wrapErr(err)
	}

	specs := make([]IndexSpec, 0, len(raw))

	for _, idx := range raw {
		spec := IndexSpec{Name: idx.Name, Unique: idx.Unique}

		for _, e := range idx.Key {
			spec.Keys = append(spec.Keys, e.Key)
		}

		specs = append(specs, spec)
	}

	return specs, nil
}

func (c *mongoCollection) CreateIndex(ctx context.Context, keys []string, unique bool) error {
	keyDoc := make(bson.D, 0, len(keys))

	for _, k := range keys {
		keyDoc = append(keyDoc, bson.E{Key: k, Value: 1})
	}

	model := mongo.IndexModel{Keys: keyDoc}

	if unique {
		model.Options = options.Index().SetUnique(true)
	}

	_, err := c.coll.Indexes().CreateOne(ctx, model)

	return wrapErr(err)
}

func (c *mongoCollection) Validator(ctx context.Context) (bson.M, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cursor, err := c.db.ListCollections(ctx, bson.M{"name": c.name})

	if err != nil {
		return nil, wrapErr(err)
	}

	var infos []bson.M

	if err := cursor.All(ctx, &infos); err != nil {
		return nil, wrapErr(err)
	}

	if len(infos) == 0 {
		return nil, nil
	}

	opts, _ := asMap(infos[0]["options"])
	validator, _ := asMap(opts["validator"])

	return bson.M(validator), nil
}

func (c *mongoCollection) SetValidator(ctx context.Context, schema bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: c.name},
		{Key: "validator", Value: schema},
	}

	return wrapErr(c.db.RunCommand(ctx, cmd).Err())
}
