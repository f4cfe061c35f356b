package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
)

/*
InMemoryBackend is a Backend that keeps every collection in process memory
while still enforcing the behavior the store depends on: unique and compound
indexes, the required-field validator, all-or-nothing equality filters and
$set/$unset updates. It backs the test suite and the --in-memory serving
mode; anything beyond plain equality filters needs the MongoDB backend.
*/
type InMemoryBackend struct {
	mu    sync.Mutex
	colls map[string]*memCollection
}

// NewInMemoryBackend creates an empty in-memory backend.
func NewInMemoryBackend() *InMemoryBackend {
	return &InMemoryBackend{colls: map[string]*memCollection{}}
}

func (b *InMemoryBackend) Ping(ctx context.Context) error {
	return nil
}

func (b *InMemoryBackend) Collection(database, name string) Collection {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := database + "/" + name
	coll, ok := b.colls[key]

	if !ok {
		coll = &memCollection{
			indexes: []IndexSpec{{Name: "_id_", Keys: []string{"_id"}, Unique: true}},
		}
		b.colls[key] = coll
	}

	return coll
}

func (b *InMemoryBackend) Close(ctx context.Context) error {
	return nil
}

type memCollection struct {
	mu        sync.RWMutex
	docs      []bson.M
	indexes   []IndexSpec
	validator bson.M
}

func (c *memCollection) matches(doc bson.M, filter bson.M) bool {
	for key, want := range filter {
		if key == "$or" {
			if !c.matchesAny(doc, want) {
				return false
			}

			continue
		}

		if !equalValues(doc[key], want) {
			return false
		}
	}

	return true
}

func (c *memCollection) matchesAny(doc bson.M, branches any) bool {
	var filters []bson.M

	switch list := branches.(type) {
	case []bson.M:
		filters = list
	case []any:
		for _, e := range list {
			if m, ok := asMap(e); ok {
				filters = append(filters, bson.M(m))
			}
		}
	}

	for _, filter := range filters {
		if c.matches(doc, filter) {
			return true
		}
	}

	return false
}

func (c *memCollection) checkValidator(doc bson.M) error {
	if c.validator == nil {
		return nil
	}

	schema, ok := asMap(c.validator["$jsonSchema"])

	if !ok {
		return nil
	}

	for _, field := range toStringList(schema["required"]) {
		if _, ok := doc[field]; !ok {
			return fmt.Errorf("%w: missing required field %q", ErrValidationFailed, field)
		}
	}

	props, _ := asMap(schema["properties"])

	for field, spec := range props {
		specMap, ok := asMap(spec)

		if !ok {
			continue
		}

		if bsonType, _ := specMap["bsonType"].(string); bsonType == "string" {
			if v, ok := doc[field]; ok {
				if _, isString := v.(string); !isString {
					return fmt.Errorf("%w: field %q must be a string", ErrValidationFailed, field)
				}
			}
		}
	}

	return nil
}

func indexValue(doc bson.M, keys []string) string {
	parts := make([]string, len(keys))

	for i, k := range keys {
		parts[i] = fmt.Sprintf("%v", doc[k])
	}

	return strings.Join(parts, "\x1f")
}

// checkUnique enforces the unique indexes. skip is the position of the
// document being replaced, or -1 for inserts.
func (c *memCollection) checkUnique(doc bson.M, skip int) error {
	for _, spec := range c.indexes {
		if !spec.Unique {
			continue
		}

		key := indexValue(doc, spec.Keys)

		for i, other := range c.docs {
			if i == skip {
				continue
			}

			if indexValue(other, spec.Keys) == key {
				return fmt.Errorf("%w: index %s", ErrDuplicateKey, spec.Name)
			}
		}
	}

	return nil
}

func (c *memCollection) insertLocked(doc bson.M) (string, error) {
	stored := copyDoc(doc)

	if _, ok := stored["_id"]; !ok {
		stored["_id"] = uuid.NewString()
	}

	if err := c.checkValidator(stored); err != nil {
		return "", err
	}

	if err := c.checkUnique(stored, -1); err != nil {
		return "", err
	}

	c.docs = append(c.docs, stored)

	return fmt.Sprintf("%v", stored["_id"]), nil
}

func (c *memCollection) InsertOne(ctx context.Context, doc bson.M) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.insertLocked(doc)
}

// InsertMany inserts in order and stops at the first failure, leaving the
// documents inserted so far in place, matching an ordered batch insert.
func (c *memCollection) InsertMany(ctx context.Context, docs []bson.M) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := make([]string, 0, len(docs))

	for _, doc := range docs {
		id, err := c.insertLocked(doc)

		if err != nil {
			return ids, err
		}

		ids = append(ids, id)
	}

	return ids, nil
}

func (c *memCollection) FindOne(ctx context.Context, filter bson.M) (bson.M, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, doc := range c.docs {
		if c.matches(doc, filter) {
			return copyDoc(doc), nil
		}
	}

	return nil, nil
}

func (c *memCollection) Find(ctx context.Context, filter bson.M, limit int64) ([]bson.M, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []bson.M

	for _, doc := range c.docs {
		if !c.matches(doc, filter) {
			continue
		}

		out = append(out, copyDoc(doc))

		if limit > 0 && int64(len(out)) == limit {
			break
		}
	}

	return out, nil
}

func applyUpdate(doc bson.M, update bson.M) (bson.M, error) {
	out := copyDoc(doc)

	for op, arg := range update {
		fields, ok := asMap(arg)

		if !ok {
			return nil, fmt.Errorf("invalid %s document", op)
		}

		switch op {
		case "$set":
			for k, v := range fields {
				out[k] = copyValue(v)
			}
		case "$unset":
			for k := range fields {
				delete(out, k)
			}
		default:
			return nil, fmt.Errorf("unsupported update operator %q", op)
		}
	}

	return out, nil
}

func (c *memCollection) UpdateOne(
	ctx context.Context, filter, update bson.M, upsert bool,
) (UpdateResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, doc := range c.docs {
		if !c.matches(doc, filter) {
			continue
		}

		patched, err := applyUpdate(doc, update)

		if err != nil {
			return UpdateResult{}, err
		}

		if err := c.checkValidator(patched); err != nil {
			return UpdateResult{}, err
		}

		if err := c.checkUnique(patched, i); err != nil {
			return UpdateResult{}, err
		}

		c.docs[i] = patched

		return UpdateResult{MatchedCount: 1}, nil
	}

	if !upsert {
		return UpdateResult{}, nil
	}

	// Seed the new document from the filter's plain equality fields, the way
	// an upsert insert does.
	seed := bson.M{}

	for k, v := range filter {
		if !strings.HasPrefix(k, "$") {
			seed[k] = copyValue(v)
		}
	}

	patched, err := applyUpdate(seed, update)

	if err != nil {
		return UpdateResult{}, err
	}

	id, err := c.insertLocked(patched)

	if err != nil {
		return UpdateResult{}, err
	}

	return UpdateResult{UpsertedID: id}, nil
}

func (c *memCollection) DeleteOne(ctx context.Context, filter bson.M) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, doc := range c.docs {
		if c.matches(doc, filter) {
			c.docs = append(c.docs[:i], c.docs[i+1:]...)
			return 1, nil
		}
	}

	return 0, nil
}

func (c *memCollection) DeleteMany(ctx context.Context, filter bson.M) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var kept []bson.M
	var deleted int64

	for _, doc := range c.docs {
		if c.matches(doc, filter) {
			deleted++
			continue
		}

		kept = append(kept, doc)
	}

	c.docs = kept

	return deleted, nil
}

func (c *memCollection) CountDocuments(ctx context.Context, filter bson.M) (int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var count int64

	for _, doc := range c.docs {
		if c.matches(doc, filter) {
			count++
		}
	}

	return count, nil
}

// Aggregate understands only the field-summary pipeline the store issues;
// arbitrary pipelines need the MongoDB backend.
func (c *memCollection) Aggregate(ctx context.Context, pipeline []bson.M) ([]bson.M, error) {
	excluded, ok := summaryExclusions(pipeline)

	if !ok {
		return nil, fmt.Errorf("unsupported aggregation pipeline")
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	values := map[string][]any{}
	seen := map[string]map[string]bool{}

	for _, doc := range c.docs {
		for field, v := range doc {
			if excluded[field] {
				continue
			}

			// The pipeline skips date and object typed values.
			if _, isTime := v.(time.Time); isTime {
				continue
			}

			if _, isMap := asMap(v); isMap {
				continue
			}

			key := fmt.Sprintf("%v", v)

			if seen[field] == nil {
				seen[field] = map[string]bool{}
			}

			if seen[field][key] {
				continue
			}

			seen[field][key] = true
			values[field] = append(values[field], copyValue(v))
		}
	}

	fields := make([]string, 0, len(values))

	for field := range values {
		fields = append(fields, field)
	}

	sort.Strings(fields)

	rows := make([]bson.M, 0, len(fields))

	for _, field := range fields {
		rows = append(rows, bson.M{"_id": field, "values": values[field]})
	}

	return rows, nil
}

// summaryExclusions recognizes the field-summary pipeline and pulls the
// excluded field names out of its $match stage.
func summaryExclusions(pipeline []bson.M) (map[string]bool, bool) {
	if len(pipeline) == 0 {
		return nil, false
	}

	if _, ok := pipeline[0]["$project"]; !ok {
		return nil, false
	}

	excluded := map[string]bool{"_id": true}

	for _, stage := range pipeline {
		match, ok := asMap(stage["$match"])

		if !ok {
			continue
		}

		keyFilter, ok := asMap(match["fields.k"])

		if !ok {
			continue
		}

		for _, field := range toStringList(keyFilter["$nin"]) {
			excluded[field] = true
		}
	}

	return excluded, true
}

func (c *memCollection) ListIndexes(ctx context.Context) ([]IndexSpec, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	specs := make([]IndexSpec, len(c.indexes))
	copy(specs, c.indexes)

	return specs, nil
}

func (c *memCollection) CreateIndex(ctx context.Context, keys []string, unique bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	name := strings.Join(keys, "_1_") + "_1"

	for _, spec := range c.indexes {
		if spec.Name == name {
			return nil
		}
	}

	c.indexes = append(c.indexes, IndexSpec{Name: name, Keys: keys, Unique: unique})

	return nil
}

func (c *memCollection) Validator(ctx context.Context) (bson.M, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.validator == nil {
		return nil, nil
	}

	return copyDoc(c.validator), nil
}

func (c *memCollection) SetValidator(ctx context.Context, schema bson.M) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.validator = copyDoc(schema)

	return nil
}
