package memory

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"go.mongodb.org/mongo-driver/bson"
)

// defaultFindLimit caps FindEntities results when the caller does not supply
// a limit.
const defaultFindLimit = 10

// validateEntity checks the shape invariants the schema validator enforces
// server-side, before any document in a batch is written.
func validateEntity(entity bson.M) *StoreError {
	name, ok := entity["name"]

	if !ok {
		return newError(KindValidation, "missing required field: name").
			WithDetails("Every entity must have a unique string 'name' field.")
	}

	if _, ok := name.(string); !ok {
		return newError(KindValidation, "field name must be a string, got %T", name)
	}

	return nil
}

/*
CreateEntities inserts a batch of entities, stamping created_at and
updated_at on each. The whole batch is validated before anything is written;
a duplicate name aborts the batch at the database's ordered-insert
granularity and is reported as a duplicate_key envelope, never as partial
success.
*/
func (s *Store) CreateEntities(ctx context.Context, entities []bson.M) Result {
	if res, short := s.gate(); short {
		return res
	}

	if len(entities) == 0 {
		return Fail(newError(KindValidation, "entities list cannot be empty"))
	}

	for _, entity := range entities {
		if err := validateEntity(entity); err != nil {
			return Fail(err)
		}
	}

	now := time.Now().UTC()
	docs := make([]bson.M, 0, len(entities))

	for _, entity := range entities {
		doc := make(bson.M, len(entity)+2)

		for k, v := range entity {
			doc[k] = v
		}

		doc["created_at"] = now
		doc["updated_at"] = now
		docs = append(docs, doc)
	}

	ids, err := s.entities.InsertMany(ctx, docs)

	if err != nil {
		log.Error("failed to insert entities", "count", len(docs), "error", err)
		return Fail(classify(err))
	}

	return OK(map[string]any{"created": len(ids)})
}

// GetEntity looks an entity up by exact name. Absence is an expected outcome
// and comes back as a not_found envelope.
func (s *Store) GetEntity(ctx context.Context, name string) Result {
	if res, short := s.gate(); short {
		return res
	}

	doc, err := s.entities.FindOne(ctx, bson.M{"name": name})

	if err != nil {
		log.Error("failed to get entity", "name", name, "error", err)
		return Fail(classify(err))
	}

	if doc == nil {
		return Fail(newError(KindNotFound, "entity %q not found", name))
	}

	return OK(map[string]any{"entity": doc})
}

/*
UpdateEntity applies a database-native update document to the entity with
the given name, stamping updated_at into the $set portion unless the caller
already supplied one. With upsert set, a missing entity is created instead
of being reported as not found.
*/
func (s *Store) UpdateEntity(ctx context.Context, name string, update bson.M, upsert bool) Result {
	if res, short := s.gate(); short {
		return res
	}

	if len(update) == 0 {
		return Fail(newError(KindValidation, "update document cannot be empty"))
	}

	for key := range update {
		if !strings.HasPrefix(key, "$") {
			return Fail(newError(
				KindValidation,
				"update document must use update operators, got top-level field %q", key,
			).WithDetails(`Wrap plain fields in "$set", e.g. {"$set": {"role": "admin"}}.`))
		}
	}

	set, _ := asMap(update["$set"])

	if set == nil {
		set = map[string]any{}
	}

	if _, ok := set["updated_at"]; !ok {
		set["updated_at"] = time.Now().UTC()
	}

	patched := make(bson.M, len(update)+1)

	for k, v := range update {
		patched[k] = v
	}

	patched["$set"] = set

	res, err := s.entities.UpdateOne(ctx, bson.M{"name": name}, patched, upsert)

	if err != nil {
		log.Error("failed to update entity", "name", name, "error", err)
		return Fail(classify(err))
	}

	if res.MatchedCount > 0 {
		return OK(nil)
	}

	if upsert && res.UpsertedID != "" {
		return OK(map[string]any{"upserted_id": res.UpsertedID})
	}

	return Fail(newError(KindNotFound, "entity %q not found", name))
}

/*
DeleteEntity deletes at most one entity by exact name. What happens to
relationships referencing the entity follows the configured DanglingPolicy:
kept in place (default), cascade-deleted, or blocking the deletion entirely.
*/
func (s *Store) DeleteEntity(ctx context.Context, name string) Result {
	if res, short := s.gate(); short {
		return res
	}

	refFilter := bson.M{"$or": []bson.M{{"from_entity": name}, {"to_entity": name}}}

	var cascaded int64

	switch s.cfg.Dangling {
	case DanglingReject:
		refs, err := s.relationships.CountDocuments(ctx, refFilter)

		if err != nil {
			log.Error("failed to count referencing relationships", "name", name, "error", err)
			return Fail(classify(err))
		}

		if refs > 0 {
			return Fail(newError(
				KindValidation,
				"entity %q is still referenced by %d relationship(s)", name, refs,
			).WithDetails("Delete the relationships first, or run the store with the cascade policy."))
		}
	case DanglingCascade:
		var err error
		cascaded, err = s.relationships.DeleteMany(ctx, refFilter)

		if err != nil {
			log.Error("failed to cascade-delete relationships", "name", name, "error", err)
			return Fail(classify(err))
		}
	}

	deleted, err := s.entities.DeleteOne(ctx, bson.M{"name": name})

	if err != nil {
		log.Error("failed to delete entity", "name", name, "error", err)
		return Fail(classify(err))
	}

	if deleted == 0 {
		return Fail(newError(KindNotFound, "entity %q not found", name))
	}

	if s.cfg.Dangling == DanglingCascade {
		return OK(map[string]any{"relationships_deleted": cascaded})
	}

	return OK(nil)
}

/*
FindEntities returns up to limit entities matching a database-native filter
document. An empty filter is rejected before the database is touched; use
GetEntity for point lookups and keep filters specific. No ordering is
imposed beyond the database's natural order.
*/
func (s *Store) FindEntities(ctx context.Context, query bson.M, limit int64) Result {
	if res, short := s.gate(); short {
		return res
	}

	if len(query) == 0 {
		return Fail(newError(KindValidation, "query cannot be empty").
			WithDetails(`Provide at least one filter field, e.g. {"type": "module"}.`))
	}

	if limit <= 0 {
		limit = defaultFindLimit
	}

	docs, err := s.entities.Find(ctx, query, limit)

	if err != nil {
		log.Error("failed to find entities", "error", err)
		return Fail(classify(err))
	}

	if docs == nil {
		docs = []bson.M{}
	}

	return OK(map[string]any{"entities": docs, "count": len(docs)})
}
