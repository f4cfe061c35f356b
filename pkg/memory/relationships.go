package memory

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"go.mongodb.org/mongo-driver/bson"
)

// Page size bounds for GetRelationships.
const (
	minRelationshipLimit = 1
	maxRelationshipLimit = 100
)

// entityExists resolves a relationship endpoint by name.
func (s *Store) entityExists(ctx context.Context, name string) (bool, *StoreError) {
	doc, err := s.entities.FindOne(ctx, bson.M{"name": name})

	if err != nil {
		return false, classify(err)
	}

	return doc != nil, nil
}

// resolveEndpoints checks that both endpoints of a relationship exist,
// reporting the missing one as a missing_reference envelope error.
func (s *Store) resolveEndpoints(ctx context.Context, from, to string) *StoreError {
	for _, endpoint := range []struct{ role, name string }{
		{"source", from},
		{"target", to},
	} {
		exists, serr := s.entityExists(ctx, endpoint.name)

		if serr != nil {
			return serr
		}

		if !exists {
			return newError(
				KindMissingReference,
				"%s entity %q does not exist", endpoint.role, endpoint.name,
			).WithDetails("Create both entities with create_entities before relating them.")
		}
	}

	return nil
}

/*
CreateRelationship creates a typed, attributed edge between two existing
entities. The descriptor packs type and properties into one string;
separately supplied properties are merged underneath the descriptor's, so a
key present in both takes the descriptor's value. The entity existence check
and the insert are not atomic together: a race between two creators of the
same (from, to, type) triple is resolved by the unique compound index
rejecting the second insert.
*/
func (s *Store) CreateRelationship(
	ctx context.Context, from, to, descriptor string, properties map[string]string,
) Result {
	if res, short := s.gate(); short {
		return res
	}

	if from == "" || to == "" {
		return Fail(newError(KindValidation, "from and to entity names are required"))
	}

	desc, perr := ParseDescriptor(descriptor)

	if perr != nil {
		return Fail(perr)
	}

	if serr := s.resolveEndpoints(ctx, from, to); serr != nil {
		return Fail(serr)
	}

	if err := s.ensureRelationshipIndexes(ctx); err != nil {
		log.Error("failed to ensure relationship indexes", "error", err)
		return Fail(classify(err))
	}

	merged := make(map[string]string, len(properties)+len(desc.Properties))

	for k, v := range properties {
		merged[k] = v
	}

	for k, v := range desc.Properties {
		merged[k] = v
	}

	doc := bson.M{
		"from_entity": from,
		"to_entity":   to,
		"type":        desc.Type,
		"properties":  propertyDoc(merged),
		"created_at":  time.Now().UTC(),
	}

	id, err := s.relationships.InsertOne(ctx, doc)

	if err != nil {
		log.Error("failed to insert relationship",
			"from", from, "to", to, "type", desc.Type, "error", err)
		return Fail(classify(err))
	}

	return OK(map[string]any{"acknowledged": true, "inserted_id": id})
}

/*
GetRelationships returns a page of relationships matching an optional
database-native filter. total_count is the full match count independent of
the limit; one extra document is fetched to detect a next page, and
next_cursor carries the string identifier of the last returned document when
one exists. No ordering is imposed, so the cursor is offset-free but only as
stable as the database's natural order.
*/
func (s *Store) GetRelationships(ctx context.Context, query bson.M, limit int64) Result {
	if res, short := s.gate(); short {
		return res
	}

	if limit < minRelationshipLimit || limit > maxRelationshipLimit {
		return Fail(newError(
			KindValidation,
			"limit must be between %d and %d, got %d",
			minRelationshipLimit, maxRelationshipLimit, limit,
		))
	}

	if query == nil {
		query = bson.M{}
	}

	total, err := s.relationships.CountDocuments(ctx, query)

	if err != nil {
		log.Error("failed to count relationships", "error", err)
		return Fail(classify(err))
	}

	docs, err := s.relationships.Find(ctx, query, limit+1)

	if err != nil {
		log.Error("failed to find relationships", "error", err)
		return Fail(classify(err))
	}

	hasNext := int64(len(docs)) > limit

	if hasNext {
		docs = docs[:limit]
	}

	var nextCursor any

	if hasNext && len(docs) > 0 {
		if id, ok := docs[len(docs)-1]["_id"].(string); ok {
			nextCursor = id
		}
	}

	if docs == nil {
		docs = []bson.M{}
	}

	return OK(map[string]any{
		"relationships": docs,
		"total_count":   total,
		"page_info": map[string]any{
			"has_next":    hasNext,
			"next_cursor": nextCursor,
		},
	})
}

/*
DeleteRelationship deletes at most one relationship matching the endpoints
and the parsed descriptor. The match is all-or-nothing on the whole
properties object: the descriptor must spell out exactly the properties the
relationship was created with, so a bare type only matches relationships
without properties and partial overlap never qualifies. Zero deletions is
still success; callers read deleted_count.
*/
func (s *Store) DeleteRelationship(ctx context.Context, from, to, descriptor string) Result {
	if res, short := s.gate(); short {
		return res
	}

	if from == "" || to == "" {
		return Fail(newError(KindValidation, "from and to entity names are required"))
	}

	desc, perr := ParseDescriptor(descriptor)

	if perr != nil {
		return Fail(perr)
	}

	if serr := s.resolveEndpoints(ctx, from, to); serr != nil {
		return Fail(serr)
	}

	filter := bson.M{
		"from_entity": from,
		"to_entity":   to,
		"type":        desc.Type,
		"properties":  propertyDoc(desc.Properties),
	}

	deleted, err := s.relationships.DeleteOne(ctx, filter)

	if err != nil {
		log.Error("failed to delete relationship",
			"from", from, "to", to, "type", desc.Type, "error", err)
		return Fail(classify(err))
	}

	return OK(map[string]any{"acknowledged": true, "deleted_count": deleted})
}
