package memory

import (
	"context"

	"github.com/charmbracelet/log"
	"go.mongodb.org/mongo-driver/bson"
)

// Fields left out of the derived structure: identity and prose fields, plus
// date/object typed values which don't enumerate usefully.
var structureExcludedFields = []string{"_id", "name", "description"}

/*
Structure returns a summary of the recognized entity fields and their
values. A curated record in the system database (the document marked
structure: true in the sys collection) wins; when none exists the summary is
derived from the stored entities themselves, so callers always get an answer
once memory holds data.
*/
func (s *Store) Structure(ctx context.Context) Result {
	if res, short := s.gate(); short {
		return res
	}

	doc, err := s.system.FindOne(ctx, bson.M{"structure": true})

	if err != nil {
		log.Error("failed to read structure record", "error", err)
		return Fail(classify(err))
	}

	if doc != nil {
		delete(doc, "_id")
		delete(doc, "structure")

		return OK(map[string]any{"structure": doc})
	}

	derived, serr := s.deriveStructure(ctx)

	if serr != nil {
		return Fail(serr)
	}

	return OK(map[string]any{"structure": derived, "derived": true})
}

// deriveStructure aggregates the distinct values per entity field.
func (s *Store) deriveStructure(ctx context.Context) (bson.M, *StoreError) {
	pipeline := []bson.M{
		{"$project": bson.M{"fields": bson.M{"$objectToArray": "$$ROOT"}}},
		{"$unwind": "$fields"},
		{"$addFields": bson.M{"field_type": bson.M{"$type": "$fields.v"}}},
		{"$match": bson.M{
			"fields.k":   bson.M{"$nin": structureExcludedFields},
			"field_type": bson.M{"$nin": []string{"date", "object"}},
		}},
		{"$group": bson.M{"_id": "$fields.k", "values": bson.M{"$addToSet": "$fields.v"}}},
		{"$sort": bson.M{"_id": 1}},
	}

	rows, err := s.entities.Aggregate(ctx, pipeline)

	if err != nil {
		log.Error("failed to derive memory structure", "error", err)
		return nil, classify(err)
	}

	structure := bson.M{}

	for _, row := range rows {
		field, _ := row["_id"].(string)

		if field == "" {
			continue
		}

		structure[field] = row["values"]
	}

	return structure, nil
}
