package memory

import (
	"context"

	"github.com/charmbracelet/log"
	"go.mongodb.org/mongo-driver/bson"
)

// entityValidator requires every entity document to carry a string name.
var entityValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{"name"},
		"properties": bson.M{
			"name": bson.M{
				"bsonType":    "string",
				"description": "Unique name of the entity - required field",
			},
		},
	},
}

// relationshipIndexKeys lists the simple indexes the relationships collection
// carries next to the unique (from_entity, to_entity, type) compound index.
var relationshipIndexKeys = []string{"from_entity", "to_entity", "type"}

/*
EnsureSchema applies the entity collection rules: a unique index on name and
the required-field validator. Each step is checked before it is applied, so
rerunning it is safe.
*/
func (s *Store) EnsureSchema(ctx context.Context) error {
	if s.gateErr != nil {
		return s.gateErr
	}

	unique, err := s.hasUniqueNameIndex(ctx)

	if err != nil {
		return err
	}

	if !unique {
		// Creating the index also creates the collection, which the collMod
		// behind SetValidator needs to exist.
		if err := s.entities.CreateIndex(ctx, []string{"name"}, true); err != nil {
			return err
		}

		log.Info("created unique entity name index")
	}

	validator, err := s.entities.Validator(ctx)

	if err != nil {
		return err
	}

	if len(validator) == 0 {
		if err := s.entities.SetValidator(ctx, entityValidator); err != nil {
			return err
		}

		log.Info("applied entity name validator")
	}

	return nil
}

func (s *Store) hasUniqueNameIndex(ctx context.Context) (bool, error) {
	specs, err := s.entities.ListIndexes(ctx)

	if err != nil {
		return false, err
	}

	for _, spec := range specs {
		if spec.Unique && spec.HasKey("name") && spec.Name != "_id_" {
			return true, nil
		}
	}

	return false, nil
}

// ensureRelationshipIndexes lazily applies the relationship indexes on the
// first relationship write. The mutex makes the checked-then-applied sequence
// single-owner within this store; a failure surfaces from the triggering call.
func (s *Store) ensureRelationshipIndexes(ctx context.Context) error {
	s.relMu.Lock()
	defer s.relMu.Unlock()

	if s.relIndexed {
		return nil
	}

	specs, err := s.relationships.ListIndexes(ctx)

	if err != nil {
		return err
	}

	for _, key := range relationshipIndexKeys {
		if !hasIndex(specs, []string{key}, false) {
			if err := s.relationships.CreateIndex(ctx, []string{key}, false); err != nil {
				return err
			}
		}
	}

	if !hasIndex(specs, relationshipIndexKeys, true) {
		if err := s.relationships.CreateIndex(ctx, relationshipIndexKeys, true); err != nil {
			return err
		}
	}

	s.relIndexed = true

	return nil
}

func hasIndex(specs []IndexSpec, keys []string, unique bool) bool {
	for _, spec := range specs {
		if unique && !spec.Unique {
			continue
		}

		if len(spec.Keys) != len(keys) {
			continue
		}

		match := true

		for i, k := range keys {
			if spec.Keys[i] != k {
				match = false
				break
			}
		}

		if match {
			return true
		}
	}

	return false
}
