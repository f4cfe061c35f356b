package memory

import (
	"context"
	"testing"

	"go.mongodb.org/mongo-driver/bson"

	. "github.com/smartystreets/goconvey/convey"
)

func TestStructure(t *testing.T) {
	ctx := context.Background()

	Convey("Given a curated structure record", t, func() {
		backend := NewInMemoryBackend()
		s := NewWithBackend(backend, Config{})

		So(s.EnsureSchema(ctx), ShouldBeNil)

		_, err := backend.Collection("memory", "sys").InsertOne(ctx, bson.M{
			"structure":    true,
			"entity_types": []any{"person", "company"},
		})

		So(err, ShouldBeNil)

		Convey("The record wins over derivation", func() {
			res := s.Structure(ctx)

			So(res.Ok(), ShouldBeTrue)
			So(res, ShouldNotContainKey, "derived")

			structure, _ := asMap(res["structure"])

			So(structure["entity_types"], ShouldNotBeNil)

			Convey("and its bookkeeping fields are stripped", func() {
				So(structure, ShouldNotContainKey, "_id")
				So(structure, ShouldNotContainKey, "structure")
			})
		})
	})

	Convey("Given only stored entities", t, func() {
		s := testStore(t, Config{})

		So(s.CreateEntities(ctx, []bson.M{
			{"name": "alice", "type": "person", "description": "a colleague"},
			{"name": "bob", "type": "person"},
			{"name": "acme", "type": "company"},
		}).Ok(), ShouldBeTrue)

		Convey("The structure is derived from the entity fields", func() {
			res := s.Structure(ctx)

			So(res.Ok(), ShouldBeTrue)
			So(res["derived"], ShouldBeTrue)

			structure, _ := asMap(res["structure"])

			Convey("with the distinct values per field", func() {
				So(structure["type"], ShouldHaveLength, 2)
			})

			Convey("without identity, prose or date fields", func() {
				So(structure, ShouldNotContainKey, "name")
				So(structure, ShouldNotContainKey, "description")
				So(structure, ShouldNotContainKey, "created_at")
				So(structure, ShouldNotContainKey, "updated_at")
			})
		})
	})

	Convey("Given an empty store", t, func() {
		s := testStore(t, Config{})

		Convey("The derived structure is empty but still a success", func() {
			res := s.Structure(ctx)

			So(res.Ok(), ShouldBeTrue)
			So(res["structure"], ShouldBeEmpty)
		})
	})
}
