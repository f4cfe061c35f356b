package memory

import (
	"context"
	"testing"

	"go.mongodb.org/mongo-driver/bson"

	. "github.com/smartystreets/goconvey/convey"
)

func TestEnsureSchema(t *testing.T) {
	ctx := context.Background()

	Convey("Given a fresh backend", t, func() {
		backend := NewInMemoryBackend()
		s := NewWithBackend(backend, Config{})

		So(s.EnsureSchema(ctx), ShouldBeNil)

		entities := backend.Collection("agent_memory", "entities")

		Convey("The unique name index exists", func() {
			specs, err := entities.ListIndexes(ctx)

			So(err, ShouldBeNil)

			found := false

			for _, spec := range specs {
				if spec.Unique && spec.HasKey("name") && spec.Name != "_id_" {
					found = true
				}
			}

			So(found, ShouldBeTrue)
		})

		Convey("The name validator is applied", func() {
			validator, err := entities.Validator(ctx)

			So(err, ShouldBeNil)
			So(validator, ShouldNotBeEmpty)

			Convey("and blocks documents without a name", func() {
				_, err := entities.InsertOne(ctx, bson.M{"type": "person"})

				So(err, ShouldNotBeNil)
			})
		})

		Convey("Rerunning the bootstrap changes nothing", func() {
			before, _ := entities.ListIndexes(ctx)

			So(s.EnsureSchema(ctx), ShouldBeNil)

			after, _ := entities.ListIndexes(ctx)

			So(after, ShouldHaveLength, len(before))
		})
	})

	Convey("Given a store that has written a relationship", t, func() {
		backend := NewInMemoryBackend()
		s := NewWithBackend(backend, Config{})

		So(s.EnsureSchema(ctx), ShouldBeNil)
		So(s.CreateEntities(ctx, []bson.M{{"name": "a"}, {"name": "b"}}).Ok(), ShouldBeTrue)
		So(s.CreateRelationship(ctx, "a", "b", "knows", nil).Ok(), ShouldBeTrue)

		Convey("The relationship indexes are in place", func() {
			specs, err := backend.Collection("agent_memory", "relationships").ListIndexes(ctx)

			So(err, ShouldBeNil)
			So(hasIndex(specs, []string{"from_entity"}, false), ShouldBeTrue)
			So(hasIndex(specs, []string{"to_entity"}, false), ShouldBeTrue)
			So(hasIndex(specs, []string{"type"}, false), ShouldBeTrue)
			So(hasIndex(specs, []string{"from_entity", "to_entity", "type"}, true), ShouldBeTrue)
		})
	})
}
