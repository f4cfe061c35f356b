package memory

import (
	"context"
	"fmt"
	"testing"

	"go.mongodb.org/mongo-driver/bson"

	. "github.com/smartystreets/goconvey/convey"
)

func TestCreateRelationship(t *testing.T) {
	ctx := context.Background()

	Convey("Given a store with two entities", t, func() {
		s := testStore(t, Config{})

		So(s.CreateEntities(ctx, []bson.M{{"name": "alice"}, {"name": "acme"}}).Ok(), ShouldBeTrue)

		Convey("A bare-type relationship is created", func() {
			res := s.CreateRelationship(ctx, "alice", "acme", "works_at", nil)

			So(res.Ok(), ShouldBeTrue)
			So(res["acknowledged"], ShouldBeTrue)
			So(res["inserted_id"], ShouldNotBeEmpty)
		})

		Convey("Descriptor properties are stored on the relationship", func() {
			So(s.CreateRelationship(ctx, "alice", "acme", "works_at:position=developer", nil).Ok(), ShouldBeTrue)

			rels := s.GetRelationships(ctx, bson.M{"type": "works_at"}, 10)

			So(rels["total_count"], ShouldEqual, 1)

			rel := rels["relationships"].([]bson.M)[0]
			props, _ := asMap(rel["properties"])

			So(props["position"], ShouldEqual, "developer")
		})

		Convey("Descriptor properties win over the properties argument", func() {
			res := s.CreateRelationship(ctx, "alice", "acme", "works_at:position=developer", map[string]string{
				"position":   "manager",
				"department": "RnD",
			})

			So(res.Ok(), ShouldBeTrue)

			rel := s.GetRelationships(ctx, nil, 10)["relationships"].([]bson.M)[0]
			props, _ := asMap(rel["properties"])

			So(props["position"], ShouldEqual, "developer")
			So(props["department"], ShouldEqual, "RnD")
		})

		Convey("Empty entity names are rejected", func() {
			res := s.CreateRelationship(ctx, "", "acme", "knows", nil)

			So(res.Ok(), ShouldBeFalse)
			So(res["error"], ShouldEqual, "validation_error")
		})

		Convey("A malformed descriptor is a format error", func() {
			res := s.CreateRelationship(ctx, "alice", "acme", "works_at:position", nil)

			So(res.Ok(), ShouldBeFalse)
			So(res["error"], ShouldEqual, "format_error")
		})

		Convey("A missing endpoint is a missing reference", func() {
			res := s.CreateRelationship(ctx, "alice", "ghost", "knows", nil)

			So(res.Ok(), ShouldBeFalse)
			So(res["error"], ShouldEqual, "missing_reference")
			So(res["details"], ShouldNotBeEmpty)
		})

		Convey("A duplicate triple is rejected by the unique index", func() {
			So(s.CreateRelationship(ctx, "alice", "acme", "works_at", nil).Ok(), ShouldBeTrue)

			res := s.CreateRelationship(ctx, "alice", "acme", "works_at", nil)

			So(res.Ok(), ShouldBeFalse)
			So(res["error"], ShouldEqual, "duplicate_key")
		})

		Convey("The same type in the other direction is fine", func() {
			So(s.CreateRelationship(ctx, "alice", "acme", "works_at", nil).Ok(), ShouldBeTrue)
			So(s.CreateRelationship(ctx, "acme", "alice", "works_at", nil).Ok(), ShouldBeTrue)
		})
	})
}

func TestGetRelationships(t *testing.T) {
	ctx := context.Background()

	Convey("Given a store with fifteen relationships", t, func() {
		s := testStore(t, Config{})

		entities := []bson.M{{"name": "hub"}}

		for i := 0; i < 15; i++ {
			entities = append(entities, bson.M{"name": fmt.Sprintf("node-%02d", i)})
		}

		So(s.CreateEntities(ctx, entities).Ok(), ShouldBeTrue)

		for i := 0; i < 15; i++ {
			So(s.CreateRelationship(ctx, "hub", fmt.Sprintf("node-%02d", i), "links_to", nil).Ok(), ShouldBeTrue)
		}

		Convey("A page of five reports the full total", func() {
			res := s.GetRelationships(ctx, nil, 5)

			So(res.Ok(), ShouldBeTrue)
			So(res["total_count"], ShouldEqual, 15)
			So(res["relationships"], ShouldHaveLength, 5)

			page := res["page_info"].(map[string]any)

			So(page["has_next"], ShouldBeTrue)
			So(page["next_cursor"], ShouldNotBeEmpty)
		})

		Convey("A page covering everything has no next cursor", func() {
			res := s.GetRelationships(ctx, nil, 20)

			So(res.Ok(), ShouldBeTrue)
			So(res["relationships"], ShouldHaveLength, 15)

			page := res["page_info"].(map[string]any)

			So(page["has_next"], ShouldBeFalse)
		})

		Convey("A filter narrows the total as well", func() {
			res := s.GetRelationships(ctx, bson.M{"to_entity": "node-03"}, 5)

			So(res.Ok(), ShouldBeTrue)
			So(res["total_count"], ShouldEqual, 1)
		})

		Convey("A limit of zero is rejected", func() {
			res := s.GetRelationships(ctx, nil, 0)

			So(res.Ok(), ShouldBeFalse)
			So(res["error"], ShouldEqual, "validation_error")
		})

		Convey("A limit beyond one hundred is rejected", func() {
			res := s.GetRelationships(ctx, nil, 101)

			So(res.Ok(), ShouldBeFalse)
			So(res["error"], ShouldEqual, "validation_error")
		})
	})
}

func TestDeleteRelationship(t *testing.T) {
	ctx := context.Background()

	Convey("Given a store with one propertied relationship", t, func() {
		s := testStore(t, Config{})

		So(s.CreateEntities(ctx, []bson.M{{"name": "alice"}, {"name": "acme"}}).Ok(), ShouldBeTrue)
		So(s.CreateRelationship(ctx, "alice", "acme", "works_at:position=developer", nil).Ok(), ShouldBeTrue)

		Convey("A bare-type descriptor does not match it", func() {
			res := s.DeleteRelationship(ctx, "alice", "acme", "works_at")

			So(res.Ok(), ShouldBeTrue)
			So(res["deleted_count"], ShouldEqual, 0)
			So(s.GetRelationships(ctx, nil, 10)["total_count"], ShouldEqual, 1)
		})

		Convey("A partial property set does not match it", func() {
			So(s.DeleteRelationship(ctx, "alice", "acme", "works_at:department=RnD")["deleted_count"], ShouldEqual, 0)
		})

		Convey("The exact property set matches it", func() {
			res := s.DeleteRelationship(ctx, "alice", "acme", "works_at:position=developer")

			So(res.Ok(), ShouldBeTrue)
			So(res["deleted_count"], ShouldEqual, 1)
			So(s.GetRelationships(ctx, nil, 10)["total_count"], ShouldEqual, 0)
		})

		Convey("A malformed descriptor is a format error", func() {
			res := s.DeleteRelationship(ctx, "alice", "acme", "works_at:position")

			So(res.Ok(), ShouldBeFalse)
			So(res["error"], ShouldEqual, "format_error")
		})

		Convey("A missing endpoint is a missing reference", func() {
			res := s.DeleteRelationship(ctx, "alice", "ghost", "works_at")

			So(res.Ok(), ShouldBeFalse)
			So(res["error"], ShouldEqual, "missing_reference")
		})
	})

	Convey("Given a property-less relationship", t, func() {
		s := testStore(t, Config{})

		So(s.CreateEntities(ctx, []bson.M{{"name": "a"}, {"name": "b"}}).Ok(), ShouldBeTrue)
		So(s.CreateRelationship(ctx, "a", "b", "imports", nil).Ok(), ShouldBeTrue)

		Convey("The bare-type descriptor matches it", func() {
			res := s.DeleteRelationship(ctx, "a", "b", "imports")

			So(res.Ok(), ShouldBeTrue)
			So(res["deleted_count"], ShouldEqual, 1)
		})
	})
}
