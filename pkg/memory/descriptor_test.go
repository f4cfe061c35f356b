package memory

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestParseDescriptor(t *testing.T) {
	Convey("Given the relationship descriptor mini-language", t, func() {
		Convey("When parsing a bare type", func() {
			desc, err := ParseDescriptor("knows")

			So(err, ShouldBeNil)
			So(desc.Type, ShouldEqual, "knows")
			So(desc.Properties, ShouldBeEmpty)
		})

		Convey("When parsing a type with a trailing colon", func() {
			desc, err := ParseDescriptor("knows:")

			So(err, ShouldBeNil)
			So(desc.Type, ShouldEqual, "knows")
			So(desc.Properties, ShouldBeEmpty)
		})

		Convey("When parsing a type with properties", func() {
			desc, err := ParseDescriptor("works_at:position=developer,department=RnD")

			So(err, ShouldBeNil)
			So(desc.Type, ShouldEqual, "works_at")
			So(desc.Properties, ShouldResemble, map[string]string{
				"position":   "developer",
				"department": "RnD",
			})
		})

		Convey("When values contain colons", func() {
			// Only the first colon separates type from properties.
			desc, err := ParseDescriptor("link:url=http://example.com")

			So(err, ShouldBeNil)
			So(desc.Type, ShouldEqual, "link")
			So(desc.Properties["url"], ShouldEqual, "http://example.com")
		})

		Convey("When values contain equals signs", func() {
			desc, err := ParseDescriptor("calc:formula=a=b")

			So(err, ShouldBeNil)
			So(desc.Properties["formula"], ShouldEqual, "a=b")
		})

		Convey("When keys and values carry whitespace", func() {
			desc, err := ParseDescriptor(" works_at : position = developer ")

			So(err, ShouldBeNil)
			So(desc.Type, ShouldEqual, "works_at")
			So(desc.Properties["position"], ShouldEqual, "developer")
		})

		Convey("When the type is missing", func() {
			_, err := ParseDescriptor(":position=developer")

			So(err, ShouldNotBeNil)
			So(err.Kind, ShouldEqual, KindFormat)
		})

		Convey("When the descriptor is empty", func() {
			_, err := ParseDescriptor("")

			So(err, ShouldNotBeNil)
			So(err.Kind, ShouldEqual, KindFormat)
		})

		Convey("When a property segment has no equals sign", func() {
			_, err := ParseDescriptor("works_at:position")

			So(err, ShouldNotBeNil)
			So(err.Kind, ShouldEqual, KindFormat)
			So(err.Details, ShouldNotBeEmpty)
		})
	})
}

func TestDescriptorString(t *testing.T) {
	Convey("Given a parsed descriptor", t, func() {
		Convey("A bare type round-trips", func() {
			desc, err := ParseDescriptor("knows")

			So(err, ShouldBeNil)
			So(desc.String(), ShouldEqual, "knows")
		})

		Convey("Properties serialize in key order", func() {
			desc, err := ParseDescriptor("works_at:position=developer,department=RnD")

			So(err, ShouldBeNil)
			So(desc.String(), ShouldEqual, "works_at:department=RnD,position=developer")
		})
	})
}
