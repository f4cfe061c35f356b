package memory

import (
	"fmt"
	"reflect"
	"sort"

	"go.mongodb.org/mongo-driver/bson"
)

// Helpers for working with the loosely typed documents that cross the store
// boundary: callers hand in bson.M, map[string]any, map[string]string or
// bson.D interchangeably depending on how the transport decoded them.

// asMap views a value as a string-keyed map when its dynamic type allows it.
func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case bson.M:
		return m, true
	case map[string]any:
		return m, true
	case map[string]string:
		out := make(map[string]any, len(m))

		for k, s := range m {
			out[k] = s
		}

		return out, true
	case bson.D:
		out := make(map[string]any, len(m))

		for _, e := range m {
			out[e.Key] = e.Value
		}

		return out, true
	}

	return nil, false
}

// copyDoc deep-copies a document so stored state never aliases caller state.
func copyDoc(doc bson.M) bson.M {
	out := make(bson.M, len(doc))

	for k, v := range doc {
		out[k] = copyValue(v)
	}

	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case bson.M:
		return copyDoc(t)
	case map[string]any:
		return copyDoc(bson.M(t))
	case map[string]string:
		out := make(map[string]string, len(t))

		for k, s := range t {
			out[k] = s
		}

		return out
	case bson.D:
		out := make(bson.M, len(t))

		for _, e := range t {
			out[e.Key] = copyValue(e.Value)
		}

		return out
	case []any:
		out := make([]any, len(t))

		for i, e := range t {
			out[i] = copyValue(e)
		}

		return out
	case []bson.M:
		out := make([]any, len(t))

		for i, e := range t {
			out[i] = copyDoc(e)
		}

		return out
	default:
		return v
	}
}

// equalValues compares two document values the way an equality filter does:
// maps match all-or-nothing on their whole contents, scalars match on value
// regardless of the numeric type the decoder picked.
func equalValues(a, b any) bool {
	if reflect.DeepEqual(a, b) {
		return true
	}

	am, aok := asMap(a)
	bm, bok := asMap(b)

	if aok && bok {
		if len(am) != len(bm) {
			return false
		}

		for k, av := range am {
			bv, ok := bm[k]

			if !ok || !equalValues(av, bv) {
				return false
			}
		}

		return true
	}

	if aok != bok {
		return false
	}

	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

// propertyDoc renders a property map as a key-sorted document so stored
// properties and equality filters marshal identically no matter the map
// iteration order.
func propertyDoc(props map[string]string) bson.D {
	keys := make([]string, 0, len(props))

	for k := range props {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	doc := make(bson.D, 0, len(keys))

	for _, k := range keys {
		doc = append(doc, bson.E{Key: k, Value: props[k]})
	}

	return doc
}

func toStringList(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))

		for _, e := range list {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}

		return out
	}

	return nil
}
