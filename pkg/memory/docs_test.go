package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestAsMap(t *testing.T) {
	for name, value := range map[string]any{
		"bson.M":            bson.M{"a": 1},
		"map[string]any":    map[string]any{"a": 1},
		"map[string]string": map[string]string{"a": "1"},
		"bson.D":            bson.D{{Key: "a", Value: 1}},
	} {
		t.Run(name, func(t *testing.T) {
			m, ok := asMap(value)
			require.True(t, ok)
			assert.Contains(t, m, "a")
		})
	}

	t.Run("non-maps", func(t *testing.T) {
		for _, value := range []any{nil, 42, "text", []any{1}} {
			_, ok := asMap(value)
			assert.False(t, ok)
		}
	})
}

func TestCopyDoc(t *testing.T) {
	original := bson.M{
		"name":   "alice",
		"nested": bson.M{"k": "v"},
		"list":   []any{1, 2},
	}

	copied := copyDoc(original)
	copied["name"] = "bob"
	copied["nested"].(bson.M)["k"] = "changed"

	assert.Equal(t, "alice", original["name"])
	assert.Equal(t, "v", original["nested"].(bson.M)["k"])
}

func TestEqualValues(t *testing.T) {
	t.Run("maps match all-or-nothing across representations", func(t *testing.T) {
		stored := bson.M{"position": "developer"}
		filter := bson.D{{Key: "position", Value: "developer"}}

		assert.True(t, equalValues(stored, filter))
		assert.False(t, equalValues(stored, bson.D{}))
		assert.False(t, equalValues(stored, bson.D{
			{Key: "position", Value: "developer"},
			{Key: "department", Value: "RnD"},
		}))
	})

	t.Run("empty documents are equal", func(t *testing.T) {
		assert.True(t, equalValues(bson.M{}, bson.D{}))
	})

	t.Run("numeric types compare by value", func(t *testing.T) {
		assert.True(t, equalValues(int64(5), float64(5)))
	})
}

func TestPropertyDoc(t *testing.T) {
	doc := propertyDoc(map[string]string{"b": "2", "a": "1", "c": "3"})

	require.Len(t, doc, 3)
	assert.Equal(t, "a", doc[0].Key)
	assert.Equal(t, "b", doc[1].Key)
	assert.Equal(t, "c", doc[2].Key)
}
