package mongodb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestFromBSON_ConvertsToJSONPrimitives(t *testing.T) {
	doc, err := fromBSON(bson.M{
		"_id":    "0190-abc",
		"number": "MZ-2026-00001",
		"weight": int32(40),
		"rows":   primitive.A{bson.M{"sourceId": "b1"}},
		"meta":   primitive.M{"flag": true},
	})
	require.NoError(t, err)

	assert.Equal(t, "0190-abc", doc.ID())
	assert.NotContains(t, doc, "_id")
	assert.Equal(t, float64(40), doc["weight"])
	rows, ok := doc["rows"].([]any)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"sourceId": "b1"}, rows[0])
	assert.Equal(t, map[string]any{"flag": true}, doc["meta"])
}
