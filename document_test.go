package vecstore

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToNative(t *testing.T) {
	m, err := Describe[article]()
	require.NoError(t, err)

	rec := ToNative(Document{
		ID: "a1", Content: "hello", Embedding: []float32{1},
		Metadata: map[string]any{"country": "BG", "body": "overridden"},
	}, m)

	assert.Equal(t, Record{
		"_id": "a1", "body": "hello", "vec": []float32{1}, "country": "BG",
	}, rec)
}

func TestToNative_NoID(t *testing.T) {
	m, err := Describe[article]()
	require.NoError(t, err)

	rec := ToNative(Document{Content: "hello"}, m)
	_, hasID := rec["_id"]
	assert.False(t, hasID, "empty id is left for the store to assign")
	assert.Equal(t, []float32{}, rec["vec"])
}

func TestFromNative_OverrideEmbedding(t *testing.T) {
	m, err := Describe[article]()
	require.NoError(t, err)

	rec := Record{"_id": "a1", "body": "hello", "vec": []any{1.0, 2.0}, "country": "BG", "stray": 1.0}
	doc := FromNative(rec, m, []float32{9})

	assert.Equal(t, Document{
		ID: "a1", Content: "hello", Embedding: []float32{9},
		Metadata: map[string]any{"country": "BG"},
	}, doc)
}

func TestFromNative_DefaultIDAndCatchAll(t *testing.T) {
	m, err := Describe[Document]()
	require.NoError(t, err)

	rec := Record{"_id": "d3", "content": "Great Depression", "embedding": []any{0.1}, "meta2": "meta2"}
	doc := FromNative(rec, m, nil)

	assert.Equal(t, "d3", doc.ID)
	assert.Equal(t, "Great Depression", doc.Content)
	assert.Equal(t, map[string]any{"meta2": "meta2"}, doc.Metadata)
	assert.Nil(t, doc.Embedding)
}

func TestRoundTrip_ThroughJSON(t *testing.T) {
	for _, name := range []string{"document", "article"} {
		t.Run(name, func(t *testing.T) {
			var (
				m   *EntityModel
				err error
				doc Document
			)
			if name == "document" {
				m, err = Describe[Document]()
				doc = Document{ID: "x", Content: "c", Embedding: []float32{0.25, 0.5},
					Metadata: map[string]any{"country": "BG", "year": 2020.0, "flag": true}}
			} else {
				m, err = Describe[article]()
				doc = Document{ID: "x", Content: "c", Embedding: []float32{0.25, 0.5},
					Metadata: map[string]any{"country": "BG", "year": 2020.0, "Rating": 1.5}}
			}
			require.NoError(t, err)

			data, err := json.Marshal(ToNative(doc, m))
			require.NoError(t, err)
			var rec Record
			require.NoError(t, json.Unmarshal(data, &rec))

			got := FromNative(rec, m, doc.Embedding)
			assert.Equal(t, doc, got)
		})
	}
}
