package vecstore

import (
	"context"
	"fmt"
)

// Document is the canonical view of a stored record. It is also an entity
// type in its own right, backing the fixed-schema store.
type Document struct {
	ID        string         `vecstore:"_id,id" json:"id"`
	Content   string         `vecstore:"content,content" json:"content"`
	Metadata  map[string]any `vecstore:"metadata,metadata" json:"metadata,omitempty"`
	Embedding []float32      `vecstore:"embedding,embedding" json:"embedding,omitempty"`
}

// Record is the native JSON shape persisted by the backend.
type Record map[string]any

// ToNative maps a document onto the native record of model. Metadata keys become
// top-level attributes; the embedding, content and (non-empty) id are written last
// and win over metadata keys with the same name.
func ToNative(doc Document, model *EntityModel) Record {
	rec := make(Record, len(doc.Metadata)+3)
	for k, v := range doc.Metadata {
		rec[k] = v
	}
	embedding := doc.Embedding
	if embedding == nil {
		embedding = []float32{}
	}
	rec[model.EmbeddingField()] = embedding
	rec[model.ContentField()] = doc.Content
	if doc.ID != "" {
		rec[model.IDField()] = doc.ID
	}
	return rec
}

// FromNative maps a native record back to a document. Metadata holds the
// declared metadata attributes and, with a catch-all map, every other
// non-reserved attribute. The embedding is always the override: search
// replies carry a score, not the stored vector.
func FromNative(rec Record, model *EntityModel, override []float32) Document {
	doc := Document{
		ID:        stringAttr(rec[model.IDField()]),
		Content:   stringAttr(rec[model.ContentField()]),
		Metadata:  make(map[string]any, len(model.metadata)),
		Embedding: override,
	}
	for _, f := range model.metadata {
		if v, ok := rec[f.name]; ok {
			doc.Metadata[f.name] = v
		}
	}
	if model.HasCatchAll() {
		for k, v := range rec {
			if model.reserved(k) {
				continue
			}
			if _, declared := model.byName[k]; declared {
				continue
			}
			doc.Metadata[k] = v
		}
	}
	return doc
}

func stringAttr(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(s)
	}
}

// NewDocumentStore opens the fixed-schema store over Document.
func NewDocumentStore(ctx context.Context, c *Client, opts ...StoreOption) (*Store[Document], error) {
	return NewStore[Document](ctx, c, opts...)
}
