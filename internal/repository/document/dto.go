package document

import (
	"encoding/json"
	"fmt"

	"github.com/kailas-cloud/vecstore/internal/db"
	domcol "github.com/kailas-cloud/vecstore/internal/domain/collection"
)

func encodeItems(col domcol.Config, items []Item) ([]db.JSONSetItem, error) {
	batch := make([]db.JSONSetItem, len(items))
	for i, it := range items {
		if it.ID == "" {
			return nil, fmt.Errorf("document %d: id is required", i)
		}
		data, err := json.Marshal(it.Record)
		if err != nil {
			return nil, fmt.Errorf("marshal document %s: %w", it.ID, err)
		}
		batch[i] = db.JSONSetItem{Key: col.DocKey(it.ID), Data: data}
	}
	return batch, nil
}

// DecodeRecord parses a stored JSON document into a native record.
func DecodeRecord(data []byte) (map[string]any, error) {
	var rec map[string]any
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	if rec == nil {
		return nil, fmt.Errorf("unmarshal document: not a JSON object")
	}
	return rec, nil
}
