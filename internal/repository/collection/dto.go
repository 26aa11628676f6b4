package collection

import (
	"encoding/json"
	"fmt"

	domcol "github.com/kailas-cloud/vecstore/internal/domain/collection"
)

// fieldRow is the JSON-serializable representation of a filterable field.
type fieldRow struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// configRow is the registry entry stored under the "config" hash field.
type configRow struct {
	Name           string     `json:"name"`
	Index          string     `json:"index"`
	EmbeddingField string     `json:"embedding_field"`
	Dimensions     int        `json:"dimensions"`
	Similarity     string     `json:"similarity"`
	Fields         []fieldRow `json:"fields"`
}

func configToJSON(col domcol.Config) (string, error) {
	row := configRow{
		Name:           col.Name(),
		Index:          col.IndexName(),
		EmbeddingField: col.EmbeddingField(),
		Dimensions:     col.Dimensions(),
		Similarity:     "cosine",
		Fields:         make([]fieldRow, len(col.Filterable())),
	}
	for i, f := range col.Filterable() {
		row.Fields[i] = fieldRow{Name: f.Name, Type: f.Kind.String()}
	}
	data, err := json.Marshal(row)
	if err != nil {
		return "", fmt.Errorf("marshal collection config: %w", err)
	}
	return string(data), nil
}
