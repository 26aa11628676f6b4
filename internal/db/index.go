package db

import (
	"errors"
	"strconv"
	"strings"
)

// DistanceMetric used by the vector field of an index.
type DistanceMetric string

const (
	// DistanceCosine is cosine distance, the only metric the store creates.
	DistanceCosine DistanceMetric = "COSINE"
	// DistanceL2 is Euclidean distance.
	DistanceL2 DistanceMetric = "L2"
	// DistanceIP is inner product distance.
	DistanceIP DistanceMetric = "IP"
)

// VectorAlgorithm selects the ANN structure for a vector field.
type VectorAlgorithm string

const (
	// VectorHNSW uses the HNSW graph.
	VectorHNSW VectorAlgorithm = "HNSW"
	// VectorFlat uses brute force.
	VectorFlat VectorAlgorithm = "FLAT"
)

// IndexFieldType enumerates index field types.
type IndexFieldType int

const (
	// IndexFieldTag is an exact-match field.
	IndexFieldTag IndexFieldType = iota
	// IndexFieldNumeric is a range-queryable field.
	IndexFieldNumeric
	// IndexFieldVector is the ANN field.
	IndexFieldVector
)

func (t IndexFieldType) String() string {
	switch t {
	case IndexFieldTag:
		return "TAG"
	case IndexFieldNumeric:
		return "NUMERIC"
	case IndexFieldVector:
		return "VECTOR"
	}
	return "UNKNOWN(" + strconv.Itoa(int(t)) + ")"
}

// IndexField is one field of an index over JSON documents. Path is a JSONPath
// into the stored document, Name the attribute queries refer to.
type IndexField struct {
	Path string
	Name string
	Type IndexFieldType

	// VECTOR options
	VectorAlgo        VectorAlgorithm
	VectorDim         int
	VectorDistance    DistanceMetric
	VectorM           int
	VectorEFConstruct int
}

// IndexDefinition is a complete index definition over JSON documents sharing
// a key prefix.
type IndexDefinition struct {
	Name     string
	Prefixes []string
	Fields   []IndexField
}

// VectorField returns the vector field, if any.
func (idx *IndexDefinition) VectorField() (IndexField, bool) {
	for _, f := range idx.Fields {
		if f.Type == IndexFieldVector {
			return f, true
		}
	}
	return IndexField{}, false
}

// Validate checks that the index definition is well-formed.
func (idx *IndexDefinition) Validate() error {
	if idx.Name == "" {
		return errors.New("index name is required")
	}
	if !IsValidIdentifier(idx.Name) {
		return errors.New("index name contains invalid characters")
	}
	if len(idx.Fields) == 0 {
		return errors.New("at least one field is required")
	}

	seen := make(map[string]bool)
	vectors := 0
	for i := range idx.Fields {
		f := &idx.Fields[i]
		if f.Name == "" {
			return errors.New("field name is required at index " + strconv.Itoa(i))
		}
		if !strings.HasPrefix(f.Path, "$.") {
			return errors.New("field " + f.Name + ": path must start with $.")
		}
		if seen[f.Name] {
			return errors.New("duplicate field name: " + f.Name)
		}
		seen[f.Name] = true

		if f.Type == IndexFieldVector {
			vectors++
			if f.VectorDim <= 0 {
				return errors.New("vector field requires positive DIM")
			}
		}
	}
	if vectors != 1 {
		return errors.New("exactly one vector field is required, got " + strconv.Itoa(vectors))
	}

	return nil
}

// IsValidIdentifier returns true if s matches [a-zA-Z0-9_:-]+.
func IsValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		isAlpha := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		isDigit := r >= '0' && r <= '9'
		isSpecial := r == '_' || r == ':' || r == '-'
		if !isAlpha && !isDigit && !isSpecial {
			return false
		}
	}
	return true
}
