package chi

import (
	"encoding/json"

	"github.com/kailas-cloud/vecstore"
)

// ErrorCode is the machine-readable error kind in ErrorResponse.
type ErrorCode string

// Error codes.
const (
	CodeBadRequest        ErrorCode = "bad_request"
	CodeUnauthorized      ErrorCode = "unauthorized"
	CodeValidationFailed  ErrorCode = "validation_failed"
	CodeUnsupportedFilter ErrorCode = "unsupported_filter"
	CodeDocumentExists    ErrorCode = "document_already_exists"
	CodeDocumentNotFound  ErrorCode = "document_not_found"
	CodeDimensionMismatch ErrorCode = "vector_dim_mismatch"
	CodeInputTooLarge     ErrorCode = "input_too_large"
	CodeEmbeddingProvider ErrorCode = "embedding_provider_error"
	CodeSchemaNotReady    ErrorCode = "schema_not_ready"
	CodeInternal          ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Field   string    `json:"field,omitempty"`
	Allowed []string  `json:"allowed,omitempty"`
}

// DocumentInput is one document in an add or update request.
type DocumentInput struct {
	ID       string         `json:"id,omitempty"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// DocumentsRequest is the body of POST and PUT /v1/documents.
type DocumentsRequest struct {
	Documents []DocumentInput `json:"documents"`
}

// DocumentResponse is a stored document.
type DocumentResponse struct {
	ID        string         `json:"id"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Embedding []float32      `json:"embedding,omitempty"`
}

// DocumentsResponse lists the documents written by a request.
type DocumentsResponse struct {
	Documents []DocumentResponse `json:"documents"`
}

// DeleteRequest is the body of DELETE /v1/documents.
type DeleteRequest struct {
	IDs []string `json:"ids"`
}

// DeleteResponse reports whether every id was removed.
type DeleteResponse struct {
	Deleted bool `json:"deleted"`
}

// SearchRequest is the body of POST /v1/search.
type SearchRequest struct {
	Query         string          `json:"query"`
	TopK          int             `json:"top_k,omitempty"`
	Threshold     float64         `json:"threshold,omitempty"`
	Filter        json.RawMessage `json:"filter,omitempty"`
	WithEmbedding bool            `json:"with_embedding,omitempty"`
}

// SearchHit is one ranked result.
type SearchHit struct {
	DocumentResponse
	Score float64 `json:"score"`
}

// SearchResponse lists the hits in rank order.
type SearchResponse struct {
	Items []SearchHit `json:"items"`
	Total int         `json:"total"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func documentsFromInput(in []DocumentInput) []vecstore.Document {
	docs := make([]vecstore.Document, len(in))
	for i, d := range in {
		docs[i] = vecstore.Document{ID: d.ID, Content: d.Content, Metadata: d.Metadata}
	}
	return docs
}

func documentToResponse(d vecstore.Document, withEmbedding bool) DocumentResponse {
	resp := DocumentResponse{ID: d.ID, Content: d.Content, Metadata: d.Metadata}
	if withEmbedding {
		resp.Embedding = d.Embedding
	}
	return resp
}
