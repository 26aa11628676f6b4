package chi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	gochi "github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vecstore"
	"github.com/kailas-cloud/vecstore/filter"
	"github.com/kailas-cloud/vecstore/internal/metrics"
	healthuc "github.com/kailas-cloud/vecstore/internal/usecase/health"
)

// DefaultMaxBatchSize bounds the documents accepted per write request.
const DefaultMaxBatchSize = 100

// DocumentStore is the store surface the API serves.
type DocumentStore interface {
	Add(ctx context.Context, docs []vecstore.Document) error
	Update(ctx context.Context, docs []vecstore.Document) error
	Delete(ctx context.Context, ids []string) (bool, error)
	Get(ctx context.Context, id string) (vecstore.Document, error)
	Search(ctx context.Context, req vecstore.SearchRequest) ([]vecstore.Hit[vecstore.Document], error)
}

// HealthChecker aggregates component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// Server is the HTTP API over a document store.
type Server struct {
	store         DocumentStore
	health        HealthChecker
	logger        *zap.Logger
	maxBatchSize  int
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. maxBatchSize <= 0 means DefaultMaxBatchSize.
func NewServer(store DocumentStore, health HealthChecker, maxBatchSize int, logger *zap.Logger) *Server {
	if maxBatchSize <= 0 {
		maxBatchSize = DefaultMaxBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		store:         store,
		health:        health,
		logger:        logger,
		maxBatchSize:  maxBatchSize,
		errorHandlers: defaultErrorHandlers(),
	}
}

// Register mounts the API routes on r.
func (s *Server) Register(r gochi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", metrics.Handler().ServeHTTP)

	r.Route("/v1", func(r gochi.Router) {
		r.Post("/documents", s.AddDocuments)
		r.Put("/documents", s.UpdateDocuments)
		r.Delete("/documents", s.DeleteDocuments)
		r.Get("/documents/{id}", s.GetDocument)
		r.Post("/search", s.Search)
		r.Get("/search", s.SearchQuery)
	})
}

// AddDocuments handles POST /v1/documents.
func (s *Server) AddDocuments(w http.ResponseWriter, r *http.Request) {
	docs, ok := s.decodeDocuments(w, r)
	if !ok {
		return
	}
	if err := s.store.Add(r.Context(), docs); err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, documentsResponse(docs))
}

// UpdateDocuments handles PUT /v1/documents. Every document needs an id.
func (s *Server) UpdateDocuments(w http.ResponseWriter, r *http.Request) {
	docs, ok := s.decodeDocuments(w, r)
	if !ok {
		return
	}
	if err := s.store.Update(r.Context(), docs); err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, documentsResponse(docs))
}

// DeleteDocuments handles DELETE /v1/documents.
func (s *Server) DeleteDocuments(w http.ResponseWriter, r *http.Request) {
	var req DeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(req.IDs) > s.maxBatchSize {
		writeError(w, http.StatusBadRequest, CodeValidationFailed,
			fmt.Sprintf("at most %d ids per request", s.maxBatchSize))
		return
	}

	deleted, err := s.store.Delete(r.Context(), req.IDs)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DeleteResponse{Deleted: deleted})
}

// GetDocument handles GET /v1/documents/{id}.
func (s *Server) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.store.Get(r.Context(), gochi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, documentToResponse(doc, true))
}

// Search handles POST /v1/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	s.search(w, r, req)
}

// SearchQuery handles GET /v1/search?q=...&top_k=...&threshold=...&filter=<json>.
func (s *Server) SearchQuery(w http.ResponseWriter, r *http.Request) {
	var (
		req        SearchRequest
		filterJSON string
	)
	q := r.URL.Query()
	binds := []struct {
		name     string
		required bool
		dest     any
	}{
		{"q", true, &req.Query},
		{"top_k", false, &req.TopK},
		{"threshold", false, &req.Threshold},
		{"filter", false, &filterJSON},
		{"with_embedding", false, &req.WithEmbedding},
	}
	for _, b := range binds {
		if err := runtime.BindQueryParameter("form", true, b.required, b.name, q, b.dest); err != nil {
			writeError(w, http.StatusBadRequest, CodeBadRequest,
				fmt.Sprintf("Invalid query parameter %s: %v", b.name, err))
			return
		}
	}
	req.Filter = json.RawMessage(filterJSON)
	s.search(w, r, req)
}

func (s *Server) search(w http.ResponseWriter, r *http.Request, req SearchRequest) {
	expr, err := filter.ParseJSON(req.Filter)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	hits, err := s.store.Search(r.Context(), vecstore.SearchRequest{
		Query:     req.Query,
		TopK:      req.TopK,
		Threshold: req.Threshold,
		Filter:    expr,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]SearchHit, len(hits))
	for i, h := range hits {
		items[i] = SearchHit{
			DocumentResponse: documentToResponse(h.Item, req.WithEmbedding),
			Score:            h.Score,
		}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Items: items, Total: len(items)})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, HealthResponse{Status: string(report.Status), Checks: checks})
}

func (s *Server) decodeDocuments(w http.ResponseWriter, r *http.Request) ([]vecstore.Document, bool) {
	var req DocumentsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return nil, false
	}
	if len(req.Documents) == 0 {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "documents must not be empty")
		return nil, false
	}
	if len(req.Documents) > s.maxBatchSize {
		writeError(w, http.StatusBadRequest, CodeValidationFailed,
			fmt.Sprintf("at most %d documents per request", s.maxBatchSize))
		return nil, false
	}
	return documentsFromInput(req.Documents), true
}

func documentsResponse(docs []vecstore.Document) DocumentsResponse {
	out := make([]DocumentResponse, len(docs))
	for i, d := range docs {
		out[i] = documentToResponse(d, false)
	}
	return DocumentsResponse{Documents: out}
}

var _ DocumentStore = (*vecstore.Store[vecstore.Document])(nil)
