package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	gochi "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vecstore"
	"github.com/kailas-cloud/vecstore/filter"
	"github.com/kailas-cloud/vecstore/internal/domain"
	healthuc "github.com/kailas-cloud/vecstore/internal/usecase/health"
)

// fakeStore records calls and returns canned results.
type fakeStore struct {
	err       error
	added     []vecstore.Document
	updated   []vecstore.Document
	deleted   []string
	deleteAll bool
	doc       vecstore.Document
	hits      []vecstore.Hit[vecstore.Document]
	lastReq   vecstore.SearchRequest
}

func (f *fakeStore) Add(_ context.Context, docs []vecstore.Document) error {
	if f.err != nil {
		return f.err
	}
	for i := range docs {
		docs[i].ID = fmt.Sprintf("id-%d", i)
	}
	f.added = docs
	return nil
}

func (f *fakeStore) Update(_ context.Context, docs []vecstore.Document) error {
	f.updated = docs
	return f.err
}

func (f *fakeStore) Delete(_ context.Context, ids []string) (bool, error) {
	f.deleted = ids
	return f.deleteAll, f.err
}

func (f *fakeStore) Get(_ context.Context, _ string) (vecstore.Document, error) {
	return f.doc, f.err
}

func (f *fakeStore) Search(_ context.Context, req vecstore.SearchRequest) ([]vecstore.Hit[vecstore.Document], error) {
	f.lastReq = req
	return f.hits, f.err
}

type fakeHealth healthuc.Report

func (f fakeHealth) Check(context.Context) healthuc.Report { return healthuc.Report(f) }

func newTestRouter(store DocumentStore) http.Handler {
	r := gochi.NewRouter()
	NewServer(store, fakeHealth{Status: healthuc.Healthy}, 2, zap.NewNop()).Register(r)
	return r
}

func do(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rr.Body.String())
	}
	return v
}

func TestAddDocuments(t *testing.T) {
	store := &fakeStore{}
	rr := do(t, newTestRouter(store), http.MethodPost, "/v1/documents", DocumentsRequest{
		Documents: []DocumentInput{{Content: "hello", Metadata: map[string]any{"country": "BG"}}},
	})

	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body)
	}
	resp := decode[DocumentsResponse](t, rr)
	if len(resp.Documents) != 1 || resp.Documents[0].ID != "id-0" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if store.added[0].Metadata["country"] != "BG" {
		t.Errorf("metadata not passed: %+v", store.added[0])
	}
}

func TestAddDocuments_Validation(t *testing.T) {
	h := newTestRouter(&fakeStore{})

	tests := []struct {
		name string
		body any
	}{
		{"empty", DocumentsRequest{}},
		{"too many", DocumentsRequest{Documents: make([]DocumentInput, 3)}},
		{"not json", "oops"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, h, http.MethodPost, "/v1/documents", tt.body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rr.Code)
			}
		})
	}
}

func TestUpdateDocuments(t *testing.T) {
	store := &fakeStore{}
	rr := do(t, newTestRouter(store), http.MethodPut, "/v1/documents", DocumentsRequest{
		Documents: []DocumentInput{{ID: "a", Content: "new"}},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if store.updated[0].ID != "a" || store.updated[0].Content != "new" {
		t.Errorf("unexpected update %+v", store.updated)
	}
}

func TestDeleteDocuments(t *testing.T) {
	store := &fakeStore{deleteAll: false}
	rr := do(t, newTestRouter(store), http.MethodDelete, "/v1/documents", DeleteRequest{IDs: []string{"a", "b"}})

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if decode[DeleteResponse](t, rr).Deleted {
		t.Error("partial delete must report false")
	}
	if len(store.deleted) != 2 {
		t.Errorf("ids = %v", store.deleted)
	}
}

func TestGetDocument(t *testing.T) {
	store := &fakeStore{doc: vecstore.Document{ID: "a", Content: "x", Embedding: []float32{1}}}
	rr := do(t, newTestRouter(store), http.MethodGet, "/v1/documents/a", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if got := decode[DocumentResponse](t, rr); got.ID != "a" || len(got.Embedding) != 1 {
		t.Errorf("unexpected document %+v", got)
	}
}

func TestSearch_Post(t *testing.T) {
	store := &fakeStore{hits: []vecstore.Hit[vecstore.Document]{
		{Item: vecstore.Document{ID: "d3", Content: "Great Depression", Embedding: []float32{1}}, Score: 0.9},
	}}
	rr := do(t, newTestRouter(store), http.MethodPost, "/v1/search", map[string]any{
		"query":     "Great",
		"top_k":     1,
		"threshold": 0.5,
		"filter":    map[string]any{"op": "eq", "field": "country", "value": "BG"},
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body)
	}
	resp := decode[SearchResponse](t, rr)
	if resp.Total != 1 || resp.Items[0].ID != "d3" || resp.Items[0].Score != 0.9 {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.Items[0].Embedding != nil {
		t.Error("embedding must be omitted unless requested")
	}
	if store.lastReq.Query != "Great" || store.lastReq.TopK != 1 || store.lastReq.Threshold != 0.5 {
		t.Errorf("request = %+v", store.lastReq)
	}
	want := filter.Eq("country", "BG")
	if store.lastReq.Filter != want {
		t.Errorf("filter = %#v, want %#v", store.lastReq.Filter, want)
	}
}

func TestSearch_Query(t *testing.T) {
	store := &fakeStore{}
	q := url.Values{}
	q.Set("q", "hello")
	q.Set("top_k", "3")
	q.Set("threshold", "0.25")
	q.Set("filter", `{"op":"gte","field":"year","value":2020}`)

	rr := do(t, newTestRouter(store), http.MethodGet, "/v1/search?"+q.Encode(), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body)
	}
	if store.lastReq.Query != "hello" || store.lastReq.TopK != 3 || store.lastReq.Threshold != 0.25 {
		t.Errorf("request = %+v", store.lastReq)
	}
	if store.lastReq.Filter == nil {
		t.Error("filter not parsed")
	}
}

func TestSearch_QueryBadParams(t *testing.T) {
	h := newTestRouter(&fakeStore{})

	for _, target := range []string{
		"/v1/search",
		"/v1/search?q=x&top_k=many",
		"/v1/search?q=x&filter=%7B",
	} {
		rr := do(t, h, http.MethodGet, target, nil)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", target, rr.Code)
		}
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   ErrorCode
	}{
		{"invalid request", fmt.Errorf("%w: query is required", vecstore.ErrInvalidRequest), http.StatusBadRequest, CodeValidationFailed},
		{"unsupported field", fmt.Errorf("vecstore: filter: %w",
			&filter.UnsupportedFilterError{Field: "city", Allowed: []string{"country"}}), http.StatusBadRequest, CodeUnsupportedFilter},
		{"conversion", &vecstore.ConversionError{Field: "embedding", Index: 0, Reason: "not finite"}, http.StatusBadRequest, CodeValidationFailed},
		{"dimension", vecstore.ErrDimensionMismatch, http.StatusBadRequest, CodeDimensionMismatch},
		{"too large", domain.ErrInputTooLarge, http.StatusBadRequest, CodeInputTooLarge},
		{"duplicate", fmt.Errorf("%w: key exists", vecstore.ErrDuplicateID), http.StatusConflict, CodeDocumentExists},
		{"not found", vecstore.ErrNotFound, http.StatusNotFound, CodeDocumentNotFound},
		{"provider", fmt.Errorf("embed: %w", domain.ErrEmbeddingProviderError), http.StatusBadGateway, CodeEmbeddingProvider},
		{"schema", &vecstore.SchemaInitError{Step: vecstore.StepIndex, Err: errors.New("boom")}, http.StatusServiceUnavailable, CodeSchemaNotReady},
		{"internal", errors.New("connection reset"), http.StatusInternalServerError, CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, newTestRouter(&fakeStore{err: tt.err}), http.MethodPost, "/v1/search", SearchRequest{Query: "q"})
			if rr.Code != tt.status {
				t.Fatalf("status = %d, want %d", rr.Code, tt.status)
			}
			resp := decode[ErrorResponse](t, rr)
			if resp.Code != tt.code {
				t.Errorf("code = %s, want %s", resp.Code, tt.code)
			}
			if tt.code == CodeInternal && resp.Message != "internal error" {
				t.Errorf("internal details leaked: %q", resp.Message)
			}
			if tt.code == CodeUnsupportedFilter && resp.Field != "city" {
				t.Errorf("field = %q", resp.Field)
			}
		})
	}
}

func TestHealthCheck(t *testing.T) {
	for _, tt := range []struct {
		status healthuc.Status
		want   int
	}{
		{healthuc.Healthy, http.StatusOK},
		{healthuc.Degraded, http.StatusServiceUnavailable},
	} {
		r := gochi.NewRouter()
		health := fakeHealth{Status: tt.status, Checks: map[string]healthuc.CheckResult{"database": healthuc.CheckOK}}
		NewServer(&fakeStore{}, health, 0, nil).Register(r)

		rr := do(t, r, http.MethodGet, "/health", nil)
		if rr.Code != tt.want {
			t.Errorf("%s: status = %d, want %d", tt.status, rr.Code, tt.want)
		}
		if got := decode[HealthResponse](t, rr); got.Checks["database"] != "ok" {
			t.Errorf("checks = %v", got.Checks)
		}
	}
}
