package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newRouter() *chi.Mux {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Route("/v1", func(r chi.Router) {
		r.Post("/search", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"items":[]}`))
		})
		r.Get("/documents/{id}", func(w http.ResponseWriter, r *http.Request) {
			if chi.URLParam(r, "id") == "missing" {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			_, _ = w.Write([]byte(`{}`))
		})
		r.Post("/documents", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusCreated)
		})
		r.Delete("/documents", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})
	})
	return r
}

func serve(r http.Handler, method, path string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(method, path, http.NoBody))
	return rr
}

func TestMetricsMiddleware_RecordsDurationAndCount(t *testing.T) {
	rr := serve(newRouter(), http.MethodPost, "/v1/search")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	if v := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("POST", "/v1/search", "200")); v < 1 {
		t.Errorf("expected http_requests_total >= 1, got %f", v)
	}
	if testutil.CollectAndCount(httpRequestDuration) == 0 {
		t.Error("expected http_request_duration_seconds to have observations")
	}
}

func TestMetricsMiddleware_UsesRoutePattern(t *testing.T) {
	r := newRouter()
	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/v1/documents/{id}", "200"))

	serve(r, http.MethodGet, "/v1/documents/a1")
	serve(r, http.MethodGet, "/v1/documents/b2")

	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/v1/documents/{id}", "200"))
	if after-before != 2 {
		t.Errorf("expected both ids under one route label, got delta %f", after-before)
	}
}

func TestMetricsMiddleware_StatusCodes(t *testing.T) {
	tests := []struct {
		method, path, pattern, status string
	}{
		{"GET", "/v1/documents/missing", "/v1/documents/{id}", "404"},
		{"POST", "/v1/documents", "/v1/documents", "201"},
		{"DELETE", "/v1/documents", "/v1/documents", "500"},
	}

	r := newRouter()
	for _, tc := range tests {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			serve(r, tc.method, tc.path)

			val := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(tc.method, tc.pattern, tc.status))
			if val < 1 {
				t.Errorf("expected requests_total for %s %s with status %s >= 1, got %f",
					tc.method, tc.pattern, tc.status, val)
			}
		})
	}
}

func TestHandler_ExposesRegisteredMetrics(t *testing.T) {
	RegisterEmbeddingMetrics()
	RegisterEmbeddingMetrics()
	EmbeddingBatchesTotal.WithLabelValues("openai", "single").Inc()
	serve(newRouter(), http.MethodPost, "/v1/search")

	rr := serve(Handler(), http.MethodGet, "/metrics")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	body, _ := io.ReadAll(rr.Body)
	for _, name := range []string{"vecstore_http_requests_total", "vecstore_embedding_batches_total"} {
		if !strings.Contains(string(body), name) {
			t.Errorf("expected %s in scrape output", name)
		}
	}
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", "unknown"},
		{"/v1/documents/{id}", "/v1/documents/{id}"},
		{"/health", "/health"},
	}

	for _, tc := range tests {
		if got := normalizePath(tc.input); got != tc.expected {
			t.Errorf("normalizePath(%q) = %q, want %q", tc.input, got, tc.expected)
		}
	}
}
