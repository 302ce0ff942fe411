package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/caselens/caselens/internal/corpus"
	"github.com/caselens/caselens/internal/dedup"
	"github.com/caselens/caselens/internal/index"
	"github.com/caselens/caselens/internal/retrieval"
	"github.com/caselens/caselens/internal/retrieval/loader"
	"github.com/caselens/caselens/internal/search/rebuild"
)

type fakeStore struct {
	docs []corpus.Document
}

func (f *fakeStore) AllDocuments(ctx context.Context) ([]corpus.Document, error) {
	return f.docs, nil
}

// newTestHandler wires a handler over an in-memory corpus with the vector
// channel and caches disabled.
func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	st := &fakeStore{docs: []corpus.Document{
		{DocID: "doc-1", Filename: "settlement.pdf", Content: "settlement agreement executed after the mediation session concluded"},
		{DocID: "doc-2", Filename: "witness.pdf", Content: "witness statement describing the roof inspection findings"},
	}}
	detector := dedup.New(dedup.Config{})
	ri := index.New()
	refresher := rebuild.New(st, detector, ri, nil)
	if err := refresher.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	orch := retrieval.New(ri, nil, loader.New(t.TempDir()), refresher, nil, retrieval.Config{})
	return New(orch, ri, refresher, nil, nil, 20, 100)
}

func TestSearchEndpoint(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/search?q=settlement+mediation&deep=false", nil)
	rec := httptest.NewRecorder()
	h.Search(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var resp SearchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Total != 1 || len(resp.Results) != 1 {
		t.Fatalf("total = %d, results = %d, want 1 each", resp.Total, len(resp.Results))
	}
	if resp.Results[0].DocID != "doc-1" {
		t.Errorf("top result = %s, want doc-1", resp.Results[0].DocID)
	}
	if resp.Deep {
		t.Error("deep = true, want false")
	}
}

func TestSearchEndpointValidation(t *testing.T) {
	h := newTestHandler(t)
	tests := []struct {
		name string
		url  string
	}{
		{"missing query", "/api/v1/search"},
		{"bad limit", "/api/v1/search?q=settlement&limit=zero"},
		{"negative limit", "/api/v1/search?q=settlement&limit=-1"},
		{"bad deep flag", "/api/v1/search?q=settlement&deep=maybe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Search(rec, httptest.NewRequest(http.MethodGet, tt.url, nil))
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestSearchEndpointNoMatches(t *testing.T) {
	h := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.Search(rec, httptest.NewRequest(http.MethodGet, "/api/v1/search?q=arbitration&deep=false", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp SearchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Total != 0 || resp.Results == nil {
		t.Errorf("want empty but non-nil results, got total=%d results=%v", resp.Total, resp.Results)
	}
}

func TestStatsEndpoint(t *testing.T) {
	h := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	for _, key := range []string{"retrieval", "index", "dedup"} {
		if _, ok := payload[key]; !ok {
			t.Errorf("stats payload missing %q", key)
		}
	}
	if _, ok := payload["query_cache"]; ok {
		t.Error("query_cache section present with caching disabled")
	}
}

func TestCacheClearEndpoint(t *testing.T) {
	h := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.CacheClear(rec, httptest.NewRequest(http.MethodPost, "/api/v1/cache/clear", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
