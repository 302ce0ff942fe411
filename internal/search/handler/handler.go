// Package handler exposes the tiered search pipeline over HTTP.
package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/caselens/caselens/internal/index"
	"github.com/caselens/caselens/internal/retrieval"
	"github.com/caselens/caselens/internal/search/cache"
	"github.com/caselens/caselens/internal/search/rebuild"
	apperrors "github.com/caselens/caselens/pkg/errors"
	"github.com/caselens/caselens/pkg/logger"
	"github.com/caselens/caselens/pkg/metrics"
)

// SearchResponse is the JSON body returned by the search endpoint.
type SearchResponse struct {
	Query   string             `json:"query"`
	Total   int                `json:"total"`
	Deep    bool               `json:"deep"`
	Results []retrieval.Result `json:"results"`
}

type Handler struct {
	orchestrator *retrieval.Orchestrator
	index        *index.RankingIndex
	refresher    *rebuild.Refresher
	cache        *cache.QueryCache
	metrics      *metrics.Metrics
	defaultLimit int
	maxResults   int
	logger       *slog.Logger
}

// New creates the search handler. The query cache and metrics may be nil.
func New(
	orch *retrieval.Orchestrator,
	idx *index.RankingIndex,
	refresher *rebuild.Refresher,
	queryCache *cache.QueryCache,
	m *metrics.Metrics,
	defaultLimit, maxResults int,
) *Handler {
	return &Handler{
		orchestrator: orch,
		index:        idx,
		refresher:    refresher,
		cache:        queryCache,
		metrics:      m,
		defaultLimit: defaultLimit,
		maxResults:   maxResults,
		logger:       slog.Default().With("component", "search-handler"),
	}
}

// Search serves GET /api/v1/search?q=...&limit=N&deep=true|false. Deep
// defaults to true; passing deep=false restricts the query to the merged
// preview tier.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeError(w, apperrors.HTTPStatusCode(apperrors.ErrEmptyQuery), "query parameter 'q' is required")
		return
	}

	limit := h.defaultLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if parsed > h.maxResults {
			parsed = h.maxResults
		}
		limit = parsed
	}

	deep := true
	if deepStr := r.URL.Query().Get("deep"); deepStr != "" {
		parsed, err := strconv.ParseBool(deepStr)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "deep must be true or false")
			return
		}
		deep = parsed
	}

	var results []retrieval.Result
	cacheHit := false
	if h.cache != nil {
		var err error
		results, cacheHit, err = h.cache.GetOrCompute(ctx, query, limit, deep, func() ([]retrieval.Result, error) {
			return h.orchestrator.Search(ctx, query, limit, deep), nil
		})
		if err != nil {
			log.Error("search failed", "query", query, "error", err)
			h.writeError(w, http.StatusInternalServerError, "search failed")
			return
		}
	} else {
		results = h.orchestrator.Search(ctx, query, limit, deep)
	}
	if results == nil {
		results = []retrieval.Result{}
	}

	latency := time.Since(start)
	h.observeQuery(deep, cacheHit, latency)
	log.Info("search completed",
		"query", query,
		"returned", len(results),
		"deep", deep,
		"cache_hit", cacheHit,
		"latency_ms", latency.Milliseconds(),
	)
	h.writeJSON(w, http.StatusOK, &SearchResponse{
		Query:   query,
		Total:   len(results),
		Deep:    deep,
		Results: results,
	})
}

// Stats reports the orchestrator counters, index dimensions, duplicate
// detector counters, and query-cache hit rate in one payload.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	payload := map[string]any{
		"retrieval": h.orchestrator.Stats(),
		"index":     h.index.Stats(),
		"dedup":     h.refresher.DedupStats(),
	}
	if h.cache != nil {
		hits, misses := h.cache.Stats()
		total := hits + misses
		var hitRate float64
		if total > 0 {
			hitRate = float64(hits) / float64(total) * 100
		}
		payload["query_cache"] = map[string]any{
			"hits":     hits,
			"misses":   misses,
			"total":    total,
			"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
		}
	}
	h.writeJSON(w, http.StatusOK, payload)
}

// CacheClear empties the full-content cache and, when present, the Redis
// query cache.
func (h *Handler) CacheClear(w http.ResponseWriter, r *http.Request) {
	h.orchestrator.ClearCache()
	if h.cache != nil {
		if err := h.cache.Invalidate(r.Context()); err != nil {
			h.logger.Error("query cache invalidation failed", "error", err)
			h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
			return
		}
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// Refresh reloads the corpus from the store and rebuilds the index on demand.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.refresher.Refresh(r.Context()); err != nil {
		h.logger.Error("corpus refresh failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "refresh failed")
		return
	}
	if h.cache != nil {
		if err := h.cache.Invalidate(r.Context()); err != nil {
			h.logger.Error("query cache invalidation failed", "error", err)
		}
	}
	stats := h.index.Stats()
	h.writeJSON(w, http.StatusOK, map[string]any{
		"status": "refreshed",
		"index":  stats,
	})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) observeQuery(deep, cacheHit bool, latency time.Duration) {
	if h.metrics == nil {
		return
	}
	depth := "fast"
	if deep {
		depth = "deep"
	}
	cacheStatus := "miss"
	if cacheHit {
		cacheStatus = "hit"
	}
	h.metrics.SearchQueriesTotal.WithLabelValues(depth).Inc()
	h.metrics.SearchLatency.WithLabelValues(cacheStatus).Observe(latency.Seconds())
	if h.cache != nil {
		if cacheHit {
			h.metrics.QueryCacheHits.Inc()
		} else {
			h.metrics.QueryCacheMisses.Inc()
		}
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
