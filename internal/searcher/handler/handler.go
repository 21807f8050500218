package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/tenant-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/tenant-search/internal/searcher/executor"
	apperrors "github.com/Adithya-Monish-Kumar-K/tenant-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/tenant-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/tenant-search/pkg/metrics"
)

type SearchExecutor interface {
	Normalize(req executor.Request) (executor.Request, error)
	Execute(ctx context.Context, req executor.Request) (*executor.SearchResult, error)
}

type Handler struct {
	executor SearchExecutor
	cache    *cache.QueryCache
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// New wires the search endpoints. queryCache and m may be nil.
func New(exec SearchExecutor, queryCache *cache.QueryCache, m *metrics.Metrics) *Handler {
	return &Handler{
		executor: exec,
		cache:    queryCache,
		metrics:  m,
		logger:   slog.Default().With("component", "search-handler"),
	}
}

// Search serves GET /api/v1/search?tenant=&q=&limit=. "count" is accepted
// as an alias of "limit".
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	params := r.URL.Query()

	if !params.Has("q") {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	limitStr := params.Get("limit")
	if limitStr == "" {
		limitStr = params.Get("count")
	}
	limit := 0
	if limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	req, err := h.executor.Normalize(executor.Request{
		Tenant: params.Get("tenant"),
		Query:  params.Get("q"),
		Limit:  limit,
	})
	if err != nil {
		h.writeError(w, apperrors.HTTPStatusCode(err), err.Error())
		return
	}
	ctx := logger.WithTenant(r.Context(), req.Tenant)
	log := logger.FromContext(ctx)

	var result *executor.SearchResult
	cacheStatus := "disabled"
	if h.cache != nil {
		var hit bool
		result, hit, err = h.cache.GetOrCompute(ctx, req, func() (*executor.SearchResult, error) {
			return h.executor.Execute(ctx, req)
		})
		cacheStatus = "miss"
		if hit {
			cacheStatus = "hit"
		}
	} else {
		result, err = h.executor.Execute(ctx, req)
	}

	if err != nil {
		status := apperrors.HTTPStatusCode(err)
		log.Error("search execution failed", "query", req.Query, "status_code", status, "error", err)
		h.writeError(w, status, errorMessage(err))
		return
	}

	if h.metrics != nil {
		h.metrics.SearchLatency.WithLabelValues(cacheStatus).Observe(time.Since(start).Seconds())
	}
	log.Info("search completed",
		"query", req.Query,
		"shards", result.Shards,
		"returned", len(result.Results),
		"cache", cacheStatus,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

// CacheInvalidate serves POST /api/v1/cache/invalidate?tenant=.
func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}
	req, err := h.executor.Normalize(executor.Request{Tenant: r.URL.Query().Get("tenant")})
	if err != nil {
		h.writeError(w, apperrors.HTTPStatusCode(err), err.Error())
		return
	}
	if err := h.cache.InvalidateTenant(r.Context(), req.Tenant); err != nil {
		h.logger.Error("cache invalidation failed", "tenant", req.Tenant, "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated", "tenant": req.Tenant})
}

func errorMessage(err error) string {
	switch apperrors.Kind(err) {
	case "no_shards":
		return "no index exists for tenant"
	case "invalid_query":
		return err.Error()
	case "timeout":
		return "search timed out"
	default:
		return "search failed"
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
