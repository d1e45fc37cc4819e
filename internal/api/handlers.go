package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/maltedev/digikala-search/internal/models"
	"github.com/maltedev/digikala-search/internal/search"
)

// Searcher runs a product search.
type Searcher interface {
	Run(ctx context.Context, q models.Query, limit int) search.Result
}

type Limits struct {
	Default int
	Max     int
}

type Handlers struct {
	searcher Searcher
	limits   Limits
	logger   *slog.Logger
}

func NewHandlers(searcher Searcher, limits Limits, logger *slog.Logger) *Handlers {
	if limits.Default < 1 {
		limits.Default = 30
	}
	if limits.Max < limits.Default {
		limits.Max = limits.Default
	}
	return &Handlers{
		searcher: searcher,
		limits:   limits,
		logger:   logger.With("component", "api"),
	}
}

// SearchRequest represents a product search request
type SearchRequest struct {
	Query        string `json:"query"`
	Limit        int    `json:"limit"`
	ProductQuery string `json:"product_query"`
}

// SearchResponse represents the ranked products for a query
type SearchResponse struct {
	Query       string           `json:"query"`
	SearchedFor []string         `json:"searched_for"`
	Products    []models.Product `json:"products"`
	Count       int              `json:"count"`
	RequestID   string           `json:"request_id,omitempty"`
}

// SearchProducts handles POST /api/v1/products/search
func (h *Handlers) SearchProducts(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.search(w, r, req)
}

// SearchProductsQuery handles GET /api/v1/products/search?q=&limit=
func (h *Handlers) SearchProductsQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := SearchRequest{
		Query:        q.Get("q"),
		ProductQuery: q.Get("product_query"),
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			h.respondError(w, http.StatusBadRequest, "limit must be a number")
			return
		}
		req.Limit = limit
	}

	h.search(w, r, req)
}

func (h *Handlers) search(w http.ResponseWriter, r *http.Request, req SearchRequest) {
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		h.respondError(w, http.StatusBadRequest, "query is required")
		return
	}

	limit := h.clampLimit(req.Limit)
	result := h.searcher.Run(r.Context(), models.Query{
		Text:     req.Query,
		Override: strings.TrimSpace(req.ProductQuery),
	}, limit)

	products := result.Products
	if products == nil {
		products = []models.Product{}
	}

	h.logger.Info("search served",
		"request_id", result.RequestID,
		"query", req.Query,
		"limit", limit,
		"count", len(products),
	)

	h.respondJSON(w, http.StatusOK, SearchResponse{
		Query:       req.Query,
		SearchedFor: result.SearchedFor(),
		Products:    products,
		Count:       len(products),
		RequestID:   result.RequestID,
	})
}

func (h *Handlers) clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return h.limits.Default
	case limit > h.limits.Max:
		return h.limits.Max
	default:
		return limit
	}
}

// Health handles GET /health
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Helper methods
func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
