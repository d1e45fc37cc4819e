package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/digikala-search/internal/models"
	"github.com/maltedev/digikala-search/internal/search"
)

type fakeSearcher struct {
	mu     sync.Mutex
	calls  []models.Query
	limits []int
	result search.Result
}

func (f *fakeSearcher) Run(ctx context.Context, q models.Query, limit int) search.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, q)
	f.limits = append(f.limits, limit)
	return f.result
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRouter(s Searcher) http.Handler {
	h := NewHandlers(s, Limits{Default: 30, Max: 50}, testLogger())
	return NewRouter(h, RouterOptions{})
}

func sampleResult() search.Result {
	p := models.NewProduct("لپ تاپ ایسوس", "https://www.digikala.com/product/dkp-1/")
	p.SourceStrategy = models.StrategyPrimary
	p.RelevanceScore = 25
	return search.Result{
		RequestID: "req-1",
		Query:     "laptop for work",
		Terms:     []models.CandidateTerm{{Text: "لپ تاپ", Strategy: models.StrategyPrimary}},
		Products:  []models.Product{p},
	}
}

func TestSearchProductsQuery(t *testing.T) {
	s := &fakeSearcher{result: sampleResult()}
	router := newTestRouter(s)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/search?q=laptop+for+work&limit=5", http.NoBody)
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var resp SearchResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "laptop for work", resp.Query)
	assert.Equal(t, []string{"لپ تاپ"}, resp.SearchedFor)
	assert.Equal(t, 1, resp.Count)
	require.Len(t, resp.Products, 1)
	assert.Equal(t, models.StrategyPrimary, resp.Products[0].SourceStrategy)
	assert.Equal(t, "req-1", resp.RequestID)

	require.Len(t, s.calls, 1)
	assert.Equal(t, "laptop for work", s.calls[0].Text)
	assert.Equal(t, 5, s.limits[0])
}

func TestSearchProductsPost(t *testing.T) {
	s := &fakeSearcher{result: sampleResult()}
	router := newTestRouter(s)

	body := `{"query":"  یه گوشی خوب میخوام ","limit":10,"product_query":" گوشی سامسونگ "}`
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/products/search", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, s.calls, 1)
	assert.Equal(t, "یه گوشی خوب میخوام", s.calls[0].Text)
	assert.Equal(t, "گوشی سامسونگ", s.calls[0].Override)
	assert.Equal(t, 10, s.limits[0])
}

func TestSearchLimitClamping(t *testing.T) {
	tests := []struct {
		name     string
		limit    string
		expected int
	}{
		{"Missing", "", 30},
		{"Zero", "0", 30},
		{"Negative", "-4", 30},
		{"Within range", "12", 12},
		{"Above max", "500", 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &fakeSearcher{}
			router := newTestRouter(s)

			target := "/api/v1/products/search?q=tablet"
			if tt.limit != "" {
				target += "&limit=" + tt.limit
			}
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, http.NoBody))

			require.Equal(t, http.StatusOK, rr.Code)
			require.Len(t, s.limits, 1)
			assert.Equal(t, tt.expected, s.limits[0])
		})
	}
}

func TestSearchRejectsBadInput(t *testing.T) {
	tests := []struct {
		name   string
		method string
		target string
		body   string
		errMsg string
	}{
		{"Missing query", http.MethodGet, "/api/v1/products/search", "", "query is required"},
		{"Blank query", http.MethodGet, "/api/v1/products/search?q=%20%20", "", "query is required"},
		{"Non-numeric limit", http.MethodGet, "/api/v1/products/search?q=tv&limit=ten", "", "limit must be a number"},
		{"Malformed body", http.MethodPost, "/api/v1/products/search", "{query", "invalid request body"},
		{"Empty body", http.MethodPost, "/api/v1/products/search", "", "query is required"},
		{"Override only", http.MethodPost, "/api/v1/products/search", `{"product_query":"لپ تاپ"}`, "query is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &fakeSearcher{}
			router := newTestRouter(s)

			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, httptest.NewRequest(tt.method, tt.target, strings.NewReader(tt.body)))

			assert.Equal(t, http.StatusBadRequest, rr.Code)
			var resp map[string]string
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.Equal(t, tt.errMsg, resp["error"])
			assert.Empty(t, s.calls)
		})
	}
}

func TestSearchEmptyResultEncodesArray(t *testing.T) {
	router := newTestRouter(&fakeSearcher{result: search.Result{Query: "x"}})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/products/search?q=x", http.NoBody))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"products":[]`)
	assert.Contains(t, rr.Body.String(), `"count":0`)
}

func TestHealthAndMetrics(t *testing.T) {
	router := newTestRouter(&fakeSearcher{})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestCORSPreflight(t *testing.T) {
	router := newTestRouter(&fakeSearcher{})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/products/search", http.NoBody)
	req.Header.Set("Origin", "https://shop.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestNewHandlersNormalizesLimits(t *testing.T) {
	h := NewHandlers(&fakeSearcher{}, Limits{Default: 0, Max: -1}, testLogger())
	assert.Equal(t, 30, h.limits.Default)
	assert.Equal(t, 30, h.limits.Max)
	assert.Equal(t, 30, h.clampLimit(99))
}
