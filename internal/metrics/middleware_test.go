package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMiddlewareRecordsStatusPerRoute(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Get("/ok", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/bad", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	tests := []struct {
		path   string
		status string
	}{
		{"/ok", "200"},
		{"/bad", "400"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", tt.path, tt.status))

			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tt.path, http.NoBody))

			after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", tt.path, tt.status))
			assert.Equal(t, before+1, after)
		})
	}

	assert.Positive(t, testutil.CollectAndCount(httpRequestDuration))
}

func TestRegisterSearchMetricsIsIdempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		RegisterSearchMetrics()
		RegisterSearchMetrics()
	})
}
