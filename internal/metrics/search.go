package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "digikala_search"

// Search pipeline Prometheus metrics.
var (
	SearchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Total number of product searches",
		},
		[]string{"status"}, // "ok" / "empty" / "panic"
	)

	SearchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "End to end product search duration in seconds",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80},
		},
	)

	ExpansionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_expansions_total",
			Help:      "Query expansions by the strategy that produced the terms",
		},
		[]string{"strategy"}, // "override" / "ai" / "rules" / "generic"
	)

	FetchAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_attempts_total",
			Help:      "Page navigation attempts by kind and outcome",
		},
		[]string{"attempt", "outcome"}, // attempt: search/category/mobile, outcome: ok/empty/blocked/error/cancelled
	)

	ProductsExtractedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "products_extracted_total",
			Help:      "Products extracted per container strategy",
		},
		[]string{"strategy"},
	)

	BrowserSessionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "browser_sessions_total",
			Help:      "Browser sessions opened by engine and result",
		},
		[]string{"engine", "status"},
	)

	CompletionRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completion_requests_total",
			Help:      "Text completion requests by provider and status",
		},
		[]string{"provider", "model", "status"},
	)

	CompletionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "completion_request_duration_seconds",
			Help:      "Text completion request duration in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"provider", "model"},
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers the search pipeline metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchesTotal)
	prometheus.MustRegister(SearchDuration)
	prometheus.MustRegister(ExpansionsTotal)
	prometheus.MustRegister(FetchAttemptsTotal)
	prometheus.MustRegister(ProductsExtractedTotal)
	prometheus.MustRegister(BrowserSessionsTotal)
	prometheus.MustRegister(CompletionRequestsTotal)
	prometheus.MustRegister(CompletionDuration)
	searchMetricsRegistered = true
}
