package api

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds Prometheus metrics for the HTTP and MCP surfaces.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	ToolCallsTotal *prometheus.CounterVec

	SearchesTotal      prometheus.Counter
	SearchMatches      prometheus.Histogram
	ConnectionRequests *prometheus.CounterVec
}

// NewMetrics creates and registers the metrics. Registration happens once per
// process; later calls return the same set.
//
// Metrics:
//   - backroom_http_requests_total{route,method,code}
//   - backroom_http_request_duration_seconds{route,method}
//   - backroom_mcp_tool_calls_total{tool,outcome}
//   - backroom_searches_total
//   - backroom_search_matches
//   - backroom_connection_requests_total{action,outcome}
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			HTTPRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "backroom_http_requests_total",
					Help: "Total number of HTTP requests served",
				},
				[]string{"route", "method", "code"},
			),
			HTTPRequestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "backroom_http_request_duration_seconds",
					Help:    "HTTP request latency in seconds",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"route", "method"},
			),
			ToolCallsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "backroom_mcp_tool_calls_total",
					Help: "Total number of MCP tool calls",
				},
				[]string{"tool", "outcome"}, // "ok" or "error"
			),
			SearchesTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "backroom_searches_total",
					Help: "Total number of free-text searches",
				},
			),
			SearchMatches: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "backroom_search_matches",
					Help:    "Number of matches per free-text search",
					Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100},
				},
			),
			ConnectionRequests: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "backroom_connection_requests_total",
					Help: "Connection workflow operations by outcome",
				},
				[]string{"action", "outcome"}, // action: send|respond
			),
		}
	})
	return globalMetrics
}

// Handler serves the default registry in Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}

// Instrument records count and latency for every request, labelled with the
// matched chi route pattern.
func (m *Metrics) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.HTTPRequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
