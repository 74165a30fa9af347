// Package metrics holds the Prometheus instruments for the catalog server
// and the catalog client.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Catalog server
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gamedex_api_requests_total",
			Help: "Total number of catalog API requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gamedex_api_request_duration_seconds",
			Help:    "Catalog API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gamedex_api_active_requests",
			Help: "Catalog API requests currently in flight",
		},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gamedex_db_query_duration_seconds",
			Help:    "Duration of games table queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gamedex_db_query_errors_total",
			Help: "Total number of failed games table queries",
		},
		[]string{"operation"},
	)

	// Catalog client
	ClientRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gamedex_client_requests_total",
			Help: "Catalog requests made by the client, by outcome",
		},
		[]string{"operation", "outcome"}, // outcome: ok, network, format, not_found, cancelled, open
	)

	ClientBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gamedex_client_breaker_state",
			Help: "Catalog client circuit breaker state (0 closed, 1 half-open, 2 open)",
		},
	)
)

// RecordAPIRequest records a served API request.
func RecordAPIRequest(method, route string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordDBQuery records a games table query.
func RecordDBQuery(operation string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation).Inc()
	}
}

func RecordClientRequest(operation, outcome string) {
	ClientRequestsTotal.WithLabelValues(operation, outcome).Inc()
}

func SetBreakerState(state int) {
	ClientBreakerState.Set(float64(state))
}

// Middleware instruments every request handled by a gin engine. Requests
// that match no route are labelled "unmatched".
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		APIActiveRequests.Inc()
		defer APIActiveRequests.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		RecordAPIRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
