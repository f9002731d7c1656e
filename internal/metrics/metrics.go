// Package metrics exposes Prometheus counters for the HTTP layer and dehaze outcomes.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	requestCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dehazer_http_requests_total",
		Help: "Total number of requests by route and status",
	}, []string{"method", "path", "status"})

	requestSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dehazer_http_request_seconds",
		Help:    "Request latency by route, in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	dehazeResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dehazer_dehaze_results_total",
		Help: "Dehaze calls by outcome (success or error class)",
	}, []string{"outcome"})
)

// Track is a gin middleware recording count and latency per matched route.
func Track() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		requestCount.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		requestSeconds.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// ObserveDehaze counts one dehaze call under outcome.
func ObserveDehaze(outcome string) {
	dehazeResults.WithLabelValues(outcome).Inc()
}

// Handler serves the default registry.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
