// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Collector registers and records the service metrics. All methods are
// nil-safe so callers never have to guard against a disabled collector.
type Collector struct {
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	llmRequestsTotal   *prometheus.CounterVec
	llmRequestDuration *prometheus.HistogramVec

	nodeExecutionsTotal   *prometheus.CounterVec
	nodeExecutionDuration *prometheus.HistogramVec

	broadcastAttemptsTotal *prometheus.CounterVec
	broadcastRetriesTotal  prometheus.Counter
	broadcastResponses     prometheus.Histogram

	logger *zap.Logger
}

// NewCollector creates a collector registered on the default registry.
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, path, and status.",
		},
		[]string{"method", "path", "status"},
	)
	c.httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	c.llmRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "Total LLM completion requests by provider and outcome.",
		},
		[]string{"provider", "outcome"},
	)
	c.llmRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "LLM completion latency.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"provider"},
	)

	c.nodeExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "graph_node_executions_total",
			Help:      "Graph node executions by graph, node, and outcome.",
		},
		[]string{"graph", "node", "outcome"},
	)
	c.nodeExecutionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "graph_node_duration_seconds",
			Help:      "Graph node latency.",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 15, 60, 120},
		},
		[]string{"graph", "node"},
	)

	c.broadcastAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcast_attempts_total",
			Help:      "Order broadcast attempts by outcome.",
		},
		[]string{"outcome"},
	)
	c.broadcastRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcast_retries_total",
			Help:      "Order broadcast retries after transport failures.",
		},
	)
	c.broadcastResponses = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "broadcast_responses",
			Help:      "Peer responses collected per successful broadcast.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
	)

	return c
}

// RecordHTTPRequest records one handled HTTP request.
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if c == nil {
		return
	}
	c.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordLLMRequest records one completion call.
func (c *Collector) RecordLLMRequest(provider string, duration time.Duration, ok bool) {
	if c == nil {
		return
	}
	c.llmRequestsTotal.WithLabelValues(provider, outcome(ok)).Inc()
	c.llmRequestDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordNodeExecution records one graph node run.
func (c *Collector) RecordNodeExecution(graph, node string, duration time.Duration, ok bool) {
	if c == nil {
		return
	}
	c.nodeExecutionsTotal.WithLabelValues(graph, node, outcome(ok)).Inc()
	c.nodeExecutionDuration.WithLabelValues(graph, node).Observe(duration.Seconds())
}

// RecordBroadcastAttempt records one broadcast attempt.
func (c *Collector) RecordBroadcastAttempt(ok bool) {
	if c == nil {
		return
	}
	c.broadcastAttemptsTotal.WithLabelValues(outcome(ok)).Inc()
}

// RecordBroadcastRetry records a retry after a transport failure.
func (c *Collector) RecordBroadcastRetry() {
	if c == nil {
		return
	}
	c.broadcastRetriesTotal.Inc()
}

// RecordBroadcastResponses records the reply count of a successful broadcast.
func (c *Collector) RecordBroadcastResponses(n int) {
	if c == nil {
		return
	}
	c.broadcastResponses.Observe(float64(n))
}

func outcome(ok bool) string {
	if ok {
		return "success"
	}
	return "error"
}
