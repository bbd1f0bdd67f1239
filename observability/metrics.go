package observability

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type moduleMetrics struct {
	requests  *prometheus.CounterVec
	errors    *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	throttles *prometheus.CounterVec
}

var (
	moduleMetricsOnce sync.Once
	moduleRegistry    *moduleMetrics

	indexerMetricsOnce sync.Once
	indexerRegistry    *IndexerMetrics
)

// ModuleMetrics returns the lazily-initialised module metrics registry used to
// record RPC module activity.
func ModuleMetrics() *moduleMetrics {
	moduleMetricsOnce.Do(func() {
		moduleRegistry = &moduleMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "farm",
				Subsystem: "module",
				Name:      "requests_total",
				Help:      "Total JSON-RPC module requests segmented by module and method.",
			}, []string{"module", "method", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "farm",
				Subsystem: "module",
				Name:      "errors_total",
				Help:      "Total JSON-RPC module errors segmented by module, method, and status code.",
			}, []string{"module", "method", "status"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "farm",
				Subsystem: "module",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for JSON-RPC module handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"module", "method"}),
			throttles: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "farm",
				Subsystem: "module",
				Name:      "throttles_total",
				Help:      "Count of module requests rejected due to throttling policies.",
			}, []string{"module", "reason"}),
		}
		prometheus.MustRegister(
			moduleRegistry.requests,
			moduleRegistry.errors,
			moduleRegistry.latency,
			moduleRegistry.throttles,
		)
	})
	return moduleRegistry
}

// Observe records the outcome of a module request. The status code should be
// the HTTP status that was ultimately written to the response writer.
func (m *moduleMetrics) Observe(module, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	if module == "" {
		module = "unknown"
	}
	if method == "" {
		method = "unknown"
	}
	outcome := "success"
	if status >= 400 {
		outcome = "error"
	}
	m.requests.WithLabelValues(module, method, outcome).Inc()
	if status >= 400 {
		m.errors.WithLabelValues(module, method, fmt.Sprintf("%d", status)).Inc()
	}
	m.latency.WithLabelValues(module, method).Observe(duration.Seconds())
}

// RecordThrottle increments the throttle counter for the supplied module and
// reason. Reasons should be stable strings such as "rate_limit".
func (m *moduleMetrics) RecordThrottle(module, reason string) {
	if m == nil {
		return
	}
	if module == "" {
		module = "unknown"
	}
	if reason == "" {
		reason = "unspecified"
	}
	m.throttles.WithLabelValues(module, reason).Inc()
}

// IndexerMetrics captures journal write activity of the event indexer.
type IndexerMetrics struct {
	writes    *prometheus.CounterVec
	retries   prometheus.Counter
	snapshots prometheus.Counter
	lag       prometheus.Gauge
}

// Indexer returns the singleton metrics registry for the event indexer.
func Indexer() *IndexerMetrics {
	indexerMetricsOnce.Do(func() {
		indexerRegistry = &IndexerMetrics{
			writes: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "farm",
				Subsystem: "indexer",
				Name:      "writes_total",
				Help:      "Count of journal writes segmented by table and outcome.",
			}, []string{"table", "outcome"}),
			retries: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "farm",
				Subsystem: "indexer",
				Name:      "retries_total",
				Help:      "Count of retried journal writes.",
			}),
			snapshots: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "farm",
				Subsystem: "indexer",
				Name:      "snapshots_total",
				Help:      "Count of market snapshots recorded.",
			}),
			lag: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "farm",
				Subsystem: "indexer",
				Name:      "queue_depth",
				Help:      "Events waiting to be written.",
			}),
		}
		prometheus.MustRegister(
			indexerRegistry.writes,
			indexerRegistry.retries,
			indexerRegistry.snapshots,
			indexerRegistry.lag,
		)
	})
	return indexerRegistry
}

// RecordWrite counts a journal write for table.
func (m *IndexerMetrics) RecordWrite(table string, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.writes.WithLabelValues(labelTable(table), outcome).Inc()
}

// RecordRetry counts a retried write.
func (m *IndexerMetrics) RecordRetry() {
	if m == nil {
		return
	}
	m.retries.Inc()
}

// RecordSnapshot counts a market snapshot.
func (m *IndexerMetrics) RecordSnapshot() {
	if m == nil {
		return
	}
	m.snapshots.Inc()
}

// SetQueueDepth reports the number of pending events.
func (m *IndexerMetrics) SetQueueDepth(depth int) {
	if m == nil {
		return
	}
	m.lag.Set(float64(depth))
}

func labelTable(table string) string {
	trimmed := strings.TrimSpace(table)
	if trimmed == "" {
		return "unknown"
	}
	return strings.ToLower(trimmed)
}
