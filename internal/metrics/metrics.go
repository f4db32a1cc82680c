// Package metrics collects Prometheus metrics for the document QA service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides a centralized interface for collecting application metrics.
//
// The metrics system is built on Prometheus and tracks:
//   - Documents and chunks flowing through the ingestion pipeline
//   - Query throughput and latency by mode
//   - Evaluation outcomes, including degraded evaluations
//   - HTTP request performance
type Metrics struct {
	// DocumentsIngested counts ingested files by extension and status.
	// Labels: extension (.pdf|.txt|.csv), status (success|rejected|failed)
	DocumentsIngested *prometheus.CounterVec

	// ChunksIndexed counts chunks written to the vector index.
	ChunksIndexed prometheus.Counter

	// IngestDuration measures end-to-end ingestion latency in seconds.
	// Buckets: 0.1s, 0.5s, 1s, 2s, 5s, 10s, 30s, 60s
	IngestDuration prometheus.Histogram

	// QueryCounter counts queries by mode and status.
	// Labels: mode (sync|stream|evaluated), status (success|error)
	QueryCounter *prometheus.CounterVec

	// QueryDuration measures query latency in seconds by mode.
	// Labels: mode
	// Buckets: 0.1s, 0.5s, 1s, 2s, 5s, 10s, 30s, 60s
	QueryDuration *prometheus.HistogramVec

	// EvaluationCounter counts evaluation outcomes.
	// Labels: status (success|degraded)
	EvaluationCounter *prometheus.CounterVec

	// HTTPRequestDuration measures HTTP request latency.
	// Labels: method, path, status_code
	// Buckets: 0.001s, 0.005s, 0.01s, 0.05s, 0.1s, 0.5s, 1s, 5s
	HTTPRequestDuration *prometheus.HistogramVec

	// HTTPRequestCounter counts HTTP requests.
	// Labels: method, path, status_code
	HTTPRequestCounter *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics with the default Prometheus
// registry. This should be called once at application startup.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith creates and registers all metrics with the given registerer.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		DocumentsIngested: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docsage_documents_ingested_total",
				Help: "Total number of ingested documents by extension and status",
			},
			[]string{"extension", "status"},
		),

		ChunksIndexed: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "docsage_chunks_indexed_total",
				Help: "Total number of chunks written to the vector index",
			},
		),

		IngestDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "docsage_ingest_duration_seconds",
				Help:    "Duration of document ingestion in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
		),

		QueryCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docsage_queries_total",
				Help: "Total number of queries by mode and status",
			},
			[]string{"mode", "status"},
		),

		QueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "docsage_query_duration_seconds",
				Help:    "Duration of queries in seconds by mode",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"mode"},
		),

		EvaluationCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docsage_evaluations_total",
				Help: "Total number of answer evaluations by outcome",
			},
			[]string{"status"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "docsage_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"method", "path", "status_code"},
		),

		HTTPRequestCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docsage_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
	}
}

// RecordIngest records one ingestion attempt.
func (m *Metrics) RecordIngest(extension, status string, chunks int, durationSeconds float64) {
	m.DocumentsIngested.WithLabelValues(extension, status).Inc()
	if chunks > 0 {
		m.ChunksIndexed.Add(float64(chunks))
	}
	m.IngestDuration.Observe(durationSeconds)
}

// RecordQuery records one query by mode and status.
func (m *Metrics) RecordQuery(mode, status string, durationSeconds float64) {
	m.QueryCounter.WithLabelValues(mode, status).Inc()
	m.QueryDuration.WithLabelValues(mode).Observe(durationSeconds)
}

// RecordEvaluation records one evaluation outcome. Degraded means the
// evaluation produced an error instead of scores.
func (m *Metrics) RecordEvaluation(degraded bool) {
	status := "success"
	if degraded {
		status = "degraded"
	}
	m.EvaluationCounter.WithLabelValues(status).Inc()
}

// RecordHTTPRequest records one handled HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path, statusCode string, durationSeconds float64) {
	m.HTTPRequestCounter.WithLabelValues(method, path, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path, statusCode).Observe(durationSeconds)
}
