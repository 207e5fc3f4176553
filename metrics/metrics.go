// Package metrics holds the Prometheus collectors shared by the harvester and the verifier.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for one appscout process.
type Metrics struct {
	Registry        *prometheus.Registry
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RetriesTotal    *prometheus.CounterVec
	ErrorsTotal     *prometheus.CounterVec
	ChunksTotal     *prometheus.CounterVec
	GamesHarvested  *prometheus.CounterVec
	RowsTotal       *prometheus.CounterVec
	RecordsWritten  *prometheus.CounterVec
}

// New constructs and registers all metrics on a dedicated registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "appscout_catalog_requests_total",
			Help: "Total catalog requests issued, by store.",
		},
		[]string{"store"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "appscout_catalog_request_duration_seconds",
			Help:    "Catalog request latency.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"store"},
	)
	retries := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "appscout_retries_total",
			Help: "Total number of retry attempts scheduled, by operation.",
		},
		[]string{"operation"},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "appscout_errors_total",
			Help: "Total number of failed attempts by error type.",
		},
		[]string{"error_type"},
	)
	chunks := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "appscout_chunks_total",
			Help: "Harvest chunks by collection and status.",
		},
		[]string{"collection", "status"},
	)
	games := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "appscout_games_harvested_total",
			Help: "Games appended to the progress state, by collection.",
		},
		[]string{"collection"},
	)
	rows := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "appscout_rows_total",
			Help: "Verifier rows by outcome.",
		},
		[]string{"outcome"},
	)
	written := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "appscout_records_written_total",
			Help: "Records appended to an output stream.",
		},
		[]string{"stream"},
	)

	registry.MustRegister(requests, requestDuration, retries, errorsTotal, chunks, games, rows, written)

	return &Metrics{
		Registry:        registry,
		RequestsTotal:   requests,
		RequestDuration: requestDuration,
		RetriesTotal:    retries,
		ErrorsTotal:     errorsTotal,
		ChunksTotal:     chunks,
		GamesHarvested:  games,
		RowsTotal:       rows,
		RecordsWritten:  written,
	}
}

// IncRequest increments the requests counter for a store.
func (m *Metrics) IncRequest(store string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(store).Inc()
}

// ObserveDuration records a catalog request duration.
func (m *Metrics) ObserveDuration(store string, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(store).Observe(d.Seconds())
}

// IncRetries increments the retries counter.
func (m *Metrics) IncRetries(operation string) {
	if m == nil {
		return
	}
	m.RetriesTotal.WithLabelValues(operation).Inc()
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}

// IncChunk counts a harvest chunk with its status (ok, failed, empty).
func (m *Metrics) IncChunk(collection, status string) {
	if m == nil {
		return
	}
	m.ChunksTotal.WithLabelValues(collection, status).Inc()
}

// AddGames adds n harvested games for a collection.
func (m *Metrics) AddGames(collection string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.GamesHarvested.WithLabelValues(collection).Add(float64(n))
}

// IncRow counts a verifier row by outcome label.
func (m *Metrics) IncRow(outcome string) {
	if m == nil {
		return
	}
	m.RowsTotal.WithLabelValues(outcome).Inc()
}

// AddWritten adds n records appended to a stream.
func (m *Metrics) AddWritten(stream string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.RecordsWritten.WithLabelValues(stream).Add(float64(n))
}
