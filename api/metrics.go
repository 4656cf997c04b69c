/*
metrics.go - Prometheus metrics for the rate engine API

PURPOSE:
  Counts the operations an operator actually pages on: entries priced,
  rate lookups that found no matching entry, sync runs, and batch
  submissions. Served on /metrics when enabled.

REGISTRY:
  Each Metrics value owns its registry, so tests can build handlers
  side by side without duplicate-registration panics.
*/
package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes Prometheus counters for the API.
type Metrics struct {
	registry *prometheus.Registry

	entriesCreated  *prometheus.CounterVec
	rateNotFound    *prometheus.CounterVec
	transitions     *prometheus.CounterVec
	batchSubmits    *prometheus.CounterVec
	syncRuns        *prometheus.CounterVec
	trackingReports prometheus.Counter
}

// NewMetrics registers and returns the API metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	entriesCreated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rateengine_entries_created_total",
		Help: "Ledger entries created, by kind (time_log, expense).",
	}, []string{"kind"})

	rateNotFound := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rateengine_rate_not_found_total",
		Help: "Rate resolutions refused because no entry matched, by side.",
	}, []string{"side"})

	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rateengine_status_transitions_total",
		Help: "Entry status transitions, by target status and outcome.",
	}, []string{"to", "outcome"})

	batchSubmits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rateengine_batch_submits_total",
		Help: "Batch submissions, by outcome (committed, rolled_back).",
	}, []string{"outcome"})

	syncRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rateengine_template_sync_runs_total",
		Help: "Template sync runs, by outcome (clean, partial).",
	}, []string{"outcome"})

	trackingReports := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rateengine_tracking_reports_total",
		Help: "Cost tracking reports generated.",
	})

	registry.MustRegister(
		entriesCreated,
		rateNotFound,
		transitions,
		batchSubmits,
		syncRuns,
		trackingReports,
	)

	return &Metrics{
		registry:        registry,
		entriesCreated:  entriesCreated,
		rateNotFound:    rateNotFound,
		transitions:     transitions,
		batchSubmits:    batchSubmits,
		syncRuns:        syncRuns,
		trackingReports: trackingReports,
	}
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) EntryCreated(kind string) {
	m.entriesCreated.WithLabelValues(kind).Inc()
}

func (m *Metrics) RateNotFound(side string) {
	m.rateNotFound.WithLabelValues(side).Inc()
}

func (m *Metrics) Transition(to, outcome string) {
	m.transitions.WithLabelValues(to, outcome).Inc()
}

func (m *Metrics) BatchSubmit(outcome string) {
	m.batchSubmits.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SyncRun(outcome string) {
	m.syncRuns.WithLabelValues(outcome).Inc()
}

func (m *Metrics) TrackingReport() {
	m.trackingReports.Inc()
}
