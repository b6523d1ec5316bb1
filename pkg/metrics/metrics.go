package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics contains the Prometheus metrics of the flow engine.
type Metrics struct {
	RunsTotal      *prometheus.CounterVec
	RunDuration    *prometheus.HistogramVec
	FilesSkipped   *prometheus.CounterVec
	DuplicateCodes *prometheus.CounterVec
	Anomalies      *prometheus.GaugeVec
	CrossListed    *prometheus.GaugeVec
	LastRunUnix    *prometheus.GaugeVec

	gatherer prometheus.Gatherer
}

// New registers the engine metrics on reg. Pass prometheus.NewRegistry() in tests.
func New(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "instflow_runs_total",
			Help: "Engine runs by market and outcome",
		}, []string{"market", "status"}),

		RunDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "instflow_run_duration_seconds",
			Help:    "Wall time of a full engine run",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"market"}),

		FilesSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "instflow_day_files_skipped_total",
			Help: "Day files that were missing or unreadable",
		}, []string{"market", "source"}),

		DuplicateCodes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "instflow_duplicate_codes_total",
			Help: "Duplicate security codes resolved by last-write-wins",
		}, []string{"market"}),

		Anomalies: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "instflow_anomalous_securities",
			Help: "Securities flagged anomalous in the latest run",
		}, []string{"market"}),

		CrossListed: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "instflow_cross_listed_securities",
			Help: "Securities on both aggregate leaderboards in the latest run",
		}, []string{"market"}),

		LastRunUnix: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "instflow_last_success_unixtime",
			Help: "Unix time of the last successful run",
		}, []string{"market"}),

		gatherer: reg,
	}
}

// Handler exposes the registry for scraping
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// RecordRun records the outcome of one engine run
func (m *Metrics) RecordRun(market string, seconds float64, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.RunsTotal.WithLabelValues(market, status).Inc()
	m.RunDuration.WithLabelValues(market).Observe(seconds)
}

// RecordSkipped adds skipped day files for a source ("flow" or "price")
func (m *Metrics) RecordSkipped(market, source string, n int) {
	if n > 0 {
		m.FilesSkipped.WithLabelValues(market, source).Add(float64(n))
	}
}

// RecordDuplicates adds duplicate codes seen during ingest
func (m *Metrics) RecordDuplicates(market string, n int) {
	if n > 0 {
		m.DuplicateCodes.WithLabelValues(market).Add(float64(n))
	}
}

// RecordResult sets the per-run gauges
func (m *Metrics) RecordResult(market string, anomalies, crossListed int, unix int64) {
	m.Anomalies.WithLabelValues(market).Set(float64(anomalies))
	m.CrossListed.WithLabelValues(market).Set(float64(crossListed))
	m.LastRunUnix.WithLabelValues(market).Set(float64(unix))
}
