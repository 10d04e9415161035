package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "water_quality"

// Metrics holds the Prometheus counters and histograms for the service.
type Metrics struct {
	Classifications *prometheus.CounterVec // labels: status
	Forecasts       *prometheus.CounterVec // labels: source
	Plans           *prometheus.CounterVec // labels: outcome={reachable,unreachable,noop}
	SamplesIngested *prometheus.CounterVec // labels: origin={ingest,upstream}

	UpstreamSyncs        *prometheus.CounterVec // labels: outcome={success,error}
	UpstreamSyncDuration prometheus.Histogram

	TreatmentJobs      *prometheus.CounterVec // labels: status={queued,completed,failed,rejected}
	TreatmentJobsInFly prometheus.Gauge

	HTTPRequestDuration *prometheus.HistogramVec // labels: method, route, code
}

func newMetrics() *Metrics {
	return &Metrics{
		Classifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifications_total",
			Help:      "Samples classified, by quality class.",
		}, []string{"status"}),
		Forecasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forecasts_total",
			Help:      "Forecasts produced, by data source.",
		}, []string{"source"}),
		Plans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "treatment_estimates_total",
			Help:      "Device treatment estimates, by outcome.",
		}, []string{"outcome"}),
		SamplesIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_ingested_total",
			Help:      "Samples written to the store, by origin.",
		}, []string{"origin"}),
		UpstreamSyncs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_syncs_total",
			Help:      "Upstream mirror cycles, by outcome.",
		}, []string{"outcome"}),
		UpstreamSyncDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_sync_duration_seconds",
			Help:      "Duration of a complete upstream mirror cycle.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		TreatmentJobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "treatment_jobs_total",
			Help:      "Treatment jobs, by status transition.",
		}, []string{"status"}),
		TreatmentJobsInFly: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "treatment_jobs_running",
			Help:      "Treatment jobs currently running.",
		}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "code"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.Classifications,
		m.Forecasts,
		m.Plans,
		m.SamplesIngested,
		m.UpstreamSyncs,
		m.UpstreamSyncDuration,
		m.TreatmentJobs,
		m.TreatmentJobsInFly,
		m.HTTPRequestDuration,
	}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics registered with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() (*Metrics, *prometheus.Registry) {
	m := newMetrics()
	reg := prometheus.NewRegistry()
	reg.MustRegister(m.collectors()...)
	return m, reg
}
