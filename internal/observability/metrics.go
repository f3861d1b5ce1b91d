package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// forecast service and the acquisition loop.
type Metrics struct {
	// API metrics.
	Requests        *prometheus.CounterVec   // labels: endpoint, outcome={ok,client_error,server_error}
	RequestDuration *prometheus.HistogramVec // labels: endpoint
	AuthFailures    prometheus.Counter

	// Forecast assembly metrics.
	DatasetLookups      *prometheus.CounterVec // labels: kind={gfs,gefs}, outcome={hit,miss}
	TimestampMismatches prometheus.Counter
	HoursSkipped        prometheus.Counter

	// Acquisition metrics.
	AcquisitionRunning prometheus.Gauge
	DownloadRetries    prometheus.Counter
	DatasetsCompleted  *prometheus.CounterVec // labels: kind={gfs,gefs}
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dataserver",
			Name:      "requests_total",
			Help:      "API requests by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dataserver",
			Name:      "request_duration_seconds",
			Help:      "API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"endpoint"}),
		AuthFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dataserver",
			Name:      "auth_failures_total",
			Help:      "Requests rejected for missing or wrong credentials.",
		}),
		DatasetLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dataserver",
			Name:      "dataset_lookups_total",
			Help:      "Dataset window resolutions by kind and outcome.",
		}, []string{"kind", "outcome"}),
		TimestampMismatches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dataserver",
			Name:      "timestamp_mismatches_total",
			Help:      "Requests served with diverging GFS and GEFS base timestamps.",
		}),
		HoursSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dataserver",
			Name:      "hours_skipped_total",
			Help:      "Dark hours skipped during scoring for missing or invalid data.",
		}),
		AcquisitionRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "dataserver",
			Name:      "acquisition_running",
			Help:      "1 when the acquisition loop is active, 0 when shut down.",
		}),
		DownloadRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dataserver",
			Name:      "download_retries_total",
			Help:      "Grid download attempts after the first.",
		}),
		DatasetsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dataserver",
			Name:      "datasets_completed_total",
			Help:      "Datasets fully downloaded and processed, by kind.",
		}, []string{"kind"}),
	}

	prometheus.MustRegister(
		m.Requests,
		m.RequestDuration,
		m.AuthFailures,
		m.DatasetLookups,
		m.TimestampMismatches,
		m.HoursSkipped,
		m.AcquisitionRunning,
		m.DownloadRetries,
		m.DatasetsCompleted,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		Requests:            prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "dataserver", Name: "requests_total"}, []string{"endpoint", "outcome"}),
		RequestDuration:     prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "dataserver", Name: "request_duration_seconds"}, []string{"endpoint"}),
		AuthFailures:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "dataserver", Name: "auth_failures_total"}),
		DatasetLookups:      prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "dataserver", Name: "dataset_lookups_total"}, []string{"kind", "outcome"}),
		TimestampMismatches: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "dataserver", Name: "timestamp_mismatches_total"}),
		HoursSkipped:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "dataserver", Name: "hours_skipped_total"}),
		AcquisitionRunning:  prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "dataserver", Name: "acquisition_running"}),
		DownloadRetries:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: "dataserver", Name: "download_retries_total"}),
		DatasetsCompleted:   prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "dataserver", Name: "datasets_completed_total"}, []string{"kind"}),
	}
}
