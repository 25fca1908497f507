package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Metrics holds the Prometheus counters and histograms for one batch run.
// Each run registers into its own registry; run-to-completion commands
// push the registry to a Pushgateway rather than serving /metrics.
type Metrics struct {
	registry *prometheus.Registry

	FilesDiscovered prometheus.Counter
	FilesSucceeded  prometheus.Counter
	FilesFailed     prometheus.Counter
	RowsWritten     prometheus.Counter
	BatchDuration   prometheus.Histogram

	// Transfer metrics.
	FilesTransferred prometheus.Counter
	FilesSkipped     prometheus.Counter
	TransferErrors   prometheus.Counter
}

// NewMetrics creates and registers all pipeline metrics. The private
// registry keeps repeated construction (tests, multiple runs in-process)
// from panicking on duplicate registration.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		FilesDiscovered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vpts_etl",
			Name:      "files_discovered_total",
			Help:      "Profile files selected for processing.",
		}),
		FilesSucceeded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vpts_etl",
			Name:      "files_succeeded_total",
			Help:      "Profile files extracted and normalized without error.",
		}),
		FilesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vpts_etl",
			Name:      "files_failed_total",
			Help:      "Profile files skipped due to extraction or normalization errors.",
		}),
		RowsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vpts_etl",
			Name:      "rows_written_total",
			Help:      "Normalized rows in the committed output table.",
		}),
		BatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "vpts_etl",
			Name:      "batch_duration_seconds",
			Help:      "Duration of a complete discover-extract-normalize-write run.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
		}),
		FilesTransferred: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vpts_etl",
			Name:      "files_transferred_total",
			Help:      "Profile files uploaded to the destination bucket.",
		}),
		FilesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vpts_etl",
			Name:      "files_skipped_total",
			Help:      "Remote files already present at the destination.",
		}),
		TransferErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vpts_etl",
			Name:      "transfer_errors_total",
			Help:      "Per-file transfer failures.",
		}),
	}

	m.registry.MustRegister(
		m.FilesDiscovered,
		m.FilesSucceeded,
		m.FilesFailed,
		m.RowsWritten,
		m.BatchDuration,
		m.FilesTransferred,
		m.FilesSkipped,
		m.TransferErrors,
	)
	return m
}

// Push sends the registry to a Pushgateway under the given job name.
// No-op when url is empty.
func (m *Metrics) Push(url, job string) error {
	if url == "" {
		return nil
	}
	return push.New(url, job).Gatherer(m.registry).Push()
}
