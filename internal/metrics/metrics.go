package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Spool write-path metrics
	RecordsWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sentryflow_spool_records_written_total",
			Help: "Total number of records accepted into the in-memory batch",
		},
	)

	RecordsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sentryflow_spool_records_dropped_total",
			Help: "Total number of records dropped because the spool is saturated",
		},
	)

	FlushesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentryflow_spool_flushes_total",
			Help: "Total number of batch flush attempts by result",
		},
		[]string{"result"},
	)

	SpoolBytesWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sentryflow_spool_bytes_written_total",
			Help: "Total bytes of serialized batches published to the spool directory",
		},
	)

	SpoolFiles = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sentryflow_spool_files",
			Help: "Number of published batch files awaiting export",
		},
	)

	BatchBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sentryflow_spool_batch_bytes",
			Help:    "Size of published batch files in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
		},
	)

	// Export-path metrics
	FilesExported = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentryflow_export_files_total",
			Help: "Total number of batch files offered to the collector by status",
		},
		[]string{"status"},
	)

	ExportBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sentryflow_export_bytes_total",
			Help: "Total bytes successfully delivered to the collector",
		},
	)

	AckFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sentryflow_spool_ack_failures_total",
			Help: "Total number of acknowledged batch files that could not be deleted",
		},
	)

	// Capture metrics
	EventsGenerated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sentryflow_capture_events_total",
			Help: "Total number of events produced by the capture source",
		},
	)
)

// Flush result label values.
const (
	ResultSuccess   = "success"
	ResultSpoolFull = "spool_full"
	ResultIOError   = "io_error"
)

// Export status label values.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler { return promhttp.Handler() }
