package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline collectors. promauto registers against the default registry, so
// the package is usable without wiring beyond serving promhttp in main.
var (
	FetchRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gridsync_fetch_requests_total",
		Help: "Upstream fetches by source document and result.",
	}, []string{"source", "result"})

	FetchLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gridsync_fetch_latency_seconds",
		Help:    "Upstream fetch latency by source document.",
		Buckets: prometheus.DefBuckets,
	}, []string{"source"})

	PointsDecoded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gridsync_points_decoded_total",
		Help: "Time points decoded from upstream documents by source.",
	}, []string{"source"})

	RecordsWritten = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gridsync_records_written_total",
		Help: "Composite records upserted by mode.",
	}, []string{"mode"})

	WindowsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gridsync_windows_processed_total",
		Help: "Fetch windows processed by mode.",
	}, []string{"mode"})

	UpsertErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gridsync_upsert_errors_total",
		Help: "Batch upserts that failed after write retries.",
	})

	ZoneFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gridsync_zone_failures_total",
		Help: "Zones whose processing ended with an error.",
	})
)
