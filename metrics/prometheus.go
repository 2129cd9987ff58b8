package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for feed ingestion and the read API

var (
	// Ingestion runs
	IngestRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tennis_ingest_runs_total",
			Help: "Total number of ingestion runs by outcome",
		},
		[]string{"status"},
	)

	IngestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tennis_ingest_duration_seconds",
			Help:    "Duration of complete ingestion runs in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		},
	)

	// Rows and cells
	IngestRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tennis_ingest_rows_total",
			Help: "Total number of sheet rows processed by result",
		},
		[]string{"result"},
	)

	IngestDefaultedCellsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tennis_ingest_defaulted_cells_total",
			Help: "Cells that could not be parsed and were replaced by a default",
		},
		[]string{"kind"},
	)

	// Feed download
	FeedFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tennis_feed_fetch_duration_seconds",
			Help:    "Duration of season feed downloads in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status"},
	)

	FeedBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tennis_feed_bytes",
			Help:    "Size of downloaded season archives",
			Buckets: prometheus.ExponentialBuckets(64*1024, 2, 8),
		},
	)

	// Read API cache
	CacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tennis_api_cache_hits_total",
			Help: "Total number of read API cache hits",
		},
	)

	CacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tennis_api_cache_misses_total",
			Help: "Total number of read API cache misses",
		},
	)
)
