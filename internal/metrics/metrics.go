package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics (serve mode status surface)
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_indexer_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_indexer_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_indexer_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_indexer_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBTransactionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_indexer_db_transaction_duration_seconds",
			Help:    "Database transaction duration in seconds",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		},
		[]string{"outcome"},
	)

	DBRowsAffected = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_indexer_db_rows_affected",
			Help:    "Rows affected by bulk statements",
			Buckets: []float64{1, 10, 100, 1000, 10000, 100000},
		},
		[]string{"operation"},
	)

	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_indexer_db_connections_open",
			Help: "Number of open database connections",
		},
	)
)

// Scanner metrics
var (
	ScanRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_indexer_scan_runs_total",
			Help: "Total number of scan cycles by outcome",
		},
		[]string{"status"}, // "success", "error", "cancelled"
	)

	ScanIsRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_indexer_scan_running",
			Help: "Whether a scan cycle is currently running (1 = running, 0 = idle)",
		},
	)

	ScanLastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_indexer_scan_last_run_timestamp",
			Help: "Unix timestamp of the last completed scan cycle",
		},
	)

	ScanLastRunDuration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_indexer_scan_last_run_duration_seconds",
			Help: "Duration of the last scan cycle in seconds",
		},
	)

	ScanFilesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_indexer_scan_files_total",
			Help: "Files reconciled by the scanner by outcome",
		},
		[]string{"outcome"}, // "created", "updated", "unchanged", "restored", "deleted", "skipped"
	)

	ScanHashDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "media_indexer_scan_hash_duration_seconds",
			Help:    "Time spent hashing a single file",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		},
	)

	ScanHashErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_indexer_scan_hash_errors_total",
			Help: "Files skipped because their content could not be hashed",
		},
	)

	ScanTagErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_indexer_scan_tag_errors_total",
			Help: "Path tag attach failures (non-fatal)",
		},
	)

	ScanTagsRemoved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_indexer_scan_tags_removed_total",
			Help: "Unused derived tags removed by cleanup",
		},
	)

	PathLabelsRebuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "media_indexer_path_labels_rebuild_duration_seconds",
			Help:    "Duration of the path label rebuild",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		},
	)
)

// Thumbnail metrics
var (
	ThumbnailRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_indexer_thumbnail_runs_total",
			Help: "Total number of thumbnail generation runs",
		},
		[]string{"type", "status"}, // type: "normal", "force"
	)

	ThumbnailGeneratorRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_indexer_thumbnail_generator_running",
			Help: "Whether the thumbnail generator is currently running (1 = running, 0 = idle)",
		},
	)

	ThumbnailItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_indexer_thumbnail_items_total",
			Help: "Media items handled by the thumbnail generator by outcome",
		},
		[]string{"status"}, // "success", "failed", "skipped"
	)

	ThumbnailEncodesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_indexer_thumbnail_encodes_total",
			Help: "Thumbnail size classes encoded",
		},
		[]string{"size", "status"},
	)

	ThumbnailGenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_indexer_thumbnail_generation_duration_seconds",
			Help:    "Per-phase thumbnail generation duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"phase"}, // "decode", "resize", "encode", "store", "flush"
	)

	ThumbnailGenerationLastDuration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_indexer_thumbnail_generation_last_duration_seconds",
			Help: "Duration of the last thumbnail generation run in seconds",
		},
	)

	ThumbnailGenerationLastTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_indexer_thumbnail_generation_last_timestamp",
			Help: "Unix timestamp of the last thumbnail generation completion",
		},
	)
)

// Filesystem metrics
var (
	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_indexer_filesystem_retry_attempts_total",
			Help: "Retries of filesystem operations after stale NFS handles",
		},
		[]string{"operation"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_indexer_filesystem_retry_failures_total",
			Help: "Filesystem operations that failed after exhausting retries",
		},
		[]string{"operation"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_indexer_filesystem_stale_errors_total",
			Help: "ESTALE errors observed",
		},
		[]string{"operation"},
	)

	FilesystemWalkErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_indexer_filesystem_walk_errors_total",
			Help: "Entries that could not be read during directory enumeration",
		},
	)
)

// Memory metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_indexer_memory_usage_ratio",
			Help: "Heap allocation as a fraction of the Go memory limit",
		},
	)

	MemoryPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_indexer_memory_paused",
			Help: "Whether thumbnail decoding is paused for memory pressure (1 = paused)",
		},
	)

	MemoryPausesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_indexer_memory_pauses_total",
			Help: "Times thumbnail decoding was paused for memory pressure",
		},
	)
)

// Store totals, refreshed by the Collector
var (
	StoreFileEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_indexer_file_entries",
			Help: "File registry rows by state",
		},
		[]string{"state"}, // "live", "deleted"
	)

	StoreMediaItems = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_indexer_media_items",
			Help: "Media index rows by media type",
		},
		[]string{"type"},
	)

	StorePendingThumbnails = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_indexer_thumbnails_pending",
			Help: "Image media items without thumbnails",
		},
	)

	StoreTags = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_indexer_tags",
			Help: "Tags by kind",
		},
		[]string{"kind"}, // "managed", "derived"
	)

	StorePathLabels = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_indexer_path_labels",
			Help: "Number of path label rows",
		},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_indexer_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
