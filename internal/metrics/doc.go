// Package metrics provides Prometheus instrumentation for the media indexer.
//
// All metrics are registered with the default registry through promauto and
// are prefixed with "media_indexer_". They are exposed on /metrics when the
// indexer runs in serve mode.
//
// # Metric Categories
//
// ## Scanner Metrics
//
//   - ScanRunsTotal: Counter of scan cycles by status (success/error/cancelled)
//   - ScanFilesTotal: Counter of reconciled files by outcome
//   - ScanHashErrors, ScanTagErrors: Counters of per-file failures
//   - ScanIsRunning, ScanLastRunTimestamp, ScanLastRunDuration: run state gauges
//   - PathLabelsRebuildDuration: Histogram of the label aggregate rebuild
//
// ## Thumbnail Metrics
//
//   - ThumbnailRunsTotal: Counter of generation runs by type (normal/force)
//   - ThumbnailItemsTotal: Counter of media items by status
//   - ThumbnailEncodesTotal: Counter of encoded size classes
//   - ThumbnailGenerationDuration: Histogram by phase (decode/resize/encode/store)
//
// ## Database Metrics
//
//   - DBQueryTotal, DBQueryDuration: per-operation query counters and latency
//   - DBTransactionDuration: batch transaction duration by outcome
//   - DBRowsAffected: rows touched by bulk statements such as stale marking
//
// ## Store Totals
//
// Refreshed periodically by a [Collector] from a [StatsProvider]:
//
//	collector := metrics.NewCollector(db, time.Minute)
//	collector.Start()
//	defer collector.Stop()
//
// # Prometheus Queries
//
// Files deleted per scan cycle:
//
//	increase(media_indexer_scan_files_total{outcome="deleted"}[1h]) /
//	increase(media_indexer_scan_runs_total[1h])
//
// P95 per-file hash time:
//
//	histogram_quantile(0.95, sum(rate(media_indexer_scan_hash_duration_seconds_bucket[5m])) by (le))
package metrics
