package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, status := range []string{"success", "error", "cancelled"} {
		ScanRunsTotal.WithLabelValues(status)
	}

	for _, outcome := range []string{"created", "updated", "unchanged", "restored", "deleted", "skipped"} {
		ScanFilesTotal.WithLabelValues(outcome)
	}

	for _, typ := range []string{"normal", "force"} {
		ThumbnailRunsTotal.WithLabelValues(typ, "success")
		ThumbnailRunsTotal.WithLabelValues(typ, "error")
	}

	for _, status := range []string{"success", "failed", "skipped"} {
		ThumbnailItemsTotal.WithLabelValues(status)
	}

	for _, size := range []string{"small", "medium", "large"} {
		for _, status := range []string{"encoded", "exists", "error"} {
			ThumbnailEncodesTotal.WithLabelValues(size, status)
		}
	}

	for _, phase := range []string{"decode", "resize", "encode", "store"} {
		ThumbnailGenerationDuration.WithLabelValues(phase)
	}

	for _, op := range []string{"stat", "open"} {
		FilesystemRetryAttempts.WithLabelValues(op)
		FilesystemRetryFailures.WithLabelValues(op)
		FilesystemStaleErrors.WithLabelValues(op)
	}

	for _, op := range []string{"get_file_entry", "insert_file_entry", "update_file_entry", "touch_file_entry",
		"mark_stale_files", "get_or_create_media_item", "ensure_tag", "attach_tag", "delete_unused_tags",
		"replace_path_labels", "list_thumbnail_candidates", "mark_thumbnails"} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}

	for _, outcome := range []string{"commit", "rollback"} {
		DBTransactionDuration.WithLabelValues(outcome)
	}

	for _, state := range []string{"live", "deleted"} {
		StoreFileEntries.WithLabelValues(state)
	}
	for _, kind := range []string{"managed", "derived"} {
		StoreTags.WithLabelValues(kind)
	}
}
