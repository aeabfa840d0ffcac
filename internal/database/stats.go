package database

import (
	"context"
	"fmt"

	"media-indexer/internal/mediatypes"
	"media-indexer/internal/metrics"
)

// GetStats returns store totals for the metrics collector and the status
// endpoint.
func (d *Database) GetStats(ctx context.Context) (metrics.Stats, error) {
	stats := metrics.Stats{MediaItemsByType: map[string]int{}}

	if err := d.db.QueryRowContext(ctx, d.rebind(`
		SELECT
			COALESCE(SUM(CASE WHEN deleted = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN deleted = ? THEN 1 ELSE 0 END), 0)
		FROM file_entry`), false, true,
	).Scan(&stats.LiveFiles, &stats.DeletedFiles); err != nil {
		return stats, fmt.Errorf("failed to count file entries: %w", err)
	}

	rows, err := d.db.QueryContext(ctx, "SELECT media_type, COUNT(*) FROM media_item GROUP BY media_type")
	if err != nil {
		return stats, fmt.Errorf("failed to count media items: %w", err)
	}
	for rows.Next() {
		var (
			typ string
			n   int
		)
		if err := rows.Scan(&typ, &n); err != nil {
			rows.Close()
			return stats, err
		}
		stats.MediaItemsByType[typ] = n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return stats, err
	}

	if err := d.db.QueryRowContext(ctx, d.rebind(
		"SELECT COUNT(*) FROM media_item WHERE media_type = ? AND has_thumbnail = ?"),
		string(mediatypes.TypeImage), false,
	).Scan(&stats.PendingThumbnails); err != nil {
		return stats, fmt.Errorf("failed to count pending thumbnails: %w", err)
	}

	if err := d.db.QueryRowContext(ctx, d.rebind(`
		SELECT
			COALESCE(SUM(CASE WHEN managed = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN managed = ? THEN 1 ELSE 0 END), 0)
		FROM tag`), true, false,
	).Scan(&stats.ManagedTags, &stats.DerivedTags); err != nil {
		return stats, fmt.Errorf("failed to count tags: %w", err)
	}

	if err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM path_label").Scan(&stats.PathLabels); err != nil {
		return stats, fmt.Errorf("failed to count path labels: %w", err)
	}

	stats.OpenConnections = d.db.Stats().OpenConnections
	return stats, nil
}
