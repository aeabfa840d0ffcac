package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"media-indexer/internal/mediatypes"
	"media-indexer/internal/metrics"
)

const mediaItemColumns = "id, content_hash, media_type, has_thumbnail, display_name"

func scanMediaItem(row interface{ Scan(...any) error }) (*MediaItem, error) {
	var (
		m           MediaItem
		mediaType   string
		displayName sql.NullString
	)
	if err := row.Scan(&m.ID, &m.ContentHash, &mediaType, &m.HasThumbnail, &displayName); err != nil {
		return nil, err
	}
	m.MediaType = mediatypes.MediaType(mediaType)
	if displayName.Valid {
		m.DisplayName = displayName.String
	}
	return &m, nil
}

// GetMediaItemByHash returns the media item for a content hash, or ErrNotFound.
func (d *Database) GetMediaItemByHash(ctx context.Context, hash string) (*MediaItem, error) {
	done := observeQuery("get_media_item")

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	m, err := scanMediaItem(d.db.QueryRowContext(ctx, d.rebind(
		"SELECT "+mediaItemColumns+" FROM media_item WHERE content_hash = ?"), hash))
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrNotFound
	}
	done(err)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// GetOrCreateMediaItem returns the media item for hash, creating it with the
// given type and display name when absent. created reports whether this call
// inserted the row. Concurrent callers for the same hash get the same row.
func (d *Database) GetOrCreateMediaItem(ctx context.Context, hash string, mediaType mediatypes.MediaType, displayName string) (item *MediaItem, created bool, err error) {
	done := observeQuery("get_or_create_media_item")
	defer func() { done(err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var name any
	if displayName != "" {
		name = displayName
	}

	result, err := d.db.ExecContext(ctx, d.rebind(`
		INSERT INTO media_item (content_hash, media_type, has_thumbnail, display_name)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (content_hash) DO NOTHING`),
		hash, string(mediaType), false, name,
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create media item %s: %w", hash, err)
	}
	if n, raErr := result.RowsAffected(); raErr == nil && n > 0 {
		created = true
	}

	item, err = scanMediaItem(d.db.QueryRowContext(ctx, d.rebind(
		"SELECT "+mediaItemColumns+" FROM media_item WHERE content_hash = ?"), hash))
	if err != nil {
		return nil, false, fmt.Errorf("failed to load media item %s: %w", hash, err)
	}
	return item, created, nil
}

// UpgradeUndefinedMediaType sets the type of an item still stored as
// undefined. Items with a known type are left alone.
func (d *Database) UpgradeUndefinedMediaType(ctx context.Context, id int64, mediaType mediatypes.MediaType) (bool, error) {
	done := observeQuery("upgrade_media_type")

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	result, err := d.db.ExecContext(ctx, d.rebind(
		"UPDATE media_item SET media_type = ? WHERE id = ? AND media_type = ?"),
		string(mediaType), id, string(mediatypes.TypeUndefined),
	)
	if err != nil {
		done(err)
		return false, fmt.Errorf("failed to upgrade media type for item %d: %w", id, err)
	}
	n, err := result.RowsAffected()
	done(err)
	return n > 0, err
}

// ListThumbnailCandidates returns up to limit image items with id > afterID,
// ordered by id. Unless force is set only items without thumbnails are
// returned.
func (d *Database) ListThumbnailCandidates(ctx context.Context, afterID int64, limit int, force bool) ([]MediaItem, error) {
	done := observeQuery("list_thumbnail_candidates")

	query := "SELECT " + mediaItemColumns + " FROM media_item WHERE media_type = ? AND id > ?"
	args := []any{string(mediatypes.TypeImage), afterID}
	if !force {
		query += " AND has_thumbnail = ?"
		args = append(args, false)
	}
	query += " ORDER BY id LIMIT ?"
	args = append(args, limit)

	rows, err := d.db.QueryContext(ctx, d.rebind(query), args...)
	if err != nil {
		done(err)
		return nil, fmt.Errorf("failed to list thumbnail candidates: %w", err)
	}
	defer rows.Close()

	var items []MediaItem
	for rows.Next() {
		m, err := scanMediaItem(rows)
		if err != nil {
			done(err)
			return nil, err
		}
		items = append(items, *m)
	}
	err = rows.Err()
	done(err)
	return items, err
}

// MarkThumbnails sets has_thumbnail on every id in one transaction.
func (d *Database) MarkThumbnails(ctx context.Context, ids []int64) (err error) {
	if len(ids) == 0 {
		return nil
	}

	done := observeQuery("mark_thumbnails")
	defer func() { done(err) }()

	batch, err := d.BeginBatch(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin thumbnail batch: %w", err)
	}

	stmt, err := batch.tx.PrepareContext(ctx, d.rebind("UPDATE media_item SET has_thumbnail = ? WHERE id = ?"))
	if err != nil {
		return d.EndBatch(batch, err)
	}
	defer stmt.Close()

	for _, id := range ids {
		if _, err = stmt.ExecContext(ctx, true, id); err != nil {
			return d.EndBatch(batch, fmt.Errorf("failed to flag media item %d: %w", id, err))
		}
	}

	metrics.DBRowsAffected.WithLabelValues("mark_thumbnails").Observe(float64(len(ids)))
	return d.EndBatch(batch, nil)
}

// CountMediaItems returns the number of media items.
func (d *Database) CountMediaItems(ctx context.Context) (int, error) {
	var n int
	err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM media_item").Scan(&n)
	return n, err
}
