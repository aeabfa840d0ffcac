package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"media-indexer/internal/metrics"
)

// EnsureTag gets an existing tag or creates a new unmanaged one. An existing
// tag's managed flag is never changed. Names are case-sensitive.
func (d *Database) EnsureTag(ctx context.Context, name string) (tag *Tag, err error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("tag name cannot be empty")
	}

	done := observeQuery("ensure_tag")
	defer func() { done(err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err = d.db.ExecContext(ctx, d.rebind(
		"INSERT INTO tag (name, managed) VALUES (?, ?) ON CONFLICT (name) DO NOTHING"),
		name, false,
	); err != nil {
		return nil, fmt.Errorf("failed to create tag %q: %w", name, err)
	}

	return d.getTag(ctx, name)
}

// UpsertManagedTag creates a managed tag, or promotes an existing tag to
// managed so tag cleanup keeps it.
func (d *Database) UpsertManagedTag(ctx context.Context, name string) (*Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("tag name cannot be empty")
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := d.db.ExecContext(ctx, d.rebind(
		"INSERT INTO tag (name, managed) VALUES (?, ?) ON CONFLICT (name) DO UPDATE SET managed = excluded.managed"),
		name, true,
	); err != nil {
		return nil, fmt.Errorf("failed to upsert managed tag %q: %w", name, err)
	}

	return d.getTag(ctx, name)
}

// GetTag returns a tag by exact name, or ErrNotFound.
func (d *Database) GetTag(ctx context.Context, name string) (*Tag, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	return d.getTag(ctx, name)
}

func (d *Database) getTag(ctx context.Context, name string) (*Tag, error) {
	var tag Tag
	err := d.db.QueryRowContext(ctx, d.rebind(
		"SELECT id, name, managed FROM tag WHERE name = ?"), name,
	).Scan(&tag.ID, &tag.Name, &tag.Managed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load tag %q: %w", name, err)
	}
	return &tag, nil
}

// AttachTag associates a tag with a media item. Attaching twice is a no-op.
func (d *Database) AttachTag(ctx context.Context, mediaItemID, tagID int64) error {
	done := observeQuery("attach_tag")

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := d.db.ExecContext(ctx, d.rebind(`
		INSERT INTO media_item_tag (media_item_id, tag_id) VALUES (?, ?)
		ON CONFLICT (media_item_id, tag_id) DO NOTHING`),
		mediaItemID, tagID,
	)
	done(err)
	if err != nil {
		return fmt.Errorf("failed to attach tag %d to media item %d: %w", tagID, mediaItemID, err)
	}
	return nil
}

// TagsForMediaItem returns the tag names attached to a media item, sorted.
func (d *Database) TagsForMediaItem(ctx context.Context, mediaItemID int64) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, d.rebind(`
		SELECT t.name FROM tag t
		INNER JOIN media_item_tag mt ON mt.tag_id = t.id
		WHERE mt.media_item_id = ?
		ORDER BY t.name`), mediaItemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tags := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tags = append(tags, name)
	}
	return tags, rows.Err()
}

// DeleteUnusedTags removes unmanaged tags with no associations and returns
// how many were removed.
func (d *Database) DeleteUnusedTags(ctx context.Context) (int64, error) {
	done := observeQuery("delete_unused_tags")

	result, err := d.db.ExecContext(ctx, d.rebind(`
		DELETE FROM tag
		WHERE managed = ?
		  AND NOT EXISTS (SELECT 1 FROM media_item_tag mt WHERE mt.tag_id = tag.id)`),
		false,
	)
	if err != nil {
		done(err)
		return 0, fmt.Errorf("failed to delete unused tags: %w", err)
	}

	rows, err := result.RowsAffected()
	done(err)
	if rows > 0 {
		metrics.DBRowsAffected.WithLabelValues("delete_unused_tags").Observe(float64(rows))
	}
	return rows, err
}
