package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"media-indexer/internal/metrics"
)

const fileEntryColumns = "id, path, content_hash, size_bytes, modified_time, last_seen, deleted"

func scanFileEntry(row interface{ Scan(...any) error }) (*FileEntry, error) {
	var f FileEntry
	if err := row.Scan(&f.ID, &f.Path, &f.ContentHash, &f.SizeBytes, &f.ModifiedTime, &f.LastSeen, &f.Deleted); err != nil {
		return nil, err
	}
	return &f, nil
}

// GetFileEntry looks up a file entry by exact path. Soft-deleted entries are
// returned too. Returns ErrNotFound when the path has never been seen.
func (d *Database) GetFileEntry(ctx context.Context, path string) (*FileEntry, error) {
	done := observeQuery("get_file_entry")

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	f, err := scanFileEntry(d.db.QueryRowContext(ctx,
		d.rebind("SELECT "+fileEntryColumns+" FROM file_entry WHERE path = ?"), path))
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrNotFound
	}
	done(err)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// InsertFileEntry creates a new live file entry and sets its ID.
func (d *Database) InsertFileEntry(ctx context.Context, f *FileEntry) error {
	done := observeQuery("insert_file_entry")

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	err := d.db.QueryRowContext(ctx, d.rebind(`
		INSERT INTO file_entry (path, content_hash, size_bytes, modified_time, last_seen, deleted)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id`),
		f.Path, f.ContentHash, f.SizeBytes, f.ModifiedTime, f.LastSeen, false,
	).Scan(&f.ID)
	done(err)
	if err != nil {
		return fmt.Errorf("failed to insert file entry %s: %w", f.Path, err)
	}
	f.Deleted = false
	return nil
}

// UpdateFileContent records a content change: new hash, size and mtime.
// The entry is marked seen at lastSeen and undeleted.
func (d *Database) UpdateFileContent(ctx context.Context, f *FileEntry) error {
	done := observeQuery("update_file_entry")

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := d.db.ExecContext(ctx, d.rebind(`
		UPDATE file_entry
		SET content_hash = ?, size_bytes = ?, modified_time = ?, last_seen = ?, deleted = ?
		WHERE id = ?`),
		f.ContentHash, f.SizeBytes, f.ModifiedTime, f.LastSeen, false, f.ID,
	)
	done(err)
	if err != nil {
		return fmt.Errorf("failed to update file entry %s: %w", f.Path, err)
	}
	f.Deleted = false
	return nil
}

// TouchFileEntry marks an unchanged entry as seen at lastSeen and undeleted.
func (d *Database) TouchFileEntry(ctx context.Context, id, lastSeen int64) error {
	done := observeQuery("touch_file_entry")

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := d.db.ExecContext(ctx, d.rebind(
		"UPDATE file_entry SET last_seen = ?, deleted = ? WHERE id = ?"),
		lastSeen, false, id,
	)
	done(err)
	if err != nil {
		return fmt.Errorf("failed to touch file entry %d: %w", id, err)
	}
	return nil
}

// MarkStaleFiles soft-deletes every live entry not seen at scanTimestamp and
// returns how many entries changed state.
func (d *Database) MarkStaleFiles(ctx context.Context, scanTimestamp int64) (int64, error) {
	done := observeQuery("mark_stale_files")

	result, err := d.db.ExecContext(ctx, d.rebind(
		"UPDATE file_entry SET deleted = ? WHERE last_seen <> ? AND deleted = ?"),
		true, scanTimestamp, false,
	)
	if err != nil {
		done(err)
		return 0, fmt.Errorf("failed to mark stale files: %w", err)
	}

	rows, err := result.RowsAffected()
	done(err)
	if err != nil {
		return 0, err
	}
	if rows > 0 {
		metrics.DBRowsAffected.WithLabelValues("mark_stale_files").Observe(float64(rows))
	}
	return rows, nil
}

// EachFilePath streams stored paths to fn. Soft-deleted entries are included
// when includeDeleted is set.
func (d *Database) EachFilePath(ctx context.Context, includeDeleted bool, fn func(path string) error) error {
	query := "SELECT path FROM file_entry"
	var args []any
	if !includeDeleted {
		query += " WHERE deleted = ?"
		args = append(args, false)
	}

	rows, err := d.db.QueryContext(ctx, d.rebind(query), args...)
	if err != nil {
		return fmt.Errorf("failed to list file paths: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return err
		}
		if err := fn(path); err != nil {
			return err
		}
	}
	return rows.Err()
}

// FirstLiveFileForHash returns the lowest-id non-deleted entry with the given
// content hash. Returns ErrNotFound when every path is gone.
func (d *Database) FirstLiveFileForHash(ctx context.Context, hash string) (*FileEntry, error) {
	done := observeQuery("first_live_file_for_hash")

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	f, err := scanFileEntry(d.db.QueryRowContext(ctx, d.rebind(
		"SELECT "+fileEntryColumns+" FROM file_entry WHERE content_hash = ? AND deleted = ? ORDER BY id LIMIT 1"),
		hash, false))
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrNotFound
	}
	done(err)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// ListFileEntries returns every stored entry ordered by path.
func (d *Database) ListFileEntries(ctx context.Context) ([]FileEntry, error) {
	rows, err := d.db.QueryContext(ctx, "SELECT "+fileEntryColumns+" FROM file_entry ORDER BY path")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FileEntry
	for rows.Next() {
		f, err := scanFileEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *f)
	}
	return out, rows.Err()
}
