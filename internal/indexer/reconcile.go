package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"

	"media-indexer/internal/database"
	"media-indexer/internal/logging"
	"media-indexer/internal/metrics"
	"media-indexer/internal/pathtag"
)

// reconcileFile brings the record store in line with one observed file.
// It returns an error only when the cycle must stop: cancellation or a
// record store failure. Unreadable content and tag failures are recorded in
// t and the walk continues.
func (s *Scanner) reconcileFile(ctx context.Context, root, path string, info os.FileInfo, scanTimestamp int64, state *runState, t *tally) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.seen.Add(1)

	size := info.Size()
	mtime := info.ModTime().UTC().Unix()

	entry, err := s.store.GetFileEntry(ctx, path)
	switch {
	case errors.Is(err, database.ErrNotFound):
		hash, ok, err := s.hashFile(ctx, path, t)
		if !ok {
			return err
		}
		entry = &database.FileEntry{
			Path:         path,
			ContentHash:  hash,
			SizeBytes:    size,
			ModifiedTime: mtime,
			LastSeen:     scanTimestamp,
		}
		if err := s.store.InsertFileEntry(ctx, entry); err != nil {
			return err
		}
		t.created.Add(1)
		logging.Debug("New file %s", path)

	case err != nil:
		return fmt.Errorf("failed to look up %s: %w", path, err)

	case entry.SizeBytes != size || entry.ModifiedTime != mtime:
		hash, ok, err := s.hashFile(ctx, path, t)
		if !ok {
			return err
		}
		wasDeleted := entry.Deleted
		entry.ContentHash = hash
		entry.SizeBytes = size
		entry.ModifiedTime = mtime
		entry.LastSeen = scanTimestamp
		if err := s.store.UpdateFileContent(ctx, entry); err != nil {
			return err
		}
		t.updated.Add(1)
		if wasDeleted {
			t.restored.Add(1)
		}
		logging.Debug("Changed file %s", path)

	default:
		if err := s.store.TouchFileEntry(ctx, entry.ID, scanTimestamp); err != nil {
			return err
		}
		t.unchanged.Add(1)
		if entry.Deleted {
			t.restored.Add(1)
			logging.Debug("Restored file %s", path)
		}
	}

	item, created, err := state.mediaItem(ctx, s.store, entry.ContentHash, path)
	if err != nil {
		return fmt.Errorf("failed to resolve media item for %s: %w", path, err)
	}
	if created {
		t.mediaCreated.Add(1)
	}

	s.syncTags(ctx, root, path, item.ID, state, t)
	return nil
}

// hashFile returns ok=false when the file must be skipped. err is non-nil
// only when the skip was caused by cancellation.
func (s *Scanner) hashFile(ctx context.Context, path string, t *tally) (string, bool, error) {
	hash, err := s.hasher.Hash(ctx, path)
	if err == nil {
		return hash, true, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", false, ctxErr
	}

	metrics.ScanHashErrors.Inc()
	t.skipped.Add(1)
	t.recordError("hash %s: %v", path, err)
	logging.Warn("Skipping %s: %v", path, err)
	return "", false, nil
}

// syncTags attaches the directory-derived tags of path to the media item.
// Failures are logged and recorded; they never abort the cycle.
func (s *Scanner) syncTags(ctx context.Context, root, path string, mediaItemID int64, state *runState, t *tally) {
	for _, name := range pathtag.Derive(root, path) {
		tagID, err := state.tagID(ctx, s.store, name)
		if err == nil {
			err = state.attach(ctx, s.store, mediaItemID, tagID)
		}
		if err != nil {
			metrics.ScanTagErrors.Inc()
			t.recordError("tag %q on %s: %v", name, path, err)
			logging.Warn("Failed to tag %s with %q: %v", path, name, err)
		}
	}
}
