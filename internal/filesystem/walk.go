package filesystem

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"media-indexer/internal/logging"
	"media-indexer/internal/metrics"
)

// WalkFunc receives each regular file found under the root.
type WalkFunc func(path string, info os.FileInfo) error

// WalkOptions tunes WalkFiles.
type WalkOptions struct {
	Ignore *IgnoreMatcher
	Retry  RetryConfig

	// OnError, if set, is told about every entry the walk had to skip
	// because it could not be read.
	OnError func(path string, err error)
}

func (o WalkOptions) skipped(path string, err error) {
	metrics.FilesystemWalkErrors.Inc()
	if o.OnError != nil {
		o.OnError(path, err)
	}
}

// WalkFiles enumerates regular files under root. Symlinks and other
// non-regular entries are skipped, as are entries matched by opts.Ignore.
// Unreadable entries below the root are logged, reported to opts.OnError and
// skipped. An unreadable root, a context cancellation or an error from fn
// ends the walk.
func WalkFiles(ctx context.Context, root string, opts WalkOptions, fn WalkFunc) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err != nil {
			if path == root {
				return err
			}
			logging.Warn("Skipping unreadable entry %s: %v", path, err)
			opts.skipped(path, err)
			return nil
		}

		if path != root {
			rel, relErr := filepath.Rel(root, path)
			if relErr == nil && opts.Ignore.Ignored(rel, d.IsDir()) {
				logging.Debug("Ignoring %s", path)
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
		}

		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		info, err := StatWithRetry(ctx, path, opts.Retry)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			logging.Warn("Skipping %s: %v", path, err)
			opts.skipped(path, err)
			return nil
		}

		return fn(path, info)
	})
}
