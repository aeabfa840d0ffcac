package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"media-indexer/internal/database"
	"media-indexer/internal/filesystem"
	"media-indexer/internal/hasher"
	"media-indexer/internal/indexer"
	"media-indexer/internal/logging"
	"media-indexer/internal/runlock"
	"media-indexer/internal/startup"
	"media-indexer/internal/thumbnail"
	"media-indexer/internal/workers"
)

// app holds the resources shared by every command: the run lock and the
// record store. Close releases both.
type app struct {
	cfg  *startup.Config
	lock *runlock.Lock
	db   *database.Database
	vips bool
}

func openApp(ctx context.Context, cfg *startup.Config) (*app, error) {
	if err := startup.PrepareDatabaseDir(cfg); err != nil {
		return nil, err
	}

	lockPath := cfg.LockPath()
	if err := startup.EnsureDirectory(filepath.Dir(lockPath), "lock"); err != nil {
		return nil, fmt.Errorf("lock directory error: %w", err)
	}
	lock, err := runlock.Acquire(lockPath)
	if errors.Is(err, runlock.ErrLocked) {
		return nil, fmt.Errorf("another media-indexer process holds %s", lockPath)
	}
	if err != nil {
		return nil, err
	}

	dbStart := time.Now()
	db, err := database.New(ctx, database.Options{
		Driver: cfg.DatabaseDriver,
		Path:   cfg.DatabasePath(),
		DSN:    cfg.DatabaseDSN,
	})
	if err != nil {
		_ = lock.Release()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	startup.LogDatabaseInit(cfg.DatabaseDriver, time.Since(dbStart))

	return &app{cfg: cfg, lock: lock, db: db}, nil
}

func (a *app) Close() {
	if a.vips {
		thumbnail.StopVips()
	}
	if err := a.db.Close(); err != nil {
		logging.Warn("Failed to close database: %v", err)
	}
	if err := a.lock.Release(); err != nil {
		logging.Warn("Failed to release run lock: %v", err)
	}
}

func (a *app) newScanner() *indexer.Scanner {
	return indexer.New(a.db, hasher.New(), indexer.Options{
		Workers:                  workers.Resolve(int(a.cfg.IndexWorkers), workers.ForIO, 0),
		Ignore:                   filesystem.NewIgnoreMatcher(a.cfg.IgnorePatterns),
		Retry:                    filesystem.DefaultRetryConfig(),
		PathLabelsIncludeDeleted: a.cfg.PathLabelsIncludeDeleted,
	})
}

func (a *app) newGenerator(ctx context.Context, throttle thumbnail.Throttle) (*thumbnail.Generator, error) {
	store, err := a.newThumbnailStore(ctx)
	if err != nil {
		return nil, err
	}

	var decoder thumbnail.Decoder = thumbnail.NewImagingDecoder()
	if a.cfg.VIPSEnabled {
		if !a.vips {
			thumbnail.StartVips()
			a.vips = true
		}
		decoder = thumbnail.VipsDecoder{}
	}

	return thumbnail.NewGenerator(a.db, store, decoder, thumbnail.Options{
		Workers:  workers.Resolve(int(a.cfg.ThumbnailWorkers), workers.ForCPU, 0),
		Throttle: throttle,
	}), nil
}

func (a *app) newThumbnailStore(ctx context.Context) (thumbnail.Store, error) {
	if a.cfg.ThumbnailStore == startup.StoreS3 {
		return thumbnail.NewS3Store(ctx, thumbnail.S3Options{
			Bucket:    a.cfg.S3.Bucket,
			Prefix:    a.cfg.S3.Prefix,
			Region:    a.cfg.S3.Region,
			Endpoint:  a.cfg.S3.Endpoint,
			AccessKey: a.cfg.S3.AccessKey,
			SecretKey: a.cfg.S3.SecretKey,
		})
	}
	return thumbnail.NewLocalStore(a.cfg.ThumbnailDir)
}

func runScan(ctx context.Context, cfg *startup.Config) (*indexer.ScanReport, error) {
	a, err := openApp(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer a.Close()

	return a.newScanner().Run(ctx, cfg.MediaDir)
}

func runThumbnails(ctx context.Context, cfg *startup.Config, force bool) (*thumbnail.Report, error) {
	a, err := openApp(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer a.Close()

	gen, err := a.newGenerator(ctx, nil)
	if err != nil {
		return nil, err
	}
	return gen.GenerateAll(ctx, force)
}

func printScanReport(w io.Writer, r *indexer.ScanReport) {
	fmt.Fprintf(w, "scan %s of %s\n", r.RunID, r.Root)
	fmt.Fprintf(w, "  seen:        %d\n", r.FilesSeen)
	fmt.Fprintf(w, "  created:     %d\n", r.FilesCreated)
	fmt.Fprintf(w, "  updated:     %d\n", r.FilesUpdated)
	fmt.Fprintf(w, "  unchanged:   %d\n", r.FilesUnchanged)
	fmt.Fprintf(w, "  restored:    %d\n", r.FilesRestored)
	fmt.Fprintf(w, "  deleted:     %d\n", r.FilesDeleted)
	fmt.Fprintf(w, "  skipped:     %d\n", r.FilesSkipped)
	fmt.Fprintf(w, "  new items:   %d\n", r.MediaItemsCreated)
	fmt.Fprintf(w, "  tags pruned: %d\n", r.TagsRemoved)
	fmt.Fprintf(w, "  path labels: %d\n", r.PathLabels)
	fmt.Fprintf(w, "  duration:    %v\n", r.Duration.Round(time.Millisecond))
	printErrors(w, r.ErrorCount, r.Errors)
}

func printThumbnailReport(w io.Writer, r *thumbnail.Report) {
	fmt.Fprintf(w, "thumbnails %s (force=%v)\n", r.RunID, r.Force)
	fmt.Fprintf(w, "  processed: %d\n", r.Processed)
	fmt.Fprintf(w, "  succeeded: %d\n", r.Succeeded)
	fmt.Fprintf(w, "  skipped:   %d\n", r.Skipped)
	fmt.Fprintf(w, "  failed:    %d\n", r.Failed)
	fmt.Fprintf(w, "  encoded:   %d\n", r.Encoded)
	fmt.Fprintf(w, "  duration:  %v\n", r.Duration.Round(time.Millisecond))
	printErrors(w, r.ErrorCount, r.Errors)
}

func printErrors(w io.Writer, count int, errs []string) {
	if count == 0 {
		return
	}
	fmt.Fprintf(w, "  errors:    %d\n", count)
	for _, e := range errs {
		fmt.Fprintf(w, "    %s\n", e)
	}
	if count > len(errs) {
		fmt.Fprintf(w, "    ... %d more\n", count-len(errs))
	}
}
