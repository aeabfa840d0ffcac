package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"media-indexer/internal/database"
	"media-indexer/internal/filesystem"
	"media-indexer/internal/hasher"
	"media-indexer/internal/logging"
	"media-indexer/internal/mediatypes"
	"media-indexer/internal/metrics"
	"media-indexer/internal/startup"
)

// maxReportedErrors caps ScanReport.Errors; ErrorCount keeps the total.
const maxReportedErrors = 100

// ErrScanInProgress is returned when Run is called while a cycle is running.
var ErrScanInProgress = errors.New("scan already in progress")

// Store is the subset of the record store the scanner writes to.
type Store interface {
	GetFileEntry(ctx context.Context, path string) (*database.FileEntry, error)
	InsertFileEntry(ctx context.Context, f *database.FileEntry) error
	UpdateFileContent(ctx context.Context, f *database.FileEntry) error
	TouchFileEntry(ctx context.Context, id, lastSeen int64) error
	MarkStaleFiles(ctx context.Context, scanTimestamp int64) (int64, error)

	GetOrCreateMediaItem(ctx context.Context, hash string, mediaType mediatypes.MediaType, displayName string) (*database.MediaItem, bool, error)
	UpgradeUndefinedMediaType(ctx context.Context, id int64, mediaType mediatypes.MediaType) (bool, error)

	EnsureTag(ctx context.Context, name string) (*database.Tag, error)
	AttachTag(ctx context.Context, mediaItemID, tagID int64) error
	DeleteUnusedTags(ctx context.Context) (int64, error)

	LabelStore
}

// Options configures a Scanner.
type Options struct {
	// Workers is the number of files reconciled concurrently. Values below 2
	// run sequentially.
	Workers int
	// Ignore skips matching paths during enumeration.
	Ignore *filesystem.IgnoreMatcher
	// Retry is the NFS retry policy for stat calls.
	Retry filesystem.RetryConfig
	// PathLabelsIncludeDeleted counts soft-deleted entries in path labels.
	PathLabelsIncludeDeleted bool
	// Now overrides the clock; used by tests.
	Now func() time.Time
}

// ScanReport summarizes one scan cycle.
type ScanReport struct {
	RunID             string        `json:"runId"`
	Root              string        `json:"root"`
	StartedAt         time.Time     `json:"startedAt"`
	ScanTimestamp     int64         `json:"scanTimestamp"`
	FilesSeen         int           `json:"filesSeen"`
	FilesCreated      int           `json:"filesCreated"`
	FilesUpdated      int           `json:"filesUpdated"`
	FilesUnchanged    int           `json:"filesUnchanged"`
	FilesRestored     int           `json:"filesRestored"`
	FilesSkipped      int           `json:"filesSkipped"`
	FilesDeleted      int64         `json:"filesDeleted"`
	MediaItemsCreated int           `json:"mediaItemsCreated"`
	TagsRemoved       int64         `json:"tagsRemoved"`
	PathLabels        int           `json:"pathLabels"`
	ErrorCount        int           `json:"errorCount"`
	Errors            []string      `json:"errors,omitempty"`
	Duration          time.Duration `json:"duration"`

	// StaleMarkingSkipped is set when part of the tree could not be read,
	// so entries not seen this cycle were left as they were.
	StaleMarkingSkipped bool `json:"staleMarkingSkipped,omitempty"`
}

// Scanner reconciles a directory tree with the record store.
type Scanner struct {
	store      Store
	hasher     hasher.Hasher
	aggregator *Aggregator
	opts       Options
	running    atomic.Bool

	// lastTimestamp keeps scan timestamps strictly increasing across cycles
	// started within the same second.
	lastTimestamp int64
}

// New creates a Scanner.
func New(store Store, h hasher.Hasher, opts Options) *Scanner {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Scanner{
		store:      store,
		hasher:     h,
		aggregator: NewAggregator(store, opts.PathLabelsIncludeDeleted),
		opts:       opts,
	}
}

// IsRunning reports whether a cycle is in progress.
func (s *Scanner) IsRunning() bool {
	return s.running.Load()
}

// tally accumulates per-file outcomes; safe for concurrent workers.
type tally struct {
	seen, created, updated, unchanged, restored, skipped, mediaCreated atomic.Int64

	// incomplete is set when the walk skipped an unreadable entry.
	incomplete atomic.Bool

	mu     sync.Mutex
	errors []string
	count  int
}

func (t *tally) recordError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	t.mu.Lock()
	defer t.mu.Unlock()
	t.count++
	if len(t.errors) < maxReportedErrors {
		t.errors = append(t.errors, msg)
	}
}

func (t *tally) fill(r *ScanReport) {
	r.FilesSeen = int(t.seen.Load())
	r.FilesCreated = int(t.created.Load())
	r.FilesUpdated = int(t.updated.Load())
	r.FilesUnchanged = int(t.unchanged.Load())
	r.FilesRestored = int(t.restored.Load())
	r.FilesSkipped = int(t.skipped.Load())
	r.MediaItemsCreated = int(t.mediaCreated.Load())

	t.mu.Lock()
	r.Errors = append([]string(nil), t.errors...)
	r.ErrorCount = t.count
	t.mu.Unlock()
}

// Run performs one full scan cycle of root.
//
// A cancelled ctx or a record store failure on file entries or media items
// ends the cycle before stale marking, tag cleanup and the path label
// rebuild. The partial report is returned together with the error.
func (s *Scanner) Run(ctx context.Context, root string) (*ScanReport, error) {
	root, err := startup.ValidateRoot(root)
	if err != nil {
		return nil, err
	}

	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrScanInProgress
	}
	defer s.running.Store(false)

	metrics.ScanIsRunning.Set(1)
	defer metrics.ScanIsRunning.Set(0)

	started := s.opts.Now()
	scanTimestamp := started.UTC().Unix()
	if scanTimestamp <= s.lastTimestamp {
		scanTimestamp = s.lastTimestamp + 1
	}
	s.lastTimestamp = scanTimestamp

	report := &ScanReport{
		RunID:         uuid.NewString(),
		Root:          root,
		StartedAt:     started,
		ScanTimestamp: scanTimestamp,
	}
	log := logging.WithFields(logging.Fields{"run": report.RunID})
	log.Infof("Starting scan of %s", root)

	t := &tally{}
	state := newRunState()

	err = s.reconcileAll(ctx, root, report.ScanTimestamp, state, t)
	if err == nil {
		err = s.cleanup(ctx, root, report, t)
	}

	t.fill(report)
	report.Duration = time.Since(started)
	s.recordMetrics(ctx, report, err)

	if err != nil {
		if ctx.Err() != nil {
			log.Warnf("Scan cancelled after %d files: %v", report.FilesSeen, err)
		} else {
			log.Errorf("Scan failed after %d files: %v", report.FilesSeen, err)
		}
		return report, err
	}

	log.Infof("Scan complete in %v: %d seen, %d created, %d updated, %d unchanged, %d restored, %d deleted, %d skipped",
		report.Duration.Round(time.Millisecond), report.FilesSeen, report.FilesCreated, report.FilesUpdated,
		report.FilesUnchanged, report.FilesRestored, report.FilesDeleted, report.FilesSkipped)
	return report, nil
}

func (s *Scanner) reconcileAll(ctx context.Context, root string, scanTimestamp int64, state *runState, t *tally) error {
	walkOpts := filesystem.WalkOptions{
		Ignore: s.opts.Ignore,
		Retry:  s.opts.Retry,
		OnError: func(path string, err error) {
			t.incomplete.Store(true)
			t.recordError("walk %s: %v", path, err)
		},
	}

	if s.opts.Workers > 1 {
		return s.reconcileParallel(ctx, root, scanTimestamp, walkOpts, state, t)
	}

	err := filesystem.WalkFiles(ctx, root, walkOpts, func(path string, info os.FileInfo) error {
		return s.reconcileFile(ctx, root, path, info, scanTimestamp, state, t)
	})
	if err != nil {
		return fmt.Errorf("scan of %s aborted: %w", root, err)
	}
	return nil
}

// cleanup runs the post-walk passes: stale marking, unused tag removal and
// the path label rebuild. Stale marking is skipped when the walk could not
// read part of the tree.
func (s *Scanner) cleanup(ctx context.Context, root string, report *ScanReport, t *tally) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if t.incomplete.Load() {
		logging.Warn("Walk of %s was incomplete, not marking unseen files as deleted", root)
		report.StaleMarkingSkipped = true
	} else {
		deleted, err := s.store.MarkStaleFiles(ctx, report.ScanTimestamp)
		if err != nil {
			return err
		}
		report.FilesDeleted = deleted
	}

	removed, err := s.store.DeleteUnusedTags(ctx)
	if err != nil {
		logging.Error("Tag cleanup failed: %v", err)
		t.recordError("tag cleanup: %v", err)
	}
	report.TagsRemoved = removed

	labels, err := s.aggregator.Rebuild(ctx, root)
	if err != nil {
		return err
	}
	report.PathLabels = labels
	return nil
}

func (s *Scanner) recordMetrics(ctx context.Context, report *ScanReport, err error) {
	status := "success"
	switch {
	case err != nil && ctx.Err() != nil:
		status = "cancelled"
	case err != nil:
		status = "error"
	}
	metrics.ScanRunsTotal.WithLabelValues(status).Inc()

	metrics.ScanFilesTotal.WithLabelValues("created").Add(float64(report.FilesCreated))
	metrics.ScanFilesTotal.WithLabelValues("updated").Add(float64(report.FilesUpdated))
	metrics.ScanFilesTotal.WithLabelValues("unchanged").Add(float64(report.FilesUnchanged))
	metrics.ScanFilesTotal.WithLabelValues("restored").Add(float64(report.FilesRestored))
	metrics.ScanFilesTotal.WithLabelValues("deleted").Add(float64(report.FilesDeleted))
	metrics.ScanFilesTotal.WithLabelValues("skipped").Add(float64(report.FilesSkipped))
	metrics.ScanTagsRemoved.Add(float64(report.TagsRemoved))

	if err == nil {
		metrics.ScanLastRunTimestamp.Set(float64(time.Now().Unix()))
		metrics.ScanLastRunDuration.Set(report.Duration.Seconds())
	}
}
