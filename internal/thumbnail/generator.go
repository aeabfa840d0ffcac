package thumbnail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"media-indexer/internal/database"
	"media-indexer/internal/logging"
	"media-indexer/internal/metrics"
)

// DefaultBatchSize is how many items are read, and flagged, per transaction.
const DefaultBatchSize = 50

const maxReportedErrors = 100

// ErrGenerationInProgress is returned when GenerateAll is already running.
var ErrGenerationInProgress = errors.New("thumbnail generation already in progress")

// Source is the subset of the record store the generator reads and flags.
type Source interface {
	ListThumbnailCandidates(ctx context.Context, afterID int64, limit int, force bool) ([]database.MediaItem, error)
	FirstLiveFileForHash(ctx context.Context, hash string) (*database.FileEntry, error)
	MarkThumbnails(ctx context.Context, ids []int64) error
}

// Throttle delays decoding under memory pressure. *memory.Monitor
// implements it.
type Throttle interface {
	Wait(ctx context.Context) error
}

// Options configures a Generator.
type Options struct {
	Workers   int
	BatchSize int
	// Throttle, when set, is consulted before every decode.
	Throttle Throttle
}

// Report summarizes one generation run.
type Report struct {
	RunID      string        `json:"runId"`
	Force      bool          `json:"force"`
	Processed  int           `json:"processed"`
	Succeeded  int           `json:"succeeded"`
	Skipped    int           `json:"skipped"`
	Failed     int           `json:"failed"`
	Encoded    int           `json:"encoded"`
	ErrorCount int           `json:"errorCount"`
	Errors     []string      `json:"errors,omitempty"`
	Duration   time.Duration `json:"duration"`
}

func (r *Report) recordError(format string, args ...any) {
	r.ErrorCount++
	if len(r.Errors) < maxReportedErrors {
		r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	}
}

// Generator produces thumbnails for image media items.
type Generator struct {
	source  Source
	store   Store
	decoder Decoder
	opts    Options
	running atomic.Bool
}

// NewGenerator creates a Generator.
func NewGenerator(source Source, store Store, decoder Decoder, opts Options) *Generator {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Generator{source: source, store: store, decoder: decoder, opts: opts}
}

// IsRunning reports whether a run is in progress.
func (g *Generator) IsRunning() bool {
	return g.running.Load()
}

type outcome int

const (
	outcomeSucceeded outcome = iota
	outcomeSkipped
	outcomeFailed
)

type itemResult struct {
	item    database.MediaItem
	outcome outcome
	encoded int
	err     error
}

// GenerateAll processes every eligible image item. Per-item failures are
// counted and the run continues; a record store failure or cancellation ends
// the run after flagging the items already completed.
func (g *Generator) GenerateAll(ctx context.Context, force bool) (*Report, error) {
	if !g.running.CompareAndSwap(false, true) {
		return nil, ErrGenerationInProgress
	}
	defer g.running.Store(false)

	metrics.ThumbnailGeneratorRunning.Set(1)
	defer metrics.ThumbnailGeneratorRunning.Set(0)

	start := time.Now()
	report := &Report{RunID: uuid.NewString(), Force: force}
	log := logging.WithFields(logging.Fields{"run": report.RunID})
	log.Infof("Starting thumbnail generation (force=%v)", force)

	err := g.run(ctx, force, report)
	report.Duration = time.Since(start)
	g.recordMetrics(ctx, report, err)

	if err != nil {
		log.Warnf("Thumbnail generation stopped after %d items: %v", report.Processed, err)
		return report, err
	}
	log.Infof("Thumbnail generation complete in %v: %d processed, %d succeeded, %d skipped, %d failed, %d encoded",
		report.Duration.Round(time.Millisecond), report.Processed, report.Succeeded, report.Skipped, report.Failed, report.Encoded)
	return report, nil
}

func (g *Generator) run(ctx context.Context, force bool, report *Report) error {
	var afterID int64
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		items, err := g.source.ListThumbnailCandidates(ctx, afterID, g.opts.BatchSize, force)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		afterID = items[len(items)-1].ID

		results, procErr := g.processBatch(ctx, items, force)

		done := make([]int64, 0, len(results))
		for _, r := range results {
			report.Processed++
			report.Encoded += r.encoded
			switch r.outcome {
			case outcomeSucceeded:
				report.Succeeded++
				done = append(done, r.item.ID)
				metrics.ThumbnailItemsTotal.WithLabelValues("success").Inc()
			case outcomeSkipped:
				report.Skipped++
				metrics.ThumbnailItemsTotal.WithLabelValues("skipped").Inc()
			case outcomeFailed:
				report.Failed++
				report.recordError("%s: %v", r.item.ContentHash, r.err)
				metrics.ThumbnailItemsTotal.WithLabelValues("failed").Inc()
			}
		}

		// Items finished before an abort are still flagged.
		flushStart := time.Now()
		if err := g.source.MarkThumbnails(context.WithoutCancel(ctx), done); err != nil {
			return errors.Join(procErr, err)
		}
		metrics.ThumbnailGenerationDuration.WithLabelValues("flush").Observe(time.Since(flushStart).Seconds())

		if procErr != nil {
			return procErr
		}
	}
}

// processBatch handles one page, in parallel when configured. It returns the
// results of every item that reached an outcome and the first fatal error.
func (g *Generator) processBatch(ctx context.Context, items []database.MediaItem, force bool) ([]itemResult, error) {
	if g.opts.Workers <= 1 {
		results := make([]itemResult, 0, len(items))
		for _, item := range items {
			if err := ctx.Err(); err != nil {
				return results, err
			}
			r, err := g.processItem(ctx, item, force)
			if err != nil {
				return results, err
			}
			results = append(results, r)
		}
		return results, nil
	}

	var (
		mu      sync.Mutex
		results = make([]itemResult, 0, len(items))
	)
	eg, egctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.opts.Workers)
	for _, item := range items {
		eg.Go(func() error {
			if err := egctx.Err(); err != nil {
				return err
			}
			r, err := g.processItem(egctx, item, force)
			if err != nil {
				return err
			}
			mu.Lock()
			results = append(results, r)
			mu.Unlock()
			return nil
		})
	}
	err := eg.Wait()
	if err == nil {
		err = ctx.Err()
	}
	return results, err
}

// processItem returns an error only for record store failures and
// cancellation. Everything else is a per-item outcome.
func (g *Generator) processItem(ctx context.Context, item database.MediaItem, force bool) (itemResult, error) {
	res := itemResult{item: item}

	entry, err := g.source.FirstLiveFileForHash(ctx, item.ContentHash)
	if errors.Is(err, database.ErrNotFound) {
		logging.Debug("No live file for %s, skipping thumbnail", item.ContentHash)
		res.outcome = outcomeSkipped
		return res, nil
	}
	if err != nil {
		return res, err
	}

	var needed []SizeClass
	for _, size := range Sizes {
		if !force {
			exists, err := g.store.Exists(ctx, Key(size, item.ContentHash))
			if err != nil {
				return g.fail(res, entry.Path, fmt.Errorf("check %s: %w", size.Label, err)), nil
			}
			if exists {
				metrics.ThumbnailEncodesTotal.WithLabelValues(size.Label, "exists").Inc()
				continue
			}
		}
		needed = append(needed, size)
	}
	if len(needed) == 0 {
		res.outcome = outcomeSucceeded
		return res, nil
	}

	if g.opts.Throttle != nil {
		if err := g.opts.Throttle.Wait(ctx); err != nil {
			return res, err
		}
	}

	decodeStart := time.Now()
	img, err := g.decoder.Decode(ctx, entry.Path, largestWidth(needed))
	metrics.ThumbnailGenerationDuration.WithLabelValues("decode").Observe(time.Since(decodeStart).Seconds())
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return res, ctxErr
		}
		return g.fail(res, entry.Path, err), nil
	}

	for _, size := range needed {
		if err := g.writeVariant(ctx, img, size, item.ContentHash); err != nil {
			metrics.ThumbnailEncodesTotal.WithLabelValues(size.Label, "error").Inc()
			return g.fail(res, entry.Path, fmt.Errorf("%s: %w", size.Label, err)), nil
		}
		metrics.ThumbnailEncodesTotal.WithLabelValues(size.Label, "encoded").Inc()
		res.encoded++
	}

	res.outcome = outcomeSucceeded
	return res, nil
}

func (g *Generator) fail(res itemResult, path string, err error) itemResult {
	logging.Warn("Thumbnail failed for %s (%s): %v", path, res.item.ContentHash, err)
	res.outcome = outcomeFailed
	res.err = fmt.Errorf("%s: %w", path, err)
	return res
}

func (g *Generator) writeVariant(ctx context.Context, img image.Image, size SizeClass, hash string) error {
	bounds := img.Bounds()
	w, h := Dimensions(bounds.Dx(), bounds.Dy(), size.Width)

	t := time.Now()
	resized := imaging.Resize(img, w, h, imaging.Lanczos)
	metrics.ThumbnailGenerationDuration.WithLabelValues("resize").Observe(time.Since(t).Seconds())

	t = time.Now()
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(JPEGQuality)); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	metrics.ThumbnailGenerationDuration.WithLabelValues("encode").Observe(time.Since(t).Seconds())

	t = time.Now()
	if err := g.store.Put(ctx, Key(size, hash), buf.Bytes()); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	metrics.ThumbnailGenerationDuration.WithLabelValues("store").Observe(time.Since(t).Seconds())
	return nil
}

func (g *Generator) recordMetrics(ctx context.Context, report *Report, err error) {
	runType := "normal"
	if report.Force {
		runType = "force"
	}
	status := "success"
	switch {
	case err != nil && ctx.Err() != nil:
		status = "cancelled"
	case err != nil:
		status = "error"
	}
	metrics.ThumbnailRunsTotal.WithLabelValues(runType, status).Inc()

	if err == nil {
		metrics.ThumbnailGenerationLastDuration.Set(report.Duration.Seconds())
		metrics.ThumbnailGenerationLastTimestamp.Set(float64(time.Now().Unix()))
	}
}
