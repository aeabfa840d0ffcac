package indexer

import (
	"context"
	"fmt"
	"time"

	"media-indexer/internal/logging"
	"media-indexer/internal/metrics"
	"media-indexer/internal/pathtag"
)

// LabelStore is what the Aggregator reads paths from and writes labels to.
type LabelStore interface {
	EachFilePath(ctx context.Context, includeDeleted bool, fn func(path string) error) error
	ReplacePathLabels(ctx context.Context, counts map[string]int) error
}

// Aggregator recomputes the path label table from the stored file paths.
type Aggregator struct {
	store          LabelStore
	includeDeleted bool
}

// NewAggregator creates an Aggregator. With includeDeleted set, soft-deleted
// entries are counted like live ones.
func NewAggregator(store LabelStore, includeDeleted bool) *Aggregator {
	return &Aggregator{store: store, includeDeleted: includeDeleted}
}

// Rebuild counts, for every directory segment name under root, the stored
// files whose path contains it, and replaces all path labels with the result.
// It returns the number of labels written.
func (a *Aggregator) Rebuild(ctx context.Context, root string) (int, error) {
	start := time.Now()
	counts := make(map[string]int)

	err := a.store.EachFilePath(ctx, a.includeDeleted, func(path string) error {
		for _, name := range pathtag.Derive(root, path) {
			counts[name]++
		}
		return ctx.Err()
	})
	if err != nil {
		return 0, fmt.Errorf("failed to read paths for label rebuild: %w", err)
	}

	if err := a.store.ReplacePathLabels(ctx, counts); err != nil {
		return 0, fmt.Errorf("failed to rebuild path labels: %w", err)
	}

	metrics.PathLabelsRebuildDuration.Observe(time.Since(start).Seconds())
	logging.Debug("Rebuilt %d path labels in %v", len(counts), time.Since(start))
	return len(counts), nil
}
