package indexer

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"media-indexer/internal/filesystem"
)

type fileJob struct {
	path string
	info os.FileInfo
}

// reconcileParallel walks root on one goroutine and reconciles files on
// s.opts.Workers goroutines. Each path is enumerated once, so at most one
// worker writes a given file entry. The first fatal error cancels the rest.
func (s *Scanner) reconcileParallel(ctx context.Context, root string, scanTimestamp int64, walkOpts filesystem.WalkOptions, state *runState, t *tally) error {
	g, gctx := errgroup.WithContext(ctx)
	jobs := make(chan fileJob, s.opts.Workers*4)

	g.Go(func() error {
		defer close(jobs)
		err := filesystem.WalkFiles(gctx, root, walkOpts, func(path string, info os.FileInfo) error {
			select {
			case jobs <- fileJob{path: path, info: info}:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
		if err != nil {
			return fmt.Errorf("scan of %s aborted: %w", root, err)
		}
		return nil
	})

	for i := 0; i < s.opts.Workers; i++ {
		g.Go(func() error {
			for job := range jobs {
				if err := s.reconcileFile(gctx, root, job.path, job.info, scanTimestamp, state, t); err != nil {
					return err
				}
			}
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		// errgroup cancels gctx on return; report the caller's cancellation.
		err = ctx.Err()
	}
	return err
}
