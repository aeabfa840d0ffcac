package handlers

import (
	"context"
	"time"

	"media-indexer/internal/metrics"
	"media-indexer/internal/scheduler"
)

// Scheduler job names.
const (
	JobScan       = "scan"
	JobThumbnails = "thumbnails"
)

// Store is the record store surface the handlers read.
type Store interface {
	GetStats(ctx context.Context) (metrics.Stats, error)
	Ping(ctx context.Context) error
}

// Jobs is the scheduler surface the handlers drive.
type Jobs interface {
	Trigger(name string) bool
	Status() []scheduler.JobStatus
}

type Handlers struct {
	store   Store
	jobs    Jobs
	history *History
	started time.Time
}

func New(store Store, jobs Jobs, history *History) *Handlers {
	return &Handlers{
		store:   store,
		jobs:    jobs,
		history: history,
		started: time.Now(),
	}
}
