// Package scheduler runs named jobs on fixed intervals and on demand.
package scheduler

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"media-indexer/internal/logging"
)

// Job is a periodic task. Runs of one job never overlap.
type Job struct {
	Name     string
	Interval time.Duration
	// RunAtStart runs the job once as soon as the scheduler starts.
	RunAtStart bool
	// Jobs sharing a non-empty Group never run at the same time.
	Group string
	Run   func(ctx context.Context) error
}

// JobStatus is a snapshot of a job's history.
type JobStatus struct {
	Name       string        `json:"name"`
	Interval   time.Duration `json:"interval"`
	Running    bool          `json:"running"`
	Runs       int           `json:"runs"`
	LastStart  time.Time     `json:"lastStart,omitempty"`
	LastFinish time.Time     `json:"lastFinish,omitempty"`
	LastError  string        `json:"lastError,omitempty"`
}

type jobState struct {
	job     Job
	trigger chan struct{}
	// group holds one token while any job of the group runs. Nil when
	// the job has no group.
	group chan struct{}

	mu     sync.Mutex
	status JobStatus
}

// Scheduler owns one goroutine per job.
type Scheduler struct {
	jobs map[string]*jobState

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Scheduler for jobs. Names must be unique.
func New(jobs ...Job) *Scheduler {
	s := &Scheduler{jobs: make(map[string]*jobState, len(jobs))}
	groups := make(map[string]chan struct{})
	for _, j := range jobs {
		st := &jobState{
			job:     j,
			trigger: make(chan struct{}, 1),
			status:  JobStatus{Name: j.Name, Interval: j.Interval},
		}
		if j.Group != "" {
			if groups[j.Group] == nil {
				groups[j.Group] = make(chan struct{}, 1)
			}
			st.group = groups[j.Group]
		}
		s.jobs[j.Name] = st
	}
	return s
}

// Start launches the job loops. They stop when ctx is done or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	for _, st := range s.jobs {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.loop(ctx, st)
		}()
	}
}

// Stop cancels running jobs and waits for every loop to exit.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

// Trigger requests an immediate run of the named job. A request made while
// one is already pending is merged into it. It reports whether the job exists.
func (s *Scheduler) Trigger(name string) bool {
	st, ok := s.jobs[name]
	if !ok {
		return false
	}
	select {
	case st.trigger <- struct{}{}:
	default:
	}
	return true
}

// Status returns a snapshot of every job, ordered by name.
func (s *Scheduler) Status() []JobStatus {
	out := make([]JobStatus, 0, len(s.jobs))
	for _, st := range s.jobs {
		st.mu.Lock()
		out = append(out, st.status)
		st.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// JobStatus returns the snapshot of one job.
func (s *Scheduler) JobStatus(name string) (JobStatus, bool) {
	st, ok := s.jobs[name]
	if !ok {
		return JobStatus{}, false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.status, true
}

func (s *Scheduler) loop(ctx context.Context, st *jobState) {
	if st.job.RunAtStart {
		s.runOnce(ctx, st)
	}

	var tick <-chan time.Time
	if st.job.Interval > 0 {
		ticker := time.NewTicker(st.job.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			logging.Debug("Periodic %s triggered", st.job.Name)
			s.runOnce(ctx, st)
		case <-st.trigger:
			logging.Debug("Manual %s triggered", st.job.Name)
			s.runOnce(ctx, st)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, st *jobState) {
	if ctx.Err() != nil {
		return
	}

	if st.group != nil {
		select {
		case st.group <- struct{}{}:
		case <-ctx.Done():
			return
		}
		defer func() { <-st.group }()
		if ctx.Err() != nil {
			return
		}
	}

	st.mu.Lock()
	st.status.Running = true
	st.status.LastStart = time.Now()
	st.mu.Unlock()

	err := st.job.Run(ctx)

	st.mu.Lock()
	st.status.Running = false
	st.status.Runs++
	st.status.LastFinish = time.Now()
	st.status.LastError = ""
	if err != nil {
		st.status.LastError = err.Error()
	}
	st.mu.Unlock()

	if err != nil && !errors.Is(err, context.Canceled) {
		logging.Error("%s failed: %v", st.job.Name, err)
	}
}
