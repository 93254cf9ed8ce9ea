package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/JakeFAU/webextract/internal/crawler"
)

// JobStore is the in-process job registry. Each job is held as an immutable
// snapshot behind an atomic pointer: readers load the pointer without
// waiting on writers, and writers build a new snapshot before swapping it in.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]*jobEntry
}

type jobEntry struct {
	write sync.Mutex
	snap  atomic.Pointer[crawler.Job]
}

// NewJobStore constructs a JobStore.
func NewJobStore() *JobStore {
	return &JobStore{jobs: make(map[string]*jobEntry)}
}

// CreateJob registers a new job.
func (s *JobStore) CreateJob(_ context.Context, job crawler.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; exists {
		return fmt.Errorf("create job %s: %w", job.ID, crawler.ErrJobExists)
	}
	e := &jobEntry{}
	cp := job.Clone()
	e.snap.Store(&cp)
	s.jobs[job.ID] = e
	return nil
}

// GetJob returns the latest snapshot of a job.
func (s *JobStore) GetJob(_ context.Context, jobID string) (crawler.Job, error) {
	e, ok := s.entry(jobID)
	if !ok {
		return crawler.Job{}, fmt.Errorf("get job %s: %w", jobID, crawler.ErrJobNotFound)
	}
	return e.snap.Load().Clone(), nil
}

// UpdateJob applies fn to a copy of the job and publishes the copy when fn
// succeeds. Progress never moves backwards while the job is running and a
// terminal job cannot change status.
func (s *JobStore) UpdateJob(_ context.Context, jobID string, fn func(*crawler.Job) error) error {
	e, ok := s.entry(jobID)
	if !ok {
		return fmt.Errorf("update job %s: %w", jobID, crawler.ErrJobNotFound)
	}
	e.write.Lock()
	defer e.write.Unlock()

	prev := e.snap.Load()
	next := prev.Clone()
	if err := fn(&next); err != nil {
		return err
	}
	next.ID = prev.ID
	if prev.Status.Terminal() && next.Status != prev.Status {
		return fmt.Errorf("update job %s: %w", jobID, crawler.ErrJobFinished)
	}
	next.Progress = clampProgress(next.Progress)
	if next.Status == crawler.JobStatusRunning && next.Progress < prev.Progress {
		next.Progress = prev.Progress
	}
	e.snap.Store(&next)
	return nil
}

// DeleteJob removes a job. A running task notices on its next lookup.
func (s *JobStore) DeleteJob(_ context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[jobID]; !ok {
		return fmt.Errorf("delete job %s: %w", jobID, crawler.ErrJobNotFound)
	}
	delete(s.jobs, jobID)
	return nil
}

// ListJobs returns every job, oldest first.
func (s *JobStore) ListJobs(_ context.Context) ([]crawler.Job, error) {
	s.mu.RLock()
	out := make([]crawler.Job, 0, len(s.jobs))
	for _, e := range s.jobs {
		out = append(out, *e.snap.Load())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Sweep deletes terminal jobs that finished more than ttl before now and
// returns how many were removed.
func (s *JobStore) Sweep(now time.Time, ttl time.Duration) int {
	cutoff := now.Add(-ttl)
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, e := range s.jobs {
		job := e.snap.Load()
		if !job.Status.Terminal() {
			continue
		}
		finished := job.CreatedAt
		if job.FinishedAt != nil {
			finished = *job.FinishedAt
		}
		if finished.Before(cutoff) {
			delete(s.jobs, id)
			removed++
		}
	}
	return removed
}

func (s *JobStore) entry(jobID string) (*jobEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.jobs[jobID]
	return e, ok
}

func clampProgress(p int) int {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}
