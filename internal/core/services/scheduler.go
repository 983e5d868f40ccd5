package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/custodia-labs/scengen-cli/internal/core/domain"
	"github.com/custodia-labs/scengen-cli/internal/core/ports/driven"
	"github.com/custodia-labs/scengen-cli/internal/logger"
)

// SchedulerConfig configures sub-job scheduling.
type SchedulerConfig struct {
	// Concurrency is the maximum number of sub-jobs running at once
	// (default 3).
	Concurrency int
}

// DefaultSchedulerConfig returns sensible defaults for scheduling.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{Concurrency: 3}
}

// SubJobFunc performs the work of one sub-job and returns its scenarios.
type SubJobFunc func(ctx context.Context, job *domain.SubJob) ([]domain.Scenario, error)

// Scheduler fans sub-jobs out to a bounded pool of workers. Failures
// are isolated per sub-job: one failure never aborts siblings, and a
// cancelled batch stops unstarted sub-jobs while letting in-flight ones
// finish and persist.
type Scheduler struct {
	cfg  SchedulerConfig
	jobs driven.JobStore
}

// NewScheduler creates a scheduler backed by the given job store.
func NewScheduler(cfg SchedulerConfig, jobs driven.JobStore) *Scheduler {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultSchedulerConfig().Concurrency
	}
	return &Scheduler{cfg: cfg, jobs: jobs}
}

// Run executes every sub-job id with at most Concurrency in flight and
// blocks until all have resolved. Each sub-job's status transitions are
// persisted as they happen (processing, then completed/failed/cancelled),
// so an observer polling the store sees live progress.
//
// Run itself errors only on store failures when loading sub-jobs, and
// even then it waits for already-launched workers before returning;
// per-job work errors are recorded on the sub-job record.
func (s *Scheduler) Run(ctx context.Context, jobIDs []string, work SubJobFunc) error {
	logger.Section("Sub-job Scheduling")
	logger.Info("Running %d sub-jobs with concurrency %d", len(jobIDs), s.cfg.Concurrency)

	sem := semaphore.NewWeighted(int64(s.cfg.Concurrency))
	var wg sync.WaitGroup

	for _, id := range jobIDs {
		job, err := s.jobs.GetSubJob(ctx, id)
		if err != nil {
			// Drain in-flight workers so no goroutine outlives Run.
			wg.Wait()
			return fmt.Errorf("load sub-job %s: %w", id, err)
		}

		// Acquire with the batch context: cancellation stops jobs that
		// have not started yet.
		if err := sem.Acquire(ctx, 1); err != nil {
			s.markCancelled(job)
			continue
		}
		if ctx.Err() != nil {
			sem.Release(1)
			s.markCancelled(job)
			continue
		}

		wg.Add(1)
		go func(job *domain.SubJob) {
			defer wg.Done()
			defer sem.Release(1)
			s.runOne(ctx, job, work)
		}(job)
	}

	wg.Wait()
	return nil
}

// runOne drives a single sub-job through its lifecycle. The work runs
// under a detached context so a batch cancellation never interrupts an
// in-flight provider call; the sub-job completes and persists normally.
func (s *Scheduler) runOne(ctx context.Context, job *domain.SubJob, work SubJobFunc) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Sub-job %s panicked: %v", job.ID, r)
			job.Status = domain.SubJobFailed
			job.Error = fmt.Sprintf("panic: %v", r)
			job.FinishedAt = time.Now().UTC()
			s.persist(job)
		}
	}()

	job.Status = domain.SubJobProcessing
	job.StartedAt = time.Now().UTC()
	s.persist(job)

	workCtx := context.WithoutCancel(ctx)
	results, err := work(workCtx, job)

	job.FinishedAt = time.Now().UTC()
	if err != nil {
		logger.Warn("Sub-job %s failed: %v", job.ID, err)
		job.Status = domain.SubJobFailed
		job.Error = err.Error()
	} else {
		job.Status = domain.SubJobCompleted
		job.Results = results
		logger.Debug("Sub-job %s completed with %d scenarios", job.ID, len(results))
	}
	s.persist(job)
}

// markCancelled records that a sub-job never started.
func (s *Scheduler) markCancelled(job *domain.SubJob) {
	job.Status = domain.SubJobCancelled
	job.FinishedAt = time.Now().UTC()
	s.persist(job)
}

// persist writes job state under a fresh context so terminal states are
// saved even after the batch context is gone. Store failures here are
// logged, not fatal: the in-memory state is still correct for callers
// holding the batch.
func (s *Scheduler) persist(job *domain.SubJob) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.jobs.SaveSubJob(ctx, job); err != nil {
		logger.Warn("Failed to persist sub-job %s: %v", job.ID, err)
	}
}
