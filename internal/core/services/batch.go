package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/scengen-cli/internal/core/domain"
	"github.com/custodia-labs/scengen-cli/internal/core/ports/driven"
	"github.com/custodia-labs/scengen-cli/internal/core/ports/driving"
	"github.com/custodia-labs/scengen-cli/internal/logger"
)

// BatchRunner implements the batch lifecycle: create sub-jobs, fan them
// out through the scheduler, and finalise the batch state. Cancellation
// is cooperative per batch - Cancel stops unstarted sub-jobs only.
type BatchRunner struct {
	jobs      driven.JobStore
	prompts   driven.PromptStore
	gen       *GenerationClient
	scheduler *Scheduler

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

var _ driving.BatchService = (*BatchRunner)(nil)

// NewBatchRunner wires the batch service from its collaborators.
func NewBatchRunner(
	jobs driven.JobStore,
	prompts driven.PromptStore,
	gen *GenerationClient,
	scheduler *Scheduler,
) *BatchRunner {
	return &BatchRunner{
		jobs:      jobs,
		prompts:   prompts,
		gen:       gen,
		scheduler: scheduler,
		cancels:   make(map[string]context.CancelFunc),
	}
}

// Create persists a new batch with one processing sub-job per input.
func (b *BatchRunner) Create(ctx context.Context, inputs []domain.SubJobInput) (*domain.BatchJob, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: batch needs at least one input", domain.ErrInvalidInput)
	}

	now := time.Now().UTC()
	batch := &domain.BatchJob{
		ID:        uuid.NewString(),
		Status:    domain.BatchProcessing,
		CreatedAt: now,
		UpdatedAt: now,
	}

	for _, input := range inputs {
		job := &domain.SubJob{
			ID:      uuid.NewString(),
			BatchID: batch.ID,
			Status:  domain.SubJobProcessing,
			Input:   input,
		}
		if err := b.jobs.SaveSubJob(ctx, job); err != nil {
			return nil, fmt.Errorf("save sub-job for %s: %w", input.SourceID, err)
		}
		batch.SubJobIDs = append(batch.SubJobIDs, job.ID)
	}

	if err := b.jobs.SaveBatch(ctx, batch); err != nil {
		return nil, fmt.Errorf("save batch: %w", err)
	}

	logger.Info("Created batch %s with %d sub-jobs", batch.ID, len(batch.SubJobIDs))
	return batch, nil
}

// Run executes every sub-job of a batch and finalises the batch state.
func (b *BatchRunner) Run(ctx context.Context, batchID string) error {
	batch, err := b.jobs.GetBatch(ctx, batchID)
	if err != nil {
		return fmt.Errorf("load batch %s: %w", batchID, err)
	}

	systemPrompt, err := b.prompts.Load(driven.PromptScenarioSystem)
	if err != nil {
		return fmt.Errorf("load system prompt: %w", err)
	}
	pageTemplate, err := b.prompts.Load(driven.PromptPageGeneration)
	if err != nil {
		return fmt.Errorf("load page generation prompt: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	b.registerCancel(batchID, cancel)
	defer b.unregisterCancel(batchID)

	work := func(jobCtx context.Context, job *domain.SubJob) ([]domain.Scenario, error) {
		name := job.Input.SourceName
		if name == "" {
			name = job.Input.SourceID
		}
		userPrompt := fmt.Sprintf(pageTemplate, name, job.Input.SpecText)

		scenarios, attempts, err := b.gen.GenerateScenarios(jobCtx, systemPrompt, userPrompt)
		if err != nil {
			return nil, err
		}
		// At page level an exhausted profile chain fails the sub-job:
		// a page that produced nothing has nothing to aggregate.
		if len(scenarios) == 0 {
			return nil, fmt.Errorf("%w: no scenarios after %d attempts", domain.ErrEmptyResponse, len(attempts))
		}
		logger.Debug("Page %s: %d scenarios from %d attempts", job.Input.SourceID, len(scenarios), len(attempts))
		return scenarios, nil
	}

	if err := b.scheduler.Run(runCtx, batch.SubJobIDs, work); err != nil {
		batch.Status = domain.BatchFailed
		batch.Error = err.Error()
		batch.UpdatedAt = time.Now().UTC()
		if saveErr := b.jobs.SaveBatch(context.WithoutCancel(ctx), batch); saveErr != nil {
			logger.Warn("Failed to persist failed batch %s: %v", batchID, saveErr)
		}
		return err
	}

	return b.finalise(context.WithoutCancel(ctx), batch)
}

// finalise derives the terminal batch state from its sub-job outcomes.
func (b *BatchRunner) finalise(ctx context.Context, batch *domain.BatchJob) error {
	var completed, failed int
	for _, id := range batch.SubJobIDs {
		job, err := b.jobs.GetSubJob(ctx, id)
		if err != nil {
			return fmt.Errorf("load sub-job %s: %w", id, err)
		}
		switch job.Status {
		case domain.SubJobCompleted:
			completed++
		case domain.SubJobFailed, domain.SubJobCancelled:
			failed++
		}
	}

	switch {
	case completed == len(batch.SubJobIDs):
		batch.Status = domain.BatchCompleted
	case completed > 0:
		batch.Status = domain.BatchPartial
	default:
		batch.Status = domain.BatchFailed
		batch.Error = "all sub-jobs failed or were cancelled"
	}
	batch.UpdatedAt = time.Now().UTC()

	if err := b.jobs.SaveBatch(ctx, batch); err != nil {
		return fmt.Errorf("save batch %s: %w", batch.ID, err)
	}

	logger.Info("Batch %s finished: %s (%d completed, %d failed)", batch.ID, batch.Status, completed, failed)
	return nil
}

// Status assembles the consumer-facing view of a batch.
func (b *BatchRunner) Status(ctx context.Context, batchID string) (*domain.BatchStatus, error) {
	batch, err := b.jobs.GetBatch(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("load batch %s: %w", batchID, err)
	}

	status := &domain.BatchStatus{
		BatchID:            batch.ID,
		Status:             batch.Status,
		AggregationResults: batch.AggregationResults,
	}
	status.Progress.Total = len(batch.SubJobIDs)

	for _, id := range batch.SubJobIDs {
		job, err := b.jobs.GetSubJob(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("load sub-job %s: %w", id, err)
		}
		status.SubJobs = append(status.SubJobs, *job)
		switch job.Status {
		case domain.SubJobCompleted:
			status.Progress.Completed++
		case domain.SubJobFailed, domain.SubJobCancelled:
			status.Progress.Failed++
		default:
			status.Progress.InProgress++
		}
	}

	return status, nil
}

// Cancel requests cooperative cancellation of a running batch. Unknown
// or finished batch ids are a no-op.
func (b *BatchRunner) Cancel(batchID string) {
	b.mu.Lock()
	cancel, ok := b.cancels[batchID]
	b.mu.Unlock()
	if !ok {
		return
	}
	logger.Info("Cancelling batch %s", batchID)
	cancel()
}

func (b *BatchRunner) registerCancel(batchID string, cancel context.CancelFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cancels[batchID] = cancel
}

func (b *BatchRunner) unregisterCancel(batchID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if cancel, ok := b.cancels[batchID]; ok {
		cancel()
		delete(b.cancels, batchID)
	}
}
