package driving

import (
	"context"

	"github.com/custodia-labs/scengen-cli/internal/core/domain"
)

// BatchService runs page-level generation batches and reports their
// status. One sub-job is created per input page; sub-jobs run under
// bounded concurrency with per-job failure isolation.
type BatchService interface {
	// Create persists a new batch with one processing sub-job per input.
	Create(ctx context.Context, inputs []domain.SubJobInput) (*domain.BatchJob, error)

	// Run executes every sub-job of a batch and finalises the batch
	// state (completed, partial or failed). A missing batch record is a
	// fatal error; individual sub-job failures are not.
	Run(ctx context.Context, batchID string) error

	// Status assembles the consumer-facing view of a batch.
	Status(ctx context.Context, batchID string) (*domain.BatchStatus, error)

	// Cancel requests cooperative cancellation of a running batch.
	// Only sub-jobs that have not started are affected; in-flight
	// sub-jobs run to completion or provider timeout.
	Cancel(batchID string)
}
