package driven

import (
	"context"

	"github.com/custodia-labs/scengen-cli/internal/core/domain"
)

// JobStore persists sub-job and batch records keyed by id.
// All writes are idempotent upserts. The store serialises writes
// per-record; each sub-job has exactly one writer at a time, so
// last-writer-wins is acceptable.
type JobStore interface {
	// SaveSubJob stores or updates a sub-job.
	SaveSubJob(ctx context.Context, job *domain.SubJob) error

	// GetSubJob retrieves a sub-job by id.
	// Returns domain.ErrNotFound if it does not exist.
	GetSubJob(ctx context.Context, id string) (*domain.SubJob, error)

	// SaveBatch stores or updates a batch record.
	SaveBatch(ctx context.Context, batch *domain.BatchJob) error

	// GetBatch retrieves a batch record by id.
	// Returns domain.ErrNotFound if it does not exist.
	GetBatch(ctx context.Context, id string) (*domain.BatchJob, error)

	// ListBatches returns every batch record, newest first.
	ListBatches(ctx context.Context) ([]domain.BatchJob, error)
}
