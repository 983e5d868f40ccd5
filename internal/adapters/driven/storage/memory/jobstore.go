// Package memory provides in-memory implementations of the storage
// ports, used for tests and ad hoc runs without a database.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/scengen-cli/internal/core/domain"
	"github.com/custodia-labs/scengen-cli/internal/core/ports/driven"
)

// Ensure JobStore implements the interface.
var _ driven.JobStore = (*JobStore)(nil)

// JobStore is an in-memory implementation of driven.JobStore.
type JobStore struct {
	mu      sync.RWMutex
	subJobs map[string]domain.SubJob
	batches map[string]domain.BatchJob
}

// NewJobStore creates a new in-memory job store.
func NewJobStore() *JobStore {
	return &JobStore{
		subJobs: make(map[string]domain.SubJob),
		batches: make(map[string]domain.BatchJob),
	}
}

// SaveSubJob stores or updates a sub-job.
func (s *JobStore) SaveSubJob(_ context.Context, job *domain.SubJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subJobs[job.ID] = *job
	return nil
}

// GetSubJob retrieves a sub-job by id.
func (s *JobStore) GetSubJob(_ context.Context, id string) (*domain.SubJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.subJobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &job, nil
}

// SaveBatch stores or updates a batch record.
func (s *JobStore) SaveBatch(_ context.Context, batch *domain.BatchJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches[batch.ID] = *batch
	return nil
}

// GetBatch retrieves a batch record by id.
func (s *JobStore) GetBatch(_ context.Context, id string) (*domain.BatchJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	batch, ok := s.batches[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &batch, nil
}

// ListBatches returns every batch record, newest first.
func (s *JobStore) ListBatches(_ context.Context) ([]domain.BatchJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.BatchJob, 0, len(s.batches))
	for _, batch := range s.batches {
		out = append(out, batch)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
