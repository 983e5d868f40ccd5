package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/scengen-cli/internal/core/domain"
	"github.com/custodia-labs/scengen-cli/internal/core/ports/driven"
)

// mockJobStore is an in-memory JobStore double shared by the service
// tests in this package.
type mockJobStore struct {
	mu      sync.Mutex
	subJobs map[string]domain.SubJob
	batches map[string]domain.BatchJob
}

var _ driven.JobStore = (*mockJobStore)(nil)

func newMockJobStore() *mockJobStore {
	return &mockJobStore{
		subJobs: make(map[string]domain.SubJob),
		batches: make(map[string]domain.BatchJob),
	}
}

func (m *mockJobStore) SaveSubJob(_ context.Context, job *domain.SubJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subJobs[job.ID] = *job
	return nil
}

func (m *mockJobStore) GetSubJob(_ context.Context, id string) (*domain.SubJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.subJobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &job, nil
}

func (m *mockJobStore) SaveBatch(_ context.Context, batch *domain.BatchJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches[batch.ID] = *batch
	return nil
}

func (m *mockJobStore) GetBatch(_ context.Context, id string) (*domain.BatchJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	batch, ok := m.batches[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &batch, nil
}

func (m *mockJobStore) ListBatches(_ context.Context) ([]domain.BatchJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.BatchJob, 0, len(m.batches))
	for _, batch := range m.batches {
		out = append(out, batch)
	}
	return out, nil
}

func seedSubJobs(t *testing.T, store *mockJobStore, batchID string, n int) []string {
	t.Helper()
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("sub-%03d", i)
		err := store.SaveSubJob(context.Background(), &domain.SubJob{
			ID:      ids[i],
			BatchID: batchID,
			Status:  domain.SubJobProcessing,
			Input:   domain.SubJobInput{SourceID: ids[i], SpecText: "spec"},
		})
		require.NoError(t, err)
	}
	return ids
}

func TestSchedulerBoundedConcurrency(t *testing.T) {
	store := newMockJobStore()
	ids := seedSubJobs(t, store, "batch-1", 8)

	var running, peak int32
	work := func(_ context.Context, _ *domain.SubJob) ([]domain.Scenario, error) {
		now := atomic.AddInt32(&running, 1)
		for {
			old := atomic.LoadInt32(&peak)
			if now <= old || atomic.CompareAndSwapInt32(&peak, old, now) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		return nil, nil
	}

	sched := NewScheduler(SchedulerConfig{Concurrency: 2}, store)
	require.NoError(t, sched.Run(context.Background(), ids, work))

	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
	for _, id := range ids {
		job, err := store.GetSubJob(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, domain.SubJobCompleted, job.Status)
		assert.False(t, job.FinishedAt.IsZero())
	}
}

func TestSchedulerFailureIsolation(t *testing.T) {
	store := newMockJobStore()
	ids := seedSubJobs(t, store, "batch-1", 5)

	work := func(_ context.Context, job *domain.SubJob) ([]domain.Scenario, error) {
		if job.ID == "sub-002" {
			return nil, errors.New("provider exploded")
		}
		return []domain.Scenario{{TestID: "t", Name: "n"}}, nil
	}

	sched := NewScheduler(SchedulerConfig{Concurrency: 2}, store)
	require.NoError(t, sched.Run(context.Background(), ids, work))

	var completed, failed int
	for _, id := range ids {
		job, err := store.GetSubJob(context.Background(), id)
		require.NoError(t, err)
		switch job.Status {
		case domain.SubJobCompleted:
			completed++
			assert.Len(t, job.Results, 1)
		case domain.SubJobFailed:
			failed++
			assert.Equal(t, "provider exploded", job.Error)
		}
	}
	assert.Equal(t, 4, completed)
	assert.Equal(t, 1, failed)
}

func TestSchedulerPanicRecovery(t *testing.T) {
	store := newMockJobStore()
	ids := seedSubJobs(t, store, "batch-1", 2)

	work := func(_ context.Context, job *domain.SubJob) ([]domain.Scenario, error) {
		if job.ID == "sub-000" {
			panic("boom")
		}
		return nil, nil
	}

	sched := NewScheduler(SchedulerConfig{Concurrency: 1}, store)
	require.NoError(t, sched.Run(context.Background(), ids, work))

	job, err := store.GetSubJob(context.Background(), "sub-000")
	require.NoError(t, err)
	assert.Equal(t, domain.SubJobFailed, job.Status)
	assert.Contains(t, job.Error, "panic")

	other, err := store.GetSubJob(context.Background(), "sub-001")
	require.NoError(t, err)
	assert.Equal(t, domain.SubJobCompleted, other.Status)
}

// failingJobStore fails GetSubJob for one id, passing everything else
// through to the embedded mock.
type failingJobStore struct {
	*mockJobStore
	failID string
}

func (f *failingJobStore) GetSubJob(ctx context.Context, id string) (*domain.SubJob, error) {
	if id == f.failID {
		return nil, errors.New("store unavailable")
	}
	return f.mockJobStore.GetSubJob(ctx, id)
}

func TestSchedulerStoreErrorDrainsInFlight(t *testing.T) {
	inner := newMockJobStore()
	ids := seedSubJobs(t, inner, "batch-1", 2)
	store := &failingJobStore{mockJobStore: inner, failID: ids[1]}

	var finished int32
	work := func(_ context.Context, _ *domain.SubJob) ([]domain.Scenario, error) {
		time.Sleep(20 * time.Millisecond)
		atomic.StoreInt32(&finished, 1)
		return []domain.Scenario{{TestID: "t", Name: "n"}}, nil
	}

	sched := NewScheduler(SchedulerConfig{Concurrency: 2}, store)
	err := sched.Run(context.Background(), ids, work)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store unavailable")

	// The first sub-job was launched before the store failed; Run must
	// not return while its worker is still going.
	assert.Equal(t, int32(1), atomic.LoadInt32(&finished))

	job, err := inner.GetSubJob(context.Background(), ids[0])
	require.NoError(t, err)
	assert.Equal(t, domain.SubJobCompleted, job.Status)
}

func TestSchedulerCancellation(t *testing.T) {
	store := newMockJobStore()
	ids := seedSubJobs(t, store, "batch-1", 6)

	ctx, cancel := context.WithCancel(context.Background())

	started := make(chan struct{}, 1)
	var once sync.Once
	work := func(workCtx context.Context, _ *domain.SubJob) ([]domain.Scenario, error) {
		once.Do(func() { started <- struct{}{} })
		time.Sleep(20 * time.Millisecond)
		// In-flight work runs under a detached context and completes.
		assert.NoError(t, workCtx.Err())
		return nil, nil
	}

	go func() {
		<-started
		cancel()
	}()

	sched := NewScheduler(SchedulerConfig{Concurrency: 1}, store)
	require.NoError(t, sched.Run(ctx, ids, work))

	var completed, cancelled int
	for _, id := range ids {
		job, err := store.GetSubJob(context.Background(), id)
		require.NoError(t, err)
		switch job.Status {
		case domain.SubJobCompleted:
			completed++
		case domain.SubJobCancelled:
			cancelled++
		}
	}
	assert.GreaterOrEqual(t, completed, 1, "in-flight sub-jobs finish")
	assert.GreaterOrEqual(t, cancelled, 1, "unstarted sub-jobs are cancelled")
	assert.Equal(t, len(ids), completed+cancelled)
}
