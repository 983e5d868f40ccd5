package cli

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/scengen-cli/internal/core/domain"
	"github.com/custodia-labs/scengen-cli/internal/core/ports/driving"
)

// stubBatchService is a canned-response BatchService double.
type stubBatchService struct {
	mu        sync.Mutex
	batch     *domain.BatchJob
	status    *domain.BatchStatus
	createErr error
	runErr    error
	statusErr error
	created   []domain.SubJobInput
	cancelled []string
}

var _ driving.BatchService = (*stubBatchService)(nil)

func (s *stubBatchService) Create(_ context.Context, inputs []domain.SubJobInput) (*domain.BatchJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.created = inputs
	if s.batch != nil {
		return s.batch, nil
	}
	ids := make([]string, len(inputs))
	for i := range inputs {
		ids[i] = fmt.Sprintf("sub-%d", i)
	}
	return &domain.BatchJob{ID: "batch-test", SubJobIDs: ids, Status: domain.BatchProcessing}, nil
}

func (s *stubBatchService) Run(_ context.Context, _ string) error {
	return s.runErr
}

func (s *stubBatchService) Status(_ context.Context, batchID string) (*domain.BatchStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.statusErr != nil {
		return nil, s.statusErr
	}
	if s.status != nil {
		return s.status, nil
	}
	return &domain.BatchStatus{BatchID: batchID, Status: domain.BatchCompleted}, nil
}

func (s *stubBatchService) Cancel(batchID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelled = append(s.cancelled, batchID)
}

// stubAggregator records aggregation calls and returns canned results.
type stubAggregator struct {
	mu            sync.Mutex
	pageSources   []domain.ScenarioWithSource
	collectErr    error
	moduleInputs  []driving.ModuleAggregationInput
	projectInputs []driving.ProjectAggregationInput
	moduleResult  *domain.AggregationResult
	projectResult *domain.AggregationResult
}

var _ driving.Aggregator = (*stubAggregator)(nil)

func (a *stubAggregator) CollectPageScenarios(_ context.Context, _ string) ([]domain.ScenarioWithSource, error) {
	if a.collectErr != nil {
		return nil, a.collectErr
	}
	return a.pageSources, nil
}

func (a *stubAggregator) RunModuleLevel(_ context.Context, in driving.ModuleAggregationInput) (*domain.AggregationResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.moduleInputs = append(a.moduleInputs, in)
	if a.moduleResult != nil {
		return a.moduleResult, nil
	}
	return &domain.AggregationResult{Level: "module", TargetID: in.ModuleID, Scenarios: []domain.Scenario{}}, nil
}

func (a *stubAggregator) RunProjectLevel(_ context.Context, in driving.ProjectAggregationInput) (*domain.AggregationResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.projectInputs = append(a.projectInputs, in)
	if a.projectResult != nil {
		return a.projectResult, nil
	}
	return &domain.AggregationResult{Level: "project", TargetID: in.ProjectID, Scenarios: []domain.Scenario{}}, nil
}
