package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/scengen-cli/internal/core/domain"
	"github.com/custodia-labs/scengen-cli/internal/core/ports/driven"
)

// Ensure ReportStore implements the interface.
var _ driven.ReportStore = (*ReportStore)(nil)

// ReportStore is an in-memory implementation of driven.ReportStore.
type ReportStore struct {
	mu      sync.RWMutex
	reports []domain.DedupReport
}

// NewReportStore creates a new in-memory report store.
func NewReportStore() *ReportStore {
	return &ReportStore{}
}

// SaveDedupReport appends a deduplication audit report.
func (s *ReportStore) SaveDedupReport(_ context.Context, report *domain.DedupReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, *report)
	return nil
}

// ListDedupReports returns the reports recorded for a batch, oldest
// first.
func (s *ReportStore) ListDedupReports(_ context.Context, batchID string) ([]domain.DedupReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.DedupReport
	for _, report := range s.reports {
		if report.BatchID == batchID {
			out = append(out, report)
		}
	}
	return out, nil
}

// Reports returns a copy of every saved report, oldest first.
func (s *ReportStore) Reports() []domain.DedupReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.DedupReport, len(s.reports))
	copy(out, s.reports)
	return out
}
