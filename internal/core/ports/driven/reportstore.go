package driven

import (
	"context"

	"github.com/custodia-labs/scengen-cli/internal/core/domain"
)

// ReportStore persists deduplication audit reports. Reports are purely
// observational: the pipeline writes them once per dedup invocation and
// never reads them back; only status tooling does.
type ReportStore interface {
	// SaveDedupReport persists one dedup audit report.
	SaveDedupReport(ctx context.Context, report *domain.DedupReport) error

	// ListDedupReports returns the reports recorded for a batch,
	// oldest first.
	ListDedupReports(ctx context.Context, batchID string) ([]domain.DedupReport, error)
}
