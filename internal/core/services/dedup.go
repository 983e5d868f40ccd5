package services

import (
	"context"
	"time"

	"github.com/custodia-labs/scengen-cli/internal/core/domain"
	"github.com/custodia-labs/scengen-cli/internal/core/ports/driven"
	"github.com/custodia-labs/scengen-cli/internal/logger"
)

// DedupConfig configures scenario deduplication.
type DedupConfig struct {
	// Threshold is the minimum similarity above which two scenarios are
	// treated as duplicates (default 0.85).
	Threshold float64

	// CompareLimit bounds comparison-string length per side
	// (default 2000 characters).
	CompareLimit int
}

// DefaultDedupConfig returns sensible defaults for deduplication.
func DefaultDedupConfig() DedupConfig {
	return DedupConfig{
		Threshold:    0.85,
		CompareLimit: 2000,
	}
}

// Deduplicator collapses near-duplicate generated scenarios from
// multiple sources into unique representatives.
//
// The result depends on input ordering: the scenario encountered first
// is always the kept representative. Callers must order sources
// deterministically (e.g. by source page order) - this is a documented
// precondition, not an implementation detail.
type Deduplicator struct {
	cfg     DedupConfig
	reports driven.ReportStore
}

// NewDeduplicator creates a deduplicator with the given configuration.
// The report store is optional; when nil, audit reports are skipped.
func NewDeduplicator(cfg DedupConfig, reports driven.ReportStore) *Deduplicator {
	defaults := DefaultDedupConfig()
	if cfg.Threshold <= 0 || cfg.Threshold > 1 {
		cfg.Threshold = defaults.Threshold
	}
	if cfg.CompareLimit <= 0 {
		cfg.CompareLimit = defaults.CompareLimit
	}
	return &Deduplicator{cfg: cfg, reports: reports}
}

// Deduplicate runs pairwise comparison over the input scenarios and
// returns the unique representatives in input order plus the duplicate
// groups. Pairwise O(n^2) comparison is acceptable at the expected
// batch sizes (tens to low hundreds of scenarios).
//
// batchID tags the audit report; it may be empty for ad hoc runs.
func (d *Deduplicator) Deduplicate(
	ctx context.Context, batchID string, items []domain.ScenarioWithSource,
) *domain.DedupResult {
	logger.Section("Scenario Deduplication")
	logger.Debug("Comparing %d scenarios at threshold %.2f", len(items), d.cfg.Threshold)

	keys := make([]string, len(items))
	for i := range items {
		keys[i] = truncate(items[i].Scenario.ComparisonKey(), d.cfg.CompareLimit)
	}

	processed := make([]bool, len(items))
	result := &domain.DedupResult{}

	for i := range items {
		if processed[i] {
			continue
		}
		processed[i] = true

		group := domain.DuplicateGroup{Kept: items[i]}
		for j := i + 1; j < len(items); j++ {
			if processed[j] {
				continue
			}
			sim := textSimilarity(keys[i], keys[j])
			if sim >= d.cfg.Threshold {
				processed[j] = true
				group.Duplicates = append(group.Duplicates, items[j])
				if sim > group.SimilarityScore {
					group.SimilarityScore = sim
				}
			}
		}

		result.Unique = append(result.Unique, items[i])
		if len(group.Duplicates) > 0 {
			result.Groups = append(result.Groups, group)
		}
	}

	logger.Info("Deduplication: %d unique, %d groups with duplicates", len(result.Unique), len(result.Groups))

	d.writeReport(ctx, batchID, result)
	return result
}

// writeReport persists the audit artifact. Reports are observational
// only, so a write failure is logged and never fails the dedup run.
func (d *Deduplicator) writeReport(ctx context.Context, batchID string, result *domain.DedupResult) {
	if d.reports == nil {
		return
	}

	report := &domain.DedupReport{
		BatchID:         batchID,
		Timestamp:       time.Now().UTC(),
		Threshold:       d.cfg.Threshold,
		DuplicateGroups: result.Groups,
	}
	if report.DuplicateGroups == nil {
		report.DuplicateGroups = []domain.DuplicateGroup{}
	}

	if err := d.reports.SaveDedupReport(ctx, report); err != nil {
		logger.Warn("Failed to write dedup report for batch %s: %v", batchID, err)
	}
}
