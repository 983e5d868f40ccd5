package driving

import (
	"context"

	"github.com/custodia-labs/scengen-cli/internal/core/domain"
)

// ModuleAggregationInput collects everything a module-level aggregation
// run needs. Sources must be supplied in a deterministic order (e.g.
// source page order): deduplication keeps the first-seen representative,
// so input ordering is part of the contract.
type ModuleAggregationInput struct {
	// ModuleID identifies the module being aggregated.
	ModuleID string

	// ModuleName is the human-readable module title for prompts.
	ModuleName string

	// BatchID links the run to a batch record for the dedup audit trail
	// and result persistence. May be empty for ad hoc runs.
	BatchID string

	// Sources are the page-level scenarios under the module.
	Sources []domain.ScenarioWithSource
}

// ProjectAggregationInput collects everything a project-level
// aggregation run needs. The same deterministic-ordering contract as
// ModuleAggregationInput applies to Sources.
type ProjectAggregationInput struct {
	// ProjectID identifies the project being aggregated.
	ProjectID string

	// ProjectName is the human-readable project title for prompts.
	ProjectName string

	// BatchID links the run to a batch record. May be empty.
	BatchID string

	// Sources are the module-level scenarios across every module.
	Sources []domain.ScenarioWithSource

	// Requirements rank reference-manual chunks when a manual is
	// present. May be empty; ranking then degrades to text similarity
	// against the source scenarios.
	Requirements []domain.Requirement

	// ManualKey and ManualText identify the project reference manual.
	// FallbackManualKey/FallbackManualText are the linked source-document
	// manual used when no project-specific manual exists.
	ManualKey          string
	ManualText         string
	FallbackManualKey  string
	FallbackManualText string
}

// Aggregator orchestrates the three-level pipeline: page-level
// generation feeds module-level aggregation, which feeds project-level
// aggregation. Each level is independently retryable - a module-level
// failure never invalidates persisted page-level results.
type Aggregator interface {
	// CollectPageScenarios gathers completed page-level results of a
	// batch in sub-job order, wrapped with provenance.
	CollectPageScenarios(ctx context.Context, batchID string) ([]domain.ScenarioWithSource, error)

	// RunModuleLevel deduplicates page-level sources and generates
	// cross-page scenarios for one module. Empty sources short-circuit
	// to an empty completed result without invoking the provider.
	RunModuleLevel(ctx context.Context, in ModuleAggregationInput) (*domain.AggregationResult, error)

	// RunProjectLevel deduplicates module-level sources across modules,
	// optionally prepends reference-manual context, and generates
	// cross-module scenarios.
	RunProjectLevel(ctx context.Context, in ProjectAggregationInput) (*domain.AggregationResult, error)
}
