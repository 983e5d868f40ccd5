package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/scengen-cli/internal/core/domain"
	"github.com/custodia-labs/scengen-cli/internal/core/ports/driven"
	"github.com/custodia-labs/scengen-cli/internal/core/ports/driving"
	"github.com/custodia-labs/scengen-cli/internal/logger"
)

// Aggregation levels as persisted on AggregationResult.
const (
	LevelPage    = "page"
	LevelModule  = "module"
	LevelProject = "project"
)

// AggregatorConfig configures the module/project aggregation levels.
type AggregatorConfig struct {
	// MinCrossRefs is the minimum number of distinct pages (module
	// level) or modules (project level) an aggregated scenario must
	// touch (default 3).
	MinCrossRefs int

	// Dedup configures source deduplication before generation.
	Dedup DedupConfig

	// Relevance configures reference-manual context selection at
	// project level.
	Relevance RelevanceConfig
}

// DefaultAggregatorConfig returns sensible defaults for aggregation.
func DefaultAggregatorConfig() AggregatorConfig {
	return AggregatorConfig{
		MinCrossRefs: 3,
		Dedup:        DefaultDedupConfig(),
		Relevance:    DefaultRelevanceConfig(),
	}
}

// HierarchicalAggregator runs the module and project aggregation levels
// on top of persisted page-level results. Levels are independently
// retryable: each run reads its sources, generates, validates and
// persists without touching lower-level records.
type HierarchicalAggregator struct {
	jobs      driven.JobStore
	chunks    driven.ChunkStore
	prompts   driven.PromptStore
	chunker   driven.DocumentChunker
	gen       *GenerationClient
	dedup     *Deduplicator
	scorer    *RelevanceScorer
	validator *CrossRefValidator
	cfg       AggregatorConfig
}

var _ driving.Aggregator = (*HierarchicalAggregator)(nil)

// NewHierarchicalAggregator wires the aggregator from its collaborators.
// chunks and chunker may be nil when no reference manual is used; the
// report store inside the deduplicator is likewise optional.
func NewHierarchicalAggregator(
	jobs driven.JobStore,
	chunks driven.ChunkStore,
	prompts driven.PromptStore,
	chunker driven.DocumentChunker,
	gen *GenerationClient,
	reports driven.ReportStore,
	cfg AggregatorConfig,
) *HierarchicalAggregator {
	defaults := DefaultAggregatorConfig()
	if cfg.MinCrossRefs <= 0 {
		cfg.MinCrossRefs = defaults.MinCrossRefs
	}
	return &HierarchicalAggregator{
		jobs:      jobs,
		chunks:    chunks,
		prompts:   prompts,
		chunker:   chunker,
		gen:       gen,
		dedup:     NewDeduplicator(cfg.Dedup, reports),
		scorer:    NewRelevanceScorer(cfg.Relevance),
		validator: NewCrossRefValidator(cfg.MinCrossRefs),
		cfg:       cfg,
	}
}

// CollectPageScenarios gathers completed page-level results of a batch
// in sub-job order, wrapped with provenance. Sub-job order is stable
// across runs, which keeps downstream deduplication deterministic.
func (a *HierarchicalAggregator) CollectPageScenarios(
	ctx context.Context, batchID string,
) ([]domain.ScenarioWithSource, error) {
	batch, err := a.jobs.GetBatch(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("load batch %s: %w", batchID, err)
	}

	var sources []domain.ScenarioWithSource
	for _, id := range batch.SubJobIDs {
		job, err := a.jobs.GetSubJob(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("load sub-job %s: %w", id, err)
		}
		if job.Status != domain.SubJobCompleted {
			continue
		}
		for _, s := range job.Results {
			sources = append(sources, domain.ScenarioWithSource{
				Scenario:    s,
				SourceID:    job.Input.SourceID,
				SourceJobID: job.ID,
				SourceName:  job.Input.SourceName,
			})
		}
	}

	logger.Debug("Collected %d page scenarios from batch %s", len(sources), batchID)
	return sources, nil
}

// RunModuleLevel deduplicates page-level sources and generates
// cross-page scenarios for one module.
func (a *HierarchicalAggregator) RunModuleLevel(
	ctx context.Context, in driving.ModuleAggregationInput,
) (*domain.AggregationResult, error) {
	logger.Section("Module Aggregation: " + in.ModuleName)

	if len(in.Sources) == 0 {
		logger.Info("Module %s has no source scenarios, skipping generation", in.ModuleID)
		return a.persistResult(ctx, in.BatchID, emptyResult(LevelModule, in.ModuleID))
	}

	dedupped := a.dedup.Deduplicate(ctx, in.BatchID, in.Sources)

	template, err := a.prompts.Load(driven.PromptModuleAggregation)
	if err != nil {
		return nil, fmt.Errorf("load module aggregation prompt: %w", err)
	}
	sourceJSON, err := marshalSources(dedupped.Unique)
	if err != nil {
		return nil, err
	}
	userPrompt := fmt.Sprintf(template, in.ModuleName, a.cfg.MinCrossRefs, sourceJSON)

	result, err := a.generateLevel(ctx, LevelModule, in.ModuleID, userPrompt, dedupped)
	if err != nil {
		return nil, err
	}
	return a.persistResult(ctx, in.BatchID, result)
}

// RunProjectLevel deduplicates module-level sources across modules,
// optionally prepends reference-manual context, and generates
// cross-module scenarios.
func (a *HierarchicalAggregator) RunProjectLevel(
	ctx context.Context, in driving.ProjectAggregationInput,
) (*domain.AggregationResult, error) {
	logger.Section("Project Aggregation: " + in.ProjectName)

	if len(in.Sources) == 0 {
		logger.Info("Project %s has no source scenarios, skipping generation", in.ProjectID)
		return a.persistResult(ctx, in.BatchID, emptyResult(LevelProject, in.ProjectID))
	}

	dedupped := a.dedup.Deduplicate(ctx, in.BatchID, in.Sources)

	manualContext, err := a.manualContext(ctx, &in)
	if err != nil {
		// Reference context is an enrichment. Generation proceeds
		// without it rather than failing the level.
		logger.Warn("Reference manual unavailable: %v", err)
		manualContext = ""
	}
	if manualContext == "" {
		manualContext = "(no reference manual available)"
	}

	template, err := a.prompts.Load(driven.PromptProjectAggregation)
	if err != nil {
		return nil, fmt.Errorf("load project aggregation prompt: %w", err)
	}
	sourceJSON, err := marshalSources(dedupped.Unique)
	if err != nil {
		return nil, err
	}
	userPrompt := fmt.Sprintf(template, in.ProjectName, a.cfg.MinCrossRefs, manualContext, sourceJSON)

	result, err := a.generateLevel(ctx, LevelProject, in.ProjectID, userPrompt, dedupped)
	if err != nil {
		return nil, err
	}
	return a.persistResult(ctx, in.BatchID, result)
}

// generateLevel invokes the provider for one aggregation level and
// validates cross-references on the output. Zero scenarios out of the
// profile chain is a completed result, not an error.
func (a *HierarchicalAggregator) generateLevel(
	ctx context.Context, level, targetID, userPrompt string, dedupped *domain.DedupResult,
) (*domain.AggregationResult, error) {
	systemPrompt, err := a.prompts.Load(driven.PromptScenarioSystem)
	if err != nil {
		return nil, fmt.Errorf("load system prompt: %w", err)
	}

	scenarios, attempts, err := a.gen.GenerateScenarios(ctx, systemPrompt, userPrompt)
	if err != nil {
		return nil, err
	}
	logger.Debug("%s level %s: %d scenarios from %d attempts", level, targetID, len(scenarios), len(attempts))

	a.validator.Validate(scenarios)
	if scenarios == nil {
		scenarios = []domain.Scenario{}
	}

	var duplicatesRemoved int
	for i := range dedupped.Groups {
		duplicatesRemoved += len(dedupped.Groups[i].Duplicates)
	}

	return &domain.AggregationResult{
		Level:             level,
		TargetID:          targetID,
		TotalScenarios:    len(scenarios),
		Scenarios:         scenarios,
		SourceCount:       len(dedupped.Unique),
		DuplicatesRemoved: duplicatesRemoved,
	}, nil
}

// manualContext builds the reference-manual context block for project
// aggregation. The project manual wins over the linked source-document
// manual; a manual under the chunking threshold is used as full text,
// larger ones are chunked (or reused from the chunk store) and
// relevance-selected against the requirements.
func (a *HierarchicalAggregator) manualContext(
	ctx context.Context, in *driving.ProjectAggregationInput,
) (string, error) {
	key, text := in.ManualKey, in.ManualText
	if text == "" {
		key, text = in.FallbackManualKey, in.FallbackManualText
	}
	if text == "" {
		return "", nil
	}

	if a.chunker == nil || !a.chunker.NeedsChunking(text) {
		return text, nil
	}

	doc, err := a.chunkedDocument(ctx, key, text)
	if err != nil {
		return "", err
	}

	reqs := in.Requirements
	if len(reqs) == 0 {
		// No requirement records: derive a ranking target from the
		// source scenarios themselves.
		reqs = requirementsFromSources(in.Sources)
	}

	selected, scores := a.scorer.Select(doc.Chunks, reqs)
	return a.scorer.ContextBlock(selected, scores), nil
}

// chunkedDocument reuses a stored chunk set when present, otherwise
// chunks the text and stores the result for the next run.
func (a *HierarchicalAggregator) chunkedDocument(
	ctx context.Context, key, text string,
) (*domain.ChunkedDocument, error) {
	if a.chunks != nil && key != "" {
		doc, err := a.chunks.GetChunkedDocument(ctx, key)
		if err == nil {
			logger.Debug("Reusing stored chunk set for %s (%d chunks)", key, len(doc.Chunks))
			return doc, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("load chunk set %s: %w", key, err)
		}
	}

	doc := a.chunker.Chunk(key, text, nil)
	if a.chunks != nil && key != "" {
		if err := a.chunks.SaveChunkedDocument(ctx, doc); err != nil {
			logger.Warn("Failed to store chunk set for %s: %v", key, err)
		}
	}
	return doc, nil
}

// persistResult appends the result to the batch record when a batch id
// is present. Ad hoc runs (empty batch id) skip persistence.
func (a *HierarchicalAggregator) persistResult(
	ctx context.Context, batchID string, result *domain.AggregationResult,
) (*domain.AggregationResult, error) {
	if batchID == "" {
		return result, nil
	}

	batch, err := a.jobs.GetBatch(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("load batch %s: %w", batchID, err)
	}

	// Re-running a level replaces its previous result for the same target.
	kept := batch.AggregationResults[:0]
	for _, r := range batch.AggregationResults {
		if r.Level != result.Level || r.TargetID != result.TargetID {
			kept = append(kept, r)
		}
	}
	batch.AggregationResults = append(kept, *result)
	batch.UpdatedAt = time.Now().UTC()

	if err := a.jobs.SaveBatch(ctx, batch); err != nil {
		return nil, fmt.Errorf("save batch %s: %w", batchID, err)
	}
	return result, nil
}

// emptyResult is the completed zero-scenario result for a level with no
// sources.
func emptyResult(level, targetID string) *domain.AggregationResult {
	return &domain.AggregationResult{
		Level:          level,
		TargetID:       targetID,
		TotalScenarios: 0,
		Scenarios:      []domain.Scenario{},
	}
}

// marshalSources renders deduplicated sources as indented JSON for
// prompt injection.
func marshalSources(sources []domain.ScenarioWithSource) (string, error) {
	data, err := json.MarshalIndent(sources, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal source scenarios: %w", err)
	}
	return string(data), nil
}

// requirementsFromSources synthesises ranking targets from source
// scenarios when no requirement records exist.
func requirementsFromSources(sources []domain.ScenarioWithSource) []domain.Requirement {
	reqs := make([]domain.Requirement, 0, len(sources))
	for i := range sources {
		s := &sources[i].Scenario
		reqs = append(reqs, domain.Requirement{
			ID:          s.TestID,
			Title:       s.Name,
			Description: s.Description,
		})
	}
	return reqs
}
