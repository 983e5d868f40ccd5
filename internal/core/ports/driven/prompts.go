package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files, embed them in the binary,
// or fetch them from a remote configuration service.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// If the prompt is not found, implementations should return a
	// sensible default or an error, depending on whether the prompt
	// is required.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next
	// access. Useful when prompts may have been edited on disk.
	Reload()
}

// Well-known prompt names used throughout the application.
// These constants define the contract between prompt consumers and providers.
const (
	// PromptScenarioSystem is the system prompt for all scenario
	// generation calls. No format placeholders.
	PromptScenarioSystem = "scenario_system"

	// PromptPageGeneration generates scenarios from one page's change
	// specification. Placeholders: %s (page name), %s (spec text).
	PromptPageGeneration = "page_generation"

	// PromptModuleAggregation generates cross-page scenarios from
	// page-level sources. Placeholders: %s (module name), %d (minimum
	// distinct pages per scenario), %s (source scenario JSON).
	PromptModuleAggregation = "module_aggregation"

	// PromptProjectAggregation generates cross-module scenarios from
	// module-level sources. Placeholders: %s (project name), %d (minimum
	// distinct modules per scenario), %s (reference context), %s (source
	// scenario JSON).
	PromptProjectAggregation = "project_aggregation"
)
