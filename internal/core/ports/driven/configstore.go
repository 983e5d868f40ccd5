package driven

// ConfigStore provides typed access to persisted user configuration.
// Keys use dot notation (e.g. "provider.model"). Missing keys return
// the zero value from the typed accessors; callers layer their own
// defaults on top.
type ConfigStore interface {
	// Get retrieves a raw configuration value by key.
	Get(key string) (any, bool)

	// GetString retrieves a string configuration value.
	GetString(key string) string

	// GetInt retrieves an integer configuration value.
	GetInt(key string) int

	// GetFloat retrieves a floating-point configuration value.
	GetFloat(key string) float64

	// GetBool retrieves a boolean configuration value.
	GetBool(key string) bool

	// Set stores a configuration value and persists it.
	Set(key string, value any) error

	// Load re-reads configuration from the backing store.
	Load() error
}

// Well-known configuration keys.
const (
	// ConfigProviderType selects the generation provider ("ollama" or
	// "openai").
	ConfigProviderType = "provider.type"

	// ConfigProviderModel is the primary model identifier.
	ConfigProviderModel = "provider.model"

	// ConfigProviderFallbackModel is the fallback profile model.
	ConfigProviderFallbackModel = "provider.fallback_model"

	// ConfigProviderBaseURL overrides the provider API base URL.
	ConfigProviderBaseURL = "provider.base_url"

	// ConfigProviderAPIKey is the API key for hosted providers.
	ConfigProviderAPIKey = "provider.api_key"

	// ConfigProviderTemperature is the primary profile temperature.
	ConfigProviderTemperature = "provider.temperature"

	// ConfigSchedulerConcurrency bounds concurrent sub-jobs.
	ConfigSchedulerConcurrency = "scheduler.concurrency"

	// ConfigDedupThreshold is the duplicate similarity threshold.
	ConfigDedupThreshold = "dedup.threshold"

	// ConfigRelevanceTokenBudget bounds selected reference context.
	ConfigRelevanceTokenBudget = "relevance.token_budget"
)
