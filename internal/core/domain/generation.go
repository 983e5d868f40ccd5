package domain

import "time"

// GenerationProfile configures one provider invocation.
type GenerationProfile struct {
	// Model is the provider-specific model identifier.
	Model string

	// Temperature controls randomness (0.0 = deterministic).
	Temperature float64

	// MaxTokens bounds the completion length.
	MaxTokens int

	// JSONMode requests a structured JSON response from providers
	// that support a response-format flag.
	JSONMode bool
}

// TokenUsage reports provider-side token accounting for one call.
// Providers that do not report usage leave the fields zero.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
	TotalTokens      int `json:"total_tokens,omitempty"`
}

// GenerationResult is the raw outcome of one provider call.
type GenerationResult struct {
	// Content is the completion text.
	Content string

	// Model is the model that actually served the request.
	Model string

	// Usage is the provider-reported token accounting.
	Usage TokenUsage
}

// GenerationAttempt records one provider invocation and its outcome.
// Attempts are transient: they exist for the duration of one call plus
// its fallback and are reported for observability only. A failed
// attempt is data, not an error - the pipeline continues.
type GenerationAttempt struct {
	// Profile is the generation profile the attempt ran with.
	Profile GenerationProfile

	// Success is true when the attempt produced decodable scenarios.
	Success bool

	// Scenarios holds the decoded output of a successful attempt.
	Scenarios []Scenario

	// Err is the failure cause of an unsuccessful attempt.
	Err error

	// Duration is the wall-clock time of the attempt.
	Duration time.Duration
}
