package driven

import (
	"context"

	"github.com/custodia-labs/scengen-cli/internal/core/domain"
)

// Provider invokes a text-generation model.
//
// Implementations may include:
//   - Ollama (local models)
//   - OpenAI-compatible APIs (hosted or local inference servers)
//
// Availability is a selection-time concern: callers Ping a provider once
// when choosing it, not before every call. Profile defaults are exposed
// as capability methods so callers never inspect the concrete type.
type Provider interface {
	// Chat sends a system/user message sequence and returns the
	// completion with model id and token usage.
	Chat(ctx context.Context, messages []ChatMessage, opts ChatOptions) (*domain.GenerationResult, error)

	// Ping validates the provider is reachable by making a lightweight
	// request. Used once at provider-selection time.
	Ping(ctx context.Context) error

	// ModelName returns the default model identifier.
	ModelName() string

	// PrimaryProfile returns the provider's default generation profile.
	PrimaryProfile() domain.GenerationProfile

	// FallbackProfile returns the stricter profile used when a primary
	// attempt fails or yields nothing usable.
	FallbackProfile() domain.GenerationProfile

	// Close releases resources.
	Close() error
}

// ChatMessage represents a single message in a conversation.
type ChatMessage struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the message text.
	Content string
}

// ChatOptions configures one chat completion.
type ChatOptions struct {
	// Model overrides the provider's default model when non-empty.
	Model string

	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic).
	Temperature float64

	// JSONMode requests a structured JSON response when the provider
	// supports a response-format flag.
	JSONMode bool
}
