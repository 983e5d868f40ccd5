package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/scengen-cli/internal/core/domain"
	"github.com/custodia-labs/scengen-cli/internal/core/ports/driven"
	"github.com/custodia-labs/scengen-cli/internal/logger"
)

// GenerationConfig configures the generation client.
type GenerationConfig struct {
	// EnableFallback retries a failed primary attempt on the provider's
	// fallback profile at temperature 0 with a JSON-only reminder.
	EnableFallback bool

	// CallTimeout bounds one provider call (default 2 minutes).
	CallTimeout time.Duration

	// MaxRetries is the number of retries per profile on transport
	// errors (default 2).
	MaxRetries int

	// RetryBaseDelay is the base for exponential backoff between
	// retries (default 500ms).
	RetryBaseDelay time.Duration

	// RateLimit throttles provider calls per second; zero disables
	// client-side rate limiting.
	RateLimit float64

	// RateBurst is the rate limiter burst size (default 1 when
	// RateLimit is set).
	RateBurst int
}

// DefaultGenerationConfig returns sensible defaults for generation.
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		EnableFallback: true,
		CallTimeout:    2 * time.Minute,
		MaxRetries:     2,
		RetryBaseDelay: 500 * time.Millisecond,
	}
}

// GenerationClient turns prompts into decoded test scenarios through a
// provider, running a primary/fallback profile chain with JSON repair.
// Profile failures are recorded as attempts, not surfaced as errors:
// a caller that receives zero scenarios and a nil error got a provider
// that answered but produced nothing usable.
type GenerationClient struct {
	provider driven.Provider
	cfg      GenerationConfig
	limiter  *rate.Limiter
}

// NewGenerationClient creates a generation client and verifies the
// provider is reachable. Returns ErrProviderUnavailable when the ping
// fails.
func NewGenerationClient(
	ctx context.Context, provider driven.Provider, cfg GenerationConfig,
) (*GenerationClient, error) {
	defaults := DefaultGenerationConfig()
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = defaults.CallTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = defaults.MaxRetries
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = defaults.RetryBaseDelay
	}

	if err := provider.Ping(ctx); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrProviderUnavailable, provider.ModelName(), err)
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &GenerationClient{provider: provider, cfg: cfg, limiter: limiter}, nil
}

// GenerateScenarios runs the primary profile and, when it fails and
// fallback is enabled, the fallback profile. It returns whatever
// scenarios were decoded plus every attempt made. An error is returned
// only for caller mistakes or context cancellation; exhausting the
// profile chain yields zero scenarios and a nil error.
func (c *GenerationClient) GenerateScenarios(
	ctx context.Context, systemPrompt, userPrompt string,
) ([]domain.Scenario, []domain.GenerationAttempt, error) {
	if userPrompt == "" {
		return nil, nil, fmt.Errorf("%w: empty user prompt", domain.ErrInvalidInput)
	}

	var attempts []domain.GenerationAttempt

	primary := c.attempt(ctx, c.provider.PrimaryProfile(), systemPrompt, userPrompt)
	attempts = append(attempts, primary)
	if primary.Success {
		return primary.Scenarios, attempts, nil
	}
	if ctx.Err() != nil {
		return nil, attempts, ctx.Err()
	}

	if !c.cfg.EnableFallback {
		logger.Warn("Generation failed and fallback is disabled: %v", primary.Err)
		return nil, attempts, nil
	}

	logger.Info("Primary profile failed (%v), retrying on fallback profile", primary.Err)
	fallbackProfile := c.provider.FallbackProfile()
	fallbackProfile.Temperature = 0
	fallbackUser := userPrompt + "\n\nRespond with JSON only. No prose, no code fences."

	fallback := c.attempt(ctx, fallbackProfile, systemPrompt, fallbackUser)
	attempts = append(attempts, fallback)
	if fallback.Success {
		return fallback.Scenarios, attempts, nil
	}
	if ctx.Err() != nil {
		return nil, attempts, ctx.Err()
	}

	logger.Warn("All generation profiles failed; last error: %v", fallback.Err)
	return nil, attempts, nil
}

// attempt runs one profile: rate-limit, call with retries, decode, and
// on decode failure repair once and decode again.
func (c *GenerationClient) attempt(
	ctx context.Context, profile domain.GenerationProfile, systemPrompt, userPrompt string,
) domain.GenerationAttempt {
	start := time.Now()
	attempt := domain.GenerationAttempt{Profile: profile}

	result, err := c.callWithRetries(ctx, profile, systemPrompt, userPrompt)
	if err != nil {
		attempt.Err = err
		attempt.Duration = time.Since(start)
		return attempt
	}

	scenarios, err := decodeScenarios(result.Content)
	if err != nil {
		logger.Debug("Strict decode failed (%v), attempting JSON repair", err)
		scenarios, err = decodeScenarios(repairJSON(result.Content))
	}
	if err != nil {
		attempt.Err = err
		attempt.Duration = time.Since(start)
		return attempt
	}

	assignTestIDs(scenarios)

	attempt.Success = true
	attempt.Scenarios = scenarios
	attempt.Duration = time.Since(start)
	logger.Debug("Decoded %d scenarios from %s in %s", len(scenarios), result.Model, attempt.Duration.Round(time.Millisecond))
	return attempt
}

// callWithRetries invokes the provider with exponential backoff on
// transport errors. Context cancellation stops the retry loop.
func (c *GenerationClient) callWithRetries(
	ctx context.Context, profile domain.GenerationProfile, systemPrompt, userPrompt string,
) (*domain.GenerationResult, error) {
	messages := make([]driven.ChatMessage, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, driven.ChatMessage{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, driven.ChatMessage{Role: "user", Content: userPrompt})

	opts := driven.ChatOptions{
		Model:       profile.Model,
		MaxTokens:   profile.MaxTokens,
		Temperature: profile.Temperature,
		JSONMode:    profile.JSONMode,
	}

	var lastErr error
	for try := 0; try <= c.cfg.MaxRetries; try++ {
		if try > 0 {
			delay := c.cfg.RetryBaseDelay << (try - 1)
			logger.Debug("Retrying provider call in %s (attempt %d/%d)", delay, try+1, c.cfg.MaxRetries+1)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
		result, err := c.provider.Chat(callCtx, messages, opts)
		cancel()

		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}
		if result == nil || result.Content == "" {
			lastErr = domain.ErrEmptyResponse
			continue
		}
		return result, nil
	}

	return nil, fmt.Errorf("provider call failed after %d attempts: %w", c.cfg.MaxRetries+1, lastErr)
}

// assignTestIDs fills in missing scenario identifiers. Generated IDs
// are UUIDs; model-supplied IDs are kept as-is.
func assignTestIDs(scenarios []domain.Scenario) {
	for i := range scenarios {
		if scenarios[i].TestID == "" {
			scenarios[i].TestID = uuid.NewString()
		}
	}
}
