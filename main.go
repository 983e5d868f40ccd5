// Command scengen generates QA test scenarios from change
// specifications and aggregates them across page, module and project
// levels.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/custodia-labs/scengen-cli/internal/adapters/driven/config/file"
	"github.com/custodia-labs/scengen-cli/internal/adapters/driven/llm/ollama"
	"github.com/custodia-labs/scengen-cli/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/scengen-cli/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/scengen-cli/internal/adapters/driving/cli"
	"github.com/custodia-labs/scengen-cli/internal/core/ports/driven"
	"github.com/custodia-labs/scengen-cli/internal/core/services"
	"github.com/custodia-labs/scengen-cli/internal/postprocessors/chunker"
)

// version is overridden at release time via -ldflags.
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := file.NewConfigStore("")
	if err != nil {
		return fmt.Errorf("opening config: %w", err)
	}

	prompts, err := file.NewPromptStore("")
	if err != nil {
		return fmt.Errorf("opening prompt store: %w", err)
	}
	if err := prompts.Watch(); err != nil {
		// Hot reload is a convenience; a broken watcher is not fatal.
		fmt.Fprintf(os.Stderr, "Warning: prompt hot reload disabled: %v\n", err)
	}
	defer prompts.Close()

	store, err := sqlite.NewStore("")
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer store.Close()

	svcs := cli.Services{
		Jobs:    store.JobStore(),
		Reports: store.ReportStore(),
	}

	// The generation stack needs a reachable provider. When the ping
	// fails, store-backed commands (status, report, batch list) still
	// work; generate reports itself as not configured.
	gen, provider, err := buildGenerationClient(context.Background(), cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: generation disabled: %v\n", err)
	} else {
		defer provider.Close()
		scheduler := services.NewScheduler(services.SchedulerConfig{
			Concurrency: cfg.GetInt(driven.ConfigSchedulerConcurrency),
		}, svcs.Jobs)
		svcs.Batch = services.NewBatchRunner(svcs.Jobs, prompts, gen, scheduler)

		aggCfg := services.DefaultAggregatorConfig()
		if threshold := cfg.GetFloat(driven.ConfigDedupThreshold); threshold > 0 {
			aggCfg.Dedup.Threshold = threshold
		}
		if budget := cfg.GetInt(driven.ConfigRelevanceTokenBudget); budget > 0 {
			aggCfg.Relevance.TokenBudget = budget
		}
		svcs.Aggregator = services.NewHierarchicalAggregator(
			svcs.Jobs, store.ChunkStore(), prompts, chunker.New(),
			gen, svcs.Reports, aggCfg,
		)
	}

	cli.SetServices(svcs)
	cli.SetVersion(version)
	return cli.Execute()
}

// buildGenerationClient constructs the configured provider and wraps
// it in a generation client. The provider type defaults to ollama.
func buildGenerationClient(ctx context.Context, cfg driven.ConfigStore) (*services.GenerationClient, driven.Provider, error) {
	var provider driven.Provider

	switch providerType := cfg.GetString(driven.ConfigProviderType); providerType {
	case "", "ollama":
		provider = ollama.New(ollama.Config{
			BaseURL:       cfg.GetString(driven.ConfigProviderBaseURL),
			Model:         cfg.GetString(driven.ConfigProviderModel),
			FallbackModel: cfg.GetString(driven.ConfigProviderFallbackModel),
			Temperature:   cfg.GetFloat(driven.ConfigProviderTemperature),
		})
	case "openai":
		var err error
		provider, err = openai.New(openai.Config{
			APIKey:        cfg.GetString(driven.ConfigProviderAPIKey),
			BaseURL:       cfg.GetString(driven.ConfigProviderBaseURL),
			Model:         cfg.GetString(driven.ConfigProviderModel),
			FallbackModel: cfg.GetString(driven.ConfigProviderFallbackModel),
			Temperature:   cfg.GetFloat(driven.ConfigProviderTemperature),
		})
		if err != nil {
			return nil, nil, err
		}
	default:
		return nil, nil, fmt.Errorf("unknown provider type %q", providerType)
	}

	gen, err := services.NewGenerationClient(ctx, provider, services.DefaultGenerationConfig())
	if err != nil {
		provider.Close()
		return nil, nil, err
	}
	return gen, provider, nil
}
