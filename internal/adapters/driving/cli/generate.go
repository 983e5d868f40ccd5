package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/scengen-cli/internal/core/domain"
	"github.com/custodia-labs/scengen-cli/internal/core/ports/driving"
)

var (
	generateOutput   string
	generatePageOnly bool
)

var generateCmd = &cobra.Command{
	Use:   "generate [input-file]",
	Short: "Run the full generation pipeline from an input manifest",
	Long: `Runs page-level scenario generation for every page in the input
manifest, then aggregates the results into module-level and
project-level scenarios.

The manifest is a JSON file:

  {
    "project": {"id": "shop", "name": "Web Shop"},
    "modules": [
      {"id": "checkout", "name": "Checkout", "pages": [
        {"id": "cart", "name": "Cart", "spec_file": "specs/cart.md"},
        {"id": "payment", "name": "Payment", "spec_text": "..."}
      ]}
    ],
    "manual": {"key": "shop-manual", "file": "docs/manual.md"},
    "requirements": [{"id": "REQ-1", "title": "...", "description": "..."}]
  }

Page spec text is given inline (spec_text) or as a file path relative
to the manifest (spec_file). The reference manual and requirements are
optional; they only affect project-level aggregation.`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVarP(&generateOutput, "output", "o", "", "write the final batch status as JSON to this file")
	generateCmd.Flags().BoolVar(&generatePageOnly, "pages-only", false, "skip module and project aggregation")
	rootCmd.AddCommand(generateCmd)
}

// manifest is the on-disk input format for the generate command.
type manifest struct {
	Project        manifestTarget       `json:"project"`
	Modules        []manifestModule     `json:"modules"`
	Manual         *manifestManual      `json:"manual,omitempty"`
	FallbackManual *manifestManual      `json:"fallback_manual,omitempty"`
	Requirements   []domain.Requirement `json:"requirements,omitempty"`
}

type manifestTarget struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type manifestModule struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Pages []manifestPage `json:"pages"`
}

type manifestPage struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	SpecText string `json:"spec_text,omitempty"`
	SpecFile string `json:"spec_file,omitempty"`
}

type manifestManual struct {
	Key  string `json:"key"`
	Text string `json:"text,omitempty"`
	File string `json:"file,omitempty"`
}

func runGenerate(cmd *cobra.Command, args []string) error {
	if batchService == nil || aggregator == nil {
		return errors.New("generation services not configured")
	}

	m, baseDir, err := loadManifest(args[0])
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	inputs, pageModule, err := collectInputs(m, baseDir)
	if err != nil {
		return err
	}

	batch, err := batchService.Create(ctx, inputs)
	if err != nil {
		return fmt.Errorf("creating batch: %w", err)
	}
	cmd.Printf("Batch %s: generating scenarios for %d pages...\n", batch.ID, len(inputs))

	if err := runBatchWithProgress(ctx, cmd, batch.ID); err != nil {
		return fmt.Errorf("batch run failed: %w", err)
	}

	status, err := batchService.Status(ctx, batch.ID)
	if err != nil {
		return fmt.Errorf("reading batch status: %w", err)
	}
	cmd.Printf("Pages: %d completed, %d failed (batch %s)\n",
		status.Progress.Completed, status.Progress.Failed, status.Status)

	if !generatePageOnly {
		if err := runAggregation(ctx, cmd, m, baseDir, batch.ID, pageModule); err != nil {
			return err
		}
		// Re-read so the output includes aggregation results.
		status, err = batchService.Status(ctx, batch.ID)
		if err != nil {
			return fmt.Errorf("reading batch status: %w", err)
		}
	}

	if generateOutput != "" {
		if err := writeStatusFile(generateOutput, status); err != nil {
			return err
		}
		cmd.Printf("Results written to %s\n", generateOutput)
	}

	return nil
}

// loadManifest parses and validates the input manifest. The returned
// base directory resolves relative spec_file and manual file paths.
func loadManifest(path string) (*manifest, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("reading manifest: %w", err)
	}

	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, "", fmt.Errorf("parsing manifest: %w", err)
	}

	if len(m.Modules) == 0 {
		return nil, "", errors.New("manifest has no modules")
	}
	for _, mod := range m.Modules {
		if mod.ID == "" {
			return nil, "", errors.New("manifest module missing id")
		}
		if len(mod.Pages) == 0 {
			return nil, "", fmt.Errorf("module %q has no pages", mod.ID)
		}
		for _, page := range mod.Pages {
			if page.ID == "" {
				return nil, "", fmt.Errorf("module %q has a page without an id", mod.ID)
			}
			if page.SpecText == "" && page.SpecFile == "" {
				return nil, "", fmt.Errorf("page %q has neither spec_text nor spec_file", page.ID)
			}
		}
	}

	return &m, filepath.Dir(path), nil
}

// collectInputs flattens the manifest pages into sub-job inputs and
// records which module each page belongs to.
func collectInputs(m *manifest, baseDir string) ([]domain.SubJobInput, map[string]string, error) {
	var inputs []domain.SubJobInput
	pageModule := make(map[string]string)

	for _, mod := range m.Modules {
		for _, page := range mod.Pages {
			specText := page.SpecText
			if specText == "" {
				data, err := os.ReadFile(filepath.Join(baseDir, page.SpecFile))
				if err != nil {
					return nil, nil, fmt.Errorf("reading spec for page %q: %w", page.ID, err)
				}
				specText = string(data)
			}
			inputs = append(inputs, domain.SubJobInput{
				SourceID:     page.ID,
				SourceName:   page.Name,
				SpecText:     specText,
				Requirements: m.Requirements,
			})
			pageModule[page.ID] = mod.ID
		}
	}

	return inputs, pageModule, nil
}

// runBatchWithProgress runs the batch while printing progress updates.
func runBatchWithProgress(ctx context.Context, cmd *cobra.Command, batchID string) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- batchService.Run(ctx, batchID)
	}()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	lastDone := -1
	for {
		select {
		case err := <-errCh:
			if lastDone >= 0 {
				cmd.Println()
			}
			return err
		case <-ticker.C:
			// Best effort; status errors during the run are ignored.
			status, statusErr := batchService.Status(ctx, batchID)
			if statusErr != nil {
				continue
			}
			done := status.Progress.Completed + status.Progress.Failed
			if done > lastDone {
				cmd.Printf("\rProcessing... %d/%d pages", done, status.Progress.Total)
				lastDone = done
			}
		}
	}
}

// runAggregation runs module-level aggregation for every manifest
// module, then project-level aggregation over the module results.
func runAggregation(ctx context.Context, cmd *cobra.Command, m *manifest, baseDir, batchID string, pageModule map[string]string) error {
	pageSources, err := aggregator.CollectPageScenarios(ctx, batchID)
	if err != nil {
		return fmt.Errorf("collecting page scenarios: %w", err)
	}

	var projectSources []domain.ScenarioWithSource
	for _, mod := range m.Modules {
		var sources []domain.ScenarioWithSource
		for _, src := range pageSources {
			if pageModule[src.SourceID] == mod.ID {
				sources = append(sources, src)
			}
		}

		result, err := aggregator.RunModuleLevel(ctx, driving.ModuleAggregationInput{
			ModuleID:   mod.ID,
			ModuleName: mod.Name,
			BatchID:    batchID,
			Sources:    sources,
		})
		if err != nil {
			return fmt.Errorf("module %q aggregation: %w", mod.ID, err)
		}
		cmd.Printf("Module %s: %d scenarios (%d sources, %d duplicates removed)\n",
			mod.ID, result.TotalScenarios, result.SourceCount, result.DuplicatesRemoved)

		for _, sc := range result.Scenarios {
			projectSources = append(projectSources, domain.ScenarioWithSource{
				Scenario:   sc,
				SourceID:   mod.ID,
				SourceName: mod.Name,
			})
		}
	}

	in := driving.ProjectAggregationInput{
		ProjectID:    m.Project.ID,
		ProjectName:  m.Project.Name,
		BatchID:      batchID,
		Sources:      projectSources,
		Requirements: m.Requirements,
	}
	if err := resolveManual(m.Manual, baseDir, &in.ManualKey, &in.ManualText); err != nil {
		return err
	}
	if err := resolveManual(m.FallbackManual, baseDir, &in.FallbackManualKey, &in.FallbackManualText); err != nil {
		return err
	}

	result, err := aggregator.RunProjectLevel(ctx, in)
	if err != nil {
		return fmt.Errorf("project aggregation: %w", err)
	}
	cmd.Printf("Project %s: %d scenarios (%d sources, %d duplicates removed)\n",
		m.Project.ID, result.TotalScenarios, result.SourceCount, result.DuplicatesRemoved)

	return nil
}

// resolveManual fills key/text from a manifest manual entry, reading
// the file when text is not inline.
func resolveManual(man *manifestManual, baseDir string, key, text *string) error {
	if man == nil {
		return nil
	}
	*key = man.Key
	*text = man.Text
	if *text == "" && man.File != "" {
		data, err := os.ReadFile(filepath.Join(baseDir, man.File))
		if err != nil {
			return fmt.Errorf("reading manual %q: %w", man.Key, err)
		}
		*text = string(data)
	}
	if *key == "" && man.File != "" {
		*key = strings.TrimSuffix(filepath.Base(man.File), filepath.Ext(man.File))
	}
	return nil
}

// writeStatusFile writes the batch status as indented JSON.
func writeStatusFile(path string, status *domain.BatchStatus) error {
	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling status: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}
