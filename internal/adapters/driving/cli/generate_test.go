package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/scengen-cli/internal/core/domain"
)

// writeManifest writes a manifest JSON file into a temp dir and
// returns its path.
func writeManifest(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

const validManifest = `{
  "project": {"id": "shop", "name": "Web Shop"},
  "modules": [
    {"id": "checkout", "name": "Checkout", "pages": [
      {"id": "cart", "name": "Cart", "spec_text": "The cart page changes."},
      {"id": "payment", "name": "Payment", "spec_text": "The payment page changes."}
    ]},
    {"id": "orders", "name": "Orders", "pages": [
      {"id": "history", "name": "Order History", "spec_text": "The history page changes."}
    ]}
  ]
}`

func pageSourcesForManifest() []domain.ScenarioWithSource {
	return []domain.ScenarioWithSource{
		{Scenario: domain.Scenario{TestID: "t1", Name: "Cart check"}, SourceID: "cart", SourceName: "Cart"},
		{Scenario: domain.Scenario{TestID: "t2", Name: "Payment check"}, SourceID: "payment", SourceName: "Payment"},
		{Scenario: domain.Scenario{TestID: "t3", Name: "History check"}, SourceID: "history", SourceName: "Order History"},
	}
}

func TestGenerateCmd_FullPipeline(t *testing.T) {
	svc := &stubBatchService{}
	agg := &stubAggregator{pageSources: pageSourcesForManifest()}
	withServices(t, Services{Batch: svc, Aggregator: agg})

	path := writeManifest(t, validManifest)

	out, err := executeCommand(t, "generate", path)

	require.NoError(t, err)
	assert.Contains(t, out, "generating scenarios for 3 pages")

	// One sub-job input per page, in manifest order.
	require.Len(t, svc.created, 3)
	assert.Equal(t, "cart", svc.created[0].SourceID)
	assert.Equal(t, "The cart page changes.", svc.created[0].SpecText)

	// One module-level run per module, sources filtered by membership.
	require.Len(t, agg.moduleInputs, 2)
	assert.Equal(t, "checkout", agg.moduleInputs[0].ModuleID)
	require.Len(t, agg.moduleInputs[0].Sources, 2)
	assert.Equal(t, "orders", agg.moduleInputs[1].ModuleID)
	require.Len(t, agg.moduleInputs[1].Sources, 1)
	assert.Equal(t, "history", agg.moduleInputs[1].Sources[0].SourceID)

	// One project-level run over the module outputs.
	require.Len(t, agg.projectInputs, 1)
	assert.Equal(t, "shop", agg.projectInputs[0].ProjectID)
}

func TestGenerateCmd_ProjectSourcesComeFromModules(t *testing.T) {
	svc := &stubBatchService{}
	agg := &stubAggregator{
		pageSources: pageSourcesForManifest(),
		moduleResult: &domain.AggregationResult{
			Level:          "module",
			TotalScenarios: 1,
			Scenarios:      []domain.Scenario{{TestID: "m1", Name: "Cross-page flow"}},
		},
	}
	withServices(t, Services{Batch: svc, Aggregator: agg})

	path := writeManifest(t, validManifest)

	_, err := executeCommand(t, "generate", path)

	require.NoError(t, err)
	require.Len(t, agg.projectInputs, 1)
	// Two modules, one scenario each.
	require.Len(t, agg.projectInputs[0].Sources, 2)
	assert.Equal(t, "checkout", agg.projectInputs[0].Sources[0].SourceID)
	assert.Equal(t, "orders", agg.projectInputs[0].Sources[1].SourceID)
}

func TestGenerateCmd_PagesOnly(t *testing.T) {
	svc := &stubBatchService{}
	agg := &stubAggregator{}
	withServices(t, Services{Batch: svc, Aggregator: agg})

	path := writeManifest(t, validManifest)

	_, err := executeCommand(t, "generate", path, "--pages-only")

	require.NoError(t, err)
	assert.Empty(t, agg.moduleInputs)
	assert.Empty(t, agg.projectInputs)
}

func TestGenerateCmd_SpecFile(t *testing.T) {
	svc := &stubBatchService{}
	withServices(t, Services{Batch: svc, Aggregator: &stubAggregator{}})

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cart.md"), []byte("Spec from file."), 0600))
	manifest := `{
	  "project": {"id": "shop"},
	  "modules": [{"id": "checkout", "pages": [{"id": "cart", "spec_file": "cart.md"}]}]
	}`
	path := filepath.Join(dir, "manifest.json")
	require.NoError(t, os.WriteFile(path, []byte(manifest), 0600))

	_, err := executeCommand(t, "generate", path, "--pages-only")

	require.NoError(t, err)
	require.Len(t, svc.created, 1)
	assert.Equal(t, "Spec from file.", svc.created[0].SpecText)
}

func TestGenerateCmd_ManualFromFile(t *testing.T) {
	agg := &stubAggregator{}
	withServices(t, Services{Batch: &stubBatchService{}, Aggregator: agg})

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "manual.md"), []byte("# Manual\nBody."), 0600))
	manifest := `{
	  "project": {"id": "shop"},
	  "modules": [{"id": "checkout", "pages": [{"id": "cart", "spec_text": "x"}]}],
	  "manual": {"file": "manual.md"}
	}`
	path := filepath.Join(dir, "manifest.json")
	require.NoError(t, os.WriteFile(path, []byte(manifest), 0600))

	_, err := executeCommand(t, "generate", path)

	require.NoError(t, err)
	require.Len(t, agg.projectInputs, 1)
	assert.Equal(t, "# Manual\nBody.", agg.projectInputs[0].ManualText)
	// Key derived from the filename when not given.
	assert.Equal(t, "manual", agg.projectInputs[0].ManualKey)
}

func TestGenerateCmd_OutputFile(t *testing.T) {
	withServices(t, Services{Batch: &stubBatchService{status: batchStatusFixture()}, Aggregator: &stubAggregator{}})

	path := writeManifest(t, validManifest)
	outPath := filepath.Join(t.TempDir(), "results.json")

	out, err := executeCommand(t, "generate", path, "--pages-only", "--output", outPath)

	require.NoError(t, err)
	assert.Contains(t, out, "Results written to")

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	var status domain.BatchStatus
	require.NoError(t, json.Unmarshal(data, &status))
	assert.Equal(t, "batch-1", status.BatchID)
}

func TestGenerateCmd_ManifestValidation(t *testing.T) {
	withServices(t, Services{Batch: &stubBatchService{}, Aggregator: &stubAggregator{}})

	tests := []struct {
		name     string
		manifest string
	}{
		{"no modules", `{"project": {"id": "p"}, "modules": []}`},
		{"module without id", `{"modules": [{"pages": [{"id": "a", "spec_text": "x"}]}]}`},
		{"module without pages", `{"modules": [{"id": "m", "pages": []}]}`},
		{"page without id", `{"modules": [{"id": "m", "pages": [{"spec_text": "x"}]}]}`},
		{"page without spec", `{"modules": [{"id": "m", "pages": [{"id": "a"}]}]}`},
		{"not json", `{]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeManifest(t, tt.manifest)
			_, err := executeCommand(t, "generate", path)
			assert.Error(t, err)
		})
	}
}

func TestGenerateCmd_MissingManifest(t *testing.T) {
	withServices(t, Services{Batch: &stubBatchService{}, Aggregator: &stubAggregator{}})

	_, err := executeCommand(t, "generate", filepath.Join(t.TempDir(), "absent.json"))

	assert.Error(t, err)
}

func TestGenerateCmd_NotConfigured(t *testing.T) {
	withServices(t, Services{})

	path := writeManifest(t, validManifest)
	_, err := executeCommand(t, "generate", path)

	assert.Error(t, err)
}
