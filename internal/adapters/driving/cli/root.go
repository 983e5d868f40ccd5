// Package cli implements the scengen command-line interface using
// cobra. Commands talk to the core through the driving ports; services
// are injected from main via SetServices before Execute runs.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/scengen-cli/internal/core/ports/driven"
	"github.com/custodia-labs/scengen-cli/internal/core/ports/driving"
	"github.com/custodia-labs/scengen-cli/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Services holds the wired core services the commands depend on.
type Services struct {
	Batch      driving.BatchService
	Aggregator driving.Aggregator
	Jobs       driven.JobStore
	Reports    driven.ReportStore
}

var (
	batchService driving.BatchService
	aggregator   driving.Aggregator
	jobStore     driven.JobStore
	reportStore  driven.ReportStore

	verbose bool
)

// SetServices injects the wired core services. Must be called before
// Execute.
func SetServices(s Services) {
	batchService = s.Batch
	aggregator = s.Aggregator
	jobStore = s.Jobs
	reportStore = s.Reports
}

// SetVersion sets the version string printed by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

var rootCmd = &cobra.Command{
	Use:   "scengen",
	Short: "Generate and aggregate QA test scenarios from change specifications",
	Long: `Scengen turns natural-language change specifications into structured
QA test scenarios via an LLM, then aggregates them across three levels:
page, module and project.

Provider and model settings live in ~/.scengen/config.toml; prompt
templates are editable files under ~/.scengen/prompts/.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose progress output")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
