package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/scengen-cli/internal/core/domain"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status [batch-id]",
	Short: "Show the progress and results of a batch",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output status as JSON")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	if batchService == nil {
		return errors.New("batch service not configured")
	}

	status, err := batchService.Status(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("reading batch status: %w", err)
	}

	if statusJSON {
		data, err := json.MarshalIndent(status, "", "  ")
		if err != nil {
			return fmt.Errorf("marshalling status: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	return outputStatusText(cmd, status)
}

func outputStatusText(cmd *cobra.Command, status *domain.BatchStatus) error {
	cmd.Printf("Batch %s: %s\n", status.BatchID, status.Status)
	cmd.Printf("Progress: %d/%d completed, %d failed, %d in progress\n",
		status.Progress.Completed, status.Progress.Total,
		status.Progress.Failed, status.Progress.InProgress)
	cmd.Println()

	for i := range status.SubJobs {
		job := &status.SubJobs[i]
		name := job.Input.SourceName
		if name == "" {
			name = job.Input.SourceID
		}
		cmd.Printf("  [%s] %s: %d scenarios\n", job.Status, name, len(job.Results))
		if job.Error != "" {
			cmd.Printf("      %s\n", job.Error)
		}
	}

	if len(status.AggregationResults) > 0 {
		cmd.Println()
		cmd.Println("Aggregation:")
		for _, result := range status.AggregationResults {
			cmd.Printf("  %s %s: %d scenarios (%d sources, %d duplicates removed)\n",
				result.Level, result.TargetID, result.TotalScenarios,
				result.SourceCount, result.DuplicatesRemoved)
		}
	}

	return nil
}
