package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var reportJSON bool

var reportCmd = &cobra.Command{
	Use:   "report [batch-id]",
	Short: "Show the deduplication audit reports of a batch",
	Long: `Lists the deduplication reports written while aggregating a batch.
Each report records which near-duplicate scenarios were collapsed, the
similarity threshold in force and the maximum similarity observed per
group.`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

func init() {
	reportCmd.Flags().BoolVar(&reportJSON, "json", false, "output reports as JSON")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	if reportStore == nil {
		return errors.New("report store not configured")
	}

	reports, err := reportStore.ListDedupReports(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("listing dedup reports: %w", err)
	}

	if reportJSON {
		data, err := json.MarshalIndent(reports, "", "  ")
		if err != nil {
			return fmt.Errorf("marshalling reports: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(reports) == 0 {
		cmd.Println("No dedup reports recorded for this batch.")
		return nil
	}

	for i, report := range reports {
		cmd.Printf("Report %d (%s, threshold %.2f): %d duplicate groups\n",
			i+1, report.Timestamp.Format("2006-01-02 15:04:05"),
			report.Threshold, len(report.DuplicateGroups))
		for _, group := range report.DuplicateGroups {
			cmd.Printf("  kept %q from %s (max similarity %.2f)\n",
				group.Kept.Scenario.Name, group.Kept.SourceID, group.SimilarityScore)
			for _, dup := range group.Duplicates {
				cmd.Printf("    dropped %q from %s\n", dup.Scenario.Name, dup.SourceID)
			}
		}
	}

	return nil
}
