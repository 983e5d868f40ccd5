package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Inspect and manage generation batches",
}

var batchListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded batches, newest first",
	RunE:  runBatchList,
}

var batchCancelCmd = &cobra.Command{
	Use:   "cancel [batch-id]",
	Short: "Request cancellation of a running batch",
	Long: `Requests cooperative cancellation of a batch running in this
process. Sub-jobs that have not started are marked cancelled; in-flight
sub-jobs run to completion or provider timeout.`,
	Args: cobra.ExactArgs(1),
	RunE: runBatchCancel,
}

func init() {
	batchCmd.AddCommand(batchListCmd)
	batchCmd.AddCommand(batchCancelCmd)
	rootCmd.AddCommand(batchCmd)
}

func runBatchList(cmd *cobra.Command, _ []string) error {
	if jobStore == nil {
		return errors.New("job store not configured")
	}

	batches, err := jobStore.ListBatches(context.Background())
	if err != nil {
		return fmt.Errorf("listing batches: %w", err)
	}

	if len(batches) == 0 {
		cmd.Println("No batches recorded.")
		return nil
	}

	for _, batch := range batches {
		cmd.Printf("%s  %-10s  %d sub-jobs  %s\n",
			batch.ID, batch.Status, len(batch.SubJobIDs),
			batch.CreatedAt.Format("2006-01-02 15:04:05"))
	}

	return nil
}

func runBatchCancel(cmd *cobra.Command, args []string) error {
	if batchService == nil {
		return errors.New("batch service not configured")
	}

	batchService.Cancel(args[0])
	cmd.Printf("Cancellation requested for batch %s.\n", args[0])
	return nil
}
