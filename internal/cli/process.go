package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newProcessCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "process",
		Short: "Run the billing lifecycle processor once",
		Long: `Run one processing pass on the server: advance overdue billing
cycles, resolve expired trials and reconcile reminder schedules.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := apiClient.Processor().Run(context.Background())
			if err != nil {
				return fmt.Errorf("processing run failed: %w", err)
			}

			format := getOutputFormat()
			if format != "table" {
				return printOutput(run)
			}

			fmt.Printf("Processed %d subscriptions in %dms\n", run.Processed, run.DurationMs)
			fmt.Printf("  Billing cycles advanced: %d\n", run.CyclesAdvanced)
			fmt.Printf("  Trials converted:        %d\n", run.TrialsConverted)
			fmt.Printf("  Trials lapsed:           %d\n", run.TrialsLapsed)
			fmt.Printf("  Reminders sent:          %d\n", run.RemindersSent)
			fmt.Printf("  Reminders created:       %d\n", run.RemindersCreated)
			fmt.Printf("  Reminders cancelled:     %d\n", run.RemindersCancelled)
			if run.Failed > 0 {
				fmt.Printf("  Failed:                  %d\n", run.Failed)
			}
			return nil
		},
	}
}
