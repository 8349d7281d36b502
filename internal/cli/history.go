package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/subtrack/subtrack/pkg/client"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Review and record subscription price changes",
	}

	cmd.AddCommand(newHistoryListCmd())
	cmd.AddCommand(newHistoryRecordCmd())

	return cmd
}

func newHistoryListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <subscription-id>",
		Short: "Show a subscription's price history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			history, err := apiClient.Subscriptions().PriceHistory(context.Background(), args[0])
			if err != nil {
				return fmt.Errorf("failed to get price history: %w", err)
			}

			format := getOutputFormat()
			if format != "table" {
				return printOutput(history)
			}

			t := NewTable("DATE", "OLD", "NEW", "CHANGE", "SOURCE", "REASON")
			for _, pc := range history {
				source := "manual"
				if pc.DetectedAutomatically {
					source = "auto"
				}
				t.AddRow(
					formatDate(pc.ChangeDate),
					"$"+pc.OldPrice.StringFixed(2),
					"$"+pc.NewPrice.StringFixed(2),
					pc.ChangePercentage,
					source,
					truncate(pc.Reason, 40),
				)
			}
			t.Render()
			fmt.Printf("\n%d price changes\n", len(history))
			return nil
		},
	}
}

func newHistoryRecordCmd() *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "record <subscription-id> <new-price>",
		Short: "Record an observed price change",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pc, err := apiClient.Subscriptions().RecordPriceChange(context.Background(), args[0], client.RecordPriceChangeRequest{
				NewPrice: args[1],
				Reason:   reason,
			})
			if err != nil {
				return fmt.Errorf("failed to record price change: %w", err)
			}

			if pc == nil {
				fmt.Println("Price unchanged, nothing recorded")
				return nil
			}

			format := getOutputFormat()
			if format != "table" {
				return printOutput(pc)
			}

			fmt.Printf("Recorded %s -> %s (%s)\n",
				"$"+pc.OldPrice.StringFixed(2),
				"$"+pc.NewPrice.StringFixed(2),
				pc.ChangePercentage,
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "", "why the price changed")

	return cmd
}
