package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show server and subscription overview",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			if err := apiClient.Health(ctx); err != nil {
				return fmt.Errorf("server is not reachable: %w", err)
			}

			format := getOutputFormat()
			if format != "table" {
				overview := map[string]interface{}{"server": "ok"}
				if summary, err := apiClient.Subscriptions().Summary(ctx, 30); err == nil {
					overview["active"] = summary.ActiveCount
					overview["trialing"] = summary.TrialingCount
					overview["monthlyTotal"] = summary.MonthlyTotal
					overview["upcomingRenewals"] = len(summary.UpcomingRenewals)
				}
				if reminders, err := apiClient.Reminders().ListPending(ctx, ""); err == nil {
					overview["pendingReminders"] = len(reminders)
				}
				return printOutput(overview)
			}

			fmt.Println("SubTrack Overview")
			fmt.Println(strings.Repeat("=", 40))
			fmt.Println("  Server:        [+] reachable")

			summary, err := apiClient.Subscriptions().Summary(ctx, 30)
			if err != nil {
				fmt.Printf("  Subscriptions: (error: %v)\n", err)
			} else {
				fmt.Printf("  Subscriptions: %d active (%d trialing)\n", summary.ActiveCount, summary.TrialingCount)
				fmt.Printf("  Monthly spend: $%s\n", summary.MonthlyTotal.StringFixed(2))
				fmt.Printf("  Renewals:      %d within 30 days\n", len(summary.UpcomingRenewals))
			}

			reminders, err := apiClient.Reminders().ListPending(ctx, "")
			if err != nil {
				fmt.Printf("  Reminders:     (error: %v)\n", err)
			} else {
				fmt.Printf("  Reminders:     %d pending\n", len(reminders))
			}

			return nil
		},
	}
}
