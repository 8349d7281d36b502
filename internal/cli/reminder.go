package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newReminderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reminder",
		Short: "Manage renewal and trial reminders",
	}

	cmd.AddCommand(newReminderListCmd())
	cmd.AddCommand(newReminderSnoozeCmd())
	cmd.AddCommand(newReminderDismissCmd())

	return cmd
}

func newReminderListCmd() *cobra.Command {
	var subscriptionID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List pending reminders",
		RunE: func(cmd *cobra.Command, args []string) error {
			reminders, err := apiClient.Reminders().ListPending(context.Background(), subscriptionID)
			if err != nil {
				return fmt.Errorf("failed to list reminders: %w", err)
			}

			format := getOutputFormat()
			if format != "table" {
				return printOutput(reminders)
			}

			t := NewTable("ID", "TYPE", "DUE", "PRIORITY", "STATUS", "MESSAGE")
			for _, r := range reminders {
				t.AddRow(
					truncate(r.ID, 8),
					r.Type,
					r.ScheduledAt.Format("2006-01-02 15:04"),
					formatPriority(r.Priority),
					formatStatus(r.Status),
					truncate(r.Message, 50),
				)
			}
			t.Render()
			fmt.Printf("\n%d pending reminders\n", len(reminders))
			return nil
		},
	}

	cmd.Flags().StringVar(&subscriptionID, "subscription", "", "filter by subscription ID")

	return cmd
}

func newReminderSnoozeCmd() *cobra.Command {
	var until string
	var days int

	cmd := &cobra.Command{
		Use:   "snooze <reminder-id>",
		Short: "Postpone a pending reminder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			expiry := time.Now().AddDate(0, 0, days)
			if until != "" {
				parsed, err := time.Parse("2006-01-02", until)
				if err != nil {
					return fmt.Errorf("invalid --until date, expected YYYY-MM-DD: %w", err)
				}
				expiry = parsed
			}

			r, err := apiClient.Reminders().Snooze(context.Background(), args[0], expiry)
			if err != nil {
				return fmt.Errorf("failed to snooze reminder: %w", err)
			}

			fmt.Printf("Snoozed until %s\n", r.SnoozedUntil.Format("2006-01-02 15:04"))
			return nil
		},
	}

	cmd.Flags().StringVar(&until, "until", "", "snooze until date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&days, "days", 1, "snooze for this many days")

	return cmd
}

func newReminderDismissCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dismiss <reminder-id>",
		Short: "Dismiss a pending reminder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := apiClient.Reminders().Dismiss(context.Background(), args[0])
			if err != nil {
				return fmt.Errorf("failed to dismiss reminder: %w", err)
			}

			fmt.Printf("Dismissed reminder for subscription %s\n", truncate(r.SubscriptionID, 8))
			return nil
		},
	}
}
