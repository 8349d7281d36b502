package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/subtrack/subtrack/pkg/client"
)

func newSubscriptionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "subscription",
		Aliases: []string{"sub"},
		Short:   "Manage subscriptions",
	}

	cmd.AddCommand(newSubscriptionListCmd())
	cmd.AddCommand(newSubscriptionGetCmd())
	cmd.AddCommand(newSubscriptionAddCmd())
	cmd.AddCommand(newSubscriptionUpdateCmd())
	cmd.AddCommand(newSubscriptionDeleteCmd())
	cmd.AddCommand(newSubscriptionCancelCmd())
	cmd.AddCommand(newSubscriptionUseCmd())
	cmd.AddCommand(newSubscriptionSummaryCmd())

	return cmd
}

func newSubscriptionListCmd() *cobra.Command {
	var active, inactive bool
	var cycle, trialPhase, category string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List subscriptions",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			opts := &client.SubscriptionListOptions{
				Cycle:      cycle,
				TrialPhase: trialPhase,
				Category:   category,
			}
			if active {
				t := true
				opts.Active = &t
			} else if inactive {
				f := false
				opts.Active = &f
			}

			subs, err := apiClient.Subscriptions().List(ctx, opts)
			if err != nil {
				return fmt.Errorf("failed to list subscriptions: %w", err)
			}

			format := getOutputFormat()
			if format != "table" {
				return printOutput(subs)
			}

			t := NewTable("ID", "NAME", "PRICE", "CYCLE", "NEXT BILLING", "MONTHLY", "STATE")
			for _, s := range subs {
				t.AddRow(
					truncate(s.ID, 8),
					truncate(s.Name, 30),
					"$"+s.Price.StringFixed(2),
					s.BillingCycle,
					formatDate(s.NextBillingDate),
					"$"+s.MonthlyEquivalent.StringFixed(2),
					subscriptionState(s.IsActive, s.TrialPhase),
				)
			}
			t.Render()
			fmt.Printf("\n%d subscriptions\n", len(subs))
			return nil
		},
	}

	cmd.Flags().BoolVar(&active, "active", false, "show only active subscriptions")
	cmd.Flags().BoolVar(&inactive, "inactive", false, "show only cancelled subscriptions")
	cmd.Flags().StringVar(&cycle, "cycle", "", "filter by billing cycle")
	cmd.Flags().StringVar(&trialPhase, "trial-phase", "", "filter by trial phase (none, trialing, converted, lapsed)")
	cmd.Flags().StringVar(&category, "category", "", "filter by category")

	return cmd
}

func newSubscriptionGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <subscription-id>",
		Short: "Get subscription details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			s, err := apiClient.Subscriptions().Get(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to get subscription: %w", err)
			}

			format := getOutputFormat()
			if format != "table" {
				return printOutput(s)
			}

			fmt.Printf("ID:            %s\n", s.ID)
			fmt.Printf("Name:          %s\n", s.Name)
			if s.Category != "" {
				fmt.Printf("Category:      %s\n", s.Category)
			}
			fmt.Printf("Price:         $%s / %s\n", s.Price.StringFixed(2), s.BillingCycle)
			fmt.Printf("Monthly cost:  $%s\n", s.MonthlyEquivalent.StringFixed(2))
			fmt.Printf("State:         %s\n", subscriptionState(s.IsActive, s.TrialPhase))
			fmt.Printf("Auto-renew:    %t\n", s.AutoRenew)
			fmt.Printf("Next billing:  %s\n", formatDate(s.NextBillingDate))
			fmt.Printf("Last billing:  %s\n", formatDatePtr(s.LastBillingDate))
			fmt.Printf("Total spent:   $%s\n", s.TotalSpent.StringFixed(2))
			if s.TrialPhase != "none" {
				fmt.Printf("Trial phase:   %s\n", s.TrialPhase)
				fmt.Printf("Trial period:  %s to %s\n", formatDatePtr(s.TrialStartDate), formatDatePtr(s.TrialEndDate))
				if s.TrialDaysLeft != nil {
					fmt.Printf("Days left:     %d\n", *s.TrialDaysLeft)
				}
				if s.PriceAfterTrial != nil {
					fmt.Printf("After trial:   $%s\n", s.PriceAfterTrial.StringFixed(2))
				}
			}
			if s.UsageCount > 0 {
				fmt.Printf("Used:          %d times (last %s)\n", s.UsageCount, formatDatePtr(s.LastUsedAt))
			}
			if s.Notes != "" {
				fmt.Printf("Notes:         %s\n", s.Notes)
			}
			return nil
		},
	}
}

func newSubscriptionAddCmd() *cobra.Command {
	var req client.CreateSubscriptionRequest

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a subscription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			req.Name = args[0]

			s, err := apiClient.Subscriptions().Create(ctx, req)
			if err != nil {
				return fmt.Errorf("failed to add subscription: %w", err)
			}

			format := getOutputFormat()
			if format != "table" {
				return printOutput(s)
			}

			fmt.Printf("Added %s (%s), next billing %s\n", s.Name, truncate(s.ID, 8), formatDate(s.NextBillingDate))
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Price, "price", "", "price per billing cycle (required unless --trial)")
	cmd.Flags().StringVar(&req.BillingCycle, "cycle", "monthly", "billing cycle: daily, weekly, biweekly, monthly, quarterly, semiannual, yearly, lifetime")
	cmd.Flags().StringVar(&req.Category, "category", "", "category label")
	cmd.Flags().StringVar(&req.PaymentMethod, "payment-method", "", "payment method label")
	cmd.Flags().StringVar(&req.Notes, "notes", "", "free-form notes")
	cmd.Flags().BoolVar(&req.AutoRenew, "auto-renew", true, "renew automatically each cycle")
	cmd.Flags().StringVar(&req.NextBillingDate, "next-billing", "", "next billing date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&req.IsFreeTrial, "trial", false, "start inside a free trial")
	cmd.Flags().StringVar(&req.TrialStartDate, "trial-start", "", "trial start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&req.TrialEndDate, "trial-end", "", "trial end date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&req.WillConvertToPaid, "converts", false, "trial converts to paid when it ends")
	cmd.Flags().StringVar(&req.PriceAfterTrial, "price-after-trial", "", "price once the trial converts")
	cmd.Flags().BoolVar(&req.EnableRenewalReminder, "remind", true, "schedule renewal reminders")
	cmd.Flags().IntVar(&req.ReminderDaysBefore, "remind-days", 3, "days of notice before each renewal")
	cmd.Flags().StringVar(&req.ReminderTime, "remind-time", "", "preferred reminder time (HH:MM)")

	return cmd
}

func newSubscriptionUpdateCmd() *cobra.Command {
	var name, category, price, cycle, paymentMethod, notes, nextBilling, remindTime string
	var autoRenew, remind bool
	var remindDays int

	cmd := &cobra.Command{
		Use:   "update <subscription-id>",
		Short: "Update a subscription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			var req client.UpdateSubscriptionRequest
			if cmd.Flags().Changed("name") {
				req.Name = &name
			}
			if cmd.Flags().Changed("category") {
				req.Category = &category
			}
			if cmd.Flags().Changed("price") {
				req.Price = &price
			}
			if cmd.Flags().Changed("cycle") {
				req.BillingCycle = &cycle
			}
			if cmd.Flags().Changed("payment-method") {
				req.PaymentMethod = &paymentMethod
			}
			if cmd.Flags().Changed("notes") {
				req.Notes = &notes
			}
			if cmd.Flags().Changed("auto-renew") {
				req.AutoRenew = &autoRenew
			}
			if cmd.Flags().Changed("next-billing") {
				req.NextBillingDate = &nextBilling
			}
			if cmd.Flags().Changed("remind") {
				req.EnableRenewalReminder = &remind
			}
			if cmd.Flags().Changed("remind-days") {
				req.ReminderDaysBefore = &remindDays
			}
			if cmd.Flags().Changed("remind-time") {
				req.ReminderTime = &remindTime
			}

			s, err := apiClient.Subscriptions().Update(ctx, args[0], req)
			if err != nil {
				return fmt.Errorf("failed to update subscription: %w", err)
			}

			format := getOutputFormat()
			if format != "table" {
				return printOutput(s)
			}

			fmt.Printf("Updated %s, next billing %s\n", s.Name, formatDate(s.NextBillingDate))
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "subscription name")
	cmd.Flags().StringVar(&category, "category", "", "category label")
	cmd.Flags().StringVar(&price, "price", "", "price per billing cycle")
	cmd.Flags().StringVar(&cycle, "cycle", "", "billing cycle")
	cmd.Flags().StringVar(&paymentMethod, "payment-method", "", "payment method label")
	cmd.Flags().StringVar(&notes, "notes", "", "free-form notes")
	cmd.Flags().BoolVar(&autoRenew, "auto-renew", true, "renew automatically each cycle")
	cmd.Flags().StringVar(&nextBilling, "next-billing", "", "next billing date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&remind, "remind", true, "schedule renewal reminders")
	cmd.Flags().IntVar(&remindDays, "remind-days", 0, "days of notice before each renewal")
	cmd.Flags().StringVar(&remindTime, "remind-time", "", "preferred reminder time (HH:MM)")

	return cmd
}

func newSubscriptionDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <subscription-id>",
		Short: "Delete a subscription and its history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := apiClient.Subscriptions().Delete(context.Background(), args[0]); err != nil {
				return fmt.Errorf("failed to delete subscription: %w", err)
			}
			fmt.Println("Subscription deleted")
			return nil
		},
	}
}

func newSubscriptionCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <subscription-id>",
		Short: "Cancel a subscription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := apiClient.Subscriptions().Cancel(context.Background(), args[0])
			if err != nil {
				return fmt.Errorf("failed to cancel subscription: %w", err)
			}
			fmt.Printf("Cancelled %s, total spent $%s\n", s.Name, s.TotalSpent.StringFixed(2))
			return nil
		},
	}
}

func newSubscriptionUseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "use <subscription-id>",
		Short: "Record one use of a subscription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := apiClient.Subscriptions().RecordUsage(context.Background(), args[0]); err != nil {
				return fmt.Errorf("failed to record usage: %w", err)
			}
			fmt.Println("Usage recorded")
			return nil
		},
	}
}

func newSubscriptionSummaryCmd() *cobra.Command {
	var withinDays int

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show spend totals and upcoming renewals",
		RunE: func(cmd *cobra.Command, args []string) error {
			summary, err := apiClient.Subscriptions().Summary(context.Background(), withinDays)
			if err != nil {
				return fmt.Errorf("failed to get summary: %w", err)
			}

			format := getOutputFormat()
			if format != "table" {
				return printOutput(summary)
			}

			fmt.Printf("Active subscriptions:  %d (%d trialing)\n", summary.ActiveCount, summary.TrialingCount)
			fmt.Printf("Monthly spend:         $%s\n", summary.MonthlyTotal.StringFixed(2))
			fmt.Printf("Yearly spend:          $%s\n", summary.YearlyTotal.StringFixed(2))

			if len(summary.UpcomingRenewals) > 0 {
				fmt.Printf("\nRenewals within %d days:\n", withinDays)
				t := NewTable("NAME", "DATE", "PRICE", "CYCLE")
				for _, s := range summary.UpcomingRenewals {
					t.AddRow(
						truncate(s.Name, 30),
						formatDate(s.NextBillingDate),
						"$"+s.Price.StringFixed(2),
						s.BillingCycle,
					)
				}
				t.Render()
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&withinDays, "within", 30, "renewal horizon in days")

	return cmd
}
