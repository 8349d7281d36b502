package testutil

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/subtrack/subtrack/internal/domain/subscription"
	"github.com/subtrack/subtrack/internal/pkg/logger"
)

// NewTestLogger creates a quiet logger for tests
func NewTestLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error"})
}

// FixedClock returns a clock function frozen at t.
func FixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// Date builds a UTC timestamp at midnight, the form most billing dates take.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// NewSubscription builds an active monthly subscription with sensible
// defaults for tests to override.
func NewSubscription(id string, nextBilling time.Time) *subscription.Subscription {
	return &subscription.Subscription{
		ID:                    id,
		Name:                  "Test Service",
		Category:              "entertainment",
		Price:                 decimal.RequireFromString("9.99"),
		BillingCycle:          subscription.CycleMonthly,
		IsActive:              true,
		AutoRenew:             true,
		NextBillingDate:       nextBilling,
		TotalSpent:            decimal.Zero,
		TrialPhase:            subscription.TrialPhaseNone,
		EnableRenewalReminder: true,
		ReminderDaysBefore:    3,
		CreatedAt:             nextBilling.AddDate(0, -1, 0),
		UpdatedAt:             nextBilling.AddDate(0, -1, 0),
	}
}

// NewTrialSubscription builds a subscription in an open trial window.
func NewTrialSubscription(id string, start, end time.Time) *subscription.Subscription {
	s := NewSubscription(id, end)
	s.TrialPhase = subscription.TrialPhaseTrialing
	s.TrialStartDate = &start
	s.TrialEndDate = &end
	s.Price = decimal.Zero
	s.CreatedAt = start
	s.UpdatedAt = start
	return s
}
