package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/subtrack/subtrack/internal/billing"
	"github.com/subtrack/subtrack/internal/domain/pricechange"
	"github.com/subtrack/subtrack/internal/domain/subscription"
	"github.com/subtrack/subtrack/internal/pkg/errors"
	"github.com/subtrack/subtrack/internal/pkg/logger"
)

// DefaultReminderLeadDays is applied when a subscription arrives without a
// reminder lead time.
const DefaultReminderLeadDays = 3

var twelve = decimal.NewFromInt(12)

// SubscriptionService implements subscription.Service
type SubscriptionService struct {
	repo     subscription.Repository
	ledger   pricechange.Service
	reminder *ReminderService
	logger   *logger.Logger
	now      func() time.Time
}

// NewSubscriptionService creates a new subscription service
func NewSubscriptionService(
	repo subscription.Repository,
	ledger pricechange.Service,
	reminderSvc *ReminderService,
	log *logger.Logger,
	now func() time.Time,
) *SubscriptionService {
	if now == nil {
		now = time.Now
	}
	return &SubscriptionService{
		repo:     repo,
		ledger:   ledger,
		reminder: reminderSvc,
		logger:   log,
		now:      now,
	}
}

// Create validates and creates a new subscription. Invalid input is rejected
// at this boundary; the core never silently fixes bad data.
func (s *SubscriptionService) Create(ctx context.Context, sub *subscription.Subscription) (*subscription.Subscription, error) {
	applyDefaults(sub)
	if err := validate(sub); err != nil {
		return nil, err
	}

	now := s.now()
	sub.ID = uuid.New().String()
	sub.CreatedAt = now
	sub.UpdatedAt = now

	if sub.NextBillingDate.IsZero() {
		if sub.IsTrialing() && sub.TrialEndDate != nil {
			sub.NextBillingDate = *sub.TrialEndDate
		} else {
			sub.NextBillingDate = billing.NextBillingDate(now, sub.BillingCycle)
		}
	}
	if sub.BillingCycle == subscription.CycleLifetime {
		sub.NextBillingDate = billing.Never
	}

	if err := s.repo.Create(ctx, sub); err != nil {
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"subscription_id": sub.ID,
		"name":            sub.Name,
		"cycle":           sub.BillingCycle,
	}).Info("Subscription created")

	if s.reminder != nil {
		if _, err := s.reminder.ReconcileSubscription(ctx, sub); err != nil {
			s.logger.ErrorWithErr(err, "Initial reminder reconciliation failed")
		}
	}

	return sub, nil
}

// GetByID retrieves a subscription by ID
func (s *SubscriptionService) GetByID(ctx context.Context, id string) (*subscription.Subscription, error) {
	return s.repo.GetByID(ctx, id)
}

// Update applies an edit. A price edit is recorded in the price history
// ledger with user provenance, and the subscription's reminders are
// reconciled against the new state.
func (s *SubscriptionService) Update(ctx context.Context, sub *subscription.Subscription) (*subscription.Subscription, error) {
	applyDefaults(sub)
	if err := validate(sub); err != nil {
		return nil, err
	}

	current, err := s.repo.GetByID(ctx, sub.ID)
	if err != nil {
		return nil, err
	}

	// Trial history is frozen once the phase leaves trialing.
	if current.TrialPhase == subscription.TrialPhaseConverted || current.TrialPhase == subscription.TrialPhaseLapsed {
		sub.TrialPhase = current.TrialPhase
		sub.TrialStartDate = current.TrialStartDate
		sub.TrialEndDate = current.TrialEndDate
		sub.WillConvertToPaid = current.WillConvertToPaid
		sub.PriceAfterTrial = current.PriceAfterTrial
	}

	sub.CreatedAt = current.CreatedAt
	sub.TotalSpent = current.TotalSpent
	sub.LastBillingDate = current.LastBillingDate
	sub.LastReminderSent = current.LastReminderSent
	sub.LastPriceChange = current.LastPriceChange
	sub.UpdatedAt = s.now()

	priceEdited := !current.Price.Equal(sub.Price)

	if err := s.repo.Update(ctx, sub); err != nil {
		return nil, err
	}

	if priceEdited {
		if _, err := s.ledger.RecordIfChanged(ctx, sub.ID, current.Price, sub.Price, false, ""); err != nil {
			s.logger.WithFields(map[string]interface{}{
				"subscription_id": sub.ID,
			}).ErrorWithErr(err, "Failed to record price change")
		}
	}

	if s.reminder != nil {
		if _, err := s.reminder.ReconcileSubscription(ctx, sub); err != nil {
			s.logger.ErrorWithErr(err, "Reminder reconciliation after edit failed")
		}
	}

	return sub, nil
}

// ObservePrice applies an externally observed vendor price. The ledger row
// carries automatic provenance and the caller's reason.
func (s *SubscriptionService) ObservePrice(ctx context.Context, id string, newPrice decimal.Decimal, reason string) (*subscription.Subscription, error) {
	if newPrice.IsNegative() {
		return nil, errors.ValidationError("price must not be negative", nil)
	}

	sub, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.Price.Equal(newPrice) {
		return sub, nil
	}

	oldPrice := sub.Price
	sub.Price = newPrice
	sub.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, sub); err != nil {
		return nil, err
	}

	if _, err := s.ledger.RecordIfChanged(ctx, sub.ID, oldPrice, newPrice, true, reason); err != nil {
		s.logger.WithFields(map[string]interface{}{
			"subscription_id": sub.ID,
		}).ErrorWithErr(err, "Failed to record observed price change")
	}

	if s.reminder != nil {
		if _, err := s.reminder.ReconcileSubscription(ctx, sub); err != nil {
			s.logger.ErrorWithErr(err, "Reminder reconciliation after price observation failed")
		}
	}

	return sub, nil
}

// Delete deletes a subscription
func (s *SubscriptionService) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// Cancel marks a subscription as cancelled and reconciles its reminders so
// stale ones are withdrawn.
func (s *SubscriptionService) Cancel(ctx context.Context, id string) (*subscription.Subscription, error) {
	sub, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !sub.IsActive {
		return sub, nil
	}

	now := s.now()
	sub.IsActive = false
	sub.AutoRenew = false
	sub.CancellationDate = &now
	sub.UpdatedAt = now

	if err := s.repo.Update(ctx, sub); err != nil {
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"subscription_id": id,
	}).Info("Subscription cancelled")

	if s.reminder != nil {
		if _, err := s.reminder.ReconcileSubscription(ctx, sub); err != nil {
			s.logger.ErrorWithErr(err, "Reminder reconciliation after cancel failed")
		}
	}

	return sub, nil
}

// List retrieves subscriptions with filters
func (s *SubscriptionService) List(ctx context.Context, filter subscription.Filter) ([]*subscription.Subscription, error) {
	return s.repo.List(ctx, filter)
}

// RecordUsage increments a subscription's usage counter
func (s *SubscriptionService) RecordUsage(ctx context.Context, id string) error {
	sub, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	now := s.now()
	sub.UsageCount++
	sub.LastUsedAt = &now
	sub.UpdatedAt = now
	return s.repo.Update(ctx, sub)
}

// GetSummary computes spend totals over active subscriptions and the
// renewals due within the given number of days.
func (s *SubscriptionService) GetSummary(ctx context.Context, withinDays int) (*subscription.Summary, error) {
	subs, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	horizon := now.AddDate(0, 0, withinDays)

	summary := &subscription.Summary{}
	for _, sub := range subs {
		summary.ActiveCount++
		if sub.IsTrialing() {
			summary.TrialingCount++
			continue
		}
		summary.MonthlyTotal = summary.MonthlyTotal.Add(billing.MonthlyEquivalent(sub.Price, sub.BillingCycle))
		if !billing.IsNever(sub.NextBillingDate) && sub.NextBillingDate.Before(horizon) {
			summary.UpcomingRenewals = append(summary.UpcomingRenewals, sub)
		}
	}
	summary.YearlyTotal = summary.MonthlyTotal.Mul(twelve)

	sort.Slice(summary.UpcomingRenewals, func(i, j int) bool {
		return summary.UpcomingRenewals[i].NextBillingDate.Before(summary.UpcomingRenewals[j].NextBillingDate)
	})

	return summary, nil
}

// applyDefaults fills the safe defaults older or partial records arrive
// without.
func applyDefaults(sub *subscription.Subscription) {
	if sub.TrialPhase == "" {
		sub.TrialPhase = subscription.TrialPhaseNone
	}
	if sub.ReminderDaysBefore == 0 && sub.EnableRenewalReminder {
		sub.ReminderDaysBefore = DefaultReminderLeadDays
	}
}

// validate enforces the input invariants. Violations are contract errors
// rejected before the subscription enters any processing batch.
func validate(sub *subscription.Subscription) error {
	if sub.Name == "" {
		return errors.ValidationError("subscription name is required", nil)
	}
	if sub.Price.IsNegative() {
		return errors.ValidationError("price must not be negative", nil)
	}
	if !sub.BillingCycle.IsValid() {
		return errors.ValidationError(fmt.Sprintf("unknown billing cycle: %s", sub.BillingCycle), nil)
	}
	if !sub.TrialPhase.IsValid() {
		return errors.ValidationError(fmt.Sprintf("unknown trial phase: %s", sub.TrialPhase), nil)
	}
	if sub.ReminderDaysBefore < 0 {
		return errors.ValidationError("reminder lead days must not be negative", nil)
	}
	if sub.IsTrialing() {
		if sub.TrialEndDate == nil {
			return errors.ValidationError("trialing subscription requires a trial end date", nil)
		}
		if sub.TrialStartDate != nil && sub.TrialEndDate.Before(*sub.TrialStartDate) {
			return errors.ValidationError("trial end date precedes trial start date", nil)
		}
		if sub.WillConvertToPaid && sub.PriceAfterTrial == nil {
			return errors.ValidationError("converting trial requires a price after trial", nil)
		}
	}
	return nil
}
