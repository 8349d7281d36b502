package services

import (
	"context"
	"time"

	"github.com/subtrack/subtrack/internal/domain/pricechange"
	"github.com/subtrack/subtrack/internal/domain/reminder"
	"github.com/subtrack/subtrack/internal/domain/subscription"
	"github.com/subtrack/subtrack/internal/pkg/errors"
	"github.com/subtrack/subtrack/internal/pkg/logger"
	"github.com/subtrack/subtrack/internal/pkg/metrics"
	"github.com/subtrack/subtrack/internal/policy"
)

// ReminderService runs the reminder policy engine against the reminder log
// and hands the resulting diff to the notification dispatcher.
type ReminderService struct {
	repo       reminder.Repository
	pcRepo     pricechange.Repository
	dispatcher reminder.Dispatcher
	prefs      reminder.Preferences
	logger     *logger.Logger
	now        func() time.Time
}

// NewReminderService creates a new reminder service
func NewReminderService(
	repo reminder.Repository,
	pcRepo pricechange.Repository,
	dispatcher reminder.Dispatcher,
	prefs reminder.Preferences,
	log *logger.Logger,
	now func() time.Time,
) *ReminderService {
	if now == nil {
		now = time.Now
	}
	return &ReminderService{
		repo:       repo,
		pcRepo:     pcRepo,
		dispatcher: dispatcher,
		prefs:      prefs,
		logger:     log,
		now:        now,
	}
}

// ReconcileSubscription recomputes the reminders that should exist for one
// subscription and applies the diff through the dispatcher. Reconciling
// twice with no state change in between yields an empty diff the second
// time.
func (s *ReminderService) ReconcileSubscription(ctx context.Context, sub *subscription.Subscription) (reminder.Diff, error) {
	existing, err := s.repo.List(ctx, reminder.Filter{SubscriptionID: sub.ID})
	if err != nil {
		return reminder.Diff{}, err
	}

	increase, err := s.unnotifiedIncrease(ctx, sub, existing)
	if err != nil {
		return reminder.Diff{}, err
	}

	diff := policy.Reconcile(sub, increase, existing, s.now(), s.prefs)
	if diff.Empty() {
		return diff, nil
	}

	if err := s.dispatcher.Apply(ctx, sub.ID, diff); err != nil {
		return diff, err
	}

	s.logger.WithFields(map[string]interface{}{
		"subscription_id": sub.ID,
		"created":         len(diff.ToCreate),
		"updated":         len(diff.ToUpdate),
		"cancelled":       len(diff.ToCancel),
	}).Info("Reminders reconciled")

	return diff, nil
}

// unnotifiedIncrease finds the most recent price increase that no
// price-change reminder has covered yet.
func (s *ReminderService) unnotifiedIncrease(ctx context.Context, sub *subscription.Subscription, existing []*reminder.ScheduledReminder) (*pricechange.PriceChange, error) {
	latest, err := s.pcRepo.GetLatest(ctx, sub.ID)
	if err != nil {
		return nil, err
	}
	if latest == nil || !latest.IsIncrease() {
		return nil, nil
	}
	for _, ex := range existing {
		if ex.Type != reminder.TypePriceChange {
			continue
		}
		if ex.CreatedAt.Before(latest.ChangeDate) {
			continue
		}
		// A still pending reminder keeps flowing to the engine so it is not
		// withdrawn as stale; anything delivered or closed covers the change.
		if !ex.Status.IsPending() {
			return nil, nil
		}
	}
	return latest, nil
}

// ListPending lists the pending reminders for a subscription, or all
// pending reminders when the ID is empty.
func (s *ReminderService) ListPending(ctx context.Context, subscriptionID string) ([]*reminder.ScheduledReminder, error) {
	if subscriptionID != "" {
		return s.repo.ListPending(ctx, subscriptionID)
	}
	return s.repo.List(ctx, reminder.Filter{PendingOnly: true})
}

// DeliverDue marks every pending reminder whose instant has passed as sent
// and returns the delivery instant, or nil when nothing was due. Delivery
// transport lives outside this system; sent here records delivery intent,
// and the engine's same-day suppression keeps a delivered type from being
// re-raised.
func (s *ReminderService) DeliverDue(ctx context.Context, subscriptionID string) (int, *time.Time, error) {
	pending, err := s.repo.ListPending(ctx, subscriptionID)
	if err != nil {
		return 0, nil, err
	}

	now := s.now()
	delivered := 0
	var sentAt *time.Time
	for _, r := range pending {
		if r.EffectiveAt().After(now) {
			continue
		}
		r.Status = reminder.StatusSent
		r.UpdatedAt = now
		if err := s.repo.Update(ctx, r); err != nil {
			return delivered, sentAt, err
		}
		metrics.RecordReminder(string(r.Type), "sent")
		s.logger.WithFields(map[string]interface{}{
			"subscription_id": subscriptionID,
			"reminder_id":     r.ID,
			"type":            r.Type,
		}).Info("Reminder delivered")
		delivered++
		sentAt = &now
	}
	return delivered, sentAt, nil
}

// Snooze postpones a pending reminder until the given time. The type stays
// satisfied until the snooze expires, after which the next reconciliation
// pass recomputes it.
func (s *ReminderService) Snooze(ctx context.Context, id string, until time.Time) (*reminder.ScheduledReminder, error) {
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !r.Status.IsPending() {
		return nil, errors.Conflict("only pending reminders can be snoozed")
	}
	if !until.After(s.now()) {
		return nil, errors.ValidationError("snooze expiry must be in the future", nil)
	}

	r.Status = reminder.StatusSnoozed
	r.SnoozedUntil = &until
	r.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// Dismiss marks a pending reminder as dismissed.
func (s *ReminderService) Dismiss(ctx context.Context, id string) (*reminder.ScheduledReminder, error) {
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !r.Status.IsPending() {
		return nil, errors.Conflict("only pending reminders can be dismissed")
	}
	r.Status = reminder.StatusDismissed
	r.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}
