package services

import (
	"context"
	"testing"
	"time"

	"github.com/subtrack/subtrack/internal/domain/reminder"
	"github.com/subtrack/subtrack/internal/pkg/errors"
	"github.com/subtrack/subtrack/internal/testutil"
)

func newReminderFixture(now time.Time) (*testutil.MockReminderRepository, *ReminderService) {
	log := testutil.NewTestLogger()
	clock := testutil.FixedClock(now)
	remRepo := testutil.NewMockReminderRepository()
	pcRepo := testutil.NewMockPriceChangeRepository()
	dispatch := NewDispatchService(remRepo, log, clock)
	svc := NewReminderService(remRepo, pcRepo, dispatch, reminder.Preferences{
		DefaultLeadDays: 3,
		DefaultTime:     "09:00",
	}, log, clock)
	return remRepo, svc
}

func seedReminder(t *testing.T, repo *testutil.MockReminderRepository, id string, status reminder.Status) {
	t.Helper()
	err := repo.Create(context.Background(), &reminder.ScheduledReminder{
		ID:             id,
		SubscriptionID: "sub-1",
		Type:           reminder.TypeRenewal,
		ScheduledAt:    testutil.Date(2025, 3, 7),
		Status:         status,
	})
	if err != nil {
		t.Fatalf("seed reminder: %v", err)
	}
}

func TestSnoozePostponesPendingReminder(t *testing.T) {
	now := testutil.Date(2025, 3, 5)
	repo, svc := newReminderFixture(now)
	seedReminder(t, repo, "r1", reminder.StatusScheduled)

	until := testutil.Date(2025, 3, 8)
	snoozed, err := svc.Snooze(context.Background(), "r1", until)
	if err != nil {
		t.Fatalf("Snooze() error = %v", err)
	}
	if snoozed.Status != reminder.StatusSnoozed {
		t.Errorf("Status = %s, want %s", snoozed.Status, reminder.StatusSnoozed)
	}
	if snoozed.SnoozedUntil == nil || !snoozed.SnoozedUntil.Equal(until) {
		t.Errorf("SnoozedUntil = %v, want %v", snoozed.SnoozedUntil, until)
	}
}

func TestSnoozeRejectsPastExpiry(t *testing.T) {
	now := testutil.Date(2025, 3, 5)
	repo, svc := newReminderFixture(now)
	seedReminder(t, repo, "r1", reminder.StatusScheduled)

	_, err := svc.Snooze(context.Background(), "r1", testutil.Date(2025, 3, 4))
	if err == nil {
		t.Fatal("Snooze() error = nil, want validation error")
	}
	appErr, ok := err.(*errors.AppError)
	if !ok || appErr.Code != errors.ErrCodeValidation {
		t.Errorf("error = %v, want validation error", err)
	}
}

func TestSnoozeRejectsDeliveredReminder(t *testing.T) {
	now := testutil.Date(2025, 3, 5)
	repo, svc := newReminderFixture(now)
	seedReminder(t, repo, "r1", reminder.StatusSent)

	_, err := svc.Snooze(context.Background(), "r1", testutil.Date(2025, 3, 8))
	if err == nil {
		t.Fatal("Snooze() error = nil, want conflict")
	}
	appErr, ok := err.(*errors.AppError)
	if !ok || appErr.Code != errors.ErrCodeConflict {
		t.Errorf("error = %v, want conflict", err)
	}
}

func TestDeliverDue(t *testing.T) {
	now := testutil.Date(2025, 3, 10)
	repo, svc := newReminderFixture(now)

	overdue := testutil.Date(2025, 3, 9)
	future := testutil.Date(2025, 3, 12)
	seed := func(id string, at time.Time, status reminder.Status, snoozedUntil *time.Time) {
		t.Helper()
		err := repo.Create(context.Background(), &reminder.ScheduledReminder{
			ID:             id,
			SubscriptionID: "sub-1",
			Type:           reminder.TypeRenewal,
			ScheduledAt:    at,
			Status:         status,
			SnoozedUntil:   snoozedUntil,
		})
		if err != nil {
			t.Fatalf("seed reminder: %v", err)
		}
	}
	seed("r-due", overdue, reminder.StatusScheduled, nil)
	seed("r-future", future, reminder.StatusScheduled, nil)
	// Overdue instant, but the snooze pushed it past now.
	seed("r-snoozed", overdue, reminder.StatusSnoozed, &future)

	delivered, sentAt, err := svc.DeliverDue(context.Background(), "sub-1")
	if err != nil {
		t.Fatalf("DeliverDue() error = %v", err)
	}
	if delivered != 1 {
		t.Errorf("delivered = %d, want 1", delivered)
	}
	if sentAt == nil || !sentAt.Equal(now) {
		t.Errorf("sentAt = %v, want %v", sentAt, now)
	}

	wantStatus := map[string]reminder.Status{
		"r-due":     reminder.StatusSent,
		"r-future":  reminder.StatusScheduled,
		"r-snoozed": reminder.StatusSnoozed,
	}
	for id, want := range wantStatus {
		r, err := repo.GetByID(context.Background(), id)
		if err != nil {
			t.Fatalf("get %s: %v", id, err)
		}
		if r.Status != want {
			t.Errorf("%s Status = %s, want %s", id, r.Status, want)
		}
	}
}

func TestDismiss(t *testing.T) {
	now := testutil.Date(2025, 3, 5)
	repo, svc := newReminderFixture(now)
	seedReminder(t, repo, "r1", reminder.StatusScheduled)

	dismissed, err := svc.Dismiss(context.Background(), "r1")
	if err != nil {
		t.Fatalf("Dismiss() error = %v", err)
	}
	if dismissed.Status != reminder.StatusDismissed {
		t.Errorf("Status = %s, want %s", dismissed.Status, reminder.StatusDismissed)
	}

	pending, err := repo.ListPending(context.Background(), "sub-1")
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("pending = %d after dismiss, want 0", len(pending))
	}
}

func TestApplySkipsCancellingDeliveredReminder(t *testing.T) {
	// The engine wants the reminder gone but it was already delivered; the
	// dispatch side is authoritative, so the status stays sent.
	now := testutil.Date(2025, 3, 5)
	repo, _ := newReminderFixture(now)
	seedReminder(t, repo, "r1", reminder.StatusSent)

	dispatch := NewDispatchService(repo, testutil.NewTestLogger(), testutil.FixedClock(now))
	r, err := repo.GetByID(context.Background(), "r1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if err := dispatch.Apply(context.Background(), "sub-1", reminder.Diff{ToCancel: []*reminder.ScheduledReminder{r}}); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	got, err := repo.GetByID(context.Background(), "r1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != reminder.StatusSent {
		t.Errorf("Status = %s, want %s untouched", got.Status, reminder.StatusSent)
	}
}
