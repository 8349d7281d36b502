package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/subtrack/subtrack/internal/domain/reminder"
	"github.com/subtrack/subtrack/internal/domain/subscription"
	"github.com/subtrack/subtrack/internal/testutil"
)

type processorFixture struct {
	subRepo   *testutil.MockSubscriptionRepository
	pcRepo    *testutil.MockPriceChangeRepository
	remRepo   *testutil.MockReminderRepository
	processor *ProcessorService
}

func newProcessorFixture(now time.Time) *processorFixture {
	log := testutil.NewTestLogger()
	clock := testutil.FixedClock(now)

	subRepo := testutil.NewMockSubscriptionRepository()
	pcRepo := testutil.NewMockPriceChangeRepository()
	remRepo := testutil.NewMockReminderRepository()

	ledger := NewLedgerService(pcRepo, subRepo, log, clock)
	dispatch := NewDispatchService(remRepo, log, clock)
	remSvc := NewReminderService(remRepo, pcRepo, dispatch, reminder.Preferences{
		DefaultLeadDays: 3,
		DefaultTime:     "09:00",
	}, log, clock)

	return &processorFixture{
		subRepo:   subRepo,
		pcRepo:    pcRepo,
		remRepo:   remRepo,
		processor: NewProcessorService(subRepo, ledger, remSvc, log, clock),
	}
}

func (f *processorFixture) pendingReminders(t *testing.T, subscriptionID string) []*reminder.ScheduledReminder {
	t.Helper()
	pending, err := f.remRepo.ListPending(context.Background(), subscriptionID)
	if err != nil {
		t.Fatalf("list pending reminders: %v", err)
	}
	return pending
}

func (f *processorFixture) seed(t *testing.T, sub *subscription.Subscription) {
	t.Helper()
	if err := f.subRepo.Create(context.Background(), sub); err != nil {
		t.Fatalf("seed subscription: %v", err)
	}
}

func (f *processorFixture) get(t *testing.T, id string) *subscription.Subscription {
	t.Helper()
	sub, err := f.subRepo.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get subscription: %v", err)
	}
	return sub
}

func TestRunCatchesUpOverdueCycles(t *testing.T) {
	now := testutil.Date(2025, 3, 10)
	f := newProcessorFixture(now)

	sub := testutil.NewSubscription("sub-1", testutil.Date(2025, 1, 5))
	sub.Price = decimal.RequireFromString("15.99")
	f.seed(t, sub)

	result, err := f.processor.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// Billing dates 2025-01-05, 2025-02-05 and 2025-03-05 have all elapsed.
	if result.CyclesAdvanced != 3 {
		t.Errorf("CyclesAdvanced = %d, want 3", result.CyclesAdvanced)
	}

	got := f.get(t, "sub-1")
	if !got.NextBillingDate.Equal(testutil.Date(2025, 4, 5)) {
		t.Errorf("NextBillingDate = %v, want 2025-04-05", got.NextBillingDate)
	}
	if want := decimal.RequireFromString("47.97"); !got.TotalSpent.Equal(want) {
		t.Errorf("TotalSpent = %s, want %s", got.TotalSpent, want)
	}
	if got.LastBillingDate == nil || !got.LastBillingDate.Equal(testutil.Date(2025, 3, 5)) {
		t.Errorf("LastBillingDate = %v, want 2025-03-05", got.LastBillingDate)
	}

	pending := f.pendingReminders(t, "sub-1")
	if len(pending) != 1 {
		t.Fatalf("pending reminders = %d, want 1", len(pending))
	}
	if pending[0].Type != reminder.TypeRenewal {
		t.Errorf("reminder type = %s, want %s", pending[0].Type, reminder.TypeRenewal)
	}
}

func TestRunCatchUpFortyDaysMonthly(t *testing.T) {
	now := testutil.Date(2025, 3, 12)
	f := newProcessorFixture(now)

	// 40 days overdue: exactly two monthly dates have elapsed, not one, not
	// an unbounded number.
	sub := testutil.NewSubscription("sub-1", testutil.Date(2025, 1, 31))
	f.seed(t, sub)

	result, err := f.processor.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.CyclesAdvanced != 2 {
		t.Errorf("CyclesAdvanced = %d, want 2", result.CyclesAdvanced)
	}
	got := f.get(t, "sub-1")
	if !got.NextBillingDate.After(now) {
		t.Errorf("NextBillingDate = %v, still in the past", got.NextBillingDate)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	now := testutil.Date(2025, 3, 10)
	f := newProcessorFixture(now)

	sub := testutil.NewSubscription("sub-1", testutil.Date(2025, 1, 5))
	f.seed(t, sub)

	if _, err := f.processor.Run(context.Background()); err != nil {
		t.Fatalf("first Run() error = %v", err)
	}
	afterFirst := f.get(t, "sub-1")

	result, err := f.processor.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}

	if result.CyclesAdvanced != 0 {
		t.Errorf("second run CyclesAdvanced = %d, want 0", result.CyclesAdvanced)
	}
	if result.RemindersCreated != 0 {
		t.Errorf("second run RemindersCreated = %d, want 0", result.RemindersCreated)
	}

	afterSecond := f.get(t, "sub-1")
	if !afterSecond.NextBillingDate.Equal(afterFirst.NextBillingDate) {
		t.Errorf("NextBillingDate changed on re-run: %v -> %v", afterFirst.NextBillingDate, afterSecond.NextBillingDate)
	}
	if !afterSecond.TotalSpent.Equal(afterFirst.TotalSpent) {
		t.Errorf("TotalSpent changed on re-run: %s -> %s", afterFirst.TotalSpent, afterSecond.TotalSpent)
	}
}

func TestRunSkipsNonRenewing(t *testing.T) {
	now := testutil.Date(2025, 3, 10)

	tests := []struct {
		name   string
		mutate func(*subscription.Subscription)
	}{
		{"auto renew off", func(s *subscription.Subscription) { s.AutoRenew = false }},
		{"lifetime", func(s *subscription.Subscription) {
			s.BillingCycle = subscription.CycleLifetime
			s.NextBillingDate = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newProcessorFixture(now)
			sub := testutil.NewSubscription("sub-1", testutil.Date(2025, 1, 5))
			tt.mutate(sub)
			if sub.BillingCycle == subscription.CycleLifetime {
				sub.NextBillingDate = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
			}
			before := sub.TotalSpent
			f.seed(t, sub)

			result, err := f.processor.Run(context.Background())
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if result.CyclesAdvanced != 0 {
				t.Errorf("CyclesAdvanced = %d, want 0", result.CyclesAdvanced)
			}
			if got := f.get(t, "sub-1"); !got.TotalSpent.Equal(before) {
				t.Errorf("TotalSpent = %s, want unchanged %s", got.TotalSpent, before)
			}
		})
	}
}

func TestRunDeliversDueReminders(t *testing.T) {
	now := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
	f := newProcessorFixture(now)

	sub := testutil.NewSubscription("sub-1", testutil.Date(2025, 3, 17))
	f.seed(t, sub)

	due := &reminder.ScheduledReminder{
		ID:             "rem-1",
		SubscriptionID: "sub-1",
		Type:           reminder.TypeRenewal,
		ScheduledAt:    time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC),
		Status:         reminder.StatusScheduled,
		Priority:       reminder.PriorityMedium,
		Message:        "Test Service renews on Mar 17, 2025 for $9.99",
	}
	if err := f.remRepo.Create(context.Background(), due); err != nil {
		t.Fatalf("seed reminder: %v", err)
	}

	result, err := f.processor.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.RemindersSent != 1 {
		t.Errorf("RemindersSent = %d, want 1", result.RemindersSent)
	}
	got, err := f.remRepo.GetByID(context.Background(), "rem-1")
	if err != nil {
		t.Fatalf("get reminder: %v", err)
	}
	if got.Status != reminder.StatusSent {
		t.Errorf("Status = %s, want %s", got.Status, reminder.StatusSent)
	}

	updated := f.get(t, "sub-1")
	if updated.LastReminderSent == nil || !updated.LastReminderSent.Equal(now) {
		t.Errorf("LastReminderSent = %v, want %v", updated.LastReminderSent, now)
	}

	// The delivered renewal covers its day; reconciliation must not raise a
	// replacement for the same instant.
	if pending := f.pendingReminders(t, "sub-1"); len(pending) != 0 {
		t.Errorf("pending after delivery = %d, want 0", len(pending))
	}
}

func TestRunConvertsExpiredTrial(t *testing.T) {
	now := testutil.Date(2025, 3, 16)
	f := newProcessorFixture(now)

	sub := testutil.NewTrialSubscription("sub-1", testutil.Date(2025, 3, 1), testutil.Date(2025, 3, 15))
	sub.WillConvertToPaid = true
	paid := decimal.RequireFromString("12.99")
	sub.PriceAfterTrial = &paid
	f.seed(t, sub)

	result, err := f.processor.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.TrialsConverted != 1 {
		t.Errorf("TrialsConverted = %d, want 1", result.TrialsConverted)
	}

	got := f.get(t, "sub-1")
	if got.TrialPhase != subscription.TrialPhaseConverted {
		t.Errorf("TrialPhase = %s, want %s", got.TrialPhase, subscription.TrialPhaseConverted)
	}
	if !got.Price.Equal(paid) {
		t.Errorf("Price = %s, want %s", got.Price, paid)
	}
	if !got.NextBillingDate.Equal(testutil.Date(2025, 4, 16)) {
		t.Errorf("NextBillingDate = %v, want 2025-04-16", got.NextBillingDate)
	}
	// Trial history stays as frozen record.
	if got.TrialEndDate == nil {
		t.Error("TrialEndDate cleared, want frozen trial history")
	}

	if len(f.pcRepo.Changes) != 1 {
		t.Fatalf("price ledger rows = %d, want 1", len(f.pcRepo.Changes))
	}
	pc := f.pcRepo.Changes[0]
	if !pc.DetectedAutomatically {
		t.Error("DetectedAutomatically = false, want true for trial conversion")
	}
	if !pc.NewPrice.Equal(paid) {
		t.Errorf("NewPrice = %s, want %s", pc.NewPrice, paid)
	}
	// The batch save must not wipe the cache pointer the ledger set.
	if got.LastPriceChange == nil {
		t.Fatal("LastPriceChange = nil after trial conversion, want the conversion instant")
	}
	if !got.LastPriceChange.Equal(pc.ChangeDate) {
		t.Errorf("LastPriceChange = %v, want %v", got.LastPriceChange, pc.ChangeDate)
	}
}

func TestRunTrialConversionExactlyOnce(t *testing.T) {
	now := testutil.Date(2025, 3, 16)
	f := newProcessorFixture(now)

	sub := testutil.NewTrialSubscription("sub-1", testutil.Date(2025, 3, 1), testutil.Date(2025, 3, 15))
	sub.WillConvertToPaid = true
	paid := decimal.RequireFromString("12.99")
	sub.PriceAfterTrial = &paid
	f.seed(t, sub)

	if _, err := f.processor.Run(context.Background()); err != nil {
		t.Fatalf("first Run() error = %v", err)
	}
	result, err := f.processor.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}

	if result.TrialsConverted != 0 {
		t.Errorf("second run TrialsConverted = %d, want 0", result.TrialsConverted)
	}
	if len(f.pcRepo.Changes) != 1 {
		t.Errorf("price ledger rows = %d, want exactly 1 after re-run", len(f.pcRepo.Changes))
	}
}

func TestRunLapsesNonConvertingTrial(t *testing.T) {
	now := testutil.Date(2025, 3, 16)
	f := newProcessorFixture(now)

	sub := testutil.NewTrialSubscription("sub-1", testutil.Date(2025, 3, 1), testutil.Date(2025, 3, 15))
	sub.WillConvertToPaid = false
	f.seed(t, sub)

	result, err := f.processor.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.TrialsLapsed != 1 {
		t.Errorf("TrialsLapsed = %d, want 1", result.TrialsLapsed)
	}
	got := f.get(t, "sub-1")
	if got.TrialPhase != subscription.TrialPhaseLapsed {
		t.Errorf("TrialPhase = %s, want %s", got.TrialPhase, subscription.TrialPhaseLapsed)
	}
	if got.IsActive {
		t.Error("IsActive = true, want false after lapse")
	}
	if got.CancellationDate == nil {
		t.Error("CancellationDate = nil, want set")
	}
}

func TestRunActiveTrialUntouched(t *testing.T) {
	now := testutil.Date(2025, 3, 10)
	f := newProcessorFixture(now)

	sub := testutil.NewTrialSubscription("sub-1", testutil.Date(2025, 3, 1), testutil.Date(2025, 3, 15))
	f.seed(t, sub)

	result, err := f.processor.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.TrialsConverted != 0 || result.TrialsLapsed != 0 {
		t.Errorf("trial transitions = %d/%d, want none before expiry", result.TrialsConverted, result.TrialsLapsed)
	}
	// Trialing subscriptions never accrue renewal spend.
	if result.CyclesAdvanced != 0 {
		t.Errorf("CyclesAdvanced = %d, want 0 while trialing", result.CyclesAdvanced)
	}
	got := f.get(t, "sub-1")
	if got.TrialPhase != subscription.TrialPhaseTrialing {
		t.Errorf("TrialPhase = %s, want %s", got.TrialPhase, subscription.TrialPhaseTrialing)
	}
}

func TestRunOneFailureDoesNotAbortBatch(t *testing.T) {
	now := testutil.Date(2025, 3, 10)
	f := newProcessorFixture(now)

	f.seed(t, testutil.NewSubscription("sub-1", testutil.Date(2025, 3, 20)))
	f.seed(t, testutil.NewSubscription("sub-2", testutil.Date(2025, 3, 25)))

	// Reminder listing fails for every subscription, so each one is skipped
	// and counted, but the run itself still succeeds.
	f.remRepo.ListError = context.DeadlineExceeded

	result, err := f.processor.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Failed != 2 {
		t.Errorf("Failed = %d, want 2", result.Failed)
	}
	if result.Processed != 0 {
		t.Errorf("Processed = %d, want 0", result.Processed)
	}
}

func TestRunStopsBetweenSubscriptionsOnCancel(t *testing.T) {
	now := testutil.Date(2025, 3, 10)
	f := newProcessorFixture(now)

	f.seed(t, testutil.NewSubscription("sub-1", testutil.Date(2025, 1, 5)))
	f.seed(t, testutil.NewSubscription("sub-2", testutil.Date(2025, 1, 5)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := f.processor.Run(ctx)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Processed != 0 {
		t.Errorf("Processed = %d, want 0 with a cancelled context", result.Processed)
	}
}
