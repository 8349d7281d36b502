package policy

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/subtrack/subtrack/internal/domain/pricechange"
	"github.com/subtrack/subtrack/internal/domain/reminder"
	"github.com/subtrack/subtrack/internal/domain/subscription"
	"github.com/subtrack/subtrack/internal/testutil"
)

func defaultPrefs() reminder.Preferences {
	return reminder.Preferences{
		DefaultLeadDays: 3,
		DefaultTime:     "09:00",
	}
}

func applyDiff(existing []*reminder.ScheduledReminder, diff reminder.Diff) []*reminder.ScheduledReminder {
	cancelled := make(map[*reminder.ScheduledReminder]bool)
	for _, c := range diff.ToCancel {
		cancelled[c] = true
	}
	var next []*reminder.ScheduledReminder
	for _, ex := range existing {
		if cancelled[ex] {
			continue
		}
		next = append(next, ex)
	}
	for i, cr := range diff.ToCreate {
		cp := *cr
		cp.ID = string(rune('a' + i))
		next = append(next, &cp)
	}
	return next
}

func TestReconcileCreatesRenewalReminder(t *testing.T) {
	now := testutil.Date(2025, 3, 1)
	sub := testutil.NewSubscription("sub-1", testutil.Date(2025, 3, 10))

	diff := Reconcile(sub, nil, nil, now, defaultPrefs())

	if len(diff.ToCreate) != 1 {
		t.Fatalf("ToCreate = %d reminders, want 1", len(diff.ToCreate))
	}
	r := diff.ToCreate[0]
	if r.Type != reminder.TypeRenewal {
		t.Errorf("Type = %s, want %s", r.Type, reminder.TypeRenewal)
	}
	want := time.Date(2025, 3, 7, 9, 0, 0, 0, time.UTC)
	if !r.ScheduledAt.Equal(want) {
		t.Errorf("ScheduledAt = %v, want %v", r.ScheduledAt, want)
	}
	if r.Priority != reminder.PriorityMedium {
		t.Errorf("Priority = %s, want %s", r.Priority, reminder.PriorityMedium)
	}
	if r.Message != "Test Service renews on Mar 10, 2025 for $9.99" {
		t.Errorf("Message = %q", r.Message)
	}
	if r.ID != "" {
		t.Errorf("ID = %q, want unset", r.ID)
	}
}

func TestReconcileIsIdempotent(t *testing.T) {
	now := testutil.Date(2025, 3, 1)
	sub := testutil.NewSubscription("sub-1", testutil.Date(2025, 3, 10))
	prefs := defaultPrefs()

	first := Reconcile(sub, nil, nil, now, prefs)
	existing := applyDiff(nil, first)

	second := Reconcile(sub, nil, existing, now, prefs)
	if !second.Empty() {
		t.Errorf("second pass diff not empty: create=%d update=%d cancel=%d",
			len(second.ToCreate), len(second.ToUpdate), len(second.ToCancel))
	}
}

func TestReconcileReplacesStaleInstant(t *testing.T) {
	now := testutil.Date(2025, 3, 1)
	sub := testutil.NewSubscription("sub-1", testutil.Date(2025, 3, 10))
	prefs := defaultPrefs()

	existing := applyDiff(nil, Reconcile(sub, nil, nil, now, prefs))

	// The billing date moves, so the pending reminder's instant is stale.
	sub.NextBillingDate = testutil.Date(2025, 3, 20)
	diff := Reconcile(sub, nil, existing, now, prefs)

	if len(diff.ToCancel) != 1 {
		t.Fatalf("ToCancel = %d, want 1", len(diff.ToCancel))
	}
	if len(diff.ToCreate) != 1 {
		t.Fatalf("ToCreate = %d, want 1", len(diff.ToCreate))
	}
	want := time.Date(2025, 3, 17, 9, 0, 0, 0, time.UTC)
	if !diff.ToCreate[0].ScheduledAt.Equal(want) {
		t.Errorf("ScheduledAt = %v, want %v", diff.ToCreate[0].ScheduledAt, want)
	}
}

func TestReconcileCancelsWhenConditionGone(t *testing.T) {
	now := testutil.Date(2025, 3, 1)
	sub := testutil.NewSubscription("sub-1", testutil.Date(2025, 3, 10))
	prefs := defaultPrefs()

	existing := applyDiff(nil, Reconcile(sub, nil, nil, now, prefs))

	sub.IsActive = false
	diff := Reconcile(sub, nil, existing, now, prefs)

	if len(diff.ToCancel) != 1 {
		t.Fatalf("ToCancel = %d, want 1", len(diff.ToCancel))
	}
	if len(diff.ToCreate) != 0 {
		t.Errorf("ToCreate = %d, want 0", len(diff.ToCreate))
	}
}

func TestReconcileCancelsDuplicatePending(t *testing.T) {
	now := testutil.Date(2025, 3, 1)
	sub := testutil.NewSubscription("sub-1", testutil.Date(2025, 3, 10))
	at := time.Date(2025, 3, 7, 9, 0, 0, 0, time.UTC)

	dup := func(id string) *reminder.ScheduledReminder {
		return &reminder.ScheduledReminder{
			ID:             id,
			SubscriptionID: sub.ID,
			Type:           reminder.TypeRenewal,
			ScheduledAt:    at,
			Status:         reminder.StatusScheduled,
			Message:        "Test Service renews on Mar 10, 2025 for $9.99",
		}
	}
	existing := []*reminder.ScheduledReminder{dup("r1"), dup("r2"), dup("r3")}

	diff := Reconcile(sub, nil, existing, now, defaultPrefs())

	if len(diff.ToCancel) != 2 {
		t.Errorf("ToCancel = %d, want 2 duplicates cancelled", len(diff.ToCancel))
	}
	if len(diff.ToCreate) != 0 {
		t.Errorf("ToCreate = %d, want 0", len(diff.ToCreate))
	}
}

func TestReconcileOverdueInstantCoercesToNow(t *testing.T) {
	// Renewal in one day with a three-day lead: the computed instant is in
	// the past and must coerce to now, never be dropped.
	now := time.Date(2025, 3, 9, 12, 0, 0, 0, time.UTC)
	sub := testutil.NewSubscription("sub-1", testutil.Date(2025, 3, 10))

	diff := Reconcile(sub, nil, nil, now, defaultPrefs())

	if len(diff.ToCreate) != 1 {
		t.Fatalf("ToCreate = %d, want 1", len(diff.ToCreate))
	}
	if diff.ToCreate[0].ScheduledAt.Before(now) {
		t.Errorf("ScheduledAt = %v is in the past", diff.ToCreate[0].ScheduledAt)
	}
}

func TestReconcileLeadClampedToCreation(t *testing.T) {
	// A subscription created yesterday with a 30-day lead must not get a
	// reminder dated before it existed.
	now := testutil.Date(2025, 3, 1)
	sub := testutil.NewSubscription("sub-1", testutil.Date(2025, 3, 10))
	sub.CreatedAt = testutil.Date(2025, 2, 28)
	sub.ReminderDaysBefore = 30

	diff := Reconcile(sub, nil, nil, now, defaultPrefs())

	if len(diff.ToCreate) != 1 {
		t.Fatalf("ToCreate = %d, want 1", len(diff.ToCreate))
	}
	if diff.ToCreate[0].ScheduledAt.Before(sub.CreatedAt) {
		t.Errorf("ScheduledAt = %v precedes creation %v", diff.ToCreate[0].ScheduledAt, sub.CreatedAt)
	}
}

func TestReconcileQuietHoursShift(t *testing.T) {
	now := testutil.Date(2025, 3, 1)
	sub := testutil.NewSubscription("sub-1", testutil.Date(2025, 3, 10))
	sub.ReminderTime = "23:00"

	prefs := defaultPrefs()
	prefs.QuietHours = reminder.QuietWindow{Enabled: true, Start: "22:00", End: "07:00"}

	diff := Reconcile(sub, nil, nil, now, prefs)

	if len(diff.ToCreate) != 1 {
		t.Fatalf("ToCreate = %d, want 1", len(diff.ToCreate))
	}
	// 23:00 on Mar 7 is inside the window, shifts to 07:00 next morning.
	want := time.Date(2025, 3, 8, 7, 0, 0, 0, time.UTC)
	if !diff.ToCreate[0].ScheduledAt.Equal(want) {
		t.Errorf("ScheduledAt = %v, want %v", diff.ToCreate[0].ScheduledAt, want)
	}
}

func TestReconcileQuietHoursSameDayWindow(t *testing.T) {
	now := testutil.Date(2025, 3, 1)
	sub := testutil.NewSubscription("sub-1", testutil.Date(2025, 3, 10))
	sub.ReminderTime = "13:30"

	prefs := defaultPrefs()
	prefs.QuietHours = reminder.QuietWindow{Enabled: true, Start: "13:00", End: "15:00"}

	diff := Reconcile(sub, nil, nil, now, prefs)

	want := time.Date(2025, 3, 7, 15, 0, 0, 0, time.UTC)
	if !diff.ToCreate[0].ScheduledAt.Equal(want) {
		t.Errorf("ScheduledAt = %v, want %v", diff.ToCreate[0].ScheduledAt, want)
	}
}

func TestReconcileSnoozeSatisfiesType(t *testing.T) {
	now := testutil.Date(2025, 3, 1)
	sub := testutil.NewSubscription("sub-1", testutil.Date(2025, 3, 10))
	until := testutil.Date(2025, 3, 5)

	existing := []*reminder.ScheduledReminder{{
		ID:             "r1",
		SubscriptionID: sub.ID,
		Type:           reminder.TypeRenewal,
		ScheduledAt:    testutil.Date(2025, 2, 20),
		Status:         reminder.StatusSnoozed,
		SnoozedUntil:   &until,
	}}

	diff := Reconcile(sub, nil, existing, now, defaultPrefs())
	if !diff.Empty() {
		t.Errorf("diff not empty with a live snooze: create=%d cancel=%d",
			len(diff.ToCreate), len(diff.ToCancel))
	}
}

func TestReconcileRenewalSuppressed(t *testing.T) {
	now := testutil.Date(2025, 3, 1)

	tests := []struct {
		name   string
		mutate func(*subscription.Subscription)
	}{
		{"reminders disabled", func(s *subscription.Subscription) { s.EnableRenewalReminder = false }},
		{"inactive", func(s *subscription.Subscription) { s.IsActive = false }},
		{"lifetime", func(s *subscription.Subscription) {
			s.BillingCycle = subscription.CycleLifetime
			s.NextBillingDate = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := testutil.NewSubscription("sub-1", testutil.Date(2025, 3, 10))
			tt.mutate(sub)
			diff := Reconcile(sub, nil, nil, now, defaultPrefs())
			if len(diff.ToCreate) != 0 {
				t.Errorf("ToCreate = %d, want 0", len(diff.ToCreate))
			}
		})
	}
}

func TestReconcileTrialReminderInstants(t *testing.T) {
	start := testutil.Date(2025, 3, 1)
	end := testutil.Date(2025, 3, 15)

	tests := []struct {
		name        string
		now         time.Time
		wantDay     time.Time
		wantMessage string
	}{
		{"three days out", testutil.Date(2025, 3, 10), testutil.Date(2025, 3, 12), "Test Service free trial ends on Mar 15, 2025"},
		{"one day out", time.Date(2025, 3, 13, 12, 0, 0, 0, time.UTC), testutil.Date(2025, 3, 14), "Test Service free trial ends tomorrow"},
		{"end date", time.Date(2025, 3, 15, 8, 0, 0, 0, time.UTC), testutil.Date(2025, 3, 15), "Test Service free trial ends today"},
		{"end date evening", time.Date(2025, 3, 15, 18, 0, 0, 0, time.UTC), testutil.Date(2025, 3, 15), "Test Service free trial ends today"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := testutil.NewTrialSubscription("sub-1", start, end)
			sub.EnableRenewalReminder = false

			diff := Reconcile(sub, nil, nil, tt.now, defaultPrefs())

			if len(diff.ToCreate) != 1 {
				t.Fatalf("ToCreate = %d, want 1", len(diff.ToCreate))
			}
			r := diff.ToCreate[0]
			if r.Type != reminder.TypeTrialExpiration {
				t.Errorf("Type = %s, want %s", r.Type, reminder.TypeTrialExpiration)
			}
			if r.Priority != reminder.PriorityHigh {
				t.Errorf("Priority = %s, want %s", r.Priority, reminder.PriorityHigh)
			}
			if r.ScheduledAt.Year() != tt.wantDay.Year() || r.ScheduledAt.YearDay() != tt.wantDay.YearDay() {
				t.Errorf("ScheduledAt = %v, want day %v", r.ScheduledAt, tt.wantDay)
			}
			if r.Message != tt.wantMessage {
				t.Errorf("Message = %q, want %q", r.Message, tt.wantMessage)
			}
		})
	}
}

func TestReconcileNoTrialReminderAfterEndDay(t *testing.T) {
	start := testutil.Date(2025, 3, 1)
	end := testutil.Date(2025, 3, 15)
	sub := testutil.NewTrialSubscription("sub-1", start, end)
	sub.EnableRenewalReminder = false

	diff := Reconcile(sub, nil, nil, testutil.Date(2025, 3, 16), defaultPrefs())

	if len(diff.ToCreate) != 0 {
		t.Errorf("ToCreate = %d, want 0 once the trial window has passed", len(diff.ToCreate))
	}
}

func TestReconcileShortTrialSkipsEarlyInstants(t *testing.T) {
	// A two-day trial has no room for the three-day instant; the earliest
	// instant inside the window wins.
	start := testutil.Date(2025, 3, 14)
	end := testutil.Date(2025, 3, 15)
	sub := testutil.NewTrialSubscription("sub-1", start, end)
	sub.EnableRenewalReminder = false

	diff := Reconcile(sub, nil, nil, start, defaultPrefs())

	if len(diff.ToCreate) != 1 {
		t.Fatalf("ToCreate = %d, want 1", len(diff.ToCreate))
	}
	r := diff.ToCreate[0]
	if r.ScheduledAt.Before(start) {
		t.Errorf("ScheduledAt = %v precedes trial start %v", r.ScheduledAt, start)
	}
}

func TestReconcileExpiredTrialNoReminder(t *testing.T) {
	start := testutil.Date(2025, 3, 1)
	end := testutil.Date(2025, 3, 15)
	sub := testutil.NewTrialSubscription("sub-1", start, end)
	sub.EnableRenewalReminder = false

	diff := Reconcile(sub, nil, nil, testutil.Date(2025, 3, 16), defaultPrefs())

	if len(diff.ToCreate) != 0 {
		t.Errorf("ToCreate = %d, want 0 for an expired trial", len(diff.ToCreate))
	}
}

func TestReconcilePriceIncreaseReminder(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	sub := testutil.NewSubscription("sub-1", testutil.Date(2025, 3, 10))
	sub.EnableRenewalReminder = false

	pc := &pricechange.PriceChange{
		SubscriptionID: sub.ID,
		OldPrice:       decimal.RequireFromString("9.99"),
		NewPrice:       decimal.RequireFromString("12.99"),
		ChangeDate:     now,
	}

	diff := Reconcile(sub, pc, nil, now, defaultPrefs())

	if len(diff.ToCreate) != 1 {
		t.Fatalf("ToCreate = %d, want 1", len(diff.ToCreate))
	}
	r := diff.ToCreate[0]
	if r.Type != reminder.TypePriceChange {
		t.Errorf("Type = %s, want %s", r.Type, reminder.TypePriceChange)
	}
	if !r.ScheduledAt.Equal(now) {
		t.Errorf("ScheduledAt = %v, want immediate %v", r.ScheduledAt, now)
	}
	want := "Test Service price increased from $9.99 to $12.99 (+30%)"
	if r.Message != want {
		t.Errorf("Message = %q, want %q", r.Message, want)
	}
}

func TestReconcilePriceDecreaseIgnored(t *testing.T) {
	now := testutil.Date(2025, 3, 1)
	sub := testutil.NewSubscription("sub-1", testutil.Date(2025, 3, 10))
	sub.EnableRenewalReminder = false

	pc := &pricechange.PriceChange{
		SubscriptionID: sub.ID,
		OldPrice:       decimal.RequireFromString("12.99"),
		NewPrice:       decimal.RequireFromString("9.99"),
		ChangeDate:     now,
	}

	diff := Reconcile(sub, pc, nil, now, defaultPrefs())
	if len(diff.ToCreate) != 0 {
		t.Errorf("ToCreate = %d, want 0 for a price decrease", len(diff.ToCreate))
	}
}

func TestReconcileSentSameDayNotRecreated(t *testing.T) {
	// A renewal reminder already fired this morning; the engine must not
	// schedule another for the same day.
	now := time.Date(2025, 3, 7, 14, 0, 0, 0, time.UTC)
	sub := testutil.NewSubscription("sub-1", testutil.Date(2025, 3, 10))

	existing := []*reminder.ScheduledReminder{{
		ID:             "r1",
		SubscriptionID: sub.ID,
		Type:           reminder.TypeRenewal,
		ScheduledAt:    time.Date(2025, 3, 7, 9, 0, 0, 0, time.UTC),
		Status:         reminder.StatusSent,
	}}

	diff := Reconcile(sub, nil, existing, now, defaultPrefs())
	if len(diff.ToCreate) != 0 {
		t.Errorf("ToCreate = %d, want 0 after same-day delivery", len(diff.ToCreate))
	}
}
