// Package policy implements the reminder policy engine: given a subscription
// snapshot and the reminders that already exist, it decides which reminder
// instants should exist and emits create/update/cancel instructions. The
// engine is pure; it never touches persistence and assigns no IDs.
package policy

import (
	"fmt"
	"time"

	"github.com/subtrack/subtrack/internal/billing"
	"github.com/subtrack/subtrack/internal/domain/pricechange"
	"github.com/subtrack/subtrack/internal/domain/reminder"
	"github.com/subtrack/subtrack/internal/domain/subscription"
)

// fallbackTimeOfDay is used when neither the subscription nor the
// preferences carry a parseable reminder time.
const fallbackTimeOfDay = "09:00"

// desired is one reminder instant the engine wants to exist.
type desired struct {
	typ     reminder.Type
	at      time.Time
	message string
}

// Reconcile compares the reminders that should exist for a subscription
// against the ones that do, and returns the diff. priceIncrease is the most
// recent unnotified price increase for the subscription, or nil.
//
// Guarantees:
//   - at most one pending reminder per type survives reconciliation
//   - an instant on the same calendar day as an existing pending reminder of
//     the same type is treated as already satisfied
//   - snoozed reminders satisfy their type until the snooze expires
//   - no emitted instant is ever in the past; overdue arithmetic coerces to
//     now rather than dropping the reminder
//   - instants inside the quiet window shift forward to its end
func Reconcile(
	sub *subscription.Subscription,
	priceIncrease *pricechange.PriceChange,
	existing []*reminder.ScheduledReminder,
	now time.Time,
	prefs reminder.Preferences,
) reminder.Diff {
	want := desiredReminders(sub, priceIncrease, now, prefs)

	var diff reminder.Diff
	satisfiedTypes := make(map[reminder.Type]bool)

	// Pending reminders, one bucket per type. Anything beyond the first of a
	// type is a duplicate and gets cancelled outright.
	pending := make(map[reminder.Type]*reminder.ScheduledReminder)
	for _, ex := range existing {
		if !ex.Status.IsPending() {
			continue
		}
		if pending[ex.Type] != nil {
			diff.ToCancel = append(diff.ToCancel, ex)
			continue
		}
		pending[ex.Type] = ex
	}

	for _, d := range want {
		ex := pending[d.typ]
		if ex == nil {
			if sentSameDay(existing, d) {
				continue
			}
			diff.ToCreate = append(diff.ToCreate, &reminder.ScheduledReminder{
				SubscriptionID: sub.ID,
				Type:           d.typ,
				ScheduledAt:    d.at,
				Status:         reminder.StatusScheduled,
				Priority:       reminder.PriorityForType(d.typ),
				Message:        d.message,
			})
			satisfiedTypes[d.typ] = true
			continue
		}

		satisfiedTypes[d.typ] = true

		// A live snooze satisfies the type; the instant becomes eligible
		// for recomputation once the snooze expires.
		if ex.Status == reminder.StatusSnoozed && ex.SnoozedUntil != nil && ex.SnoozedUntil.After(now) {
			continue
		}

		if sameDay(ex.ScheduledAt, d.at) {
			if ex.Message != d.message {
				upd := *ex
				upd.Message = d.message
				diff.ToUpdate = append(diff.ToUpdate, &upd)
			}
			continue
		}

		// Stale instant: replace rather than stack.
		diff.ToCancel = append(diff.ToCancel, ex)
		diff.ToCreate = append(diff.ToCreate, &reminder.ScheduledReminder{
			SubscriptionID: sub.ID,
			Type:           d.typ,
			ScheduledAt:    d.at,
			Status:         reminder.StatusScheduled,
			Priority:       reminder.PriorityForType(d.typ),
			Message:        d.message,
		})
	}

	// Pending reminders whose underlying condition no longer holds.
	for typ, ex := range pending {
		if !satisfiedTypes[typ] {
			diff.ToCancel = append(diff.ToCancel, ex)
		}
	}

	return diff
}

// desiredReminders computes the instants that should exist right now, one
// per type at most.
func desiredReminders(
	sub *subscription.Subscription,
	priceIncrease *pricechange.PriceChange,
	now time.Time,
	prefs reminder.Preferences,
) []desired {
	var want []desired

	if d, ok := renewalReminder(sub, now, prefs); ok {
		want = append(want, d)
	}
	if d, ok := trialReminder(sub, now, prefs); ok {
		want = append(want, d)
	}
	if priceIncrease != nil && priceIncrease.IsIncrease() && sub.IsActive {
		pct := priceIncrease.FormattedChangePercentage()
		want = append(want, desired{
			typ: reminder.TypePriceChange,
			at:  shiftOutOfQuietWindow(now, prefs.QuietHours),
			message: fmt.Sprintf("%s price increased from %s to %s (%s)",
				sub.Name, formatPrice(priceIncrease.OldPrice.StringFixed(2)),
				formatPrice(priceIncrease.NewPrice.StringFixed(2)), pct),
		})
	}

	return want
}

func renewalReminder(sub *subscription.Subscription, now time.Time, prefs reminder.Preferences) (desired, bool) {
	if !sub.IsActive || !sub.EnableRenewalReminder {
		return desired{}, false
	}
	// Trial windows are covered by the trial expiration type.
	if sub.IsTrialing() {
		return desired{}, false
	}
	if billing.IsNever(sub.NextBillingDate) {
		return desired{}, false
	}

	leadDays := sub.ReminderDaysBefore
	if leadDays < 0 {
		leadDays = prefs.DefaultLeadDays
	}

	hour, min := timeOfDay(sub, prefs)
	at := atTimeOfDay(sub.NextBillingDate.AddDate(0, 0, -leadDays), hour, min)

	// The lead time must not reach back before the subscription existed.
	if at.Before(sub.CreatedAt) {
		at = sub.CreatedAt
	}
	if at.Before(now) {
		at = now
	}
	at = shiftOutOfQuietWindow(at, prefs.QuietHours)

	return desired{
		typ: reminder.TypeRenewal,
		at:  at,
		message: fmt.Sprintf("%s renews on %s for %s",
			sub.Name, sub.NextBillingDate.Format("Jan 2, 2006"),
			formatPrice(sub.Price.StringFixed(2))),
	}, true
}

// trialReminder picks the next upcoming of the three fixed trial instants:
// three days before the trial ends, one day before, and on the end date.
func trialReminder(sub *subscription.Subscription, now time.Time, prefs reminder.Preferences) (desired, bool) {
	if !sub.IsTrialing() || sub.TrialEndDate == nil {
		return desired{}, false
	}
	end := *sub.TrialEndDate
	// End dates are stored at midnight; the trial still runs for the whole
	// of its last calendar day.
	if billing.CalendarDaysBetween(now, end) < 0 {
		return desired{}, false
	}

	hour, min := timeOfDay(sub, prefs)
	for _, offset := range []int{3, 1, 0} {
		at := atTimeOfDay(end.AddDate(0, 0, -offset), hour, min)
		if sub.TrialStartDate != nil && at.Before(*sub.TrialStartDate) {
			continue
		}
		coerced := at
		if coerced.Before(now) {
			// Only the nearest overdue instant is coerced to immediate;
			// earlier ones have been superseded.
			if offset != 0 && !sameDay(at, now) {
				continue
			}
			coerced = now
		}
		coerced = shiftOutOfQuietWindow(coerced, prefs.QuietHours)
		return desired{
			typ:     reminder.TypeTrialExpiration,
			at:      coerced,
			message: trialMessage(sub.Name, end, at),
		}, true
	}

	// All instants fall before the trial started; remind on the end date.
	at := shiftOutOfQuietWindow(maxTime(atTimeOfDay(end, hour, min), now), prefs.QuietHours)
	return desired{
		typ:     reminder.TypeTrialExpiration,
		at:      at,
		message: trialMessage(sub.Name, end, end),
	}, true
}

func trialMessage(name string, end, at time.Time) string {
	switch billing.CalendarDaysBetween(at, end) {
	case 0:
		return fmt.Sprintf("%s free trial ends today", name)
	case 1:
		return fmt.Sprintf("%s free trial ends tomorrow", name)
	default:
		return fmt.Sprintf("%s free trial ends on %s", name, end.Format("Jan 2, 2006"))
	}
}

// timeOfDay resolves the hour and minute reminders for this subscription
// should fire at.
func timeOfDay(sub *subscription.Subscription, prefs reminder.Preferences) (hour, min int) {
	for _, s := range []string{sub.ReminderTime, prefs.DefaultTime, fallbackTimeOfDay} {
		if h, m, ok := parseClock(s); ok {
			return h, m
		}
	}
	return 9, 0
}

// atTimeOfDay pins a date to a wall-clock time in the date's location.
func atTimeOfDay(date time.Time, hour, min int) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), hour, min, 0, 0, date.Location())
}

// shiftOutOfQuietWindow moves an instant that falls inside the quiet window
// forward to the window's end. Instants are never dropped.
func shiftOutOfQuietWindow(t time.Time, w reminder.QuietWindow) time.Time {
	if !w.Enabled {
		return t
	}
	sh, sm, ok := parseClock(w.Start)
	if !ok {
		return t
	}
	eh, em, ok := parseClock(w.End)
	if !ok {
		return t
	}

	start := sh*60 + sm
	end := eh*60 + em
	cur := t.Hour()*60 + t.Minute()

	if start == end {
		return t
	}

	if start < end {
		// Same-day window, e.g. 13:00-15:00.
		if cur >= start && cur < end {
			return atTimeOfDay(t, eh, em)
		}
		return t
	}

	// Window crosses midnight, e.g. 22:00-07:00.
	if cur >= start {
		return atTimeOfDay(t.AddDate(0, 0, 1), eh, em)
	}
	if cur < end {
		return atTimeOfDay(t, eh, em)
	}
	return t
}

// parseClock parses "HH:MM".
func parseClock(s string) (hour, min int, ok bool) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, 0, false
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, 0, false
	}
	return h, m, true
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

// sentSameDay reports whether a reminder of this type was already delivered
// on the desired instant's calendar day. Guards against re-creating a
// reminder that fired earlier the same day.
func sentSameDay(existing []*reminder.ScheduledReminder, d desired) bool {
	for _, ex := range existing {
		if ex.Type == d.typ && ex.Status == reminder.StatusSent && sameDay(ex.ScheduledAt, d.at) {
			return true
		}
	}
	return false
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func formatPrice(s string) string {
	return "$" + s
}
