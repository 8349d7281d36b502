// Package billing holds the pure date and money arithmetic for subscription
// cadences: next billing dates, monthly-equivalent costs, and trial window
// evaluation. Nothing in this package has side effects or can fail on a
// valid input.
package billing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/subtrack/subtrack/internal/domain/subscription"
)

// Never is the sentinel billing date for lifetime subscriptions. A lifetime
// purchase never renews, so its "next" date is pinned far in the future
// instead of overflowing date arithmetic.
var Never = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)

// IsNever reports whether a billing date is the lifetime sentinel.
func IsNever(t time.Time) bool {
	return t.Equal(Never) || t.After(Never)
}

// Average-period factors derived from a 365.25-day year. The stated price of
// a cycle always means "per named unit": sub-monthly cycles multiply up to a
// month, multi-month cycles divide by their month count.
var (
	daysPerMonth       = decimal.RequireFromString("30.4375") // 365.25 / 12
	weeksPerMonth      = daysPerMonth.Div(decimal.NewFromInt(7))
	fortnightsPerMonth = daysPerMonth.Div(decimal.NewFromInt(14))
)

// NextBillingDate returns the billing date that follows from for the given
// cycle. Calendar-month arithmetic clamps day-of-month overflow, so
// Jan 31 + 1 month lands on the last day of February. Lifetime returns the
// Never sentinel.
func NextBillingDate(from time.Time, cycle subscription.BillingCycle) time.Time {
	switch cycle {
	case subscription.CycleDaily:
		return from.AddDate(0, 0, 1)
	case subscription.CycleWeekly:
		return from.AddDate(0, 0, 7)
	case subscription.CycleBiweekly:
		return from.AddDate(0, 0, 14)
	case subscription.CycleMonthly:
		return addMonths(from, 1)
	case subscription.CycleQuarterly:
		return addMonths(from, 3)
	case subscription.CycleSemiAnnual:
		return addMonths(from, 6)
	case subscription.CycleYearly:
		return addMonths(from, 12)
	case subscription.CycleLifetime:
		return Never
	default:
		// Unknown cycles are rejected at input validation; treating one as
		// monthly here keeps the function total.
		return addMonths(from, 1)
	}
}

// addMonths advances by whole calendar months, clamping the day of month to
// the last day of the target month when the source day does not exist there.
func addMonths(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	firstOfTarget := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	if last := daysInMonth(firstOfTarget.Year(), firstOfTarget.Month()); d > last {
		d = last
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), d,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// daysInMonth returns the number of days in the given month.
func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// MonthlyEquivalent normalizes a price on a billing cycle to its average
// monthly cost. Lifetime purchases have no recurring cost and normalize to
// zero.
func MonthlyEquivalent(price decimal.Decimal, cycle subscription.BillingCycle) decimal.Decimal {
	switch cycle {
	case subscription.CycleDaily:
		return price.Mul(daysPerMonth)
	case subscription.CycleWeekly:
		return price.Mul(weeksPerMonth)
	case subscription.CycleBiweekly:
		return price.Mul(fortnightsPerMonth)
	case subscription.CycleMonthly:
		return price
	case subscription.CycleQuarterly:
		return price.Div(decimal.NewFromInt(3))
	case subscription.CycleSemiAnnual:
		return price.Div(decimal.NewFromInt(6))
	case subscription.CycleYearly:
		return price.Div(decimal.NewFromInt(12))
	case subscription.CycleLifetime:
		return decimal.Zero
	default:
		return price
	}
}

// YearlyEquivalent normalizes a price on a billing cycle to its average
// yearly cost.
func YearlyEquivalent(price decimal.Decimal, cycle subscription.BillingCycle) decimal.Decimal {
	return MonthlyEquivalent(price, cycle).Mul(decimal.NewFromInt(12))
}

// CalendarDaysBetween returns the whole calendar-day distance from one date
// to another, ignoring time of day. Negative when to precedes from.
func CalendarDaysBetween(from, to time.Time) int {
	f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	t := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(t.Sub(f).Hours() / 24)
}
