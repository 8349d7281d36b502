package billing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/subtrack/subtrack/internal/domain/subscription"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNextBillingDate(t *testing.T) {
	tests := []struct {
		name  string
		from  time.Time
		cycle subscription.BillingCycle
		want  time.Time
	}{
		{"daily", date(2025, 3, 10), subscription.CycleDaily, date(2025, 3, 11)},
		{"weekly", date(2025, 3, 10), subscription.CycleWeekly, date(2025, 3, 17)},
		{"biweekly", date(2025, 3, 10), subscription.CycleBiweekly, date(2025, 3, 24)},
		{"monthly", date(2025, 3, 10), subscription.CycleMonthly, date(2025, 4, 10)},
		{"monthly clamps jan 31", date(2025, 1, 31), subscription.CycleMonthly, date(2025, 2, 28)},
		{"monthly clamps jan 31 leap year", date(2024, 1, 31), subscription.CycleMonthly, date(2024, 2, 29)},
		{"monthly clamps mar 31", date(2025, 3, 31), subscription.CycleMonthly, date(2025, 4, 30)},
		{"quarterly", date(2025, 1, 15), subscription.CycleQuarterly, date(2025, 4, 15)},
		{"quarterly across year end", date(2025, 11, 30), subscription.CycleQuarterly, date(2026, 2, 28)},
		{"semiannual", date(2025, 1, 15), subscription.CycleSemiAnnual, date(2025, 7, 15)},
		{"yearly", date(2025, 3, 10), subscription.CycleYearly, date(2026, 3, 10)},
		{"yearly from feb 29", date(2024, 2, 29), subscription.CycleYearly, date(2025, 2, 28)},
		{"lifetime", date(2025, 3, 10), subscription.CycleLifetime, Never},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextBillingDate(tt.from, tt.cycle)
			if !got.Equal(tt.want) {
				t.Errorf("NextBillingDate(%v, %s) = %v, want %v", tt.from, tt.cycle, got, tt.want)
			}
		})
	}
}

func TestNextBillingDateAlwaysAdvances(t *testing.T) {
	from := date(2025, 1, 31)
	for _, cycle := range subscription.AllBillingCycles() {
		got := NextBillingDate(from, cycle)
		if !got.After(from) {
			t.Errorf("NextBillingDate(%v, %s) = %v, does not advance", from, cycle, got)
		}
	}
}

func TestNextBillingDatePreservesTimeOfDay(t *testing.T) {
	from := time.Date(2025, 1, 31, 9, 30, 0, 0, time.UTC)
	got := NextBillingDate(from, subscription.CycleMonthly)
	want := time.Date(2025, 2, 28, 9, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("NextBillingDate = %v, want %v", got, want)
	}
}

func TestIsNever(t *testing.T) {
	if !IsNever(Never) {
		t.Error("IsNever(Never) = false, want true")
	}
	if IsNever(date(2025, 3, 10)) {
		t.Error("IsNever(ordinary date) = true, want false")
	}
}

func TestMonthlyEquivalent(t *testing.T) {
	tests := []struct {
		name  string
		price string
		cycle subscription.BillingCycle
		want  string
	}{
		{"monthly passes through", "9.99", subscription.CycleMonthly, "9.99"},
		{"yearly divides by 12", "120", subscription.CycleYearly, "10"},
		{"quarterly divides by 3", "30", subscription.CycleQuarterly, "10"},
		{"semiannual divides by 6", "60", subscription.CycleSemiAnnual, "10"},
		{"daily multiplies up", "1", subscription.CycleDaily, "30.4375"},
		{"lifetime is zero", "500", subscription.CycleLifetime, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			price := decimal.RequireFromString(tt.price)
			want := decimal.RequireFromString(tt.want)
			got := MonthlyEquivalent(price, tt.cycle)
			if !got.Round(4).Equal(want.Round(4)) {
				t.Errorf("MonthlyEquivalent(%s, %s) = %s, want %s", tt.price, tt.cycle, got, tt.want)
			}
		})
	}
}

func TestWeeklyMonthlyEquivalentApproximation(t *testing.T) {
	// 7 USD per week should land near 30.44 per month, not the naive 28.
	got := MonthlyEquivalent(decimal.NewFromInt(7), subscription.CycleWeekly)
	want := decimal.RequireFromString("30.4375")
	if !got.Round(4).Equal(want) {
		t.Errorf("MonthlyEquivalent(7, weekly) = %s, want %s", got, want)
	}
}

func TestYearlyEquivalent(t *testing.T) {
	got := YearlyEquivalent(decimal.RequireFromString("10"), subscription.CycleMonthly)
	want := decimal.NewFromInt(120)
	if !got.Equal(want) {
		t.Errorf("YearlyEquivalent(10, monthly) = %s, want %s", got, want)
	}
}

func TestCalendarDaysBetween(t *testing.T) {
	tests := []struct {
		name string
		from time.Time
		to   time.Time
		want int
	}{
		{"same day", date(2025, 3, 10), date(2025, 3, 10), 0},
		{"next day", date(2025, 3, 10), date(2025, 3, 11), 1},
		{"ignores time of day", time.Date(2025, 3, 10, 23, 59, 0, 0, time.UTC), time.Date(2025, 3, 11, 0, 1, 0, 0, time.UTC), 1},
		{"negative when reversed", date(2025, 3, 11), date(2025, 3, 10), -1},
		{"across month boundary", date(2025, 2, 27), date(2025, 3, 2), 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CalendarDaysBetween(tt.from, tt.to); got != tt.want {
				t.Errorf("CalendarDaysBetween(%v, %v) = %d, want %d", tt.from, tt.to, got, tt.want)
			}
		})
	}
}
