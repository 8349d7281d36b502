package subscription

import (
	"time"

	"github.com/shopspring/decimal"
)

// Subscription represents a recurring financial obligation tracked for a user.
type Subscription struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Category      string          `json:"category,omitempty"`
	Price         decimal.Decimal `json:"price"`
	BillingCycle  BillingCycle    `json:"billing_cycle"`
	PaymentMethod string          `json:"payment_method,omitempty"`
	Notes         string          `json:"notes,omitempty"`

	// Lifecycle
	IsActive         bool            `json:"is_active"`
	AutoRenew        bool            `json:"auto_renew"`
	NextBillingDate  time.Time       `json:"next_billing_date"`
	LastBillingDate  *time.Time      `json:"last_billing_date,omitempty"`
	CancellationDate *time.Time      `json:"cancellation_date,omitempty"`
	TotalSpent       decimal.Decimal `json:"total_spent"`

	// Trial sub-state. Once the phase leaves TrialPhaseTrialing the trial
	// fields are frozen history and must never be cleared.
	TrialPhase        TrialPhase       `json:"trial_phase"`
	TrialStartDate    *time.Time       `json:"trial_start_date,omitempty"`
	TrialEndDate      *time.Time       `json:"trial_end_date,omitempty"`
	WillConvertToPaid bool             `json:"will_convert_to_paid"`
	PriceAfterTrial   *decimal.Decimal `json:"price_after_trial,omitempty"`

	// Reminder configuration
	EnableRenewalReminder bool       `json:"enable_renewal_reminder"`
	ReminderDaysBefore    int        `json:"reminder_days_before"`
	ReminderTime          string     `json:"reminder_time,omitempty"` // "HH:MM"
	LastReminderSent      *time.Time `json:"last_reminder_sent,omitempty"`

	// Denormalized pointer into the price history ledger. The ledger is the
	// source of truth; this is a read cache only.
	LastPriceChange *time.Time `json:"last_price_change,omitempty"`

	// Usage and retention metadata
	UsageCount             int        `json:"usage_count"`
	LastUsedAt             *time.Time `json:"last_used_at,omitempty"`
	CancellationDifficulty string     `json:"cancellation_difficulty,omitempty"`
	AlternativeSuggestion  string     `json:"alternative_suggestion,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// BillingCycle represents how often a subscription bills.
type BillingCycle string

const (
	CycleDaily      BillingCycle = "daily"
	CycleWeekly     BillingCycle = "weekly"
	CycleBiweekly   BillingCycle = "biweekly"
	CycleMonthly    BillingCycle = "monthly"
	CycleQuarterly  BillingCycle = "quarterly"
	CycleSemiAnnual BillingCycle = "semiannual"
	CycleYearly     BillingCycle = "yearly"
	CycleLifetime   BillingCycle = "lifetime"
)

// IsValid checks if the billing cycle is a known value.
func (c BillingCycle) IsValid() bool {
	switch c {
	case CycleDaily, CycleWeekly, CycleBiweekly, CycleMonthly,
		CycleQuarterly, CycleSemiAnnual, CycleYearly, CycleLifetime:
		return true
	default:
		return false
	}
}

// String returns the string representation of the billing cycle.
func (c BillingCycle) String() string {
	return string(c)
}

// AllBillingCycles returns every valid billing cycle.
func AllBillingCycles() []BillingCycle {
	return []BillingCycle{
		CycleDaily, CycleWeekly, CycleBiweekly, CycleMonthly,
		CycleQuarterly, CycleSemiAnnual, CycleYearly, CycleLifetime,
	}
}

// TrialPhase represents where a subscription sits in its free-trial lifecycle.
type TrialPhase string

const (
	// TrialPhaseNone means the subscription never had a trial.
	TrialPhaseNone TrialPhase = "none"
	// TrialPhaseTrialing means the trial window is currently open.
	TrialPhaseTrialing TrialPhase = "trialing"
	// TrialPhaseConverted means the trial ended and converted to paid.
	TrialPhaseConverted TrialPhase = "converted"
	// TrialPhaseLapsed means the trial ended without converting.
	TrialPhaseLapsed TrialPhase = "lapsed"
)

// IsValid checks if the trial phase is a known value.
func (p TrialPhase) IsValid() bool {
	switch p {
	case TrialPhaseNone, TrialPhaseTrialing, TrialPhaseConverted, TrialPhaseLapsed:
		return true
	default:
		return false
	}
}

// IsTrialing reports whether the subscription is currently in a free trial.
func (s *Subscription) IsTrialing() bool {
	return s.TrialPhase == TrialPhaseTrialing
}

// Cancellation difficulty levels
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// Filter contains subscription filtering options
type Filter struct {
	IsActive   *bool
	Cycle      BillingCycle
	TrialPhase TrialPhase
	Category   string
}

// Summary contains derived totals over a user's subscriptions.
type Summary struct {
	ActiveCount      int             `json:"active_count"`
	TrialingCount    int             `json:"trialing_count"`
	MonthlyTotal     decimal.Decimal `json:"monthly_total"`
	YearlyTotal      decimal.Decimal `json:"yearly_total"`
	UpcomingRenewals []*Subscription `json:"upcoming_renewals"`
}
