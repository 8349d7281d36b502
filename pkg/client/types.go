package client

import (
	"time"

	"github.com/shopspring/decimal"
)

// Subscription represents a tracked subscription
type Subscription struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Category      string          `json:"category,omitempty"`
	Price         decimal.Decimal `json:"price"`
	BillingCycle  string          `json:"billingCycle"`
	PaymentMethod string          `json:"paymentMethod,omitempty"`
	Notes         string          `json:"notes,omitempty"`

	IsActive         bool            `json:"isActive"`
	AutoRenew        bool            `json:"autoRenew"`
	NextBillingDate  time.Time       `json:"nextBillingDate"`
	LastBillingDate  *time.Time      `json:"lastBillingDate,omitempty"`
	CancellationDate *time.Time      `json:"cancellationDate,omitempty"`
	TotalSpent       decimal.Decimal `json:"totalSpent"`

	TrialPhase        string           `json:"trialPhase"`
	TrialStartDate    *time.Time       `json:"trialStartDate,omitempty"`
	TrialEndDate      *time.Time       `json:"trialEndDate,omitempty"`
	WillConvertToPaid bool             `json:"willConvertToPaid"`
	PriceAfterTrial   *decimal.Decimal `json:"priceAfterTrial,omitempty"`
	TrialDaysLeft     *int             `json:"trialDaysLeft,omitempty"`

	EnableRenewalReminder bool   `json:"enableRenewalReminder"`
	ReminderDaysBefore    int    `json:"reminderDaysBefore"`
	ReminderTime          string `json:"reminderTime,omitempty"`

	MonthlyEquivalent decimal.Decimal `json:"monthlyEquivalent"`
	UsageCount        int             `json:"usageCount"`
	LastUsedAt        *time.Time      `json:"lastUsedAt,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// Summary represents derived spend totals across subscriptions
type Summary struct {
	ActiveCount      int             `json:"activeCount"`
	TrialingCount    int             `json:"trialingCount"`
	MonthlyTotal     decimal.Decimal `json:"monthlyTotal"`
	YearlyTotal      decimal.Decimal `json:"yearlyTotal"`
	UpcomingRenewals []Subscription  `json:"upcomingRenewals"`
}

// PriceChange represents one row of a subscription's price history
type PriceChange struct {
	ID                    string          `json:"id"`
	SubscriptionID        string          `json:"subscriptionId"`
	OldPrice              decimal.Decimal `json:"oldPrice"`
	NewPrice              decimal.Decimal `json:"newPrice"`
	ChangeAmount          decimal.Decimal `json:"changeAmount"`
	ChangePercentage      string          `json:"changePercentage"`
	IsIncrease            bool            `json:"isIncrease"`
	ChangeDate            time.Time       `json:"changeDate"`
	Reason                string          `json:"reason,omitempty"`
	DetectedAutomatically bool            `json:"detectedAutomatically"`
}

// Reminder represents a scheduled reminder
type Reminder struct {
	ID             string     `json:"id"`
	SubscriptionID string     `json:"subscriptionId"`
	Type           string     `json:"type"`
	ScheduledAt    time.Time  `json:"scheduledAt"`
	Status         string     `json:"status"`
	Priority       string     `json:"priority"`
	Message        string     `json:"message"`
	SnoozedUntil   *time.Time `json:"snoozedUntil,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// ProcessorRun represents the outcome of one lifecycle processing run
type ProcessorRun struct {
	StartedAt          time.Time `json:"startedAt"`
	DurationMs         int64     `json:"durationMs"`
	Processed          int       `json:"processed"`
	CyclesAdvanced     int       `json:"cyclesAdvanced"`
	TrialsConverted    int       `json:"trialsConverted"`
	TrialsLapsed       int       `json:"trialsLapsed"`
	RemindersSent      int       `json:"remindersSent"`
	RemindersCreated   int       `json:"remindersCreated"`
	RemindersCancelled int       `json:"remindersCancelled"`
	Failed             int       `json:"failed"`
}
