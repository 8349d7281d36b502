package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/subtrack/subtrack/internal/billing"
	"github.com/subtrack/subtrack/internal/domain/subscription"
)

// SubscriptionDTO represents a subscription in API responses
// Uses camelCase for frontend compatibility
type SubscriptionDTO struct {
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

// FromSubscription maps a domain subscription onto its response shape,
// attaching the derived monthly cost and trial countdown.
func FromSubscription(s *subscription.Subscription, now time.Time) SubscriptionDTO {
	d := SubscriptionDTO{
		ID:                    s.ID,
		Name:                  s.Name,
		Category:              s.Category,
		Price:                 s.Price,
		BillingCycle:          s.BillingCycle.String(),
		PaymentMethod:         s.PaymentMethod,
		Notes:                 s.Notes,
		IsActive:              s.IsActive,
		AutoRenew:             s.AutoRenew,
		NextBillingDate:       s.NextBillingDate,
		LastBillingDate:       s.LastBillingDate,
		CancellationDate:      s.CancellationDate,
		TotalSpent:            s.TotalSpent,
		TrialPhase:            string(s.TrialPhase),
		TrialStartDate:        s.TrialStartDate,
		TrialEndDate:          s.TrialEndDate,
		WillConvertToPaid:     s.WillConvertToPaid,
		PriceAfterTrial:       s.PriceAfterTrial,
		EnableRenewalReminder: s.EnableRenewalReminder,
		ReminderDaysBefore:    s.ReminderDaysBefore,
		ReminderTime:          s.ReminderTime,
		MonthlyEquivalent:     billing.MonthlyEquivalent(s.Price, s.BillingCycle).Round(2),
		UsageCount:            s.UsageCount,
		LastUsedAt:            s.LastUsedAt,
		CreatedAt:             s.CreatedAt,
		UpdatedAt:             s.UpdatedAt,
	}
	if st := billing.EvaluateTrial(s, now); st.State != billing.TrialStateNone {
		d.TrialDaysLeft = st.DaysRemaining
	}
	return d
}

// CreateSubscriptionRequest represents a subscription creation request
type CreateSubscriptionRequest struct {
	Name          string `json:"name" validate:"required"`
	Category      string `json:"category,omitempty"`
	Price         string `json:"price" validate:"required"`
	BillingCycle  string `json:"billingCycle" validate:"required,oneof=daily weekly biweekly monthly quarterly semiannual yearly lifetime"`
	PaymentMethod string `json:"paymentMethod,omitempty"`
	Notes         string `json:"notes,omitempty"`

	AutoRenew bool `json:"autoRenew"`

	IsFreeTrial       bool   `json:"isFreeTrial"`
	TrialStartDate    string `json:"trialStartDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	TrialEndDate      string `json:"trialEndDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	WillConvertToPaid bool   `json:"willConvertToPaid"`
	PriceAfterTrial   string `json:"priceAfterTrial,omitempty"`

	NextBillingDate       string `json:"nextBillingDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	EnableRenewalReminder bool   `json:"enableRenewalReminder"`
	ReminderDaysBefore    int    `json:"reminderDaysBefore" validate:"gte=0"`
	ReminderTime          string `json:"reminderTime,omitempty"`
}

// UpdateSubscriptionRequest represents a subscription update request
type UpdateSubscriptionRequest struct {
	Name          *string `json:"name,omitempty"`
	Category      *string `json:"category,omitempty"`
	Price         *string `json:"price,omitempty"`
	BillingCycle  *string `json:"billingCycle,omitempty" validate:"omitempty,oneof=daily weekly biweekly monthly quarterly semiannual yearly lifetime"`
	PaymentMethod *string `json:"paymentMethod,omitempty"`
	Notes         *string `json:"notes,omitempty"`

	AutoRenew       *bool   `json:"autoRenew,omitempty"`
	NextBillingDate *string `json:"nextBillingDate,omitempty" validate:"omitempty,datetime=2006-01-02"`

	EnableRenewalReminder *bool   `json:"enableRenewalReminder,omitempty"`
	ReminderDaysBefore    *int    `json:"reminderDaysBefore,omitempty" validate:"omitempty,gte=0"`
	ReminderTime          *string `json:"reminderTime,omitempty"`
}

// SummaryDTO represents derived spend totals
type SummaryDTO struct {
	ActiveCount      int               `json:"activeCount"`
	TrialingCount    int               `json:"trialingCount"`
	MonthlyTotal     decimal.Decimal   `json:"monthlyTotal"`
	YearlyTotal      decimal.Decimal   `json:"yearlyTotal"`
	UpcomingRenewals []SubscriptionDTO `json:"upcomingRenewals"`
}
