package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// SubscriptionService handles subscription-related API calls
type SubscriptionService struct {
	client *Client
}

// CreateSubscriptionRequest represents a request to create a subscription
type CreateSubscriptionRequest struct {
	Name          string `json:"name"`
	Category      string `json:"category,omitempty"`
	Price         string `json:"price"`
	BillingCycle  string `json:"billingCycle"`
	PaymentMethod string `json:"paymentMethod,omitempty"`
	Notes         string `json:"notes,omitempty"`

	AutoRenew bool `json:"autoRenew"`

	IsFreeTrial       bool   `json:"isFreeTrial"`
	TrialStartDate    string `json:"trialStartDate,omitempty"`
	TrialEndDate      string `json:"trialEndDate,omitempty"`
	WillConvertToPaid bool   `json:"willConvertToPaid"`
	PriceAfterTrial   string `json:"priceAfterTrial,omitempty"`

	NextBillingDate       string `json:"nextBillingDate,omitempty"`
	EnableRenewalReminder bool   `json:"enableRenewalReminder"`
	ReminderDaysBefore    int    `json:"reminderDaysBefore"`
	ReminderTime          string `json:"reminderTime,omitempty"`
}

// UpdateSubscriptionRequest represents a request to update a subscription
type UpdateSubscriptionRequest struct {
	Name          *string `json:"name,omitempty"`
	Category      *string `json:"category,omitempty"`
	Price         *string `json:"price,omitempty"`
	BillingCycle  *string `json:"billingCycle,omitempty"`
	PaymentMethod *string `json:"paymentMethod,omitempty"`
	Notes         *string `json:"notes,omitempty"`

	AutoRenew       *bool   `json:"autoRenew,omitempty"`
	NextBillingDate *string `json:"nextBillingDate,omitempty"`

	EnableRenewalReminder *bool   `json:"enableRenewalReminder,omitempty"`
	ReminderDaysBefore    *int    `json:"reminderDaysBefore,omitempty"`
	ReminderTime          *string `json:"reminderTime,omitempty"`
}

// RecordPriceChangeRequest represents a manually observed price change
type RecordPriceChangeRequest struct {
	NewPrice string `json:"newPrice"`
	Reason   string `json:"reason,omitempty"`
}

// SubscriptionListOptions contains options for listing subscriptions
type SubscriptionListOptions struct {
	Active     *bool
	Cycle      string
	TrialPhase string
	Category   string
}

// List retrieves subscriptions, optionally filtered
func (s *SubscriptionService) List(ctx context.Context, opts *SubscriptionListOptions) ([]Subscription, error) {
	query := url.Values{}

	if opts != nil {
		if opts.Active != nil {
			query.Set("active", strconv.FormatBool(*opts.Active))
		}
		if opts.Cycle != "" {
			query.Set("cycle", opts.Cycle)
		}
		if opts.TrialPhase != "" {
			query.Set("trial_phase", opts.TrialPhase)
		}
		if opts.Category != "" {
			query.Set("category", opts.Category)
		}
	}

	path := "/api/v1/subscriptions"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var subs []Subscription
	if err := s.client.doRequest(ctx, "GET", path, nil, &subs); err != nil {
		return nil, err
	}

	return subs, nil
}

// Get retrieves a single subscription by ID
func (s *SubscriptionService) Get(ctx context.Context, id string) (*Subscription, error) {
	path := fmt.Sprintf("/api/v1/subscriptions/%s", id)

	var sub Subscription
	if err := s.client.doRequest(ctx, "GET", path, nil, &sub); err != nil {
		return nil, err
	}

	return &sub, nil
}

// Create creates a new subscription
func (s *SubscriptionService) Create(ctx context.Context, req CreateSubscriptionRequest) (*Subscription, error) {
	var sub Subscription
	if err := s.client.doRequest(ctx, "POST", "/api/v1/subscriptions", req, &sub); err != nil {
		return nil, err
	}

	return &sub, nil
}

// Update updates an existing subscription
func (s *SubscriptionService) Update(ctx context.Context, id string, req UpdateSubscriptionRequest) (*Subscription, error) {
	path := fmt.Sprintf("/api/v1/subscriptions/%s", id)

	var sub Subscription
	if err := s.client.doRequest(ctx, "PUT", path, req, &sub); err != nil {
		return nil, err
	}

	return &sub, nil
}

// Delete deletes a subscription
func (s *SubscriptionService) Delete(ctx context.Context, id string) error {
	path := fmt.Sprintf("/api/v1/subscriptions/%s", id)
	return s.client.doRequest(ctx, "DELETE", path, nil, nil)
}

// Cancel cancels a subscription, withdrawing its pending reminders
func (s *SubscriptionService) Cancel(ctx context.Context, id string) (*Subscription, error) {
	path := fmt.Sprintf("/api/v1/subscriptions/%s/cancel", id)

	var sub Subscription
	if err := s.client.doRequest(ctx, "POST", path, nil, &sub); err != nil {
		return nil, err
	}

	return &sub, nil
}

// RecordUsage records one use of the subscription
func (s *SubscriptionService) RecordUsage(ctx context.Context, id string) error {
	path := fmt.Sprintf("/api/v1/subscriptions/%s/usage", id)
	return s.client.doRequest(ctx, "POST", path, nil, nil)
}

// Summary retrieves spend totals and renewals due within the given horizon
func (s *SubscriptionService) Summary(ctx context.Context, withinDays int) (*Summary, error) {
	path := "/api/v1/subscriptions/summary"
	if withinDays > 0 {
		path += "?within_days=" + strconv.Itoa(withinDays)
	}

	var summary Summary
	if err := s.client.doRequest(ctx, "GET", path, nil, &summary); err != nil {
		return nil, err
	}

	return &summary, nil
}

// PriceHistory retrieves a subscription's price change ledger, newest first
func (s *SubscriptionService) PriceHistory(ctx context.Context, id string) ([]PriceChange, error) {
	path := fmt.Sprintf("/api/v1/subscriptions/%s/price-history", id)

	var history []PriceChange
	if err := s.client.doRequest(ctx, "GET", path, nil, &history); err != nil {
		return nil, err
	}

	return history, nil
}

// RecordPriceChange records an externally observed price change.
// Returns nil when the observed price matches the current price.
func (s *SubscriptionService) RecordPriceChange(ctx context.Context, id string, req RecordPriceChangeRequest) (*PriceChange, error) {
	path := fmt.Sprintf("/api/v1/subscriptions/%s/price-history", id)

	var pc *PriceChange
	if err := s.client.doRequest(ctx, "POST", path, req, &pc); err != nil {
		return nil, err
	}

	return pc, nil
}
