package subscription

import (
	"context"

	"github.com/shopspring/decimal"
)

// Service defines the interface for subscription business logic
type Service interface {
	// Create validates and creates a new subscription
	Create(ctx context.Context, sub *Subscription) (*Subscription, error)

	// GetByID retrieves a subscription by ID
	GetByID(ctx context.Context, id string) (*Subscription, error)

	// Update applies an edit to a subscription. A confirmed price edit is
	// recorded in the price history ledger.
	Update(ctx context.Context, sub *Subscription) (*Subscription, error)

	// ObservePrice applies an externally observed vendor price, recording it
	// in the price history ledger with automatic provenance. Unchanged
	// prices are a no-op.
	ObservePrice(ctx context.Context, id string, newPrice decimal.Decimal, reason string) (*Subscription, error)

	// Delete deletes a subscription
	Delete(ctx context.Context, id string) error

	// Cancel marks a subscription as cancelled
	Cancel(ctx context.Context, id string) (*Subscription, error)

	// List retrieves subscriptions with filters
	List(ctx context.Context, filter Filter) ([]*Subscription, error)

	// RecordUsage increments a subscription's usage counter
	RecordUsage(ctx context.Context, id string) error

	// GetSummary computes spend totals and upcoming renewals
	GetSummary(ctx context.Context, withinDays int) (*Summary, error)
}
