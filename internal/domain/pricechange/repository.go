package pricechange

import "context"

// Repository defines the interface for price history data access.
// The ledger is append-only: there is no update or delete.
type Repository interface {
	// Create appends a price change row
	Create(ctx context.Context, pc *PriceChange) error

	// GetByID retrieves a price change by ID
	GetByID(ctx context.Context, id string) (*PriceChange, error)

	// List retrieves price changes with filters, newest first
	List(ctx context.Context, filter Filter) ([]*PriceChange, error)

	// GetLatest retrieves the most recent price change for a subscription,
	// or nil when the subscription has none
	GetLatest(ctx context.Context, subscriptionID string) (*PriceChange, error)
}
