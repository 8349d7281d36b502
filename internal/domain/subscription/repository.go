package subscription

import "context"

// Repository defines the interface for subscription data access
type Repository interface {
	// Create creates a new subscription
	Create(ctx context.Context, sub *Subscription) error

	// GetByID retrieves a subscription by ID
	GetByID(ctx context.Context, id string) (*Subscription, error)

	// Update updates a subscription
	Update(ctx context.Context, sub *Subscription) error

	// Delete deletes a subscription
	Delete(ctx context.Context, id string) error

	// List retrieves subscriptions with filters
	List(ctx context.Context, filter Filter) ([]*Subscription, error)

	// ListActive retrieves every active subscription. The lifecycle
	// processor reads its batch through this at run start.
	ListActive(ctx context.Context) ([]*Subscription, error)
}
