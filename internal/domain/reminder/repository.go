package reminder

import "context"

// Repository defines the interface for the scheduled reminder log. The log
// is owned by the notification dispatch side of the boundary; the core only
// reads pending reminders from it during reconciliation.
type Repository interface {
	// Create persists a new scheduled reminder
	Create(ctx context.Context, r *ScheduledReminder) error

	// GetByID retrieves a reminder by ID
	GetByID(ctx context.Context, id string) (*ScheduledReminder, error)

	// Update updates a reminder's instant, message, status, or snooze
	Update(ctx context.Context, r *ScheduledReminder) error

	// List retrieves reminders with filters, soonest first
	List(ctx context.Context, filter Filter) ([]*ScheduledReminder, error)

	// ListPending retrieves the scheduled and snoozed reminders for a
	// subscription
	ListPending(ctx context.Context, subscriptionID string) ([]*ScheduledReminder, error)
}

// Dispatcher is the notification dispatch collaborator boundary. It consumes
// the diff a reconciliation pass produced; delivery, retry, and presentation
// live on the far side.
type Dispatcher interface {
	Apply(ctx context.Context, subscriptionID string, diff Diff) error
}
