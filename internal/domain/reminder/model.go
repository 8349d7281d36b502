package reminder

import "time"

// ScheduledReminder represents one reminder the policy engine has decided
// should exist. The notification dispatch collaborator owns delivery; the
// core owns content and timing.
type ScheduledReminder struct {
	ID             string     `json:"id"`
	SubscriptionID string     `json:"subscription_id"`
	Type           Type       `json:"type"`
	ScheduledAt    time.Time  `json:"scheduled_at"`
	Status         Status     `json:"status"`
	Priority       Priority   `json:"priority"`
	Message        string     `json:"message"`
	SnoozedUntil   *time.Time `json:"snoozed_until,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at,omitempty"`
}

// EffectiveAt returns the instant the reminder is due to fire: the snooze
// target when snoozed, the scheduled instant otherwise.
func (r *ScheduledReminder) EffectiveAt() time.Time {
	if r.Status == StatusSnoozed && r.SnoozedUntil != nil {
		return *r.SnoozedUntil
	}
	return r.ScheduledAt
}

// Type represents the kind of reminder
type Type string

const (
	TypeRenewal         Type = "renewal"
	TypeTrialExpiration Type = "trial_expiration"
	TypePriceChange     Type = "price_change"
	TypeUnused          Type = "unused"
	TypeCustom          Type = "custom"
)

// IsValid checks if the reminder type is a known value.
func (t Type) IsValid() bool {
	switch t {
	case TypeRenewal, TypeTrialExpiration, TypePriceChange, TypeUnused, TypeCustom:
		return true
	default:
		return false
	}
}

// Status represents the delivery state of a reminder
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusSent      Status = "sent"
	StatusSnoozed   Status = "snoozed"
	StatusDismissed Status = "dismissed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// IsPending reports whether the reminder still counts toward the
// one-pending-per-type rule.
func (s Status) IsPending() bool {
	return s == StatusScheduled || s == StatusSnoozed
}

// Priority represents reminder priority, derived from type
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// PriorityForType returns the priority a reminder type carries.
func PriorityForType(t Type) Priority {
	switch t {
	case TypeTrialExpiration, TypePriceChange:
		return PriorityHigh
	case TypeRenewal:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// QuietWindow is a daily window during which no reminder may fire.
// Instants inside the window are shifted forward to its end, never dropped.
// Times are "HH:MM"; the window may cross midnight (e.g. 22:00-07:00).
type QuietWindow struct {
	Enabled bool   `json:"enabled"`
	Start   string `json:"start"`
	End     string `json:"end"`
}

// Preferences contains the reminder configuration the engine reconciles
// against. Per-subscription settings override the lead days and time of day.
type Preferences struct {
	DefaultLeadDays int         `json:"default_lead_days"`
	DefaultTime     string      `json:"default_time"` // "HH:MM"
	QuietHours      QuietWindow `json:"quiet_hours"`
}

// Diff is the set of create/update/cancel instructions one reconciliation
// pass emits for a subscription.
type Diff struct {
	ToCreate []*ScheduledReminder `json:"to_create"`
	ToUpdate []*ScheduledReminder `json:"to_update"`
	ToCancel []*ScheduledReminder `json:"to_cancel"`
}

// Empty reports whether the diff carries no instructions.
func (d Diff) Empty() bool {
	return len(d.ToCreate) == 0 && len(d.ToUpdate) == 0 && len(d.ToCancel) == 0
}

// Filter contains reminder filtering options
type Filter struct {
	SubscriptionID string
	Type           Type
	Status         Status
	PendingOnly    bool
}
