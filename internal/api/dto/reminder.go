package dto

import (
	"time"

	"github.com/subtrack/subtrack/internal/domain/reminder"
)

// ReminderDTO represents a scheduled reminder in API responses
type ReminderDTO struct {
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

// FromReminder maps a scheduled reminder onto its response shape.
func FromReminder(r *reminder.ScheduledReminder) ReminderDTO {
	return ReminderDTO{
		ID:             r.ID,
		SubscriptionID: r.SubscriptionID,
		Type:           string(r.Type),
		ScheduledAt:    r.ScheduledAt,
		Status:         string(r.Status),
		Priority:       string(r.Priority),
		Message:        r.Message,
		SnoozedUntil:   r.SnoozedUntil,
		CreatedAt:      r.CreatedAt,
	}
}

// SnoozeReminderRequest represents a reminder snooze request
type SnoozeReminderRequest struct {
	Until string `json:"until" validate:"required"`
}

// ProcessorRunDTO represents the outcome of one processing run
type ProcessorRunDTO struct {
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
