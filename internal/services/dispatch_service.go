package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/subtrack/subtrack/internal/domain/reminder"
	"github.com/subtrack/subtrack/internal/pkg/logger"
	"github.com/subtrack/subtrack/internal/pkg/metrics"
)

// DispatchService implements reminder.Dispatcher against the reminder log.
// It persists what the policy engine decided; actual delivery transport is
// outside this system.
type DispatchService struct {
	repo   reminder.Repository
	logger *logger.Logger
	now    func() time.Time
}

// NewDispatchService creates a new dispatch service
func NewDispatchService(repo reminder.Repository, log *logger.Logger, now func() time.Time) *DispatchService {
	if now == nil {
		now = time.Now
	}
	return &DispatchService{repo: repo, logger: log, now: now}
}

// Apply persists a reconciliation diff: creates get IDs and enter the log as
// scheduled, updates replace message and instant, cancels are marked rather
// than deleted so the log stays an audit trail.
func (d *DispatchService) Apply(ctx context.Context, subscriptionID string, diff reminder.Diff) error {
	now := d.now()

	for _, r := range diff.ToCreate {
		if r.ID == "" {
			r.ID = uuid.New().String()
		}
		r.CreatedAt = now
		if err := d.repo.Create(ctx, r); err != nil {
			return err
		}
		metrics.RecordReminder(string(r.Type), "created")
		d.logger.WithFields(map[string]interface{}{
			"subscription_id": subscriptionID,
			"reminder_id":     r.ID,
			"type":            r.Type,
			"scheduled_at":    r.ScheduledAt,
		}).Info("Reminder scheduled")
	}

	for _, r := range diff.ToUpdate {
		r.UpdatedAt = now
		if err := d.repo.Update(ctx, r); err != nil {
			return err
		}
		metrics.RecordReminder(string(r.Type), "updated")
	}

	for _, r := range diff.ToCancel {
		cur, err := d.repo.GetByID(ctx, r.ID)
		if err != nil {
			return err
		}
		// The engine wanted this gone but delivery won the race. The
		// dispatch side is authoritative on delivery status, so this is
		// benign.
		if cur.Status == reminder.StatusSent {
			d.logger.WithFields(map[string]interface{}{
				"reminder_id": r.ID,
				"type":        r.Type,
			}).Warn("Skipping cancellation of an already delivered reminder")
			continue
		}
		cur.Status = reminder.StatusCancelled
		cur.UpdatedAt = now
		if err := d.repo.Update(ctx, cur); err != nil {
			return err
		}
		metrics.RecordReminder(string(cur.Type), "cancelled")
	}

	return nil
}
