package postgres

import (
	"context"
	"database/sql"

	"github.com/subtrack/subtrack/internal/domain/reminder"
	"github.com/subtrack/subtrack/internal/pkg/errors"
)

type ReminderRepository struct {
	db *sql.DB
}

func NewReminderRepository(db *sql.DB) reminder.Repository {
	return &ReminderRepository{db: db}
}

const reminderColumns = `
	id, subscription_id, type, scheduled_at, status, priority, message,
	snoozed_until, created_at, updated_at`

func (r *ReminderRepository) Create(ctx context.Context, rem *reminder.ScheduledReminder) error {
	query := `
		INSERT INTO reminders (` + reminderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.ExecContext(ctx, query,
		rem.ID, rem.SubscriptionID, rem.Type, rem.ScheduledAt, rem.Status,
		rem.Priority, rem.Message, nullTime(rem.SnoozedUntil), rem.CreatedAt, rem.UpdatedAt,
	)
	if err != nil {
		return errors.DatabaseError("Failed to create reminder", err)
	}
	return nil
}

func (r *ReminderRepository) GetByID(ctx context.Context, id string) (*reminder.ScheduledReminder, error) {
	query := `SELECT ` + reminderColumns + ` FROM reminders WHERE id = $1`
	rem, err := scanReminder(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("Reminder")
	}
	if err != nil {
		return nil, errors.DatabaseError("Failed to get reminder", err)
	}
	return rem, nil
}

func (r *ReminderRepository) Update(ctx context.Context, rem *reminder.ScheduledReminder) error {
	query := `
		UPDATE reminders SET
			scheduled_at = $2, status = $3, priority = $4, message = $5,
			snoozed_until = $6, updated_at = $7
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query,
		rem.ID, rem.ScheduledAt, rem.Status, rem.Priority, rem.Message,
		nullTime(rem.SnoozedUntil), rem.UpdatedAt,
	)
	if err != nil {
		return errors.DatabaseError("Failed to update reminder", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return errors.DatabaseError("Failed to get affected rows", err)
	}
	if rows == 0 {
		return errors.NotFound("Reminder")
	}
	return nil
}

func (r *ReminderRepository) List(ctx context.Context, filter reminder.Filter) ([]*reminder.ScheduledReminder, error) {
	query := `SELECT ` + reminderColumns + ` FROM reminders WHERE 1=1`
	args := []interface{}{}
	idx := 1

	if filter.SubscriptionID != "" {
		query += ` AND subscription_id = $` + itoa(idx)
		args = append(args, filter.SubscriptionID)
		idx++
	}
	if filter.Type != "" {
		query += ` AND type = $` + itoa(idx)
		args = append(args, filter.Type)
		idx++
	}
	if filter.Status != "" {
		query += ` AND status = $` + itoa(idx)
		args = append(args, filter.Status)
		idx++
	}
	if filter.PendingOnly {
		query += ` AND status IN ('scheduled', 'snoozed')`
	}
	query += ` ORDER BY scheduled_at ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.DatabaseError("Failed to list reminders", err)
	}
	defer rows.Close()

	return collectReminders(rows)
}

func (r *ReminderRepository) ListPending(ctx context.Context, subscriptionID string) ([]*reminder.ScheduledReminder, error) {
	query := `
		SELECT ` + reminderColumns + `
		FROM reminders
		WHERE subscription_id = $1 AND status IN ('scheduled', 'snoozed')
		ORDER BY scheduled_at ASC
	`
	rows, err := r.db.QueryContext(ctx, query, subscriptionID)
	if err != nil {
		return nil, errors.DatabaseError("Failed to list pending reminders", err)
	}
	defer rows.Close()

	return collectReminders(rows)
}

func scanReminder(row rowScanner) (*reminder.ScheduledReminder, error) {
	var rem reminder.ScheduledReminder
	var snoozed sql.NullTime

	err := row.Scan(
		&rem.ID, &rem.SubscriptionID, &rem.Type, &rem.ScheduledAt, &rem.Status,
		&rem.Priority, &rem.Message, &snoozed, &rem.CreatedAt, &rem.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	rem.SnoozedUntil = timePtr(snoozed)
	return &rem, nil
}

func collectReminders(rows *sql.Rows) ([]*reminder.ScheduledReminder, error) {
	var reminders []*reminder.ScheduledReminder
	for rows.Next() {
		rem, err := scanReminder(rows)
		if err != nil {
			return nil, errors.DatabaseError("Failed to scan reminder", err)
		}
		reminders = append(reminders, rem)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.DatabaseError("Failed to iterate reminders", err)
	}
	return reminders, nil
}
