package postgres

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/subtrack/subtrack/internal/domain/subscription"
	"github.com/subtrack/subtrack/internal/pkg/errors"
)

type SubscriptionRepository struct {
	db *sql.DB
}

func NewSubscriptionRepository(db *sql.DB) subscription.Repository {
	return &SubscriptionRepository{db: db}
}

const subscriptionColumns = `
	id, name, category, price, billing_cycle, payment_method, notes,
	is_active, auto_renew, next_billing_date, last_billing_date,
	cancellation_date, total_spent,
	trial_phase, trial_start_date, trial_end_date, will_convert_to_paid, price_after_trial,
	enable_renewal_reminder, reminder_days_before, reminder_time, last_reminder_sent,
	last_price_change, usage_count, last_used_at, cancellation_difficulty,
	alternative_suggestion, created_at, updated_at`

func (r *SubscriptionRepository) Create(ctx context.Context, s *subscription.Subscription) error {
	query := `
		INSERT INTO subscriptions (` + subscriptionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29)
	`
	_, err := r.db.ExecContext(ctx, query,
		s.ID, s.Name, s.Category, s.Price.String(), s.BillingCycle, s.PaymentMethod, s.Notes,
		s.IsActive, s.AutoRenew, s.NextBillingDate, nullTime(s.LastBillingDate),
		nullTime(s.CancellationDate), s.TotalSpent.String(),
		s.TrialPhase, nullTime(s.TrialStartDate), nullTime(s.TrialEndDate), s.WillConvertToPaid, nullDecimal(s.PriceAfterTrial),
		s.EnableRenewalReminder, s.ReminderDaysBefore, s.ReminderTime, nullTime(s.LastReminderSent),
		nullTime(s.LastPriceChange), s.UsageCount, nullTime(s.LastUsedAt), s.CancellationDifficulty,
		s.AlternativeSuggestion, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return errors.DatabaseError("Failed to create subscription", err)
	}
	return nil
}

func (r *SubscriptionRepository) GetByID(ctx context.Context, id string) (*subscription.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id = $1`
	s, err := scanSubscription(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("Subscription")
	}
	if err != nil {
		return nil, errors.DatabaseError("Failed to get subscription", err)
	}
	return s, nil
}

func (r *SubscriptionRepository) Update(ctx context.Context, s *subscription.Subscription) error {
	query := `
		UPDATE subscriptions SET
			name = $2, category = $3, price = $4, billing_cycle = $5,
			payment_method = $6, notes = $7, is_active = $8, auto_renew = $9,
			next_billing_date = $10, last_billing_date = $11, cancellation_date = $12,
			total_spent = $13, trial_phase = $14, trial_start_date = $15,
			trial_end_date = $16, will_convert_to_paid = $17, price_after_trial = $18,
			enable_renewal_reminder = $19, reminder_days_before = $20, reminder_time = $21,
			last_reminder_sent = $22, last_price_change = $23, usage_count = $24,
			last_used_at = $25, cancellation_difficulty = $26, alternative_suggestion = $27,
			updated_at = $28
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query,
		s.ID, s.Name, s.Category, s.Price.String(), s.BillingCycle,
		s.PaymentMethod, s.Notes, s.IsActive, s.AutoRenew,
		s.NextBillingDate, nullTime(s.LastBillingDate), nullTime(s.CancellationDate),
		s.TotalSpent.String(), s.TrialPhase, nullTime(s.TrialStartDate),
		nullTime(s.TrialEndDate), s.WillConvertToPaid, nullDecimal(s.PriceAfterTrial),
		s.EnableRenewalReminder, s.ReminderDaysBefore, s.ReminderTime,
		nullTime(s.LastReminderSent), nullTime(s.LastPriceChange), s.UsageCount,
		nullTime(s.LastUsedAt), s.CancellationDifficulty, s.AlternativeSuggestion,
		s.UpdatedAt,
	)
	if err != nil {
		return errors.DatabaseError("Failed to update subscription", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return errors.DatabaseError("Failed to get affected rows", err)
	}
	if rows == 0 {
		return errors.NotFound("Subscription")
	}
	return nil
}

func (r *SubscriptionRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM subscriptions WHERE id = $1`, id)
	if err != nil {
		return errors.DatabaseError("Failed to delete subscription", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return errors.DatabaseError("Failed to get affected rows", err)
	}
	if rows == 0 {
		return errors.NotFound("Subscription")
	}
	return nil
}

func (r *SubscriptionRepository) List(ctx context.Context, filter subscription.Filter) ([]*subscription.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE 1=1`
	args := []interface{}{}
	idx := 1

	if filter.IsActive != nil {
		query += ` AND is_active = $` + itoa(idx)
		args = append(args, *filter.IsActive)
		idx++
	}
	if filter.Cycle != "" {
		query += ` AND billing_cycle = $` + itoa(idx)
		args = append(args, filter.Cycle)
		idx++
	}
	if filter.TrialPhase != "" {
		query += ` AND trial_phase = $` + itoa(idx)
		args = append(args, filter.TrialPhase)
		idx++
	}
	if filter.Category != "" {
		query += ` AND category = $` + itoa(idx)
		args = append(args, filter.Category)
		idx++
	}
	query += ` ORDER BY next_billing_date ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.DatabaseError("Failed to list subscriptions", err)
	}
	defer rows.Close()

	return collectSubscriptions(rows)
}

func (r *SubscriptionRepository) ListActive(ctx context.Context) ([]*subscription.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE is_active = TRUE ORDER BY next_billing_date ASC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.DatabaseError("Failed to list active subscriptions", err)
	}
	defer rows.Close()

	return collectSubscriptions(rows)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSubscription(row rowScanner) (*subscription.Subscription, error) {
	var s subscription.Subscription
	var price, totalSpent string
	var priceAfterTrial sql.NullString
	var lastBilling, cancellation, trialStart, trialEnd sql.NullTime
	var lastReminder, lastPriceChange, lastUsed sql.NullTime

	err := row.Scan(
		&s.ID, &s.Name, &s.Category, &price, &s.BillingCycle, &s.PaymentMethod, &s.Notes,
		&s.IsActive, &s.AutoRenew, &s.NextBillingDate, &lastBilling,
		&cancellation, &totalSpent,
		&s.TrialPhase, &trialStart, &trialEnd, &s.WillConvertToPaid, &priceAfterTrial,
		&s.EnableRenewalReminder, &s.ReminderDaysBefore, &s.ReminderTime, &lastReminder,
		&lastPriceChange, &s.UsageCount, &lastUsed, &s.CancellationDifficulty,
		&s.AlternativeSuggestion, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if s.Price, err = decimal.NewFromString(price); err != nil {
		return nil, err
	}
	if s.TotalSpent, err = decimal.NewFromString(totalSpent); err != nil {
		return nil, err
	}
	if priceAfterTrial.Valid {
		d, err := decimal.NewFromString(priceAfterTrial.String)
		if err != nil {
			return nil, err
		}
		s.PriceAfterTrial = &d
	}

	s.LastBillingDate = timePtr(lastBilling)
	s.CancellationDate = timePtr(cancellation)
	s.TrialStartDate = timePtr(trialStart)
	s.TrialEndDate = timePtr(trialEnd)
	s.LastReminderSent = timePtr(lastReminder)
	s.LastPriceChange = timePtr(lastPriceChange)
	s.LastUsedAt = timePtr(lastUsed)

	return &s, nil
}

func collectSubscriptions(rows *sql.Rows) ([]*subscription.Subscription, error) {
	var subs []*subscription.Subscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, errors.DatabaseError("Failed to scan subscription", err)
		}
		subs = append(subs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.DatabaseError("Failed to iterate subscriptions", err)
	}
	return subs, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func nullDecimal(d *decimal.Decimal) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
