package postgres

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"

	"github.com/subtrack/subtrack/internal/domain/pricechange"
	"github.com/subtrack/subtrack/internal/pkg/errors"
)

type PriceChangeRepository struct {
	db *sql.DB
}

func NewPriceChangeRepository(db *sql.DB) pricechange.Repository {
	return &PriceChangeRepository{db: db}
}

const priceChangeColumns = `
	id, subscription_id, old_price, new_price, change_date, reason,
	detected_automatically, created_at`

func (r *PriceChangeRepository) Create(ctx context.Context, pc *pricechange.PriceChange) error {
	query := `
		INSERT INTO price_changes (` + priceChangeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		pc.ID, pc.SubscriptionID, pc.OldPrice.String(), pc.NewPrice.String(),
		pc.ChangeDate, pc.Reason, pc.DetectedAutomatically, pc.CreatedAt,
	)
	if err != nil {
		return errors.DatabaseError("Failed to create price change", err)
	}
	return nil
}

func (r *PriceChangeRepository) GetByID(ctx context.Context, id string) (*pricechange.PriceChange, error) {
	query := `SELECT ` + priceChangeColumns + ` FROM price_changes WHERE id = $1`
	pc, err := scanPriceChange(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("Price change")
	}
	if err != nil {
		return nil, errors.DatabaseError("Failed to get price change", err)
	}
	return pc, nil
}

func (r *PriceChangeRepository) List(ctx context.Context, filter pricechange.Filter) ([]*pricechange.PriceChange, error) {
	query := `SELECT ` + priceChangeColumns + ` FROM price_changes WHERE 1=1`
	args := []interface{}{}
	idx := 1

	if filter.SubscriptionID != "" {
		query += ` AND subscription_id = $` + itoa(idx)
		args = append(args, filter.SubscriptionID)
		idx++
	}
	if filter.IncreasesOnly {
		query += ` AND new_price > old_price`
	}
	if filter.From != nil {
		query += ` AND change_date >= $` + itoa(idx)
		args = append(args, *filter.From)
		idx++
	}
	if filter.To != nil {
		query += ` AND change_date <= $` + itoa(idx)
		args = append(args, *filter.To)
		idx++
	}
	query += ` ORDER BY change_date DESC, created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.DatabaseError("Failed to list price changes", err)
	}
	defer rows.Close()

	var changes []*pricechange.PriceChange
	for rows.Next() {
		pc, err := scanPriceChange(rows)
		if err != nil {
			return nil, errors.DatabaseError("Failed to scan price change", err)
		}
		changes = append(changes, pc)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.DatabaseError("Failed to iterate price changes", err)
	}
	return changes, nil
}

func (r *PriceChangeRepository) GetLatest(ctx context.Context, subscriptionID string) (*pricechange.PriceChange, error) {
	query := `
		SELECT ` + priceChangeColumns + `
		FROM price_changes
		WHERE subscription_id = $1
		ORDER BY change_date DESC, created_at DESC
		LIMIT 1
	`
	pc, err := scanPriceChange(r.db.QueryRowContext(ctx, query, subscriptionID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.DatabaseError("Failed to get latest price change", err)
	}
	return pc, nil
}

func scanPriceChange(row rowScanner) (*pricechange.PriceChange, error) {
	var pc pricechange.PriceChange
	var oldPrice, newPrice string

	err := row.Scan(
		&pc.ID, &pc.SubscriptionID, &oldPrice, &newPrice, &pc.ChangeDate,
		&pc.Reason, &pc.DetectedAutomatically, &pc.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if pc.OldPrice, err = decimal.NewFromString(oldPrice); err != nil {
		return nil, err
	}
	if pc.NewPrice, err = decimal.NewFromString(newPrice); err != nil {
		return nil, err
	}
	return &pc, nil
}
