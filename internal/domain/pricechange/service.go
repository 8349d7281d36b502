package pricechange

import (
	"context"

	"github.com/shopspring/decimal"
)

// Service defines the interface for the price history ledger
type Service interface {
	// RecordIfChanged appends a price change when old and new differ under
	// decimal equality. Returns nil with no error when the prices are equal.
	RecordIfChanged(ctx context.Context, subscriptionID string, oldPrice, newPrice decimal.Decimal, detectedAutomatically bool, reason string) (*PriceChange, error)

	// History lists the price changes for a subscription, newest first
	History(ctx context.Context, subscriptionID string) ([]*PriceChange, error)
}
