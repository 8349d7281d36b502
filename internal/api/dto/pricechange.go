package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/subtrack/subtrack/internal/domain/pricechange"
)

// PriceChangeDTO represents one price history row in API responses
type PriceChangeDTO struct {
	ID                    string          `json:"id"`
	SubscriptionID        string          `json:"subscriptionId"`
	OldPrice              decimal.Decimal `json:"oldPrice"`
	NewPrice              decimal.Decimal `json:"newPrice"`
	ChangeAmount          decimal.Decimal `json:"changeAmount"`
	ChangePercentage      string          `json:"changePercentage"`
	IsIncrease            bool            `json:"isIncrease"`
	ChangeDate            time.Time       `json:"changeDate"`
	Reason                string          `json:"reason,omitempty"`
	DetectedAutomatically bool            `json:"detectedAutomatically"`
}

// FromPriceChange maps a ledger row onto its response shape.
func FromPriceChange(pc *pricechange.PriceChange) PriceChangeDTO {
	return PriceChangeDTO{
		ID:                    pc.ID,
		SubscriptionID:        pc.SubscriptionID,
		OldPrice:              pc.OldPrice,
		NewPrice:              pc.NewPrice,
		ChangeAmount:          pc.ChangeAmount(),
		ChangePercentage:      pc.FormattedChangePercentage(),
		IsIncrease:            pc.IsIncrease(),
		ChangeDate:            pc.ChangeDate,
		Reason:                pc.Reason,
		DetectedAutomatically: pc.DetectedAutomatically,
	}
}

// RecordPriceChangeRequest represents a manual price change entry
type RecordPriceChangeRequest struct {
	NewPrice string `json:"newPrice" validate:"required"`
	Reason   string `json:"reason,omitempty"`
}
