package pricechange

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceChange represents one row in the append-only price history ledger.
// Rows are never mutated or deleted; corrections are new rows.
type PriceChange struct {
	ID                    string          `json:"id"`
	SubscriptionID        string          `json:"subscription_id"`
	OldPrice              decimal.Decimal `json:"old_price"`
	NewPrice              decimal.Decimal `json:"new_price"`
	ChangeDate            time.Time       `json:"change_date"`
	Reason                string          `json:"reason,omitempty"`
	DetectedAutomatically bool            `json:"detected_automatically"`
	CreatedAt             time.Time       `json:"created_at"`
}

// ChangeAmount returns newPrice - oldPrice.
func (p *PriceChange) ChangeAmount() decimal.Decimal {
	return p.NewPrice.Sub(p.OldPrice)
}

// ChangePercentage returns the change as a percentage of the old price.
// Zero when the old price is zero.
func (p *PriceChange) ChangePercentage() decimal.Decimal {
	if p.OldPrice.IsZero() {
		return decimal.Zero
	}
	return p.ChangeAmount().Div(p.OldPrice).Mul(decimal.NewFromInt(100))
}

// IsIncrease reports whether the new price is higher than the old one.
func (p *PriceChange) IsIncrease() bool {
	return p.NewPrice.GreaterThan(p.OldPrice)
}

// FormattedChangePercentage renders the percentage for display, e.g. "+12.5%".
func (p *PriceChange) FormattedChangePercentage() string {
	pct := p.ChangePercentage().Round(1)
	if pct.IsPositive() {
		return "+" + pct.String() + "%"
	}
	return pct.String() + "%"
}

// Filter contains price change filtering options
type Filter struct {
	SubscriptionID string
	IncreasesOnly  bool
	From           *time.Time
	To             *time.Time
}
