package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/subtrack/subtrack/internal/domain/pricechange"
	"github.com/subtrack/subtrack/internal/domain/subscription"
	"github.com/subtrack/subtrack/internal/pkg/logger"
)

// LedgerService implements pricechange.Service, the append-only price
// history ledger.
type LedgerService struct {
	repo    pricechange.Repository
	subRepo subscription.Repository
	logger  *logger.Logger
	now     func() time.Time
}

// NewLedgerService creates a new price history ledger service
func NewLedgerService(
	repo pricechange.Repository,
	subRepo subscription.Repository,
	log *logger.Logger,
	now func() time.Time,
) *LedgerService {
	if now == nil {
		now = time.Now
	}
	return &LedgerService{repo: repo, subRepo: subRepo, logger: log, now: now}
}

// RecordIfChanged appends a PriceChange row when the prices differ under
// decimal equality, and refreshes the subscription's last_price_change
// cache. Equal prices are a no-op returning nil. Whether a change is a
// genuine price change or a data-entry correction is the caller's policy;
// the ledger records what it is told.
func (s *LedgerService) RecordIfChanged(
	ctx context.Context,
	subscriptionID string,
	oldPrice, newPrice decimal.Decimal,
	detectedAutomatically bool,
	reason string,
) (*pricechange.PriceChange, error) {
	if oldPrice.Equal(newPrice) {
		return nil, nil
	}

	now := s.now()
	pc := &pricechange.PriceChange{
		ID:                    uuid.New().String(),
		SubscriptionID:        subscriptionID,
		OldPrice:              oldPrice,
		NewPrice:              newPrice,
		ChangeDate:            now,
		Reason:                reason,
		DetectedAutomatically: detectedAutomatically,
		CreatedAt:             now,
	}

	if err := s.repo.Create(ctx, pc); err != nil {
		return nil, err
	}

	sub, err := s.subRepo.GetByID(ctx, subscriptionID)
	if err != nil {
		// The row is already appended; a stale cache pointer is recoverable
		// by replay, so log and move on.
		s.logger.WithFields(map[string]interface{}{
			"subscription_id": subscriptionID,
		}).ErrorWithErr(err, "Price change recorded but subscription lookup failed")
		return pc, nil
	}
	sub.LastPriceChange = &now
	if err := s.subRepo.Update(ctx, sub); err != nil {
		s.logger.WithFields(map[string]interface{}{
			"subscription_id": subscriptionID,
		}).ErrorWithErr(err, "Failed to update last price change pointer")
	}

	s.logger.WithFields(map[string]interface{}{
		"subscription_id": subscriptionID,
		"old_price":       oldPrice.String(),
		"new_price":       newPrice.String(),
		"increase":        pc.IsIncrease(),
		"automatic":       detectedAutomatically,
	}).Info("Price change recorded")

	return pc, nil
}

// History lists the price changes for a subscription, newest first.
func (s *LedgerService) History(ctx context.Context, subscriptionID string) ([]*pricechange.PriceChange, error) {
	return s.repo.List(ctx, pricechange.Filter{SubscriptionID: subscriptionID})
}
