package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/subtrack/subtrack/internal/testutil"
)

func TestRecordIfChangedNoOpOnEqualPrices(t *testing.T) {
	now := testutil.Date(2025, 3, 10)
	pcRepo := testutil.NewMockPriceChangeRepository()
	subRepo := testutil.NewMockSubscriptionRepository()
	svc := NewLedgerService(pcRepo, subRepo, testutil.NewTestLogger(), testutil.FixedClock(now))

	price := decimal.RequireFromString("9.99")
	same := decimal.RequireFromString("9.990") // equal value, different scale

	pc, err := svc.RecordIfChanged(context.Background(), "sub-1", price, same, false, "")
	if err != nil {
		t.Fatalf("RecordIfChanged() error = %v", err)
	}
	if pc != nil {
		t.Errorf("RecordIfChanged() = %+v, want nil for equal prices", pc)
	}
	if len(pcRepo.Changes) != 0 {
		t.Errorf("ledger rows = %d, want 0", len(pcRepo.Changes))
	}
}

func TestRecordIfChangedAppendsRow(t *testing.T) {
	now := testutil.Date(2025, 3, 10)
	pcRepo := testutil.NewMockPriceChangeRepository()
	subRepo := testutil.NewMockSubscriptionRepository()
	sub := testutil.NewSubscription("sub-1", testutil.Date(2025, 4, 1))
	if err := subRepo.Create(context.Background(), sub); err != nil {
		t.Fatalf("seed subscription: %v", err)
	}

	svc := NewLedgerService(pcRepo, subRepo, testutil.NewTestLogger(), testutil.FixedClock(now))

	pc, err := svc.RecordIfChanged(context.Background(), "sub-1",
		decimal.RequireFromString("9.99"), decimal.RequireFromString("12.99"), true, "vendor notice")
	if err != nil {
		t.Fatalf("RecordIfChanged() error = %v", err)
	}
	if pc == nil {
		t.Fatal("RecordIfChanged() = nil, want row")
	}
	if pc.ID == "" {
		t.Error("ID not assigned")
	}
	if !pc.ChangeDate.Equal(now) {
		t.Errorf("ChangeDate = %v, want %v", pc.ChangeDate, now)
	}
	if !pc.DetectedAutomatically {
		t.Error("DetectedAutomatically = false, want true")
	}
	if pc.Reason != "vendor notice" {
		t.Errorf("Reason = %q, want %q", pc.Reason, "vendor notice")
	}
	if len(pcRepo.Changes) != 1 {
		t.Fatalf("ledger rows = %d, want 1", len(pcRepo.Changes))
	}

	// The denormalized cache pointer follows the ledger.
	got, err := subRepo.GetByID(context.Background(), "sub-1")
	if err != nil {
		t.Fatalf("get subscription: %v", err)
	}
	if got.LastPriceChange == nil || !got.LastPriceChange.Equal(now) {
		t.Errorf("LastPriceChange = %v, want %v", got.LastPriceChange, now)
	}
}

func TestRecordIfChangedSurvivesCacheUpdateFailure(t *testing.T) {
	now := testutil.Date(2025, 3, 10)
	pcRepo := testutil.NewMockPriceChangeRepository()
	subRepo := testutil.NewMockSubscriptionRepository()
	svc := NewLedgerService(pcRepo, subRepo, testutil.NewTestLogger(), testutil.FixedClock(now))

	// The subscription lookup fails, but the ledger row is already appended
	// and must be returned; the cache is recoverable by replay.
	pc, err := svc.RecordIfChanged(context.Background(), "missing-sub",
		decimal.RequireFromString("9.99"), decimal.RequireFromString("12.99"), false, "")
	if err != nil {
		t.Fatalf("RecordIfChanged() error = %v", err)
	}
	if pc == nil {
		t.Fatal("RecordIfChanged() = nil, want row despite cache failure")
	}
	if len(pcRepo.Changes) != 1 {
		t.Errorf("ledger rows = %d, want 1", len(pcRepo.Changes))
	}
}

func TestHistoryNewestFirst(t *testing.T) {
	pcRepo := testutil.NewMockPriceChangeRepository()
	subRepo := testutil.NewMockSubscriptionRepository()
	sub := testutil.NewSubscription("sub-1", testutil.Date(2025, 5, 1))
	if err := subRepo.Create(context.Background(), sub); err != nil {
		t.Fatalf("seed subscription: %v", err)
	}

	steps := []struct {
		at    time.Time
		price string
	}{
		{testutil.Date(2025, 1, 10), "9.99"},
		{testutil.Date(2025, 2, 10), "10.99"},
		{testutil.Date(2025, 3, 10), "12.99"},
	}
	old := decimal.RequireFromString("8.99")
	for _, step := range steps {
		svc := NewLedgerService(pcRepo, subRepo, testutil.NewTestLogger(), testutil.FixedClock(step.at))
		next := decimal.RequireFromString(step.price)
		if _, err := svc.RecordIfChanged(context.Background(), "sub-1", old, next, false, ""); err != nil {
			t.Fatalf("RecordIfChanged() error = %v", err)
		}
		old = next
	}

	svc := NewLedgerService(pcRepo, subRepo, testutil.NewTestLogger(), nil)
	history, err := svc.History(context.Background(), "sub-1")
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("History() = %d rows, want 3", len(history))
	}
	if !history[0].NewPrice.Equal(decimal.RequireFromString("12.99")) {
		t.Errorf("history[0].NewPrice = %s, want newest first", history[0].NewPrice)
	}
	if !history[2].NewPrice.Equal(decimal.RequireFromString("9.99")) {
		t.Errorf("history[2].NewPrice = %s, want oldest last", history[2].NewPrice)
	}
}
