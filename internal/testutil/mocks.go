package testutil

import (
	"context"
	"fmt"
	"sort"

	"github.com/subtrack/subtrack/internal/domain/pricechange"
	"github.com/subtrack/subtrack/internal/domain/reminder"
	"github.com/subtrack/subtrack/internal/domain/subscription"
)

// MockSubscriptionRepository is a mock implementation of subscription.Repository
type MockSubscriptionRepository struct {
	Subscriptions map[string]*subscription.Subscription
	CreateError   error
	GetError      error
	UpdateError   error
	DeleteError   error
	ListError     error
	UpdateCalls   int
}

func NewMockSubscriptionRepository() *MockSubscriptionRepository {
	return &MockSubscriptionRepository{
		Subscriptions: make(map[string]*subscription.Subscription),
	}
}

func (m *MockSubscriptionRepository) Create(ctx context.Context, s *subscription.Subscription) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	cp := *s
	m.Subscriptions[s.ID] = &cp
	return nil
}

func (m *MockSubscriptionRepository) GetByID(ctx context.Context, id string) (*subscription.Subscription, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	s, ok := m.Subscriptions[id]
	if !ok {
		return nil, fmt.Errorf("subscription not found")
	}
	cp := *s
	return &cp, nil
}

func (m *MockSubscriptionRepository) Update(ctx context.Context, s *subscription.Subscription) error {
	m.UpdateCalls++
	if m.UpdateError != nil {
		return m.UpdateError
	}
	if _, ok := m.Subscriptions[s.ID]; !ok {
		return fmt.Errorf("subscription not found")
	}
	cp := *s
	m.Subscriptions[s.ID] = &cp
	return nil
}

func (m *MockSubscriptionRepository) Delete(ctx context.Context, id string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}
	if _, ok := m.Subscriptions[id]; !ok {
		return fmt.Errorf("subscription not found")
	}
	delete(m.Subscriptions, id)
	return nil
}

func (m *MockSubscriptionRepository) List(ctx context.Context, filter subscription.Filter) ([]*subscription.Subscription, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	var subs []*subscription.Subscription
	for _, s := range m.Subscriptions {
		if filter.IsActive != nil && s.IsActive != *filter.IsActive {
			continue
		}
		if filter.Cycle != "" && s.BillingCycle != filter.Cycle {
			continue
		}
		if filter.TrialPhase != "" && s.TrialPhase != filter.TrialPhase {
			continue
		}
		if filter.Category != "" && s.Category != filter.Category {
			continue
		}
		cp := *s
		subs = append(subs, &cp)
	}
	sort.Slice(subs, func(i, j int) bool {
		return subs[i].NextBillingDate.Before(subs[j].NextBillingDate)
	})
	return subs, nil
}

func (m *MockSubscriptionRepository) ListActive(ctx context.Context) ([]*subscription.Subscription, error) {
	active := true
	return m.List(ctx, subscription.Filter{IsActive: &active})
}

// MockPriceChangeRepository is a mock implementation of pricechange.Repository
type MockPriceChangeRepository struct {
	Changes     []*pricechange.PriceChange
	CreateError error
	ListError   error
}

func NewMockPriceChangeRepository() *MockPriceChangeRepository {
	return &MockPriceChangeRepository{}
}

func (m *MockPriceChangeRepository) Create(ctx context.Context, pc *pricechange.PriceChange) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	cp := *pc
	m.Changes = append(m.Changes, &cp)
	return nil
}

func (m *MockPriceChangeRepository) GetByID(ctx context.Context, id string) (*pricechange.PriceChange, error) {
	for _, pc := range m.Changes {
		if pc.ID == id {
			cp := *pc
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("price change not found")
}

func (m *MockPriceChangeRepository) List(ctx context.Context, filter pricechange.Filter) ([]*pricechange.PriceChange, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	var changes []*pricechange.PriceChange
	for _, pc := range m.Changes {
		if filter.SubscriptionID != "" && pc.SubscriptionID != filter.SubscriptionID {
			continue
		}
		if filter.IncreasesOnly && !pc.IsIncrease() {
			continue
		}
		if filter.From != nil && pc.ChangeDate.Before(*filter.From) {
			continue
		}
		if filter.To != nil && pc.ChangeDate.After(*filter.To) {
			continue
		}
		cp := *pc
		changes = append(changes, &cp)
	}
	sort.Slice(changes, func(i, j int) bool {
		return changes[i].ChangeDate.After(changes[j].ChangeDate)
	})
	return changes, nil
}

func (m *MockPriceChangeRepository) GetLatest(ctx context.Context, subscriptionID string) (*pricechange.PriceChange, error) {
	changes, err := m.List(ctx, pricechange.Filter{SubscriptionID: subscriptionID})
	if err != nil {
		return nil, err
	}
	if len(changes) == 0 {
		return nil, nil
	}
	return changes[0], nil
}

// MockReminderRepository is a mock implementation of reminder.Repository
type MockReminderRepository struct {
	Reminders   map[string]*reminder.ScheduledReminder
	CreateError error
	UpdateError error
	ListError   error
}

func NewMockReminderRepository() *MockReminderRepository {
	return &MockReminderRepository{
		Reminders: make(map[string]*reminder.ScheduledReminder),
	}
}

func (m *MockReminderRepository) Create(ctx context.Context, r *reminder.ScheduledReminder) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	cp := *r
	m.Reminders[r.ID] = &cp
	return nil
}

func (m *MockReminderRepository) GetByID(ctx context.Context, id string) (*reminder.ScheduledReminder, error) {
	r, ok := m.Reminders[id]
	if !ok {
		return nil, fmt.Errorf("reminder not found")
	}
	cp := *r
	return &cp, nil
}

func (m *MockReminderRepository) Update(ctx context.Context, r *reminder.ScheduledReminder) error {
	if m.UpdateError != nil {
		return m.UpdateError
	}
	if _, ok := m.Reminders[r.ID]; !ok {
		return fmt.Errorf("reminder not found")
	}
	cp := *r
	m.Reminders[r.ID] = &cp
	return nil
}

func (m *MockReminderRepository) List(ctx context.Context, filter reminder.Filter) ([]*reminder.ScheduledReminder, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	var reminders []*reminder.ScheduledReminder
	for _, r := range m.Reminders {
		if filter.SubscriptionID != "" && r.SubscriptionID != filter.SubscriptionID {
			continue
		}
		if filter.Type != "" && r.Type != filter.Type {
			continue
		}
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		if filter.PendingOnly && !r.Status.IsPending() {
			continue
		}
		cp := *r
		reminders = append(reminders, &cp)
	}
	sort.Slice(reminders, func(i, j int) bool {
		return reminders[i].ScheduledAt.Before(reminders[j].ScheduledAt)
	})
	return reminders, nil
}

func (m *MockReminderRepository) ListPending(ctx context.Context, subscriptionID string) ([]*reminder.ScheduledReminder, error) {
	return m.List(ctx, reminder.Filter{SubscriptionID: subscriptionID, PendingOnly: true})
}

// MockDispatcher records the diffs applied to it, in order.
type MockDispatcher struct {
	Applied    []reminder.Diff
	ApplyError error
}

func NewMockDispatcher() *MockDispatcher {
	return &MockDispatcher{}
}

func (m *MockDispatcher) Apply(ctx context.Context, subscriptionID string, diff reminder.Diff) error {
	if m.ApplyError != nil {
		return m.ApplyError
	}
	m.Applied = append(m.Applied, diff)
	return nil
}

// Created returns every reminder the dispatcher has been asked to create.
func (m *MockDispatcher) Created() []*reminder.ScheduledReminder {
	var created []*reminder.ScheduledReminder
	for _, d := range m.Applied {
		created = append(created, d.ToCreate...)
	}
	return created
}

// Cancelled returns every reminder the dispatcher has been asked to cancel.
func (m *MockDispatcher) Cancelled() []*reminder.ScheduledReminder {
	var cancelled []*reminder.ScheduledReminder
	for _, d := range m.Applied {
		cancelled = append(cancelled, d.ToCancel...)
	}
	return cancelled
}
