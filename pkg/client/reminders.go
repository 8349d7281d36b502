package client

import (
	"context"
	"fmt"
	"net/url"
	"time"
)

// ReminderService handles reminder-related API calls
type ReminderService struct {
	client *Client
}

// snoozeRequest is the snooze request body.
type snoozeRequest struct {
	Until string `json:"until"`
}

// ListPending retrieves pending reminders, optionally for one subscription
func (s *ReminderService) ListPending(ctx context.Context, subscriptionID string) ([]Reminder, error) {
	path := "/api/v1/reminders"
	if subscriptionID != "" {
		path += "?subscription_id=" + url.QueryEscape(subscriptionID)
	}

	var reminders []Reminder
	if err := s.client.doRequest(ctx, "GET", path, nil, &reminders); err != nil {
		return nil, err
	}

	return reminders, nil
}

// Snooze postpones a pending reminder until the given instant
func (s *ReminderService) Snooze(ctx context.Context, id string, until time.Time) (*Reminder, error) {
	path := fmt.Sprintf("/api/v1/reminders/%s/snooze", id)

	var reminder Reminder
	req := snoozeRequest{Until: until.Format(time.RFC3339)}
	if err := s.client.doRequest(ctx, "POST", path, req, &reminder); err != nil {
		return nil, err
	}

	return &reminder, nil
}

// Dismiss marks a pending reminder as dismissed
func (s *ReminderService) Dismiss(ctx context.Context, id string) (*Reminder, error) {
	path := fmt.Sprintf("/api/v1/reminders/%s/dismiss", id)

	var reminder Reminder
	if err := s.client.doRequest(ctx, "POST", path, nil, &reminder); err != nil {
		return nil, err
	}

	return &reminder, nil
}
