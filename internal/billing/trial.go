package billing

import (
	"time"

	"github.com/subtrack/subtrack/internal/domain/subscription"
)

// TrialState is the kind of urgency bucket a running trial falls into.
type TrialState string

const (
	TrialStateNone         TrialState = "none"
	TrialStateActive       TrialState = "active"
	TrialStateEndingSoon   TrialState = "ending_soon" // fewer than 7 days left
	TrialStateEndsTomorrow TrialState = "ends_tomorrow"
	TrialStateEndsToday    TrialState = "ends_today"
	TrialStateExpired      TrialState = "expired"
)

// TrialStatus is the derived view of a subscription's trial window at a
// point in time.
type TrialStatus struct {
	DaysRemaining *int       `json:"days_remaining,omitempty"`
	IsExpired     bool       `json:"is_expired"`
	State         TrialState `json:"state"`
}

// EvaluateTrial computes the trial status of a subscription at now.
// Subscriptions that are not currently trialing get TrialStateNone and a nil
// days-remaining.
func EvaluateTrial(sub *subscription.Subscription, now time.Time) TrialStatus {
	if !sub.IsTrialing() || sub.TrialEndDate == nil {
		return TrialStatus{State: TrialStateNone}
	}

	end := *sub.TrialEndDate
	days := CalendarDaysBetween(now, end)
	expired := now.After(end)

	st := TrialStatus{
		DaysRemaining: &days,
		IsExpired:     expired,
	}

	switch {
	case expired:
		st.State = TrialStateExpired
	case days == 0:
		st.State = TrialStateEndsToday
	case days == 1:
		st.State = TrialStateEndsTomorrow
	case days < 7:
		st.State = TrialStateEndingSoon
	default:
		st.State = TrialStateActive
	}
	return st
}
