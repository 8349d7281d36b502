package billing

import (
	"testing"
	"time"

	"github.com/subtrack/subtrack/internal/domain/subscription"
)

func trialSub(start, end time.Time) *subscription.Subscription {
	return &subscription.Subscription{
		ID:             "trial-sub",
		Name:           "Trial Service",
		TrialPhase:     subscription.TrialPhaseTrialing,
		TrialStartDate: &start,
		TrialEndDate:   &end,
	}
}

func TestEvaluateTrial(t *testing.T) {
	start := date(2025, 3, 1)
	end := date(2025, 3, 15)

	tests := []struct {
		name      string
		now       time.Time
		wantState TrialState
		wantDays  int
		expired   bool
	}{
		{"well before end", date(2025, 3, 1), TrialStateActive, 14, false},
		{"under a week left", date(2025, 3, 10), TrialStateEndingSoon, 5, false},
		{"ends tomorrow", date(2025, 3, 14), TrialStateEndsTomorrow, 1, false},
		{"ends today", date(2025, 3, 15), TrialStateEndsToday, 0, false},
		{"expired", date(2025, 3, 16), TrialStateExpired, -1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := EvaluateTrial(trialSub(start, end), tt.now)
			if st.State != tt.wantState {
				t.Errorf("State = %s, want %s", st.State, tt.wantState)
			}
			if st.IsExpired != tt.expired {
				t.Errorf("IsExpired = %v, want %v", st.IsExpired, tt.expired)
			}
			if st.DaysRemaining == nil {
				t.Fatal("DaysRemaining = nil, want value")
			}
			if *st.DaysRemaining != tt.wantDays {
				t.Errorf("DaysRemaining = %d, want %d", *st.DaysRemaining, tt.wantDays)
			}
		})
	}
}

func TestEvaluateTrialEndOfDayNotExpired(t *testing.T) {
	// A trial ending at midnight on the 15th is still in its last day
	// until the instant passes, never expired at the boundary itself.
	end := date(2025, 3, 15)
	st := EvaluateTrial(trialSub(date(2025, 3, 1), end), end)
	if st.IsExpired {
		t.Error("IsExpired = true at the exact end instant, want false")
	}
}

func TestEvaluateTrialNotTrialing(t *testing.T) {
	sub := &subscription.Subscription{
		ID:         "paid-sub",
		TrialPhase: subscription.TrialPhaseConverted,
	}
	st := EvaluateTrial(sub, date(2025, 3, 10))
	if st.State != TrialStateNone {
		t.Errorf("State = %s, want %s", st.State, TrialStateNone)
	}
	if st.DaysRemaining != nil {
		t.Errorf("DaysRemaining = %d, want nil", *st.DaysRemaining)
	}
}

func TestEvaluateTrialMissingEndDate(t *testing.T) {
	sub := &subscription.Subscription{
		ID:         "broken-trial",
		TrialPhase: subscription.TrialPhaseTrialing,
	}
	st := EvaluateTrial(sub, date(2025, 3, 10))
	if st.State != TrialStateNone {
		t.Errorf("State = %s, want %s", st.State, TrialStateNone)
	}
}
