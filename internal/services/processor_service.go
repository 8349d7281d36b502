package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/subtrack/subtrack/internal/billing"
	"github.com/subtrack/subtrack/internal/domain/pricechange"
	"github.com/subtrack/subtrack/internal/domain/subscription"
	"github.com/subtrack/subtrack/internal/pkg/logger"
	"github.com/subtrack/subtrack/internal/pkg/metrics"
)

// ProcessorService is the renewal/lifecycle processor: the only component
// with side effects. A run walks every active subscription, catches up
// overdue billing cycles, applies trial transitions, and reconciles
// reminders. Runs are idempotent; re-running with no elapsed time changes
// nothing.
type ProcessorService struct {
	subRepo  subscription.Repository
	ledger   pricechange.Service
	reminder *ReminderService
	logger   *logger.Logger
	now      func() time.Time

	scheduler *cron.Cron
	entryID   cron.EntryID
	mu        sync.Mutex
	running   bool
}

// RunResult summarizes one processing run.
type RunResult struct {
	StartedAt          time.Time     `json:"started_at"`
	Duration           time.Duration `json:"duration"`
	Processed          int           `json:"processed"`
	CyclesAdvanced     int           `json:"cycles_advanced"`
	TrialsConverted    int           `json:"trials_converted"`
	TrialsLapsed       int           `json:"trials_lapsed"`
	RemindersSent      int           `json:"reminders_sent"`
	RemindersCreated   int           `json:"reminders_created"`
	RemindersCancelled int           `json:"reminders_cancelled"`
	Failed             int           `json:"failed"`
}

// NewProcessorService creates a new lifecycle processor
func NewProcessorService(
	subRepo subscription.Repository,
	ledger pricechange.Service,
	reminderSvc *ReminderService,
	log *logger.Logger,
	now func() time.Time,
) *ProcessorService {
	if now == nil {
		now = time.Now
	}
	return &ProcessorService{
		subRepo:  subRepo,
		ledger:   ledger,
		reminder: reminderSvc,
		logger:   log,
		now:      now,
	}
}

// Run executes one processing pass over all active subscriptions. A single
// subscription's failure is logged and skipped, never aborting the batch.
// Cancelling the context stops the run cleanly between subscriptions.
func (p *ProcessorService) Run(ctx context.Context) (*RunResult, error) {
	now := p.now()
	result := &RunResult{StartedAt: now}

	subs, err := p.subRepo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load processing batch: %w", err)
	}

	p.logger.WithFields(map[string]interface{}{
		"subscriptions": len(subs),
	}).Info("Processing run started")

	for _, sub := range subs {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("Processing run cancelled")
			break
		}
		if err := p.processOne(ctx, sub, now, result); err != nil {
			result.Failed++
			metrics.RecordProcessorFailure()
			p.logger.WithFields(map[string]interface{}{
				"subscription_id": sub.ID,
				"name":            sub.Name,
			}).ErrorWithErr(err, "Subscription skipped for this run")
			continue
		}
		result.Processed++
	}

	result.Duration = time.Since(now)
	metrics.RecordProcessorRun(result.Processed, result.CyclesAdvanced)

	p.logger.WithFields(map[string]interface{}{
		"processed":        result.Processed,
		"cycles_advanced":  result.CyclesAdvanced,
		"trials_converted": result.TrialsConverted,
		"trials_lapsed":    result.TrialsLapsed,
		"failed":           result.Failed,
	}).Info("Processing run finished")

	return result, nil
}

// processOne advances a single subscription's state machine. Failures,
// including panics out of date or decimal arithmetic on malformed state,
// surface as errors for the batch loop to log and skip.
func (p *ProcessorService) processOne(ctx context.Context, sub *subscription.Subscription, now time.Time, result *RunResult) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while processing subscription: %v", r)
		}
	}()

	changed := false

	if sub.IsTrialing() {
		transitioned, convErr := p.applyTrialTransition(ctx, sub, now)
		if convErr != nil {
			return convErr
		}
		if transitioned {
			changed = true
			if sub.TrialPhase == subscription.TrialPhaseConverted {
				result.TrialsConverted++
			} else {
				result.TrialsLapsed++
			}
		}
	}

	if cycles := p.catchUpRenewals(sub, now); cycles > 0 {
		changed = true
		result.CyclesAdvanced += cycles
	}

	// Deliver before reconciling, so the engine sees due reminders as sent
	// rather than re-raising or withdrawing them.
	delivered, sentAt, err := p.reminder.DeliverDue(ctx, sub.ID)
	if err != nil {
		return err
	}
	if delivered > 0 {
		sub.LastReminderSent = sentAt
		changed = true
		result.RemindersSent += delivered
	}

	if changed {
		if err := p.subRepo.Update(ctx, sub); err != nil {
			return err
		}
	}

	diff, err := p.reminder.ReconcileSubscription(ctx, sub)
	if err != nil {
		return err
	}
	result.RemindersCreated += len(diff.ToCreate)
	result.RemindersCancelled += len(diff.ToCancel)

	return nil
}

// catchUpRenewals advances nextBillingDate until it is in the future,
// accumulating spend once per elapsed cycle. Looping on the date makes
// retries after a partial failure naturally idempotent: an already advanced
// subscription has nothing left to apply.
func (p *ProcessorService) catchUpRenewals(sub *subscription.Subscription, now time.Time) int {
	if !sub.IsActive || !sub.AutoRenew || sub.IsTrialing() {
		return 0
	}
	if billing.IsNever(sub.NextBillingDate) {
		return 0
	}

	cycles := 0
	for !sub.NextBillingDate.After(now) {
		billed := sub.NextBillingDate
		sub.LastBillingDate = &billed
		sub.TotalSpent = sub.TotalSpent.Add(sub.Price)
		sub.NextBillingDate = billing.NextBillingDate(sub.NextBillingDate, sub.BillingCycle)
		cycles++
	}
	return cycles
}

// applyTrialTransition resolves an expired trial exactly once: a converting
// trial becomes a paid subscription at its post-trial price, anything else
// lapses. Re-running on an already transitioned subscription is a no-op
// because the phase has left trialing.
func (p *ProcessorService) applyTrialTransition(ctx context.Context, sub *subscription.Subscription, now time.Time) (bool, error) {
	status := billing.EvaluateTrial(sub, now)
	if !status.IsExpired {
		return false, nil
	}

	if sub.WillConvertToPaid && sub.PriceAfterTrial != nil {
		oldPrice := sub.Price
		sub.TrialPhase = subscription.TrialPhaseConverted
		sub.Price = *sub.PriceAfterTrial
		sub.NextBillingDate = billing.NextBillingDate(now, sub.BillingCycle)

		pc, err := p.ledger.RecordIfChanged(ctx, sub.ID, oldPrice, sub.Price, true, "trial converted to paid")
		if err != nil {
			return false, err
		}
		if pc != nil {
			// The ledger refreshed the cache on its own fetched copy; the
			// batch save below must carry the same pointer.
			sub.LastPriceChange = &pc.ChangeDate
		}

		p.logger.WithFields(map[string]interface{}{
			"subscription_id": sub.ID,
			"price":           sub.Price.String(),
		}).Info("Trial converted to paid")
		return true, nil
	}

	sub.TrialPhase = subscription.TrialPhaseLapsed
	sub.IsActive = false
	sub.AutoRenew = false
	sub.CancellationDate = &now

	p.logger.WithFields(map[string]interface{}{
		"subscription_id": sub.ID,
	}).Info("Trial lapsed without conversion")
	return true, nil
}

// Start schedules recurring processing runs with the given cron expression
// (conceptually once per day).
func (p *ProcessorService) Start(schedule string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return nil
	}

	p.scheduler = cron.New()
	id, err := p.scheduler.AddFunc(schedule, func() {
		if _, err := p.Run(context.Background()); err != nil {
			p.logger.ErrorWithErr(err, "Scheduled processing run failed")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid processor schedule: %w", err)
	}

	p.entryID = id
	p.scheduler.Start()
	p.running = true

	p.logger.WithFields(map[string]interface{}{
		"schedule": schedule,
	}).Info("Lifecycle processor started")
	return nil
}

// Stop halts scheduled runs, waiting for an in-flight run to finish.
func (p *ProcessorService) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}
	ctx := p.scheduler.Stop()
	<-ctx.Done()
	p.running = false
	p.logger.Info("Lifecycle processor stopped")
}
