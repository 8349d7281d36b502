package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/subtrack/subtrack/internal/api/dto"
	"github.com/subtrack/subtrack/internal/domain/subscription"
	"github.com/subtrack/subtrack/internal/pkg/errors"
	"github.com/subtrack/subtrack/internal/pkg/logger"
	"github.com/subtrack/subtrack/internal/pkg/utils"
	"github.com/subtrack/subtrack/internal/pkg/validator"
)

type SubscriptionHandler struct {
	service   subscription.Service
	logger    *logger.Logger
	validator *validator.Validator
	now       func() time.Time
}

func NewSubscriptionHandler(service subscription.Service, log *logger.Logger, val *validator.Validator, now func() time.Time) *SubscriptionHandler {
	if now == nil {
		now = time.Now
	}
	return &SubscriptionHandler{service: service, logger: log, validator: val, now: now}
}

// List returns subscriptions with optional filtering
// @Summary List subscriptions
// @Description Get subscriptions with optional filtering by state, cycle and category
// @Tags Subscriptions
// @Produce json
// @Param active query bool false "Filter by active state"
// @Param cycle query string false "Filter by billing cycle"
// @Param trial_phase query string false "Filter by trial phase"
// @Param category query string false "Filter by category"
// @Success 200 {object} utils.SuccessResponse{data=[]dto.SubscriptionDTO} "List of subscriptions"
// @Failure 500 {object} utils.ErrorResponse "Internal server error"
// @Router /subscriptions [get]
func (h *SubscriptionHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := subscription.Filter{
		Cycle:      subscription.BillingCycle(r.URL.Query().Get("cycle")),
		TrialPhase: subscription.TrialPhase(r.URL.Query().Get("trial_phase")),
		Category:   r.URL.Query().Get("category"),
	}
	if v := r.URL.Query().Get("active"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			utils.WriteError(w, errors.BadRequest("Invalid active filter"))
			return
		}
		filter.IsActive = &active
	}

	subs, err := h.service.List(r.Context(), filter)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}

	now := h.now()
	dtos := make([]dto.SubscriptionDTO, len(subs))
	for i, s := range subs {
		dtos[i] = dto.FromSubscription(s, now)
	}
	utils.WriteSuccess(w, http.StatusOK, dtos)
}

// Get returns a single subscription by ID
// @Summary Get subscription by ID
// @Description Get detailed information about a specific subscription
// @Tags Subscriptions
// @Produce json
// @Param id path string true "Subscription ID"
// @Success 200 {object} dto.SubscriptionDTO "Subscription details"
// @Failure 404 {object} utils.ErrorResponse "Subscription not found"
// @Router /subscriptions/{id} [get]
func (h *SubscriptionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, dto.FromSubscription(s, h.now()))
}

// Create creates a new subscription
// @Summary Create subscription
// @Description Create a new subscription, optionally starting inside a free trial
// @Tags Subscriptions
// @Accept json
// @Produce json
// @Param request body dto.CreateSubscriptionRequest true "Subscription details"
// @Success 201 {object} dto.SubscriptionDTO "Subscription created"
// @Failure 400 {object} utils.ErrorResponse "Invalid request or validation error"
// @Router /subscriptions [post]
func (h *SubscriptionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateSubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, errors.BadRequest("Invalid request body"))
		return
	}
	if errs := h.validator.Validate(req); len(errs) > 0 {
		utils.WriteError(w, errors.ValidationError("Validation failed", errs))
		return
	}

	sub, err := subscriptionFromCreateRequest(&req)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}

	created, err := h.service.Create(r.Context(), sub)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, dto.FromSubscription(created, h.now()))
}

// Update updates an existing subscription
// @Summary Update subscription
// @Description Update a subscription; price edits are recorded in the price history
// @Tags Subscriptions
// @Accept json
// @Produce json
// @Param id path string true "Subscription ID"
// @Param request body dto.UpdateSubscriptionRequest true "Fields to update"
// @Success 200 {object} dto.SubscriptionDTO "Subscription updated"
// @Failure 400 {object} utils.ErrorResponse "Invalid request"
// @Failure 404 {object} utils.ErrorResponse "Subscription not found"
// @Router /subscriptions/{id} [put]
func (h *SubscriptionHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req dto.UpdateSubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, errors.BadRequest("Invalid request body"))
		return
	}
	if errs := h.validator.Validate(req); len(errs) > 0 {
		utils.WriteError(w, errors.ValidationError("Validation failed", errs))
		return
	}

	current, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}
	if err := applyUpdateRequest(current, &req); err != nil {
		utils.WriteAppError(w, err)
		return
	}

	updated, err := h.service.Update(r.Context(), current)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, dto.FromSubscription(updated, h.now()))
}

// Delete deletes a subscription
// @Summary Delete subscription
// @Description Delete a subscription and its reminders and price history
// @Tags Subscriptions
// @Produce json
// @Param id path string true "Subscription ID"
// @Success 200 {object} utils.SuccessResponse "Subscription deleted"
// @Failure 404 {object} utils.ErrorResponse "Subscription not found"
// @Router /subscriptions/{id} [delete]
func (h *SubscriptionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		utils.WriteAppError(w, err)
		return
	}
	utils.WriteSuccessWithMessage(w, http.StatusOK, "Subscription deleted successfully", nil)
}

// Cancel marks a subscription as cancelled
// @Summary Cancel subscription
// @Description Cancel a subscription; pending reminders are withdrawn
// @Tags Subscriptions
// @Produce json
// @Param id path string true "Subscription ID"
// @Success 200 {object} dto.SubscriptionDTO "Subscription cancelled"
// @Failure 404 {object} utils.ErrorResponse "Subscription not found"
// @Router /subscriptions/{id}/cancel [post]
func (h *SubscriptionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	cancelled, err := h.service.Cancel(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, dto.FromSubscription(cancelled, h.now()))
}

// RecordUsage increments a subscription's usage counter
// @Summary Record usage
// @Description Record one use of the subscription, for retention insight
// @Tags Subscriptions
// @Produce json
// @Param id path string true "Subscription ID"
// @Success 200 {object} utils.SuccessResponse "Usage recorded"
// @Failure 404 {object} utils.ErrorResponse "Subscription not found"
// @Router /subscriptions/{id}/usage [post]
func (h *SubscriptionHandler) RecordUsage(w http.ResponseWriter, r *http.Request) {
	if err := h.service.RecordUsage(r.Context(), chi.URLParam(r, "id")); err != nil {
		utils.WriteAppError(w, err)
		return
	}
	utils.WriteSuccessWithMessage(w, http.StatusOK, "Usage recorded", nil)
}

// GetSummary returns derived spend totals
// @Summary Get spending summary
// @Description Get active counts, monthly and yearly totals, and upcoming renewals
// @Tags Subscriptions
// @Produce json
// @Param within_days query int false "Renewal horizon in days (default: 30)"
// @Success 200 {object} dto.SummaryDTO "Spending summary"
// @Failure 500 {object} utils.ErrorResponse "Internal server error"
// @Router /subscriptions/summary [get]
func (h *SubscriptionHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	withinDays, _ := strconv.Atoi(r.URL.Query().Get("within_days"))
	if withinDays <= 0 {
		withinDays = 30
	}

	summary, err := h.service.GetSummary(r.Context(), withinDays)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}

	now := h.now()
	out := dto.SummaryDTO{
		ActiveCount:      summary.ActiveCount,
		TrialingCount:    summary.TrialingCount,
		MonthlyTotal:     summary.MonthlyTotal.Round(2),
		YearlyTotal:      summary.YearlyTotal.Round(2),
		UpcomingRenewals: make([]dto.SubscriptionDTO, len(summary.UpcomingRenewals)),
	}
	for i, s := range summary.UpcomingRenewals {
		out.UpcomingRenewals[i] = dto.FromSubscription(s, now)
	}
	utils.WriteSuccess(w, http.StatusOK, out)
}

func subscriptionFromCreateRequest(req *dto.CreateSubscriptionRequest) (*subscription.Subscription, error) {
	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		return nil, errors.ValidationError("price must be a decimal number", nil)
	}

	sub := &subscription.Subscription{
		Name:                  req.Name,
		Category:              req.Category,
		Price:                 price,
		BillingCycle:          subscription.BillingCycle(req.BillingCycle),
		PaymentMethod:         req.PaymentMethod,
		Notes:                 req.Notes,
		IsActive:              true,
		AutoRenew:             req.AutoRenew,
		TrialPhase:            subscription.TrialPhaseNone,
		WillConvertToPaid:     req.WillConvertToPaid,
		EnableRenewalReminder: req.EnableRenewalReminder,
		ReminderDaysBefore:    req.ReminderDaysBefore,
		ReminderTime:          req.ReminderTime,
	}

	if req.IsFreeTrial {
		sub.TrialPhase = subscription.TrialPhaseTrialing
		if req.TrialStartDate != "" {
			start, err := parseDate(req.TrialStartDate)
			if err != nil {
				return nil, err
			}
			sub.TrialStartDate = &start
		}
		if req.TrialEndDate != "" {
			end, err := parseDate(req.TrialEndDate)
			if err != nil {
				return nil, err
			}
			sub.TrialEndDate = &end
		}
		if req.PriceAfterTrial != "" {
			after, err := decimal.NewFromString(req.PriceAfterTrial)
			if err != nil {
				return nil, errors.ValidationError("priceAfterTrial must be a decimal number", nil)
			}
			sub.PriceAfterTrial = &after
		}
	}

	if req.NextBillingDate != "" {
		next, err := parseDate(req.NextBillingDate)
		if err != nil {
			return nil, err
		}
		sub.NextBillingDate = next
	}

	return sub, nil
}

func applyUpdateRequest(sub *subscription.Subscription, req *dto.UpdateSubscriptionRequest) error {
	if req.Name != nil {
		sub.Name = *req.Name
	}
	if req.Category != nil {
		sub.Category = *req.Category
	}
	if req.Price != nil {
		price, err := decimal.NewFromString(*req.Price)
		if err != nil {
			return errors.ValidationError("price must be a decimal number", nil)
		}
		sub.Price = price
	}
	if req.BillingCycle != nil {
		sub.BillingCycle = subscription.BillingCycle(*req.BillingCycle)
	}
	if req.PaymentMethod != nil {
		sub.PaymentMethod = *req.PaymentMethod
	}
	if req.Notes != nil {
		sub.Notes = *req.Notes
	}
	if req.AutoRenew != nil {
		sub.AutoRenew = *req.AutoRenew
	}
	if req.NextBillingDate != nil {
		next, err := parseDate(*req.NextBillingDate)
		if err != nil {
			return err
		}
		sub.NextBillingDate = next
	}
	if req.EnableRenewalReminder != nil {
		sub.EnableRenewalReminder = *req.EnableRenewalReminder
	}
	if req.ReminderDaysBefore != nil {
		sub.ReminderDaysBefore = *req.ReminderDaysBefore
	}
	if req.ReminderTime != nil {
		sub.ReminderTime = *req.ReminderTime
	}
	return nil
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, errors.ValidationError("dates must be YYYY-MM-DD", nil)
	}
	return t, nil
}
