package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/subtrack/subtrack/internal/api/dto"
	"github.com/subtrack/subtrack/internal/pkg/errors"
	"github.com/subtrack/subtrack/internal/pkg/logger"
	"github.com/subtrack/subtrack/internal/pkg/utils"
	"github.com/subtrack/subtrack/internal/pkg/validator"
	"github.com/subtrack/subtrack/internal/services"
)

type ReminderHandler struct {
	service   *services.ReminderService
	logger    *logger.Logger
	validator *validator.Validator
}

func NewReminderHandler(service *services.ReminderService, log *logger.Logger, val *validator.Validator) *ReminderHandler {
	return &ReminderHandler{service: service, logger: log, validator: val}
}

// ListPending returns pending reminders
// @Summary List pending reminders
// @Description Get scheduled and snoozed reminders, optionally for one subscription
// @Tags Reminders
// @Produce json
// @Param subscription_id query string false "Filter by subscription"
// @Success 200 {object} utils.SuccessResponse{data=[]dto.ReminderDTO} "Pending reminders"
// @Failure 500 {object} utils.ErrorResponse "Internal server error"
// @Router /reminders [get]
func (h *ReminderHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	reminders, err := h.service.ListPending(r.Context(), r.URL.Query().Get("subscription_id"))
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}

	dtos := make([]dto.ReminderDTO, len(reminders))
	for i, rem := range reminders {
		dtos[i] = dto.FromReminder(rem)
	}
	utils.WriteSuccess(w, http.StatusOK, dtos)
}

// Snooze postpones a pending reminder
// @Summary Snooze reminder
// @Description Postpone a pending reminder until a future instant
// @Tags Reminders
// @Accept json
// @Produce json
// @Param id path string true "Reminder ID"
// @Param request body dto.SnoozeReminderRequest true "Snooze expiry (RFC 3339)"
// @Success 200 {object} dto.ReminderDTO "Snoozed reminder"
// @Failure 400 {object} utils.ErrorResponse "Invalid request"
// @Failure 409 {object} utils.ErrorResponse "Reminder is not pending"
// @Router /reminders/{id}/snooze [post]
func (h *ReminderHandler) Snooze(w http.ResponseWriter, r *http.Request) {
	var req dto.SnoozeReminderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, errors.BadRequest("Invalid request body"))
		return
	}
	if errs := h.validator.Validate(req); len(errs) > 0 {
		utils.WriteError(w, errors.ValidationError("Validation failed", errs))
		return
	}

	until, err := time.Parse(time.RFC3339, req.Until)
	if err != nil {
		utils.WriteError(w, errors.ValidationError("until must be an RFC 3339 timestamp", nil))
		return
	}

	snoozed, err := h.service.Snooze(r.Context(), chi.URLParam(r, "id"), until)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, dto.FromReminder(snoozed))
}

// Dismiss dismisses a pending reminder
// @Summary Dismiss reminder
// @Description Mark a pending reminder as dismissed
// @Tags Reminders
// @Produce json
// @Param id path string true "Reminder ID"
// @Success 200 {object} dto.ReminderDTO "Dismissed reminder"
// @Failure 409 {object} utils.ErrorResponse "Reminder is not pending"
// @Router /reminders/{id}/dismiss [post]
func (h *ReminderHandler) Dismiss(w http.ResponseWriter, r *http.Request) {
	dismissed, err := h.service.Dismiss(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, dto.FromReminder(dismissed))
}
