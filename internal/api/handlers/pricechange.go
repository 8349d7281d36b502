package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/subtrack/subtrack/internal/api/dto"
	"github.com/subtrack/subtrack/internal/domain/pricechange"
	"github.com/subtrack/subtrack/internal/domain/subscription"
	"github.com/subtrack/subtrack/internal/pkg/errors"
	"github.com/subtrack/subtrack/internal/pkg/logger"
	"github.com/subtrack/subtrack/internal/pkg/utils"
	"github.com/subtrack/subtrack/internal/pkg/validator"
)

type PriceChangeHandler struct {
	ledger    pricechange.Service
	subs      subscription.Service
	logger    *logger.Logger
	validator *validator.Validator
}

func NewPriceChangeHandler(ledger pricechange.Service, subs subscription.Service, log *logger.Logger, val *validator.Validator) *PriceChangeHandler {
	return &PriceChangeHandler{ledger: ledger, subs: subs, logger: log, validator: val}
}

// History returns a subscription's price history, newest first
// @Summary Get price history
// @Description Get the append-only price change ledger for a subscription
// @Tags PriceHistory
// @Produce json
// @Param id path string true "Subscription ID"
// @Success 200 {object} utils.SuccessResponse{data=[]dto.PriceChangeDTO} "Price history"
// @Failure 404 {object} utils.ErrorResponse "Subscription not found"
// @Router /subscriptions/{id}/price-history [get]
func (h *PriceChangeHandler) History(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, err := h.subs.GetByID(r.Context(), id); err != nil {
		utils.WriteAppError(w, err)
		return
	}

	history, err := h.ledger.History(r.Context(), id)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}

	dtos := make([]dto.PriceChangeDTO, len(history))
	for i, pc := range history {
		dtos[i] = dto.FromPriceChange(pc)
	}
	utils.WriteSuccess(w, http.StatusOK, dtos)
}

// Record applies an externally observed price change
// @Summary Record price change
// @Description Record a vendor price change observed outside the app; no-op when the price is unchanged
// @Tags PriceHistory
// @Accept json
// @Produce json
// @Param id path string true "Subscription ID"
// @Param request body dto.RecordPriceChangeRequest true "New price"
// @Success 200 {object} dto.PriceChangeDTO "Recorded price change, null when unchanged"
// @Failure 400 {object} utils.ErrorResponse "Invalid request"
// @Failure 404 {object} utils.ErrorResponse "Subscription not found"
// @Router /subscriptions/{id}/price-history [post]
func (h *PriceChangeHandler) Record(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req dto.RecordPriceChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, errors.BadRequest("Invalid request body"))
		return
	}
	if errs := h.validator.Validate(req); len(errs) > 0 {
		utils.WriteError(w, errors.ValidationError("Validation failed", errs))
		return
	}

	newPrice, err := decimal.NewFromString(req.NewPrice)
	if err != nil {
		utils.WriteError(w, errors.ValidationError("newPrice must be a decimal number", nil))
		return
	}

	updated, err := h.subs.ObservePrice(r.Context(), id, newPrice, req.Reason)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}

	latest, err := h.ledger.History(r.Context(), updated.ID)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}
	if len(latest) == 0 || !latest[0].NewPrice.Equal(newPrice) {
		// Unchanged price: the ledger recorded nothing.
		utils.WriteSuccess(w, http.StatusOK, nil)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, dto.FromPriceChange(latest[0]))
}
