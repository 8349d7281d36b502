package handlers

import (
	"net/http"

	"github.com/subtrack/subtrack/internal/api/dto"
	"github.com/subtrack/subtrack/internal/pkg/logger"
	"github.com/subtrack/subtrack/internal/pkg/utils"
	"github.com/subtrack/subtrack/internal/services"
)

type ProcessorHandler struct {
	service *services.ProcessorService
	logger  *logger.Logger
}

func NewProcessorHandler(service *services.ProcessorService, log *logger.Logger) *ProcessorHandler {
	return &ProcessorHandler{service: service, logger: log}
}

// Run triggers one processing pass
// @Summary Run lifecycle processor
// @Description Catch up renewals, resolve expired trials and reconcile reminders for all active subscriptions
// @Tags Processor
// @Produce json
// @Success 200 {object} dto.ProcessorRunDTO "Run outcome"
// @Failure 500 {object} utils.ErrorResponse "Internal server error"
// @Router /processor/run [post]
func (h *ProcessorHandler) Run(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Run(r.Context())
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}

	utils.WriteSuccess(w, http.StatusOK, dto.ProcessorRunDTO{
		StartedAt:          result.StartedAt,
		DurationMs:         result.Duration.Milliseconds(),
		Processed:          result.Processed,
		CyclesAdvanced:     result.CyclesAdvanced,
		TrialsConverted:    result.TrialsConverted,
		TrialsLapsed:       result.TrialsLapsed,
		RemindersSent:      result.RemindersSent,
		RemindersCreated:   result.RemindersCreated,
		RemindersCancelled: result.RemindersCancelled,
		Failed:             result.Failed,
	})
}
