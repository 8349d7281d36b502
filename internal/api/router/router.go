package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/subtrack/subtrack/internal/api/handlers"
	"github.com/subtrack/subtrack/internal/api/middleware"
	"github.com/subtrack/subtrack/internal/config"
	"github.com/subtrack/subtrack/internal/pkg/logger"
	"github.com/subtrack/subtrack/internal/pkg/metrics"
)

type Handlers struct {
	Health       *handlers.HealthHandler
	Subscription *handlers.SubscriptionHandler
	PriceChange  *handlers.PriceChangeHandler
	Reminder     *handlers.ReminderHandler
	Processor    *handlers.ProcessorHandler
}

func New(cfg *config.Config, log *logger.Logger, h *Handlers) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(log))
	r.Use(middleware.Recovery(log))
	r.Use(middleware.DefaultCORS(cfg.Server.FrontendURL))
	r.Use(metrics.Middleware)

	// Health checks and metrics
	r.Get("/health", h.Health.Healthz)
	r.Get("/healthz", h.Health.Healthz)
	r.Get("/readyz", h.Health.Readyz)
	r.Handle("/metrics", metrics.Handler())

	// Subscriptions
	r.Route("/api/v1/subscriptions", func(r chi.Router) {
		r.Get("/", h.Subscription.List)
		r.Post("/", h.Subscription.Create)
		r.Get("/summary", h.Subscription.GetSummary)
		r.Get("/{id}", h.Subscription.Get)
		r.Put("/{id}", h.Subscription.Update)
		r.Delete("/{id}", h.Subscription.Delete)
		r.Post("/{id}/cancel", h.Subscription.Cancel)
		r.Post("/{id}/usage", h.Subscription.RecordUsage)
		r.Get("/{id}/price-history", h.PriceChange.History)
		r.Post("/{id}/price-history", h.PriceChange.Record)
	})

	// Reminders
	r.Route("/api/v1/reminders", func(r chi.Router) {
		r.Get("/", h.Reminder.ListPending)
		r.Post("/{id}/snooze", h.Reminder.Snooze)
		r.Post("/{id}/dismiss", h.Reminder.Dismiss)
	})

	// Lifecycle processor
	r.Post("/api/v1/processor/run", h.Processor.Run)

	return r
}
