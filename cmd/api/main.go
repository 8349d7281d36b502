package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/subtrack/subtrack/internal/api/handlers"
	"github.com/subtrack/subtrack/internal/api/router"
	"github.com/subtrack/subtrack/internal/config"
	"github.com/subtrack/subtrack/internal/domain/reminder"
	"github.com/subtrack/subtrack/internal/pkg/logger"
	"github.com/subtrack/subtrack/internal/pkg/validator"
	"github.com/subtrack/subtrack/internal/repository/postgres"
	"github.com/subtrack/subtrack/internal/services"
	"github.com/subtrack/subtrack/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	db, err := postgres.New(cfg.Database)
	if err != nil {
		log.ErrorWithErr(err, "Failed to connect to database")
		os.Exit(1)
	}
	defer db.Close()

	if err := postgres.RunMigrations(db, migrations.GetFS()); err != nil {
		log.ErrorWithErr(err, "Failed to run migrations")
		os.Exit(1)
	}

	// Repositories
	subRepo := postgres.NewSubscriptionRepository(db)
	pcRepo := postgres.NewPriceChangeRepository(db)
	remRepo := postgres.NewReminderRepository(db)

	// Services
	prefs := reminder.Preferences{
		DefaultLeadDays: cfg.Reminders.DefaultLeadDays,
		DefaultTime:     cfg.Reminders.DefaultTime,
		QuietHours: reminder.QuietWindow{
			Enabled: cfg.Reminders.QuietHoursEnabled,
			Start:   cfg.Reminders.QuietHoursStart,
			End:     cfg.Reminders.QuietHoursEnd,
		},
	}
	ledger := services.NewLedgerService(pcRepo, subRepo, log, nil)
	dispatcher := services.NewDispatchService(remRepo, log, nil)
	reminderSvc := services.NewReminderService(remRepo, pcRepo, dispatcher, prefs, log, nil)
	subSvc := services.NewSubscriptionService(subRepo, ledger, reminderSvc, log, nil)
	processor := services.NewProcessorService(subRepo, ledger, reminderSvc, log, nil)

	if cfg.Processor.Enabled {
		if err := processor.Start(cfg.Processor.Schedule); err != nil {
			log.ErrorWithErr(err, "Failed to start processor schedule")
			os.Exit(1)
		}
		defer processor.Stop()
	}

	// HTTP layer
	val := validator.New()
	h := &router.Handlers{
		Health:       handlers.NewHealthHandler(db, log),
		Subscription: handlers.NewSubscriptionHandler(subSvc, log, val, nil),
		PriceChange:  handlers.NewPriceChangeHandler(ledger, subSvc, log, val),
		Reminder:     handlers.NewReminderHandler(reminderSvc, log, val),
		Processor:    handlers.NewProcessorHandler(processor, log),
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.New(cfg, log, h),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.WithFields(map[string]interface{}{
			"addr":        srv.Addr,
			"environment": cfg.Server.Environment,
		}).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.ErrorWithErr(err, "Server failed")
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.ErrorWithErr(err, "Forced shutdown")
		os.Exit(1)
	}

	log.Info("Server stopped")
}
