package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"callops_backend/internal/campaigns"
	"callops_backend/internal/events"
	"callops_backend/internal/notification"
	"callops_backend/internal/phones"
	"callops_backend/internal/scheduler"
	"callops_backend/internal/tools"
	"callops_backend/internal/twilio"
	"callops_backend/internal/vapi"
	"callops_backend/platform/config"
	"callops_backend/platform/db"
	"callops_backend/platform/logger"
	"callops_backend/platform/validator"
)

// The worker process consumes the asynq queue: campaign status refreshes due
// after a schedule window closes, and provider number releases for orphaned
// provisioning attempts.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting worker", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	poolCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	pool, err := db.NewPool(poolCtx, cfg)
	cancel()
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)

	// Status refreshes publish lifecycle events; consume them here too so the
	// audit trail and reconciliation alerts cover worker-driven updates.
	var alertSender notification.Sender
	if cfg.IsEmailEnabled() {
		alertSender = tools.NewEmailSender(cfg)
	}
	notificationModule := notification.NewModule(alertSender, cfg, log)
	notificationModule.RegisterHandlers(eventBus)

	val := validator.New()

	vapiClient := vapi.NewClient(cfg, log)
	twilioClient := twilio.NewClient(cfg, log)

	// The worker never schedules follow-up jobs itself, so both modules run
	// without a scheduler client.
	campaignsModule := campaigns.NewModule(pool, val, vapiClient, eventBus, nil, cfg, log)
	phonesModule := phones.NewModule(pool, val, twilioClient, vapiClient, eventBus, nil, log)

	worker, err := scheduler.NewWorker(cfg, campaignsModule.Service, phonesModule.Service, log)
	if err != nil {
		log.Error("failed to initialize worker", "error", err)
		panic("failed to initialize worker: " + err.Error())
	}

	log.Info("worker listening", "queue", cfg.GetAsynqQueueName())
	worker.Run(ctx)
}
