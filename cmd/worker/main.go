package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"cardflow/config"
	"cardflow/internal/adapter/gateway/authnet"
	pgStorage "cardflow/internal/adapter/storage/postgres"
	redisStorage "cardflow/internal/adapter/storage/redis"
	"cardflow/internal/core/domain"
	"cardflow/internal/core/ports"
	"cardflow/internal/service"
	"cardflow/internal/worker"
	"cardflow/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)
	log.Info().Msg("starting cardflow worker")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to PostgreSQL")
	}
	defer pool.Close()

	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer rdb.Close()

	subscriptionRepo := pgStorage.NewSubscriptionRepo(pool)
	scheduleRepo := pgStorage.NewScheduleRepo(pool)
	dunningRepo := pgStorage.NewDunningRepo(pool)
	webhookRepo := pgStorage.NewWebhookEventRepo(pool)
	auditRepo := pgStorage.NewAuditRepo(pool)

	eventQueue := redisStorage.NewEventQueue(rdb, cfg.Webhook.QueueTopic, cfg.Webhook.PollInterval)

	var gateway ports.PaymentGateway
	if cfg.Gateway.Mode == "mock" {
		log.Warn().Msg("gateway mode is mock, no real charges will be made")
		gateway = authnet.NewMockGateway(log)
	} else {
		gateway = authnet.NewClient(cfg.Gateway, log)
	}

	clock := ports.SystemClock{}
	subscriptionSvc := service.NewSubscriptionService(
		subscriptionRepo, scheduleRepo, dunningRepo, auditRepo,
		gateway, clock, cfg.Subscription.AutoCancelDays, cfg.Subscription.Workers, log,
	)
	webhookSvc := service.NewWebhookService(webhookRepo, eventQueue, clock, log)

	scheduler := worker.NewBillingScheduler(subscriptionSvc, clock, cfg.Subscription.RetryCron, logger.Component(log, "billing-scheduler"))
	if err := scheduler.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start billing scheduler")
	}

	sweeper := worker.NewWebhookSweeper(webhookSvc, clock, cfg.Webhook.SweepCron, cfg.Webhook.StaleAfter, logger.Component(log, "webhook-sweeper"))
	if err := sweeper.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start webhook sweeper")
	}

	// Downstream reconciliation hangs off this handler. For now processing a
	// notification just records it against the event trail.
	handle := func(_ context.Context, event *domain.WebhookEvent) error {
		log.Info().
			Str("event_id", event.EventID).
			Str("event_type", event.EventType).
			Msg("processor notification received")
		return nil
	}
	consumer := worker.NewWebhookConsumer(webhookSvc, eventQueue, handle, logger.Component(log, "webhook-consumer"))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		consumer.Run(ctx)
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down worker")

	scheduler.Stop()
	sweeper.Stop()
	wg.Wait()
	log.Info().Msg("worker exited")
}
