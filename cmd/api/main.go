package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cardflow/config"
	"cardflow/internal/adapter/gateway/authnet"
	httpHandler "cardflow/internal/adapter/http/handler"
	pgStorage "cardflow/internal/adapter/storage/postgres"
	redisStorage "cardflow/internal/adapter/storage/redis"
	"cardflow/internal/core/ports"
	"cardflow/internal/service"
	"cardflow/pkg/logger"
)

const idempotencyTTL = 24 * time.Hour

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("starting cardflow api")

	ctx := context.Background()

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

	// Repositories
	orderRepo := pgStorage.NewOrderRepo(pool)
	txRepo := pgStorage.NewTransactionRepo(pool)
	refundRepo := pgStorage.NewRefundRepo(pool)
	subscriptionRepo := pgStorage.NewSubscriptionRepo(pool)
	scheduleRepo := pgStorage.NewScheduleRepo(pool)
	dunningRepo := pgStorage.NewDunningRepo(pool)
	webhookRepo := pgStorage.NewWebhookEventRepo(pool)
	idempotencyRepo := pgStorage.NewIdempotencyRepo(pool)
	auditRepo := pgStorage.NewAuditRepo(pool)

	idempotencyCache := redisStorage.NewIdempotencyCache(rdb)
	eventQueue := redisStorage.NewEventQueue(rdb, cfg.Webhook.QueueTopic, cfg.Webhook.PollInterval)

	var gateway ports.PaymentGateway
	if cfg.Gateway.Mode == "mock" {
		log.Warn().Msg("gateway mode is mock, no real charges will be made")
		gateway = authnet.NewMockGateway(log)
	} else {
		gateway = authnet.NewClient(cfg.Gateway, log)
	}

	clock := ports.SystemClock{}
	guard := service.NewIdempotencyGuard(idempotencyRepo, idempotencyCache, idempotencyTTL, clock, log)
	paymentSvc := service.NewPaymentService(orderRepo, txRepo, refundRepo, auditRepo, gateway, clock, log)
	subscriptionSvc := service.NewSubscriptionService(
		subscriptionRepo, scheduleRepo, dunningRepo, auditRepo,
		gateway, clock, cfg.Subscription.AutoCancelDays, cfg.Subscription.Workers, log,
	)
	webhookSvc := service.NewWebhookService(webhookRepo, eventQueue, clock, log)

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		PaymentSvc:      paymentSvc,
		SubscriptionSvc: subscriptionSvc,
		WebhookSvc:      webhookSvc,
		Guard:           guard,
		HealthProbes: []httpHandler.HealthProbe{
			{Name: "postgres", Check: pool.Ping},
			{Name: "redis", Check: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }},
		},
		Logger: log,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited")
}
