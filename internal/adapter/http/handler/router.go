package handler

import (
	"context"
	"net/http"
	"time"

	"cardflow/internal/adapter/http/middleware"
	"cardflow/internal/core/ports"
	"cardflow/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// HealthProbe names one dependency check for the health endpoint.
type HealthProbe struct {
	Name  string
	Check func(ctx context.Context) error
}

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	PaymentSvc      ports.PaymentService
	SubscriptionSvc ports.SubscriptionService
	WebhookSvc      ports.WebhookService
	Guard           *service.IdempotencyGuard
	HealthProbes    []HealthProbe
	Logger          zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestContext())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	r.GET("/health", HealthCheck(deps.HealthProbes...))

	// Processor callbacks live outside the versioned API surface.
	webhookHandler := NewWebhookHandler(deps.WebhookSvc)
	r.POST("/webhooks/authorizenet", webhookHandler.Receive)

	v1 := r.Group("/api/v1")

	paymentHandler := NewPaymentHandler(deps.PaymentSvc, deps.Guard)
	payments := v1.Group("/payments")
	{
		payments.POST("/purchase", paymentHandler.Purchase)
		payments.POST("/authorize", paymentHandler.Authorize)
		payments.POST("/:id/capture", paymentHandler.Capture)
		payments.POST("/:id/cancel", paymentHandler.Cancel)
		payments.POST("/:id/refund", paymentHandler.Refund)
		payments.GET("/:id", paymentHandler.GetOrder)
	}

	subscriptionHandler := NewSubscriptionHandler(deps.SubscriptionSvc, deps.Guard)
	subscriptions := v1.Group("/subscriptions")
	{
		subscriptions.POST("", subscriptionHandler.Create)
		subscriptions.GET("", subscriptionHandler.List)
		subscriptions.GET("/:id", subscriptionHandler.Get)
		subscriptions.PATCH("/:id", subscriptionHandler.Update)
		subscriptions.POST("/:id/pause", subscriptionHandler.Pause)
		subscriptions.POST("/:id/resume", subscriptionHandler.Resume)
		subscriptions.POST("/:id/cancel", subscriptionHandler.Cancel)
		subscriptions.GET("/:id/schedules", subscriptionHandler.Schedules)
		subscriptions.GET("/:id/dunning", subscriptionHandler.DunningHistory)
	}

	v1.GET("/webhook-events/:id", webhookHandler.GetEvent)

	return r
}

// HealthCheck verifies each probe with a short deadline and reports 503 when
// any dependency is down.
func HealthCheck(probes ...HealthProbe) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		checks := make(map[string]string, len(probes))
		healthy := true
		for _, p := range probes {
			if err := p.Check(ctx); err != nil {
				checks[p.Name] = err.Error()
				healthy = false
				continue
			}
			checks[p.Name] = "ok"
		}

		status := http.StatusOK
		overall := "ok"
		if !healthy {
			status = http.StatusServiceUnavailable
			overall = "degraded"
		}
		c.JSON(status, gin.H{"status": overall, "checks": checks})
	}
}
