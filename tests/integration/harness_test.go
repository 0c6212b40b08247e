package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"cardflow/internal/adapter/gateway/authnet"
	httpHandler "cardflow/internal/adapter/http/handler"
	"cardflow/internal/adapter/storage/memory"
	redisStorage "cardflow/internal/adapter/storage/redis"
	"cardflow/internal/core/ports"
	"cardflow/internal/service"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// testApp builds the full application stack on in-memory storage and
// miniredis. Requests travel through the real router, middleware, handlers,
// services, idempotency guard and redis queue; only postgres and the
// processor are substituted.
type testApp struct {
	server *httptest.Server
	redis  *miniredis.Miniredis
	clock  *mutableClock

	orders        *memory.OrderRepository
	events        *memory.WebhookEventRepository
	subscriptions ports.SubscriptionService
	webhooks      ports.WebhookService
	queue         *redisStorage.EventQueue
}

type mutableClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *mutableClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *mutableClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *mutableClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	clock := &mutableClock{now: time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)}
	log := zerolog.Nop()

	orders := memory.NewOrderRepository()
	transactions := memory.NewTransactionRepository()
	refunds := memory.NewRefundRepository()
	subscriptionRepo := memory.NewSubscriptionRepository()
	schedules := memory.NewScheduleRepository()
	dunning := memory.NewDunningRepository()
	events := memory.NewWebhookEventRepository()
	idempotency := memory.NewIdempotencyRepository()
	audits := memory.NewAuditRepository()

	queue := redisStorage.NewEventQueue(rdb, "webhook:events", 50*time.Millisecond)
	cache := redisStorage.NewIdempotencyCache(rdb)
	gateway := authnet.NewMockGateway(log)

	guard := service.NewIdempotencyGuard(idempotency, cache, time.Hour, clock, log)
	paymentSvc := service.NewPaymentService(orders, transactions, refunds, audits, gateway, clock, log)
	subscriptionSvc := service.NewSubscriptionService(
		subscriptionRepo, schedules, dunning, audits, gateway, clock, 30, 2, log)
	webhookSvc := service.NewWebhookService(events, queue, clock, log)

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		PaymentSvc:      paymentSvc,
		SubscriptionSvc: subscriptionSvc,
		WebhookSvc:      webhookSvc,
		Guard:           guard,
		Logger:          log,
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &testApp{
		server:        server,
		redis:         mr,
		clock:         clock,
		orders:        orders,
		events:        events,
		subscriptions: subscriptionSvc,
		webhooks:      webhookSvc,
		queue:         queue,
	}
}

func (app *testApp) post(t *testing.T, path string, body any, headers map[string]string) (*http.Response, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(http.MethodPost, app.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return app.send(t, req)
}

func (app *testApp) get(t *testing.T, path string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, app.server.URL+path, nil)
	require.NoError(t, err)
	return app.send(t, req)
}

func (app *testApp) send(t *testing.T, req *http.Request) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := app.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var parsed map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&parsed))
	return resp, parsed
}

func data(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	d, ok := body["data"].(map[string]any)
	require.True(t, ok, "response has no data object: %v", body)
	return d
}
