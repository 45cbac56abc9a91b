package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/PaddleSync/app/controllers"
	"github.com/ManuelReschke/PaddleSync/internal/pkg/billing"
	"github.com/ManuelReschke/PaddleSync/internal/pkg/config"
	"github.com/ManuelReschke/PaddleSync/internal/pkg/metrics/counter"
	"github.com/ManuelReschke/PaddleSync/internal/pkg/notify"
	"github.com/ManuelReschke/PaddleSync/internal/pkg/retryqueue"
)

const (
	adminEmail = "ops@example.com"
	cronSecret = "cron-secret"
)

func newTestApp(t *testing.T, rateLimit int) *fiber.App {
	t.Helper()
	cfg := &config.Config{
		App:     config.App{Env: "dev"},
		Webhook: config.Webhook{PaddleSecret: "whsec_test", RateLimit: rateLimit},
		Admin:   config.Admin{Emails: []string{adminEmail}, CronSecret: cronSecret},
		Retry:   config.Retry{MaxRetries: 5, BatchSize: 10, ClaimTTL: retryqueue.DefaultClaimTTL},
	}

	repo := billing.NewMemoryRepository()
	counters := counter.NewMemoryCounter()
	alerts := &notify.Recorder{}
	store := retryqueue.NewMemoryStore()
	policy := retryqueue.DefaultPolicy()
	processor := billing.NewProcessor(repo, counters, alerts)
	queue := retryqueue.NewQueue(store, policy, alerts)
	sweeper := retryqueue.NewSweeper(store, processor, policy, alerts, cfg.Retry.ClaimTTL)
	service := billing.NewService(repo,
		map[string]billing.Verifier{billing.ProviderPaddle: billing.NewSignatureVerifier(cfg.Webhook.PaddleSecret)},
		processor, queue, alerts)

	app := fiber.New()
	InstallRouter(app, Dependencies{
		Config:   cfg,
		Webhooks: controllers.NewWebhookController(service),
		Admin:    controllers.NewAdminWebhookController(service, queue, sweeper, counters, alerts, cfg.Retry.BatchSize),
		Cron:     controllers.NewCronController(sweeper, cfg.Retry.BatchSize),
		Identity: func(c *fiber.Ctx) string { return c.Get("X-Test-User") },
	})
	return app
}

func send(t *testing.T, app *fiber.App, req *http.Request) *http.Response {
	t.Helper()
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealthz(t *testing.T) {
	app := newTestApp(t, 0)
	resp := send(t, app, httptest.NewRequest(fiber.MethodGet, "/healthz", nil))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestAdminRoutes_RequireAdmin(t *testing.T) {
	app := newTestApp(t, 0)

	tests := []struct {
		name       string
		user       string
		wantStatus int
	}{
		{name: "anonymous", wantStatus: fiber.StatusUnauthorized},
		{name: "not an admin", user: "someone@example.com", wantStatus: fiber.StatusForbidden},
		{name: "admin", user: adminEmail, wantStatus: fiber.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, path := range []string{"/admin/webhooks", "/admin/webhooks/retry-queue", "/admin/webhooks/stats"} {
				req := httptest.NewRequest(fiber.MethodGet, path, nil)
				req.Header.Set("X-Test-User", tt.user)
				assert.Equal(t, tt.wantStatus, send(t, app, req).StatusCode, path)
			}
		})
	}
}

func TestAdminRetry_RequiresCSRFToken(t *testing.T) {
	app := newTestApp(t, 0)

	get := httptest.NewRequest(fiber.MethodGet, "/admin/webhooks", nil)
	get.Header.Set("X-Test-User", adminEmail)
	resp := send(t, app, get)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	token := resp.Header.Get(CSRFHeader)
	require.NotEmpty(t, token)
	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "csrf_" {
			cookie = c
		}
	}
	require.NotNil(t, cookie)

	t.Run("missing token", func(t *testing.T) {
		req := httptest.NewRequest(fiber.MethodPost, "/admin/webhooks/retry", nil)
		req.Header.Set("X-Test-User", adminEmail)
		req.AddCookie(cookie)
		assert.Equal(t, fiber.StatusForbidden, send(t, app, req).StatusCode)
	})

	t.Run("wrong token", func(t *testing.T) {
		req := httptest.NewRequest(fiber.MethodPost, "/admin/webhooks/retry", nil)
		req.Header.Set("X-Test-User", adminEmail)
		req.Header.Set(CSRFHeader, "not-the-token")
		req.AddCookie(cookie)
		assert.Equal(t, fiber.StatusForbidden, send(t, app, req).StatusCode)
	})

	t.Run("anonymous with token", func(t *testing.T) {
		req := httptest.NewRequest(fiber.MethodPost, "/admin/webhooks/retry", nil)
		req.Header.Set(CSRFHeader, token)
		req.AddCookie(cookie)
		assert.Equal(t, fiber.StatusUnauthorized, send(t, app, req).StatusCode)
	})

	t.Run("valid token", func(t *testing.T) {
		req := httptest.NewRequest(fiber.MethodPost, "/admin/webhooks/retry", nil)
		req.Header.Set("X-Test-User", adminEmail)
		req.Header.Set(CSRFHeader, token)
		req.AddCookie(cookie)
		assert.Equal(t, fiber.StatusOK, send(t, app, req).StatusCode)
	})
}

func TestCronRoute_RequiresSecret(t *testing.T) {
	app := newTestApp(t, 0)

	tests := []struct {
		name       string
		method     string
		header     string
		value      string
		wantStatus int
	}{
		{name: "no secret", method: fiber.MethodGet, wantStatus: fiber.StatusUnauthorized},
		{name: "wrong secret", method: fiber.MethodPost, header: "X-Cron-Secret", value: "guess", wantStatus: fiber.StatusUnauthorized},
		{name: "get with secret", method: fiber.MethodGet, header: "X-Cron-Secret", value: cronSecret, wantStatus: fiber.StatusOK},
		{name: "post with bearer", method: fiber.MethodPost, header: "Authorization", value: "Bearer " + cronSecret, wantStatus: fiber.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/cron/webhook-retry", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			assert.Equal(t, tt.wantStatus, send(t, app, req).StatusCode)
		})
	}
}

func TestWebhookRoute_RateLimited(t *testing.T) {
	app := newTestApp(t, 2)

	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(fiber.MethodPost, "/webhooks/paddle", strings.NewReader(`{}`))
		req.Header.Set("Paddle-Signature", "invalid")
		statuses = append(statuses, send(t, app, req).StatusCode)
	}
	assert.Equal(t, []int{fiber.StatusUnauthorized, fiber.StatusUnauthorized, fiber.StatusTooManyRequests}, statuses)
}

func TestWebhookRoute_Unthrottled(t *testing.T) {
	app := newTestApp(t, 0)
	for i := 0; i < 10; i++ {
		req := httptest.NewRequest(fiber.MethodPost, "/webhooks/paddle", strings.NewReader(`{}`))
		assert.Equal(t, fiber.StatusUnauthorized, send(t, app, req).StatusCode)
	}
}
