package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

type WebhookRouter struct {
	deps Dependencies
}

func (w WebhookRouter) InstallRouter(app *fiber.App) {
	limit := w.deps.Config.Webhook.RateLimit
	webhooks := app.Group("/webhooks", limiter.New(limiter.Config{
		Max:        limit,
		Expiration: 1 * time.Minute,
		Storage:    w.deps.LimiterStorage,
		Next: func(c *fiber.Ctx) bool {
			return limit <= 0
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate_limited"})
		},
	}))
	webhooks.Post("/:provider", w.deps.Webhooks.HandleWebhook)
}

func NewWebhookRouter(deps Dependencies) *WebhookRouter {
	return &WebhookRouter{deps: deps}
}
