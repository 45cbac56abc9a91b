package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/PaddleSync/internal/pkg/middleware"
	"github.com/ManuelReschke/PaddleSync/internal/pkg/session"
)

type HttpRouter struct {
	deps Dependencies
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// init session
	session.NewSessionStore(h.deps.SessionStorage, !h.deps.Config.IsDev())

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})

	cron := middleware.RequireCronSecret(h.deps.Config.Admin.CronSecret)
	app.Get("/cron/webhook-retry", cron, h.deps.Cron.HandleWebhookRetry)
	app.Post("/cron/webhook-retry", cron, h.deps.Cron.HandleWebhookRetry)

	h.registerAdminRoutes(app)
}

func NewHttpRouter(deps Dependencies) *HttpRouter {
	return &HttpRouter{deps: deps}
}
